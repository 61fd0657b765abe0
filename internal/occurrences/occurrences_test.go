package occurrences

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/flashcoder237/campus-timetable-engine/internal/apperrors"
	"github.com/flashcoder237/campus-timetable-engine/internal/domain"
)

type fakeOccurrenceStore struct {
	occurrences map[string]domain.Occurrence
	scheduleOf  map[string]string
	updated     []domain.Occurrence
	written     []domain.Occurrence
}

func newFakeOccurrenceStore() *fakeOccurrenceStore {
	return &fakeOccurrenceStore{occurrences: map[string]domain.Occurrence{}, scheduleOf: map[string]string{}}
}

func (f *fakeOccurrenceStore) ListOccurrencesForSchedule(ctx context.Context, scheduleID string) ([]domain.Occurrence, error) {
	var out []domain.Occurrence
	for id, o := range f.occurrences {
		if f.scheduleOf[id] == scheduleID {
			out = append(out, o)
		}
	}
	return out, nil
}
func (f *fakeOccurrenceStore) ListExistingOccurrences(ctx context.Context, from, to time.Time) ([]domain.Occurrence, error) {
	var out []domain.Occurrence
	for _, o := range f.occurrences {
		out = append(out, o)
	}
	return out, nil
}
func (f *fakeOccurrenceStore) GetOccurrence(ctx context.Context, id string) (domain.Occurrence, string, error) {
	o, ok := f.occurrences[id]
	if !ok {
		return domain.Occurrence{}, "", errors.New("not found")
	}
	return o, f.scheduleOf[id], nil
}
func (f *fakeOccurrenceStore) BulkWriteSessionsAndOccurrences(ctx context.Context, scheduleID string, templates []domain.SessionTemplate, occurrences []domain.Occurrence) error {
	for _, o := range occurrences {
		f.occurrences[o.ID] = o
		f.scheduleOf[o.ID] = scheduleID
		f.written = append(f.written, o)
	}
	return nil
}
func (f *fakeOccurrenceStore) DeleteOccurrencesIn(ctx context.Context, scheduleID string, from, to time.Time) error {
	return nil
}
func (f *fakeOccurrenceStore) UpdateOccurrence(ctx context.Context, occ domain.Occurrence) error {
	f.occurrences[occ.ID] = occ
	f.updated = append(f.updated, occ)
	return nil
}

type fakeRoomStore struct{ rooms map[string]domain.Room }

func (f *fakeRoomStore) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	r, ok := f.rooms[id]
	if !ok {
		return domain.Room{}, errors.New("not found")
	}
	return r, nil
}
func (f *fakeRoomStore) ListRooms(ctx context.Context) ([]domain.Room, error) { return nil, nil }
func (f *fakeRoomStore) CreateRoom(ctx context.Context, room domain.Room) error { return nil }
func (f *fakeRoomStore) UpdateRoom(ctx context.Context, room domain.Room) error { return nil }

type fakeInstructorStore struct{ instructors map[string]domain.Instructor }

func (f *fakeInstructorStore) GetInstructor(ctx context.Context, id string) (domain.Instructor, error) {
	i, ok := f.instructors[id]
	if !ok {
		return domain.Instructor{}, errors.New("not found")
	}
	return i, nil
}
func (f *fakeInstructorStore) ListInstructors(ctx context.Context) ([]domain.Instructor, error) {
	return nil, nil
}
func (f *fakeInstructorStore) CreateInstructor(ctx context.Context, i domain.Instructor) error { return nil }
func (f *fakeInstructorStore) UpdateInstructor(ctx context.Context, i domain.Instructor) error { return nil }

func testManager() (*Manager, *fakeOccurrenceStore) {
	occStore := newFakeOccurrenceStore()
	rooms := &fakeRoomStore{rooms: map[string]domain.Room{
		"room1": {ID: "room1", Code: "A1", Capacity: 30, Active: true},
		"room2": {ID: "room2", Code: "A2", Capacity: 30, Active: true},
	}}
	instructors := &fakeInstructorStore{instructors: map[string]domain.Instructor{
		"instr1": {ID: "instr1", DisplayName: "Dupont"},
		"instr2": {ID: "instr2", DisplayName: "Martin"},
	}}
	return New(occStore, rooms, instructors, nil), occStore
}

func baseOccurrence() domain.Occurrence {
	start := time.Date(2025, 9, 1, 8, 0, 0, 0, time.UTC)
	return domain.Occurrence{
		ID: "occ1", TemplateID: "tmpl1", CourseID: "course1", SessionType: domain.SessionCM,
		ActualDate: start, Start: start, End: start.Add(90 * time.Minute),
		RoomID: "room1", InstructorID: "instr1", Status: domain.OccurrenceScheduled,
	}
}

func TestCancel_MarksCancelledWithReason(t *testing.T) {
	mgr, store := testManager()
	occ := baseOccurrence()
	store.occurrences[occ.ID] = occ
	store.scheduleOf[occ.ID] = "sched1"

	updated, err := mgr.Cancel(context.Background(), "occ1", "instructor illness")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if updated.Status != domain.OccurrenceCancelled || !updated.Modifications.Cancelled {
		t.Errorf("expected cancelled occurrence, got %+v", updated)
	}
	if updated.CancelReason != "instructor illness" {
		t.Errorf("CancelReason = %q", updated.CancelReason)
	}
}

func TestCancel_AlreadyCancelledIsPrecondition(t *testing.T) {
	mgr, store := testManager()
	occ := baseOccurrence()
	occ.Status = domain.OccurrenceCancelled
	store.occurrences[occ.ID] = occ
	store.scheduleOf[occ.ID] = "sched1"

	_, err := mgr.Cancel(context.Background(), "occ1", "dup")
	var perr *apperrors.PreconditionError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
}

func TestReschedule_CreatesLinkedReplacement(t *testing.T) {
	mgr, store := testManager()
	occ := baseOccurrence()
	store.occurrences[occ.ID] = occ
	store.scheduleOf[occ.ID] = "sched1"

	newDate := time.Date(2025, 9, 8, 10, 0, 0, 0, time.UTC)
	newStart := newDate
	newEnd := newStart.Add(90 * time.Minute)

	replacement, err := mgr.Reschedule(context.Background(), "occ1", newDate, newStart, newEnd, nil, nil)
	if err != nil {
		t.Fatalf("Reschedule failed: %v", err)
	}
	if replacement.RescheduledFrom == nil || *replacement.RescheduledFrom != "occ1" {
		t.Errorf("expected RescheduledFrom=occ1, got %+v", replacement.RescheduledFrom)
	}
	if original := store.occurrences["occ1"]; original.Status != domain.OccurrenceRescheduled {
		t.Errorf("original status = %q, want rescheduled", original.Status)
	}
}

func activeCourseHours(store *fakeOccurrenceStore, courseID string) time.Duration {
	var total time.Duration
	for _, o := range store.occurrences {
		if o.CourseID != courseID || o.Superseded() {
			continue
		}
		total += o.Duration()
	}
	return total
}

func TestCancelThenReschedule_PreservesCourseHourTotal(t *testing.T) {
	mgr, store := testManager()
	occ := baseOccurrence()
	store.occurrences[occ.ID] = occ
	store.scheduleOf[occ.ID] = "sched1"

	before := activeCourseHours(store, occ.CourseID)

	cancelled, err := mgr.Cancel(context.Background(), occ.ID, "instructor illness")
	if err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	if cancelled.Status != domain.OccurrenceCancelled {
		t.Fatalf("expected cancelled status, got %q", cancelled.Status)
	}
	if got := activeCourseHours(store, occ.CourseID); got != 0 {
		t.Fatalf("expected zero active hours right after cancel, got %v", got)
	}

	newDate := time.Date(2025, 9, 15, 10, 0, 0, 0, time.UTC)
	newStart := newDate
	newEnd := newStart.Add(occ.Duration())

	replacement, err := mgr.Reschedule(context.Background(), occ.ID, newDate, newStart, newEnd, nil, nil)
	if err != nil {
		t.Fatalf("Reschedule of a cancelled occurrence failed: %v", err)
	}
	if replacement.RescheduledFrom == nil || *replacement.RescheduledFrom != occ.ID {
		t.Errorf("expected replacement.RescheduledFrom=%s, got %+v", occ.ID, replacement.RescheduledFrom)
	}
	if original := store.occurrences[occ.ID]; original.Status != domain.OccurrenceRescheduled {
		t.Errorf("original status = %q, want rescheduled", original.Status)
	}

	after := activeCourseHours(store, occ.CourseID)
	if after != before {
		t.Errorf("course hour total changed across cancel+reschedule round trip: before=%v after=%v", before, after)
	}

	if _, err := mgr.Reschedule(context.Background(), occ.ID, newDate.AddDate(0, 0, 1), newStart.AddDate(0, 0, 1), newEnd.AddDate(0, 0, 1), nil, nil); err == nil {
		t.Error("expected rescheduling an already-rescheduled occurrence to fail")
	}
}

func TestReschedule_RejectsRoomConflict(t *testing.T) {
	mgr, store := testManager()
	occ1 := baseOccurrence()
	store.occurrences[occ1.ID] = occ1
	store.scheduleOf[occ1.ID] = "sched1"

	occ2 := baseOccurrence()
	occ2.ID = "occ2"
	occ2.ActualDate = time.Date(2025, 9, 8, 8, 0, 0, 0, time.UTC)
	occ2.Start = occ2.ActualDate
	occ2.End = occ2.Start.Add(90 * time.Minute)
	store.occurrences[occ2.ID] = occ2
	store.scheduleOf[occ2.ID] = "sched1"

	_, err := mgr.Reschedule(context.Background(), "occ1", occ2.ActualDate, occ2.Start, occ2.End, nil, nil)
	if !errors.Is(err, apperrors.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestModify_SetsModificationFlags(t *testing.T) {
	mgr, store := testManager()
	occ := baseOccurrence()
	store.occurrences[occ.ID] = occ
	store.scheduleOf[occ.ID] = "sched1"

	newRoom := "room2"
	updated, err := mgr.Modify(context.Background(), "occ1", Modification{RoomID: &newRoom})
	if err != nil {
		t.Fatalf("Modify failed: %v", err)
	}
	if !updated.Modifications.RoomModified {
		t.Error("expected RoomModified = true")
	}
	if updated.Status != domain.OccurrenceModified {
		t.Errorf("Status = %q, want modified", updated.Status)
	}
}

func TestModify_RejectsCancelledOccurrence(t *testing.T) {
	mgr, store := testManager()
	occ := baseOccurrence()
	occ.Status = domain.OccurrenceCancelled
	store.occurrences[occ.ID] = occ
	store.scheduleOf[occ.ID] = "sched1"

	newRoom := "room2"
	_, err := mgr.Modify(context.Background(), "occ1", Modification{RoomID: &newRoom})
	var perr *apperrors.PreconditionError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PreconditionError, got %v", err)
	}
}
