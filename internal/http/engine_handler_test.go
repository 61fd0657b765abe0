package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/flashcoder237/campus-timetable-engine/internal/apperrors"
	"github.com/flashcoder237/campus-timetable-engine/internal/domain"
	"github.com/flashcoder237/campus-timetable-engine/internal/evaluator"
	"github.com/flashcoder237/campus-timetable-engine/internal/generator"
	"github.com/flashcoder237/campus-timetable-engine/internal/occurrences"
	"github.com/flashcoder237/campus-timetable-engine/internal/store"
)

type fakeGenerator struct {
	result generator.Result
	err    error
	called string
}

func (f *fakeGenerator) Generate(ctx context.Context, classID string, cfg domain.GenerationConfig) (generator.Result, error) {
	f.called = classID
	return f.result, f.err
}

type fakeOccurrenceService struct {
	occ domain.Occurrence
	err error
}

func (f *fakeOccurrenceService) Cancel(ctx context.Context, occurrenceID, reason string) (domain.Occurrence, error) {
	return f.occ, f.err
}
func (f *fakeOccurrenceService) Reschedule(ctx context.Context, occurrenceID string, newDate, newStart, newEnd time.Time, newRoomID, newInstructorID *string) (domain.Occurrence, error) {
	return f.occ, f.err
}
func (f *fakeOccurrenceService) Modify(ctx context.Context, occurrenceID string, mod occurrences.Modification) (domain.Occurrence, error) {
	return f.occ, f.err
}

type fakeScheduleStore struct {
	schedules map[string]domain.Schedule
}

func (f *fakeScheduleStore) CreateSchedule(ctx context.Context, s domain.Schedule) error { return nil }
func (f *fakeScheduleStore) UpdateSchedule(ctx context.Context, s domain.Schedule) error { return nil }
func (f *fakeScheduleStore) GetSchedule(ctx context.Context, id string) (domain.Schedule, error) {
	s, ok := f.schedules[id]
	if !ok {
		return domain.Schedule{}, errors.New("not found")
	}
	return s, nil
}
func (f *fakeScheduleStore) ListSchedules(ctx context.Context, filter store.ScheduleFilter) ([]domain.Schedule, error) {
	return nil, nil
}
func (f *fakeScheduleStore) DeleteSchedule(ctx context.Context, id string) error { return nil }

type fakeOccurrenceStore struct {
	byID       map[string]domain.Occurrence
	bySchedule map[string][]domain.Occurrence
}

func (f *fakeOccurrenceStore) ListOccurrencesForSchedule(ctx context.Context, scheduleID string) ([]domain.Occurrence, error) {
	return f.bySchedule[scheduleID], nil
}
func (f *fakeOccurrenceStore) ListExistingOccurrences(ctx context.Context, from, to time.Time) ([]domain.Occurrence, error) {
	var all []domain.Occurrence
	for _, occs := range f.bySchedule {
		all = append(all, occs...)
	}
	return all, nil
}
func (f *fakeOccurrenceStore) GetOccurrence(ctx context.Context, id string) (domain.Occurrence, string, error) {
	o, ok := f.byID[id]
	if !ok {
		return domain.Occurrence{}, "", errors.New("not found")
	}
	return o, "sched1", nil
}
func (f *fakeOccurrenceStore) BulkWriteSessionsAndOccurrences(ctx context.Context, scheduleID string, templates []domain.SessionTemplate, occs []domain.Occurrence) error {
	return nil
}
func (f *fakeOccurrenceStore) DeleteOccurrencesIn(ctx context.Context, scheduleID string, from, to time.Time) error {
	return nil
}
func (f *fakeOccurrenceStore) UpdateOccurrence(ctx context.Context, occ domain.Occurrence) error {
	return nil
}

type fakeRoomStore struct{ rooms []domain.Room }

func (f *fakeRoomStore) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	return domain.Room{}, errors.New("not found")
}
func (f *fakeRoomStore) ListRooms(ctx context.Context) ([]domain.Room, error) { return f.rooms, nil }
func (f *fakeRoomStore) CreateRoom(ctx context.Context, r domain.Room) error  { return nil }
func (f *fakeRoomStore) UpdateRoom(ctx context.Context, r domain.Room) error  { return nil }

type fakeInstructorStore struct{ instructors []domain.Instructor }

func (f *fakeInstructorStore) GetInstructor(ctx context.Context, id string) (domain.Instructor, error) {
	return domain.Instructor{}, errors.New("not found")
}
func (f *fakeInstructorStore) ListInstructors(ctx context.Context) ([]domain.Instructor, error) {
	return f.instructors, nil
}
func (f *fakeInstructorStore) CreateInstructor(ctx context.Context, i domain.Instructor) error { return nil }
func (f *fakeInstructorStore) UpdateInstructor(ctx context.Context, i domain.Instructor) error { return nil }

type fakeCourseStore struct{ courses []domain.Course }

func (f *fakeCourseStore) GetCourse(ctx context.Context, id string) (domain.Course, error) {
	return domain.Course{}, errors.New("not found")
}
func (f *fakeCourseStore) ListCoursesForClass(ctx context.Context, classID string) ([]domain.Course, error) {
	return f.courses, nil
}
func (f *fakeCourseStore) CreateCourse(ctx context.Context, c domain.Course) error { return nil }
func (f *fakeCourseStore) UpdateCourse(ctx context.Context, c domain.Course) error { return nil }

type fakeClassStore struct{ classes map[string]domain.Class }

func (f *fakeClassStore) GetClass(ctx context.Context, id string) (domain.Class, error) {
	c, ok := f.classes[id]
	if !ok {
		return domain.Class{}, errors.New("not found")
	}
	return c, nil
}
func (f *fakeClassStore) ListClasses(ctx context.Context) ([]domain.Class, error) { return nil, nil }
func (f *fakeClassStore) CreateClass(ctx context.Context, c domain.Class) error   { return nil }

func testHandler() (*EngineHandler, *fakeGenerator, *fakeOccurrenceService, *fakeOccurrenceStore) {
	gen := &fakeGenerator{}
	occSvc := &fakeOccurrenceService{}
	schedules := &fakeScheduleStore{schedules: map[string]domain.Schedule{
		"sched1": {ID: "sched1", ClassID: "class1"},
	}}
	occStore := &fakeOccurrenceStore{byID: map[string]domain.Occurrence{}, bySchedule: map[string][]domain.Occurrence{}}
	rooms := &fakeRoomStore{}
	instructors := &fakeInstructorStore{}
	courses := &fakeCourseStore{}
	classes := &fakeClassStore{classes: map[string]domain.Class{
		"class1": {ID: "class1", StudentCount: 30},
	}}

	h := NewEngineHandler(gen, evaluator.New(), occSvc, schedules, occStore, rooms, instructors, courses, classes)
	return h, gen, occSvc, occStore
}

func TestGenerate_CallsGeneratorAndRendersResult(t *testing.T) {
	h, gen, _, _ := testHandler()
	gen.result = generator.Result{Schedule: domain.Schedule{ID: "sched1"}}

	router := NewRouter(RouterConfig{Engine: h})
	body := bytes.NewBufferString(`{"start_date":"2025-09-01T00:00:00Z","end_date":"2025-12-01T00:00:00Z"}`)
	req := httptest.NewRequest("POST", "/classes/class1/generate", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 201 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if gen.called != "class1" {
		t.Errorf("generator called with class id %q, want class1", gen.called)
	}
	var out generationResultDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Success {
		t.Errorf("expected success=true, got %+v", out)
	}
}

func TestEvaluate_ReturnsScoreReport(t *testing.T) {
	h, _, _, _ := testHandler()
	router := NewRouter(RouterConfig{Engine: h})

	req := httptest.NewRequest("GET", "/schedules/sched1/evaluate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out scoreReportDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
}

func TestEvaluate_UnknownScheduleIsNotFound(t *testing.T) {
	h, _, _, _ := testHandler()
	router := NewRouter(RouterConfig{Engine: h})

	req := httptest.NewRequest("GET", "/schedules/missing/evaluate", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 404 {
		t.Fatalf("status = %d, want 404, body = %s", rec.Code, rec.Body.String())
	}
}

func TestDetectConflicts_EmptyScheduleHasNoConflicts(t *testing.T) {
	h, _, _, _ := testHandler()
	router := NewRouter(RouterConfig{Engine: h})

	req := httptest.NewRequest("GET", "/schedules/sched1/conflicts", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out conflictsResponseDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Conflicts) != 0 {
		t.Errorf("expected no conflicts, got %+v", out.Conflicts)
	}
	if out.RiskScore != 0 {
		t.Errorf("expected risk score 0, got %d", out.RiskScore)
	}
}

func TestCancel_RendersUpdatedOccurrence(t *testing.T) {
	h, _, occSvc, _ := testHandler()
	occSvc.occ = domain.Occurrence{ID: "occ1", Status: domain.OccurrenceCancelled, CancelReason: "closed"}

	router := NewRouter(RouterConfig{Engine: h})
	body := bytes.NewBufferString(`{"reason":"closed"}`)
	req := httptest.NewRequest("POST", "/occurrences/occ1/cancel", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var out occurrenceDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Status != string(domain.OccurrenceCancelled) {
		t.Errorf("status = %q", out.Status)
	}
}

func TestCancel_ServiceConflictMapsTo409(t *testing.T) {
	h, _, occSvc, _ := testHandler()
	occSvc.err = apperrors.ErrConflict

	router := NewRouter(RouterConfig{Engine: h})
	body := bytes.NewBufferString(`{"reason":"x"}`)
	req := httptest.NewRequest("POST", "/occurrences/occ1/cancel", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 409 {
		t.Fatalf("status = %d, want 409, body = %s", rec.Code, rec.Body.String())
	}
}

func TestReschedule_CreatesOccurrence(t *testing.T) {
	h, _, occSvc, _ := testHandler()
	occSvc.occ = domain.Occurrence{ID: "occ2", Status: domain.OccurrenceScheduled}

	router := NewRouter(RouterConfig{Engine: h})
	body := bytes.NewBufferString(`{"new_date":"2025-09-08T00:00:00Z","new_start":"2025-09-08T10:00:00Z","new_end":"2025-09-08T11:30:00Z"}`)
	req := httptest.NewRequest("POST", "/occurrences/occ1/reschedule", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 201 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestModify_UpdatesOccurrence(t *testing.T) {
	h, _, occSvc, _ := testHandler()
	occSvc.occ = domain.Occurrence{ID: "occ1", Status: domain.OccurrenceModified}

	router := NewRouter(RouterConfig{Engine: h})
	body := bytes.NewBufferString(`{"room":"room2"}`)
	req := httptest.NewRequest("PATCH", "/occurrences/occ1", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestModify_WrongMethodIsNotAllowed(t *testing.T) {
	h, _, _, _ := testHandler()
	router := NewRouter(RouterConfig{Engine: h})

	req := httptest.NewRequest("POST", "/occurrences/occ1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != 405 {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
