package generator

import (
	"context"
	"testing"
	"time"

	"github.com/flashcoder237/campus-timetable-engine/internal/domain"
	"github.com/flashcoder237/campus-timetable-engine/internal/store"
)

type fakeStores struct {
	courses     []domain.Course
	instructors []domain.Instructor
	rooms       []domain.Room
	timeSlots   []domain.TimeSlot
	classes     map[string]domain.Class
	occurrences []domain.Occurrence

	createdSchedules []domain.Schedule
	writtenTemplates []domain.SessionTemplate
}

func (f *fakeStores) GetCourse(ctx context.Context, id string) (domain.Course, error) {
	for _, c := range f.courses {
		if c.ID == id {
			return c, nil
		}
	}
	return domain.Course{}, errNotFound
}
func (f *fakeStores) ListCoursesForClass(ctx context.Context, classID string) ([]domain.Course, error) {
	return f.courses, nil
}
func (f *fakeStores) CreateCourse(ctx context.Context, course domain.Course) error { return nil }
func (f *fakeStores) UpdateCourse(ctx context.Context, course domain.Course) error { return nil }

func (f *fakeStores) GetInstructor(ctx context.Context, id string) (domain.Instructor, error) {
	for _, i := range f.instructors {
		if i.ID == id {
			return i, nil
		}
	}
	return domain.Instructor{}, errNotFound
}
func (f *fakeStores) ListInstructors(ctx context.Context) ([]domain.Instructor, error) {
	return f.instructors, nil
}
func (f *fakeStores) CreateInstructor(ctx context.Context, instructor domain.Instructor) error {
	return nil
}
func (f *fakeStores) UpdateInstructor(ctx context.Context, instructor domain.Instructor) error {
	return nil
}

func (f *fakeStores) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	for _, r := range f.rooms {
		if r.ID == id {
			return r, nil
		}
	}
	return domain.Room{}, errNotFound
}
func (f *fakeStores) ListRooms(ctx context.Context) ([]domain.Room, error) { return f.rooms, nil }
func (f *fakeStores) CreateRoom(ctx context.Context, room domain.Room) error { return nil }
func (f *fakeStores) UpdateRoom(ctx context.Context, room domain.Room) error { return nil }

func (f *fakeStores) ListTimeSlots(ctx context.Context) ([]domain.TimeSlot, error) {
	return f.timeSlots, nil
}
func (f *fakeStores) CreateTimeSlot(ctx context.Context, slot domain.TimeSlot) error { return nil }

func (f *fakeStores) GetClass(ctx context.Context, id string) (domain.Class, error) {
	c, ok := f.classes[id]
	if !ok {
		return domain.Class{}, errNotFound
	}
	return c, nil
}
func (f *fakeStores) ListClasses(ctx context.Context) ([]domain.Class, error) {
	out := make([]domain.Class, 0, len(f.classes))
	for _, c := range f.classes {
		out = append(out, c)
	}
	return out, nil
}
func (f *fakeStores) CreateClass(ctx context.Context, class domain.Class) error { return nil }

func (f *fakeStores) CreateSchedule(ctx context.Context, schedule domain.Schedule) error {
	f.createdSchedules = append(f.createdSchedules, schedule)
	return nil
}
func (f *fakeStores) UpdateSchedule(ctx context.Context, schedule domain.Schedule) error { return nil }
func (f *fakeStores) GetSchedule(ctx context.Context, id string) (domain.Schedule, error) {
	return domain.Schedule{}, errNotFound
}
func (f *fakeStores) ListSchedules(ctx context.Context, filter store.ScheduleFilter) ([]domain.Schedule, error) {
	return nil, nil
}
func (f *fakeStores) DeleteSchedule(ctx context.Context, id string) error { return nil }

func (f *fakeStores) ListOccurrencesForSchedule(ctx context.Context, scheduleID string) ([]domain.Occurrence, error) {
	return f.occurrences, nil
}
func (f *fakeStores) ListExistingOccurrences(ctx context.Context, from, to time.Time) ([]domain.Occurrence, error) {
	var out []domain.Occurrence
	for _, o := range f.occurrences {
		if o.Status == domain.OccurrenceCancelled {
			continue
		}
		if o.ActualDate.Before(from) || o.ActualDate.After(to) {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}
func (f *fakeStores) GetOccurrence(ctx context.Context, id string) (domain.Occurrence, string, error) {
	for _, o := range f.occurrences {
		if o.ID == id {
			return o, "schedule1", nil
		}
	}
	return domain.Occurrence{}, "", errNotFound
}
func (f *fakeStores) BulkWriteSessionsAndOccurrences(ctx context.Context, scheduleID string, templates []domain.SessionTemplate, occurrences []domain.Occurrence) error {
	f.writtenTemplates = append(f.writtenTemplates, templates...)
	f.occurrences = append(f.occurrences, occurrences...)
	return nil
}
func (f *fakeStores) DeleteOccurrencesIn(ctx context.Context, scheduleID string, from, to time.Time) error {
	return nil
}
func (f *fakeStores) UpdateOccurrence(ctx context.Context, occurrence domain.Occurrence) error {
	return nil
}

var errNotFound = errNotFoundError{}

type errNotFoundError struct{}

func (errNotFoundError) Error() string { return "not found" }

func testTimeSlots() []domain.TimeSlot {
	mk := func(id string, weekday time.Weekday, sh, sm, eh, em int) domain.TimeSlot {
		return domain.TimeSlot{
			ID:      id,
			Weekday: weekday,
			Start:   time.Date(0, 1, 1, sh, sm, 0, 0, time.UTC),
			End:     time.Date(0, 1, 1, eh, em, 0, 0, time.UTC),
			Active:  true,
		}
	}
	return []domain.TimeSlot{
		mk("slot-mon-0800", time.Monday, 8, 0, 9, 30),
		mk("slot-tue-1000", time.Tuesday, 10, 15, 11, 45),
		mk("slot-wed-1400", time.Wednesday, 14, 0, 15, 30),
		mk("slot-thu-1400", time.Thursday, 14, 0, 15, 30),
	}
}

func TestGenerate_ProducesOccurrencesAndCommits(t *testing.T) {
	course := domain.Course{
		ID:   "course-1",
		Code: "CS101",
		HoursByType: map[domain.SessionType]float64{
			domain.SessionCM: 1.5,
		},
		TotalHours:      1.5,
		MinRoomCapacity: 20,
	}
	room := domain.Room{ID: "room-1", Code: "A101", Capacity: 40, Active: true}
	instructor := domain.Instructor{ID: "instr-1", DisplayName: "Dr. A", MaxHoursPerWeek: 20}
	class := domain.Class{ID: "class-1", Code: "L1", StudentCount: 30}

	fakes := &fakeStores{
		courses:     []domain.Course{course},
		instructors: []domain.Instructor{instructor},
		rooms:       []domain.Room{room},
		timeSlots:   testTimeSlots(),
		classes:     map[string]domain.Class{"class-1": class},
	}

	gen := New(fakes, fakes, fakes, fakes, fakes, fakes, fakes, nil)

	cfg := domain.DefaultGenerationConfig()
	cfg.StartDate = time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	cfg.EndDate = time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	result, err := gen.Generate(context.Background(), "class-1", cfg)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(result.Schedule.Templates) == 0 {
		t.Fatal("expected at least one session template to be placed")
	}
	if len(fakes.createdSchedules) != 1 {
		t.Fatalf("expected schedule to be committed, got %d", len(fakes.createdSchedules))
	}
	if len(fakes.writtenTemplates) == 0 {
		t.Fatal("expected templates to be persisted via BulkWriteSessionsAndOccurrences")
	}
}

type fakeRecorder struct {
	calls      int
	classID    string
	risk       int
	bySeverity map[string]int
}

func (f *fakeRecorder) ObserveGeneration(classID string, elapsedSeconds float64, risk int, bySeverity map[string]int) {
	f.calls++
	f.classID = classID
	f.risk = risk
	f.bySeverity = bySeverity
}

func TestGenerate_ReportsMetricsWhenRecorderAttached(t *testing.T) {
	course := domain.Course{
		ID:   "course-1",
		Code: "CS101",
		HoursByType: map[domain.SessionType]float64{
			domain.SessionCM: 1.5,
		},
		TotalHours:      1.5,
		MinRoomCapacity: 20,
	}
	room := domain.Room{ID: "room-1", Code: "A101", Capacity: 40, Active: true}
	instructor := domain.Instructor{ID: "instr-1", DisplayName: "Dr. A", MaxHoursPerWeek: 20}
	class := domain.Class{ID: "class-1", Code: "L1", StudentCount: 30}

	fakes := &fakeStores{
		courses:     []domain.Course{course},
		instructors: []domain.Instructor{instructor},
		rooms:       []domain.Room{room},
		timeSlots:   testTimeSlots(),
		classes:     map[string]domain.Class{"class-1": class},
	}

	recorder := &fakeRecorder{}
	gen := New(fakes, fakes, fakes, fakes, fakes, fakes, fakes, nil).WithMetrics(recorder)

	cfg := domain.DefaultGenerationConfig()
	cfg.StartDate = time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	cfg.EndDate = time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	if _, err := gen.Generate(context.Background(), "class-1", cfg); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if recorder.calls != 1 {
		t.Fatalf("expected ObserveGeneration to be called once, got %d", recorder.calls)
	}
	if recorder.classID != "class-1" {
		t.Errorf("classID = %q, want class-1", recorder.classID)
	}
}

func TestGenerate_PreviewModeDoesNotCommit(t *testing.T) {
	course := domain.Course{
		ID:          "course-1",
		Code:        "CS101",
		HoursByType: map[domain.SessionType]float64{domain.SessionCM: 1.5},
		TotalHours:  1.5,
	}
	room := domain.Room{ID: "room-1", Code: "A101", Capacity: 40, Active: true}
	instructor := domain.Instructor{ID: "instr-1", DisplayName: "Dr. A", MaxHoursPerWeek: 20}
	class := domain.Class{ID: "class-1", Code: "L1", StudentCount: 30}

	fakes := &fakeStores{
		courses:     []domain.Course{course},
		instructors: []domain.Instructor{instructor},
		rooms:       []domain.Room{room},
		timeSlots:   testTimeSlots(),
		classes:     map[string]domain.Class{"class-1": class},
	}

	gen := New(fakes, fakes, fakes, fakes, fakes, fakes, fakes, nil)

	cfg := domain.DefaultGenerationConfig()
	cfg.StartDate = time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	cfg.EndDate = time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)
	cfg.PreviewMode = true

	_, err := gen.Generate(context.Background(), "class-1", cfg)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(fakes.createdSchedules) != 0 {
		t.Fatal("preview mode must not commit a schedule")
	}
}

func TestGenerate_ReportsUnplacedWhenNoRoomFits(t *testing.T) {
	course := domain.Course{
		ID:              "course-1",
		Code:            "CS101",
		HoursByType:     map[domain.SessionType]float64{domain.SessionCM: 1.5},
		TotalHours:      1.5,
		MinRoomCapacity: 500,
	}
	room := domain.Room{ID: "room-1", Code: "A101", Capacity: 40, Active: true}
	instructor := domain.Instructor{ID: "instr-1", DisplayName: "Dr. A", MaxHoursPerWeek: 20}
	class := domain.Class{ID: "class-1", Code: "L1", StudentCount: 30}

	fakes := &fakeStores{
		courses:     []domain.Course{course},
		instructors: []domain.Instructor{instructor},
		rooms:       []domain.Room{room},
		timeSlots:   testTimeSlots(),
		classes:     map[string]domain.Class{"class-1": class},
	}

	gen := New(fakes, fakes, fakes, fakes, fakes, fakes, fakes, nil)

	cfg := domain.DefaultGenerationConfig()
	cfg.StartDate = time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	cfg.EndDate = time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC)

	result, err := gen.Generate(context.Background(), "class-1", cfg)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if len(result.Unplaced) == 0 {
		t.Fatal("expected an unplaced requirement when no room satisfies capacity")
	}
}
