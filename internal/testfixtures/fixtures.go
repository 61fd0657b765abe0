package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/flashcoder237/campus-timetable-engine/internal/domain"
)

var (
	courseCounter     uint64
	instructorCounter uint64
	roomCounter       uint64
	timeSlotCounter   uint64
	classCounter      uint64
	scheduleCounter   uint64
	occurrenceCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ----------------------------- Course fixtures -----------------------------

// CourseOption configures the generated course fixture.
type CourseOption func(*domain.Course)

// NewCourseFixture returns a deterministic course fixture with optional overrides.
func NewCourseFixture(opts ...CourseOption) domain.Course {
	idx := atomic.AddUint64(&courseCounter, 1)
	course := domain.Course{
		ID:                 fmt.Sprintf("course-%03d", idx),
		Code:               fmt.Sprintf("CRS%03d", idx),
		HoursByType:        map[domain.SessionType]float64{domain.SessionCM: 20, domain.SessionTD: 10},
		TotalHours:         30,
		DefaultWeeklyHours: 3,
		MinSessionsPerWeek: 1,
		MaxSessionsPerWeek: 3,
		MinRoomCapacity:    20,
	}
	for _, opt := range opts {
		opt(&course)
	}
	return course
}

// WithCourseID overrides the generated course ID.
func WithCourseID(id string) CourseOption {
	return func(c *domain.Course) { c.ID = id }
}

// WithCourseHours overrides the hours-by-session-type map.
func WithCourseHours(hours map[domain.SessionType]float64) CourseOption {
	return func(c *domain.Course) { c.HoursByType = hours }
}

// WithCourseEquipment sets the course's room equipment requirements.
func WithCourseEquipment(eq domain.EquipmentRequirements) CourseOption {
	return func(c *domain.Course) { c.Equipment = eq }
}

// WithCourseMinRoomCapacity overrides the minimum acceptable room capacity.
func WithCourseMinRoomCapacity(capacity int) CourseOption {
	return func(c *domain.Course) { c.MinRoomCapacity = capacity }
}

// WithCoursePriority sets the course's scheduling priority.
func WithCoursePriority(priority domain.Priority) CourseOption {
	return func(c *domain.Course) { c.Priority = &priority }
}

// -------------------------- Instructor fixtures ----------------------------

// InstructorOption configures the generated instructor fixture.
type InstructorOption func(*domain.Instructor)

// NewInstructorFixture returns a deterministic instructor fixture with optional overrides.
func NewInstructorFixture(opts ...InstructorOption) domain.Instructor {
	idx := atomic.AddUint64(&instructorCounter, 1)
	instructor := domain.Instructor{
		ID:              fmt.Sprintf("instructor-%03d", idx),
		DisplayName:     fmt.Sprintf("Instructor %03d", idx),
		MaxHoursPerWeek: 18,
	}
	for _, opt := range opts {
		opt(&instructor)
	}
	return instructor
}

// WithInstructorID overrides the generated instructor ID.
func WithInstructorID(id string) InstructorOption {
	return func(i *domain.Instructor) { i.ID = id }
}

// WithInstructorMaxHours overrides the weekly hour ceiling.
func WithInstructorMaxHours(hours float64) InstructorOption {
	return func(i *domain.Instructor) { i.MaxHoursPerWeek = hours }
}

// WithInstructorUnavailability appends an unavailability window.
func WithInstructorUnavailability(u domain.Unavailability) InstructorOption {
	return func(i *domain.Instructor) { i.Unavailabilities = append(i.Unavailabilities, u) }
}

// ----------------------------- Room fixtures -------------------------------

// RoomOption configures the generated room fixture.
type RoomOption func(*domain.Room)

// NewRoomFixture returns a deterministic room fixture with optional overrides.
func NewRoomFixture(opts ...RoomOption) domain.Room {
	idx := atomic.AddUint64(&roomCounter, 1)
	room := domain.Room{
		ID:       fmt.Sprintf("room-%03d", idx),
		Code:     fmt.Sprintf("R%03d", idx),
		Capacity: 30,
		Active:   true,
	}
	for _, opt := range opts {
		opt(&room)
	}
	return room
}

// WithRoomID overrides the generated room ID.
func WithRoomID(id string) RoomOption {
	return func(r *domain.Room) { r.ID = id }
}

// WithRoomCapacity overrides the generated capacity.
func WithRoomCapacity(capacity int) RoomOption {
	return func(r *domain.Room) { r.Capacity = capacity }
}

// WithRoomEquipment sets the room's projector/computer/laboratory flags.
func WithRoomEquipment(projector, computer, laboratory bool) RoomOption {
	return func(r *domain.Room) {
		r.HasProjector = projector
		r.HasComputer = computer
		r.IsLaboratory = laboratory
	}
}

// WithRoomInactive marks the generated room inactive.
func WithRoomInactive() RoomOption {
	return func(r *domain.Room) { r.Active = false }
}

// --------------------------- TimeSlot fixtures -----------------------------

// TimeSlotOption configures the generated time slot fixture.
type TimeSlotOption func(*domain.TimeSlot)

// NewTimeSlotFixture returns a deterministic weekday time slot.
func NewTimeSlotFixture(opts ...TimeSlotOption) domain.TimeSlot {
	idx := atomic.AddUint64(&timeSlotCounter, 1)
	start := time.Date(0, 1, 1, 8, 0, 0, 0, time.UTC)
	slot := domain.TimeSlot{
		ID:      fmt.Sprintf("slot-%03d", idx),
		Weekday: time.Monday,
		Start:   start,
		End:     start.Add(90 * time.Minute),
		Active:  true,
	}
	for _, opt := range opts {
		opt(&slot)
	}
	return slot
}

// WithTimeSlotID overrides the generated slot ID.
func WithTimeSlotID(id string) TimeSlotOption {
	return func(s *domain.TimeSlot) { s.ID = id }
}

// WithTimeSlotWeekday overrides the generated weekday.
func WithTimeSlotWeekday(day time.Weekday) TimeSlotOption {
	return func(s *domain.TimeSlot) { s.Weekday = day }
}

// WithTimeSlotWindow overrides the generated start/end time-of-day.
func WithTimeSlotWindow(start, end time.Time) TimeSlotOption {
	return func(s *domain.TimeSlot) {
		s.Start = start
		s.End = end
	}
}

// ----------------------------- Class fixtures ------------------------------

// ClassOption configures the generated class fixture.
type ClassOption func(*domain.Class)

// NewClassFixture returns a deterministic class fixture with optional overrides.
func NewClassFixture(opts ...ClassOption) domain.Class {
	idx := atomic.AddUint64(&classCounter, 1)
	class := domain.Class{
		ID:           fmt.Sprintf("class-%03d", idx),
		Code:         fmt.Sprintf("L%03d", idx),
		Level:        "L1",
		StudentCount: 35,
	}
	for _, opt := range opts {
		opt(&class)
	}
	return class
}

// WithClassID overrides the generated class ID.
func WithClassID(id string) ClassOption {
	return func(c *domain.Class) { c.ID = id }
}

// WithClassStudentCount overrides the generated student headcount.
func WithClassStudentCount(count int) ClassOption {
	return func(c *domain.Class) { c.StudentCount = count }
}

// WithClassRequirement appends a course requirement to the class.
func WithClassRequirement(courseID string, hoursByType map[domain.SessionType]float64) ClassOption {
	return func(c *domain.Class) {
		c.Requirements = append(c.Requirements, domain.ClassCourseRequirement{
			CourseID:    courseID,
			HoursByType: hoursByType,
		})
	}
}

// --------------------------- Schedule fixtures -----------------------------

// ScheduleOption configures the generated schedule fixture.
type ScheduleOption func(*domain.Schedule)

// NewScheduleFixture returns a deterministic schedule fixture with optional overrides.
func NewScheduleFixture(opts ...ScheduleOption) domain.Schedule {
	idx := atomic.AddUint64(&scheduleCounter, 1)
	schedule := domain.Schedule{
		ID:             fmt.Sprintf("schedule-%03d", idx),
		AcademicPeriod: "2025-2026-S1",
		ClassID:        fmt.Sprintf("class-%03d", idx),
		Status:         domain.StatusDraft,
		Config:         domain.DefaultGenerationConfig(),
	}
	for _, opt := range opts {
		opt(&schedule)
	}
	return schedule
}

// WithScheduleID overrides the generated schedule ID.
func WithScheduleID(id string) ScheduleOption {
	return func(s *domain.Schedule) { s.ID = id }
}

// WithScheduleClassID sets the owning class ID.
func WithScheduleClassID(classID string) ScheduleOption {
	return func(s *domain.Schedule) { s.ClassID = classID }
}

// WithScheduleStatus overrides the publication status.
func WithScheduleStatus(status domain.PublicationStatus) ScheduleOption {
	return func(s *domain.Schedule) { s.Status = status }
}

// WithScheduleConfig overrides the generation config used to produce the schedule.
func WithScheduleConfig(cfg domain.GenerationConfig) ScheduleOption {
	return func(s *domain.Schedule) { s.Config = cfg }
}

// -------------------------- Occurrence fixtures ----------------------------

// OccurrenceOption configures the generated occurrence fixture.
type OccurrenceOption func(*domain.Occurrence)

// NewOccurrenceFixture returns a deterministic occurrence fixture anchored on
// ReferenceTime, with optional overrides.
func NewOccurrenceFixture(opts ...OccurrenceOption) domain.Occurrence {
	idx := atomic.AddUint64(&occurrenceCounter, 1)
	start := referenceTime.Truncate(24 * time.Hour).Add(time.Duration(idx) * 24 * time.Hour).Add(8 * time.Hour)
	occurrence := domain.Occurrence{
		ID:          fmt.Sprintf("occurrence-%03d", idx),
		TemplateID:  fmt.Sprintf("template-%03d", idx),
		CourseID:    fmt.Sprintf("course-%03d", idx),
		SessionType: domain.SessionCM,
		ActualDate:  start,
		Start:       start,
		End:         start.Add(90 * time.Minute),
		RoomID:      fmt.Sprintf("room-%03d", idx),
		Status:      domain.OccurrenceScheduled,
	}
	for _, opt := range opts {
		opt(&occurrence)
	}
	return occurrence
}

// WithOccurrenceID overrides the generated occurrence ID.
func WithOccurrenceID(id string) OccurrenceOption {
	return func(o *domain.Occurrence) { o.ID = id }
}

// WithOccurrenceCourse sets the course/session type pair.
func WithOccurrenceCourse(courseID string, sessionType domain.SessionType) OccurrenceOption {
	return func(o *domain.Occurrence) {
		o.CourseID = courseID
		o.SessionType = sessionType
	}
}

// WithOccurrenceWindow overrides the actual date and start/end instants.
func WithOccurrenceWindow(actualDate, start, end time.Time) OccurrenceOption {
	return func(o *domain.Occurrence) {
		o.ActualDate = actualDate
		o.Start = start
		o.End = end
	}
}

// WithOccurrenceRoom overrides the assigned room.
func WithOccurrenceRoom(roomID string) OccurrenceOption {
	return func(o *domain.Occurrence) { o.RoomID = roomID }
}

// WithOccurrenceInstructor overrides the assigned instructor.
func WithOccurrenceInstructor(instructorID string) OccurrenceOption {
	return func(o *domain.Occurrence) { o.InstructorID = instructorID }
}

// WithOccurrenceStatus overrides the lifecycle status.
func WithOccurrenceStatus(status domain.OccurrenceStatus) OccurrenceOption {
	return func(o *domain.Occurrence) { o.Status = status }
}
