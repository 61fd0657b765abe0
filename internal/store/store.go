// Package store declares the read and write contracts the generator and
// evaluator need against persisted entities, generalizing the teacher's
// per-entity repository interfaces (persistence.UserRepository,
// persistence.RoomRepository, ...) from its meeting-scheduler domain to
// this one's Course/Instructor/Room/TimeSlot/Class/Schedule entities.
package store

import (
	"context"
	"time"

	"github.com/flashcoder237/campus-timetable-engine/internal/domain"
)

// CourseStore exposes the course catalogue.
type CourseStore interface {
	GetCourse(ctx context.Context, id string) (domain.Course, error)
	ListCoursesForClass(ctx context.Context, classID string) ([]domain.Course, error)
	CreateCourse(ctx context.Context, course domain.Course) error
	UpdateCourse(ctx context.Context, course domain.Course) error
}

// InstructorStore exposes the instructor directory.
type InstructorStore interface {
	GetInstructor(ctx context.Context, id string) (domain.Instructor, error)
	ListInstructors(ctx context.Context) ([]domain.Instructor, error)
	CreateInstructor(ctx context.Context, instructor domain.Instructor) error
	UpdateInstructor(ctx context.Context, instructor domain.Instructor) error
}

// RoomStore exposes the room catalogue.
type RoomStore interface {
	GetRoom(ctx context.Context, id string) (domain.Room, error)
	ListRooms(ctx context.Context) ([]domain.Room, error)
	CreateRoom(ctx context.Context, room domain.Room) error
	UpdateRoom(ctx context.Context, room domain.Room) error
}

// TimeSlotStore exposes the institution's fixed timetable grid.
type TimeSlotStore interface {
	ListTimeSlots(ctx context.Context) ([]domain.TimeSlot, error)
	CreateTimeSlot(ctx context.Context, slot domain.TimeSlot) error
}

// ClassStore exposes class rosters and their course requirements.
type ClassStore interface {
	GetClass(ctx context.Context, id string) (domain.Class, error)
	ListClasses(ctx context.Context) ([]domain.Class, error)
	CreateClass(ctx context.Context, class domain.Class) error
}

// ScheduleFilter narrows ListSchedules queries, generalizing
// persistence.ScheduleFilter's participant/date-range shape to class and
// status filters.
type ScheduleFilter struct {
	ClassID       string
	AcademicPeriod string
	Status        *domain.PublicationStatus
}

// ScheduleStore persists generated Schedule headers (without their
// templates and occurrences, which are owned by OccurrenceStore).
type ScheduleStore interface {
	CreateSchedule(ctx context.Context, schedule domain.Schedule) error
	UpdateSchedule(ctx context.Context, schedule domain.Schedule) error
	GetSchedule(ctx context.Context, id string) (domain.Schedule, error)
	ListSchedules(ctx context.Context, filter ScheduleFilter) ([]domain.Schedule, error)
	DeleteSchedule(ctx context.Context, id string) error
}

// OccurrenceStore persists the templates and occurrences a generation run
// produces, and supports the partial-regeneration and modification
// operations of spec §4.5 and §6.
type OccurrenceStore interface {
	ListOccurrencesForSchedule(ctx context.Context, scheduleID string) ([]domain.Occurrence, error)
	// ListExistingOccurrences returns every committed, non-cancelled
	// occurrence across all schedules whose actual date falls within
	// [from, to] (spec §6's
	// listExistingOccurrences(window)), so the generator's allocation index
	// can be preloaded with the full system's committed state and never
	// double-book a room/instructor another class has already claimed.
	ListExistingOccurrences(ctx context.Context, from, to time.Time) ([]domain.Occurrence, error)
	// GetOccurrence loads a single occurrence by id along with the id of the
	// schedule that owns it, since cancelOccurrence/rescheduleOccurrence/
	// modifyOccurrence (spec §6) address occurrences directly without the
	// caller naming a schedule.
	GetOccurrence(ctx context.Context, id string) (domain.Occurrence, string, error)
	BulkWriteSessionsAndOccurrences(ctx context.Context, scheduleID string, templates []domain.SessionTemplate, occurrences []domain.Occurrence) error
	DeleteOccurrencesIn(ctx context.Context, scheduleID string, from, to time.Time) error
	UpdateOccurrence(ctx context.Context, occurrence domain.Occurrence) error
}
