// Package domain holds the engine-facing value types for the timetabling
// core: courses, instructors, rooms, time slots, classes, session templates
// and their dated occurrences.
package domain

import "time"

// SessionType is a pedagogical session kind.
type SessionType string

const (
	// SessionCM is a lecture (cours magistral).
	SessionCM SessionType = "CM"
	// SessionTD is a tutorial (travaux dirigés).
	SessionTD SessionType = "TD"
	// SessionTP is a lab (travaux pratiques).
	SessionTP SessionType = "TP"
	// SessionTPE is supervised personal work (travail personnel encadré).
	SessionTPE SessionType = "TPE"
)

// SessionTypes lists every pedagogical session type in pipeline order.
var SessionTypes = []SessionType{SessionCM, SessionTD, SessionTP, SessionTPE}

// Priority is a course scheduling priority, 1=high .. 5=low.
type Priority int

// EquipmentRequirements captures the room facilities a course needs.
type EquipmentRequirements struct {
	RequiresProjector  bool
	RequiresComputer   bool
	RequiresLaboratory bool
}

// Course is an opaque, externally-managed course definition.
type Course struct {
	ID                 string
	Code               string
	HoursByType        map[SessionType]float64
	TotalHours         float64
	DefaultWeeklyHours float64
	MinSessionsPerWeek int
	MaxSessionsPerWeek int
	MinRoomCapacity    int
	Equipment          EquipmentRequirements
	Difficulty         *float64
	Priority           *Priority
	ExcludedTimes      []TimeSlotRef
	// PreferredInstructorID, if set, is the instructor this course is
	// habitually assigned to. The generator uses it only to weigh
	// difficulty ordering (§4.5 Phase 2); it does not pin placement to
	// that instructor.
	PreferredInstructorID string
}

// TimeSlotRef identifies a time slot by id, used for course exclusions.
type TimeSlotRef struct {
	TimeSlotID string
}

// Unavailability is either a recurring weekly window or a date-range interval
// during which an instructor cannot teach.
type Unavailability struct {
	Weekday  *time.Weekday // set for recurring unavailability
	Start    time.Time     // time-of-day for recurring, absolute for range
	End      time.Time
	RangeFrom *time.Time // set for date-range unavailability
	RangeTo   *time.Time
}

// Instructor is an externally-managed instructor profile.
type Instructor struct {
	ID                string
	DisplayName       string
	DepartmentID      string
	MaxHoursPerWeek   float64
	PreferredDays     map[time.Weekday]bool
	Unavailabilities  []Unavailability
}

// Room is an externally-managed physical room.
type Room struct {
	ID            string
	Code          string
	Capacity      int
	HasProjector  bool
	HasComputer   bool
	IsLaboratory  bool
	Active        bool
}

// TimeSlot is a fixed weekday/time window in the planning grid.
type TimeSlot struct {
	ID       string
	Weekday  time.Weekday
	Start    time.Time // time-of-day, date component ignored
	End      time.Time
	Active   bool
}

// Duration returns the slot's length.
func (t TimeSlot) Duration() time.Duration {
	return timeOfDay(t.End).Sub(timeOfDay(t.Start))
}

func timeOfDay(t time.Time) time.Time {
	return time.Date(0, 1, 1, t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}

// ClassCourseRequirement is one course's required hours, by session type, for
// a given class.
type ClassCourseRequirement struct {
	CourseID    string
	HoursByType map[SessionType]float64
}

// Class is a student cohort with a course load.
type Class struct {
	ID           string
	Code         string
	Level        string
	StudentCount int
	Requirements []ClassCourseRequirement
}

// PublicationStatus is a Schedule's lifecycle state.
type PublicationStatus string

const (
	StatusDraft     PublicationStatus = "draft"
	StatusReview    PublicationStatus = "review"
	StatusApproved  PublicationStatus = "approved"
	StatusPublished PublicationStatus = "published"
	StatusArchived  PublicationStatus = "archived"
)

// RecurrencePolicy selects how a template's weekly slot repeats.
type RecurrencePolicy string

const (
	RecurrenceWeekly   RecurrencePolicy = "weekly"
	RecurrenceBiweekly RecurrencePolicy = "biweekly"
	RecurrenceMonthly  RecurrencePolicy = "monthly"
)

// FlexibilityLevel controls how much the generator may deviate from a
// template's preferred room/time.
type FlexibilityLevel string

const (
	FlexibilityRigid    FlexibilityLevel = "rigid"
	FlexibilityBalanced FlexibilityLevel = "balanced"
	FlexibilityFlexible FlexibilityLevel = "flexible"
)

// SpecialWeek overrides regular class scheduling for a date range.
type SpecialWeek struct {
	Start           time.Time
	End             time.Time
	SuspendRegular  bool
}

// GenerationConfig parameterizes a single generate() invocation.
type GenerationConfig struct {
	StartDate                  time.Time
	EndDate                    time.Time
	Recurrence                 RecurrencePolicy
	Flexibility                FlexibilityLevel
	AllowConflicts              bool
	MaxSessionsPerDay           int
	RespectRoomPreferences      bool
	RespectInstructorPreferences bool
	ExcludedDates               []time.Time
	SpecialWeeks                []SpecialWeek
	PreviewMode                 bool
	ForceRegenerate             bool
	PreserveModifications       bool
	Weekdays                    map[time.Weekday]bool // days eligible for placement; default Mon-Fri
	TransitionBuffer            time.Duration
	MonthlyStepMode             MonthlyStepMode
	WallClockBudget             time.Duration
	Weights                     ScoreWeights
}

// MonthlyStepMode resolves the Open Question on monthly recurrence stepping.
type MonthlyStepMode string

const (
	// MonthlyStepCalendar advances by calendar month, preserving day-of-month.
	MonthlyStepCalendar MonthlyStepMode = "calendar"
	// MonthlyStep30Day advances by a fixed 30-day step.
	MonthlyStep30Day MonthlyStepMode = "fixed_30_day"
)

// ScoreWeights tunes the generator's placement score (§4.5).
type ScoreWeights struct {
	Pedagogical  float64
	Coverage     float64
	Distribution float64
}

// DefaultScoreWeights mirrors the spec's documented defaults.
func DefaultScoreWeights() ScoreWeights {
	return ScoreWeights{Pedagogical: 1.0, Coverage: 0.3, Distribution: 0.5}
}

// DefaultGenerationConfig fills in the deployment defaults noted in
// SPEC_FULL.md's Open Question resolutions.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		Recurrence:       RecurrenceWeekly,
		Flexibility:      FlexibilityBalanced,
		MaxSessionsPerDay: 1,
		Weekdays: map[time.Weekday]bool{
			time.Monday:    true,
			time.Tuesday:   true,
			time.Wednesday: true,
			time.Thursday:  true,
			time.Friday:    true,
		},
		MonthlyStepMode: MonthlyStepCalendar,
		WallClockBudget: 30 * time.Second,
		Weights:         DefaultScoreWeights(),
	}
}

// Schedule is a container for one class's generated timetable.
type Schedule struct {
	ID                string
	AcademicPeriod    string
	ClassID           string
	Status            PublicationStatus
	Config            GenerationConfig
	Templates         []SessionTemplate
}

// SessionTemplate is the abstract weekly entry the generator emits.
type SessionTemplate struct {
	ID           string
	ScheduleID   string
	CourseID     string
	RoomID       string
	InstructorID string
	TimeSlotID   string
	SessionType  SessionType
	// Override, if non-zero, pins an absolute date/time instead of the
	// recurring weekly slot.
	OverrideDate  *time.Time
	OverrideStart *time.Time
	OverrideEnd   *time.Time
}

// OccurrenceStatus is an Occurrence's lifecycle state.
type OccurrenceStatus string

const (
	OccurrenceScheduled  OccurrenceStatus = "scheduled"
	OccurrenceCancelled  OccurrenceStatus = "cancelled"
	OccurrenceCompleted  OccurrenceStatus = "completed"
	OccurrenceModified   OccurrenceStatus = "modified"
	OccurrenceRescheduled OccurrenceStatus = "rescheduled"
)

// ModificationFlags records which fields of an Occurrence a human has edited.
type ModificationFlags struct {
	RoomModified       bool
	InstructorModified bool
	TimeModified       bool
	Cancelled          bool
}

// Any reports whether at least one modification flag is set.
func (m ModificationFlags) Any() bool {
	return m.RoomModified || m.InstructorModified || m.TimeModified || m.Cancelled
}

// Occurrence is a materialized, dated instance of a SessionTemplate.
type Occurrence struct {
	ID               string
	TemplateID       string
	CourseID         string
	SessionType      SessionType
	ActualDate       time.Time
	Start            time.Time
	End              time.Time
	RoomID           string
	InstructorID     string
	Status           OccurrenceStatus
	Modifications    ModificationFlags
	CancelReason     string
	RescheduledFrom  *string
}

// Duration returns the occurrence's length.
func (o Occurrence) Duration() time.Duration {
	return o.End.Sub(o.Start)
}

// Superseded reports whether the occurrence has been replaced by another row
// and should be excluded from hour totals, overlap checks, and audits: a
// cancelled occurrence has no replacement, a rescheduled one has its
// replacement linked via another occurrence's RescheduledFrom.
func (o Occurrence) Superseded() bool {
	return o.Status == OccurrenceCancelled || o.Status == OccurrenceRescheduled
}

// ISOWeek returns the (year, week) pair used to key weekly load ledgers.
func ISOWeek(t time.Time) (int, int) {
	y, w := t.ISOWeek()
	return y, w
}
