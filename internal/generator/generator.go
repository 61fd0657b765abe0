// Package generator implements the timetable generation orchestrator: the
// three-phase most-constrained-variable placement algorithm of spec §4.5,
// built on the same service-struct-with-injected-clock-and-id-generator
// shape as the teacher's application.ScheduleService, with its deferred
// error-logging pattern reused via internal/logging and internal/apperrors.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/flashcoder237/campus-timetable-engine/internal/allocation"
	"github.com/flashcoder237/campus-timetable-engine/internal/apperrors"
	"github.com/flashcoder237/campus-timetable-engine/internal/conflict"
	"github.com/flashcoder237/campus-timetable-engine/internal/domain"
	"github.com/flashcoder237/campus-timetable-engine/internal/logging"
	"github.com/flashcoder237/campus-timetable-engine/internal/recurrence"
	"github.com/flashcoder237/campus-timetable-engine/internal/sequencer"
	"github.com/flashcoder237/campus-timetable-engine/internal/store"

	"github.com/google/uuid"
)

// generationRecorder is the subset of *metrics.Recorder the generator needs,
// kept as an interface so generator tests don't have to stand up a
// Prometheus registry.
type generationRecorder interface {
	ObserveGeneration(classID string, elapsedSeconds float64, risk int, bySeverity map[string]int)
}

// Generator orchestrates a single generate() run for one class.
type Generator struct {
	courses     store.CourseStore
	instructors store.InstructorStore
	rooms       store.RoomStore
	timeSlots   store.TimeSlotStore
	classes     store.ClassStore
	schedules   store.ScheduleStore
	occurrences store.OccurrenceStore

	recurrenceEngine *recurrence.Engine
	sequencer        *sequencer.Sequencer

	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
	metrics     generationRecorder
}

// WithMetrics attaches a metrics recorder; every subsequent Generate call
// reports its elapsed time and conflict risk score through it. Not calling
// this leaves metrics recording disabled.
func (g *Generator) WithMetrics(recorder generationRecorder) *Generator {
	g.metrics = recorder
	return g
}

// New constructs a Generator from its storage dependencies, defaulting the
// id generator to uuid.NewString and the clock to time.Now.
func New(
	courses store.CourseStore,
	instructors store.InstructorStore,
	rooms store.RoomStore,
	timeSlots store.TimeSlotStore,
	classes store.ClassStore,
	schedules store.ScheduleStore,
	occurrences store.OccurrenceStore,
	logger *slog.Logger,
) *Generator {
	return &Generator{
		courses:          courses,
		instructors:      instructors,
		rooms:            rooms,
		timeSlots:        timeSlots,
		classes:          classes,
		schedules:        schedules,
		occurrences:      occurrences,
		recurrenceEngine: recurrence.NewEngine(nil),
		sequencer:        sequencer.New(),
		idGenerator:      uuid.NewString,
		now:              time.Now,
		logger:           logging.Default(logger),
	}
}

func (g *Generator) loggerFor(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return logging.For(ctx, g.logger, "Generator", operation, attrs...)
}

func severityBreakdown(conflicts []domain.Conflict) map[string]int {
	out := make(map[string]int, 4)
	for _, c := range conflicts {
		out[string(c.Severity)]++
	}
	return out
}

// Result is the outcome of a Generate call.
type Result struct {
	Schedule  domain.Schedule
	Conflicts []domain.Conflict
	Unplaced  []UnplacedRequirement
}

// UnplacedRequirement names a course/session-type combination the placement
// loop could not satisfy within the generation window.
type UnplacedRequirement struct {
	CourseID    string
	SessionType domain.SessionType
	MissingHours float64
}

// courseWork tracks one course's remaining hours to place, per session type.
type courseWork struct {
	course    domain.Course
	remaining map[domain.SessionType]float64
}

func (w *courseWork) totalRemaining() float64 {
	total := 0.0
	for _, h := range w.remaining {
		total += h
	}
	return total
}

// difficultyScore ranks courses for most-constrained-variable ordering:
// higher is placed first. Per spec §4.5 Phase 2: +50 for a morning-only
// session type (CM), +40 for an afternoon-only one (TP), +2 per required
// hour, +30/+20 for laboratory/computer equipment, and +10 per additional
// course sharing the same preferred instructor.
func difficultyScore(c domain.Course, sharedInstructorCourses int) float64 {
	score := 0.0

	if _, ok := c.HoursByType[domain.SessionCM]; ok {
		score += 50
	}
	if _, ok := c.HoursByType[domain.SessionTP]; ok {
		score += 40
	}

	score += c.TotalHours * 2

	if c.Equipment.RequiresLaboratory {
		score += 30
	}
	if c.Equipment.RequiresComputer {
		score += 20
	}

	if sharedInstructorCourses > 0 {
		score += float64(sharedInstructorCourses) * 10
	}

	return score
}

// Generate runs a full generation pass for classID under cfg, returning the
// produced Schedule, the conflicts discovered along the way, and any
// requirements that could not be placed within the generation window. When
// cfg.PreviewMode is false, the result is written to storage in two steps:
// the schedule header first, then its templates and occurrences in one
// transaction. The two steps do not share a transaction, so a failure in
// the second leaves the schedule header stored without its sessions.
func (g *Generator) Generate(ctx context.Context, classID string, cfg domain.GenerationConfig) (Result, error) {
	logger := g.loggerFor(ctx, "Generate", "class_id", classID)
	start := g.now()

	class, err := g.classes.GetClass(ctx, classID)
	if err != nil {
		logger.ErrorContext(ctx, "failed to load class", "error", err)
		return Result{}, fmt.Errorf("%w: loading class %s: %v", apperrors.ErrNotFound, classID, err)
	}

	courses, err := g.courses.ListCoursesForClass(ctx, classID)
	if err != nil {
		return Result{}, fmt.Errorf("loading courses for class %s: %w", classID, err)
	}
	rooms, err := g.rooms.ListRooms(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("loading rooms: %w", err)
	}
	instructors, err := g.instructors.ListInstructors(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("loading instructors: %w", err)
	}
	timeSlots, err := g.timeSlots.ListTimeSlots(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("loading time slots: %w", err)
	}

	idx := allocation.New()
	existing, err := g.loadExistingOccurrences(ctx, classID, cfg, idx)
	if err != nil {
		return Result{}, err
	}

	work := buildWork(courses, rooms)
	order := orderByConstraint(work, rooms)

	var conflicts []domain.Conflict
	var unplaced []UnplacedRequirement
	var produced []domain.Occurrence
	var templates []domain.SessionTemplate

	courseByID := make(map[string]domain.Course, len(courses))
	for _, c := range courses {
		courseByID[c.ID] = c
	}

	for _, courseID := range order {
		w := work[courseID]
		placedTemplates, placedOccurrences, leftover := g.placeCourse(ctx, w, class, rooms, instructors, timeSlots, idx, cfg)
		templates = append(templates, placedTemplates...)
		produced = append(produced, placedOccurrences...)

		for sessionType, missing := range leftover {
			if missing <= 0 {
				continue
			}
			unplaced = append(unplaced, UnplacedRequirement{CourseID: courseID, SessionType: sessionType, MissingHours: missing})
		}

		for sessionType, generatedHours := range generatedHoursByType(placedOccurrences) {
			if warning := conflict.VolumeWarning(w.course, sessionType, generatedHours); warning != nil {
				conflicts = append(conflicts, *warning)
			}
		}
	}

	all := append(append([]domain.Occurrence{}, existing...), produced...)
	roomByID := indexRoomsByID(rooms)
	instructorByID := indexInstructorsByID(instructors)
	conflicts = append(conflicts, conflict.Audit(conflict.AuditInput{
		Occurrences: all,
		Rooms:       roomByID,
		Instructors: instructorByID,
		Courses:     courseByID,
		ClassSize:   class.StudentCount,
	})...)

	schedule := domain.Schedule{
		ID:             g.idGenerator(),
		AcademicPeriod: classID,
		ClassID:        classID,
		Status:         domain.StatusDraft,
		Config:         cfg,
		Templates:      templates,
	}

	if !cfg.PreviewMode {
		if err := g.commit(ctx, schedule, templates, produced); err != nil {
			logger.ErrorContext(ctx, "failed to commit schedule", "error", err, "error_kind", apperrors.Kind(err))
			return Result{}, err
		}
	}

	logger.InfoContext(ctx, "generation complete",
		"templates", len(templates),
		"occurrences", len(produced),
		"conflicts", len(conflicts),
		"unplaced", len(unplaced),
	)

	if g.metrics != nil {
		g.metrics.ObserveGeneration(classID, g.now().Sub(start).Seconds(), conflict.RiskScore(conflicts), severityBreakdown(conflicts))
	}

	return Result{Schedule: schedule, Conflicts: conflicts, Unplaced: unplaced}, nil
}

const preloadWindowPadding = 7 * 24 * time.Hour

// loadExistingOccurrences preloads the allocation index from every committed
// occurrence in the system (spec §4.2, §6's listExistingOccurrences(window)),
// not just this class's own schedule, so the placement loop never
// double-books a room or instructor another class has already claimed. This
// runs unconditionally: a fresh (non-preserving) run still must not collide
// with another class's already-committed schedule. The window is padded
// seven days on each side of the generation window so a session that spills
// across a boundary (e.g. an exam week shifting a Friday class into the
// following Monday) is still accounted for. The full existing set is
// returned so the post-hoc audit checks produced occurrences against the
// system's actual committed state, not just this run's own output.
func (g *Generator) loadExistingOccurrences(ctx context.Context, classID string, cfg domain.GenerationConfig, idx *allocation.Index) ([]domain.Occurrence, error) {
	from := cfg.StartDate.Add(-preloadWindowPadding)
	to := cfg.EndDate.Add(preloadWindowPadding)

	existing, err := g.occurrences.ListExistingOccurrences(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading existing occurrences: %w", err)
	}

	for _, o := range existing {
		idx.MarkUsed(o.ActualDate, o.Start, o.RoomID, o.InstructorID, o.Duration().Hours())
	}
	return existing, nil
}

func buildWork(courses []domain.Course, rooms []domain.Room) map[string]*courseWork {
	work := make(map[string]*courseWork, len(courses))
	for _, c := range courses {
		remaining := make(map[domain.SessionType]float64, len(c.HoursByType))
		for t, h := range c.HoursByType {
			remaining[t] = h
		}
		work[c.ID] = &courseWork{course: c, remaining: remaining}
	}
	return work
}

func orderByConstraint(work map[string]*courseWork, rooms []domain.Room) []string {
	ids := make([]string, 0, len(work))
	for id := range work {
		ids = append(ids, id)
	}
	shared := countSharedInstructorCourses(work)
	sort.Slice(ids, func(i, j int) bool {
		a, b := work[ids[i]], work[ids[j]]
		return difficultyScore(a.course, shared[ids[i]]) > difficultyScore(b.course, shared[ids[j]])
	})
	return ids
}

// countSharedInstructorCourses counts, for each course with a declared
// preferred instructor, how many *other* courses in the same batch share
// that instructor (spec §4.5 Phase 2, "additional course assigned to the
// same instructor").
func countSharedInstructorCourses(work map[string]*courseWork) map[string]int {
	byInstructor := make(map[string][]string)
	for id, w := range work {
		if w.course.PreferredInstructorID == "" {
			continue
		}
		byInstructor[w.course.PreferredInstructorID] = append(byInstructor[w.course.PreferredInstructorID], id)
	}
	counts := make(map[string]int, len(work))
	for _, ids := range byInstructor {
		for _, id := range ids {
			counts[id] = len(ids) - 1
		}
	}
	return counts
}

func roomSatisfiesCourse(c domain.Course, r domain.Room) bool {
	if !r.Active {
		return false
	}
	if c.MinRoomCapacity > 0 && r.Capacity < c.MinRoomCapacity {
		return false
	}
	if c.Equipment.RequiresLaboratory && !r.IsLaboratory {
		return false
	}
	if c.Equipment.RequiresProjector && !r.HasProjector {
		return false
	}
	if c.Equipment.RequiresComputer && !r.HasComputer {
		return false
	}
	return true
}

func indexRoomsByID(rooms []domain.Room) map[string]domain.Room {
	m := make(map[string]domain.Room, len(rooms))
	for _, r := range rooms {
		m[r.ID] = r
	}
	return m
}

func indexInstructorsByID(instructors []domain.Instructor) map[string]domain.Instructor {
	m := make(map[string]domain.Instructor, len(instructors))
	for _, i := range instructors {
		m[i.ID] = i
	}
	return m
}

func generatedHoursByType(occurrences []domain.Occurrence) map[domain.SessionType]float64 {
	hours := make(map[domain.SessionType]float64)
	for _, o := range occurrences {
		hours[o.SessionType] += o.Duration().Hours()
	}
	return hours
}

func (g *Generator) commit(ctx context.Context, schedule domain.Schedule, templates []domain.SessionTemplate, occurrences []domain.Occurrence) error {
	if err := g.schedules.CreateSchedule(ctx, schedule); err != nil {
		return fmt.Errorf("persisting schedule: %w", err)
	}
	if err := g.occurrences.BulkWriteSessionsAndOccurrences(ctx, schedule.ID, templates, occurrences); err != nil {
		return fmt.Errorf("persisting sessions and occurrences: %w", err)
	}
	return nil
}
