package testfixtures

import (
	"log/slog"

	"github.com/flashcoder237/campus-timetable-engine/internal/evaluator"
	"github.com/flashcoder237/campus-timetable-engine/internal/generator"
	"github.com/flashcoder237/campus-timetable-engine/internal/occurrences"
	"github.com/flashcoder237/campus-timetable-engine/internal/store"
)

// ServiceFactory assists tests with constructing engine services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(ReferenceTime()),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(ReferenceTime())
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(gen *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = gen
	}
}

// GeneratorDeps captures the storage dependencies a Generator needs.
type GeneratorDeps struct {
	Courses     store.CourseStore
	Instructors store.InstructorStore
	Rooms       store.RoomStore
	TimeSlots   store.TimeSlotStore
	Classes     store.ClassStore
	Schedules   store.ScheduleStore
	Occurrences store.OccurrenceStore
	Logger      *slog.Logger
}

// NewGenerator builds a *generator.Generator from the supplied storage
// dependencies.
func (f *ServiceFactory) NewGenerator(deps GeneratorDeps) *generator.Generator {
	return generator.New(
		deps.Courses,
		deps.Instructors,
		deps.Rooms,
		deps.TimeSlots,
		deps.Classes,
		deps.Schedules,
		deps.Occurrences,
		deps.Logger,
	)
}

// NewEvaluator builds an *evaluator.Evaluator. It takes no storage
// dependencies: Evaluate is a pure function of the Input passed to it.
func (f *ServiceFactory) NewEvaluator() *evaluator.Evaluator {
	return evaluator.New()
}

// OccurrenceManagerDeps captures the storage dependencies an
// occurrences.Manager needs.
type OccurrenceManagerDeps struct {
	Occurrences store.OccurrenceStore
	Rooms       store.RoomStore
	Instructors store.InstructorStore
	Logger      *slog.Logger
}

// NewOccurrenceManager builds an *occurrences.Manager from the supplied
// storage dependencies.
func (f *ServiceFactory) NewOccurrenceManager(deps OccurrenceManagerDeps) *occurrences.Manager {
	return occurrences.New(deps.Occurrences, deps.Rooms, deps.Instructors, deps.Logger)
}
