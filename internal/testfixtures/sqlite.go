package testfixtures

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/flashcoder237/campus-timetable-engine/internal/persistence/sqlite"
	"github.com/flashcoder237/campus-timetable-engine/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database migrated with the real migrations directory, for integration-style
// persistence and generator/evaluator tests.
type SQLiteHarness struct {
	Courses     *sqlite.CourseRepository
	Instructors *sqlite.InstructorRepository
	Rooms       *sqlite.RoomRepository
	TimeSlots   *sqlite.TimeSlotRepository
	Classes     *sqlite.ClassRepository
	Schedules   *sqlite.ScheduleRepository
	Occurrences *sqlite.OccurrenceRepository

	pool *sqlite.ConnectionPool
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.pool != nil {
		_ = h.pool.Close()
		h.pool = nil
	}
}

// NewSQLiteHarness constructs an SQLiteHarness against a temp-file database,
// applying the module's migrations before returning. The harness registers
// its own cleanup with tb.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dir := tb.TempDir()
	dbPath := filepath.Join(dir, "engine.db")

	pool, err := sqlite.NewConnectionPool(migration.TempFileTestSQLiteConfig(dbPath))
	if err != nil {
		tb.Fatalf("failed to create connection pool: %v", err)
	}

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "persistence", "sqlite", "migrations")

	manager := migration.NewMigrationManager(migration.NewFileScanner(), migration.NewSQLiteExecutor(pool.DB()), migrationsDir)
	if err := manager.RunMigrations(context.Background()); err != nil {
		_ = pool.Close()
		tb.Fatalf("failed to run migrations: %v", err)
	}

	harness := &SQLiteHarness{
		Courses:     sqlite.NewCourseRepository(pool),
		Instructors: sqlite.NewInstructorRepository(pool),
		Rooms:       sqlite.NewRoomRepository(pool),
		TimeSlots:   sqlite.NewTimeSlotRepository(pool),
		Classes:     sqlite.NewClassRepository(pool),
		Schedules:   sqlite.NewScheduleRepository(pool),
		Occurrences: sqlite.NewOccurrenceRepository(pool),
		pool:        pool,
	}

	tb.Cleanup(harness.Close)
	return harness
}
