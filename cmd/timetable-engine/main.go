package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flashcoder237/campus-timetable-engine/internal/config"
	"github.com/flashcoder237/campus-timetable-engine/internal/evaluator"
	"github.com/flashcoder237/campus-timetable-engine/internal/generator"
	httptransport "github.com/flashcoder237/campus-timetable-engine/internal/http"
	"github.com/flashcoder237/campus-timetable-engine/internal/metrics"
	"github.com/flashcoder237/campus-timetable-engine/internal/occurrences"
	"github.com/flashcoder237/campus-timetable-engine/internal/persistence/sqlite"
	"github.com/flashcoder237/campus-timetable-engine/internal/persistence/sqlite/migration"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := openStorage(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if len(os.Args) > 1 && os.Args[1] == "seed" {
		if err := runSeed(ctx, pool, logger, os.Args[2:]); err != nil {
			logger.Error("seed failed", "error", err)
			os.Exit(1)
		}
		return
	}

	courses := sqlite.NewCourseRepository(pool)
	instructors := sqlite.NewInstructorRepository(pool)
	rooms := sqlite.NewRoomRepository(pool)
	timeSlots := sqlite.NewTimeSlotRepository(pool)
	classes := sqlite.NewClassRepository(pool)
	schedules := sqlite.NewScheduleRepository(pool)
	occurrenceStore := sqlite.NewOccurrenceRepository(pool)

	recorder := metrics.New()
	gen := generator.New(courses, instructors, rooms, timeSlots, classes, schedules, occurrenceStore, logger).WithMetrics(recorder)
	eval := evaluator.New()
	occMgr := occurrences.New(occurrenceStore, rooms, instructors, logger)

	engine := httptransport.NewEngineHandler(gen, eval, occMgr, schedules, occurrenceStore, rooms, instructors, courses, classes)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Engine:     engine,
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	mux := http.NewServeMux()
	mux.Handle("/metrics", recorder.Handler())
	mux.Handle("/", router)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("timetable engine listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

// openStorage opens the connection pool and applies pending migrations
// before returning, shared by both the server and the seed subcommand.
func openStorage(ctx context.Context, cfg config.Config, logger *slog.Logger) (*sqlite.ConnectionPool, error) {
	pool, err := sqlite.NewConnectionPool(migration.DefaultSQLiteConfig(cfg.SQLiteDSN))
	if err != nil {
		return nil, fmt.Errorf("open connection pool: %w", err)
	}

	migrationDir := "internal/persistence/sqlite/migrations"
	migrationManager := migration.NewMigrationManager(migration.NewFileScanner(), migration.NewSQLiteExecutor(pool.DB()), migrationDir)
	if err := migrationManager.LogPendingMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("inspect pending migrations: %w", err)
	}
	if err := migrationManager.RunMigrations(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}
	if err := migrationManager.LogCurrentSchemaVersion(ctx); err != nil {
		logger.Warn("failed to log schema version", "error", err)
	}
	return pool, nil
}
