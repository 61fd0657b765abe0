package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/flashcoder237/campus-timetable-engine/internal/domain"
	"github.com/flashcoder237/campus-timetable-engine/internal/persistence/sqlite"
)

// seedDocument is the operator-supplied catalogue of externally-managed
// entities (rooms, instructors, courses, classes, the weekly time-slot
// grid) that the generator needs but that this service never creates
// itself — spec §1 treats them as owned by other systems. The seed
// subcommand is the load path for local/demo deployments that have no
// such upstream system to sync from.
type seedDocument struct {
	Rooms       []domain.Room       `json:"rooms"`
	Instructors []domain.Instructor `json:"instructors"`
	Courses     []domain.Course     `json:"courses"`
	Classes     []domain.Class      `json:"classes"`
	TimeSlots   []domain.TimeSlot   `json:"time_slots"`
}

func runSeed(ctx context.Context, pool *sqlite.ConnectionPool, logger *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	path := fs.String("file", "", "path to a JSON seed document")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("seed: -file is required")
	}

	raw, err := os.ReadFile(*path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var doc seedDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse seed file: %w", err)
	}

	rooms := sqlite.NewRoomRepository(pool)
	instructors := sqlite.NewInstructorRepository(pool)
	courses := sqlite.NewCourseRepository(pool)
	classes := sqlite.NewClassRepository(pool)
	timeSlots := sqlite.NewTimeSlotRepository(pool)

	for _, r := range doc.Rooms {
		if err := rooms.CreateRoom(ctx, r); err != nil {
			return fmt.Errorf("seed room %s: %w", r.ID, err)
		}
	}
	for _, i := range doc.Instructors {
		if err := instructors.CreateInstructor(ctx, i); err != nil {
			return fmt.Errorf("seed instructor %s: %w", i.ID, err)
		}
	}
	for _, c := range doc.Courses {
		if err := courses.CreateCourse(ctx, c); err != nil {
			return fmt.Errorf("seed course %s: %w", c.ID, err)
		}
	}
	for _, c := range doc.Classes {
		if err := classes.CreateClass(ctx, c); err != nil {
			return fmt.Errorf("seed class %s: %w", c.ID, err)
		}
	}
	for _, s := range doc.TimeSlots {
		if err := timeSlots.CreateTimeSlot(ctx, s); err != nil {
			return fmt.Errorf("seed time slot %s: %w", s.ID, err)
		}
	}

	logger.Info("seed complete",
		"rooms", len(doc.Rooms),
		"instructors", len(doc.Instructors),
		"courses", len(doc.Courses),
		"classes", len(doc.Classes),
		"time_slots", len(doc.TimeSlots),
	)
	return nil
}
