// Package occurrences implements the three occurrence-mutation operations of
// spec §6 (cancelOccurrence, rescheduleOccurrence, modifyOccurrence) that sit
// outside a full generate() run. It follows the same
// injected-clock-and-id-generator service shape as internal/generator and
// the teacher's application.ScheduleService, and reuses internal/conflict's
// CanPlace pruning check rather than re-implementing overlap detection.
package occurrences

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/flashcoder237/campus-timetable-engine/internal/allocation"
	"github.com/flashcoder237/campus-timetable-engine/internal/apperrors"
	"github.com/flashcoder237/campus-timetable-engine/internal/conflict"
	"github.com/flashcoder237/campus-timetable-engine/internal/domain"
	"github.com/flashcoder237/campus-timetable-engine/internal/logging"
	"github.com/flashcoder237/campus-timetable-engine/internal/store"

	"github.com/google/uuid"
)

// Manager mutates individual occurrences of an already-committed schedule.
type Manager struct {
	occurrences store.OccurrenceStore
	rooms       store.RoomStore
	instructors store.InstructorStore

	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// New constructs a Manager from its storage dependencies.
func New(occurrences store.OccurrenceStore, rooms store.RoomStore, instructors store.InstructorStore, logger *slog.Logger) *Manager {
	return &Manager{
		occurrences: occurrences,
		rooms:       rooms,
		instructors: instructors,
		idGenerator: uuid.NewString,
		now:         time.Now,
		logger:      logging.Default(logger),
	}
}

func (m *Manager) loggerFor(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return logging.For(ctx, m.logger, "Manager", operation, attrs...)
}

// siblingIndex builds an allocation index from every other occurrence in
// occID's schedule, so CanPlace can be reused to validate a reschedule or
// modification target the same way the generator validates a fresh placement.
func (m *Manager) siblingIndex(ctx context.Context, scheduleID, excludeID string) (*allocation.Index, error) {
	siblings, err := m.occurrences.ListOccurrencesForSchedule(ctx, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("loading schedule occurrences: %w", err)
	}
	idx := allocation.New()
	for _, o := range siblings {
		if o.ID == excludeID || o.Superseded() {
			continue
		}
		idx.MarkUsed(o.ActualDate, o.Start, o.RoomID, o.InstructorID, o.Duration().Hours())
	}
	return idx, nil
}

// Cancel marks an occurrence cancelled, recording the reason (spec §6
// cancelOccurrence). Cancelling an already-cancelled occurrence is a
// precondition failure rather than a silent no-op, since a caller retrying a
// cancel against a stale view should see that it already happened.
func (m *Manager) Cancel(ctx context.Context, occurrenceID, reason string) (domain.Occurrence, error) {
	logger := m.loggerFor(ctx, "Cancel", "occurrence_id", occurrenceID)

	occ, _, err := m.occurrences.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		return domain.Occurrence{}, fmt.Errorf("%w: loading occurrence %s: %v", apperrors.ErrNotFound, occurrenceID, err)
	}
	if occ.Status == domain.OccurrenceCancelled {
		perr := &apperrors.PreconditionError{}
		perr.Add("occurrence_id", "occurrence is already cancelled")
		return domain.Occurrence{}, perr
	}

	occ.Status = domain.OccurrenceCancelled
	occ.Modifications.Cancelled = true
	occ.CancelReason = reason

	if err := m.occurrences.UpdateOccurrence(ctx, occ); err != nil {
		logger.ErrorContext(ctx, "failed to persist cancellation", "error", err, "error_kind", apperrors.Kind(err))
		return domain.Occurrence{}, fmt.Errorf("persisting cancellation: %w", err)
	}
	logger.InfoContext(ctx, "occurrence cancelled", "reason", reason)
	return occ, nil
}

// Reschedule moves an occurrence to a new date/time, and optionally a new
// room or instructor, creating a fresh occurrence linked by
// RescheduledFrom and marking the original status=rescheduled (spec §6
// rescheduleOccurrence). The new placement is validated against every other
// occurrence of the same schedule with conflict.CanPlace before anything is
// written.
func (m *Manager) Reschedule(ctx context.Context, occurrenceID string, newDate, newStart, newEnd time.Time, newRoomID, newInstructorID *string) (domain.Occurrence, error) {
	logger := m.loggerFor(ctx, "Reschedule", "occurrence_id", occurrenceID)

	if !newEnd.After(newStart) {
		perr := &apperrors.PreconditionError{}
		perr.Add("new_end", "must be after new_start")
		return domain.Occurrence{}, perr
	}

	old, scheduleID, err := m.occurrences.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		return domain.Occurrence{}, fmt.Errorf("%w: loading occurrence %s: %v", apperrors.ErrNotFound, occurrenceID, err)
	}
	// A cancelled occurrence may still be rescheduled into a make-up session
	// (spec §8 P6's cancel-then-reschedule round trip): the replacement
	// carries the hours forward so the course's total is unaffected. An
	// occurrence that has already been rescheduled once cannot be rescheduled
	// again; its replacement is the one to act on.
	if old.Status == domain.OccurrenceRescheduled {
		perr := &apperrors.PreconditionError{}
		perr.Add("occurrence_id", "already rescheduled")
		return domain.Occurrence{}, perr
	}

	roomID := old.RoomID
	if newRoomID != nil {
		roomID = *newRoomID
	}
	instructorID := old.InstructorID
	if newInstructorID != nil {
		instructorID = *newInstructorID
	}

	room, err := m.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return domain.Occurrence{}, fmt.Errorf("%w: loading room %s: %v", apperrors.ErrNotFound, roomID, err)
	}
	instructor, err := m.instructors.GetInstructor(ctx, instructorID)
	if err != nil {
		return domain.Occurrence{}, fmt.Errorf("%w: loading instructor %s: %v", apperrors.ErrNotFound, instructorID, err)
	}

	idx, err := m.siblingIndex(ctx, scheduleID, old.ID)
	if err != nil {
		return domain.Occurrence{}, err
	}
	if ok, reason := conflict.CanPlace(idx, room, instructor, newDate, newStart, newEnd.Sub(newStart).Hours()); !ok {
		logger.WarnContext(ctx, "reschedule target conflicts", "reason", reason)
		return domain.Occurrence{}, fmt.Errorf("%w: %s", apperrors.ErrConflict, reason)
	}

	old.Status = domain.OccurrenceRescheduled
	id := old.ID
	replacement := domain.Occurrence{
		ID:           m.idGenerator(),
		TemplateID:   old.TemplateID,
		CourseID:     old.CourseID,
		SessionType:  old.SessionType,
		ActualDate:   newDate,
		Start:        newStart,
		End:          newEnd,
		RoomID:       roomID,
		InstructorID: instructorID,
		Status:       domain.OccurrenceScheduled,
		Modifications: domain.ModificationFlags{
			RoomModified:       roomID != old.RoomID,
			InstructorModified: instructorID != old.InstructorID,
			TimeModified:       true,
		},
		RescheduledFrom: &id,
	}

	if err := m.occurrences.UpdateOccurrence(ctx, old); err != nil {
		logger.ErrorContext(ctx, "failed to mark original occurrence rescheduled", "error", err)
		return domain.Occurrence{}, fmt.Errorf("persisting original occurrence: %w", err)
	}
	if err := m.occurrences.BulkWriteSessionsAndOccurrences(ctx, scheduleID, nil, []domain.Occurrence{replacement}); err != nil {
		logger.ErrorContext(ctx, "failed to persist replacement occurrence", "error", err)
		return domain.Occurrence{}, fmt.Errorf("persisting replacement occurrence: %w", err)
	}

	logger.InfoContext(ctx, "occurrence rescheduled", "replacement_id", replacement.ID)
	return replacement, nil
}

// Modification bundles the fields modifyOccurrence may change; a nil field
// leaves the corresponding occurrence field untouched.
type Modification struct {
	RoomID       *string
	InstructorID *string
	Start        *time.Time
	End          *time.Time
}

// Modify applies an in-place edit to an occurrence, setting the
// corresponding *_modified flags and re-checking conflicts against the rest
// of the schedule before committing (spec §6 modifyOccurrence). Unlike
// Reschedule it does not fork a new occurrence: the edit is to the same row.
func (m *Manager) Modify(ctx context.Context, occurrenceID string, mod Modification) (domain.Occurrence, error) {
	logger := m.loggerFor(ctx, "Modify", "occurrence_id", occurrenceID)

	occ, scheduleID, err := m.occurrences.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		return domain.Occurrence{}, fmt.Errorf("%w: loading occurrence %s: %v", apperrors.ErrNotFound, occurrenceID, err)
	}
	if occ.Status == domain.OccurrenceCancelled {
		perr := &apperrors.PreconditionError{}
		perr.Add("occurrence_id", "cannot modify a cancelled occurrence")
		return domain.Occurrence{}, perr
	}

	if mod.RoomID != nil && *mod.RoomID != occ.RoomID {
		occ.RoomID = *mod.RoomID
		occ.Modifications.RoomModified = true
	}
	if mod.InstructorID != nil && *mod.InstructorID != occ.InstructorID {
		occ.InstructorID = *mod.InstructorID
		occ.Modifications.InstructorModified = true
	}
	if mod.Start != nil && !mod.Start.Equal(occ.Start) {
		occ.Start = *mod.Start
		occ.Modifications.TimeModified = true
	}
	if mod.End != nil && !mod.End.Equal(occ.End) {
		occ.End = *mod.End
		occ.Modifications.TimeModified = true
	}
	if !occ.End.After(occ.Start) {
		perr := &apperrors.PreconditionError{}
		perr.Add("end", "must be after start")
		return domain.Occurrence{}, perr
	}

	room, err := m.rooms.GetRoom(ctx, occ.RoomID)
	if err != nil {
		return domain.Occurrence{}, fmt.Errorf("%w: loading room %s: %v", apperrors.ErrNotFound, occ.RoomID, err)
	}
	instructor, err := m.instructors.GetInstructor(ctx, occ.InstructorID)
	if err != nil {
		return domain.Occurrence{}, fmt.Errorf("%w: loading instructor %s: %v", apperrors.ErrNotFound, occ.InstructorID, err)
	}

	idx, err := m.siblingIndex(ctx, scheduleID, occ.ID)
	if err != nil {
		return domain.Occurrence{}, err
	}
	if ok, reason := conflict.CanPlace(idx, room, instructor, occ.ActualDate, occ.Start, occ.Duration().Hours()); !ok {
		logger.WarnContext(ctx, "modification target conflicts", "reason", reason)
		return domain.Occurrence{}, fmt.Errorf("%w: %s", apperrors.ErrConflict, reason)
	}

	if occ.Modifications.Any() {
		occ.Status = domain.OccurrenceModified
	}

	if err := m.occurrences.UpdateOccurrence(ctx, occ); err != nil {
		logger.ErrorContext(ctx, "failed to persist modification", "error", err)
		return domain.Occurrence{}, fmt.Errorf("persisting modification: %w", err)
	}
	logger.InfoContext(ctx, "occurrence modified")
	return occ, nil
}
