package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/flashcoder237/campus-timetable-engine/internal/domain"
	"github.com/flashcoder237/campus-timetable-engine/internal/persistence"
)

// OccurrenceRepository implements store.OccurrenceStore using SQLite. It owns
// both session_templates and occurrences, since the two are always written
// together by a generation run (spec §4.5 commit step).
type OccurrenceRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewOccurrenceRepository creates a new SQLite occurrence repository.
func NewOccurrenceRepository(pool *ConnectionPool) *OccurrenceRepository {
	return &OccurrenceRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// BulkWriteSessionsAndOccurrences writes a generation run's templates and
// occurrences in a single transaction, so a partial failure never leaves the
// schedule with templates but no occurrences or vice versa.
func (r *OccurrenceRepository) BulkWriteSessionsAndOccurrences(ctx context.Context, scheduleID string, templates []domain.SessionTemplate, occurrences []domain.Occurrence) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, tmpl := range templates {
			if err := insertTemplate(tx, r.helper, scheduleID, tmpl); err != nil {
				return r.mapper.MapError(err)
			}
		}
		for _, occ := range occurrences {
			if err := insertOccurrence(tx, r.helper, scheduleID, occ); err != nil {
				return r.mapper.MapError(err)
			}
		}
		return nil
	})
}

func insertTemplate(tx *sql.Tx, helper *QueryHelper, scheduleID string, tmpl domain.SessionTemplate) error {
	_, err := helper.ExecTx(tx, `
		INSERT INTO session_templates (id, schedule_id, course_id, room_id, instructor_id, time_slot_id, session_type, override_date, override_start, override_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, tmpl.ID, scheduleID, tmpl.CourseID, tmpl.RoomID, tmpl.InstructorID, tmpl.TimeSlotID, string(tmpl.SessionType),
		nullableTime(tmpl.OverrideDate), nullableTime(tmpl.OverrideStart), nullableTime(tmpl.OverrideEnd))
	if err != nil {
		return fmt.Errorf("insert template %s: %w", tmpl.ID, err)
	}
	return nil
}

func insertOccurrence(tx *sql.Tx, helper *QueryHelper, scheduleID string, occ domain.Occurrence) error {
	_, err := helper.ExecTx(tx, `
		INSERT INTO occurrences (
			id, template_id, schedule_id, course_id, session_type, actual_date, start_time, end_time,
			room_id, instructor_id, status, room_modified, instructor_modified, time_modified, cancelled,
			cancel_reason, rescheduled_from
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, occ.ID, occ.TemplateID, scheduleID, occ.CourseID, string(occ.SessionType),
		occ.ActualDate.Format(time.RFC3339), occ.Start.Format(time.RFC3339), occ.End.Format(time.RFC3339),
		occ.RoomID, occ.InstructorID, string(occ.Status),
		boolToInt(occ.Modifications.RoomModified), boolToInt(occ.Modifications.InstructorModified),
		boolToInt(occ.Modifications.TimeModified), boolToInt(occ.Modifications.Cancelled),
		occ.CancelReason, nullableString(occ.RescheduledFrom))
	if err != nil {
		return fmt.Errorf("insert occurrence %s: %w", occ.ID, err)
	}
	return nil
}

// GetOccurrence loads a single occurrence by id, along with the schedule it
// belongs to, for the occurrence-mutation operations of spec §6.
func (r *OccurrenceRepository) GetOccurrence(ctx context.Context, id string) (domain.Occurrence, string, error) {
	row := r.helper.QueryRow(ctx, occurrenceWithScheduleSelectQuery+" WHERE id = ?", id)
	var scheduleID string
	occ, err := scanOccurrence(func(dest ...any) error {
		return row.Scan(append([]any{&scheduleID}, dest...)...)
	})
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Occurrence{}, "", persistence.ErrNotFound
		}
		return domain.Occurrence{}, "", r.mapper.MapError(err)
	}
	return occ, scheduleID, nil
}

func (r *OccurrenceRepository) ListOccurrencesForSchedule(ctx context.Context, scheduleID string) ([]domain.Occurrence, error) {
	rows, err := r.helper.Query(ctx, occurrenceSelectQuery+" WHERE schedule_id = ? ORDER BY actual_date ASC, start_time ASC", scheduleID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var occurrences []domain.Occurrence
	for rows.Next() {
		occ, err := scanOccurrence(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		occurrences = append(occurrences, occ)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return occurrences, nil
}

// ListExistingOccurrences returns every non-cancelled occurrence across all
// schedules whose actual date falls within [from, to], regardless of which
// class or schedule committed it, so the generator can preload a
// system-wide allocation index (spec §4.2, §6).
func (r *OccurrenceRepository) ListExistingOccurrences(ctx context.Context, from, to time.Time) ([]domain.Occurrence, error) {
	rows, err := r.helper.Query(ctx, occurrenceSelectQuery+`
		WHERE actual_date >= ? AND actual_date <= ? AND status != ?
		ORDER BY actual_date ASC, start_time ASC
	`, from.Format(time.RFC3339), to.Format(time.RFC3339), string(domain.OccurrenceCancelled))
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var occurrences []domain.Occurrence
	for rows.Next() {
		occ, err := scanOccurrence(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		occurrences = append(occurrences, occ)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return occurrences, nil
}

// DeleteOccurrencesIn removes occurrences of a schedule whose actual date
// falls within [from, to], supporting partial regeneration (spec §4.5).
func (r *OccurrenceRepository) DeleteOccurrencesIn(ctx context.Context, scheduleID string, from, to time.Time) error {
	_, err := r.helper.Exec(ctx, `
		DELETE FROM occurrences WHERE schedule_id = ? AND actual_date >= ? AND actual_date <= ?
	`, scheduleID, from.Format(time.RFC3339), to.Format(time.RFC3339))
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

// UpdateOccurrence rewrites a single occurrence, used by the
// cancel/reschedule/modify operations of spec §6.
func (r *OccurrenceRepository) UpdateOccurrence(ctx context.Context, occ domain.Occurrence) error {
	if occ.ID == "" {
		return persistence.ErrConstraintViolation
	}
	result, err := r.helper.Exec(ctx, `
		UPDATE occurrences SET
			session_type = ?, actual_date = ?, start_time = ?, end_time = ?, room_id = ?, instructor_id = ?,
			status = ?, room_modified = ?, instructor_modified = ?, time_modified = ?, cancelled = ?,
			cancel_reason = ?, rescheduled_from = ?
		WHERE id = ?
	`, string(occ.SessionType), occ.ActualDate.Format(time.RFC3339), occ.Start.Format(time.RFC3339), occ.End.Format(time.RFC3339),
		occ.RoomID, occ.InstructorID, string(occ.Status),
		boolToInt(occ.Modifications.RoomModified), boolToInt(occ.Modifications.InstructorModified),
		boolToInt(occ.Modifications.TimeModified), boolToInt(occ.Modifications.Cancelled),
		occ.CancelReason, nullableString(occ.RescheduledFrom), occ.ID)
	if err != nil {
		return r.mapper.MapError(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

const occurrenceSelectQuery = `
	SELECT id, template_id, course_id, session_type, actual_date, start_time, end_time,
		room_id, instructor_id, status, room_modified, instructor_modified, time_modified, cancelled,
		cancel_reason, rescheduled_from
	FROM occurrences
`

const occurrenceWithScheduleSelectQuery = `
	SELECT schedule_id, id, template_id, course_id, session_type, actual_date, start_time, end_time,
		room_id, instructor_id, status, room_modified, instructor_modified, time_modified, cancelled,
		cancel_reason, rescheduled_from
	FROM occurrences
`

func scanOccurrence(scan func(dest ...any) error) (domain.Occurrence, error) {
	var occ domain.Occurrence
	var sessionType, status string
	var dateStr, startStr, endStr string
	var rescheduledFrom sql.NullString

	err := scan(
		&occ.ID, &occ.TemplateID, &occ.CourseID, &sessionType, &dateStr, &startStr, &endStr,
		&occ.RoomID, &occ.InstructorID, &status,
		&boolColumn{&occ.Modifications.RoomModified}, &boolColumn{&occ.Modifications.InstructorModified},
		&boolColumn{&occ.Modifications.TimeModified}, &boolColumn{&occ.Modifications.Cancelled},
		&occ.CancelReason, &rescheduledFrom,
	)
	if err != nil {
		return domain.Occurrence{}, err
	}

	occ.SessionType = domain.SessionType(sessionType)
	occ.Status = domain.OccurrenceStatus(status)
	if occ.ActualDate, err = time.Parse(time.RFC3339, dateStr); err != nil {
		return domain.Occurrence{}, fmt.Errorf("parse actual_date: %w", err)
	}
	if occ.Start, err = time.Parse(time.RFC3339, startStr); err != nil {
		return domain.Occurrence{}, fmt.Errorf("parse start_time: %w", err)
	}
	if occ.End, err = time.Parse(time.RFC3339, endStr); err != nil {
		return domain.Occurrence{}, fmt.Errorf("parse end_time: %w", err)
	}
	if rescheduledFrom.Valid {
		occ.RescheduledFrom = &rescheduledFrom.String
	}
	return occ, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.RFC3339)
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
