package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/flashcoder237/campus-timetable-engine/internal/domain"
	"github.com/flashcoder237/campus-timetable-engine/internal/persistence"
	"github.com/flashcoder237/campus-timetable-engine/internal/store"
)

// ScheduleRepository implements store.ScheduleStore using SQLite. It persists
// only a Schedule's header; its Templates are owned by OccurrenceRepository
// and are not reloaded by GetSchedule/ListSchedules.
type ScheduleRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewScheduleRepository creates a new SQLite schedule repository.
func NewScheduleRepository(pool *ConnectionPool) *ScheduleRepository {
	return &ScheduleRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

func (r *ScheduleRepository) CreateSchedule(ctx context.Context, schedule domain.Schedule) error {
	if schedule.ID == "" {
		return persistence.ErrConstraintViolation
	}

	configJSON, err := json.Marshal(schedule.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = r.helper.Exec(ctx, `
		INSERT INTO schedules (id, academic_period, class_id, status, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, schedule.ID, schedule.AcademicPeriod, schedule.ClassID, string(schedule.Status), string(configJSON), now, now)
	if err != nil {
		return r.mapScheduleError(err)
	}
	return nil
}

func (r *ScheduleRepository) UpdateSchedule(ctx context.Context, schedule domain.Schedule) error {
	if schedule.ID == "" {
		return persistence.ErrConstraintViolation
	}

	configJSON, err := json.Marshal(schedule.Config)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE schedules SET academic_period = ?, class_id = ?, status = ?, config = ?, updated_at = ?
		WHERE id = ?
	`, schedule.AcademicPeriod, schedule.ClassID, string(schedule.Status), string(configJSON),
		time.Now().UTC().Format(time.RFC3339), schedule.ID)
	if err != nil {
		return r.mapScheduleError(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (r *ScheduleRepository) GetSchedule(ctx context.Context, id string) (domain.Schedule, error) {
	if id == "" {
		return domain.Schedule{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, scheduleSelectQuery+" WHERE id = ?", id)
	schedule, err := scanSchedule(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Schedule{}, persistence.ErrNotFound
		}
		return domain.Schedule{}, r.mapper.MapError(err)
	}
	return schedule, nil
}

func (r *ScheduleRepository) ListSchedules(ctx context.Context, filter store.ScheduleFilter) ([]domain.Schedule, error) {
	query := scheduleSelectQuery
	var conditions []string
	var args []any

	if filter.ClassID != "" {
		conditions = append(conditions, "class_id = ?")
		args = append(args, filter.ClassID)
	}
	if filter.AcademicPeriod != "" {
		conditions = append(conditions, "academic_period = ?")
		args = append(args, filter.AcademicPeriod)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*filter.Status))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id ASC"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var schedules []domain.Schedule
	for rows.Next() {
		schedule, err := scanSchedule(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		schedules = append(schedules, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return schedules, nil
}

func (r *ScheduleRepository) DeleteSchedule(ctx context.Context, id string) error {
	if id == "" {
		return persistence.ErrNotFound
	}
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := r.helper.ExecTx(tx, "DELETE FROM occurrences WHERE schedule_id = ?", id); err != nil {
			return r.mapper.MapError(err)
		}
		if _, err := r.helper.ExecTx(tx, "DELETE FROM session_templates WHERE schedule_id = ?", id); err != nil {
			return r.mapper.MapError(err)
		}
		result, err := r.helper.ExecTx(tx, "DELETE FROM schedules WHERE id = ?", id)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return persistence.ErrNotFound
		}
		return nil
	})
}

const scheduleSelectQuery = `
	SELECT id, academic_period, class_id, status, config FROM schedules
`

func scanSchedule(scan func(dest ...any) error) (domain.Schedule, error) {
	var schedule domain.Schedule
	var status, configJSON string
	if err := scan(&schedule.ID, &schedule.AcademicPeriod, &schedule.ClassID, &status, &configJSON); err != nil {
		return domain.Schedule{}, err
	}
	schedule.Status = domain.PublicationStatus(status)
	if err := json.Unmarshal([]byte(configJSON), &schedule.Config); err != nil {
		return domain.Schedule{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return schedule, nil
}

func (r *ScheduleRepository) mapScheduleError(err error) error {
	if err == nil {
		return nil
	}
	errStr := err.Error()
	if containsAny(errStr, []string{"UNIQUE constraint failed"}) {
		return persistence.ErrDuplicate
	}
	if containsAny(errStr, []string{"FOREIGN KEY constraint failed"}) {
		return persistence.ErrForeignKeyViolation
	}
	return r.mapper.MapError(err)
}
