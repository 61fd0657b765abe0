package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/flashcoder237/campus-timetable-engine/internal/domain"
	"github.com/flashcoder237/campus-timetable-engine/internal/persistence"
)

// InstructorRepository implements store.InstructorStore using SQLite.
type InstructorRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewInstructorRepository creates a new SQLite instructor repository.
func NewInstructorRepository(pool *ConnectionPool) *InstructorRepository {
	return &InstructorRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

func (r *InstructorRepository) CreateInstructor(ctx context.Context, instructor domain.Instructor) error {
	if instructor.ID == "" {
		return persistence.ErrConstraintViolation
	}

	daysJSON, err := json.Marshal(instructor.PreferredDays)
	if err != nil {
		return fmt.Errorf("marshal preferred_days: %w", err)
	}

	now := time.Now().UTC()
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := r.helper.ExecTx(tx, `
			INSERT INTO instructors (id, display_name, department_id, max_hours_per_week, preferred_days, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, instructor.ID, instructor.DisplayName, instructor.DepartmentID, instructor.MaxHoursPerWeek, string(daysJSON),
			now.Format(time.RFC3339), now.Format(time.RFC3339))
		if err != nil {
			return r.mapInstructorError(err)
		}
		return insertUnavailabilities(tx, r.helper, instructor.ID, instructor.Unavailabilities)
	})
}

func (r *InstructorRepository) UpdateInstructor(ctx context.Context, instructor domain.Instructor) error {
	if instructor.ID == "" {
		return persistence.ErrConstraintViolation
	}

	daysJSON, err := json.Marshal(instructor.PreferredDays)
	if err != nil {
		return fmt.Errorf("marshal preferred_days: %w", err)
	}

	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		result, err := r.helper.ExecTx(tx, `
			UPDATE instructors SET display_name = ?, department_id = ?, max_hours_per_week = ?, preferred_days = ?, updated_at = ?
			WHERE id = ?
		`, instructor.DisplayName, instructor.DepartmentID, instructor.MaxHoursPerWeek, string(daysJSON),
			time.Now().UTC().Format(time.RFC3339), instructor.ID)
		if err != nil {
			return r.mapInstructorError(err)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return persistence.ErrNotFound
		}

		if _, err := r.helper.ExecTx(tx, "DELETE FROM instructor_unavailabilities WHERE instructor_id = ?", instructor.ID); err != nil {
			return r.mapper.MapError(err)
		}
		return insertUnavailabilities(tx, r.helper, instructor.ID, instructor.Unavailabilities)
	})
}

func (r *InstructorRepository) GetInstructor(ctx context.Context, id string) (domain.Instructor, error) {
	if id == "" {
		return domain.Instructor{}, persistence.ErrNotFound
	}

	instructor, err := r.scanOne(ctx, id)
	if err != nil {
		return domain.Instructor{}, err
	}

	unavail, err := loadUnavailabilities(ctx, r.helper, id)
	if err != nil {
		return domain.Instructor{}, r.mapper.MapError(err)
	}
	instructor.Unavailabilities = unavail
	return instructor, nil
}

func (r *InstructorRepository) ListInstructors(ctx context.Context) ([]domain.Instructor, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, display_name, department_id, max_hours_per_week, preferred_days, created_at, updated_at
		FROM instructors ORDER BY display_name ASC, id ASC
	`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var instructors []domain.Instructor
	for rows.Next() {
		instructor, err := scanInstructorRow(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		unavail, err := loadUnavailabilities(ctx, r.helper, instructor.ID)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		instructor.Unavailabilities = unavail
		instructors = append(instructors, instructor)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return instructors, nil
}

func (r *InstructorRepository) scanOne(ctx context.Context, id string) (domain.Instructor, error) {
	row := r.helper.QueryRow(ctx, `
		SELECT id, display_name, department_id, max_hours_per_week, preferred_days, created_at, updated_at
		FROM instructors WHERE id = ?
	`, id)
	instructor, err := scanInstructorRow(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Instructor{}, persistence.ErrNotFound
		}
		return domain.Instructor{}, r.mapper.MapError(err)
	}
	return instructor, nil
}

func scanInstructorRow(scan func(dest ...any) error) (domain.Instructor, error) {
	var instructor domain.Instructor
	var daysJSON, createdAt, updatedAt string
	if err := scan(&instructor.ID, &instructor.DisplayName, &instructor.DepartmentID, &instructor.MaxHoursPerWeek, &daysJSON, &createdAt, &updatedAt); err != nil {
		return domain.Instructor{}, err
	}
	if err := json.Unmarshal([]byte(daysJSON), &instructor.PreferredDays); err != nil {
		return domain.Instructor{}, fmt.Errorf("unmarshal preferred_days: %w", err)
	}
	return instructor, nil
}

func insertUnavailabilities(tx *sql.Tx, helper *QueryHelper, instructorID string, list []domain.Unavailability) error {
	for _, u := range list {
		var weekday sql.NullInt64
		if u.Weekday != nil {
			weekday = sql.NullInt64{Int64: int64(*u.Weekday), Valid: true}
		}
		var rangeFrom, rangeTo sql.NullString
		if u.RangeFrom != nil {
			rangeFrom = sql.NullString{String: u.RangeFrom.Format(time.RFC3339), Valid: true}
		}
		if u.RangeTo != nil {
			rangeTo = sql.NullString{String: u.RangeTo.Format(time.RFC3339), Valid: true}
		}
		_, err := helper.ExecTx(tx, `
			INSERT INTO instructor_unavailabilities (instructor_id, weekday, start_time, end_time, range_from, range_to)
			VALUES (?, ?, ?, ?, ?, ?)
		`, instructorID, weekday, u.Start.Format(time.RFC3339), u.End.Format(time.RFC3339), rangeFrom, rangeTo)
		if err != nil {
			return fmt.Errorf("insert unavailability: %w", err)
		}
	}
	return nil
}

func loadUnavailabilities(ctx context.Context, helper *QueryHelper, instructorID string) ([]domain.Unavailability, error) {
	rows, err := helper.Query(ctx, `
		SELECT weekday, start_time, end_time, range_from, range_to
		FROM instructor_unavailabilities WHERE instructor_id = ? ORDER BY id ASC
	`, instructorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Unavailability
	for rows.Next() {
		var weekday sql.NullInt64
		var startStr, endStr string
		var rangeFrom, rangeTo sql.NullString
		if err := rows.Scan(&weekday, &startStr, &endStr, &rangeFrom, &rangeTo); err != nil {
			return nil, err
		}
		u := domain.Unavailability{}
		if weekday.Valid {
			wd := time.Weekday(weekday.Int64)
			u.Weekday = &wd
		}
		if u.Start, err = time.Parse(time.RFC3339, startStr); err != nil {
			return nil, fmt.Errorf("parse start_time: %w", err)
		}
		if u.End, err = time.Parse(time.RFC3339, endStr); err != nil {
			return nil, fmt.Errorf("parse end_time: %w", err)
		}
		if rangeFrom.Valid {
			t, err := time.Parse(time.RFC3339, rangeFrom.String)
			if err != nil {
				return nil, fmt.Errorf("parse range_from: %w", err)
			}
			u.RangeFrom = &t
		}
		if rangeTo.Valid {
			t, err := time.Parse(time.RFC3339, rangeTo.String)
			if err != nil {
				return nil, fmt.Errorf("parse range_to: %w", err)
			}
			u.RangeTo = &t
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *InstructorRepository) mapInstructorError(err error) error {
	if err == nil {
		return nil
	}
	errStr := err.Error()
	if containsAny(errStr, []string{"UNIQUE constraint failed"}) {
		return persistence.ErrDuplicate
	}
	return r.mapper.MapError(err)
}
