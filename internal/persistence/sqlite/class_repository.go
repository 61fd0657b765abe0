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

// ClassRepository implements store.ClassStore using SQLite.
type ClassRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewClassRepository creates a new SQLite class repository.
func NewClassRepository(pool *ConnectionPool) *ClassRepository {
	return &ClassRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

func (r *ClassRepository) CreateClass(ctx context.Context, class domain.Class) error {
	if class.ID == "" || class.Code == "" {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC()
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		_, err := r.helper.ExecTx(tx, `
			INSERT INTO classes (id, code, level, student_count, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, class.ID, class.Code, class.Level, class.StudentCount, now.Format(time.RFC3339), now.Format(time.RFC3339))
		if err != nil {
			return r.mapClassError(err)
		}
		return insertRequirements(tx, r.helper, class.ID, class.Requirements)
	})
}

func (r *ClassRepository) GetClass(ctx context.Context, id string) (domain.Class, error) {
	if id == "" {
		return domain.Class{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, `
		SELECT id, code, level, student_count FROM classes WHERE id = ?
	`, id)
	var class domain.Class
	if err := row.Scan(&class.ID, &class.Code, &class.Level, &class.StudentCount); err != nil {
		if err == sql.ErrNoRows {
			return domain.Class{}, persistence.ErrNotFound
		}
		return domain.Class{}, r.mapper.MapError(err)
	}

	requirements, err := loadRequirements(ctx, r.helper, id)
	if err != nil {
		return domain.Class{}, r.mapper.MapError(err)
	}
	class.Requirements = requirements
	return class, nil
}

func (r *ClassRepository) ListClasses(ctx context.Context) ([]domain.Class, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, code, level, student_count FROM classes ORDER BY code ASC
	`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var classes []domain.Class
	for rows.Next() {
		var class domain.Class
		if err := rows.Scan(&class.ID, &class.Code, &class.Level, &class.StudentCount); err != nil {
			return nil, r.mapper.MapError(err)
		}
		requirements, err := loadRequirements(ctx, r.helper, class.ID)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		class.Requirements = requirements
		classes = append(classes, class)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return classes, nil
}

func insertRequirements(tx *sql.Tx, helper *QueryHelper, classID string, reqs []domain.ClassCourseRequirement) error {
	for _, req := range reqs {
		hoursJSON, err := json.Marshal(req.HoursByType)
		if err != nil {
			return fmt.Errorf("marshal hours_by_type: %w", err)
		}
		_, err = helper.ExecTx(tx, `
			INSERT INTO class_course_requirements (class_id, course_id, hours_by_type)
			VALUES (?, ?, ?)
		`, classID, req.CourseID, string(hoursJSON))
		if err != nil {
			return fmt.Errorf("insert requirement: %w", err)
		}
	}
	return nil
}

func loadRequirements(ctx context.Context, helper *QueryHelper, classID string) ([]domain.ClassCourseRequirement, error) {
	rows, err := helper.Query(ctx, `
		SELECT course_id, hours_by_type FROM class_course_requirements WHERE class_id = ? ORDER BY course_id ASC
	`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ClassCourseRequirement
	for rows.Next() {
		var req domain.ClassCourseRequirement
		var hoursJSON string
		if err := rows.Scan(&req.CourseID, &hoursJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(hoursJSON), &req.HoursByType); err != nil {
			return nil, fmt.Errorf("unmarshal hours_by_type: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

func (r *ClassRepository) mapClassError(err error) error {
	if err == nil {
		return nil
	}
	if containsAny(err.Error(), []string{"UNIQUE constraint failed"}) {
		return persistence.ErrDuplicate
	}
	return r.mapper.MapError(err)
}
