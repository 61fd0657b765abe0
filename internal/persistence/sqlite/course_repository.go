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

// CourseRepository implements store.CourseStore using SQLite.
type CourseRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewCourseRepository creates a new SQLite course repository.
func NewCourseRepository(pool *ConnectionPool) *CourseRepository {
	return &CourseRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

func (r *CourseRepository) CreateCourse(ctx context.Context, course domain.Course) error {
	if course.ID == "" || course.Code == "" {
		return persistence.ErrConstraintViolation
	}

	hoursJSON, err := json.Marshal(course.HoursByType)
	if err != nil {
		return fmt.Errorf("marshal hours_by_type: %w", err)
	}

	now := time.Now().UTC().Format(time.RFC3339)
	query := `
		INSERT INTO courses (
			id, code, hours_by_type, total_hours, default_weekly_hours,
			min_sessions_per_week, max_sessions_per_week, min_room_capacity,
			requires_projector, requires_computer, requires_laboratory,
			difficulty, priority, preferred_instructor_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.helper.Exec(ctx, query,
		course.ID, course.Code, string(hoursJSON), course.TotalHours, course.DefaultWeeklyHours,
		course.MinSessionsPerWeek, course.MaxSessionsPerWeek, course.MinRoomCapacity,
		boolToInt(course.Equipment.RequiresProjector), boolToInt(course.Equipment.RequiresComputer), boolToInt(course.Equipment.RequiresLaboratory),
		nullableFloat(course.Difficulty), nullablePriority(course.Priority), course.PreferredInstructorID, now, now,
	)
	if err != nil {
		return r.mapCourseError(err)
	}
	return nil
}

func (r *CourseRepository) UpdateCourse(ctx context.Context, course domain.Course) error {
	if course.ID == "" {
		return persistence.ErrConstraintViolation
	}

	hoursJSON, err := json.Marshal(course.HoursByType)
	if err != nil {
		return fmt.Errorf("marshal hours_by_type: %w", err)
	}

	query := `
		UPDATE courses SET
			code = ?, hours_by_type = ?, total_hours = ?, default_weekly_hours = ?,
			min_sessions_per_week = ?, max_sessions_per_week = ?, min_room_capacity = ?,
			requires_projector = ?, requires_computer = ?, requires_laboratory = ?,
			difficulty = ?, priority = ?, preferred_instructor_id = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		course.Code, string(hoursJSON), course.TotalHours, course.DefaultWeeklyHours,
		course.MinSessionsPerWeek, course.MaxSessionsPerWeek, course.MinRoomCapacity,
		boolToInt(course.Equipment.RequiresProjector), boolToInt(course.Equipment.RequiresComputer), boolToInt(course.Equipment.RequiresLaboratory),
		nullableFloat(course.Difficulty), nullablePriority(course.Priority), course.PreferredInstructorID,
		time.Now().UTC().Format(time.RFC3339), course.ID,
	)
	if err != nil {
		return r.mapCourseError(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (r *CourseRepository) GetCourse(ctx context.Context, id string) (domain.Course, error) {
	if id == "" {
		return domain.Course{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, courseSelectQuery+" WHERE id = ?", id)
	course, err := scanCourse(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Course{}, persistence.ErrNotFound
		}
		return domain.Course{}, r.mapper.MapError(err)
	}
	return course, nil
}

// ListCoursesForClass returns the courses a class's requirement rows
// reference, falling back to the full catalogue if the class has none
// recorded (e.g. fixtures that seed courses directly).
func (r *CourseRepository) ListCoursesForClass(ctx context.Context, classID string) ([]domain.Course, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT c.id, c.code, c.hours_by_type, c.total_hours, c.default_weekly_hours,
			c.min_sessions_per_week, c.max_sessions_per_week, c.min_room_capacity,
			c.requires_projector, c.requires_computer, c.requires_laboratory,
			c.difficulty, c.priority, c.preferred_instructor_id, c.created_at, c.updated_at
		FROM courses c
		JOIN class_course_requirements r ON r.course_id = c.id
		WHERE r.class_id = ?
		ORDER BY c.code ASC
	`, classID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var courses []domain.Course
	for rows.Next() {
		course, err := scanCourse(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return courses, nil
}

const courseSelectQuery = `
	SELECT id, code, hours_by_type, total_hours, default_weekly_hours,
		min_sessions_per_week, max_sessions_per_week, min_room_capacity,
		requires_projector, requires_computer, requires_laboratory,
		difficulty, priority, preferred_instructor_id, created_at, updated_at
	FROM courses
`

func scanCourse(scan func(dest ...any) error) (domain.Course, error) {
	var course domain.Course
	var hoursJSON string
	var difficulty sql.NullFloat64
	var priority sql.NullInt64
	var createdAt, updatedAt string

	err := scan(
		&course.ID, &course.Code, &hoursJSON, &course.TotalHours, &course.DefaultWeeklyHours,
		&course.MinSessionsPerWeek, &course.MaxSessionsPerWeek, &course.MinRoomCapacity,
		&boolColumn{&course.Equipment.RequiresProjector}, &boolColumn{&course.Equipment.RequiresComputer}, &boolColumn{&course.Equipment.RequiresLaboratory},
		&difficulty, &priority, &course.PreferredInstructorID, &createdAt, &updatedAt,
	)
	if err != nil {
		return domain.Course{}, err
	}

	if err := json.Unmarshal([]byte(hoursJSON), &course.HoursByType); err != nil {
		return domain.Course{}, fmt.Errorf("unmarshal hours_by_type: %w", err)
	}
	if difficulty.Valid {
		d := difficulty.Float64
		course.Difficulty = &d
	}
	if priority.Valid {
		p := domain.Priority(priority.Int64)
		course.Priority = &p
	}
	return course, nil
}

func (r *CourseRepository) mapCourseError(err error) error {
	if err == nil {
		return nil
	}
	errStr := err.Error()
	if containsAny(errStr, []string{"UNIQUE constraint failed"}) {
		return persistence.ErrDuplicate
	}
	if containsAny(errStr, []string{"CHECK constraint failed"}) {
		return persistence.ErrConstraintViolation
	}
	return r.mapper.MapError(err)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullablePriority(p *domain.Priority) any {
	if p == nil {
		return nil
	}
	return int(*p)
}

// boolColumn adapts a *bool so database/sql can scan an INTEGER 0/1 column
// directly into it.
type boolColumn struct {
	dest *bool
}

func (b *boolColumn) Scan(src any) error {
	switch v := src.(type) {
	case int64:
		*b.dest = v != 0
	case bool:
		*b.dest = v
	case nil:
		*b.dest = false
	default:
		return fmt.Errorf("boolColumn: unsupported scan type %T", src)
	}
	return nil
}
