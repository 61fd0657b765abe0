package sqlite

import (
	"context"
	"time"

	"github.com/flashcoder237/campus-timetable-engine/internal/domain"
	"github.com/flashcoder237/campus-timetable-engine/internal/persistence"
)

// TimeSlotRepository implements store.TimeSlotStore using SQLite.
type TimeSlotRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewTimeSlotRepository creates a new SQLite time slot repository.
func NewTimeSlotRepository(pool *ConnectionPool) *TimeSlotRepository {
	return &TimeSlotRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

func (r *TimeSlotRepository) CreateTimeSlot(ctx context.Context, slot domain.TimeSlot) error {
	if slot.ID == "" {
		return persistence.ErrConstraintViolation
	}
	_, err := r.helper.Exec(ctx, `
		INSERT INTO time_slots (id, weekday, start_time, end_time, active)
		VALUES (?, ?, ?, ?, ?)
	`, slot.ID, int(slot.Weekday), slot.Start.Format(time.RFC3339), slot.End.Format(time.RFC3339), boolToInt(slot.Active))
	if err != nil {
		return r.mapper.MapError(err)
	}
	return nil
}

func (r *TimeSlotRepository) ListTimeSlots(ctx context.Context) ([]domain.TimeSlot, error) {
	rows, err := r.helper.Query(ctx, `
		SELECT id, weekday, start_time, end_time, active
		FROM time_slots ORDER BY weekday ASC, start_time ASC
	`)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var slots []domain.TimeSlot
	for rows.Next() {
		var slot domain.TimeSlot
		var weekday int
		var startStr, endStr string
		var active boolColumn
		active.dest = &slot.Active
		if err := rows.Scan(&slot.ID, &weekday, &startStr, &endStr, &active); err != nil {
			return nil, r.mapper.MapError(err)
		}
		slot.Weekday = time.Weekday(weekday)
		if slot.Start, err = time.Parse(time.RFC3339, startStr); err != nil {
			return nil, err
		}
		if slot.End, err = time.Parse(time.RFC3339, endStr); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return slots, nil
}
