package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/flashcoder237/campus-timetable-engine/internal/domain"
	"github.com/flashcoder237/campus-timetable-engine/internal/persistence"
)

// RoomRepository implements store.RoomStore using SQLite.
type RoomRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRoomRepository creates a new SQLite room repository.
func NewRoomRepository(pool *ConnectionPool) *RoomRepository {
	return &RoomRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

func (r *RoomRepository) CreateRoom(ctx context.Context, room domain.Room) error {
	if room.ID == "" || room.Code == "" {
		return persistence.ErrConstraintViolation
	}
	if room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := r.helper.Exec(ctx, `
		INSERT INTO rooms (id, code, capacity, has_projector, has_computer, is_laboratory, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, room.ID, room.Code, room.Capacity, boolToInt(room.HasProjector), boolToInt(room.HasComputer), boolToInt(room.IsLaboratory), boolToInt(room.Active), now, now)
	if err != nil {
		return r.mapRoomError(err)
	}
	return nil
}

func (r *RoomRepository) UpdateRoom(ctx context.Context, room domain.Room) error {
	if room.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if room.Capacity <= 0 {
		return persistence.ErrConstraintViolation
	}

	result, err := r.helper.Exec(ctx, `
		UPDATE rooms SET code = ?, capacity = ?, has_projector = ?, has_computer = ?, is_laboratory = ?, active = ?, updated_at = ?
		WHERE id = ?
	`, room.Code, room.Capacity, boolToInt(room.HasProjector), boolToInt(room.HasComputer), boolToInt(room.IsLaboratory), boolToInt(room.Active),
		time.Now().UTC().Format(time.RFC3339), room.ID)
	if err != nil {
		return r.mapRoomError(err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func (r *RoomRepository) GetRoom(ctx context.Context, id string) (domain.Room, error) {
	if id == "" {
		return domain.Room{}, persistence.ErrNotFound
	}
	row := r.helper.QueryRow(ctx, roomSelectQuery+" WHERE id = ?", id)
	room, err := scanRoom(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return domain.Room{}, persistence.ErrNotFound
		}
		return domain.Room{}, r.mapper.MapError(err)
	}
	return room, nil
}

func (r *RoomRepository) ListRooms(ctx context.Context) ([]domain.Room, error) {
	rows, err := r.helper.Query(ctx, roomSelectQuery+" ORDER BY code ASC, id ASC")
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		room, err := scanRoom(rows.Scan)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return rooms, nil
}

const roomSelectQuery = `
	SELECT id, code, capacity, has_projector, has_computer, is_laboratory, active
	FROM rooms
`

func scanRoom(scan func(dest ...any) error) (domain.Room, error) {
	var room domain.Room
	err := scan(
		&room.ID, &room.Code, &room.Capacity,
		&boolColumn{&room.HasProjector}, &boolColumn{&room.HasComputer}, &boolColumn{&room.IsLaboratory}, &boolColumn{&room.Active},
	)
	return room, err
}

func (r *RoomRepository) mapRoomError(err error) error {
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
