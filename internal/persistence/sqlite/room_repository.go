package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/circle-time/internal/persistence"
)

// RoomRepository implements persistence.RoomRepository on SQLite.
type RoomRepository struct {
	store *Store
}

// NewRoomRepository wires a room repository to the store.
func NewRoomRepository(store *Store) *RoomRepository {
	return &RoomRepository{store: store}
}

const roomColumns = `id, name, building, floor, capacity, amenities, status, created_at, updated_at`

// CreateRoom inserts a new room catalog entry.
func (r *RoomRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO rooms (`+roomColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		room.ID,
		room.Name,
		room.Building,
		room.Floor,
		room.Capacity,
		joinStrings(room.Amenities),
		room.Status,
		formatTime(room.CreatedAt),
		formatTime(room.UpdatedAt),
	)
	return mapSQLiteError(err)
}

// UpdateRoom rewrites an existing room catalog entry.
func (r *RoomRepository) UpdateRoom(ctx context.Context, room persistence.Room) error {
	result, err := r.store.db.ExecContext(ctx, `
		UPDATE rooms SET name = ?, building = ?, floor = ?, capacity = ?, amenities = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		room.Name,
		room.Building,
		room.Floor,
		room.Capacity,
		joinStrings(room.Amenities),
		room.Status,
		formatTime(room.UpdatedAt),
		room.ID,
	)
	if err != nil {
		return mapSQLiteError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetRoom retrieves a room by id.
func (r *RoomRepository) GetRoom(ctx context.Context, id string) (persistence.Room, error) {
	row := r.store.db.QueryRowContext(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = ?`, id)
	room, err := scanRoom(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Room{}, persistence.ErrNotFound
		}
		return persistence.Room{}, err
	}
	return room, nil
}

// ListRooms returns all rooms ordered by building, floor, and name.
func (r *RoomRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	rows, err := r.store.db.QueryContext(ctx,
		`SELECT `+roomColumns+` FROM rooms ORDER BY building, floor, name, id`)
	if err != nil {
		return nil, mapSQLiteError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// DeleteRoom removes a room and, via foreign keys, its bookings.
func (r *RoomRepository) DeleteRoom(ctx context.Context, id string) error {
	result, err := r.store.db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return mapSQLiteError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func scanRoom(scanner rowScanner) (persistence.Room, error) {
	var (
		room      persistence.Room
		amenities string
		createdAt string
		updatedAt string
	)

	err := scanner.Scan(
		&room.ID,
		&room.Name,
		&room.Building,
		&room.Floor,
		&room.Capacity,
		&amenities,
		&room.Status,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return persistence.Room{}, err
		}
		return persistence.Room{}, mapSQLiteError(err)
	}

	room.Amenities = splitStrings(amenities)
	if room.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Room{}, err
	}
	if room.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Room{}, err
	}
	return room, nil
}
