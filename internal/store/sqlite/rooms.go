package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kvasir-labs/parlor/internal/store"
)

// CreateRoom creates a room and adds the owner as its first member.
func (s *Store) CreateRoom(ctx context.Context, name, description string, ownerID int64) (*store.Room, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO rooms (name, description, owner_id) VALUES (?, ?, ?)`,
		name, description, ownerID)
	if err != nil {
		return nil, fmt.Errorf("insert room: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO room_members (room_id, user_id) VALUES (?, ?)`,
		id, ownerID); err != nil {
		return nil, fmt.Errorf("insert owner membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return s.GetRoomByID(ctx, id)
}

// GetRoomByID retrieves a room by ID.
func (s *Store) GetRoomByID(ctx context.Context, id int64) (*store.Room, error) {
	query := `
		SELECT id, name, description, owner_id, created_at
		FROM rooms
		WHERE id = ?
	`
	var room store.Room
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&room.ID,
		&room.Name,
		&room.Description,
		&room.OwnerID,
		&room.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query room: %w", err)
	}
	return &room, nil
}

// ListRooms lists all rooms with member counts.
func (s *Store) ListRooms(ctx context.Context) ([]*store.RoomSummary, error) {
	query := `
		SELECT r.id, r.name, r.description, r.owner_id, r.created_at,
			(SELECT COUNT(*) FROM room_members m WHERE m.room_id = r.id)
		FROM rooms r
		ORDER BY r.id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query rooms: %w", err)
	}
	defer rows.Close()

	var summaries []*store.RoomSummary
	for rows.Next() {
		var sum store.RoomSummary
		if err := rows.Scan(
			&sum.ID,
			&sum.Name,
			&sum.Description,
			&sum.OwnerID,
			&sum.CreatedAt,
			&sum.MemberCount,
		); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		summaries = append(summaries, &sum)
	}
	return summaries, rows.Err()
}

// AddMember adds a user to a room. Adding an existing member is a no-op.
func (s *Store) AddMember(ctx context.Context, roomID, userID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO room_members (room_id, user_id) VALUES (?, ?)`,
		roomID, userID)
	if err != nil {
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

// IsMember reports whether the user belongs to the room.
func (s *Store) IsMember(ctx context.Context, roomID, userID int64) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM room_members WHERE room_id = ? AND user_id = ?`,
		roomID, userID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query membership: %w", err)
	}
	return true, nil
}
