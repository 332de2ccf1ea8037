package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kvasir-labs/parlor/internal/store"
)

const messageColumns = `
	m.id, m.room_id, m.user_id, m.body, m.created_at,
	u.display_name, u.avatar_url
`

// CreateMessage persists a message and returns it with the assigned ID,
// timestamp, and resolved author display fields.
func (s *Store) CreateMessage(ctx context.Context, roomID, userID int64, body string) (*store.Message, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (room_id, user_id, body) VALUES (?, ?, ?)`,
		roomID, userID, body)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.getMessage(ctx, id)
}

func (s *Store) getMessage(ctx context.Context, id int64) (*store.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.id = ?
	`
	var msg store.Message
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID,
		&msg.RoomID,
		&msg.UserID,
		&msg.Body,
		&msg.CreatedAt,
		&msg.AuthorName,
		&msg.AuthorAvatar,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query message: %w", err)
	}
	return &msg, nil
}

// ListMessages returns the room's messages ordered by (created_at, id)
// ascending. limit <= 0 returns everything.
func (s *Store) ListMessages(ctx context.Context, roomID int64, limit int) ([]*store.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages m
		JOIN users u ON u.id = m.user_id
		WHERE m.room_id = ?
		ORDER BY m.created_at, m.id
	`
	args := []any{roomID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	var messages []*store.Message
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.RoomID,
			&msg.UserID,
			&msg.Body,
			&msg.CreatedAt,
			&msg.AuthorName,
			&msg.AuthorAvatar,
		); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	return messages, rows.Err()
}
