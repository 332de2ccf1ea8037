package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kvasir-labs/parlor/internal/store"
)

// CreateUser creates a new user with hashed password.
func (s *Store) CreateUser(ctx context.Context, username, displayName, passwordHash string, role store.Role) (*store.User, error) {
	if displayName == "" {
		displayName = username
	}
	query := `
		INSERT INTO users (username, display_name, password_hash, role, is_guest)
		VALUES (?, ?, ?, ?, 0)
	`
	result, err := s.db.ExecContext(ctx, query, username, displayName, passwordHash, string(role))
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// CreateGuestUser creates a temporary guest user with session ID.
func (s *Store) CreateGuestUser(ctx context.Context, sessionID string) (*store.User, error) {
	guestUsername := "guest_" + sessionID[:8]

	query := `
		INSERT INTO users (username, display_name, password_hash, role, is_guest, session_id)
		VALUES (?, ?, '', 'user', 1, ?)
	`
	result, err := s.db.ExecContext(ctx, query, guestUsername, guestUsername, sessionID)
	if err != nil {
		return nil, fmt.Errorf("insert guest user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

const userColumns = `id, username, display_name, avatar_url, password_hash, role, is_guest, COALESCE(session_id, ''), created_at`

func scanUser(row interface{ Scan(...any) error }) (*store.User, error) {
	var user store.User
	var role string
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.DisplayName,
		&user.AvatarURL,
		&user.PasswordHash,
		&role,
		&user.IsGuest,
		&user.SessionID,
		&user.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	user.Role = store.Role(role)
	return &user, nil
}

// GetUserByID retrieves a user by ID.
func (s *Store) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// GetUserByUsername retrieves a user by username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query user: %w", err)
	}
	return user, nil
}

// ListUsers lists all users ordered by ID.
func (s *Store) ListUsers(ctx context.Context) ([]*store.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*store.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// SetUserRole changes an account's role. Used by the promote command
// to bootstrap the first admin.
func (s *Store) SetUserRole(ctx context.Context, username string, role store.Role) error {
	result, err := s.db.ExecContext(ctx, `UPDATE users SET role = ? WHERE username = ?`, string(role), username)
	if err != nil {
		return fmt.Errorf("update role: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// DeleteUser removes a user by ID.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}
