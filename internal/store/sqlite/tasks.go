package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kvasir-labs/parlor/internal/store"
)

// CreateTask creates a task owned by the given user.
func (s *Store) CreateTask(ctx context.Context, userID int64, title, description string) (*store.Task, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO tasks (user_id, title, description) VALUES (?, ?, ?)`,
		userID, title, description)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetTask(ctx, id)
}

// GetTask retrieves a task by ID.
func (s *Store) GetTask(ctx context.Context, id int64) (*store.Task, error) {
	query := `
		SELECT id, user_id, title, description, completed, created_at
		FROM tasks
		WHERE id = ?
	`
	var task store.Task
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.Completed,
		&task.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("query task: %w", err)
	}
	return &task, nil
}

// ListTasks lists the user's tasks, newest first.
func (s *Store) ListTasks(ctx context.Context, userID int64) ([]*store.Task, error) {
	query := `
		SELECT id, user_id, title, description, completed, created_at
		FROM tasks
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*store.Task
	for rows.Next() {
		var task store.Task
		if err := rows.Scan(
			&task.ID,
			&task.UserID,
			&task.Title,
			&task.Description,
			&task.Completed,
			&task.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, &task)
	}
	return tasks, rows.Err()
}

// SetTaskCompleted flips the completed flag and returns the task.
func (s *Store) SetTaskCompleted(ctx context.Context, id int64, completed bool) (*store.Task, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE tasks SET completed = ? WHERE id = ?`, completed, id)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	return s.GetTask(ctx, id)
}

// DeleteTask removes a task by ID.
func (s *Store) DeleteTask(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
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
