// Package tasks implements the per-user task list: every task belongs
// to exactly one user, and only that user may see or change it.
package tasks

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kvasir-labs/parlor/internal/apperr"
	"github.com/kvasir-labs/parlor/internal/authz"
	"github.com/kvasir-labs/parlor/internal/store"
)

// Service provides task operations.
type Service struct {
	store store.TaskStore
	log   *zerolog.Logger
}

// NewService builds a task service.
func NewService(st store.TaskStore, logger *zerolog.Logger) *Service {
	return &Service{store: st, log: logger}
}

// List returns the user's tasks, newest first.
func (s *Service) List(ctx context.Context, user *store.User) ([]*store.Task, error) {
	tasks, err := s.store.ListTasks(ctx, user.ID)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "list tasks", err)
	}
	return tasks, nil
}

// Create adds a task owned by user.
func (s *Service) Create(ctx context.Context, user *store.User, title, description string) (*store.Task, error) {
	if strings.TrimSpace(title) == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "title is required")
	}

	task, err := s.store.CreateTask(ctx, user.ID, title, description)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "create task", err)
	}
	return task, nil
}

// loadOwned fetches the task and verifies user may manage it.
func (s *Service) loadOwned(ctx context.Context, user *store.User, id int64) (*store.Task, error) {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "task not found")
		}
		return nil, apperr.Wrap(apperr.KindStorage, "load task", err)
	}
	if !authz.CanPerform(user, authz.ManageTask, task) {
		return nil, apperr.New(apperr.KindUnauthorized, "not your task")
	}
	return task, nil
}

// Toggle flips the task's completed flag.
func (s *Service) Toggle(ctx context.Context, user *store.User, id int64) (*store.Task, error) {
	task, err := s.loadOwned(ctx, user, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.SetTaskCompleted(ctx, id, !task.Completed)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindStorage, "toggle task", err)
	}
	return updated, nil
}

// Delete removes the task.
func (s *Service) Delete(ctx context.Context, user *store.User, id int64) error {
	if _, err := s.loadOwned(ctx, user, id); err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return apperr.Wrap(apperr.KindStorage, "delete task", err)
	}
	return nil
}
