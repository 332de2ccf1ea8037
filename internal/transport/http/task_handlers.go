package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/kvasir-labs/parlor/internal/store"
	"github.com/kvasir-labs/parlor/internal/tasks"
)

// TaskHandlers provides the per-user task list endpoints.
type TaskHandlers struct {
	tasks *tasks.Service
	log   *zerolog.Logger
}

// NewTaskHandlers creates a new task handlers instance.
func NewTaskHandlers(taskService *tasks.Service, logger *zerolog.Logger) *TaskHandlers {
	return &TaskHandlers{
		tasks: taskService,
		log:   logger,
	}
}

// TaskResponse represents a task in API responses.
type TaskResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Completed   bool   `json:"completed"`
	CreatedAt   string `json:"created_at"`
}

func taskResponse(t *store.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Completed:   t.Completed,
		CreatedAt:   t.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func taskID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid task id"})
		return 0, false
	}
	return id, true
}

// ListTasks returns the caller's tasks, newest first.
// GET /api/tasks
func (h *TaskHandlers) ListTasks(c *gin.Context) {
	user, ok := mustCurrentUser(c, h.log)
	if !ok {
		return
	}

	list, err := h.tasks.List(c.Request.Context(), user)
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}

	response := make([]TaskResponse, 0, len(list))
	for _, t := range list {
		response = append(response, taskResponse(t))
	}
	c.JSON(http.StatusOK, response)
}

// CreateTaskRequest represents the create task request body.
type CreateTaskRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

// CreateTask adds a task owned by the caller.
// POST /api/tasks
func (h *TaskHandlers) CreateTask(c *gin.Context) {
	user, ok := mustCurrentUser(c, h.log)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create task request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	task, err := h.tasks.Create(c.Request.Context(), user, req.Title, req.Description)
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, taskResponse(task))
}

// ToggleTask flips a task's completed flag.
// POST /api/tasks/:id/toggle
func (h *TaskHandlers) ToggleTask(c *gin.Context) {
	user, ok := mustCurrentUser(c, h.log)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	task, err := h.tasks.Toggle(c.Request.Context(), user, id)
	if err != nil {
		writeAppError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, taskResponse(task))
}

// DeleteTask removes a task.
// DELETE /api/tasks/:id
func (h *TaskHandlers) DeleteTask(c *gin.Context) {
	user, ok := mustCurrentUser(c, h.log)
	if !ok {
		return
	}
	id, ok := taskID(c)
	if !ok {
		return
	}

	if err := h.tasks.Delete(c.Request.Context(), user, id); err != nil {
		writeAppError(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
