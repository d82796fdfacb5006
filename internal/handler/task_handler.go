package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"tasktracker/internal/errors"
	"tasktracker/internal/service"
)

// TaskHandler handles the JSON task endpoints.
type TaskHandler struct {
	taskService service.TaskService
}

// NewTaskHandler creates a new task handler.
func NewTaskHandler(taskService service.TaskService) *TaskHandler {
	return &TaskHandler{taskService: taskService}
}

// ResolveResponse reports how many tasks a resolve-all changed.
type ResolveResponse struct {
	Resolved int64 `json:"resolved"`
}

func pathTaskID(c echo.Context) (uint, error) {
	id, ok := parseTaskID(c.Param("id"))
	if !ok {
		return 0, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid task id",
			Code:  "INVALID_TASK_ID",
		})
	}
	return id, nil
}

// ListTasks godoc
// @Summary List all tasks
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Success 200 {array} model.Task
// @Failure 401 {object} errors.ErrorResponse
// @Router /tasks [get]
func (h *TaskHandler) ListTasks(c echo.Context) error {
	tasks, err := h.taskService.ListTasks(c.Request().Context(), CurrentSession(c))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, tasks)
}

// CreateTask godoc
// @Summary Add a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TaskRequest true "Task text"
// @Success 201 {object} model.Task
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /tasks [post]
func (h *TaskHandler) CreateTask(c echo.Context) error {
	var req TaskRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}

	task, err := h.taskService.AddTask(c.Request().Context(), CurrentSession(c), req.Content)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusCreated, task)
}

// ToggleTask godoc
// @Summary Flip a task between open and done
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 200 {object} model.Task
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id}/toggle [post]
func (h *TaskHandler) ToggleTask(c echo.Context) error {
	id, err := pathTaskID(c)
	if err != nil {
		return err
	}

	task, err := h.taskService.ToggleStatus(c.Request().Context(), CurrentSession(c), id)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

// UpdateTask godoc
// @Summary Replace the text of a task
// @Tags tasks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Param request body TaskRequest true "New task text"
// @Success 200 {object} model.Task
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id} [put]
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	id, err := pathTaskID(c)
	if err != nil {
		return err
	}
	var req TaskRequest
	if err := c.Bind(&req); err != nil {
		return invalidBody()
	}

	task, err := h.taskService.EditTask(c.Request().Context(), CurrentSession(c), id, req.Content)
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, task)
}

// DeleteTask godoc
// @Summary Delete a task
// @Tags tasks
// @Security BearerAuth
// @Param id path int true "Task ID"
// @Success 204
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /tasks/{id} [delete]
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	id, err := pathTaskID(c)
	if err != nil {
		return err
	}

	if err := h.taskService.DeleteTask(c.Request().Context(), CurrentSession(c), id); err != nil {
		return apiError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ResolveTasks godoc
// @Summary Mark every task done
// @Tags tasks
// @Produce json
// @Security BearerAuth
// @Success 200 {object} ResolveResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /tasks/resolve [post]
func (h *TaskHandler) ResolveTasks(c echo.Context) error {
	n, err := h.taskService.ResolveAllTasks(c.Request().Context(), CurrentSession(c))
	if err != nil {
		return apiError(c, err)
	}
	return c.JSON(http.StatusOK, ResolveResponse{Resolved: n})
}
