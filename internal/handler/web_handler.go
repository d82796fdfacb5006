package handler

import (
	stderrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"tasktracker/internal/errors"
	"tasktracker/internal/model"
	"tasktracker/internal/service"
	"tasktracker/internal/view"
)

// Paths the HTML handlers redirect to.
const (
	PathLanding = "/"
	PathLogin   = "/login/"
	PathTasks   = "/home"
	PathSignup  = "/register"
)

// Flash texts shown on the HTML pages.
const (
	msgLoggedIn        = "You have successfully logged in."
	msgBadCredentials  = "Username or Password Incorrect"
	msgRegistered      = "You have successfully registered"
	msgLoggedOut       = "You have successfully logged out."
	msgEmptyContent    = "Please enter text for your task"
	msgTaskNotFound    = "Task not found"
	msgInvalidTaskID   = "Invalid task id"
	msgUserExists      = "user already exists"
	msgPasswordTooLong = "Password must be at most 72 bytes"
	msgFormHasProblems = "Please correct the errors below"
)

// WebHandler serves the HTML form pages.
type WebHandler struct {
	authService service.AuthService
	taskService service.TaskService
	cookie      SessionCookie
}

// NewWebHandler creates the HTML handler.
func NewWebHandler(authService service.AuthService, taskService service.TaskService, cookie SessionCookie) *WebHandler {
	return &WebHandler{
		authService: authService,
		taskService: taskService,
		cookie:      cookie,
	}
}

func (h *WebHandler) render(c echo.Context, name string, page view.Page) error {
	page.Session = CurrentSession(c)
	page.Flashes = takeFlashes(c)
	return c.Render(http.StatusOK, name, page)
}

func redirect(c echo.Context, path string) error {
	return c.Redirect(http.StatusFound, path)
}

// Landing sends logged in users to their tasks and shows the landing page otherwise.
func (h *WebHandler) Landing(c echo.Context) error {
	if CurrentSession(c).Authenticated {
		return redirect(c, PathTasks)
	}
	return h.render(c, view.PageIndex, view.Page{})
}

// LoginPage renders the login form.
func (h *WebHandler) LoginPage(c echo.Context) error {
	return h.render(c, view.PageLogin, view.Page{})
}

// Login checks the posted credentials and starts a session.
func (h *WebHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	// invalid forms re-render in place so the entered values and field errors survive
	if err := c.Validate(&req); err != nil {
		addFlash(c, flashDanger, msgFormHasProblems)
		return h.render(c, view.PageLogin, view.Page{
			Form:   map[string]string{"email": req.Email},
			Errors: fieldErrors(err),
		})
	}

	result, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if stderrors.Is(err, errors.ErrInvalidCredentials) {
			addFlash(c, flashDanger, msgBadCredentials)
			return redirect(c, PathLogin)
		}
		c.Logger().Errorf("login: %v", err)
		return err
	}

	h.cookie.set(c, result.Token, result.Session.ExpiresAt)
	addFlash(c, flashSuccess, msgLoggedIn)
	return redirect(c, PathTasks)
}

// RegisterPage renders the registration form.
func (h *WebHandler) RegisterPage(c echo.Context) error {
	return h.render(c, view.PageRegister, view.Page{})
}

// Register creates a credential record. The user still has to log in afterwards.
func (h *WebHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	// re-rendered in place, like the login form
	if err := c.Validate(&req); err != nil {
		addFlash(c, flashDanger, msgFormHasProblems)
		return h.render(c, view.PageRegister, view.Page{
			Form:   map[string]string{"name": req.Name, "username": req.Username, "email": req.Email},
			Errors: fieldErrors(err),
		})
	}

	_, err := h.authService.Register(c.Request().Context(), req.Name, req.Username, req.Email, req.Password)
	if err != nil {
		switch {
		case stderrors.Is(err, errors.ErrUserAlreadyExists):
			addFlash(c, flashDanger, msgUserExists)
			return redirect(c, PathSignup)
		case stderrors.Is(err, errors.ErrPasswordTooLong):
			addFlash(c, flashDanger, msgPasswordTooLong)
			return redirect(c, PathSignup)
		}
		c.Logger().Errorf("register: %v", err)
		return err
	}

	addFlash(c, flashSuccess, msgRegistered)
	return redirect(c, PathLogin)
}

// Logout ends the session, whether or not one was active.
func (h *WebHandler) Logout(c echo.Context) error {
	_ = h.authService.Logout(c.Request().Context(), CurrentSession(c))
	h.cookie.clear(c)
	addFlash(c, flashSuccess, msgLoggedOut)
	return redirect(c, PathLanding)
}

// Tasks renders every task.
func (h *WebHandler) Tasks(c echo.Context) error {
	tasks, err := h.taskService.ListTasks(c.Request().Context(), CurrentSession(c))
	if err != nil {
		return h.taskError(c, err)
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return h.render(c, view.PageIndex, view.Page{Tasks: tasks})
}

// AddTask handles the new task form.
func (h *WebHandler) AddTask(c echo.Context) error {
	_, err := h.taskService.AddTask(c.Request().Context(), CurrentSession(c), c.FormValue("content"))
	if err != nil {
		return h.taskError(c, err)
	}
	return redirect(c, PathTasks)
}

// ToggleTask flips the done flag of the posted task_id.
func (h *WebHandler) ToggleTask(c echo.Context) error {
	id, ok := parseTaskID(c.FormValue("task_id"))
	if !ok {
		return h.invalidTaskID(c)
	}
	if _, err := h.taskService.ToggleStatus(c.Request().Context(), CurrentSession(c), id); err != nil {
		return h.taskError(c, err)
	}
	return redirect(c, PathTasks)
}

// EditTask replaces the text of the posted task_id with edit_text.
func (h *WebHandler) EditTask(c echo.Context) error {
	id, ok := parseTaskID(c.FormValue("task_id"))
	if !ok {
		return h.invalidTaskID(c)
	}
	_, err := h.taskService.EditTask(c.Request().Context(), CurrentSession(c), id, c.FormValue("edit_text"))
	if err != nil {
		return h.taskError(c, err)
	}
	return redirect(c, PathTasks)
}

// DeleteTask removes the task named in the path.
func (h *WebHandler) DeleteTask(c echo.Context) error {
	id, ok := parseTaskID(c.Param("id"))
	if !ok {
		return h.invalidTaskID(c)
	}
	if err := h.taskService.DeleteTask(c.Request().Context(), CurrentSession(c), id); err != nil {
		return h.taskError(c, err)
	}
	return redirect(c, PathTasks)
}

// ResolveTasks marks every task done.
func (h *WebHandler) ResolveTasks(c echo.Context) error {
	if _, err := h.taskService.ResolveAllTasks(c.Request().Context(), CurrentSession(c)); err != nil {
		return h.taskError(c, err)
	}
	return redirect(c, PathTasks)
}

func (h *WebHandler) invalidTaskID(c echo.Context) error {
	addFlash(c, flashDanger, msgInvalidTaskID)
	return redirect(c, PathTasks)
}

// taskError turns expected task errors into a flash and a redirect; anything else is a 500.
func (h *WebHandler) taskError(c echo.Context, err error) error {
	switch {
	case stderrors.Is(err, errors.ErrUnauthenticated):
		return redirect(c, PathLogin)
	case stderrors.Is(err, errors.ErrEmptyContent):
		addFlash(c, flashWarning, msgEmptyContent)
		return redirect(c, PathTasks)
	case stderrors.Is(err, errors.ErrTaskNotFound):
		addFlash(c, flashDanger, msgTaskNotFound)
		return redirect(c, PathTasks)
	default:
		c.Logger().Errorf("task operation: %v", err)
		return err
	}
}
