package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasktracker/internal/auth"
	"tasktracker/internal/cache"
	"tasktracker/internal/config"
	"tasktracker/internal/db/dbtest"
	"tasktracker/internal/handler"
	"tasktracker/internal/model"
	"tasktracker/internal/repository"
	"tasktracker/internal/service"
	"tasktracker/internal/view"
)

type testApp struct {
	e        *echo.Echo
	taskRepo repository.TaskRepository
	redis    *miniredis.Miniredis
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	cacheClient := cache.New(mr.Addr(), "", 0)
	t.Cleanup(func() { _ = cacheClient.Close() })

	gormDB := dbtest.Open(t)
	taskRepo := repository.NewTaskRepository(gormDB)
	userRepo := repository.NewUserRepository(gormDB)

	cfg := &config.Config{SessionCookie: "session"}
	authService := service.NewAuthService(userRepo, auth.NewJWTService("test-secret", time.Hour), auth.NewSessionStore(cacheClient))
	taskService := service.NewTaskService(taskRepo, cacheClient, time.Minute)

	renderer, err := view.New()
	require.NoError(t, err)

	e := echo.New()
	e.Renderer = renderer
	Register(e, cfg, authService,
		handler.NewWebHandler(authService, taskService, handler.SessionCookie{Name: cfg.SessionCookie}),
		handler.NewAuthHandler(authService),
		handler.NewTaskHandler(taskService),
	)
	return &testApp{e: e, taskRepo: taskRepo, redis: mr}
}

// browser keeps cookies between requests the way a user agent would.
type browser struct {
	app     *testApp
	cookies map[string]*http.Cookie
}

func (a *testApp) browser() *browser {
	return &browser{app: a, cookies: make(map[string]*http.Cookie)}
}

func (b *browser) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	b.app.e.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) registerAndLogin(t *testing.T) {
	t.Helper()
	rec := b.do(http.MethodPost, "/register", url.Values{
		"name": {"Ada"}, "username": {"ada"}, "email": {"ada@example.com"}, "password": {"password123"},
	})
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, handler.PathLogin, rec.Header().Get(echo.HeaderLocation))

	rec = b.do(http.MethodPost, "/login/", url.Values{"email": {"ada@example.com"}, "password": {"password123"}})
	require.Equal(t, http.StatusFound, rec.Code)
	require.Equal(t, handler.PathTasks, rec.Header().Get(echo.HeaderLocation))
	require.Contains(t, b.cookies, "session")
}

func (a *testApp) tasks(t *testing.T) []model.Task {
	t.Helper()
	tasks, err := a.taskRepo.List(context.Background())
	require.NoError(t, err)
	return tasks
}

func TestWeb_AnonymousIsRedirectedAndNothingChanges(t *testing.T) {
	app := newTestApp(t)
	require.NoError(t, app.taskRepo.Create(context.Background(), &model.Task{Content: "existing"}))
	before := app.tasks(t)

	anon := app.browser()
	requests := []struct {
		method string
		target string
		form   url.Values
	}{
		{http.MethodGet, "/home", nil},
		{http.MethodPost, "/task", url.Values{"content": {"sneaky"}}},
		{http.MethodPost, "/toggle", url.Values{"task_id": {"1"}}},
		{http.MethodPost, "/edit", url.Values{"task_id": {"1"}, "edit_text": {"changed"}}},
		{http.MethodGet, "/delete/1", nil},
		{http.MethodGet, "/finished", nil},
	}
	for _, r := range requests {
		t.Run(r.method+" "+r.target, func(t *testing.T) {
			rec := anon.do(r.method, r.target, r.form)
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, handler.PathLogin, rec.Header().Get(echo.HeaderLocation))
		})
	}

	assert.Equal(t, before, app.tasks(t))
}

func TestWeb_LandingPage(t *testing.T) {
	app := newTestApp(t)
	b := app.browser()

	rec := b.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "create an account")

	b.registerAndLogin(t)
	rec = b.do(http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, handler.PathTasks, rec.Header().Get(echo.HeaderLocation))
}

func TestWeb_TaskLifecycle(t *testing.T) {
	app := newTestApp(t)
	b := app.browser()
	b.registerAndLogin(t)

	rec := b.do(http.MethodGet, "/home", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "You have successfully logged in.")
	assert.Contains(t, rec.Body.String(), "Nothing to do.")

	rec = b.do(http.MethodPost, "/task", url.Values{"content": {"buy milk"}})
	require.Equal(t, http.StatusFound, rec.Code)
	tasks := app.tasks(t)
	require.Len(t, tasks, 1)
	assert.Equal(t, "buy milk", tasks[0].Content)
	assert.False(t, tasks[0].Done)

	idStr := itoa(tasks[0].ID)

	b.do(http.MethodPost, "/toggle", url.Values{"task_id": {idStr}})
	assert.True(t, app.tasks(t)[0].Done)

	b.do(http.MethodPost, "/edit", url.Values{"task_id": {idStr}, "edit_text": {"buy oat milk"}})
	assert.Equal(t, "buy oat milk", app.tasks(t)[0].Content)

	b.do(http.MethodPost, "/task", url.Values{"content": {"walk dog"}})
	b.do(http.MethodGet, "/finished", nil)
	for _, task := range app.tasks(t) {
		assert.True(t, task.Done)
	}

	rec = b.do(http.MethodGet, "/home", nil)
	assert.Contains(t, rec.Body.String(), "buy oat milk")
	assert.Contains(t, rec.Body.String(), "walk dog")

	b.do(http.MethodGet, "/delete/"+idStr, nil)
	tasks = app.tasks(t)
	require.Len(t, tasks, 1)
	assert.Equal(t, "walk dog", tasks[0].Content)
}

func TestWeb_RecoverableErrorsFlashAndRedirect(t *testing.T) {
	app := newTestApp(t)
	b := app.browser()
	b.registerAndLogin(t)
	b.do(http.MethodGet, "/home", nil)

	tests := []struct {
		name    string
		method  string
		target  string
		form    url.Values
		message string
	}{
		{"empty task", http.MethodPost, "/task", url.Values{"content": {""}}, "Please enter text for your task"},
		{"edit missing task", http.MethodPost, "/edit", url.Values{"task_id": {"999"}, "edit_text": {"x"}}, "Task not found"},
		{"toggle missing task", http.MethodPost, "/toggle", url.Values{"task_id": {"999"}}, "Task not found"},
		{"delete missing task", http.MethodGet, "/delete/999", nil, "Task not found"},
		{"malformed task id", http.MethodPost, "/toggle", url.Values{"task_id": {"abc"}}, "Invalid task id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := b.do(tt.method, tt.target, tt.form)
			require.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, handler.PathTasks, rec.Header().Get(echo.HeaderLocation))

			rec = b.do(http.MethodGet, "/home", nil)
			assert.Contains(t, rec.Body.String(), tt.message)

			// shown once
			rec = b.do(http.MethodGet, "/home", nil)
			assert.NotContains(t, rec.Body.String(), tt.message)
		})
	}
	assert.Empty(t, app.tasks(t))
}

func TestWeb_LoginFailures(t *testing.T) {
	app := newTestApp(t)
	b := app.browser()
	b.registerAndLogin(t)
	b.do(http.MethodGet, "/logout/", nil)

	rec := b.do(http.MethodPost, "/login/", url.Values{"email": {"ada@example.com"}, "password": {"wrong"}})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, handler.PathLogin, rec.Header().Get(echo.HeaderLocation))
	assert.NotContains(t, b.cookies, "session")

	rec = b.do(http.MethodGet, "/login/", nil)
	assert.Contains(t, rec.Body.String(), "Username or Password Incorrect")

	rec = b.do(http.MethodPost, "/login/", url.Values{"email": {"not-an-email"}, "password": {""}})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email address.")
	assert.Contains(t, rec.Body.String(), "This field is required.")
}

func TestWeb_DuplicateRegistration(t *testing.T) {
	app := newTestApp(t)
	b := app.browser()
	b.registerAndLogin(t)

	rec := b.do(http.MethodPost, "/register", url.Values{
		"name": {"Ada L"}, "username": {"ada2"}, "email": {"ada@example.com"}, "password": {"password123"},
	})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, handler.PathSignup, rec.Header().Get(echo.HeaderLocation))

	rec = b.do(http.MethodGet, "/register", nil)
	assert.Contains(t, rec.Body.String(), "user already exists")
}

func TestWeb_RegisterPasswordTooLong(t *testing.T) {
	app := newTestApp(t)
	b := app.browser()

	// caught by the form validator
	rec := b.do(http.MethodPost, "/register", url.Values{
		"name": {"Ada"}, "username": {"ada"}, "email": {"ada@example.com"}, "password": {strings.Repeat("p", 80)},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Must be at most 72 characters.")

	// short enough in characters, too long in bytes
	rec = b.do(http.MethodPost, "/register", url.Values{
		"name": {"Ada"}, "username": {"ada"}, "email": {"ada@example.com"}, "password": {strings.Repeat("é", 40)},
	})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, handler.PathSignup, rec.Header().Get(echo.HeaderLocation))

	rec = b.do(http.MethodGet, "/register", nil)
	assert.Contains(t, rec.Body.String(), "Password must be at most 72 bytes")
}

func TestWeb_LogoutRevokesSession(t *testing.T) {
	app := newTestApp(t)
	b := app.browser()
	b.registerAndLogin(t)
	stolen := *b.cookies["session"]

	rec := b.do(http.MethodGet, "/logout/", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, handler.PathLanding, rec.Header().Get(echo.HeaderLocation))
	assert.NotContains(t, b.cookies, "session")

	// replaying the old cookie must not work
	b.cookies["session"] = &stolen
	rec = b.do(http.MethodGet, "/home", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, handler.PathLogin, rec.Header().Get(echo.HeaderLocation))
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func apiRequest(t *testing.T, app *testApp, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		req = httptest.NewRequest(method, target, strings.NewReader(string(payload)))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.e.ServeHTTP(rec, req)
	return rec
}

func apiLogin(t *testing.T, app *testApp) string {
	t.Helper()
	rec := apiRequest(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Grace", "username": "grace", "email": "grace@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "password123")

	rec = apiRequest(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "grace@example.com", "password": "password123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp handler.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestAPI_RequiresSession(t *testing.T) {
	app := newTestApp(t)

	for _, target := range []string{"/api/tasks", "/api/me"} {
		rec := apiRequest(t, app, http.MethodGet, target, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "UNAUTHENTICATED")
	}

	rec := apiRequest(t, app, http.MethodPost, "/api/tasks", "garbage", map[string]string{"content": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, app.tasks(t))
}

func TestAPI_TaskLifecycle(t *testing.T) {
	app := newTestApp(t)
	token := apiLogin(t, app)

	rec := apiRequest(t, app, http.MethodPost, "/api/tasks", token, map[string]string{"content": "write report"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "write report", created.Content)
	assert.False(t, created.Done)

	taskURL := "/api/tasks/" + itoa(created.ID)

	rec = apiRequest(t, app, http.MethodPost, taskURL+"/toggle", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"done":true`)

	rec = apiRequest(t, app, http.MethodPut, taskURL, token, map[string]string{"content": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "EMPTY_CONTENT")

	rec = apiRequest(t, app, http.MethodPut, taskURL, token, map[string]string{"content": "write final report"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "write final report")

	rec = apiRequest(t, app, http.MethodPost, "/api/tasks", token, map[string]string{"content": "review"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = apiRequest(t, app, http.MethodPost, "/api/tasks/resolve", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"resolved":1}`, rec.Body.String())

	rec = apiRequest(t, app, http.MethodGet, "/api/tasks", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []model.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 2)
	assert.Equal(t, "write final report", listed[0].Content)
	assert.Equal(t, "review", listed[1].Content)

	rec = apiRequest(t, app, http.MethodDelete, taskURL, token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = apiRequest(t, app, http.MethodDelete, taskURL, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "TASK_NOT_FOUND")

	rec = apiRequest(t, app, http.MethodPost, "/api/tasks/abc/toggle", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAPI_LoginRejectsBadCredentials(t *testing.T) {
	app := newTestApp(t)
	apiLogin(t, app)

	rec := apiRequest(t, app, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "grace@example.com", "password": "nope",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_CREDENTIALS")

	rec = apiRequest(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Grace", "username": "grace", "email": "grace@example.com", "password": "password123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestAPI_RegisterPasswordTooLong(t *testing.T) {
	app := newTestApp(t)

	for _, password := range []string{strings.Repeat("p", 80), strings.Repeat("é", 40)} {
		rec := apiRequest(t, app, http.MethodPost, "/api/auth/register", "", map[string]string{
			"name": "Grace", "username": "grace", "email": "grace@example.com", "password": password,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "VALIDATION_ERROR")
	}
}

func TestAPI_LogoutRevokesToken(t *testing.T) {
	app := newTestApp(t)
	token := apiLogin(t, app)

	rec := apiRequest(t, app, http.MethodGet, "/api/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"username":"grace"`)

	rec = apiRequest(t, app, http.MethodPost, "/api/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, app.redis.Keys())

	rec = apiRequest(t, app, http.MethodGet, "/api/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHealthz(t *testing.T) {
	app := newTestApp(t)
	rec := apiRequest(t, app, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestValidator_UsesFormNames(t *testing.T) {
	v := NewValidator()
	err := v.Validate(&handler.LoginRequest{Email: "bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "'email'")
	assert.Contains(t, err.Error(), "'password'")
}
