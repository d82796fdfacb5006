package router

import (
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"

	"tasktracker/internal/auth"
	"tasktracker/internal/config"
	"tasktracker/internal/errors"
	"tasktracker/internal/handler"
	"tasktracker/internal/service"
)

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	authService service.AuthService,
	webHandler *handler.WebHandler,
	authHandler *handler.AuthHandler,
	taskHandler *handler.TaskHandler,
) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	// Add validator
	e.Validator = NewValidator()

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// Every page and API call gets a session, anonymous when no valid token is presented.
	sessions := SessionMiddleware(authService, cfg.SessionCookie)

	web := e.Group("", sessions)
	web.GET("/", webHandler.Landing)
	web.GET("/login/", webHandler.LoginPage)
	web.POST("/login/", webHandler.Login)
	web.GET("/register", webHandler.RegisterPage)
	web.POST("/register", webHandler.Register)
	web.GET("/logout/", webHandler.Logout)

	web.GET("/home", webHandler.Tasks, requireWebSession)
	web.POST("/task", webHandler.AddTask, requireWebSession)
	web.POST("/toggle", webHandler.ToggleTask, requireWebSession)
	web.POST("/edit", webHandler.EditTask, requireWebSession)
	web.GET("/delete/:id", webHandler.DeleteTask, requireWebSession)
	web.GET("/finished", webHandler.ResolveTasks, requireWebSession)

	api := e.Group("/api", sessions)

	// Public routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/logout", authHandler.Logout)

	// Secured routes (require an authenticated session)
	secured := api.Group("", requireAPISession)
	secured.GET("/me", authHandler.Me)
	secured.GET("/tasks", taskHandler.ListTasks)
	secured.POST("/tasks", taskHandler.CreateTask)
	secured.POST("/tasks/resolve", taskHandler.ResolveTasks)
	secured.POST("/tasks/:id/toggle", taskHandler.ToggleTask)
	secured.PUT("/tasks/:id", taskHandler.UpdateTask)
	secured.DELETE("/tasks/:id", taskHandler.DeleteTask)
}

// SessionMiddleware resolves the session token from the Authorization header
// or the session cookie and stores the resulting *auth.Session on the context.
func SessionMiddleware(authService service.AuthService, cookieName string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  handler.SessionContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ,cookie:" + cookieName,
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return authService.Authenticate(c.Request().Context(), token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			c.Set(handler.SessionContextKey, &auth.Session{})
			return nil
		},
		ContinueOnIgnoredError: true,
	})
}

func requireWebSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if !handler.CurrentSession(c).Authenticated {
			return c.Redirect(http.StatusFound, handler.PathLogin)
		}
		return next(c)
	}
}

func requireAPISession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := auth.RequireAuthenticated(handler.CurrentSession(c)); err != nil {
			httpErr := errors.MapErrorToHTTP(err)
			return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
		}
		return next(c)
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator reports field errors under their form (or JSON) names.
func NewValidator() *CustomValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})
	return &CustomValidator{validator: v}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
