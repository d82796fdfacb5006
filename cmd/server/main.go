package main

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	_ "tasktracker/docs" // swagger docs

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"tasktracker/internal/auth"
	"tasktracker/internal/cache"
	"tasktracker/internal/config"
	"tasktracker/internal/db"
	"tasktracker/internal/handler"
	"tasktracker/internal/repository"
	"tasktracker/internal/router"
	"tasktracker/internal/service"
	"tasktracker/internal/view"
)

// @title Task Tracker API
// @version 1.0
// @description Shared task list with session based authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.
func main() {
	cfg := config.Load()

	e := echo.New()
	e.Use(middleware.RequestID())

	renderer, err := view.New()
	if err != nil {
		log.Fatalf("templates: %v", err)
	}
	e.Renderer = renderer

	gormDB, err := db.Open(cfg)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	if cfg.ResetDB {
		log.Println("RESET_DB=true detected, dropping all tables...")
		if err := db.Reset(gormDB); err != nil {
			log.Printf("Warning: failed to drop tables: %v", err)
		}
		log.Println("Tables dropped")
	}

	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()
	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := cacheClient.Ping(pingCtx); err != nil {
		log.Printf("Warning: redis unavailable at %s, logout revocation and task caching are degraded: %v", cfg.RedisAddr, err)
	}
	cancel()

	// Initialize repositories
	taskRepo := repository.NewTaskRepository(gormDB)
	userRepo := repository.NewUserRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.SessionSecret, cfg.SessionTTL)
	sessionStore := auth.NewSessionStore(cacheClient)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, sessionStore)
	taskService := service.NewTaskService(taskRepo, cacheClient, cfg.TaskCacheTTL)

	// Initialize handlers
	cookie := handler.SessionCookie{Name: cfg.SessionCookie, Secure: cfg.CookieSecure}
	webHandler := handler.NewWebHandler(authService, taskService, cookie)
	authHandler := handler.NewAuthHandler(authService)
	taskHandler := handler.NewTaskHandler(taskService)

	// Register routes
	router.Register(
		e,
		cfg,
		authService,
		webHandler,
		authHandler,
		taskHandler,
	)

	log.Printf("Swagger documentation available at: %s", swaggerURL(cfg))

	addr := ":" + cfg.ServerPort
	if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server start: %v", err)
	}
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	// SWAGGER_HOST may already include a scheme
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
