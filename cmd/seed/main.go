package main

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"tasktracker/internal/auth"
	"tasktracker/internal/cache"
	"tasktracker/internal/config"
	"tasktracker/internal/db"
	"tasktracker/internal/errors"
	"tasktracker/internal/repository"
	"tasktracker/internal/service"
)

func main() {
	file := flag.String("file", "", "path to a JSON list of {\"content\", \"done\"} entries")
	url := flag.String("url", "", "URL serving the same JSON list")
	demoUser := flag.Bool("demo-user", false, "also register a demo account")
	demoEmail := flag.String("demo-email", "demo@example.com", "demo account email")
	demoPassword := flag.String("demo-password", "password123", "demo account password")
	flag.Parse()

	if (*file == "") == (*url == "") {
		log.Fatal("exactly one of -file or -url is required")
	}

	log.Println("Starting seed script...")

	// Load configuration
	cfg := config.Load()

	// Connect to database
	gormDB, err := db.Open(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	// Run migrations to ensure schema is up to date
	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	var items []service.SeedTask
	if *file != "" {
		log.Printf("Reading tasks from: %s", *file)
		items, err = readTasksFromFile(*file)
	} else {
		log.Printf("Fetching tasks from: %s", *url)
		items, err = fetchTasksFromAPI(*url)
	}
	if err != nil {
		log.Fatalf("Failed to load tasks: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	log.Println("Seeding tasks into database...")
	seeded, err := service.ImportTasks(ctx, repository.NewTaskRepository(gormDB), cacheClient, items)
	if err != nil {
		log.Fatalf("Failed to seed tasks: %v", err)
	}

	if *demoUser {
		authService := service.NewAuthService(
			repository.NewUserRepository(gormDB),
			auth.NewJWTService(cfg.SessionSecret, cfg.SessionTTL),
			auth.NewSessionStore(cacheClient),
		)
		_, err := authService.Register(ctx, "demo", "demo", *demoEmail, *demoPassword)
		switch {
		case err == nil:
			log.Printf("  - Demo user created: %s", *demoEmail)
		case stderrors.Is(err, errors.ErrUserAlreadyExists):
			log.Printf("  - Demo user already exists: %s", *demoEmail)
		default:
			log.Fatalf("Failed to create demo user: %v", err)
		}
	}

	log.Printf("Seed completed successfully!")
	log.Printf("  - Tasks created: %d", seeded)
}

func readTasksFromFile(path string) ([]service.SeedTask, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open seed file: %w", err)
	}
	defer f.Close()
	return decodeTasks(f)
}

// fetchTasksFromAPI fetches the task list from a remote URL.
func fetchTasksFromAPI(url string) ([]service.SeedTask, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status code: %d", resp.StatusCode)
	}
	return decodeTasks(resp.Body)
}

func decodeTasks(r io.Reader) ([]service.SeedTask, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}

	var items []service.SeedTask
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return items, nil
}
