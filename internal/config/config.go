package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort    string
	DBDriver      string
	MySQLDSN      string
	SQLitePath    string
	RedisAddr     string
	RedisDB       int
	RedisPass     string
	SessionSecret string
	SessionTTL    time.Duration
	SessionCookie string
	CookieSecure  bool
	TaskCacheTTL  time.Duration
	SwaggerHost   string
	ResetDB       bool
}

// Load builds Config from environment with sensible defaults.
func Load() *Config {
	return &Config{
		ServerPort:    getEnv("SERVER_PORT", "8080"),
		DBDriver:      getEnv("DB_DRIVER", "mysql"),
		MySQLDSN:      getEnv("MYSQL_DSN", "user:password@tcp(localhost:3306)/tasks?charset=utf8mb4&parseTime=True&loc=Local"),
		SQLitePath:    getEnv("SQLITE_PATH", "tasktracker.db"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPass:     os.Getenv("REDIS_PASSWORD"),
		SessionSecret: getEnv("SESSION_SECRET", "change-me"),
		SessionTTL:    getEnvDuration("SESSION_TTL", 24*time.Hour),
		SessionCookie: getEnv("SESSION_COOKIE", "session"),
		CookieSecure:  getEnvBool("COOKIE_SECURE", false),
		TaskCacheTTL:  getEnvDuration("TASK_CACHE_TTL", time.Minute),
		SwaggerHost:   os.Getenv("SWAGGER_HOST"),
		ResetDB:       getEnvBool("RESET_DB", false),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return def
}
