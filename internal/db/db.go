package db

import (
	"fmt"

	"gorm.io/gorm"

	"tasktracker/internal/config"
	"tasktracker/internal/model"
)

// Open connects to the database selected by cfg.DBDriver.
func Open(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case "mysql":
		return NewMySQL(cfg.MySQLDSN)
	case "sqlite":
		return NewSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// Models lists every table owned by the application, in creation order.
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Task{},
	}
}

// Migrate creates or updates the application tables.
func Migrate(gormDB *gorm.DB) error {
	if err := gormDB.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Reset drops every application table. Missing tables are not an error.
func Reset(gormDB *gorm.DB) error {
	models := Models()
	for i := len(models) - 1; i >= 0; i-- {
		if err := gormDB.Migrator().DropTable(models[i]); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	return nil
}

// duplicate keys surface as gorm.ErrDuplicatedKey
func gormConfig() *gorm.Config {
	return &gorm.Config{TranslateError: true}
}
