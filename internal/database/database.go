package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/pradeepmisra81/trudesk/internal/config"

	// Database drivers registered for sqlx.Connect.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
)

// Connect opens and verifies a database connection for the configured
// driver. Queries throughout the codebase are written with ? placeholders
// and rebound through sqlx, so both drivers share the same repositories.
func Connect(cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}
	if driver != "postgres" && driver != "mysql" {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	return db, nil
}
