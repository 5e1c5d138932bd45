package database

import (
	"context"
	"fmt"

	"unitoku/internal/config"
	"unitoku/internal/middleware"

	"github.com/jackc/pgx/v5"
)

// maintenanceDB is the database used to issue CREATE DATABASE.
const maintenanceDB = "postgres"

// EnsureDatabase creates cfg.DBName when it does not exist yet. It talks to the
// maintenance database directly with pgx since GORM needs the target to exist.
func EnsureDatabase(ctx context.Context, cfg *config.Config) (created bool, err error) {
	conn, err := pgx.Connect(ctx, DSN(cfg, maintenanceDB))
	if err != nil {
		return false, fmt.Errorf("connect to maintenance database: %w", err)
	}
	defer func() { _ = conn.Close(ctx) }()

	var exists bool
	if err := conn.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)", cfg.DBName).Scan(&exists); err != nil {
		return false, fmt.Errorf("check database %q: %w", cfg.DBName, err)
	}
	if exists {
		return false, nil
	}

	ident := pgx.Identifier{cfg.DBName}.Sanitize()
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+ident+" ENCODING 'UTF8'"); err != nil {
		return false, fmt.Errorf("create database %q: %w", cfg.DBName, err)
	}
	middleware.Logger.InfoContext(ctx, "Database created", "db", cfg.DBName)
	return true, nil
}
