// Command migrate runs schema operations for the backend.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"unitoku/internal/config"
	"unitoku/internal/database"
)

var migrationName = regexp.MustCompile(`^[a-z0-9_]+$`)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|auto|status|down|create-db|new> [arg]")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}
	cmd := strings.ToLower(strings.TrimSpace(flag.Arg(0)))

	// new only writes files and needs no database.
	if cmd == "new" {
		return newMigration(flag.Arg(1))
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if cmd == "create-db" {
		created, err := database.EnsureDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		if created {
			log.Printf("database %q created", cfg.DBName)
		} else {
			log.Printf("database %q already exists", cfg.DBName)
		}
		return nil
	}

	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	switch cmd {
	case "up":
		n, err := database.NewMigrator(db).Up(ctx)
		if err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Printf("%d sql migrations applied", n)
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		log.Println("automigrations applied")
	case "status":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		log.Printf("mode=%s env=%s run_sql=%t run_auto=%t applied=%d pending=%d latest=%d",
			status.Mode, status.Env, status.SQL, status.Auto,
			len(status.AppliedVersions), len(status.PendingMigrations), database.LatestVersion())
		for _, m := range status.PendingMigrations {
			log.Printf("pending: %06d_%s", m.Version, m.Name)
		}
	case "down":
		version := 0
		if flag.NArg() >= 2 {
			if version, err = strconv.Atoi(flag.Arg(1)); err != nil {
				return fmt.Errorf("invalid version %q: %w", flag.Arg(1), err)
			}
		}
		reverted, err := database.NewMigrator(db).Down(ctx, version)
		if err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		log.Printf("rolled back migration %d", reverted)
	default:
		return usage()
	}

	return nil
}

// newMigration writes an empty up/down pair numbered after the latest
// embedded migration.
func newMigration(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if !migrationName.MatchString(name) {
		return fmt.Errorf("migration name must match %s", migrationName)
	}
	dir := filepath.Join("internal", "database", "migrations")
	base := fmt.Sprintf("%06d_%s", database.LatestVersion()+1, name)
	for _, suffix := range []string{".up.sql", ".down.sql"} {
		path := filepath.Join(dir, base+suffix)
		if err := os.WriteFile(path, []byte("-- "+base+suffix+"\n"), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
		log.Printf("created %s", path)
	}
	return nil
}
