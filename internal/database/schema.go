package database

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"unitoku/internal/config"
	"unitoku/internal/middleware"

	"gorm.io/gorm"
)

// Values of DB_SCHEMA_MODE.
const (
	SchemaModeHybrid = "hybrid"
	SchemaModeSQL    = "sql"
	SchemaModeAuto   = "auto"
)

// SchemaPlan is what ApplySchema will do for a config.
type SchemaPlan struct {
	Mode     string
	Env      string
	SQL      bool
	Auto     bool
	Unsafe   bool // auto mode forced on a production-like env
	ProdLike bool
}

// SchemaStatus is a SchemaPlan plus the migration bookkeeping.
type SchemaStatus struct {
	SchemaPlan
	AppliedVersions   []int
	PendingMigrations []Migration
}

var prodLikeEnvs = []string{"production", "prod", "staging", "stage"}

// PlanSchema resolves DB_SCHEMA_MODE against the environment. SQL migrations
// are the only schema source in production-like environments unless
// DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE is set.
func PlanSchema(cfg *config.Config) (SchemaPlan, error) {
	plan := SchemaPlan{
		Mode:     strings.ToLower(strings.TrimSpace(cfg.DBSchemaMode)),
		Env:      cfg.Env,
		ProdLike: slices.Contains(prodLikeEnvs, strings.ToLower(strings.TrimSpace(cfg.Env))),
	}
	if plan.Mode == "" {
		plan.Mode = SchemaModeHybrid
	}

	switch plan.Mode {
	case SchemaModeSQL:
		plan.SQL = true
	case SchemaModeHybrid:
		plan.SQL, plan.Auto = true, !plan.ProdLike
	case SchemaModeAuto:
		if plan.ProdLike && !cfg.DBAutoMigrateAllowDestructive {
			return plan, fmt.Errorf("refusing DB_SCHEMA_MODE=auto in %q without DB_AUTOMIGRATE_ALLOW_DESTRUCTIVE=true", cfg.Env)
		}
		plan.Auto, plan.Unsafe = true, plan.ProdLike
	default:
		return plan, fmt.Errorf("unsupported DB_SCHEMA_MODE %q", plan.Mode)
	}
	return plan, nil
}

// AutoMigrate creates or updates every persistent table from the models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(PersistentModels()...)
}

// ApplySchema brings the schema up to date as PlanSchema decides.
func ApplySchema(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return err
	}

	if plan.SQL {
		if _, err := NewMigrator(db).Up(ctx); err != nil {
			return fmt.Errorf("run sql migrations: %w", err)
		}
	}
	if !plan.Auto {
		return nil
	}

	if plan.Unsafe {
		middleware.Logger.WarnContext(ctx, "AutoMigrate enabled on a production-like environment; review schema diffs",
			slog.String("env", plan.Env))
	}
	middleware.Logger.InfoContext(ctx, "Running GORM AutoMigrate", slog.String("mode", plan.Mode), slog.String("env", plan.Env))
	if err := AutoMigrate(db.WithContext(ctx)); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// GetSchemaStatus reports the plan and pending migrations without changing anything.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, cfg *config.Config) (*SchemaStatus, error) {
	plan, err := PlanSchema(cfg)
	if err != nil {
		return nil, err
	}
	status := &SchemaStatus{SchemaPlan: plan}
	if !plan.SQL {
		return status, nil
	}

	migrator := NewMigrator(db)
	if status.AppliedVersions, err = migrator.Applied(ctx); err != nil {
		return nil, err
	}
	if status.PendingMigrations, err = migrator.Pending(ctx); err != nil {
		return nil, err
	}
	return status, nil
}
