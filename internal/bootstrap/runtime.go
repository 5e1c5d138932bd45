// Package bootstrap wires the shared runtime dependencies used by the
// server and the command line tools.
package bootstrap

import (
	"context"
	"fmt"
	"log"

	"unitoku/internal/cache"
	"unitoku/internal/config"
	"unitoku/internal/database"
	"unitoku/internal/repository"
	"unitoku/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedBuiltIns bool
}

// InitRuntime connects to DB and Redis and optionally seeds the built-in
// board categories.
func InitRuntime(cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	// r is nil when Redis is unreachable.
	r := cache.InitRedis(cfg.RedisURL)

	if err := Prepare(context.Background(), cfg, db, opts); err != nil {
		return nil, nil, err
	}
	return db, r, nil
}

// Prepare runs the idempotent startup data steps against db.
func Prepare(ctx context.Context, cfg *config.Config, db *gorm.DB, opts Options) error {
	if opts.SeedBuiltIns {
		n, err := seed.Categories(ctx, db, seed.DefaultCatalog())
		if err != nil {
			return fmt.Errorf("failed to seed built-in categories: %w", err)
		}
		if n > 0 {
			log.Printf("seeded %d built-in categories", n)
		}
	}
	if err := promoteAdmins(ctx, cfg, db); err != nil {
		return fmt.Errorf("failed to promote configured admins: %w", err)
	}
	return nil
}

// promoteAdmins grants is_admin to existing accounts listed in ADMIN_EMAILS.
// Accounts that do not exist yet are picked up on a later start.
func promoteAdmins(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	n, err := repository.NewUserRepository(db).PromoteEmails(ctx, cfg.AdminEmailList())
	if err != nil {
		return err
	}
	if n > 0 {
		log.Printf("promoted %d configured admin account(s)", n)
	}
	return nil
}
