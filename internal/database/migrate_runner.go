package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"unitoku/internal/middleware"

	"gorm.io/gorm"
)

// MigrationRecord is one row of migration_logs.
type MigrationRecord struct {
	Version   int       `gorm:"primaryKey;autoIncrement:false"`
	Name      string    `gorm:"size:255"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

// TableName implements gorm's Tabler.
func (MigrationRecord) TableName() string {
	return "migration_logs"
}

const migrationLedgerSQL = `
CREATE TABLE IF NOT EXISTS migration_logs (
	version BIGINT PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_migration_logs_applied_at ON migration_logs (applied_at);`

// Migrator applies and reverts the embedded SQL migrations, recording each
// applied version in migration_logs.
type Migrator struct {
	db  *gorm.DB
	set []Migration
}

// NewMigrator returns a Migrator over the embedded migrations.
func NewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{db: db, set: embedded}
}

// Applied returns the recorded versions in ascending order. A missing ledger
// table counts as nothing applied.
func (m *Migrator) Applied(ctx context.Context) ([]int, error) {
	var versions []int
	err := m.db.WithContext(ctx).Model(&MigrationRecord{}).Order("version").Pluck("version", &versions).Error
	switch {
	case err == nil:
		return versions, nil
	case errors.Is(err, gorm.ErrRecordNotFound), ledgerMissing(err):
		return nil, nil
	default:
		return nil, fmt.Errorf("read migration ledger: %w", err)
	}
}

func ledgerMissing(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "no such table") ||
		(strings.Contains(msg, "relation") && strings.Contains(msg, "does not exist"))
}

// Pending returns the migrations not yet applied. It fails when the ledger
// holds versions this build does not ship.
func (m *Migrator) Pending(ctx context.Context) ([]Migration, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return nil, err
	}
	if err := checkLedger(applied, m.set); err != nil {
		return nil, err
	}
	var pending []Migration
	for _, mig := range m.set {
		if !slices.Contains(applied, mig.Version) {
			pending = append(pending, mig)
		}
	}
	return pending, nil
}

// Up applies every pending migration in version order and returns how many ran.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if err := m.db.WithContext(ctx).Exec(migrationLedgerSQL).Error; err != nil {
		return 0, fmt.Errorf("create migration ledger: %w", err)
	}
	pending, err := m.Pending(ctx)
	if err != nil {
		return 0, err
	}
	for i, mig := range pending {
		middleware.Logger.InfoContext(ctx, "applying migration", slog.String("migration", mig.ID()))
		if err := m.apply(ctx, mig); err != nil {
			return i, err
		}
	}
	return len(pending), nil
}

// apply runs the up script and its ledger insert in one transaction.
func (m *Migrator) apply(ctx context.Context, mig Migration) error {
	return m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mig.UpScript).Error; err != nil {
			return fmt.Errorf("migration %s failed: %w", mig.ID(), err)
		}
		if err := tx.Create(&MigrationRecord{Version: mig.Version, Name: mig.Name}).Error; err != nil {
			return fmt.Errorf("record migration %s: %w", mig.ID(), err)
		}
		return nil
	})
}

// Down reverts version, or the latest applied migration when version is 0,
// and returns the reverted version.
func (m *Migrator) Down(ctx context.Context, version int) (int, error) {
	applied, err := m.Applied(ctx)
	if err != nil {
		return 0, err
	}
	if len(applied) == 0 {
		return 0, errors.New("no migrations have been applied")
	}
	if version == 0 {
		version = applied[len(applied)-1]
	}
	if !slices.Contains(applied, version) {
		return 0, fmt.Errorf("migration %d has not been applied", version)
	}
	mig, ok := findMigration(m.set, version)
	if !ok {
		return 0, fmt.Errorf("migration %d is not part of this build", version)
	}

	middleware.Logger.InfoContext(ctx, "reverting migration", slog.String("migration", mig.ID()))
	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(mig.DownScript).Error; err != nil {
			return fmt.Errorf("revert %s: %w", mig.ID(), err)
		}
		return tx.Where("version = ?", version).Delete(&MigrationRecord{}).Error
	})
	return version, err
}

// checkLedger rejects versions recorded by a newer build.
func checkLedger(applied []int, shipped []Migration) error {
	var unknown []string
	for _, v := range applied {
		if !slices.ContainsFunc(shipped, func(m Migration) bool { return m.Version == v }) {
			unknown = append(unknown, fmt.Sprintf("%06d", v))
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	slices.Sort(unknown)
	return fmt.Errorf("migration_logs has versions unknown to this build: %s", strings.Join(unknown, ", "))
}
