package database

import (
	"context"
	"regexp"
	"testing"
	"testing/fstest"

	"unitoku/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestEmbeddedMigrations(t *testing.T) {
	all := Migrations()
	require.GreaterOrEqual(t, len(all), 2)
	assert.Equal(t, 1, all[0].Version)
	assert.Equal(t, "init", all[0].Name)
	assert.Contains(t, all[0].UpScript, "CREATE TABLE IF NOT EXISTS posts")
	assert.NotEmpty(t, all[0].DownScript)
	assert.Equal(t, all[len(all)-1].Version, LatestVersion())

	m, ok := findMigration(all, 2)
	require.True(t, ok)
	assert.Equal(t, "000002_default_categories", m.ID())
	_, ok = findMigration(all, 999)
	assert.False(t, ok)

	all[0].Name = "mutated"
	assert.Equal(t, "init", Migrations()[0].Name)
}

func TestLoadMigrations(t *testing.T) {
	tests := []struct {
		name    string
		files   fstest.MapFS
		want    []int
		wantErr string
	}{
		{
			name: "sorted by version",
			files: fstest.MapFS{
				"m/000010_b.up.sql":   {Data: []byte("B")},
				"m/000010_b.down.sql": {Data: []byte("-B")},
				"m/000002_a.up.sql":   {Data: []byte("A")},
				"m/000002_a.down.sql": {Data: []byte("-A")},
				"m/README.md":         {Data: []byte("ignored")},
			},
			want: []int{2, 10},
		},
		{
			name:    "missing down script",
			files:   fstest.MapFS{"m/000001_a.up.sql": {Data: []byte("A")}},
			wantErr: "down migration",
		},
		{
			name: "bad version",
			files: fstest.MapFS{
				"m/x_a.up.sql":   {Data: []byte("A")},
				"m/x_a.down.sql": {Data: []byte("-A")},
			},
			wantErr: "invalid version",
		},
		{
			name: "duplicate version",
			files: fstest.MapFS{
				"m/000001_a.up.sql":   {Data: []byte("A")},
				"m/000001_a.down.sql": {Data: []byte("-A")},
				"m/1_b.up.sql":        {Data: []byte("B")},
				"m/1_b.down.sql":      {Data: []byte("-B")},
			},
			wantErr: "used by both",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadMigrations(tt.files, "m")
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			versions := make([]int, 0, len(got))
			for _, m := range got {
				versions = append(versions, m.Version)
			}
			assert.Equal(t, tt.want, versions)
		})
	}
}

func TestCheckLedger(t *testing.T) {
	shipped := []Migration{{Version: 1}, {Version: 2}}
	assert.NoError(t, checkLedger(nil, shipped))
	assert.NoError(t, checkLedger([]int{1, 2}, shipped))

	err := checkLedger([]int{1, 7, 3}, shipped)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "000003, 000007")
}

func TestMigrator_ApplyIsTransactional(t *testing.T) {
	db, mock := setupMockDB(t)
	mig := Migration{Version: 3, Name: "things", UpScript: "CREATE TABLE things (id int)"}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(mig.UpScript)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO "migration_logs"`)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()
	require.NoError(t, NewMigrator(db).apply(context.Background(), mig))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("BROKEN")).WillReturnError(assert.AnError)
	mock.ExpectRollback()
	err := NewMigrator(db).apply(context.Background(), Migration{Version: 4, Name: "broken", UpScript: "BROKEN"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migration 000004_broken failed")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrator_PendingAndDown(t *testing.T) {
	db, mock := setupMockDB(t)
	m := &Migrator{db: db, set: Migrations()}
	ledger := regexp.QuoteMeta(`SELECT "version" FROM "migration_logs"`)

	mock.ExpectQuery(ledger).WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1))
	pending, err := m.Pending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, len(Migrations())-1)
	assert.Equal(t, 2, pending[0].Version)

	mock.ExpectQuery(ledger).WillReturnError(assert.AnError)
	_, err = m.Pending(context.Background())
	assert.ErrorIs(t, err, assert.AnError)

	mock.ExpectQuery(ledger).WillReturnRows(sqlmock.NewRows([]string{"version"}))
	_, err = m.Down(context.Background(), 0)
	assert.EqualError(t, err, "no migrations have been applied")

	mock.ExpectQuery(ledger).WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(1))
	_, err = m.Down(context.Background(), 2)
	assert.EqualError(t, err, "migration 2 has not been applied")

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPlanSchema(t *testing.T) {
	tests := []struct {
		name       string
		cfg        config.Config
		wantSQL    bool
		wantAuto   bool
		wantUnsafe bool
		wantErr    bool
	}{
		{"hybrid dev", config.Config{Env: "development"}, true, true, false, false},
		{"hybrid prod", config.Config{Env: "production", DBSchemaMode: "hybrid"}, true, false, false, false},
		{"sql", config.Config{Env: "development", DBSchemaMode: " SQL "}, true, false, false, false},
		{"auto test", config.Config{Env: "test", DBSchemaMode: "auto"}, false, true, false, false},
		{"auto prod refused", config.Config{Env: "production", DBSchemaMode: "auto"}, false, false, false, true},
		{"auto staging forced", config.Config{Env: "Staging", DBSchemaMode: "auto", DBAutoMigrateAllowDestructive: true}, false, true, true, false},
		{"unknown", config.Config{DBSchemaMode: "yolo"}, false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := PlanSchema(&tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, plan.SQL)
			assert.Equal(t, tt.wantAuto, plan.Auto)
			assert.Equal(t, tt.wantUnsafe, plan.Unsafe)
		})
	}
}
