package bootstrap

import (
	"context"
	"testing"

	"unitoku/internal/config"
	"unitoku/internal/models"
	"unitoku/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepare_SeedsCategoriesAndPromotesAdmins(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()

	staff := models.User{Username: "staff", Email: "staff@example.ac.jp", Password: "x"}
	student := models.User{Username: "student", Email: "student@example.ac.jp", Password: "x"}
	require.NoError(t, db.Create(&staff).Error)
	require.NoError(t, db.Create(&student).Error)

	cfg := &config.Config{AdminEmails: "STAFF@example.ac.jp,ghost@example.ac.jp"}
	require.NoError(t, Prepare(ctx, cfg, db, Options{SeedBuiltIns: true}))
	// Running twice is a no-op.
	require.NoError(t, Prepare(ctx, cfg, db, Options{SeedBuiltIns: true}))

	var def models.Category
	require.NoError(t, db.Where("name = ?", models.DefaultCategoryName).First(&def).Error)

	require.NoError(t, db.First(&staff, staff.ID).Error)
	require.NoError(t, db.First(&student, student.ID).Error)
	assert.True(t, staff.IsAdmin)
	assert.False(t, student.IsAdmin)
}

func TestPrepare_WithoutSeeding(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	require.NoError(t, Prepare(context.Background(), &config.Config{}, db, Options{}))

	var n int64
	require.NoError(t, db.Model(&models.Category{}).Count(&n).Error)
	assert.Zero(t, n)
}
