package repository

import (
	"context"
	"testing"

	"unitoku/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepository_LookupsAndResolve(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	sakura := createUser(t, db, "sakura")

	got, err := repo.GetByEmail(ctx, "  SAKURA@example.ac.jp ")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, sakura.ID, got.ID)

	missing, err := repo.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	byID, err := repo.Resolve(ctx, " 1 ")
	require.NoError(t, err)
	assert.Equal(t, "sakura", byID.Username)

	byEmail, err := repo.Resolve(ctx, "sakura@example.ac.jp")
	require.NoError(t, err)
	assert.Equal(t, sakura.ID, byEmail.ID)

	_, err = repo.Resolve(ctx, "ghost@example.ac.jp")
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestUserRepository_CreateAndUpdateConflicts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	createUser(t, db, "taken")
	ren := createUser(t, db, "ren")

	err := repo.Create(ctx, &models.User{Username: "taken", Email: "other@example.ac.jp", Password: "x", Grade: 1})
	assert.True(t, models.IsCode(err, models.CodeConflict))

	ren.Username = "taken"
	err = repo.Update(ctx, ren)
	assert.True(t, models.IsCode(err, models.CodeConflict))

	ren.Username = "ren2"
	ren.Grade = 3
	require.NoError(t, repo.Update(ctx, ren))
	reloaded, err := repo.GetByID(ctx, ren.ID)
	require.NoError(t, err)
	assert.Equal(t, "ren2", reloaded.Username)
	assert.Equal(t, 3, reloaded.Grade)
}

func TestUserRepository_AdminRoles(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	a := createUser(t, db, "aoi")
	b := createUser(t, db, "haru")
	createUser(t, db, "yui")

	require.NoError(t, repo.SetAdmin(ctx, a.ID, true))
	err := repo.SetAdmin(ctx, 999, true)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	n, err := repo.PromoteEmails(ctx, []string{"aoi@example.ac.jp", "haru@example.ac.jp", "ghost@example.ac.jp"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	n, err = repo.PromoteEmails(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	admins, err := repo.ListAdmins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 2)
	assert.Equal(t, []uint{a.ID, b.ID}, []uint{admins[0].ID, admins[1].ID})

	require.NoError(t, repo.SetAdmin(ctx, a.ID, false))
	reloaded, err := repo.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsAdmin)
}
