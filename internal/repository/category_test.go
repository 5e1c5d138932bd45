package repository

import (
	"context"
	"testing"
	"time"

	"unitoku/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCategoryRepository_ListOrderAndCounts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	author := createUser(t, db, "author")
	repo := NewCategoryRepository(db)

	created, err := repo.EnsureDefaults(ctx, []models.Category{
		{Name: "就活", Order: 3},
		{Name: "一般", Order: 0},
		{Name: "授業", Order: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), created)

	again, err := repo.EnsureDefaults(ctx, []models.Category{{Name: "一般"}, {Name: "落とし物", Order: 4}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), again)

	general, err := repo.GetByName(ctx, "一般")
	require.NoError(t, err)
	createPost(t, db, author, general, "x", 0, time.Now())
	createPost(t, db, author, general, "y", 0, time.Now())

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 4)
	assert.Equal(t, "一般", list[0].Name)
	assert.Equal(t, int64(2), list[0].PostCount)
	assert.Equal(t, "授業", list[1].Name)
	assert.Equal(t, "落とし物", list[3].Name)
	assert.Zero(t, list[3].PostCount)
}

func TestCategoryRepository_DuplicateName(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewCategoryRepository(db)

	require.NoError(t, repo.Create(ctx, &models.Category{Name: "サークル"}))
	err := repo.Create(ctx, &models.Category{Name: "サークル"})
	assert.True(t, models.IsCode(err, models.CodeConflict))

	_, err = repo.GetByID(ctx, 999)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestUserRepository_Lookups(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewUserRepository(db)

	u := &models.User{Username: "hana", Email: "hana@example.ac.jp", Password: "hash", Grade: 2}
	require.NoError(t, repo.Create(ctx, u))

	err := repo.Create(ctx, &models.User{Username: "hana2", Email: "hana@example.ac.jp", Password: "hash"})
	assert.True(t, models.IsCode(err, models.CodeConflict))

	byEmail, err := repo.GetByEmail(ctx, "hana@example.ac.jp")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, u.ID, byEmail.ID)

	missing, err := repo.GetByUsername(ctx, "nobody")
	require.NoError(t, err)
	assert.Nil(t, missing)

	u.Department = "Engineering"
	u.Grade = 3
	require.NoError(t, repo.Update(ctx, u))
	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Engineering", got.Department)
	assert.Equal(t, 3, got.Grade)

	users, err := repo.GetByUsernames(ctx, []string{"hana", "nobody"})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
