package repository

import (
	"testing"
	"time"

	"unitoku/internal/models"
	"unitoku/internal/testutil"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	return testutil.NewSQLiteDB(t)
}

// setupMockDB returns a gorm postgres handle backed by sqlmock.
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

func createUser(t *testing.T, db *gorm.DB, name string) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.ac.jp", Password: "hash", Grade: 1}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createCategory(t *testing.T, db *gorm.DB, name string, order int) *models.Category {
	t.Helper()
	c := &models.Category{Name: name, Order: order}
	require.NoError(t, db.Create(c).Error)
	return c
}

func createPost(t *testing.T, db *gorm.DB, author *models.User, cat *models.Category, title string, likes int, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{
		Title:      title,
		Content:    "content of " + title,
		UserID:     author.ID,
		CategoryID: cat.ID,
		LikeCount:  likes,
		CreatedAt:  at,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}
