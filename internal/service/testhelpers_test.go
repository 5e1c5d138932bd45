package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"unitoku/internal/featureflags"
	"unitoku/internal/models"
	"unitoku/internal/readhistory"
	"unitoku/internal/repository"
	"unitoku/internal/testutil"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// testEnv wires the real repositories over sqlite and miniredis.
type testEnv struct {
	db       *gorm.DB
	mr       *miniredis.Miniredis
	users    repository.UserRepository
	posts    *PostService
	comments *CommentService
	history  *HistoryService
	notify   *NotificationService

	mu       sync.Mutex
	notified []*models.Notification
}

func newTestEnv(t *testing.T, flags string) *testEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	mr, rdb := testutil.NewRedis(t)

	env := &testEnv{db: db, mr: mr, users: repository.NewUserRepository(db)}
	env.notify = NewNotificationService(repository.NewNotificationRepository(db), func(_ context.Context, n *models.Notification) {
		env.mu.Lock()
		defer env.mu.Unlock()
		env.notified = append(env.notified, n)
	})
	env.history = NewHistoryService(readhistory.NewStore(rdb, 3))

	userSvc := NewUserService(env.users)
	interactions := repository.NewInteractionRepository(db)
	ff := featureflags.NewManager(flags)
	env.posts = NewPostService(PostServiceDeps{
		Posts:        repository.NewPostRepository(db),
		Categories:   repository.NewCategoryRepository(db),
		Interactions: interactions,
		Favorites:    repository.NewFavoriteRepository(db),
		History:      env.history,
		Notify:       env.notify,
		Flags:        ff,
		IsAdmin:      userSvc.IsAdmin,
	})
	env.comments = NewCommentService(CommentServiceDeps{
		Comments:     repository.NewCommentRepository(db),
		Posts:        repository.NewPostRepository(db),
		Users:        env.users,
		Interactions: interactions,
		Notify:       env.notify,
		Flags:        ff,
		IsAdmin:      userSvc.IsAdmin,
	})
	return env
}

func (e *testEnv) notifications() []*models.Notification {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*models.Notification(nil), e.notified...)
}

func (e *testEnv) user(t *testing.T, name string, admin bool) *models.User {
	t.Helper()
	u := &models.User{Username: name, Email: name + "@example.ac.jp", Password: "hash", Grade: 2, IsAdmin: admin}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) category(t *testing.T, name string) *models.Category {
	t.Helper()
	c := &models.Category{Name: name}
	require.NoError(t, e.db.Create(c).Error)
	return c
}

func (e *testEnv) post(t *testing.T, author *models.User, cat *models.Category, title string, likes int, at time.Time) *models.Post {
	t.Helper()
	p := &models.Post{Title: title, Content: "about " + title, UserID: author.ID, CategoryID: cat.ID, LikeCount: likes, CreatedAt: at}
	require.NoError(t, e.db.Create(p).Error)
	return p
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

func assertForbiddenError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeForbidden)
}
