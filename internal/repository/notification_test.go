package repository

import (
	"context"
	"testing"

	"unitoku/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationRepository_Lifecycle(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	me := createUser(t, db, "me")
	other := createUser(t, db, "other")

	repo := NewNotificationRepository(db)

	unread, err := repo.HasUnread(ctx, me.ID)
	require.NoError(t, err)
	assert.False(t, unread)

	first := &models.Notification{UserID: me.ID, Type: models.NotificationLike, Title: "liked"}
	second := &models.Notification{UserID: me.ID, Type: models.NotificationComment, Title: "commented"}
	theirs := &models.Notification{UserID: other.ID, Type: models.NotificationSystem, Title: "welcome"}
	for _, n := range []*models.Notification{first, second, theirs} {
		require.NoError(t, repo.Create(ctx, n))
	}

	list, err := repo.List(ctx, me.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)

	unread, err = repo.HasUnread(ctx, me.ID)
	require.NoError(t, err)
	assert.True(t, unread)

	require.NoError(t, repo.MarkAsRead(ctx, me.ID, first.ID))
	err = repo.MarkAsRead(ctx, me.ID, theirs.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	n, err := repo.MarkAllAsRead(ctx, me.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	unread, err = repo.HasUnread(ctx, me.ID)
	require.NoError(t, err)
	assert.False(t, unread)

	require.NoError(t, repo.Delete(ctx, me.ID, first.ID))
	err = repo.Delete(ctx, me.ID, theirs.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))

	list, err = repo.List(ctx, me.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
