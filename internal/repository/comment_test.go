package repository

import (
	"context"
	"testing"
	"time"

	"unitoku/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommentRepository_CountersFollowCreateAndDelete(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	author := createUser(t, db, "author")
	reader := createUser(t, db, "reader")
	cat := createCategory(t, db, "一般", 0)
	post := createPost(t, db, author, cat, "thread", 0, time.Now())

	repo := NewCommentRepository(db)
	parent := &models.Comment{Content: "first", PostID: post.ID, UserID: reader.ID}
	require.NoError(t, repo.Create(ctx, parent))
	reply := &models.Comment{Content: "reply", PostID: post.ID, UserID: author.ID, ParentID: &parent.ID}
	require.NoError(t, repo.Create(ctx, reply))

	var stored models.Post
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Equal(t, 2, stored.CommentCount)

	gotParent, err := repo.GetByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, gotParent.ReplyCount)

	list, err := repo.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Content)
	assert.Equal(t, "reply", list[1].Content)

	require.NoError(t, repo.Delete(ctx, reply.ID))
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Equal(t, 1, stored.CommentCount)
	gotParent, err = repo.GetByID(ctx, parent.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, gotParent.ReplyCount)

	err = repo.Delete(ctx, reply.ID)
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestCommentRepository_DeleteClampsCounters(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	author := createUser(t, db, "author")
	cat := createCategory(t, db, "一般", 0)
	post := createPost(t, db, author, cat, "thread", 0, time.Now())

	// Inserted directly, so comment_count was never incremented.
	c := &models.Comment{Content: "stray", PostID: post.ID, UserID: author.ID}
	require.NoError(t, db.Create(c).Error)

	require.NoError(t, NewCommentRepository(db).Delete(ctx, c.ID))
	var stored models.Post
	require.NoError(t, db.First(&stored, post.ID).Error)
	assert.Equal(t, 0, stored.CommentCount)
}

func TestCommentRepository_UpdateAndListByUser(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	author := createUser(t, db, "author")
	other := createUser(t, db, "other")
	cat := createCategory(t, db, "一般", 0)
	post := createPost(t, db, author, cat, "thread", 0, time.Now())

	repo := NewCommentRepository(db)
	mine := &models.Comment{Content: "typo", PostID: post.ID, UserID: author.ID}
	require.NoError(t, repo.Create(ctx, mine))
	require.NoError(t, repo.Create(ctx, &models.Comment{Content: "theirs", PostID: post.ID, UserID: other.ID}))

	mine.Content = "fixed"
	require.NoError(t, repo.Update(ctx, mine))

	list, err := repo.ListByUser(ctx, author.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "fixed", list[0].Content)
}
