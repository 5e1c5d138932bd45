package server

import (
	"fmt"
	"net/http"
	"testing"

	"unitoku/internal/cache"
	"unitoku/internal/models"
	"unitoku/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *testEnv) createPost(t *testing.T, token string, body map[string]interface{}) models.Post {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/posts", token, body)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return decode[models.Post](t, resp)
}

func TestCreatePost(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "haruto", false)

	post := env.createPost(t, token, map[string]interface{}{
		"title":    "期末試験の範囲",
		"content":  "線形代数の範囲を知っている人いますか",
		"hashtags": []string{"試験", "#試験", " 線形代数 "},
	})
	assert.NotZero(t, post.ID)
	assert.NotZero(t, post.CategoryID)
	assert.Equal(t, "線形代数の範囲を知っている人いますか\n\n#試験 #線形代数", post.Content)
	assert.Equal(t, "haruto", post.AuthorName)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing title", map[string]interface{}{"content": "x"}},
		{"missing content", map[string]interface{}{"title": "x"}},
		{"unknown category", map[string]interface{}{"title": "x", "content": "y", "category_id": 9999}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.do(t, http.MethodPost, "/api/posts", token, tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}

	resp := env.do(t, http.MethodPost, "/api/posts", "", map[string]interface{}{"title": "x", "content": "y"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAnonymousPostHidesAuthor(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "secret", false)

	post := env.createPost(t, token, map[string]interface{}{
		"title": "相談", "content": "誰にも言えない", "is_anonymous": true,
	})
	assert.True(t, post.IsAnonymous)
	assert.Equal(t, models.AnonymousAuthorName, post.AuthorName)
	assert.Nil(t, post.User)

	resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	got := decode[map[string]interface{}](t, resp)
	assert.NotContains(t, got, "user")
	assert.NotContains(t, got, "user_id")
	assert.Equal(t, models.AnonymousAuthorName, got["author_name"])

	resp = env.do(t, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	list := decode[[]map[string]interface{}](t, resp)
	require.Len(t, list, 1)
	assert.NotContains(t, list[0], "user_id")

	resp = env.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/comments", post.ID), token, map[string]interface{}{
		"content": "自己レス", "is_anonymous": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotContains(t, decode[map[string]interface{}](t, resp), "user_id")

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d/comments", post.ID), "", nil)
	comments := decode[[]map[string]interface{}](t, resp)
	require.Len(t, comments, 1)
	assert.NotContains(t, comments[0], "user_id")
	assert.Equal(t, models.AnonymousAuthorName, comments[0]["author_name"])
}

func TestGetPost_CountsViewsAndRecordsHistory(t *testing.T) {
	env := newTestEnv(t)
	_, author := env.createUser(t, "author", false)
	_, reader := env.createUser(t, "reader", false)
	post := env.createPost(t, author, map[string]interface{}{"title": "学食の新メニュー", "content": "カレーが美味しい"})

	resp := env.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 1, decode[models.Post](t, resp).ViewCount)

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), reader, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 2, decode[models.Post](t, resp).ViewCount)

	resp = env.do(t, http.MethodGet, "/api/history", reader, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	history := decode[[]models.ReadHistoryEntry](t, resp)
	require.Len(t, history, 1)
	assert.Equal(t, post.ID, history[0].PostID)
	assert.Equal(t, "学食の新メニュー", history[0].Title)

	// The anonymous view above recorded nothing.
	resp = env.do(t, http.MethodGet, "/api/history", author, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[[]models.ReadHistoryEntry](t, resp))

	resp = env.do(t, http.MethodDelete, fmt.Sprintf("/api/history/%d", post.ID), reader, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/api/history", reader, nil)
	assert.Empty(t, decode[[]models.ReadHistoryEntry](t, resp))

	resp = env.do(t, http.MethodGet, "/api/posts/424242", reader, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClearReadHistory(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "clearer", false)
	for i := 0; i < 3; i++ {
		p := env.createPost(t, token, map[string]interface{}{"title": fmt.Sprintf("post %d", i), "content": "body"})
		require.Equal(t, http.StatusOK, env.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", p.ID), token, nil).StatusCode)
	}

	resp := env.do(t, http.MethodGet, "/api/history", token, nil)
	history := decode[[]models.ReadHistoryEntry](t, resp)
	require.Len(t, history, 3)
	assert.Equal(t, "post 2", history[0].Title)

	resp = env.do(t, http.MethodDelete, "/api/history", token, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = env.do(t, http.MethodGet, "/api/history", token, nil)
	assert.Empty(t, decode[[]models.ReadHistoryEntry](t, resp))
}

func TestTogglePostLikeAndFavorite(t *testing.T) {
	env := newTestEnv(t)
	_, author := env.createUser(t, "poster", false)
	_, fan := env.createUser(t, "fan", false)
	post := env.createPost(t, author, map[string]interface{}{"title": "サークル勧誘", "content": "テニス部です"})
	likePath := fmt.Sprintf("/api/posts/%d/like", post.ID)

	resp := env.do(t, http.MethodPost, likePath, fan, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, service.LikeResult{Liked: true, LikeCount: 1}, decode[service.LikeResult](t, resp))

	resp = env.do(t, http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), fan, nil)
	assert.True(t, decode[models.Post](t, resp).Liked)

	resp = env.do(t, http.MethodPost, likePath, fan, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, service.LikeResult{Liked: false, LikeCount: 0}, decode[service.LikeResult](t, resp))

	// The first like notified the author.
	resp = env.do(t, http.MethodGet, "/api/notifications/unread", author, nil)
	assert.Equal(t, true, decode[map[string]bool](t, resp)["has_unread"])

	favPath := fmt.Sprintf("/api/posts/%d/favorite", post.ID)
	resp = env.do(t, http.MethodPost, favPath, fan, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[map[string]bool](t, resp)["favorited"])

	resp = env.do(t, http.MethodGet, "/api/favorites", fan, nil)
	favs := decode[[]models.Post](t, resp)
	require.Len(t, favs, 1)
	assert.Equal(t, post.ID, favs[0].ID)

	resp = env.do(t, http.MethodPost, favPath, fan, nil)
	assert.False(t, decode[map[string]bool](t, resp)["favorited"])

	resp = env.do(t, http.MethodPost, "/api/posts/9999/favorite", fan, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp = env.do(t, http.MethodPost, "/api/posts/9999/like", fan, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestUpdateAndDeletePost_Ownership(t *testing.T) {
	env := newTestEnv(t)
	_, owner := env.createUser(t, "owner", false)
	_, other := env.createUser(t, "other", false)
	_, admin := env.createUser(t, "moderator", true)
	post := env.createPost(t, owner, map[string]interface{}{"title": "old", "content": "body"})
	path := fmt.Sprintf("/api/posts/%d", post.ID)

	resp := env.do(t, http.MethodPut, path, other, map[string]interface{}{"title": "hijacked"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPut, path, owner, map[string]interface{}{"title": "new"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	updated := decode[models.Post](t, resp)
	assert.Equal(t, "new", updated.Title)
	assert.Equal(t, "body", updated.Content)

	resp = env.do(t, http.MethodDelete, path, other, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodDelete, path, admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Post deleted successfully", decode[map[string]string](t, resp)["message"])

	resp = env.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListSearchAndHotPosts(t *testing.T) {
	env := newTestEnv(t)
	_, token := env.createUser(t, "lister", false)
	first := env.createPost(t, token, map[string]interface{}{"title": "図書館の開館時間", "content": "何時まで?"})
	second := env.createPost(t, token, map[string]interface{}{"title": "バイト募集", "content": "塾講師です"})

	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/like", first.ID), token, nil).StatusCode)

	resp := env.do(t, http.MethodGet, "/api/posts", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	posts := decode[[]models.Post](t, resp)
	require.Len(t, posts, 2)
	assert.Equal(t, second.ID, posts[0].ID)

	resp = env.do(t, http.MethodGet, "/api/posts?sort=likes", "", nil)
	posts = decode[[]models.Post](t, resp)
	require.Len(t, posts, 2)
	assert.Equal(t, first.ID, posts[0].ID)

	resp = env.do(t, http.MethodGet, "/api/posts/search?q=図書館", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	posts = decode[[]models.Post](t, resp)
	require.Len(t, posts, 1)
	assert.Equal(t, first.ID, posts[0].ID)

	resp = env.do(t, http.MethodGet, "/api/posts/hot", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	posts = decode[[]models.Post](t, resp)
	require.NotEmpty(t, posts)
	assert.Equal(t, first.ID, posts[0].ID)
	assert.True(t, posts[0].Liked)

	resp = env.do(t, http.MethodGet, "/api/users/me/posts", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, decode[[]models.Post](t, resp), 2)
}

func TestHotPosts_DefaultListingDropsDeletedPost(t *testing.T) {
	env := newTestEnv(t)
	cache.SetClient(env.srv.redis)
	t.Cleanup(func() { cache.SetClient(nil) })

	_, token := env.createUser(t, "trend", false)
	var ids []uint
	for i := 0; i < 7; i++ {
		p := env.createPost(t, token, map[string]interface{}{"title": fmt.Sprintf("hot %d", i), "content": "body"})
		ids = append(ids, p.ID)
	}
	require.Equal(t, http.StatusOK, env.do(t, http.MethodPost, fmt.Sprintf("/api/posts/%d/like", ids[0]), token, nil).StatusCode)

	resp := env.do(t, http.MethodGet, "/api/posts/hot", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	hot := decode[[]models.Post](t, resp)
	require.Len(t, hot, 5)
	assert.Equal(t, ids[0], hot[0].ID)
	assert.True(t, env.mr.Exists("posts:hot:5"))

	require.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, fmt.Sprintf("/api/posts/%d", ids[0]), token, nil).StatusCode)

	resp = env.do(t, http.MethodGet, "/api/posts/hot", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	for _, p := range decode[[]models.Post](t, resp) {
		assert.NotEqual(t, ids[0], p.ID)
	}
}
