package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"unitoku/internal/middleware"
)

const (
	UserKeyPrefix        = "user:%d"
	PostKeyPrefix        = "post:%d"
	CategoryListKey      = "categories:all"
	HotPostsKey          = "posts:hot:%d"
	HotPostsPattern      = "posts:hot:*"
	WSTicketKeyPrefix    = "ws_ticket:%s"
	BlacklistKeyPrefix   = "blacklist:%s"
	ReadHistoryKeyPrefix = "read_posts:user:%d"
)

const (
	UserTTL         = 5 * time.Minute
	PostTTL         = 30 * time.Minute
	CategoryListTTL = 10 * time.Minute
	HotPostsTTL     = time.Minute
	WSTicketTTL     = 30 * time.Second
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func HotPostsCacheKey(limit int) string {
	return fmt.Sprintf(HotPostsKey, limit)
}

func WSTicketKey(ticket string) string {
	return fmt.Sprintf(WSTicketKeyPrefix, ticket)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, jti)
}

// ReadHistoryKey is the key holding one user's read-history ledger.
func ReadHistoryKey(userID uint) string {
	return fmt.Sprintf(ReadHistoryKeyPrefix, userID)
}

func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateCategories(ctx context.Context) {
	Invalidate(ctx, CategoryListKey)
}

// InvalidatePost drops the cached post and every hot-post listing, whatever
// its size.
func InvalidatePost(ctx context.Context, postID uint) {
	Invalidate(ctx, PostKey(postID))
	InvalidateMatching(ctx, HotPostsPattern)
}

// InvalidateMatching deletes every key matching pattern.
func InvalidateMatching(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	var keys []string
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		middleware.Logger.WarnContext(ctx, "cache scan failed", slog.String("pattern", pattern), slog.String("error", err.Error()))
		return
	}
	Invalidate(ctx, keys...)
}
