package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"unitoku/internal/middleware"

	"github.com/redis/go-redis/v9"
)

// Aside returns the cached JSON value at key, or calls load, stores its result
// with ttl and returns it. Without Redis it simply calls load.
func Aside[T any](ctx context.Context, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if client == nil {
		return load(ctx)
	}

	raw, err := client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached T
		if uerr := json.Unmarshal(raw, &cached); uerr == nil {
			return cached, nil
		}
		middleware.Logger.WarnContext(ctx, "discarding undecodable cache entry", slog.String("key", key))
	case !errors.Is(err, redis.Nil):
		middleware.Logger.WarnContext(ctx, "cache read failed", slog.String("key", key), slog.String("error", err.Error()))
	}

	val, err := load(ctx)
	if err != nil {
		return zero, err
	}
	if encoded, merr := json.Marshal(val); merr == nil {
		if serr := client.Set(ctx, key, encoded, ttl).Err(); serr != nil {
			middleware.Logger.WarnContext(ctx, "cache write failed", slog.String("key", key), slog.String("error", serr.Error()))
		}
	}
	return val, nil
}
