// Package cache holds the shared Redis client, the key layout, and the
// cache-aside helper used by the repositories.
package cache

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"unitoku/internal/middleware"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

var client *redis.Client

// failed reports whether err is a real failure rather than a miss or an
// optimistic-lock retry.
func failed(err error) bool {
	return err != nil && !errors.Is(err, redis.Nil) && !errors.Is(err, redis.TxFailedErr)
}

// errorCounter feeds RedisErrors for every failed command or pipeline.
type errorCounter struct{}

func (errorCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (errorCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if failed(err) {
			middleware.RedisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (errorCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if failed(err) {
			middleware.RedisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}

// NewClient accepts a redis:// or rediss:// URL, or a bare host:port.
func NewClient(addr string) (*redis.Client, error) {
	opts := &redis.Options{Addr: addr}
	if strings.Contains(addr, "://") {
		var err error
		if opts, err = redis.ParseURL(addr); err != nil {
			return nil, err
		}
	}
	rdb := redis.NewClient(opts)
	rdb.AddHook(errorCounter{})
	return rdb, nil
}

// InitRedis connects the package client and returns it. When Redis cannot
// be reached it returns nil; the API then runs without caching, read
// history, tickets or realtime fan-out.
func InitRedis(addr string) *redis.Client {
	client = nil
	rdb, err := NewClient(addr)
	if err != nil {
		middleware.Logger.Warn("invalid REDIS_URL, running without redis",
			slog.String("addr", addr), slog.String("error", err.Error()))
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("redis unreachable, running without redis", slog.String("error", err.Error()))
		_ = rdb.Close()
		return nil
	}

	middleware.Logger.Info("redis connected", slog.String("addr", rdb.Options().Addr))
	client = rdb
	return client
}

// SetClient replaces the package client; tests point it at miniredis.
func SetClient(rdb *redis.Client) {
	client = rdb
}

// GetClient returns the package client, or nil without Redis.
func GetClient() *redis.Client {
	return client
}
