package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// Rule is a fixed-window quota for one route. Counters live in Redis under
// rl:<Name>:<caller>.
type Rule struct {
	Name   string
	Max    int
	Window time.Duration
	// FailClosed answers 503 when Redis cannot be reached instead of letting
	// the request through.
	FailClosed bool
}

// Quotas for the write-heavy and abuse-prone routes.
var (
	SignupRule           = Rule{Name: "signup", Max: 3, Window: 10 * time.Minute}
	LoginRule            = Rule{Name: "login", Max: 10, Window: 5 * time.Minute}
	SearchRule           = Rule{Name: "search", Max: 20, Window: time.Minute}
	CreatePostRule       = Rule{Name: "create_post", Max: 5, Window: 5 * time.Minute}
	CreateCommentRule    = Rule{Name: "create_comment", Max: 10, Window: time.Minute}
	CreateEvaluationRule = Rule{Name: "create_evaluation", Max: 10, Window: time.Minute}
	SendChatRule         = Rule{Name: "send_chat", Max: 30, Window: time.Minute}
	ImageUploadRule      = Rule{Name: "image_upload", Max: 20, Window: time.Minute}
)

// ErrNoRateStore is returned when limiting is active but no Redis client is set.
var ErrNoRateStore = errors.New("rate limit store unavailable")

// Quota is the outcome of counting one request against a Rule.
type Quota struct {
	Allowed   bool
	Remaining int
	// RetryAfter is the time left in the current window.
	RetryAfter time.Duration
}

// limitingEnabled is false in development and test.
func limitingEnabled() bool {
	switch os.Getenv("APP_ENV") {
	case "", "development", "test":
		return false
	}
	return true
}

// Take counts one request by caller against rule.
func Take(ctx context.Context, rdb *redis.Client, rule Rule, caller string) (Quota, error) {
	if !limitingEnabled() {
		return Quota{Allowed: true, Remaining: rule.Max}, nil
	}
	if rdb == nil {
		return Quota{}, ErrNoRateStore
	}

	key := fmt.Sprintf("rl:%s:%s", rule.Name, caller)
	pipe := rdb.TxPipeline()
	count := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, rule.Window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return Quota{}, err
	}

	used := int(count.Val())
	return Quota{
		Allowed:    used <= rule.Max,
		Remaining:  max(rule.Max-used, 0),
		RetryAfter: max(ttl.Val(), 0),
	}, nil
}

// callerKey identifies the caller by user when authenticated, else by IP.
func callerKey(c *fiber.Ctx) string {
	if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
		return "user:" + strconv.FormatUint(uint64(uid), 10)
	}
	return "ip:" + c.IP()
}

// RateLimit enforces rule per caller and reports the quota in
// X-RateLimit-* headers.
func RateLimit(rdb *redis.Client, rule Rule) fiber.Handler {
	return func(c *fiber.Ctx) error {
		q, err := Take(c.UserContext(), rdb, rule, callerKey(c))
		if err != nil {
			if !rule.FailClosed {
				return c.Next()
			}
			Logger.WarnContext(c.UserContext(), "rate limiter unavailable",
				slog.String("rule", rule.Name),
				slog.String("error", err.Error()),
			)
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "rate limit unavailable",
			})
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(rule.Max))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(q.Remaining))
		if !q.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(q.RetryAfter.Seconds()))))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
