package middleware

import (
	"log/slog"
	"strings"
	"time"

	"unitoku/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Logger is the application logger. Records carry the correlation, user and
// trace IDs found on the context they are logged with.
var Logger = observability.GlobalLogger.Logger

// ConfigureLogging rebuilds Logger for env and level and shares it with the
// component loggers in observability.
func ConfigureLogging(env, level string) {
	Logger = observability.NewLogger(env, level)
	observability.UseLogger(Logger)
}

// RequestContext moves the request ID, user ID and trace ID from Fiber locals
// into the request context. Requests without an ID get a fresh one.
func RequestContext() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		rid, _ := c.Locals("requestid").(string)
		if rid == "" {
			rid = observability.GenerateCorrelationID()
		}
		ctx = observability.WithCorrelationID(ctx, rid)
		if uid, ok := c.Locals("userID").(uint); ok {
			ctx = observability.WithUserID(ctx, uid)
		}
		if tid, ok := c.Locals("traceID").(string); ok {
			ctx = observability.WithTraceID(ctx, tid)
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// AccessLog writes one line per request. Probes are skipped; client errors
// log at warn and server errors at error.
func AccessLog() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if strings.HasPrefix(c.Path(), "/health") {
			return c.Next()
		}
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		level := slog.LevelInfo
		switch {
		case err != nil || status >= fiber.StatusInternalServerError:
			level = slog.LevelError
		case status >= fiber.StatusBadRequest:
			level = slog.LevelWarn
		}

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("route", c.Route().Path),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.String("ip", c.IP()),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
		}
		Logger.Log(c.UserContext(), level, "http request", attrs...)
		return err
	}
}
