// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Logger wraps slog.Logger so component loggers can share one sink.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is the sink every component logger writes to.
var GlobalLogger = &Logger{Logger: NewLogger(os.Getenv("APP_ENV"), os.Getenv("LOG_LEVEL"))}

// UseLogger swaps the shared sink. Component loggers pick it up on their
// next call.
func UseLogger(l *slog.Logger) {
	GlobalLogger = &Logger{Logger: l}
}

// NewLogger builds the application logger: JSON outside development and
// test, text otherwise. Unknown levels fall back to info.
func NewLogger(env, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	var h slog.Handler
	switch strings.ToLower(env) {
	case "", "development", "test":
		h = slog.NewTextHandler(os.Stdout, opts)
	default:
		h = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(contextHandler{h})
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

type ctxKey int

const (
	correlationKey ctxKey = iota
	userKey
	traceKey
)

// GenerateCorrelationID creates a new unique correlation ID.
func GenerateCorrelationID() string {
	return uuid.NewString()
}

// WithCorrelationID tags ctx with the request's correlation ID.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey, id)
}

// ExtractCorrelationID returns the ID set by WithCorrelationID, or "".
func ExtractCorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey).(string)
	return id
}

// WithUserID tags ctx with the authenticated student.
func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userKey, userID)
}

// WithTraceID tags ctx with the active trace.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceKey, traceID)
}

// contextHandler stamps request-scoped values from ctx onto every record.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := ExtractCorrelationID(ctx); id != "" {
		r.AddAttrs(slog.String("correlation_id", id))
	}
	if uid, ok := ctx.Value(userKey).(uint); ok {
		r.AddAttrs(slog.Uint64("user_id", uint64(uid)))
	}
	if tid, ok := ctx.Value(traceKey).(string); ok {
		r.AddAttrs(slog.String("trace_id", tid))
	}
	return h.Handler.Handle(ctx, r)
}

func (h contextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextHandler{h.Handler.WithAttrs(attrs)}
}

func (h contextHandler) WithGroup(name string) slog.Handler {
	return contextHandler{h.Handler.WithGroup(name)}
}

// LoggingConfig switches the automated component logs on or off.
type LoggingConfig struct {
	EnableRepoLogging    bool
	EnableServiceLogging bool
	EnableWSLogging      bool
}

// Config holds the current logging configuration.
var Config = LoggingConfig{
	EnableRepoLogging:    true,
	EnableServiceLogging: true,
	EnableWSLogging:      true,
}

// fieldAttrs turns a field map into attrs in key order.
func fieldAttrs(fields map[string]interface{}) []any {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, slog.Any(k, fields[k]))
	}
	return out
}

// RepoLogger records writes to one table.
type RepoLogger struct {
	table string
}

// NewRepoLogger creates a RepoLogger for table.
func NewRepoLogger(table string) *RepoLogger {
	return &RepoLogger{table: table}
}

func (l *RepoLogger) write(ctx context.Context, op string, fields map[string]interface{}) {
	if !Config.EnableRepoLogging {
		return
	}
	GlobalLogger.With(slog.String("table", l.table), slog.String("operation", op)).
		InfoContext(ctx, l.table+" "+op, fieldAttrs(fields)...)
}

// LogCreate logs an insert.
func (l *RepoLogger) LogCreate(ctx context.Context, fields map[string]interface{}) {
	l.write(ctx, "create", fields)
}

// LogUpdate logs an update.
func (l *RepoLogger) LogUpdate(ctx context.Context, fields map[string]interface{}) {
	l.write(ctx, "update", fields)
}

// LogDelete logs a delete.
func (l *RepoLogger) LogDelete(ctx context.Context, fields map[string]interface{}) {
	l.write(ctx, "delete", fields)
}

// LogError logs a failed operation. A nil err is ignored.
func (l *RepoLogger) LogError(ctx context.Context, err error, op string) {
	if !Config.EnableRepoLogging || err == nil {
		return
	}
	GlobalLogger.ErrorContext(ctx, l.table+" "+op+" failed",
		slog.String("table", l.table),
		slog.String("operation", op),
		slog.String("error", err.Error()),
	)
}

// WSLogger records realtime connection lifecycle for one hub.
type WSLogger struct {
	hub string
}

// NewWSLogger creates a WSLogger for hub.
func NewWSLogger(hub string) *WSLogger {
	return &WSLogger{hub: hub}
}

func (l *WSLogger) emit(ctx context.Context, level slog.Level, msg string, userID uint, attrs ...any) {
	if !Config.EnableWSLogging {
		return
	}
	attrs = append([]any{slog.String("hub", l.hub), slog.Uint64("user_id", uint64(userID))}, attrs...)
	GlobalLogger.Log(ctx, level, msg, attrs...)
}

// LogConnect logs a new socket for userID.
func (l *WSLogger) LogConnect(ctx context.Context, userID uint) {
	l.emit(ctx, slog.LevelInfo, "websocket connected", userID)
}

// LogDisconnect logs a closed socket.
func (l *WSLogger) LogDisconnect(ctx context.Context, userID uint, reason string) {
	l.emit(ctx, slog.LevelInfo, "websocket disconnected", userID, slog.String("reason", reason))
}

// LogError logs a socket failure during eventType.
func (l *WSLogger) LogError(ctx context.Context, userID uint, err error, eventType string) {
	l.emit(ctx, slog.LevelError, "websocket error", userID,
		slog.String("event_type", eventType),
		slog.String("error", err.Error()),
	)
}

// StructuredLogger logs service-layer calls and their failures.
type StructuredLogger struct{}

// NewStructuredLogger creates a new StructuredLogger instance.
func NewStructuredLogger() *StructuredLogger {
	return &StructuredLogger{}
}

// LogServiceCall logs a completed service method.
func (l *StructuredLogger) LogServiceCall(ctx context.Context, service, method string, fields map[string]interface{}) {
	if !Config.EnableServiceLogging {
		return
	}
	attrs := append([]any{slog.String("service", service), slog.String("method", method)}, fieldAttrs(fields)...)
	GlobalLogger.InfoContext(ctx, service+"."+method, attrs...)
}

// LogServiceError logs a side effect that failed without failing the call.
func (l *StructuredLogger) LogServiceError(ctx context.Context, service, method string, err error) {
	if !Config.EnableServiceLogging || err == nil {
		return
	}
	GlobalLogger.WarnContext(ctx, service+"."+method+" failed",
		slog.String("service", service),
		slog.String("method", method),
		slog.String("error", err.Error()),
	)
}
