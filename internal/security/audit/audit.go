package audit

import (
	"context"
	"log/slog"
	"time"
)

type requestIDKey struct{}

// WithRequestID stores the request ID that audit records are tagged with
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID stored in ctx, if any
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// Logger writes security events as structured records
type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger.With(slog.String("component", "audit"))}
}

func (al *Logger) LogAction(ctx context.Context, tenantID, username, action, resource, resourceID, status, details string) {
	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("tenant_id", tenantID),
		slog.String("username", username),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", RequestID(ctx)),
		slog.Time("timestamp", time.Now()),
	)
}

// LogLogin records a login attempt. reason stays internal and is never sent to the client.
func (al *Logger) LogLogin(ctx context.Context, username string, success bool, reason string) {
	status := "success"
	if !success {
		status = "failure"
	}
	al.LogAction(ctx, "", username, "login", "token", "", status, reason)
}

func (al *Logger) LogUserCreated(ctx context.Context, tenantID, actor, userID string) {
	al.LogAction(ctx, tenantID, actor, "create", "user", userID, "success", "")
}

func (al *Logger) LogUserDeleted(ctx context.Context, tenantID, actor, userID string) {
	al.LogAction(ctx, tenantID, actor, "delete", "user", userID, "success", "")
}

func (al *Logger) LogDenied(ctx context.Context, tenantID, username, reason string) {
	al.LogAction(ctx, tenantID, username, "access_denied", "api", "", "denied", reason)
}
