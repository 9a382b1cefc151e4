/*-------------------------------------------------------------------------
 *
 * log_context.go
 *    Log context helpers for structured logging
 *
 * Provides helpers for consistent structured logging with request_id,
 * workspace_id, user_id, document_id fields across all components.
 *
 * Copyright (c) 2024-2026, AtelierFlow SAS <support@atelierflow.io>
 *
 * IDENTIFICATION
 *    docflow/internal/metrics/log_context.go
 *
 *-------------------------------------------------------------------------
 */

package metrics

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	requestIDKey   contextKey = "request_id"
	workspaceIDKey contextKey = "workspace_id"
	userIDKey      contextKey = "user_id"
	documentIDKey  contextKey = "document_id"
)

/* WithRequestIDLogContext adds request ID to log context */
func WithRequestIDLogContext(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

/* WithWorkspaceIDLogContext adds workspace ID to log context */
func WithWorkspaceIDLogContext(ctx context.Context, workspaceID uuid.UUID) context.Context {
	return context.WithValue(ctx, workspaceIDKey, workspaceID.String())
}

/* WithUserIDLogContext adds user ID to log context */
func WithUserIDLogContext(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, userID.String())
}

/* WithDocumentIDLogContext adds document ID to log context */
func WithDocumentIDLogContext(ctx context.Context, documentID uuid.UUID) context.Context {
	return context.WithValue(ctx, documentIDKey, documentID.String())
}

/* GetRequestIDFromContext gets request ID from context */
func GetRequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

/* GetWorkspaceIDFromContext gets workspace ID from context */
func GetWorkspaceIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(workspaceIDKey).(string); ok {
		return id
	}
	if id, ok := ctx.Value(workspaceIDKey).(uuid.UUID); ok {
		return id.String()
	}
	return ""
}

/* GetUserIDFromContext gets user ID from context */
func GetUserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	if id, ok := ctx.Value(userIDKey).(uuid.UUID); ok {
		return id.String()
	}
	return ""
}

/* GetDocumentIDFromContext gets document ID from context */
func GetDocumentIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(documentIDKey).(string); ok {
		return id
	}
	return ""
}

/* LoggerFromContext creates a zerolog logger with fields from context */
func LoggerFromContext(ctx context.Context) zerolog.Logger {
	logger := *zerolog.Ctx(ctx)
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	/* Add context fields */
	requestID := GetRequestIDFromContext(ctx)
	workspaceID := GetWorkspaceIDFromContext(ctx)
	userID := GetUserIDFromContext(ctx)
	documentID := GetDocumentIDFromContext(ctx)

	if requestID != "" {
		logger = logger.With().Str("request_id", requestID).Logger()
	}
	if workspaceID != "" {
		logger = logger.With().Str("workspace_id", workspaceID).Logger()
	}
	if userID != "" {
		logger = logger.With().Str("user_id", userID).Logger()
	}
	if documentID != "" {
		logger = logger.With().Str("document_id", documentID).Logger()
	}

	return logger
}

/* LogWithContext logs a message with context fields */
func LogWithContext(ctx context.Context, level zerolog.Level, message string, fields map[string]interface{}) {
	logger := LoggerFromContext(ctx)
	event := logger.WithLevel(level)

	for key, value := range fields {
		event = event.Interface(key, value)
	}

	event.Msg(message)
}

/* DebugWithContext logs a debug message with context */
func DebugWithContext(ctx context.Context, message string, fields map[string]interface{}) {
	LogWithContext(ctx, zerolog.DebugLevel, message, fields)
}

/* InfoWithContext logs an info message with context */
func InfoWithContext(ctx context.Context, message string, fields map[string]interface{}) {
	LogWithContext(ctx, zerolog.InfoLevel, message, fields)
}

/* WarnWithContext logs a warning message with context */
func WarnWithContext(ctx context.Context, message string, fields map[string]interface{}) {
	LogWithContext(ctx, zerolog.WarnLevel, message, fields)
}

/* ErrorWithContext logs an error message with context */
func ErrorWithContext(ctx context.Context, message string, err error, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	LogWithContext(ctx, zerolog.ErrorLevel, message, fields)
}
