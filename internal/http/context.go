package http

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	classIDContextKey      contextKey = "class_id"
	scheduleIDContextKey   contextKey = "schedule_id"
	occurrenceIDContextKey contextKey = "occurrence_id"
	loggerContextKey       contextKey = "logger"
)

// ContextWithClassID injects the class identifier resolved from the request path.
func ContextWithClassID(ctx context.Context, classID string) context.Context {
	return context.WithValue(ctx, classIDContextKey, classID)
}

// ClassIDFromContext extracts a class identifier previously associated with the context.
func ClassIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(classIDContextKey).(string)
	return id, ok
}

// ContextWithScheduleID injects the schedule identifier resolved from the request path.
func ContextWithScheduleID(ctx context.Context, scheduleID string) context.Context {
	return context.WithValue(ctx, scheduleIDContextKey, scheduleID)
}

// ScheduleIDFromContext extracts a schedule identifier previously associated with the context.
func ScheduleIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(scheduleIDContextKey).(string)
	return id, ok
}

// ContextWithOccurrenceID injects the occurrence identifier resolved from the request path.
func ContextWithOccurrenceID(ctx context.Context, occurrenceID string) context.Context {
	return context.WithValue(ctx, occurrenceIDContextKey, occurrenceID)
}

// OccurrenceIDFromContext extracts an occurrence identifier previously associated with the context.
func OccurrenceIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(occurrenceIDContextKey).(string)
	return id, ok
}

// ContextWithLogger attaches a request scoped logger to the context.
func ContextWithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey, logger)
}

// LoggerFromContext retrieves the request scoped logger if present.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	logger, _ := ctx.Value(loggerContextKey).(*slog.Logger)
	return logger
}
