package services

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// ServiceLogger writes one structured line per service operation
type ServiceLogger struct {
	logger *slog.Logger
}

type LogConfig struct {
	Service   string
	Component string
}

func NewServiceLogger(logger *slog.Logger, config LogConfig) *ServiceLogger {
	return &ServiceLogger{
		logger: logger.With("service", config.Service, "component", config.Component),
	}
}

// outcome classifies an operation result; client mistakes are warnings, not errors
func outcome(err error) (slog.Level, string) {
	switch {
	case err == nil:
		return slog.LevelInfo, "success"
	case IsValidation(err):
		return slog.LevelWarn, "validation_error"
	case IsUnauthorized(err):
		return slog.LevelWarn, "unauthorized"
	case IsConflict(err):
		return slog.LevelWarn, "conflict"
	case IsNotFound(err):
		return slog.LevelInfo, "not_found"
	}
	return slog.LevelError, "error"
}

func (l *ServiceLogger) LogOperation(ctx context.Context, operation, userID string, resourceID uint, resourceType string, duration time.Duration, err error) {
	level, status := outcome(err)

	attrs := []slog.Attr{
		slog.String("operation", operation),
		slog.String("user_id", userID),
		slog.Uint64("resource_id", uint64(resourceID)),
		slog.String("resource_type", resourceType),
		slog.String("status", status),
		slog.Duration("duration", duration),
	}

	var fieldErrs ValidationErrors
	var permErr *PermissionError
	switch {
	case err == nil:
	case errors.As(err, &fieldErrs):
		attrs = append(attrs, slog.String("error", err.Error()), slog.Any("fields", fieldErrs.Fields()))
	case errors.As(err, &permErr):
		attrs = append(attrs, slog.String("error", err.Error()),
			slog.String("action", permErr.Action), slog.String("reason", permErr.Reason))
	default:
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	l.logger.LogAttrs(ctx, level, operation+" "+status, attrs...)
}

// OperationLog times one operation started by WithOperation
type OperationLog struct {
	logger    *ServiceLogger
	ctx       context.Context
	operation string
	userID    string
	start     time.Time
}

func (l *ServiceLogger) WithOperation(ctx context.Context, operation, userID string) *OperationLog {
	return &OperationLog{logger: l, ctx: ctx, operation: operation, userID: userID, start: time.Now()}
}

func (o *OperationLog) LogResult(resourceID uint, resourceType string, err error) {
	o.logger.LogOperation(o.ctx, o.operation, o.userID, resourceID, resourceType, time.Since(o.start), err)
}
