package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/services"
)

// runMaintenance reaps stale submission tasks and drops expired gateway
// responses once at startup and then every ReapInterval until ctx is done.
func runMaintenance(ctx context.Context, logger *slog.Logger, tasks services.TaskService, gw services.GatewayAdmin, cfg config.TaskConfig) {
	ticker := time.NewTicker(cfg.ReapInterval)
	defer ticker.Stop()

	for {
		maintain(ctx, logger, tasks, gw, cfg.StaleAfter)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func maintain(ctx context.Context, logger *slog.Logger, tasks services.TaskService, gw services.GatewayAdmin, staleAfter time.Duration) {
	if _, err := tasks.ReapStale(ctx, staleAfter); err != nil && ctx.Err() == nil {
		logger.Error("Failed to reap stale tasks", "error", err)
	}
	if gw == nil {
		return
	}
	if _, err := gw.PurgeExpired(ctx); err != nil && ctx.Err() == nil {
		logger.Error("Failed to purge expired gateway responses", "error", err)
	}
}
