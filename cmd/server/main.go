package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SAP-F-2025/quiz-service/internal/cache"
	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/gateway"
	"github.com/SAP-F-2025/quiz-service/internal/gradebook"
	"github.com/SAP-F-2025/quiz-service/internal/handlers"
	"github.com/SAP-F-2025/quiz-service/internal/metrics"
	"github.com/SAP-F-2025/quiz-service/internal/middleware"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
	"github.com/SAP-F-2025/quiz-service/internal/repositories/postgres"
	"github.com/SAP-F-2025/quiz-service/internal/services"
	"github.com/SAP-F-2025/quiz-service/internal/storage"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/SAP-F-2025/quiz-service/internal/validator"
	"github.com/SAP-F-2025/quiz-service/pkg"
	"github.com/gin-gonic/gin"
)

func main() {
	loader := config.NewLoader(".")
	cfg, err := loader.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	level := new(slog.LevelVar)
	level.Set(utils.ParseLevel(cfg.Log.Level))
	logger := utils.NewLogger(utils.LogOptions{
		Level:      level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  100,
		MaxBackups: 5,
		MaxAgeDays: 30,
	})
	slog.SetDefault(logger)

	if err := run(cfg, loader, level, logger); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, loader *config.Loader, level *slog.LevelVar, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	if cfg.Tracing.Enabled {
		tp, err := pkg.InitTracer("quiz-service", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			return err
		}
		defer func() {
			if err := tp.Shutdown(context.Background()); err != nil {
				logger.Error("Failed to shutdown tracer provider", "error", err)
			}
		}()
	}
	metrics.Init()

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return err
	}
	repo := postgres.NewRepository(db)

	responseCache, err := newResponseCache(cfg, repo, logger)
	if err != nil {
		return err
	}

	transport, err := newTransport(cfg, logger)
	if err != nil {
		return err
	}
	gw, err := gateway.NewClient(transport, responseCache, gateway.Options{
		CacheEnabled: cfg.Gateway.CacheEnabled,
		CacheTTL:     cfg.Gateway.CacheTTL,
	}, logger)
	if err != nil {
		return err
	}

	store, err := newBlobStore(ctx, cfg)
	if err != nil {
		return err
	}

	mirror := gradebook.NewNoopMirror()
	if cfg.Gradebook.Enabled {
		ags, err := gradebook.NewAGSMirror(gradebook.AGSConfig{
			TokenURL:     cfg.Gradebook.TokenURL,
			ClientID:     cfg.Gradebook.ClientID,
			ClientSecret: cfg.Gradebook.ClientSecret,
			Timeout:      cfg.Gradebook.Timeout,
		})
		if err != nil {
			return err
		}
		mirror = ags
	}

	publisher, err := cfg.Events.CreateEventPublisher(logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	queue, err := cfg.Events.CreateTaskQueue(logger)
	if err != nil {
		return err
	}
	defer queue.Close()

	v := validator.New()
	manager := services.NewServiceManager(services.Dependencies{
		Repo:      repo,
		Logger:    logger,
		Validator: v,
		Gateway:   gw,
		Admin:     gw,
		Store:     store,
		Mirror:    mirror,
		Publisher: publisher,
		Queue:     queue,
		Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
	})

	worker, err := queue.NewRouter(manager.Submission().Handle)
	if err != nil {
		return err
	}
	go func() {
		if err := worker.Run(ctx); err != nil {
			logger.Error("Task router stopped", "error", err)
		}
	}()

	go runMaintenance(ctx, logger, manager.Task(), gw, cfg.Tasks)

	loader.Watch(logger, func(next *config.Config) {
		level.Set(utils.ParseLevel(next.Log.Level))
		gw.SetCacheEnabled(next.Gateway.CacheEnabled)
		logger.Info("Runtime settings applied", "log_level", next.Log.Level, "gateway_cache", next.Gateway.CacheEnabled)
	})

	stopLimiter := make(chan struct{})
	defer close(stopLimiter)

	appLogger := utils.NewSlogLogger(logger)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.LoggerMiddleware(appLogger))
	router.Use(utils.ContextLogger(appLogger))
	if cfg.Tracing.Enabled {
		router.Use(middleware.Tracing())
	}
	router.Use(metrics.MetricsMiddleware())
	router.Use(middleware.CORS(cfg.CORSOrigins))
	router.Use(middleware.Secure())
	router.Use(middleware.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second, stopLimiter))

	handlers.NewHandlerManager(manager, v, appLogger, middleware.NewAuthenticator(cfg.JWTSecret), cfg.Tasks.StaleAfter).SetupRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server running", "port", cfg.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := worker.Close(); err != nil {
		logger.Error("Failed to close task router", "error", err)
	}

	logger.Info("Server exiting")
	return nil
}

// newTransport refuses to start a production server without a usable gateway.
// Elsewhere the service stays up and gateway calls fail with a config error.
func newTransport(cfg *config.Config, logger *slog.Logger) (gateway.Transport, error) {
	var (
		transport gateway.Transport
		err       error
	)
	switch cfg.Gateway.Provider {
	case "openai":
		transport, err = gateway.NewOpenAITransport(cfg.Gateway.Token, cfg.Gateway.Endpoint, cfg.Gateway.OpenAIModel)
	default:
		transport, err = gateway.NewHTTPTransport(cfg.Gateway.Endpoint, cfg.Gateway.Token, cfg.Gateway.Timeout)
	}
	if err != nil {
		if cfg.IsProduction() {
			return nil, fmt.Errorf("gateway %s is not usable: %w", cfg.Gateway.Provider, err)
		}
		logger.Warn("Gateway is not usable", "provider", cfg.Gateway.Provider, "error", err)
		return gateway.NewUnavailableTransport(err), nil
	}
	return transport, nil
}

func newResponseCache(cfg *config.Config, repo repositories.Repository, logger *slog.Logger) (cache.ResponseCache, error) {
	if cfg.Gateway.CacheBackend != "redis" {
		return cache.NewDBResponseCache(repo.Cache()), nil
	}
	client, err := pkg.NewRedisClient(cfg)
	if err != nil {
		return nil, err
	}
	return cache.NewRedisResponseCache(cache.NewRedisCache(client, logger), cfg.Gateway.CacheTTL), nil
}

func newBlobStore(ctx context.Context, cfg *config.Config) (storage.BlobStore, error) {
	if cfg.Storage.Type == "minio" {
		return storage.NewMinioStore(ctx, storage.MinioConfig{
			Endpoint:  cfg.Storage.MinioEndpoint,
			AccessKey: cfg.Storage.MinioAccessKey,
			SecretKey: cfg.Storage.MinioSecretKey,
			Bucket:    cfg.Storage.MinioBucket,
			UseSSL:    cfg.Storage.MinioUseSSL,
		})
	}
	return storage.NewFSStore(cfg.Storage.LocalPath)
}
