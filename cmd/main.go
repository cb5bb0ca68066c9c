package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"golang.org/x/sync/errgroup"

	"github.com/prostaff/match-ingest/config"
	"github.com/prostaff/match-ingest/db"
	"github.com/prostaff/match-ingest/handlers"
	"github.com/prostaff/match-ingest/live"
	"github.com/prostaff/match-ingest/providers"
	"github.com/prostaff/match-ingest/ratelimit"
	"github.com/prostaff/match-ingest/repositories"
	api "github.com/prostaff/match-ingest/routes"
	"github.com/prostaff/match-ingest/scheduler"
	"github.com/prostaff/match-ingest/services"
	"github.com/prostaff/match-ingest/storage"
)

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded",
		slog.Int("port", cfg.ServerPort),
		slog.Any("leagues", cfg.SyncLeagues))

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	logger.Info("database connection established")

	// Снапшоты свипов в Cloudflare R2 (опционально)
	var uploader storage.FileUploader
	if cfg.SnapshotsEnabled() {
		uploader, err = storage.NewCloudflareR2Uploader(storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		})
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Info("sweep snapshots disabled: R2 is not configured")
	}

	// WebSocket-лента событий конвейера
	hub := live.NewHub(logger)

	// Один лимитер на процесс: интервалы обоих источников в одном месте
	limiter := ratelimit.NewIntervalLimiter(map[string]time.Duration{
		providers.SourceEsports:     cfg.EsportsRateLimit,
		providers.SourceLeaguepedia: cfg.LeaguepediaRateLimit,
	})

	esportsClient := providers.NewEsportsClient(providers.EsportsClientConfig{
		APIKey:  cfg.EsportsAPIKey,
		Limiter: limiter,
		Logger:  logger,
	})
	leaguepediaClient := providers.NewLeaguepediaClient(providers.LeaguepediaClientConfig{
		Limiter: limiter,
		Logger:  logger,
	})

	// Репозитории и сервисы
	gameRepo := repositories.NewPostgresGameRepository(dbConn)

	authService := services.NewAuthService(cfg.AdminEmail, cfg.AdminPasswordHash)
	syncService := services.NewSyncService(esportsClient, gameRepo, uploader, hub, logger)
	enrichmentService := services.NewEnrichmentService(leaguepediaClient, gameRepo, hub, logger, cfg.EnrichMaxAttempts)
	gameService := services.NewGameService(gameRepo, logger, cfg.EnrichMaxAttempts)
	logger.Info("services initialized")

	// Планировщик свипов
	var sched *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		sched = scheduler.New(logger,
			scheduler.Sweep{
				Name:     "sync",
				Interval: cfg.SyncInterval,
				Run: func(ctx context.Context) error {
					_, err := syncService.RunAll(ctx, cfg.SyncLeagues, cfg.SyncLimit)
					return err
				},
			},
			scheduler.Sweep{
				Name:     "enrich",
				Interval: cfg.EnrichInterval,
				Run: func(ctx context.Context) error {
					_, err := enrichmentService.RunEnrichment(ctx, cfg.EnrichBatchSize)
					return err
				},
			},
		)
	} else {
		logger.Info("scheduler disabled: sweeps run only on manual trigger")
	}

	// Обработчики HTTP
	authHandler := handlers.NewAuthHandler(authService, cfg.JWTSecretKey)
	gameHandler := handlers.NewGameHandler(gameService)
	statusHandler := handlers.NewStatusHandler(gameService, sched)
	adminHandler := handlers.NewAdminHandler(
		syncService, enrichmentService, gameService,
		cfg.SyncLeagues, cfg.SyncLimit, cfg.EnrichBatchSize,
	)
	webSocketHandler := handlers.NewWebSocketHandler(hub, logger)

	router := chi.NewRouter()
	api.SetupRoutes(router, cfg.JWTSecretKey,
		authHandler, gameHandler, statusHandler, adminHandler, webSocketHandler)
	logger.Info("routes configured")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second, // ручные свипы выполняются в запросе
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(ctx)
		return nil
	})

	if sched != nil {
		g.Go(func() error {
			return sched.Run(ctx)
		})
	}

	g.Go(func() error {
		logger.Info("starting server", slog.String("address", server.Addr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			return server.Close()
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("application exited")
}
