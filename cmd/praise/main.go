package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/praisehq/praise/internal/app"
	"github.com/praisehq/praise/internal/auth"
	"github.com/praisehq/praise/internal/eventlog"
	"github.com/praisehq/praise/internal/observability"
	"github.com/praisehq/praise/internal/periods"
	"github.com/praisehq/praise/internal/platform/cache"
	"github.com/praisehq/praise/internal/platform/db"
	"github.com/praisehq/praise/internal/praise"
	"github.com/praisehq/praise/internal/rbac"
	"github.com/praisehq/praise/internal/settings"
	"github.com/praisehq/praise/internal/shared"
	"github.com/praisehq/praise/internal/users"
	"github.com/praisehq/praise/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	rbacMiddleware := rbac.Middleware{Logger: logger}

	usersRepo := users.NewRepository(dbpool)
	usersService := users.NewService(usersRepo)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	tokenStore := auth.NewTokenStore(redisClient, cfg.TokenTTL)
	authService := auth.NewService(usersRepo, tokenStore)

	eventRepo := eventlog.NewRepository(dbpool)
	eventService := eventlog.NewService(eventRepo, logger)
	eventHandler := eventlog.NewHandler(logger, eventService, rbacMiddleware)

	settingsRepo := settings.NewRepository(dbpool)
	settingsService := settings.NewService(settingsRepo, redisClient, logger)

	praiseRepo := praise.NewRepository(dbpool)

	periodsRepo := periods.NewRepository(dbpool)
	locker := shared.NewPeriodLocker(redisClient, cfg.PeriodLockTTL)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobsClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(asynq.NewInspector(redisOpts), logger)

	praiseService := praise.NewService(praiseRepo, settingsService, eventService)
	periodsService := periods.NewService(periodsRepo, praiseRepo, praiseService, usersService, settingsService, locker, eventService)
	periodsService.WithObserver(metrics)
	periodsService.WithReminder(jobsClient)
	praiseService.WithPeriods(periodsService)

	exporter := periods.NewExporter(periodsService, usersRepo, settingsService)

	authHandler := auth.NewHandler(logger, authService, eventService)
	praiseHandler := praise.NewHandler(logger, praiseService, rbacMiddleware)
	periodsHandler := periods.NewHandler(logger, periodsService, exporter, rbacMiddleware)
	settingsHandler := settings.NewHandler(logger, settingsService, func(ctx context.Context, periodID uuid.UUID) (string, error) {
		p, err := periodsService.Get(ctx, periodID)
		if err != nil {
			return "", err
		}
		return p.Status, nil
	}, eventService, rbacMiddleware)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AuthService:     authService,
		AuthHandler:     authHandler,
		PeriodsHandler:  periodsHandler,
		PraiseHandler:   praiseHandler,
		UsersHandler:    usersHandler,
		SettingsHandler: settingsHandler,
		EventLogHandler: eventHandler,
		JobsHandler:     jobsHandler,
		Metrics:         metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
