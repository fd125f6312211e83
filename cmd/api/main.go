package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	httpAdapter "github.com/lorrc/ticket-workflow/internal/adapters/primary/http"
	mw "github.com/lorrc/ticket-workflow/internal/adapters/primary/http/middleware"
	"github.com/lorrc/ticket-workflow/internal/adapters/primary/websocket"
	"github.com/lorrc/ticket-workflow/internal/app"
	"github.com/lorrc/ticket-workflow/internal/auth"
	"github.com/lorrc/ticket-workflow/internal/config"
	"github.com/lorrc/ticket-workflow/internal/infrastructure/logging"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})
	slog.SetDefault(logger)

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"config", cfg.String(),
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server shutdown complete")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3. Real-time hub and core wiring
	hub := websocket.NewHub(logger)

	application, err := app.New(ctx, cfg, hub, logger)
	if err != nil {
		return err
	}
	defer application.Close()
	logger.Info("database connection established")

	year := time.Now().UTC().Year()
	if err := application.ProvisionYear(ctx, year); err != nil {
		return err
	}
	logger.Info("ticket sequence provisioned", "year", year)

	// 4. Rate Limiters
	var generalRateLimiter, automationRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(ctx, mw.DefaultRateLimiterConfig().
			WithRate(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.BurstSize))
		automationRateLimiter = mw.NewRateLimiter(ctx, mw.AutomationRateLimiterConfig().
			WithRate(cfg.RateLimit.AutomationRPS, cfg.RateLimit.AutomationBurst))
	}

	// 5. Handlers (Primary Adapters)
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL)
	errorHandler := httpAdapter.NewErrorHandler(logger)

	healthHandler := httpAdapter.NewHealthHandler(application.Pool, cfg.App.Version)
	if application.Redis != nil {
		healthHandler.WithChecker("redis", httpAdapter.HealthCheckFunc(func(ctx context.Context) error {
			return application.Redis.Ping(ctx).Err()
		}))
	}

	router := httpAdapter.NewRouter(httpAdapter.RouterDeps{
		Logger:            logger,
		TokenManager:      tokenManager,
		CronSecret:        cfg.Cron.Secret,
		AllowedOrigins:    cfg.CORS.AllowedOrigins,
		GeneralLimiter:    generalRateLimiter,
		AutomationLimiter: automationRateLimiter,
		Health:            healthHandler,
		Tickets:           httpAdapter.NewTicketHandler(application.Tickets, errorHandler, logger),
		CSV:               httpAdapter.NewCSVHandler(application.CSV, errorHandler, logger),
		Automation:        httpAdapter.NewAutomationHandler(application.Automation, errorHandler, logger),
		WebSocket:         httpAdapter.NewWebSocketHandler(hub, tokenManager, cfg, logger),
	})

	// 6. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
