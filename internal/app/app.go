// Package app wires the core services to their adapters for the binaries.
package app

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/lorrc/ticket-workflow/internal/adapters/secondary/lock"
	"github.com/lorrc/ticket-workflow/internal/adapters/secondary/postgres"
	"github.com/lorrc/ticket-workflow/internal/config"
	"github.com/lorrc/ticket-workflow/internal/core/ports"
	"github.com/lorrc/ticket-workflow/internal/core/services"
	"github.com/lorrc/ticket-workflow/internal/infrastructure/database"
)

// App holds the wired services and the connections they depend on.
type App struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client // nil when REDIS_ADDR is unset

	Transactions *postgres.TransactionManager
	Tickets      *services.TicketService
	CSV          *services.CSVService
	Automation   *services.AutomationService
}

// New opens the database, picks the run lock and builds the services.
// broadcaster may be nil.
func New(ctx context.Context, cfg *config.Config, broadcaster ports.EventBroadcaster, logger *slog.Logger) (*App, error) {
	pool, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}

	a := &App{Pool: pool}

	var runLock ports.RunLock
	if cfg.Redis.Addr != "" {
		a.Redis, err = lock.NewRedisClient(ctx, lock.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			pool.Close()
			return nil, err
		}
		runLock = lock.NewRedisRunLock(a.Redis, lock.DefaultKey, cfg.Automation.LockTTL, logger)
		logger.Info("automation lock backed by redis", "addr", cfg.Redis.Addr)
	} else {
		runLock = lock.NewLocalRunLock()
		logger.Info("automation lock is process local")
	}

	opts := []services.Option{services.WithLogger(logger)}

	a.Transactions = postgres.NewTransactionManager(pool)
	allocator := services.NewSequenceAllocator(a.Transactions)
	a.Tickets = services.NewTicketService(a.Transactions, allocator, broadcaster, opts...)
	a.CSV = services.NewCSVService(a.Transactions, broadcaster, cfg.Automation.ImportConcurrency, opts...)
	a.Automation = services.NewAutomationService(a.CSV, runLock, opts...)

	return a, nil
}

// ProvisionYear ensures the ticket sequence row for year exists.
func (a *App) ProvisionYear(ctx context.Context, year int) error {
	return a.Transactions.Pooled().Sequences().Provision(ctx, year)
}

// Close releases the connections.
func (a *App) Close() {
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	a.Pool.Close()
}
