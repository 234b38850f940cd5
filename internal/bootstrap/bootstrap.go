// Package bootstrap assembles the application service from configuration. Both binaries
// share it so the server and the CLI always run the same wiring.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"order-desk/internal/ai"
	"order-desk/internal/app"
	"order-desk/internal/config"
	"order-desk/internal/core"
	"order-desk/internal/db"
	"order-desk/internal/idempotency"
	"order-desk/internal/metrics"
	"order-desk/internal/store/memory"
	"order-desk/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Runtime is a wired application plus the resources it holds.
type Runtime struct {
	Service app.ApplicationService
	Pool    *pgxpool.Pool // nil with the memory driver
	Metrics *metrics.Collector

	closers []func()
}

// Close releases the database pool and the idempotency store connection.
func (rt *Runtime) Close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		rt.closers[i]()
	}
}

// Build opens the configured store, migrating Postgres when migrate is set, and wires
// every service on top of it.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, migrate bool) (*Runtime, error) {
	rt := &Runtime{Metrics: metrics.New()}

	var store core.Store
	switch cfg.StoreDriver {
	case "memory":
		logger.Warn("using in-memory store, data is lost on exit")
		store = memory.New()
	default:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: cfg.DBMaxConns, MinConns: min(5, cfg.DBMaxConns)})
		if err != nil {
			return nil, fmt.Errorf("database: %w", err)
		}
		rt.Pool = pool
		rt.closers = append(rt.closers, pool.Close)
		if migrate {
			if err := db.Migrate(ctx, pool); err != nil {
				rt.Close()
				return nil, err
			}
		}
		store = postgres.New(pool)
	}

	var idem idempotency.Store
	if cfg.RedisURL != "" {
		rs, err := idempotency.NewRedisStore(cfg.RedisURL, cfg.IdempotencyTTL)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("redis: %w", err)
		}
		rt.closers = append(rt.closers, func() { _ = rs.Close() })
		idem = rs
	} else {
		idem = idempotency.NewMemoryStore(cfg.IdempotencyTTL)
	}

	var agent ai.OrderDrafter
	if cfg.OpenAIAPIKey != "" {
		agent = ai.NewAgent(cfg.OpenAIAPIKey, cfg.OpenAIModel)
	} else {
		logger.Warn("OPENAI_API_KEY is not set, order drafting is disabled")
	}

	catalog := core.NewCatalogService(store)
	orders := core.NewOrderService(store, cfg.OrderNumberPrefix)
	procurements := core.NewProcurementService(store, catalog)
	placement := core.NewPlacementService(store, catalog, orders, procurements, core.PlacementOptions{
		MaxAttempts:     cfg.PlacementMaxAttempts,
		DefaultCurrency: cfg.DefaultCurrency,
		Logger:          logger,
		Recorder:        rt.Metrics,
	})

	rt.Service = app.NewAppService(app.Services{
		Catalog:         catalog,
		Orders:          orders,
		Procurements:    procurements,
		Placement:       placement,
		Users:           core.NewUserService(store),
		Idempotency:     idem,
		Metrics:         rt.Metrics,
		Agent:           agent,
		DefaultCurrency: cfg.DefaultCurrency,
		Logger:          logger,
	})
	return rt, nil
}
