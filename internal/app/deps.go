package app

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/management-dashboard/internal/platform/cache"
	"github.com/odyssey-erp/management-dashboard/internal/platform/db"
	"github.com/odyssey-erp/management-dashboard/internal/summary"
)

// Deps holds the connections both binaries share.
type Deps struct {
	Pool   *pgxpool.Pool
	Redis  *redis.Client
	logger *slog.Logger
}

// OpenDeps connects to Postgres and Redis.
func OpenDeps(ctx context.Context, cfg *Config, logger *slog.Logger) (*Deps, error) {
	pool, err := db.New(ctx, cfg.PGDSN, db.Options{
		MaxConns:          cfg.PGMaxConns,
		HealthCheckPeriod: cfg.PGHealthCheckPeriod,
	})
	if err != nil {
		return nil, err
	}
	client, err := cache.New(ctx, cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &Deps{Pool: pool, Redis: client, logger: logger}, nil
}

// Close releases every connection.
func (d *Deps) Close() {
	if d == nil {
		return
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil && d.logger != nil {
			d.logger.Warn("redis close", slog.Any("error", err))
		}
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
}

// AsynqOpts returns the queue connection matching the Redis settings.
func AsynqOpts(cfg *Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
}

// NewSummaryService builds the annual summary service over Postgres with the
// versioned Redis cache in front.
func NewSummaryService(cfg *Config, pool summary.DBTX, client *redis.Client) *summary.Service {
	var c *summary.Cache
	if client != nil {
		c = summary.NewCache(client, cfg.SummaryCacheTTL)
	}
	return summary.NewService(summary.NewPGRepository(pool), c)
}
