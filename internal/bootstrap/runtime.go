// Package bootstrap wires the process-wide runtime shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"commentboard/internal/cache"
	"commentboard/internal/config"
	"commentboard/internal/database"
	"commentboard/internal/middleware"
	"commentboard/internal/models"
	"commentboard/internal/observability"
	"commentboard/internal/seed"
)

// Options control runtime initialization behavior.
type Options struct {
	// SeedDemo fills an empty development board with generated comments.
	SeedDemo bool
}

// Runtime is what a command needs to serve or operate on the board.
type Runtime struct {
	DB    *gorm.DB
	Redis *redis.Client
	// ShutdownTracing flushes pending spans.
	ShutdownTracing func(context.Context) error
}

// InitRuntime initializes tracing, connects to the database with the
// configured schema policy and connects to Redis. Redis is optional: when it
// is unreachable the runtime carries a nil client.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "commentboard-api",
		ServiceVersion: "1.0.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		return nil, fmt.Errorf("tracing init failed: %w", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("schema apply failed: %w", err)
	}

	var rdb *redis.Client
	if cfg.RedisURL != "" {
		rdb, err = cache.Connect(ctx, cfg.RedisURL)
		if err != nil {
			middleware.Logger.Warn("redis unavailable, continuing without cache", slog.String("error", err.Error()))
			rdb = nil
		}
	}

	if opts.SeedDemo && cfg.Env == "development" {
		if err := seedIfEmpty(ctx, db, cfg); err != nil {
			_ = database.Close(db)
			return nil, fmt.Errorf("failed to seed demo comments: %w", err)
		}
	}

	return &Runtime{DB: db, Redis: rdb, ShutdownTracing: shutdownTracing}, nil
}

func seedIfEmpty(ctx context.Context, db *gorm.DB, cfg *config.Config) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Comment{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	created, err := seed.NewSeeder(db, seed.Options{VoterSalt: cfg.VoterIDSalt}).Run(ctx)
	if err != nil {
		return err
	}
	middleware.Logger.Info("seeded demo comments", slog.Int("count", len(created)))
	return nil
}
