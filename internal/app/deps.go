// Package app builds the dependencies shared by the binaries.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"wedding-rsvp/internal/cache"
	"wedding-rsvp/internal/config"
	"wedding-rsvp/internal/storage"
)

// Dependencies holds the opened guest store and, when Redis is configured,
// the summary cache. Store already invalidates the cache on writes.
type Dependencies struct {
	Store        storage.Store
	SummaryCache cache.SummaryCache

	redis *redis.Client
}

// Setup opens the configured storage driver and the optional Redis cache.
func Setup(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Dependencies, error) {
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	deps := &Dependencies{Store: store}

	if cfg.RedisAddr == "" {
		return deps, nil
	}
	client, err := cache.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to establish Redis connection: %w", err)
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("Redis connection established")

	deps.redis = client
	deps.SummaryCache = cache.NewSummaryCache(client, cfg.SummaryCacheTTL)
	deps.Store = cache.NewInvalidatingStore(store, deps.SummaryCache, log)
	return deps, nil
}

func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.Store, error) {
	switch cfg.StorageDriver {
	case "postgres":
		store, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL, log)
		if err != nil {
			return nil, fmt.Errorf("failed to establish database connection: %w", err)
		}
		return store, nil
	default:
		store, err := storage.NewFileStore(cfg.GuestFilePath())
		if err != nil {
			return nil, fmt.Errorf("failed to open guest file: %w", err)
		}
		log.Info().Str("path", cfg.GuestFilePath()).Msg("Using file guest store")
		return store, nil
	}
}

// Close releases the store and the Redis client.
func (d *Dependencies) Close() {
	d.Store.Close()
	if d.redis != nil {
		d.redis.Close()
	}
}
