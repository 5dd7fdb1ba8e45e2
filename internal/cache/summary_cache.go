// Package cache keeps the dashboard summary in Redis between guest updates.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"wedding-rsvp/internal/models"
)

const summaryKey = "rsvp:summary"

type SummaryCache interface {
	// Get reports false on a miss.
	Get(ctx context.Context) (models.RSVPSummary, bool, error)
	Set(ctx context.Context, summary models.RSVPSummary) error
	Invalidate(ctx context.Context) error
}

type redisSummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSummaryCache(client *redis.Client, ttl time.Duration) SummaryCache {
	return &redisSummaryCache{client: client, ttl: ttl}
}

func (r *redisSummaryCache) Get(ctx context.Context) (models.RSVPSummary, bool, error) {
	raw, err := r.client.Get(ctx, summaryKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var summary models.RSVPSummary
	if err := json.Unmarshal(raw, &summary); err != nil {
		return nil, false, fmt.Errorf("decode cached summary: %w", err)
	}
	return summary, true, nil
}

func (r *redisSummaryCache) Set(ctx context.Context, summary models.RSVPSummary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return r.client.Set(ctx, summaryKey, raw, r.ttl).Err()
}

func (r *redisSummaryCache) Invalidate(ctx context.Context) error {
	return r.client.Del(ctx, summaryKey).Err()
}
