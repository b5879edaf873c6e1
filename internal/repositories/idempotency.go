package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/storefront-labs/commerce-core/internal/config"
)

// IdempotencyStore records webhook event ids before they are processed.
// The payment provider delivers events at least once; a retried delivery of
// an already-claimed event must not create a second order.
type IdempotencyStore interface {
	// Claim returns true if the key was unseen and is now recorded, false if
	// a previous delivery already claimed it.
	Claim(ctx context.Context, eventID string) (bool, error)
}

const webhookEventTTL = 72 * time.Hour

type redisIdempotencyStore struct {
	client *redis.Client
}

func NewRedisClient(cfg *config.Config) (*redis.Client, error) {

	redisURL := cfg.RedisConnect.GetDSN()

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		slog.Error("Failed to parse Redis URL", slog.Any("error", err))
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	opt.DB = cfg.RedisConnect.DB

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Test the connection
	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("Failed to connect to Redis", slog.Any("error", err))
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

func NewIdempotencyStore(client *redis.Client) IdempotencyStore {
	return &redisIdempotencyStore{client: client}
}

// Claim uses SETNX so the record exists before any processing starts; the
// provider's retry window is comfortably inside the key TTL.
func (s *redisIdempotencyStore) Claim(ctx context.Context, eventID string) (bool, error) {

	key := fmt.Sprintf("webhook_event:%s", eventID)

	claimed, err := s.client.SetNX(ctx, key, time.Now().Unix(), webhookEventTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim webhook event %s: %w", eventID, err)
	}

	return claimed, nil
}
