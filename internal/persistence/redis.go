package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dealerkit/chat-orchestrator/internal/config"
)

// dedupeTTL bounds how long processed webhook message IDs are remembered.
const dedupeTTL = 24 * time.Hour

const dedupeKeyPrefix = "dedupe:msg:"

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// ClaimMessageID marks a gateway message ID as processed. It returns true when
// this call is the first claim, false when the ID was seen before. A nil
// receiver or client claims unconditionally so the webhook path degrades to
// at-least-once handling when Redis is unavailable.
func (r *Redis) ClaimMessageID(ctx context.Context, messageID string) (bool, error) {
	if r == nil || r.Client == nil || messageID == "" {
		return true, nil
	}
	return r.Client.SetNX(ctx, dedupeKeyPrefix+messageID, 1, dedupeTTL).Result()
}

// ReleaseMessageID gives a dedupe claim back. Called when processing failed
// after the claim was taken, so the gateway's redelivery is treated as a
// first delivery instead of being dropped.
func (r *Redis) ReleaseMessageID(ctx context.Context, messageID string) error {
	if r == nil || r.Client == nil || messageID == "" {
		return nil
	}
	return r.Client.Del(ctx, dedupeKeyPrefix+messageID).Err()
}
