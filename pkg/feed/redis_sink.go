package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of *redis.Client the sink uses.
type RedisClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// RedisSink publishes every event as JSON on a pub/sub channel and keeps the
// latest snapshot under a plain key for late joiners.
type RedisSink struct {
	client      RedisClient
	channel     string
	snapshotKey string
}

func NewRedisSink(client RedisClient, cfg Config) *RedisSink {
	cfg.ApplyDefaults()
	return &RedisSink{client: client, channel: cfg.RedisChannel, snapshotKey: cfg.RedisSnapshotKey}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Send(ctx context.Context, events []Event) error {
	for _, e := range events {
		b, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if err := s.client.Publish(ctx, s.channel, b).Err(); err != nil {
			return fmt.Errorf("publish seq %d: %w", e.Seq, err)
		}
		if e.Type == EventSnapshot {
			if err := s.client.Set(ctx, s.snapshotKey, b, 0).Err(); err != nil {
				return fmt.Errorf("store snapshot seq %d: %w", e.Seq, err)
			}
		}
	}
	return nil
}

// PutJSON stores v under key with no expiry.
func (s *RedisSink) PutJSON(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, key, b, 0).Err()
}
