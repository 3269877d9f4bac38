package feed

import (
	"fmt"
	"time"
)

type Config struct {
	BufferSize       int           `yaml:"buffer_size" env:"BUFFER_SIZE"` // batches, one per book update
	MaxBatch         int           `yaml:"max_batch" env:"MAX_BATCH"`
	PublishTimeout   time.Duration `yaml:"publish_timeout" env:"PUBLISH_TIMEOUT"`
	SnapshotDepth    int           `yaml:"snapshot_depth" env:"SNAPSHOT_DEPTH"` // 0 = full book
	RedisChannel     string        `yaml:"redis_channel" env:"REDIS_CHANNEL"`
	RedisSnapshotKey string        `yaml:"redis_snapshot_key" env:"REDIS_SNAPSHOT_KEY"`
	KafkaTopic       string        `yaml:"kafka_topic" env:"KAFKA_TOPIC"`
	LogEvents        bool          `yaml:"log_events" env:"LOG_EVENTS"`
}

func (c *Config) ApplyDefaults() {
	if c.BufferSize <= 0 {
		c.BufferSize = 4096
	}
	if c.MaxBatch <= 0 {
		c.MaxBatch = 256
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 2 * time.Second
	}
	if c.RedisChannel == "" {
		c.RedisChannel = "clob.md"
	}
	if c.RedisSnapshotKey == "" {
		c.RedisSnapshotKey = "clob.md.snapshot"
	}
	if c.KafkaTopic == "" {
		c.KafkaTopic = "clob.trades"
	}
}

func (c Config) Validate() error {
	if c.SnapshotDepth < 0 {
		return fmt.Errorf("feed snapshot depth %d must not be negative", c.SnapshotDepth)
	}
	return nil
}
