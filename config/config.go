package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/joripage/clob/pkg/feed"
	redis_wrapper "github.com/joripage/clob/pkg/infra/redis"
	kafkawrapper "github.com/joripage/clob/pkg/kafka_wrapper"
	"github.com/joripage/clob/pkg/logging"
	"github.com/joripage/clob/pkg/orderbook"
	"github.com/joripage/clob/pkg/server"
	"github.com/joripage/clob/pkg/stats"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. CLOB_BOOK_SWEEP_MODE.
const EnvPrefix = "CLOB_"

type AppConfig struct {
	ServiceName string `yaml:"service_name" env:"SERVICE_NAME"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL"`

	Book  orderbook.Config      `yaml:"book" envPrefix:"BOOK_"`
	Seed  *orderbook.SeedConfig `yaml:"seed"`
	Feed  feed.Config           `yaml:"feed" envPrefix:"FEED_"`
	HTTP  server.Config         `yaml:"http" envPrefix:"HTTP_"`
	Stats stats.Config          `yaml:"stats" envPrefix:"STATS_"`

	Redis *redis_wrapper.RedisConfig  `yaml:"redis"`
	Kafka *kafkawrapper.ProducerConfig `yaml:"kafka"`
}

// Load load config from file and environment variables.
func Load(filePath string) (*AppConfig, error) {
	// a missing .env is normal outside local development
	_ = godotenv.Load()

	if len(filePath) == 0 {
		filePath = os.Getenv("CONFIG_FILE")
	}

	fields := []interface{}{
		"func",
		"config.readFromFile",
		"filePath",
		filePath,
	}

	sugar := zap.S().With(fields...)

	sugar.Debug("Load config...")
	zap.S().Debugf("CONFIG_FILE=%v", filePath)

	cfg := &AppConfig{Book: *orderbook.DefaultConfig()}
	if filePath != "" {
		configBytes, err := os.ReadFile(filePath)
		if err != nil {
			sugar.Error("Failed to load config file")
			return nil, err
		}
		configBytes = []byte(os.ExpandEnv(string(configBytes)))

		err = yaml.Unmarshal(configBytes, cfg)
		if err != nil {
			sugar.Error("Failed to parse config file")
			return nil, err
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		sugar.Error("Failed to apply environment overrides")
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	zap.S().Debugf("config: %+v", cfg)

	return cfg, nil
}

func (c *AppConfig) ApplyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "clob-engine"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	c.Book.ApplyDefaults()
	c.Feed.ApplyDefaults()
	c.HTTP.ApplyDefaults()
	c.Stats.ApplyDefaults()
}

func (c *AppConfig) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if err := c.Book.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("book: %w", err))
	}
	if c.Seed != nil {
		if err := c.Seed.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("seed: %w", err))
		}
	}
	if err := c.Feed.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := c.Stats.Validate(); err != nil {
		errs = append(errs, err)
	}
	if !c.Book.CoversWindow(c.Stats.VolumeWindow) {
		errs = append(errs, fmt.Errorf("stats: volume_window %s exceeds book trade_retention %s",
			c.Stats.VolumeWindow, c.Book.TradeRetention))
	}
	if c.Redis != nil && c.Redis.ConnectionURL == "" {
		errs = append(errs, errors.New("redis: connection_url is required"))
	}
	if c.Kafka != nil {
		if err := c.Kafka.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("kafka: %w", err))
		}
	}
	return errors.Join(errs...)
}
