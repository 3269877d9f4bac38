// Package stats samples top-of-book figures at a fixed rate and hands each
// sample to observers: metrics gauges, the websocket hub, a Redis key, logs.
package stats

import (
	"context"
	"fmt"
	"time"

	"github.com/joripage/clob/pkg/orderbook"
	"go.uber.org/zap"
)

type Config struct {
	Interval     time.Duration `yaml:"interval" env:"INTERVAL"`
	VolumeWindow time.Duration `yaml:"volume_window" env:"VOLUME_WINDOW"`
	RedisKey     string        `yaml:"redis_key" env:"REDIS_KEY"`
	LogEvery     int           `yaml:"log_every" env:"LOG_EVERY"` // log one sample in N; 0 disables
}

func (c *Config) ApplyDefaults() {
	if c.Interval <= 0 {
		c.Interval = time.Second
	}
	if c.VolumeWindow <= 0 {
		c.VolumeWindow = time.Second
	}
	if c.RedisKey == "" {
		c.RedisKey = "clob.stats"
	}
}

func (c Config) Validate() error {
	if c.LogEvery < 0 {
		return fmt.Errorf("stats log_every %d must not be negative", c.LogEvery)
	}
	return nil
}

// Reader is satisfied by *orderbook.OrderBook.
type Reader interface {
	Stats(window time.Duration) orderbook.Stats
}

type Observer interface {
	ObserveStats(s orderbook.Stats)
}

type ObserverFunc func(s orderbook.Stats)

func (f ObserverFunc) ObserveStats(s orderbook.Stats) { f(s) }

type Poller struct {
	cfg       Config
	book      Reader
	observers []Observer
	logger    *zap.Logger
	polls     uint64
}

func NewPoller(cfg Config, book Reader, logger *zap.Logger, observers ...Observer) *Poller {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{cfg: cfg, book: book, observers: observers, logger: logger.Named("stats")}
}

// Poll takes one sample and delivers it.
func (p *Poller) Poll() orderbook.Stats {
	s := p.book.Stats(p.cfg.VolumeWindow)
	p.polls++
	for _, o := range p.observers {
		o.ObserveStats(s)
	}
	if p.cfg.LogEvery > 0 && p.polls%uint64(p.cfg.LogEvery) == 0 {
		p.logger.Info("book stats",
			zap.Int64p("best_bid", s.BestBid),
			zap.Int64p("best_ask", s.BestAsk),
			zap.Int64p("spread", s.Spread),
			zap.Int64("bid_depth", s.BestBidDepth),
			zap.Int64("ask_depth", s.BestAskDepth),
			zap.Int("orders", s.OrderCount),
			zap.Int64("recent_volume", s.RecentVolume),
		)
	}
	return s
}

// Run polls every Interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			p.Poll()
		}
	}
}

// JSONStore is implemented by feed.RedisSink.
type JSONStore interface {
	PutJSON(ctx context.Context, key string, v any) error
}

// StoreObserver writes every sample under a fixed key.
type StoreObserver struct {
	store   JSONStore
	key     string
	timeout time.Duration
	logger  *zap.Logger
}

func NewStoreObserver(store JSONStore, cfg Config, logger *zap.Logger) *StoreObserver {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreObserver{store: store, key: cfg.RedisKey, timeout: cfg.Interval, logger: logger}
}

func (o *StoreObserver) ObserveStats(s orderbook.Stats) {
	ctx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()
	if err := o.store.PutJSON(ctx, o.key, s); err != nil {
		o.logger.Warn("store stats failed", zap.String("key", o.key), zap.Error(err))
	}
}
