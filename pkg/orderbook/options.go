package orderbook

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SweepMode selects how far a market order walks the opposing side.
type SweepMode string

const (
	// SweepShallow prices the market order at the best opposing price only;
	// any remainder rests on the book at that price.
	SweepShallow SweepMode = "shallow"
	// SweepDeep keeps consuming successive opposing levels until the quantity
	// is filled or the side is empty. An unfilled remainder is discarded.
	SweepDeep SweepMode = "deep"
)

type Config struct {
	Symbol     string    `yaml:"symbol" env:"SYMBOL"`
	SweepMode  SweepMode `yaml:"sweep_mode" env:"SWEEP_MODE"`
	PriceScale int32     `yaml:"price_scale" env:"PRICE_SCALE"` // decimal places between minor and display units

	// TradeRetention and MaxTrades bound the trade log. RecentVolume only
	// sees retained trades, so windows must not exceed either bound. Zero
	// keeps everything.
	TradeRetention time.Duration `yaml:"trade_retention" env:"TRADE_RETENTION"`
	MaxTrades      int           `yaml:"max_trades" env:"MAX_TRADES"`
}

// DefaultConfig returns the settings used when a field is left empty.
func DefaultConfig() *Config {
	return &Config{
		Symbol:         "CLOB",
		SweepMode:      SweepShallow,
		PriceScale:     2,
		TradeRetention: time.Minute,
	}
}

// ApplyDefaults fills empty identity and mode fields from DefaultConfig.
// Retention limits are left alone: zero there means unbounded.
func (c *Config) ApplyDefaults() {
	def := DefaultConfig()
	if c.Symbol == "" {
		c.Symbol = def.Symbol
	}
	if c.SweepMode == "" {
		c.SweepMode = def.SweepMode
	}
}

func (c *Config) Validate() error {
	switch c.SweepMode {
	case SweepShallow, SweepDeep:
	default:
		return fmt.Errorf("unknown sweep mode %q", c.SweepMode)
	}
	if c.PriceScale < 0 || c.PriceScale > 8 {
		return fmt.Errorf("price scale %d out of range [0,8]", c.PriceScale)
	}
	if c.TradeRetention < 0 {
		return fmt.Errorf("negative trade retention %s", c.TradeRetention)
	}
	if c.MaxTrades < 0 {
		return fmt.Errorf("negative max trades %d", c.MaxTrades)
	}
	return nil
}

// CoversWindow reports whether RecentVolume(window) sees every trade in the
// window, given the time-based retention. A count cap can still trim it.
func (c *Config) CoversWindow(window time.Duration) bool {
	return c.TradeRetention == 0 || window <= c.TradeRetention
}

type Option func(ob *OrderBook)

func WithLogger(logger *zap.Logger) Option {
	return func(ob *OrderBook) {
		if logger != nil {
			ob.logger = logger
		}
	}
}

// WithClock replaces time.Now for order and trade timestamps.
func WithClock(now func() time.Time) Option {
	return func(ob *OrderBook) {
		if now != nil {
			ob.now = now
		}
	}
}

func WithListener(l Listener) Option {
	return func(ob *OrderBook) {
		if l != nil {
			ob.listeners = append(ob.listeners, l)
		}
	}
}
