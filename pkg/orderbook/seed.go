package orderbook

import (
	"fmt"
	"math/rand"
	"time"
)

// SeedConfig describes the opening ladder posted around a base price.
type SeedConfig struct {
	BasePrice  int64 `yaml:"base_price"`
	HalfSpread int64 `yaml:"half_spread"` // distance of the inner bid/ask from base
	Step       int64 `yaml:"step"`        // spacing between outer levels
	Levels     int   `yaml:"levels"`      // outer levels per side
	InnerQty   int64 `yaml:"inner_qty"`
	MinQty     int64 `yaml:"min_qty"`
	MaxQty     int64 `yaml:"max_qty"`
	RandomSeed int64 `yaml:"random_seed"` // 0 picks a time based seed
}

func DefaultSeedConfig() SeedConfig {
	return SeedConfig{
		BasePrice:  50000,
		HalfSpread: 200,
		Step:       100,
		Levels:     5,
		InnerQty:   1000,
		MinQty:     100,
		MaxQty:     500,
	}
}

// Rand returns the random source for quantities, seeded from RandomSeed.
func (c SeedConfig) Rand() *rand.Rand {
	seed := c.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

func (c SeedConfig) Validate() error {
	if c.HalfSpread <= 0 || c.Step <= 0 || c.Levels < 0 {
		return fmt.Errorf("seed ladder needs positive half spread and step, got %d/%d", c.HalfSpread, c.Step)
	}
	if c.BasePrice-c.HalfSpread-int64(c.Levels)*c.Step <= 0 {
		return fmt.Errorf("%w: seed ladder reaches below 1 from base %d", ErrInvalidPrice, c.BasePrice)
	}
	if c.InnerQty <= 0 || c.MinQty <= 0 || c.MaxQty < c.MinQty {
		return fmt.Errorf("%w: seed quantities %d [%d,%d]", ErrInvalidQuantity, c.InnerQty, c.MinQty, c.MaxQty)
	}
	return nil
}

// Seed posts the opening ladder: one inner level each side at base -/+ half
// spread, then Levels more per side Step apart, each outer pair sharing a
// random quantity. It runs under a single write lock.
func (ob *OrderBook) Seed(cfg SeedConfig, rng *rand.Rand) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()
	defer ob.surface("seed")

	bidTop := cfg.BasePrice - cfg.HalfSpread
	askTop := cfg.BasePrice + cfg.HalfSpread
	ob.restLocked(ob.newOrderLocked(bidTop, cfg.InnerQty, BUY))
	ob.restLocked(ob.newOrderLocked(askTop, cfg.InnerQty, SELL))

	for i := 1; i <= cfg.Levels; i++ {
		qty := cfg.MinQty + rng.Int63n(cfg.MaxQty-cfg.MinQty+1)
		ob.restLocked(ob.newOrderLocked(bidTop-int64(i)*cfg.Step, qty, BUY))
		ob.restLocked(ob.newOrderLocked(askTop+int64(i)*cfg.Step, qty, SELL))
	}
	ob.matchLocked(BUY)
	ob.flushLocked()

	return nil
}
