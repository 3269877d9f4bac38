// file: pkg/orderbook/orderbook.go

package orderbook

import (
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
)

// OrderBook is a single-instrument limit order book. One RWMutex guards the
// registry, both level indices and the trade log: mutators hold the write
// lock through matching, readers share the read lock. The book is never
// observed crossed.
type OrderBook struct {
	cfg *Config

	bids   *levelIndex
	asks   *levelIndex
	orders *orderRegistry
	trades *tradeLog

	seq       uint64 // arrival sequence
	updateSeq uint64
	pending   pendingUpdate

	now       func() time.Time
	logger    *zap.Logger
	listeners []Listener

	mu sync.RWMutex
}

// New builds an empty book. It panics on a config that fails Validate;
// callers loading settings from outside should validate first.
func New(cfg *Config, opts ...Option) *OrderBook {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("orderbook: invalid config: %v", err))
	}
	own := *cfg

	ob := &OrderBook{
		cfg:    &own,
		bids:   newLevelIndex(BUY),
		asks:   newLevelIndex(SELL),
		orders: newOrderRegistry(),
		trades: newTradeLog(cfg.TradeRetention, cfg.MaxTrades),
		now:    time.Now,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(ob)
	}
	ob.logger = ob.logger.With(zap.String("symbol", cfg.Symbol))

	return ob
}

// Config returns the book's effective configuration.
func (ob *OrderBook) Config() Config {
	return *ob.cfg
}

// AddOrder rests a limit order and runs matching to exhaustion before
// returning its id. The id stays valid for RemoveOrder even if the order
// filled immediately; removal then reports false.
func (ob *OrderBook) AddOrder(price, qty int64, side Side) (uint64, error) {
	if err := validateLimit(price, qty, side); err != nil {
		return 0, err
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()
	defer ob.surface("add_order")

	if err := ob.levelRoomLocked(side, price, qty, 0); err != nil {
		return 0, err
	}
	o := ob.newOrderLocked(price, qty, side)
	ob.restLocked(o)
	ob.matchLocked(side)
	ob.flushLocked()

	return o.ID, nil
}

// RemoveOrder cancels a resting order. It returns false for ids that are
// unknown or already retired.
func (ob *OrderBook) RemoveOrder(id uint64) bool {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	defer ob.surface("remove_order")

	o, ok := ob.orders.get(id)
	if !ok {
		return false
	}
	ob.pending.touch(o.Side, o.Price, true)
	ob.retireLocked(o)
	ob.flushLocked()

	ob.logger.Debug("order removed", zap.Uint64("order_id", id))
	return true
}

// AmendOrder changes price and quantity of a resting order, keeping its id.
// A quantity decrease at the same price keeps time priority; any other change
// re-queues the order at the back of its new level and may trade.
func (ob *OrderBook) AmendOrder(id uint64, price, qty int64) (bool, error) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	defer ob.surface("amend_order")

	o, ok := ob.orders.get(id)
	if !ok {
		return false, nil
	}
	if err := validateLimit(price, qty, o.Side); err != nil {
		return false, err
	}
	var own int64
	if price == o.Price {
		own = o.Qty
	}
	if err := ob.levelRoomLocked(o.Side, price, qty, own); err != nil {
		return false, err
	}

	switch {
	case price == o.Price && qty == o.Qty:
		return true, nil
	case price == o.Price && qty < o.Qty:
		diff := o.Qty - qty
		o.Qty = qty
		o.OrigQty -= diff
		o.level.reduce(diff)
		ob.pending.touch(o.Side, o.Price, true)
	default:
		ob.pending.touch(o.Side, o.Price, true)
		ob.index(o.Side).remove(o.Price, o)
		o.OrigQty += qty - o.Qty
		o.Price = price
		o.Qty = qty
		ob.seq++
		o.Seq = ob.seq
		o.Timestamp = ob.now()
		ob.restLocked(o)
		ob.matchLocked(o.Side)
	}
	ob.flushLocked()

	return true, nil
}

func (ob *OrderBook) index(side Side) *levelIndex {
	if side == BUY {
		return ob.bids
	}
	return ob.asks
}

// levelRoomLocked rejects qty if resting it at price would overflow the
// level total. own is quantity already in that level that the caller is
// about to take out.
func (ob *OrderBook) levelRoomLocked(side Side, price, qty, own int64) error {
	lvl, ok := ob.index(side).level(price)
	if ok && lvl.totalQty-own > math.MaxInt64-qty {
		return fmt.Errorf("%w: %d overflows the %d resting at %d", ErrInvalidQuantity, qty, lvl.totalQty-own, price)
	}
	return nil
}

// newOrderLocked registers an order without indexing it.
func (ob *OrderBook) newOrderLocked(price, qty int64, side Side) *Order {
	ob.seq++
	o := &Order{
		Side:      side,
		Price:     price,
		Qty:       qty,
		OrigQty:   qty,
		Seq:       ob.seq,
		Timestamp: ob.now(),
	}
	ob.orders.insert(o)
	return o
}

func (ob *OrderBook) restLocked(o *Order) {
	_, created := ob.index(o.Side).add(o)
	ob.pending.touch(o.Side, o.Price, !created)
}

// retireLocked drops o from its level and from the registry.
func (ob *OrderBook) retireLocked(o *Order) {
	if o.level != nil {
		ob.index(o.Side).remove(o.Price, o)
	}
	if !ob.orders.remove(o.ID) {
		violation("order %d indexed but missing from registry", o.ID)
	}
}

// flushLocked publishes the pending update, if any, and resets it.
func (ob *OrderBook) flushLocked() {
	defer ob.pending.reset()
	ob.checkUncrossedLocked()

	var levels []LevelChange
	for _, k := range ob.pending.touched {
		existed := ob.pending.existed[k]
		lvl, ok := ob.index(k.side).level(k.price)
		switch {
		case ok:
			action := LevelChanged
			if !existed {
				action = LevelNew
			}
			levels = append(levels, LevelChange{
				Side: k.side, Price: k.price, Qty: lvl.totalQty, Orders: lvl.count, Action: action,
			})
		case existed:
			levels = append(levels, LevelChange{Side: k.side, Price: k.price, Action: LevelDeleted})
		}
	}
	if len(levels) == 0 && len(ob.pending.trades) == 0 {
		return
	}

	ob.updateSeq++
	u := Update{Seq: ob.updateSeq, Trades: ob.pending.trades, Levels: levels}
	for _, l := range ob.listeners {
		l.OnUpdate(u)
	}
}

// surface logs an invariant violation before letting the panic continue.
func (ob *OrderBook) surface(op string) {
	r := recover()
	if r == nil {
		return
	}
	ob.pending.reset()
	if iv, ok := r.(*InvariantError); ok {
		ob.logger.Error("orderbook invariant violated", zap.String("op", op), zap.String("detail", iv.Msg))
	}
	panic(r)
}
