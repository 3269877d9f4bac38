package orderbook

import "time"

// Level is one aggregated price level.
type Level struct {
	Price  int64 `json:"price"`
	Qty    int64 `json:"qty"`
	Orders int   `json:"orders"`
}

// Depth lists levels from the best price outwards on each side.
type Depth struct {
	Bids []Level `json:"bids"`
	Asks []Level `json:"asks"`
}

// Snapshot is a depth read tagged with the sequence of the last published
// Update, so a consumer can line it up with the update stream.
type Snapshot struct {
	Seq uint64 `json:"seq"`
	Depth
}

// Stats is a consistent read of the top of book, taken under one read lock.
type Stats struct {
	Symbol          string    `json:"symbol"`
	BestBid         *int64    `json:"best_bid,omitempty"`
	BestAsk         *int64    `json:"best_ask,omitempty"`
	Spread          *int64    `json:"spread,omitempty"`
	BestBidDepth    int64     `json:"best_bid_depth"`
	BestAskDepth    int64     `json:"best_ask_depth"`
	BidLevels       int       `json:"bid_levels"`
	AskLevels       int       `json:"ask_levels"`
	OrderCount      int       `json:"order_count"`
	RecentVolume    int64     `json:"recent_volume"`
	VolumeWindow    string    `json:"volume_window"`
	MatchedQuantity int64     `json:"matched_quantity"`
	TradeCount      uint64    `json:"trade_count"`
	LastTradePrice  *int64    `json:"last_trade_price,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

func (ob *OrderBook) BestBidPrice() (int64, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return ob.bids.bestPrice()
}

func (ob *OrderBook) BestAskPrice() (int64, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return ob.asks.bestPrice()
}

// Spread is best ask minus best bid; absent when either side is empty.
func (ob *OrderBook) Spread() (int64, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return ob.spreadLocked()
}

func (ob *OrderBook) spreadLocked() (int64, bool) {
	bid, okBid := ob.bids.bestPrice()
	ask, okAsk := ob.asks.bestPrice()
	if !okBid || !okAsk {
		return 0, false
	}
	return ask - bid, true
}

func (ob *OrderBook) BidQuantities() map[int64]int64 {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return quantities(ob.bids)
}

func (ob *OrderBook) AskQuantities() map[int64]int64 {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return quantities(ob.asks)
}

func quantities(x *levelIndex) map[int64]int64 {
	out := make(map[int64]int64, x.len())
	x.walk(func(lvl *priceLevel) bool {
		out[lvl.price] = lvl.totalQty
		return true
	})
	return out
}

func (ob *OrderBook) OrderCount() int {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return ob.orders.len()
}

func (ob *OrderBook) BestBidDepth() int64 {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return bestDepth(ob.bids)
}

func (ob *OrderBook) BestAskDepth() int64 {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return bestDepth(ob.asks)
}

func bestDepth(x *levelIndex) int64 {
	lvl, ok := x.best()
	if !ok {
		return 0
	}
	return lvl.totalQty
}

// RecentVolume sums traded quantity over the trailing window.
func (ob *OrderBook) RecentVolume(window time.Duration) int64 {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return ob.trades.recentVolume(ob.now(), window)
}

// MatchedQuantity is the total quantity traded since the book was created.
func (ob *OrderBook) MatchedQuantity() int64 {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return ob.trades.matched
}

// RecentTrades returns up to n of the newest retained trades, oldest first.
func (ob *OrderBook) RecentTrades(n int) []Trade {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return ob.trades.recent(n)
}

// Order returns a copy of a live order.
func (ob *OrderBook) Order(id uint64) (Order, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	o, ok := ob.orders.get(id)
	if !ok {
		return Order{}, false
	}
	return o.snapshot(), true
}

// Depth returns up to n levels per side; n <= 0 means all levels.
func (ob *OrderBook) Depth(n int) Depth {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return Depth{
		Bids: levelsOf(ob.bids, n),
		Asks: levelsOf(ob.asks, n),
	}
}

// Snapshot returns Depth(n) together with the last update sequence.
func (ob *OrderBook) Snapshot(n int) Snapshot {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	return Snapshot{
		Seq:   ob.updateSeq,
		Depth: Depth{Bids: levelsOf(ob.bids, n), Asks: levelsOf(ob.asks, n)},
	}
}

// EmitSnapshot takes Snapshot(n) and hands it to fn while holding the write
// lock, so no update reaches a listener between the snapshot and fn's return.
// fn must not call back into the book.
func (ob *OrderBook) EmitSnapshot(n int, fn func(Snapshot)) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	fn(Snapshot{
		Seq:   ob.updateSeq,
		Depth: Depth{Bids: levelsOf(ob.bids, n), Asks: levelsOf(ob.asks, n)},
	})
}

func levelsOf(x *levelIndex, n int) []Level {
	size := x.len()
	if n > 0 && n < size {
		size = n
	}
	out := make([]Level, 0, size)
	x.walk(func(lvl *priceLevel) bool {
		out = append(out, Level{Price: lvl.price, Qty: lvl.totalQty, Orders: lvl.count})
		return n <= 0 || len(out) < n
	})
	return out
}

// LevelOrders lists the orders queued at one price, oldest first.
func (ob *OrderBook) LevelOrders(side Side, price int64) []Order {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	lvl, ok := ob.index(side).level(price)
	if !ok {
		return nil
	}
	out := make([]Order, 0, lvl.count)
	lvl.each(func(o *Order) bool {
		out = append(out, o.snapshot())
		return true
	})
	return out
}

// Stats reads every top-of-book figure at once; window sizes RecentVolume.
func (ob *OrderBook) Stats(window time.Duration) Stats {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	now := ob.now()
	s := Stats{
		Symbol:          ob.cfg.Symbol,
		BestBidDepth:    bestDepth(ob.bids),
		BestAskDepth:    bestDepth(ob.asks),
		BidLevels:       ob.bids.len(),
		AskLevels:       ob.asks.len(),
		OrderCount:      ob.orders.len(),
		RecentVolume:    ob.trades.recentVolume(now, window),
		VolumeWindow:    window.String(),
		MatchedQuantity: ob.trades.matched,
		TradeCount:      ob.trades.count,
		Timestamp:       now,
	}
	if p, ok := ob.bids.bestPrice(); ok {
		s.BestBid = &p
	}
	if p, ok := ob.asks.bestPrice(); ok {
		s.BestAsk = &p
	}
	if p, ok := ob.spreadLocked(); ok {
		s.Spread = &p
	}
	if t, ok := ob.trades.last(); ok {
		s.LastTradePrice = &t.Price
	}
	return s
}
