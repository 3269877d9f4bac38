package orderbook

// matchLocked pairs the front bid at the best bid price with the front ask at
// the best ask price until the book no longer crosses. Trades execute at the
// ask's price. aggressor is the side of the order that triggered this pass.
func (ob *OrderBook) matchLocked(aggressor Side) {
	for {
		bidLvl, okBid := ob.bids.best()
		askLvl, okAsk := ob.asks.best()
		if !okBid || !okAsk || bidLvl.price < askLvl.price {
			return
		}

		bid := bidLvl.front()
		ask := askLvl.front()

		qty := min(bid.Qty, ask.Qty)
		bid.Qty -= qty
		bidLvl.reduce(qty)
		ask.Qty -= qty
		askLvl.reduce(qty)

		t := ob.trades.record(Trade{
			Price:       askLvl.price,
			Qty:         qty,
			BuyOrderID:  bid.ID,
			SellOrderID: ask.ID,
			Aggressor:   aggressor,
			Timestamp:   ob.now(),
		})
		ob.pending.trades = append(ob.pending.trades, t)
		ob.pending.touch(BUY, bidLvl.price, true)
		ob.pending.touch(SELL, askLvl.price, true)

		if bid.Qty == 0 {
			ob.retireLocked(bid)
		}
		if ask.Qty == 0 {
			ob.retireLocked(ask)
		}
	}
}

// checkUncrossedLocked verifies the resting book after a matching pass.
func (ob *OrderBook) checkUncrossedLocked() {
	bid, okBid := ob.bids.bestPrice()
	ask, okAsk := ob.asks.bestPrice()
	if okBid && okAsk && bid >= ask {
		violation("book crossed at rest: best bid %d >= best ask %d", bid, ask)
	}
}
