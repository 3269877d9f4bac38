package orderbook

// reporter is the part of testing.TB that *rapid.T also provides.
type reporter interface {
	Helper()
	Errorf(format string, args ...any)
}

// verifyBook walks every structure and checks they agree with each other.
func verifyBook(t reporter, ob *OrderBook) {
	t.Helper()

	ob.mu.RLock()
	defer ob.mu.RUnlock()

	indexed := 0
	for _, x := range []*levelIndex{ob.bids, ob.asks} {
		x.levels.Scan(func(price int64, lvl *priceLevel) bool {
			if lvl.price != price || lvl.side != x.side {
				t.Errorf("level keyed %d holds %s %d", price, lvl.side, lvl.price)
			}
			if lvl.empty() {
				t.Errorf("%s level %d is empty but indexed", x.side, price)
			}
			var qty int64
			var count int
			var lastSeq uint64
			lvl.each(func(o *Order) bool {
				if o.Qty <= 0 {
					t.Errorf("order %d rests with qty %d", o.ID, o.Qty)
				}
				if o.Price != price || o.Side != x.side || o.level != lvl {
					t.Errorf("order %d misfiled at %s %d", o.ID, x.side, price)
				}
				if o.Seq <= lastSeq {
					t.Errorf("level %d not in arrival order at order %d", price, o.ID)
				}
				if reg, ok := ob.orders.get(o.ID); !ok || reg != o {
					t.Errorf("order %d indexed but not registered", o.ID)
				}
				lastSeq = o.Seq
				qty += o.Qty
				count++
				return true
			})
			if qty != lvl.totalQty || count != lvl.count {
				t.Errorf("%s level %d caches %d/%d, holds %d/%d", x.side, price, lvl.totalQty, lvl.count, qty, count)
			}
			indexed += count
			return true
		})
	}
	if indexed != ob.orders.len() {
		t.Errorf("registry has %d orders, levels hold %d", ob.orders.len(), indexed)
	}

	bid, okBid := ob.bids.bestPrice()
	ask, okAsk := ob.asks.bestPrice()
	if okBid && okAsk && bid >= ask {
		t.Errorf("book crossed: %d >= %d", bid, ask)
	}
}
