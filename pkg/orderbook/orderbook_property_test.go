package orderbook

import (
	"testing"

	"pgregory.net/rapid"
)

func drawSide(t *rapid.T, label string) Side {
	return rapid.SampledFrom([]Side{BUY, SELL}).Draw(t, label)
}

func restingQty(ob *OrderBook) int64 {
	var total int64
	for _, q := range ob.BidQuantities() {
		total += q
	}
	for _, q := range ob.AskQuantities() {
		total += q
	}
	return total
}

// Quantity is never created or destroyed: what went in either rests, traded
// (counted once per side) or was cancelled.
func TestProperty_QuantityConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		mode := rapid.SampledFrom([]SweepMode{SweepShallow, SweepDeep}).Draw(t, "mode")
		ob := New(&Config{SweepMode: mode})

		var in int64
		var ids []uint64
		steps := rapid.IntRange(1, 80).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0, 1:
				qty := rapid.Int64Range(1, 50).Draw(t, "qty")
				price := rapid.Int64Range(95, 105).Draw(t, "price")
				id, err := ob.AddOrder(price, qty, drawSide(t, "side"))
				if err != nil {
					t.Fatalf("add: %v", err)
				}
				in += qty
				ids = append(ids, id)
			case 2:
				if len(ids) == 0 {
					continue
				}
				id := rapid.SampledFrom(ids).Draw(t, "cancel")
				o, live := ob.Order(id)
				if ob.RemoveOrder(id) != live {
					t.Fatalf("remove(%d) disagrees with registry", id)
				}
				if live {
					in -= o.Qty
				}
			case 3:
				qty := rapid.Int64Range(1, 80).Draw(t, "mqty")
				res, err := ob.placeMarket(drawSide(t, "mside"), qty)
				if err != nil {
					t.Fatalf("market: %v", err)
				}
				if res.Status != MarketNoLiquidity {
					in += res.Filled
					if res.Status == MarketRested {
						in += res.Remaining
					}
				}
				if res.Filled+res.Remaining != qty {
					t.Fatalf("market result does not add up: %+v", res)
				}
			}

			verifyBook(t, ob)
			if got, want := restingQty(ob), in-2*ob.MatchedQuantity(); got != want {
				t.Fatalf("step %d: resting %d, expected %d", i, got, want)
			}
		}
	})
}

// A buy sweeps asks from the cheapest up and never pays above its limit; a
// sell executes at its own price because trades print at the ask.
func TestProperty_ExecutionPrices(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ob := New(nil)
		for i, n := 0, rapid.IntRange(0, 30).Draw(t, "resting"); i < n; i++ {
			_, _ = ob.AddOrder(rapid.Int64Range(90, 110).Draw(t, "p"), rapid.Int64Range(1, 20).Draw(t, "q"), drawSide(t, "s"))
		}

		var got []Trade
		ob.listeners = append(ob.listeners, ListenerFunc(func(u Update) { got = append(got, u.Trades...) }))

		side := drawSide(t, "aggressor")
		limit := rapid.Int64Range(90, 110).Draw(t, "limit")
		if _, err := ob.AddOrder(limit, rapid.Int64Range(1, 100).Draw(t, "qty"), side); err != nil {
			t.Fatalf("add: %v", err)
		}

		for i, tr := range got {
			if tr.Aggressor != side {
				t.Fatalf("trade %d aggressor %s, want %s", i, tr.Aggressor, side)
			}
			switch side {
			case BUY:
				if tr.Price > limit {
					t.Fatalf("buy at %d filled at %d", limit, tr.Price)
				}
				if i > 0 && tr.Price < got[i-1].Price {
					t.Fatalf("asks consumed out of price order: %d after %d", tr.Price, got[i-1].Price)
				}
			case SELL:
				if tr.Price != limit {
					t.Fatalf("sell at %d printed at %d", limit, tr.Price)
				}
			}
		}
		verifyBook(t, ob)
	})
}

// Among orders resting at one price, fills go strictly oldest first.
func TestProperty_TimePriorityWithinLevel(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ob := New(nil)
		const price = 100

		n := rapid.IntRange(1, 20).Draw(t, "n")
		ids := make([]uint64, 0, n)
		var total int64
		for i := 0; i < n; i++ {
			qty := rapid.Int64Range(1, 30).Draw(t, "qty")
			id, _ := ob.AddOrder(price, qty, SELL)
			ids = append(ids, id)
			total += qty
		}

		var got []Trade
		ob.listeners = append(ob.listeners, ListenerFunc(func(u Update) { got = append(got, u.Trades...) }))
		take := rapid.Int64Range(1, total).Draw(t, "take")
		_, _ = ob.AddOrder(price, take, BUY)

		next := 0
		for _, tr := range got {
			for next < len(ids) && ids[next] != tr.SellOrderID {
				next++
			}
			if next == len(ids) {
				t.Fatalf("trade against %d out of arrival order", tr.SellOrderID)
			}
		}
		// everything before the last touched order must be gone
		if len(got) > 0 {
			lastHit := got[len(got)-1].SellOrderID
			for _, id := range ids {
				if id == lastHit {
					break
				}
				if _, ok := ob.Order(id); ok {
					t.Fatalf("order %d older than %d still rests", id, lastHit)
				}
			}
		}
	})
}
