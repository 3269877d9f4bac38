package orderbook

import (
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

// tradeRecorder collects every trade the book publishes.
type tradeRecorder struct {
	mu     sync.Mutex
	trades []Trade
}

func (r *tradeRecorder) OnUpdate(u Update) {
	r.mu.Lock()
	r.trades = append(r.trades, u.Trades...)
	r.mu.Unlock()
}

func (r *tradeRecorder) all() []Trade {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Trade(nil), r.trades...)
}

func newTestBook(t *testing.T, opts ...Option) (*OrderBook, *tradeRecorder) {
	t.Helper()
	rec := &tradeRecorder{}
	opts = append([]Option{WithListener(rec)}, opts...)
	return New(&Config{Symbol: "test"}, opts...), rec
}

func mustAdd(t *testing.T, ob *OrderBook, price, qty int64, side Side) uint64 {
	t.Helper()
	id, err := ob.AddOrder(price, qty, side)
	if err != nil {
		t.Fatalf("add %s %d@%d: %v", side, qty, price, err)
	}
	return id
}

func TestSimpleMatch(t *testing.T) {
	ob, rec := newTestBook(t)

	sell := mustAdd(t, ob, 9900, 10, SELL)
	buy := mustAdd(t, ob, 10000, 10, BUY)

	trades := rec.all()
	if len(trades) != 1 {
		t.Fatalf("expected 1 match, got %d", len(trades))
	}
	match := trades[0]
	if match.BuyOrderID != buy || match.SellOrderID != sell {
		t.Errorf("incorrect order IDs in match: %+v", match)
	}
	if match.Qty != 10 || match.Price != 9900 {
		t.Errorf("incorrect qty/price: %+v", match)
	}
	if match.Aggressor != BUY {
		t.Errorf("expected BUY aggressor, got %s", match.Aggressor)
	}
	if ob.OrderCount() != 0 {
		t.Errorf("expected empty book, got %d orders", ob.OrderCount())
	}
}

func TestNoMatchDueToPrice(t *testing.T) {
	ob, rec := newTestBook(t)

	mustAdd(t, ob, 10000, 10, SELL)
	mustAdd(t, ob, 9800, 10, BUY)

	if n := len(rec.all()); n != 0 {
		t.Fatalf("expected no match, got %d", n)
	}
	spread, ok := ob.Spread()
	if !ok || spread != 200 {
		t.Fatalf("expected spread 200, got %d (%v)", spread, ok)
	}
}

func TestPartialMatch(t *testing.T) {
	ob, rec := newTestBook(t)

	mustAdd(t, ob, 10000, 5, SELL)
	buy := mustAdd(t, ob, 10100, 10, BUY)

	trades := rec.all()
	if len(trades) != 1 {
		t.Fatalf("expected 1 match, got %d", len(trades))
	}
	if trades[0].Qty != 5 {
		t.Errorf("expected matched qty 5, got %d", trades[0].Qty)
	}
	o, ok := ob.Order(buy)
	if !ok || o.Qty != 5 || o.Filled() != 5 {
		t.Fatalf("expected resting buy with 5 left, got %+v (%v)", o, ok)
	}
	if p, _ := ob.BestBidPrice(); p != 10100 {
		t.Errorf("expected best bid 10100, got %d", p)
	}
}

func TestFIFOMatch(t *testing.T) {
	ob, rec := newTestBook(t)

	s1 := mustAdd(t, ob, 10000, 5, SELL)
	s2 := mustAdd(t, ob, 10000, 5, SELL)

	// BUY for total 10 should match in FIFO order: S1 then S2
	mustAdd(t, ob, 10000, 10, BUY)

	trades := rec.all()
	if len(trades) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(trades))
	}
	if trades[0].SellOrderID != s1 || trades[1].SellOrderID != s2 {
		t.Errorf("expected FIFO match order, got %+v", trades)
	}
}

func TestMultiLevelMatch(t *testing.T) {
	ob, rec := newTestBook(t)

	for _, p := range []int64{10100, 10200, 10300} {
		mustAdd(t, ob, p, 5, SELL)
	}

	// a higher priced buy walks every level
	mustAdd(t, ob, 10500, 15, BUY)

	trades := rec.all()
	if len(trades) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(trades))
	}
	if trades[0].Price != 10100 || trades[2].Price != 10300 {
		t.Errorf("expected matching from best price, got %+v", trades)
	}
	if _, ok := ob.BestAskPrice(); ok {
		t.Errorf("expected ask side to be empty")
	}
}

func TestSellAggressorTradesAtAskPrice(t *testing.T) {
	ob, rec := newTestBook(t)

	mustAdd(t, ob, 10200, 10, BUY)
	mustAdd(t, ob, 10000, 4, SELL)

	trades := rec.all()
	if len(trades) != 1 {
		t.Fatalf("expected 1 match, got %d", len(trades))
	}
	if trades[0].Price != 10000 || trades[0].Aggressor != SELL {
		t.Errorf("expected trade at ask price 10000 with SELL aggressor, got %+v", trades[0])
	}
}

func TestInvalidArgumentsLeaveBookUntouched(t *testing.T) {
	ob, _ := newTestBook(t)
	mustAdd(t, ob, 10000, 10, BUY)

	cases := []struct {
		price, qty int64
		side       Side
		want       error
	}{
		{0, 10, SELL, ErrInvalidPrice},
		{-5, 10, SELL, ErrInvalidPrice},
		{10000, 0, SELL, ErrInvalidQuantity},
		{10000, -1, BUY, ErrInvalidQuantity},
		{10000, 1, Side("HOLD"), ErrInvalidSide},
	}
	for _, c := range cases {
		if _, err := ob.AddOrder(c.price, c.qty, c.side); !errors.Is(err, c.want) {
			t.Errorf("AddOrder(%d,%d,%s) err=%v, want %v", c.price, c.qty, c.side, err, c.want)
		}
	}
	if _, err := ob.PlaceMarketSell(0); !errors.Is(err, ErrInvalidQuantity) {
		t.Errorf("market sell 0: err=%v", err)
	}
	if ob.OrderCount() != 1 || ob.BestBidDepth() != 10 {
		t.Fatalf("book changed by rejected calls: count=%d depth=%d", ob.OrderCount(), ob.BestBidDepth())
	}
}

func TestHighVolumeOrders(t *testing.T) {
	ob, rec := newTestBook(t)

	num := 10_000
	for i := 0; i < num; i++ {
		side := BUY
		if i%2 == 0 {
			side = SELL
		}
		mustAdd(t, ob, 10000, 10, side)
	}

	if n := len(rec.all()); n != num/2 {
		t.Errorf("expected %d matching, got %d", num/2, n)
	}
	if ob.OrderCount() != 0 {
		t.Errorf("expected empty book, got %d", ob.OrderCount())
	}
	if ob.MatchedQuantity() != int64(num/2*10) {
		t.Errorf("expected matched quantity %d, got %d", num/2*10, ob.MatchedQuantity())
	}
}

func TestConcurrentOrders(t *testing.T) {
	ob, _ := newTestBook(t)

	var wg sync.WaitGroup
	addOrder := func(i int, side Side) {
		defer wg.Done()
		price := int64(10000 + i%7 - 3)
		if _, err := ob.AddOrder(price, 10, side); err != nil {
			t.Errorf("add: %v", err)
		}
	}
	poll := func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			bid, okBid := ob.BestBidPrice()
			ask, okAsk := ob.BestAskPrice()
			_ = ob.Stats(time.Second)
			_ = ob.BidQuantities()
			if okBid && okAsk && bid >= ask {
				// two separate reads can straddle a write, so recheck under one lock
				s := ob.Stats(time.Second)
				if s.BestBid != nil && s.BestAsk != nil && *s.BestBid >= *s.BestAsk {
					t.Errorf("observed crossed book %d >= %d", *s.BestBid, *s.BestAsk)
				}
			}
		}
	}

	n := 1000
	wg.Add(4)
	for i := 0; i < 4; i++ {
		go poll()
	}
	for i := 0; i < n; i++ {
		wg.Add(2)
		go addOrder(i, BUY)
		go addOrder(i, SELL)
	}
	wg.Wait()

	verifyBook(t, ob)
}

func BenchmarkOrderBookMatch(b *testing.B) {
	ob := New(nil)

	for i := 0; i < 10_000; i++ {
		_, _ = ob.AddOrder(10000+int64(i%5), 10, SELL)
	}

	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		_, _ = ob.AddOrder(10100, 10, BUY)
		if i%1000 == 999 {
			b.StopTimer()
			for j := 0; j < 1000; j++ {
				_, _ = ob.AddOrder(10000+int64(j%5), 10, SELL)
			}
			b.StartTimer()
		}
	}
}
