package orderbook

import (
	"math"
	"time"

	"github.com/gammazero/deque"
)

// tradeLog is the append-only, time-ordered record of executions. With a
// retention or count limit set, old entries are dropped from the front; the
// lifetime matched quantity survives pruning.
type tradeLog struct {
	trades    deque.Deque[Trade]
	retention time.Duration
	maxTrades int
	lastID    uint64
	matched   int64
	count     uint64
}

func newTradeLog(retention time.Duration, maxTrades int) *tradeLog {
	return &tradeLog{
		retention: retention,
		maxTrades: maxTrades,
	}
}

// record stamps t with the next trade id and appends it.
func (l *tradeLog) record(t Trade) Trade {
	l.lastID++
	t.ID = l.lastID
	l.trades.PushBack(t)
	l.matched = addCapped(l.matched, t.Qty)
	l.count++
	l.prune(t.Timestamp)
	return t
}

func (l *tradeLog) prune(now time.Time) {
	for l.maxTrades > 0 && l.trades.Len() > l.maxTrades {
		l.trades.PopFront()
	}
	if l.retention <= 0 {
		return
	}
	cutoff := now.Add(-l.retention)
	for l.trades.Len() > 0 && l.trades.Front().Timestamp.Before(cutoff) {
		l.trades.PopFront()
	}
}

// recentVolume sums the quantity of trades stamped within [now-window, now].
// With a non-zero retention, older trades are already gone.
func (l *tradeLog) recentVolume(now time.Time, window time.Duration) int64 {
	if window < 0 {
		return 0
	}
	cutoff := now.Add(-window)
	var total int64
	for i := l.trades.Len() - 1; i >= 0; i-- {
		t := l.trades.At(i)
		if t.Timestamp.After(now) {
			continue
		}
		if t.Timestamp.Before(cutoff) {
			break
		}
		total = addCapped(total, t.Qty)
	}
	return total
}

// addCapped adds two non-negative quantities, saturating at MaxInt64.
func addCapped(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}

// recent returns up to n of the newest trades, oldest first.
func (l *tradeLog) recent(n int) []Trade {
	if n <= 0 || l.trades.Len() == 0 {
		return nil
	}
	if n > l.trades.Len() {
		n = l.trades.Len()
	}
	out := make([]Trade, 0, n)
	for i := l.trades.Len() - n; i < l.trades.Len(); i++ {
		out = append(out, l.trades.At(i))
	}
	return out
}

func (l *tradeLog) last() (Trade, bool) {
	if l.trades.Len() == 0 {
		return Trade{}, false
	}
	return l.trades.Back(), true
}
