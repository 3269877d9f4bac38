package metrics

import (
	"testing"
	"time"

	"github.com/joripage/clob/pkg/orderbook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookCountsActivity(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBook(reg, "TEST")
	book := orderbook.New(nil, orderbook.WithListener(m))

	_, err := book.AddOrder(100, 10, orderbook.SELL)
	require.NoError(t, err)
	_, err = book.AddOrder(100, 4, orderbook.BUY)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.trades))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.tradedQty))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.updates))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.levelChanges.WithLabelValues("SELL", "NEW")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.levelChanges.WithLabelValues("SELL", "CHANGE")))
}

func TestObserveStats(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBook(reg, "TEST")
	book := orderbook.New(nil)

	m.ObserveStats(book.Stats(time.Second))
	assert.Equal(t, -1.0, testutil.ToFloat64(m.spread))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.bestPrice.WithLabelValues("BUY")))

	_, _ = book.AddOrder(98, 3, orderbook.BUY)
	_, _ = book.AddOrder(101, 5, orderbook.SELL)
	m.ObserveStats(book.Stats(time.Second))

	assert.Equal(t, 3.0, testutil.ToFloat64(m.spread))
	assert.Equal(t, 98.0, testutil.ToFloat64(m.bestPrice.WithLabelValues("BUY")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.bestDepth.WithLabelValues("SELL")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.orders))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.statsPolls))
}

type counters struct{ dropped, sent, failed uint64 }

func (c counters) Dropped() uint64      { return c.dropped }
func (c counters) Sent() uint64         { return c.sent }
func (c counters) SinkFailures() uint64 { return c.failed }

func TestWatchFeed(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBook(reg, "TEST")
	m.WatchFeed(counters{dropped: 3, sent: 40, failed: 1})

	require.Len(t, m.feedCallbacks, 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.feedCallbacks[0]))
	assert.Equal(t, 40.0, testutil.ToFloat64(m.feedCallbacks[1]))

	n, err := testutil.GatherAndCount(reg, "clob_feed_sink_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type asyncFailures uint64

func (a asyncFailures) AsyncFailures() uint64 { return uint64(a) }

func TestWatchKafka(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBook(reg, "TEST")
	m.WatchKafka(asyncFailures(7))

	require.Len(t, m.feedCallbacks, 1)
	assert.Equal(t, 7.0, testutil.ToFloat64(m.feedCallbacks[0]))
}
