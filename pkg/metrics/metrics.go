// Package metrics exposes book activity as Prometheus collectors.
package metrics

import (
	"github.com/joripage/clob/pkg/orderbook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "clob"

// Book holds the collectors for one instrument. It is an orderbook.Listener
// for activity counters and takes Stats reads for the gauges.
type Book struct {
	trades        prometheus.Counter
	tradedQty     prometheus.Counter
	levelChanges  *prometheus.CounterVec
	updates       prometheus.Counter
	bestPrice     *prometheus.GaugeVec
	bestDepth     *prometheus.GaugeVec
	levels        *prometheus.GaugeVec
	spread        prometheus.Gauge
	orders        prometheus.Gauge
	recentVolume  prometheus.Gauge
	lastTrade     prometheus.Gauge
	statsPolls    prometheus.Counter
	feedCallbacks []prometheus.Collector
	reg           prometheus.Registerer
}

// NewBook registers the collectors on reg, labelled with the symbol.
func NewBook(reg prometheus.Registerer, symbol string) *Book {
	labels := prometheus.Labels{"symbol": symbol}
	f := promauto.With(reg)

	return &Book{
		reg: reg,
		trades: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "book", Name: "trades_total",
			Help: "Trades executed", ConstLabels: labels,
		}),
		tradedQty: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "book", Name: "traded_quantity_total",
			Help: "Quantity executed across all trades", ConstLabels: labels,
		}),
		levelChanges: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "book", Name: "level_changes_total",
			Help: "Price level changes by side and action", ConstLabels: labels,
		}, []string{"side", "action"}),
		updates: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "book", Name: "updates_total",
			Help: "Mutating calls that changed the book", ConstLabels: labels,
		}),
		bestPrice: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "book", Name: "best_price",
			Help: "Best price in minor units, 0 when the side is empty", ConstLabels: labels,
		}, []string{"side"}),
		bestDepth: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "book", Name: "best_depth",
			Help: "Quantity resting at the best price", ConstLabels: labels,
		}, []string{"side"}),
		levels: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "book", Name: "levels",
			Help: "Distinct price levels", ConstLabels: labels,
		}, []string{"side"}),
		spread: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "book", Name: "spread",
			Help: "Best ask minus best bid, -1 when undefined", ConstLabels: labels,
		}),
		orders: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "book", Name: "resting_orders",
			Help: "Live resting orders", ConstLabels: labels,
		}),
		recentVolume: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "book", Name: "recent_volume",
			Help: "Quantity traded within the stats window", ConstLabels: labels,
		}),
		lastTrade: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "book", Name: "last_trade_price",
			Help: "Price of the most recent retained trade", ConstLabels: labels,
		}),
		statsPolls: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "stats", Name: "polls_total",
			Help: "Stats reads taken by the poller", ConstLabels: labels,
		}),
	}
}

// OnUpdate implements orderbook.Listener.
func (m *Book) OnUpdate(u orderbook.Update) {
	m.updates.Inc()
	for _, t := range u.Trades {
		m.trades.Inc()
		m.tradedQty.Add(float64(t.Qty))
	}
	for _, l := range u.Levels {
		m.levelChanges.WithLabelValues(string(l.Side), string(l.Action)).Inc()
	}
}

// ObserveStats copies a Stats read into the gauges.
func (m *Book) ObserveStats(s orderbook.Stats) {
	m.statsPolls.Inc()

	m.bestPrice.WithLabelValues(string(orderbook.BUY)).Set(valueOr(s.BestBid, 0))
	m.bestPrice.WithLabelValues(string(orderbook.SELL)).Set(valueOr(s.BestAsk, 0))
	m.bestDepth.WithLabelValues(string(orderbook.BUY)).Set(float64(s.BestBidDepth))
	m.bestDepth.WithLabelValues(string(orderbook.SELL)).Set(float64(s.BestAskDepth))
	m.levels.WithLabelValues(string(orderbook.BUY)).Set(float64(s.BidLevels))
	m.levels.WithLabelValues(string(orderbook.SELL)).Set(float64(s.AskLevels))
	m.spread.Set(valueOr(s.Spread, -1))
	m.orders.Set(float64(s.OrderCount))
	m.recentVolume.Set(float64(s.RecentVolume))
	if s.LastTradePrice != nil {
		m.lastTrade.Set(float64(*s.LastTradePrice))
	}
}

// FeedCounters is implemented by feed.Publisher.
type FeedCounters interface {
	Dropped() uint64
	Sent() uint64
	SinkFailures() uint64
}

// WatchFeed exports the publisher's counters, read at scrape time.
func (m *Book) WatchFeed(fc FeedCounters) {
	f := promauto.With(m.reg)
	m.feedCallbacks = append(m.feedCallbacks,
		f.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "feed", Name: "events_dropped_total",
			Help: "Events dropped because the publisher buffer was full",
		}, func() float64 { return float64(fc.Dropped()) }),
		f.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "feed", Name: "events_sent_total",
			Help: "Events delivered to sinks",
		}, func() float64 { return float64(fc.Sent()) }),
		f.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "feed", Name: "sink_failures_total",
			Help: "Failed sink sends",
		}, func() float64 { return float64(fc.SinkFailures()) }),
	)
}

// AsyncFailureCounter is implemented by kafkawrapper.Producer.
type AsyncFailureCounter interface {
	AsyncFailures() uint64
}

// WatchKafka exports messages an async Kafka writer failed to deliver. With a
// synchronous writer those failures already show up as sink failures.
func (m *Book) WatchKafka(c AsyncFailureCounter) {
	m.feedCallbacks = append(m.feedCallbacks,
		promauto.With(m.reg).NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "kafka", Name: "async_failures_total",
			Help: "Messages the async Kafka writer failed to deliver",
		}, func() float64 { return float64(c.AsyncFailures()) }),
	)
}

func valueOr(p *int64, def float64) float64 {
	if p == nil {
		return def
	}
	return float64(*p)
}
