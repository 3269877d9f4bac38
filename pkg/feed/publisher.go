package feed

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/deque"
	"github.com/joripage/clob/pkg/orderbook"
	"go.uber.org/zap"
)

// Sink delivers batches of events somewhere outside the process.
type Sink interface {
	Name() string
	Send(ctx context.Context, events []Event) error
}

// Publisher turns book updates into sequenced events and fans them out to
// sinks from its own goroutine. OnUpdate runs under the book's write lock and
// never blocks: when the buffer is full the batch is dropped and counted.
type Publisher struct {
	cfg    Config
	symbol string
	scale  int32
	now    func() time.Time
	logger *zap.Logger

	ch      chan []Event
	backlog deque.Deque[Event]
	sinks   []Sink

	seqMu   sync.Mutex
	seq     uint64
	dropped atomic.Uint64
	sent    atomic.Uint64
	failed  atomic.Uint64
}

func NewPublisher(cfg Config, book orderbook.Config, logger *zap.Logger, sinks ...Sink) *Publisher {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{
		cfg:    cfg,
		symbol: book.Symbol,
		scale:  book.PriceScale,
		now:    time.Now,
		logger: logger.Named("feed"),
		ch:     make(chan []Event, cfg.BufferSize),
		sinks:  sinks,
	}
}

// AddSink registers another sink. It must be called before Run.
func (p *Publisher) AddSink(s Sink) {
	p.sinks = append(p.sinks, s)
}

// OnUpdate implements orderbook.Listener.
func (p *Publisher) OnUpdate(u orderbook.Update) {
	events := eventsFromUpdate(p.symbol, p.scale, p.now(), u)
	if len(events) == 0 {
		return
	}
	p.enqueue(events)
}

// SnapshotSource is implemented by *orderbook.OrderBook.
type SnapshotSource interface {
	EmitSnapshot(n int, fn func(orderbook.Snapshot))
}

// PublishSnapshot queues a depth snapshot of book. The snapshot is sequenced
// while the book is locked, so every event after it in feed order carries a
// later BookSeq.
func (p *Publisher) PublishSnapshot(book SnapshotSource) {
	book.EmitSnapshot(p.cfg.SnapshotDepth, func(snap orderbook.Snapshot) {
		p.enqueue([]Event{{
			BookSeq:   snap.Seq,
			Type:      EventSnapshot,
			Symbol:    p.symbol,
			Timestamp: p.now(),
			Bids:      displayLevels(snap.Bids, p.scale),
			Asks:      displayLevels(snap.Asks, p.scale),
		}})
	})
}

func (p *Publisher) enqueue(events []Event) {
	p.seqMu.Lock()
	defer p.seqMu.Unlock()

	for i := range events {
		p.seq++
		events[i].Seq = p.seq
	}
	select {
	case p.ch <- events:
	default:
		p.dropped.Add(uint64(len(events)))
	}
}

// Dropped counts events lost to a full buffer.
func (p *Publisher) Dropped() uint64 { return p.dropped.Load() }

// Sent counts events handed to every sink.
func (p *Publisher) Sent() uint64 { return p.sent.Load() }

// SinkFailures counts failed Send calls across sinks.
func (p *Publisher) SinkFailures() uint64 { return p.failed.Load() }

// Run delivers queued events until ctx is done, then flushes what is left
// with a short grace period.
func (p *Publisher) Run(ctx context.Context) error {
	p.logger.Info("feed publisher started", zap.Int("sinks", len(p.sinks)), zap.Int("buffer", p.cfg.BufferSize))
	for {
		select {
		case <-ctx.Done():
			p.drain()
			flushCtx, cancel := context.WithTimeout(context.Background(), p.cfg.PublishTimeout)
			p.flush(flushCtx)
			cancel()
			p.logger.Info("feed publisher stopped", zap.Uint64("sent", p.Sent()), zap.Uint64("dropped", p.Dropped()))
			return nil
		case batch := <-p.ch:
			p.push(batch)
			p.drain()
			p.flush(ctx)
		}
	}
}

func (p *Publisher) push(batch []Event) {
	for _, e := range batch {
		p.backlog.PushBack(e)
	}
}

// drain moves everything already buffered into the backlog without waiting.
func (p *Publisher) drain() {
	for {
		select {
		case batch := <-p.ch:
			p.push(batch)
		default:
			return
		}
	}
}

func (p *Publisher) flush(ctx context.Context) {
	for p.backlog.Len() > 0 {
		n := min(p.backlog.Len(), p.cfg.MaxBatch)
		batch := make([]Event, n)
		for i := range batch {
			batch[i] = p.backlog.PopFront()
		}
		for _, s := range p.sinks {
			sctx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
			err := s.Send(sctx, batch)
			cancel()
			if err != nil {
				p.failed.Add(1)
				p.logger.Warn("sink send failed",
					zap.String("sink", s.Name()),
					zap.Uint64("first_seq", batch[0].Seq),
					zap.Int("events", len(batch)),
					zap.Error(err),
				)
			}
		}
		p.sent.Add(uint64(n))
	}
}
