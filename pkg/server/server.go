// Package server exposes the book read-only over HTTP: depth snapshots,
// health, Prometheus metrics and a websocket stream of stats and market data.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/joripage/clob/pkg/feed"
	"github.com/joripage/clob/pkg/logging"
	"github.com/joripage/clob/pkg/orderbook"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type Config struct {
	Addr             string        `yaml:"addr" env:"ADDR"`
	SubscriberBuffer int           `yaml:"subscriber_buffer" env:"SUBSCRIBER_BUFFER"`
	WriteWait        time.Duration `yaml:"write_wait" env:"WRITE_WAIT"`
	PingInterval     time.Duration `yaml:"ping_interval" env:"PING_INTERVAL"`
	DefaultDepth     int           `yaml:"default_depth" env:"DEFAULT_DEPTH"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

func (c *Config) ApplyDefaults() {
	if c.SubscriberBuffer <= 0 {
		c.SubscriberBuffer = 64
	}
	if c.WriteWait <= 0 {
		c.WriteWait = 5 * time.Second
	}
	if c.PingInterval <= 0 {
		c.PingInterval = 30 * time.Second
	}
	if c.DefaultDepth <= 0 {
		c.DefaultDepth = 20
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
}

// Book is the read side of *orderbook.OrderBook the server needs.
type Book interface {
	Snapshot(n int) orderbook.Snapshot
	Config() orderbook.Config
}

type outboundMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type Server struct {
	cfg      Config
	book     Book
	statsHub *hub[orderbook.Stats]
	feedHub  *hub[[]feed.Event]
	upgrader websocket.Upgrader
	gatherer prometheus.Gatherer
	logger   *logging.Logger
}

func New(cfg Config, book Book, gatherer prometheus.Gatherer, logger *logging.Logger) *Server {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = logging.New(nil)
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		cfg:      cfg,
		book:     book,
		statsHub: newHub[orderbook.Stats](),
		feedHub:  newHub[[]feed.Event](),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		gatherer: gatherer,
		logger:   logger.Named("server"),
	}
}

// ObserveStats implements stats.Observer.
func (s *Server) ObserveStats(st orderbook.Stats) {
	s.statsHub.Broadcast(st)
}

func (s *Server) Name() string { return "websocket" }

// Send implements feed.Sink.
func (s *Server) Send(_ context.Context, events []feed.Event) error {
	s.feedHub.Broadcast(events)
	return nil
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/book", s.handleBook)
	mux.HandleFunc("/ws", s.handleStream)
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "http server listening", zap.String("addr", s.cfg.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "symbol": s.book.Config().Symbol})
}

func (s *Server) handleBook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	depth, err := s.depthParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, s.book.Snapshot(depth))
}

func (s *Server) depthParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("depth")
	if raw == "" {
		return s.cfg.DefaultDepth, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, errors.New("depth must be a non-negative integer")
	}
	return n, nil
}

// handleStream sends a depth snapshot, then every stats sample and market
// data batch until the client goes away.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	depth, err := s.depthParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx := logging.WithRequestID(r.Context(), logging.NewRequestID())
	logger, ctx := logging.GetLogger(ctx, s.logger)
	logger.Info(ctx, "stream opened", zap.String("remote", r.RemoteAddr))
	defer logger.Info(ctx, "stream closed")

	// subscribe before the snapshot so nothing published after it is missed
	statsSub := s.statsHub.Subscribe(s.cfg.SubscriberBuffer)
	defer s.statsHub.Unsubscribe(statsSub)
	feedSub := s.feedHub.Subscribe(s.cfg.SubscriberBuffer)
	defer s.feedHub.Unsubscribe(feedSub)

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(msg outboundMessage) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteWait))
		if err := conn.WriteJSON(msg); err != nil {
			logger.Debug(ctx, "stream write failed", zap.Error(err))
			return false
		}
		return true
	}

	if !send(outboundMessage{Type: "snapshot", Data: s.book.Snapshot(depth)}) {
		return
	}

	ping := time.NewTicker(s.cfg.PingInterval)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case st := <-statsSub.ch:
			if !send(outboundMessage{Type: "stats", Data: st}) {
				return
			}
		case events := <-feedSub.ch:
			if !send(outboundMessage{Type: "md", Data: events}) {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(s.cfg.WriteWait)); err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
