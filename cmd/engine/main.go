package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joripage/clob/config"
	"github.com/joripage/clob/pkg/feed"
	redis_wrapper "github.com/joripage/clob/pkg/infra/redis"
	kafkawrapper "github.com/joripage/clob/pkg/kafka_wrapper"
	"github.com/joripage/clob/pkg/logging"
	"github.com/joripage/clob/pkg/metrics"
	"github.com/joripage/clob/pkg/orderbook"
	"github.com/joripage/clob/pkg/server"
	"github.com/joripage/clob/pkg/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	var configFile string
	flag.StringVar(&configFile, "config-file", "", "Specify config file path")
	flag.Parse()

	cfg, err := config.Load(configFile)
	if err != nil {
		panic(err)
	}

	level, _ := logging.ParseLevel(cfg.LogLevel)
	logger := logging.NewLogger(level).Named(cfg.ServiceName)
	defer func() { _ = logger.Sync() }()
	undo := zap.ReplaceGlobals(logger.Zap())
	defer undo()

	configBytes, err := json.MarshalIndent(cfg, "", "   ")
	if err != nil {
		zap.S().Warnf("could not convert config to JSON: %v", err)
	} else {
		zap.S().Debugf("load config %s", string(configBytes))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		zap.S().Errorf("engine stopped with error: %v", err)
		os.Exit(1)
	}
	zap.S().Info("Exited cleanly.")
}

func run(ctx context.Context, cfg *config.AppConfig, logger *logging.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	bookMetrics := metrics.NewBook(reg, cfg.Book.Symbol)

	publisher := feed.NewPublisher(cfg.Feed, cfg.Book, logger.Zap())
	if cfg.Feed.LogEvents {
		publisher.AddSink(feed.NewLogSink(logger.Zap()))
	}

	var statsObservers []stats.Observer
	statsObservers = append(statsObservers, bookMetrics)

	if cfg.Redis != nil {
		client, err := redis_wrapper.InitRedisWithBackoff(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		redisSink := feed.NewRedisSink(client, cfg.Feed)
		publisher.AddSink(redisSink)
		statsObservers = append(statsObservers, stats.NewStoreObserver(redisSink, cfg.Stats, logger.Zap()))
	}

	if cfg.Kafka != nil {
		producer, err := kafkawrapper.NewProducer(*cfg.Kafka)
		if err != nil {
			return err
		}
		defer producer.Close()
		bookMetrics.WatchKafka(producer)
		publisher.AddSink(feed.NewKafkaSink(producer, cfg.Feed))
	}

	book := orderbook.New(&cfg.Book,
		orderbook.WithLogger(logger.Zap().Named("book")),
		orderbook.WithListener(bookMetrics),
		orderbook.WithListener(publisher),
	)
	bookMetrics.WatchFeed(publisher)

	if cfg.Seed != nil {
		if err := book.Seed(*cfg.Seed, cfg.Seed.Rand()); err != nil {
			return err
		}
		zap.S().Infof("seeded book %s: %d orders", cfg.Book.Symbol, book.OrderCount())
	}
	publisher.PublishSnapshot(book)

	var srv *server.Server
	if cfg.HTTP.Addr != "" {
		srv = server.New(cfg.HTTP, book, reg, logger)
		publisher.AddSink(srv)
		statsObservers = append(statsObservers, srv)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return publisher.Run(ctx) })
	if srv != nil {
		g.Go(func() error { return srv.Run(ctx) })
	}

	poller := stats.NewPoller(cfg.Stats, book, logger.Zap(), statsObservers...)
	g.Go(func() error { return poller.Run(ctx) })

	zap.S().Infof("engine %s started for %s (sweep=%s)", cfg.ServiceName, cfg.Book.Symbol, cfg.Book.SweepMode)
	return g.Wait()
}
