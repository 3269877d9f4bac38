package feed

import (
	"context"

	"go.uber.org/zap"
)

// LogSink writes events to a zap logger at debug level.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("md")}
}

func (s *LogSink) Name() string { return "log" }

func (s *LogSink) Send(_ context.Context, events []Event) error {
	for _, e := range events {
		s.logger.Debug("market data",
			zap.Uint64("seq", e.Seq),
			zap.String("type", string(e.Type)),
			zap.String("side", string(e.Side)),
			zap.Stringer("price", e.Price),
			zap.Int64("qty", e.Qty),
		)
	}
	return nil
}
