package feed

import (
	"context"
	"strconv"

	kafkawrapper "github.com/joripage/clob/pkg/kafka_wrapper"
)

// JSONProducer is implemented by kafkawrapper.Producer.
type JSONProducer interface {
	PublishJSONBatch(ctx context.Context, topic string, batch []kafkawrapper.JSONMessage) error
}

// KafkaSink writes the trade tape to a topic. Level events are not sent;
// Kafka consumers rebuild the book from Redis snapshots if they need it.
type KafkaSink struct {
	producer JSONProducer
	topic    string
}

func NewKafkaSink(producer JSONProducer, cfg Config) *KafkaSink {
	cfg.ApplyDefaults()
	return &KafkaSink{producer: producer, topic: cfg.KafkaTopic}
}

func (s *KafkaSink) Name() string { return "kafka" }

// Send writes all trades of events in one producer call. A delivery error
// fails the whole batch.
func (s *KafkaSink) Send(ctx context.Context, events []Event) error {
	var batch []kafkawrapper.JSONMessage
	for _, e := range events {
		if e.Type != EventTrade {
			continue
		}
		// keyed by symbol so one instrument's tape stays on one partition
		batch = append(batch, kafkawrapper.JSONMessage{
			Key:   e.Symbol,
			Value: e,
			Headers: map[string]string{
				"type": string(e.Type),
				"seq":  strconv.FormatUint(e.Seq, 10),
			},
		})
	}
	if len(batch) == 0 {
		return nil
	}
	return s.producer.PublishJSONBatch(ctx, s.topic, batch)
}
