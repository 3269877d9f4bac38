// Package kafkawrapper publishes messages to Kafka through a batching writer.
// Writes are synchronous unless Async is set, so callers see broker errors.
package kafkawrapper

import (
	"context"
	"encoding/json"
	"errors"
	"hash/fnv"
	"sync/atomic"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type ProducerConfig struct {
	Brokers      []string      `yaml:"brokers"`
	BatchSize    int           `yaml:"batch_size"`
	BatchBytes   int64         `yaml:"batch_bytes"`
	BatchTimeout time.Duration `yaml:"batch_timeout"`
	// RequiredAcks is one of "none", "one" or "all"; empty means none.
	RequiredAcks string `yaml:"required_acks"`
	// Async makes WriteMessages return before delivery. Failures are then
	// only logged and counted in AsyncFailures.
	Async bool `yaml:"async"`
}

func (c *ProducerConfig) applyDefaults() {
	if c.BatchSize == 0 {
		c.BatchSize = 100
	}
	if c.BatchBytes == 0 {
		c.BatchBytes = 1 << 20
	}
	if c.BatchTimeout == 0 {
		c.BatchTimeout = 50 * time.Millisecond
	}
}

func (c *ProducerConfig) acks() (kafka.RequiredAcks, error) {
	switch c.RequiredAcks {
	case "", "none":
		return kafka.RequireNone, nil
	case "one":
		return kafka.RequireOne, nil
	case "all":
		return kafka.RequireAll, nil
	}
	return 0, errors.New("kafka required_acks must be none, one or all")
}

// Validate checks the config without connecting.
func (c *ProducerConfig) Validate() error {
	if len(c.Brokers) == 0 {
		return errors.New("kafka brokers are required")
	}
	_, err := c.acks()
	return err
}

// messageWriter is the part of *kafka.Writer the producer calls.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Producer struct {
	w          messageWriter
	logger     *zap.Logger
	asyncFails atomic.Uint64
}

func NewProducer(cfg ProducerConfig) (*Producer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	acks, _ := cfg.acks()

	p := &Producer{logger: zap.L().Named("kafka")}
	wr := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              cfg.BatchSize,
		BatchBytes:             cfg.BatchBytes,
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: true,
		RequiredAcks:           acks,
		Async:                  cfg.Async,
	}
	if cfg.Async {
		wr.Completion = p.complete
	}
	p.w = wr
	return p, nil
}

// complete is the async writer's delivery callback.
func (p *Producer) complete(msgs []kafka.Message, err error) {
	if err == nil {
		return
	}
	p.asyncFails.Add(uint64(len(msgs)))
	topic := ""
	if len(msgs) > 0 {
		topic = msgs[0].Topic
	}
	p.logger.Error("kafka async delivery failed",
		zap.String("topic", topic),
		zap.Int("messages", len(msgs)),
		zap.Error(err),
	)
}

// AsyncFailures counts messages an async writer failed to deliver.
func (p *Producer) AsyncFailures() uint64 {
	return p.asyncFails.Load()
}

var errNotInitialized = errors.New("producer not initialized")

func (p *Producer) Publish(ctx context.Context, topic string, key []byte, value []byte, headers map[string]string) error {
	if p == nil || p.w == nil {
		return errNotInitialized
	}
	return p.w.WriteMessages(ctx, message(topic, key, value, headers))
}

// JSONMessage is one entry of a PublishJSONBatch call.
type JSONMessage struct {
	Key     string
	Value   any
	Headers map[string]string
}

// PublishJSON marshals v and publishes it under HashKey(key).
func (p *Producer) PublishJSON(ctx context.Context, topic string, key string, v any, headers map[string]string) error {
	return p.PublishJSONBatch(ctx, topic, []JSONMessage{{Key: key, Value: v, Headers: headers}})
}

// PublishJSONBatch marshals every message and writes them in one call, so a
// synchronous writer waits for the batch once.
func (p *Producer) PublishJSONBatch(ctx context.Context, topic string, batch []JSONMessage) error {
	if p == nil || p.w == nil {
		return errNotInitialized
	}
	if len(batch) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(batch))
	for _, m := range batch {
		b, err := json.Marshal(m.Value)
		if err != nil {
			return err
		}
		msgs = append(msgs, message(topic, HashKey(m.Key), b, m.Headers))
	}
	return p.w.WriteMessages(ctx, msgs...)
}

func message(topic string, key, value []byte, headers map[string]string) kafka.Message {
	var kh []kafka.Header
	for k, v := range headers {
		kh = append(kh, kafka.Header{Key: k, Value: []byte(v)})
	}
	return kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Headers: kh,
		Time:    time.Now(),
	}
}

func (p *Producer) Close() error {
	if p == nil || p.w == nil {
		return nil
	}
	return p.w.Close()
}

// HashKey turns a string key into a fixed 8 byte big-endian FNV-1a hash.
func HashKey(s string) []byte {
	h := fnv.New64a()
	_, _ = h.Write([]byte(s))
	sum := h.Sum64()
	b := make([]byte, 8)
	for i := 0; i < 8; i++ {
		b[i] = byte(sum >> (56 - 8*i))
	}
	return b
}
