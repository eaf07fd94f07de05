// Package kafka publishes audit events to a Kafka topic with franz-go.
//
// Records are JSON-encoded audit.Event values keyed by entity type, so all
// events of one type land on the same partition and keep their order.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "auditkit/pkg/platform/audit"
)

// Record header keys.
const (
	HeaderAction  = "action"
	HeaderEventID = "event_id"
)

// Producer is the subset of *kgo.Client used for publishing.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Publisher implements audit.Publisher on a Kafka topic.
type Publisher struct {
	producer Producer
	topic    string
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures the Publisher.
type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func New(producer Producer, topic string, opts ...Option) *Publisher {
	p := &Publisher{
		producer: producer,
		topic:    topic,
		logger:   slog.New(slog.DiscardHandler),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish produces the event and waits for the broker acknowledgement.
func (p *Publisher) Publish(ctx context.Context, event audit.Event) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	record := &kgo.Record{
		Topic:     p.topic,
		Key:       []byte(event.EntityType),
		Value:     value,
		Timestamp: event.Timestamp,
		Headers: []kgo.RecordHeader{
			{Key: HeaderAction, Value: []byte(event.Action)},
			{Key: HeaderEventID, Value: []byte(event.EventID)},
		},
	}
	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit event to %s: %w", p.topic, err)
	}

	p.logger.DebugContext(ctx, "audit event produced",
		"topic", p.topic,
		"event_id", event.EventID,
		"action", event.Action,
	)
	return nil
}

// NewClient builds a producer client for brokers with topic as the default.
func NewClient(brokers []string, topic string, opts ...kgo.Opt) (*kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// EnsureTopic creates topic if it does not exist yet.
func EnsureTopic(ctx context.Context, client *kgo.Client, topic string, partitions int32, replicationFactor int16) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopic(ctx, partitions, replicationFactor, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}
