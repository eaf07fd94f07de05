// Package consumer reads audit events back from Kafka and hands them to
// topic handlers, committing offsets only for handled records.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// HeaderEventID mirrors the header written by the kafka publisher.
const HeaderEventID = "event_id"

// Message is a consumed Kafka record.
type Message struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Timestamp time.Time

	record *kgo.Record
}

// FromRecord converts a franz-go record.
func FromRecord(r *kgo.Record) *Message {
	headers := make(map[string]string, len(r.Headers))
	for _, h := range r.Headers {
		headers[h.Key] = string(h.Value)
	}
	return &Message{
		Topic:     r.Topic,
		Partition: r.Partition,
		Offset:    r.Offset,
		Key:       r.Key,
		Value:     r.Value,
		Headers:   headers,
		Timestamp: r.Timestamp,
		record:    r,
	}
}

// Header returns the header value for key, or "".
func (m *Message) Header(key string) string {
	return m.Headers[key]
}

// Fetcher is the subset of *kgo.Client the consumer loop needs.
type Fetcher interface {
	PollFetches(ctx context.Context) kgo.Fetches
	CommitRecords(ctx context.Context, rs ...*kgo.Record) error
}

// Consumer polls a Fetcher and dispatches each record to a handler.
type Consumer struct {
	client     Fetcher
	handler    TopicHandler
	logger     *slog.Logger
	minBackoff time.Duration
	maxBackoff time.Duration
}

// Option configures the Consumer.
type Option func(*Consumer)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Consumer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetryBackoff bounds the delay between attempts at a failing record.
// The delay doubles from min up to max.
func WithRetryBackoff(minDelay, maxDelay time.Duration) Option {
	return func(c *Consumer) {
		if minDelay > 0 {
			c.minBackoff = minDelay
		}
		if maxDelay >= c.minBackoff {
			c.maxBackoff = maxDelay
		}
	}
}

func New(client Fetcher, handler TopicHandler, opts ...Option) *Consumer {
	c := &Consumer{
		client:     client,
		handler:    handler,
		logger:     slog.New(slog.DiscardHandler),
		minBackoff: 200 * time.Millisecond,
		maxBackoff: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run polls until ctx is cancelled or the client is closed. A record whose
// handler fails is retried until it succeeds, so offsets are never committed
// past an unhandled record. Cancelling ctx mid-retry commits what was handled
// and leaves the rest for the next poll from the committed offset.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() {
			return nil
		}
		for _, fe := range fetches.Errors() {
			if errors.Is(fe.Err, context.Canceled) || errors.Is(fe.Err, context.DeadlineExceeded) {
				return ctx.Err()
			}
			c.logger.WarnContext(ctx, "kafka fetch error",
				"topic", fe.Topic,
				"partition", fe.Partition,
				"error", fe.Err,
			)
		}
		if err := c.process(ctx, fetches); err != nil {
			return err
		}
	}
}

func (c *Consumer) process(ctx context.Context, fetches kgo.Fetches) error {
	var (
		done        []*kgo.Record
		interrupted error
	)
	fetches.EachPartition(func(p kgo.FetchTopicPartition) {
		for _, r := range p.Records {
			if interrupted != nil {
				return
			}
			if err := c.handle(ctx, r); err != nil {
				interrupted = err
				return
			}
			done = append(done, r)
		}
	})

	if len(done) > 0 {
		// A cancelled ctx must not prevent committing handled records.
		commitCtx := context.WithoutCancel(ctx)
		if err := c.client.CommitRecords(commitCtx, done...); err != nil {
			if interrupted != nil {
				return interrupted
			}
			return fmt.Errorf("commit offsets: %w", err)
		}
	}
	return interrupted
}

// handle delivers r until the handler accepts it. It only gives up when ctx
// is done, returning ctx.Err().
func (c *Consumer) handle(ctx context.Context, r *kgo.Record) error {
	delay := c.minBackoff
	for attempt := 1; ; attempt++ {
		err := c.handler.Handle(ctx, FromRecord(r))
		if err == nil {
			return nil
		}
		c.logger.ErrorContext(ctx, "audit message handler failed",
			"topic", r.Topic,
			"partition", r.Partition,
			"offset", r.Offset,
			"attempt", attempt,
			"retry_in", delay,
			"error", err,
		)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, c.maxBackoff)
	}
}

// NewClient builds a consumer-group client with manual commits.
func NewClient(brokers []string, group string, topics []string, opts ...kgo.Opt) (*kgo.Client, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka: no brokers configured")
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	}
	client, err := kgo.NewClient(append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return client, nil
}
