// Package stream publishes audit events to a Redis stream.
package stream

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	audit "auditkit/pkg/platform/audit"
)

// DefaultMaxLen caps the stream length (approximately) unless overridden.
const DefaultMaxLen = 100_000

// Appender is the subset of a go-redis client used for publishing.
type Appender interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// Publisher implements audit.Publisher with XADD. Each entry carries the
// event id, action, entity type and the JSON-encoded event.
type Publisher struct {
	client Appender
	stream string
	maxLen int64
	now    func() time.Time
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithMaxLen sets the approximate stream cap; 0 disables trimming.
func WithMaxLen(n int64) Option {
	return func(p *Publisher) {
		p.maxLen = n
	}
}

func New(client Appender, stream string, opts ...Option) *Publisher {
	p := &Publisher{
		client: client,
		stream: stream,
		maxLen: DefaultMaxLen,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish appends the event and returns once Redis has assigned an entry id.
func (p *Publisher) Publish(ctx context.Context, event audit.Event) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{
			"event_id":    event.EventID,
			"action":      event.Action,
			"entity_type": event.EntityType,
			"payload":     string(payload),
		},
	}
	if p.maxLen > 0 {
		args.MaxLen = p.maxLen
		args.Approx = true
	}

	if err := p.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd audit event to %s: %w", p.stream, err)
	}
	return nil
}

// Decode turns a stream entry written by Publish back into an event.
func Decode(msg redis.XMessage) (audit.Event, error) {
	raw, ok := msg.Values["payload"].(string)
	if !ok {
		return audit.Event{}, fmt.Errorf("stream entry %s: missing payload", msg.ID)
	}
	var event audit.Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		return audit.Event{}, fmt.Errorf("stream entry %s: %w", msg.ID, err)
	}
	return event, nil
}
