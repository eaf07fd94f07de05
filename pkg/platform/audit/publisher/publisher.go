// Package publisher is the store-backed audit.Publisher used by default.
//
// In synchronous mode Publish appends straight to the store. With
// WithAsyncBuffer events go through a bounded channel drained by a
// worker.Worker; a full buffer drops the event and reports ErrBufferFull
// rather than blocking the caller.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	audit "auditkit/pkg/platform/audit"
	"auditkit/pkg/platform/audit/worker"
	"auditkit/pkg/platform/sentinel"
)

var (
	ErrBufferFull = fmt.Errorf("audit buffer full: %w", sentinel.ErrCapacity)
	ErrClosed     = fmt.Errorf("audit publisher closed: %w", sentinel.ErrUnavailable)
)

// Publisher assigns event ids and timestamps and persists events to a store.
type Publisher struct {
	store  audit.Store
	logger *slog.Logger
	now    func() time.Time
	newID  func() string

	bufferSize int
	mu         sync.RWMutex
	closed     bool
	buffer     chan audit.Event
	done       chan struct{}
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous persistence with a buffer of size n.
func WithAsyncBuffer(n int) Option {
	return func(p *Publisher) {
		p.bufferSize = n
	}
}

// WithLogger sets the logger used by the background worker.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithClock overrides the time source used for missing timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) {
		if now != nil {
			p.now = now
		}
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(p)
	}

	if p.bufferSize > 0 {
		p.buffer = make(chan audit.Event, p.bufferSize)
		p.done = make(chan struct{})
		w := worker.NewWorker(store, p.buffer, worker.WithLogger(p.logger))
		go func() {
			defer close(p.done)
			// runs until Close closes the buffer
			_ = w.Run(context.Background())
		}()
	}
	return p
}

// Publish stamps the event and persists it, or enqueues it in async mode.
func (p *Publisher) Publish(ctx context.Context, event audit.Event) error {
	if event.EventID == "" {
		event.EventID = p.newID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now()
	}

	if p.buffer == nil {
		if err := p.store.Append(ctx, event); err != nil {
			return fmt.Errorf("append audit event: %w", err)
		}
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.buffer <- event:
		return nil
	default:
		p.logger.WarnContext(ctx, "audit buffer full, dropping event",
			"event_id", event.EventID,
			"action", event.Action,
		)
		return ErrBufferFull
	}
}

// ListRecent returns up to limit events, newest first.
func (p *Publisher) ListRecent(ctx context.Context, limit int) ([]audit.Event, error) {
	return p.store.ListRecent(ctx, limit)
}

// Close stops accepting events and waits for buffered ones to be persisted.
func (p *Publisher) Close() error {
	if p.buffer == nil {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.buffer)
	p.mu.Unlock()

	<-p.done
	return nil
}

// IsBufferFull reports whether err is a dropped-on-full error.
func IsBufferFull(err error) bool {
	return errors.Is(err, ErrBufferFull)
}
