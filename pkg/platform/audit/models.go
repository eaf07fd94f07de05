package audit

//go:generate mockgen -source=models.go -destination=mocks/mocks.go -package=mocks Publisher,Store

import (
	"context"
	"time"
)

// Default action labels used when an entity descriptor does not override them.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// DefaultInitiatorID is the initiator hosts attach to events raised by
// background processes that have no user behind them.
const DefaultInitiatorID = "system events"

// EntityRef is the minimal projection of an auditable entity placed into an
// event. Two refs are equal iff their ID and Name are equal, which is what the
// event's entity set deduplicates on. An empty string means the value could
// not be resolved.
type EntityRef struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Event is the record emitted for one intercepted operation. It is built once
// by the assembler, handed to a Publisher and never mutated afterwards.
type Event struct {
	// EventID is assigned by the sink; the assembler leaves it empty.
	EventID     string      `json:"eventId,omitempty"`
	Action      string      `json:"action"`
	Entities    []EntityRef `json:"entities"`
	EntityType  string      `json:"entityType,omitempty"`
	InitiatorID string      `json:"initiatorId,omitempty"`
	Description string      `json:"description,omitempty"`
	// RequestID correlates the event with the request that caused it.
	RequestID string    `json:"requestId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EntityIDs returns the non-empty entity ids in event order.
func (e Event) EntityIDs() []string {
	ids := make([]string, 0, len(e.Entities))
	for _, ref := range e.Entities {
		if ref.ID != "" {
			ids = append(ids, ref.ID)
		}
	}
	return ids
}

// HasEntity reports whether the event references an entity with the given id.
func (e Event) HasEntity(entityID string) bool {
	for _, ref := range e.Entities {
		if ref.ID == entityID {
			return true
		}
	}
	return false
}

// Publisher is the sink audit events are handed to. Delivery guarantees
// (retries, buffering, ordering across processes) belong to implementations.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// PublisherFunc adapts an ordinary function to a Publisher.
type PublisherFunc func(ctx context.Context, event Event) error

func (f PublisherFunc) Publish(ctx context.Context, event Event) error { return f(ctx, event) }

// Store persists audit events for later querying.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}
