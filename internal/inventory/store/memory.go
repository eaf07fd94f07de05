// Package store keeps inventory entities in memory. Saves assign the id and
// last-modified time in place, the way a database-backed repository would.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"auditkit/pkg/platform/sentinel"
)

// Record is an entity the repository can persist.
type Record[T any] interface {
	Key() string
	Stamp(id string, at time.Time)
	Clone() T
}

// Repository is an in-memory intercept.Repository. Callers get copies, so
// mutating a returned entity does not change stored state until it is saved.
type Repository[T Record[T]] struct {
	mu    sync.RWMutex
	items map[string]T
	order []string
	now   func() time.Time
}

func NewRepository[T Record[T]]() *Repository[T] {
	return &Repository[T]{items: make(map[string]T), now: time.Now}
}

// WithClock overrides the time source.
func (r *Repository[T]) WithClock(now func() time.Time) *Repository[T] {
	r.now = now
	return r
}

func (r *Repository[T]) Save(_ context.Context, entity T) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkLocked(entity); err != nil {
		var zero T
		return zero, err
	}
	r.putLocked(entity, r.now())
	return entity, nil
}

// SaveAll stores every entity or none.
func (r *Repository[T]) SaveAll(_ context.Context, entities []T) ([]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entities {
		if err := r.checkLocked(e); err != nil {
			return nil, err
		}
	}
	now := r.now()
	for _, e := range entities {
		r.putLocked(e, now)
	}
	return entities, nil
}

func (r *Repository[T]) Delete(_ context.Context, entity T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[entity.Key()]; !ok {
		return fmt.Errorf("delete %s: %w", entity.Key(), sentinel.ErrNotFound)
	}
	r.removeLocked(entity.Key())
	return nil
}

// DeleteAll removes every entity or none.
func (r *Repository[T]) DeleteAll(_ context.Context, entities []T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range entities {
		if _, ok := r.items[e.Key()]; !ok {
			return fmt.Errorf("delete %s: %w", e.Key(), sentinel.ErrNotFound)
		}
	}
	for _, e := range entities {
		r.removeLocked(e.Key())
	}
	return nil
}

func (r *Repository[T]) FindByID(_ context.Context, id string) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		var zero T
		return zero, fmt.Errorf("find %s: %w", id, sentinel.ErrNotFound)
	}
	return item.Clone(), nil
}

// List returns all entities in insertion order.
func (r *Repository[T]) List(_ context.Context) ([]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]T, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id].Clone())
	}
	return out, nil
}

// checkLocked rejects updates to ids that were never stored.
func (r *Repository[T]) checkLocked(entity T) error {
	if id := entity.Key(); id != "" {
		if _, ok := r.items[id]; !ok {
			return fmt.Errorf("update %s: %w", id, sentinel.ErrNotFound)
		}
	}
	return nil
}

func (r *Repository[T]) putLocked(entity T, now time.Time) {
	id := entity.Key()
	if id == "" {
		id = uuid.NewString()
		r.order = append(r.order, id)
	}
	entity.Stamp(id, now)
	r.items[id] = entity.Clone()
}

func (r *Repository[T]) removeLocked(id string) {
	delete(r.items, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}
