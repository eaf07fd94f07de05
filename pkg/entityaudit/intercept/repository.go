package intercept

import "context"

// Repository is the persistence surface whose lifecycle operations are
// audited. Implementations are expected to assign ids and last-modified
// values in place, so T is normally a pointer type.
type Repository[T any] interface {
	Save(ctx context.Context, entity T) (T, error)
	SaveAll(ctx context.Context, entities []T) ([]T, error)
	Delete(ctx context.Context, entity T) error
	DeleteAll(ctx context.Context, entities []T) error
}

// Audited decorates a Repository with lifecycle audit events.
type Audited[T any] struct {
	next Repository[T]
	ic   *Interceptor
}

var _ Repository[any] = (*Audited[any])(nil)

func NewAudited[T any](next Repository[T], ic *Interceptor) *Audited[T] {
	return &Audited[T]{next: next, ic: ic}
}

func (a *Audited[T]) Save(ctx context.Context, entity T) (T, error) {
	return Save(ctx, a.ic, entity, func(ctx context.Context) (T, error) {
		return a.next.Save(ctx, entity)
	})
}

func (a *Audited[T]) SaveAll(ctx context.Context, entities []T) ([]T, error) {
	return Save(ctx, a.ic, entities, func(ctx context.Context) ([]T, error) {
		return a.next.SaveAll(ctx, entities)
	})
}

func (a *Audited[T]) Delete(ctx context.Context, entity T) error {
	return Delete(ctx, a.ic, entity, func(ctx context.Context) error {
		return a.next.Delete(ctx, entity)
	})
}

func (a *Audited[T]) DeleteAll(ctx context.Context, entities []T) error {
	return Delete(ctx, a.ic, entities, func(ctx context.Context) error {
		return a.next.DeleteAll(ctx, entities)
	})
}
