package worker

import (
	"context"
	"log/slog"

	audit "auditkit/pkg/platform/audit"
)

// Worker drains audit events from a channel into a store. A failed append is
// logged and the worker moves on to the next event.
type Worker struct {
	store  audit.Store
	inbox  <-chan audit.Event
	logger *slog.Logger
}

// Option configures the Worker.
type Option func(*Worker)

// WithLogger sets the logger used for append failures.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func NewWorker(store audit.Store, inbox <-chan audit.Event, opts ...Option) *Worker {
	w := &Worker{store: store, inbox: inbox, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run consumes until the inbox is closed (returns nil) or ctx is done
// (returns ctx.Err()).
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-w.inbox:
			if !ok {
				return nil
			}
			if err := w.store.Append(ctx, event); err != nil {
				w.logger.ErrorContext(ctx, "audit event append failed",
					"event_id", event.EventID,
					"action", event.Action,
					"error", err,
				)
			}
		}
	}
}
