// Package fanout hands every audit event to several publishers at once.
package fanout

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	audit "auditkit/pkg/platform/audit"
)

// Publisher publishes to all targets concurrently and joins their errors.
// One failing target does not stop the others.
type Publisher struct {
	targets []named
}

type named struct {
	name string
	pub  audit.Publisher
}

func New() *Publisher {
	return &Publisher{}
}

// Add registers a target under name, used in error messages.
func (p *Publisher) Add(name string, target audit.Publisher) *Publisher {
	if target != nil {
		p.targets = append(p.targets, named{name: name, pub: target})
	}
	return p
}

// Len returns the number of targets.
func (p *Publisher) Len() int { return len(p.targets) }

// Publish assigns a shared event id when missing so all targets record the
// same event, then publishes to every target.
func (p *Publisher) Publish(ctx context.Context, event audit.Event) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}

	errs := make([]error, len(p.targets))
	var g errgroup.Group
	for i, t := range p.targets {
		g.Go(func() error {
			if err := t.pub.Publish(ctx, event); err != nil {
				errs[i] = fmt.Errorf("%s: %w", t.name, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
