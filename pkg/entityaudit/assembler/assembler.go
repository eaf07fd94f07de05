// Package assembler turns auditable entities into canonical audit events.
package assembler

import (
	"context"
	"errors"

	"auditkit/pkg/entityaudit/introspect"
	"auditkit/pkg/platform/audit"
	"auditkit/pkg/requestcontext"
)

// ErrNoEntities is returned when Assemble is given nothing to describe.
var ErrNoEntities = errors.New("assemble audit event: no entities")

type settings struct {
	initiator    string
	hasInitiator bool
	description  string
}

// Option customizes an assembled event.
type Option func(*settings)

// WithInitiator sets the event initiator. Without it the initiator stored in
// the request context is used.
func WithInitiator(initiatorID string) Option {
	return func(s *settings) {
		s.initiator = initiatorID
		s.hasInitiator = true
	}
}

// WithDescription sets a free-form event description.
func WithDescription(description string) Option {
	return func(s *settings) {
		s.description = description
	}
}

// Assemble builds the event for action over entities. The entity type comes
// from the first entity; refs are deduplicated on id and name, keeping first
// occurrence order. Action, initiator and description are not validated.
func Assemble(ctx context.Context, entities []any, action string, opts ...Option) (audit.Event, error) {
	if len(entities) == 0 {
		return audit.Event{}, ErrNoEntities
	}

	var cfg settings
	for _, opt := range opts {
		opt(&cfg)
	}
	if !cfg.hasInitiator {
		cfg.initiator = requestcontext.InitiatorID(ctx)
	}

	entityType, err := introspect.ResolveType(entities[0])
	if err != nil {
		return audit.Event{}, err
	}

	refs := make([]audit.EntityRef, 0, len(entities))
	seen := make(map[audit.EntityRef]struct{}, len(entities))
	for _, entity := range entities {
		ref, err := Ref(entity)
		if err != nil {
			return audit.Event{}, err
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}

	return audit.Event{
		Action:      action,
		Entities:    refs,
		EntityType:  entityType,
		InitiatorID: cfg.initiator,
		Description: cfg.description,
		RequestID:   requestcontext.RequestID(ctx),
		Timestamp:   requestcontext.Now(ctx),
	}, nil
}

// Ref projects one entity onto its id and name.
func Ref(entity any) (audit.EntityRef, error) {
	id, err := introspect.ResolveID(entity)
	if err != nil {
		return audit.EntityRef{}, err
	}
	name, err := introspect.ResolveName(entity)
	if err != nil {
		return audit.EntityRef{}, err
	}
	return audit.EntityRef{ID: id, Name: name}, nil
}
