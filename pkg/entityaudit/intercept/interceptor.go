// Package intercept wraps business and persistence operations and emits audit
// events for the auditable entities they touch.
//
// Explicit actions label an operation and may suppress the automatic
// lifecycle events raised by everything they call:
//
//	asset, err := intercept.Action(ctx, ic, intercept.NewActionPolicy("archived"), []any{asset},
//		func(ctx context.Context) (*models.Asset, error) {
//			return repo.Save(ctx, asset) // no "updated" event
//		})
//
// The suppression flag travels in the context handed to the operation, so it
// is visible to nested calls and gone once the action returns.
//
// Audit failures never change the outcome of the wrapped operation. They are
// logged, counted and recorded on the active trace span instead.
package intercept

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"auditkit/pkg/entityaudit/assembler"
	"auditkit/pkg/entityaudit/introspect"
	"auditkit/pkg/platform/audit"
)

// PublishError reports an event the sink did not accept.
type PublishError struct {
	Action     string
	EntityType string
	Err        error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish audit event %s/%s: %v", e.EntityType, e.Action, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Interceptor synthesizes audit events and hands them to a publisher. A nil
// *Interceptor calls operations through without auditing.
type Interceptor struct {
	publisher audit.Publisher
	logger    *slog.Logger
	metrics   *Metrics
	policies  *Policies
}

// Option configures the Interceptor.
type Option func(*Interceptor)

// WithLogger sets the logger used for published and dropped events.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Interceptor) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(i *Interceptor) {
		i.metrics = m
	}
}

// WithPolicies sets the operation policy registry consulted by Invoke.
func WithPolicies(p *Policies) Option {
	return func(i *Interceptor) {
		i.policies = p
	}
}

func New(publisher audit.Publisher, opts ...Option) *Interceptor {
	i := &Interceptor{
		publisher: publisher,
		logger:    slog.New(slog.DiscardHandler),
		policies:  NewPolicies(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Policies returns the operation policy registry.
func (i *Interceptor) Policies() *Policies {
	if i == nil {
		return nil
	}
	return i.policies
}

// Send publishes an event for auditable, which may be one entity or a slice
// of entities. Nothing is published, and nil returned, when auditable holds
// no auditable entity. Unlike the interception paths, failures are returned
// to the caller as well as recorded.
func (i *Interceptor) Send(ctx context.Context, auditable any, action string, opts ...assembler.Option) error {
	if i == nil {
		return nil
	}
	entities, ok := introspect.CapabilitiesOf(auditable)
	if !ok {
		return nil
	}
	if err := i.publish(ctx, entities, action, opts...); err != nil {
		i.drop(ctx, action, err)
		return err
	}
	return nil
}

// emit publishes on a best-effort basis.
func (i *Interceptor) emit(ctx context.Context, entities []any, action string) {
	if i == nil {
		return
	}
	if err := i.publish(ctx, entities, action); err != nil {
		i.drop(ctx, action, err)
	}
}

func (i *Interceptor) publish(ctx context.Context, entities []any, action string, opts ...assembler.Option) (err error) {
	event, err := assembler.Assemble(ctx, entities, action, opts...)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			err = &PublishError{Action: action, EntityType: event.EntityType, Err: fmt.Errorf("publisher panic: %v", r)}
		}
	}()
	if err := i.publisher.Publish(ctx, event); err != nil {
		return &PublishError{Action: action, EntityType: event.EntityType, Err: err}
	}

	i.metrics.IncPublished(action)
	i.logger.DebugContext(ctx, "audit event published",
		"entity_type", event.EntityType,
		"action", event.Action,
		"entities", len(event.Entities),
	)
	return nil
}

func (i *Interceptor) drop(ctx context.Context, action string, err error, attrs ...any) {
	reason := ReasonPublish
	var ierr *introspect.IntrospectionError
	if errors.As(err, &ierr) || errors.Is(err, assembler.ErrNoEntities) {
		reason = ReasonIntrospection
	}

	i.metrics.IncDropped(reason)
	i.logger.WarnContext(ctx, "audit event dropped", append([]any{
		"action", action,
		"reason", reason,
		"error", err,
	}, attrs...)...)

	span := trace.SpanFromContext(ctx)
	span.AddEvent("audit.event.dropped", trace.WithAttributes(
		attribute.String("audit.action", action),
		attribute.String("audit.drop_reason", reason),
	))
	span.RecordError(err)
}

// Action runs op as an explicit action. The suppression flag is set from
// policy for everything op does with the context it receives. With an empty
// label op is simply called. Otherwise an event is published over the
// auditable entities among args (the first arg decides), or failing that over
// an auditable result. A failed op publishes nothing and its error is returned
// unchanged.
func Action[R any](ctx context.Context, ic *Interceptor, policy ActionPolicy, args []any, op func(context.Context) (R, error)) (R, error) {
	ctx = WithDefaultEventsDisabled(ctx, policy.DisableDefaultEvents)
	if policy.Action == "" {
		return op(ctx)
	}

	if entities, ok := introspect.CapabilitiesOf(args); ok {
		result, err := op(ctx)
		if err != nil {
			return result, err
		}
		ic.emit(ctx, entities, policy.Action)
		return result, nil
	}

	result, err := op(ctx)
	if err != nil {
		return result, err
	}
	if entities, ok := introspect.CapabilitiesOf(result); ok {
		ic.emit(ctx, entities, policy.Action)
	}
	return result, nil
}

// Save runs a create-or-update op over candidate, one entity or a slice. The
// action is decided before op runs, since persistence fills the id and
// last-modified members in place: a new first entity yields the create label,
// otherwise the update label. The event covers the entities as op left them.
func Save[R any](ctx context.Context, ic *Interceptor, candidate any, op func(context.Context) (R, error)) (R, error) {
	if DefaultEventsDisabled(ctx) {
		return op(ctx)
	}
	entities, ok := introspect.CapabilitiesOf(candidate)
	if !ok {
		return op(ctx)
	}

	action, actionErr := saveAction(entities[0])

	result, err := op(ctx)
	if err != nil {
		return result, err
	}
	if actionErr != nil {
		if ic != nil {
			entityType, _ := introspect.ResolveType(entities[0])
			ic.drop(ctx, "save", actionErr, "entity_type", entityType)
		}
		return result, nil
	}
	ic.emit(ctx, entities, action)
	return result, nil
}

func saveAction(first any) (string, error) {
	isNew, err := introspect.IsNew(first)
	if err != nil {
		return "", err
	}
	descriptor, _ := introspect.Descriptor(first)
	if isNew {
		return descriptor.CreateAction, nil
	}
	return descriptor.UpdateAction, nil
}

// Delete runs a delete op over candidate and, once it succeeded, publishes
// the delete label of the first entity's type.
func Delete(ctx context.Context, ic *Interceptor, candidate any, op func(context.Context) error) error {
	if err := op(ctx); err != nil {
		return err
	}
	if DefaultEventsDisabled(ctx) {
		return nil
	}
	entities, ok := introspect.CapabilitiesOf(candidate)
	if !ok {
		return nil
	}
	descriptor, _ := introspect.Descriptor(entities[0])
	ic.emit(ctx, entities, descriptor.DeleteAction)
	return nil
}

// Invoke runs op under the policy registered for name. Operations without a
// policy are called through untouched. Lifecycle roles take the single
// element of args as their candidate.
func Invoke[R any](ctx context.Context, ic *Interceptor, name string, args []any, op func(context.Context) (R, error)) (R, error) {
	policy, ok := ic.Policies().Lookup(name)
	if !ok {
		return op(ctx)
	}

	switch policy.Role {
	case RoleAction:
		return Action(ctx, ic, policy.Action, args, op)
	case RoleSave:
		return Save(ctx, ic, lifecycleCandidate(args), op)
	case RoleDelete:
		var result R
		err := Delete(ctx, ic, lifecycleCandidate(args), func(ctx context.Context) error {
			var err error
			result, err = op(ctx)
			return err
		})
		return result, err
	default:
		return op(ctx)
	}
}

func lifecycleCandidate(args []any) any {
	if len(args) != 1 {
		return nil
	}
	return args[0]
}
