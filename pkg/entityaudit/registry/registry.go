// Package registry holds the set of auditable types known to the process and
// runs the startup validation pass over them.
//
// Go has no class-path scanning, so composition code registers sample values
// instead; discovery then filters the registered types by package scope:
//
//	reg := registry.New()
//	reg.MustRegister(models.Asset{}, models.Device{})
//	if err := reg.Validate(cfg.Scope); err != nil {
//		// abort startup
//	}
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"auditkit/pkg/entityaudit/meta"
	"auditkit/pkg/platform/sentinel"
)

// Validation failure reasons.
const (
	ReasonInvalidDescriptor   = "invalid entity descriptor"
	ReasonMissingID           = "missing id binding"
	ReasonMissingLastModified = "missing last-modified marker"
	ReasonMissingName         = "missing name binding"
	ReasonMissingType         = "missing type binding"
)

// ErrConfiguration matches every *ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("audit configuration error")

// ConfigurationError reports an auditable type that lacks a required binding.
// It is startup-fatal.
type ConfigurationError struct {
	Type   reflect.Type
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	msg := fmt.Sprintf("audit configuration: %s: %s", TypeName(e.Type), e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

func (e *ConfigurationError) Unwrap() error { return e.Err }

// TypeName renders t as "pkg/path.Name".
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	if t.PkgPath() == "" {
		return t.String()
	}
	return t.PkgPath() + "." + t.Name()
}

// Registry is safe for concurrent use. After a successful Validate the set of
// validated types is frozen and further registration is rejected.
type Registry struct {
	mu        sync.Mutex
	types     map[reflect.Type]struct{}
	validated atomic.Pointer[map[reflect.Type]*meta.Accessor]
}

func New() *Registry {
	return &Registry{types: make(map[reflect.Type]struct{})}
}

// Default is the process-wide registry used by the package-level helpers.
var Default = New()

// Register adds the types of the given samples. A sample may be a value, a
// pointer or a reflect.Type.
func (r *Registry) Register(samples ...any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.validated.Load() != nil {
		return fmt.Errorf("register after validation: %w", sentinel.ErrInvalidState)
	}
	for _, sample := range samples {
		t, err := typeOf(sample)
		if err != nil {
			return err
		}
		r.types[t] = struct{}{}
	}
	return nil
}

// MustRegister is like Register but panics on error. Intended for init-time use.
func (r *Registry) MustRegister(samples ...any) {
	if err := r.Register(samples...); err != nil {
		panic(err)
	}
}

func typeOf(sample any) (reflect.Type, error) {
	var t reflect.Type
	switch s := sample.(type) {
	case nil:
		return nil, fmt.Errorf("register nil sample: %w", sentinel.ErrInvalidState)
	case reflect.Type:
		t = s
	default:
		t = reflect.TypeOf(sample)
	}
	t = meta.Indirect(t)
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("register %s: only struct types can be auditable", t)
	}
	return t, nil
}

// Discover returns the registered auditable types whose package path is scope
// or lies below it, ordered by package path then type name. An empty scope
// matches everything.
func (r *Registry) Discover(scope string) []reflect.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.discoverLocked(scope)
}

func (r *Registry) discoverLocked(scope string) []reflect.Type {
	var found []reflect.Type
	for t := range r.types {
		if !inScope(t.PkgPath(), scope) {
			continue
		}
		if !meta.Lookup(t).IsEntity() {
			continue
		}
		found = append(found, t)
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].PkgPath() != found[j].PkgPath() {
			return found[i].PkgPath() < found[j].PkgPath()
		}
		return found[i].Name() < found[j].Name()
	})
	return found
}

func inScope(pkgPath, scope string) bool {
	scope = strings.TrimSuffix(scope, "/")
	if scope == "" {
		return true
	}
	return pkgPath == scope || strings.HasPrefix(pkgPath, scope+"/")
}

// Validate checks every discovered type in scope and fails on the first
// violation. On success the validated set is frozen. Registration is blocked
// from discovery until the freeze, so every accepted type is either validated
// or out of scope.
func (r *Registry) Validate(scope string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	discovered := r.discoverLocked(scope)

	validated := make(map[reflect.Type]*meta.Accessor, len(discovered))
	for _, t := range discovered {
		accessor := meta.Lookup(t)
		if err := ValidateAccessor(accessor); err != nil {
			return err
		}
		validated[t] = accessor
	}

	r.validated.CompareAndSwap(nil, &validated)
	return nil
}

// ValidateAccessor applies the binding requirements to one type.
func ValidateAccessor(a *meta.Accessor) error {
	fail := func(reason string, err error) error {
		return &ConfigurationError{Type: a.Type(), Reason: reason, Err: err}
	}

	if err := a.DescriptorErr(); err != nil {
		return fail(ReasonInvalidDescriptor, err)
	}
	if !a.Has(meta.CapabilityID) {
		return fail(ReasonMissingID, nil)
	}
	if !a.HasField(meta.CapabilityLastModified) {
		return fail(ReasonMissingLastModified, nil)
	}
	if !a.Has(meta.CapabilityName) {
		return fail(ReasonMissingName, nil)
	}
	if !a.Descriptor().HasStaticType() && !a.HasMethod(meta.CapabilityType) {
		return fail(ReasonMissingType, nil)
	}
	return nil
}

// IsValidated reports whether t passed a successful Validate. Lock-free.
func (r *Registry) IsValidated(t reflect.Type) bool {
	set := r.validated.Load()
	if set == nil {
		return false
	}
	_, ok := (*set)[meta.Indirect(t)]
	return ok
}

// Validated returns the frozen validated types, or nil before validation.
func (r *Registry) Validated() []reflect.Type {
	set := r.validated.Load()
	if set == nil {
		return nil
	}
	types := make([]reflect.Type, 0, len(*set))
	for t := range *set {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return TypeName(types[i]) < TypeName(types[j]) })
	return types
}

// Register adds samples to the Default registry.
func Register(samples ...any) error { return Default.Register(samples...) }

// MustRegister adds samples to the Default registry and panics on error.
func MustRegister(samples ...any) { Default.MustRegister(samples...) }

// Validate runs the validation pass on the Default registry.
func Validate(scope string) error { return Default.Validate(scope) }
