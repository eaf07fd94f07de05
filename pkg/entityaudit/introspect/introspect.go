// Package introspect reads audit metadata (id, name, type and new-vs-existing
// state) from arbitrary entity values through their cached capability tables.
//
// The empty string stands for "no value" throughout. A missing binding is not
// an error; only a failing member access is.
package introspect

import (
	"errors"
	"fmt"
	"reflect"

	"auditkit/pkg/entityaudit/meta"
)

// IntrospectionError reports a member access that failed while resolving
// metadata. It aborts the audit attempt, never the business operation.
type IntrospectionError struct {
	Type       reflect.Type
	Capability meta.Capability
	Err        error
}

func (e *IntrospectionError) Error() string {
	if e.Type == nil {
		return fmt.Sprintf("introspect %s: %v", e.Capability, e.Err)
	}
	return fmt.Sprintf("introspect %s of %s: %v", e.Capability, e.Type, e.Err)
}

func (e *IntrospectionError) Unwrap() error { return e.Err }

var errNilEntity = errors.New("nil entity")

// target resolves o to its accessor and an addressable pointer to the struct.
// Non-pointer values are copied so pointer-receiver accessors can be called.
func target(o any, c meta.Capability) (*meta.Accessor, reflect.Value, error) {
	if o == nil {
		return nil, reflect.Value{}, &IntrospectionError{Capability: c, Err: errNilEntity}
	}
	v := reflect.ValueOf(o)
	for v.Kind() == reflect.Pointer && v.Elem().Kind() == reflect.Pointer {
		if v.Elem().IsNil() {
			return nil, reflect.Value{}, &IntrospectionError{Type: v.Type(), Capability: c, Err: errNilEntity}
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, reflect.Value{}, &IntrospectionError{Type: v.Type().Elem(), Capability: c, Err: errNilEntity}
		}
	} else {
		ptr := reflect.New(v.Type())
		ptr.Elem().Set(v)
		v = ptr
	}

	a := meta.Lookup(v.Type())
	if v.Elem().Kind() != reflect.Struct {
		return a, reflect.Value{}, nil
	}
	return a, v, nil
}

// resolve returns the first non-empty value among the bindings of c.
func resolve(o any, c meta.Capability) (string, error) {
	a, ptr, err := target(o, c)
	if err != nil {
		return "", err
	}
	if !ptr.IsValid() {
		return "", nil
	}
	for _, b := range a.Bindings(c) {
		value, err := b.Read(ptr)
		if err != nil {
			return "", &IntrospectionError{Type: a.Type(), Capability: c, Err: err}
		}
		if value != "" {
			return value, nil
		}
	}
	return "", nil
}

// ResolveID reads the id binding.
func ResolveID(o any) (string, error) {
	return resolve(o, meta.CapabilityID)
}

// ResolveName prefers the tagged field and falls back to AuditName().
func ResolveName(o any) (string, error) {
	return resolve(o, meta.CapabilityName)
}

// ResolveType returns the static label of the descriptor when set, otherwise
// the value of AuditType().
func ResolveType(o any) (string, error) {
	if o == nil {
		return "", &IntrospectionError{Capability: meta.CapabilityType, Err: errNilEntity}
	}
	if static := meta.For(o).Descriptor().EntityType; static != "" {
		return static, nil
	}
	return resolve(o, meta.CapabilityType)
}

// IsNew reports whether any declared last-modified field or id binding holds
// no value. Persistence assigns both, so an unset one marks a fresh entity.
func IsNew(o any) (bool, error) {
	a, ptr, err := target(o, meta.CapabilityLastModified)
	if err != nil {
		return false, err
	}
	if !ptr.IsValid() {
		return false, nil
	}

	type member struct {
		capability meta.Capability
		binding    meta.Binding
	}
	var declared []member
	for _, b := range a.Bindings(meta.CapabilityLastModified) {
		if b.Kind() == meta.BindingField {
			declared = append(declared, member{meta.CapabilityLastModified, b})
		}
	}
	for _, b := range a.Bindings(meta.CapabilityID) {
		declared = append(declared, member{meta.CapabilityID, b})
	}

	for _, m := range declared {
		value, err := m.binding.Read(ptr)
		if err != nil {
			return false, &IntrospectionError{Type: a.Type(), Capability: m.capability, Err: err}
		}
		if value == "" {
			return true, nil
		}
	}
	return false, nil
}

// Descriptor returns the entity descriptor of o and whether o is auditable.
func Descriptor(o any) (meta.Descriptor, bool) {
	a := meta.For(o)
	if !a.IsEntity() {
		return meta.DefaultDescriptor(), false
	}
	return a.Descriptor(), true
}

// IsAuditable reports whether the type of o embeds the entity marker.
func IsAuditable(o any) bool {
	return meta.For(o).IsEntity()
}

// CapabilitiesOf returns the auditable entities held by candidate, which may
// be a single value or a slice or array. Only the first element's type is
// checked; the elements are returned unchanged. A nil pointer holds nothing.
func CapabilitiesOf(candidate any) ([]any, bool) {
	if candidate == nil {
		return nil, false
	}
	if items, ok := candidate.([]any); ok {
		if len(items) == 0 || !IsAuditable(items[0]) {
			return nil, false
		}
		return items, true
	}

	v := reflect.ValueOf(candidate)
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		if v.Len() == 0 {
			return nil, false
		}
		if !IsAuditable(elementAt(v, 0)) {
			return nil, false
		}
		items := make([]any, v.Len())
		for i := range items {
			items[i] = elementAt(v, i)
		}
		return items, true
	default:
		if v.Kind() == reflect.Pointer && v.IsNil() {
			return nil, false
		}
		if !IsAuditable(candidate) {
			return nil, false
		}
		return []any{candidate}, true
	}
}

// elementAt hands out a pointer to addressable struct elements so accessors
// see the caller's values, not copies.
func elementAt(v reflect.Value, i int) any {
	elem := v.Index(i)
	if elem.Kind() == reflect.Struct && elem.CanAddr() {
		return elem.Addr().Interface()
	}
	if elem.Kind() == reflect.Interface && elem.IsNil() {
		return nil
	}
	return elem.Interface()
}
