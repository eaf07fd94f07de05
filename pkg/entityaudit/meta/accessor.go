package meta

import (
	"reflect"
	"strings"
	"sync"
)

// Accessor is the capability table of one struct type: whether it is an
// auditable entity, its descriptor and the members bound to each capability.
// Accessors are built once per type and cached; they are immutable.
type Accessor struct {
	typ           reflect.Type
	entity        bool
	descriptor    Descriptor
	descriptorErr error
	bindings      map[Capability][]Binding
}

var accessors sync.Map // reflect.Type -> *Accessor

// Lookup returns the accessor of t. Pointer types resolve to their element
// type. Non-struct types get a non-entity accessor.
func Lookup(t reflect.Type) *Accessor {
	t = Indirect(t)
	if cached, ok := accessors.Load(t); ok {
		return cached.(*Accessor)
	}
	built := build(t)
	actual, _ := accessors.LoadOrStore(t, built)
	return actual.(*Accessor)
}

// For returns the accessor of the dynamic type of o, or nil when o is nil.
func For(o any) *Accessor {
	if o == nil {
		return nil
	}
	return Lookup(reflect.TypeOf(o))
}

// Indirect strips pointer levels from t.
func Indirect(t reflect.Type) reflect.Type {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// Type is the struct type the accessor describes.
func (a *Accessor) Type() reflect.Type { return a.typ }

// IsEntity reports whether the type embeds the Entity marker.
func (a *Accessor) IsEntity() bool { return a != nil && a.entity }

// Descriptor returns the parsed marker tag. Non-entities get the defaults.
func (a *Accessor) Descriptor() Descriptor { return a.descriptor }

// DescriptorErr is the error found while parsing the marker tag, if any.
func (a *Accessor) DescriptorErr() error { return a.descriptorErr }

// Has reports whether any member is bound to c.
func (a *Accessor) Has(c Capability) bool { return len(a.bindings[c]) > 0 }

// HasField reports whether a struct field is bound to c.
func (a *Accessor) HasField(c Capability) bool {
	return a.first(c, BindingField) != nil
}

// HasMethod reports whether an accessor method is bound to c.
func (a *Accessor) HasMethod(c Capability) bool {
	return a.first(c, BindingMethod) != nil
}

// Bindings returns the members bound to c, fields before methods.
func (a *Accessor) Bindings(c Capability) []Binding { return a.bindings[c] }

func (a *Accessor) first(c Capability, kind BindingKind) Binding {
	for _, b := range a.bindings[c] {
		if b.Kind() == kind {
			return b
		}
	}
	return nil
}

func build(t reflect.Type) *Accessor {
	a := &Accessor{
		typ:        t,
		descriptor: DefaultDescriptor(),
		bindings:   make(map[Capability][]Binding),
	}
	if t == nil || t.Kind() != reflect.Struct {
		return a
	}

	// first match in declaration order wins for each capability
	for _, f := range reflect.VisibleFields(t) {
		if f.Type == entityMarkerType {
			if !a.entity {
				a.entity = true
				a.descriptor, a.descriptorErr = ParseDescriptor(f.Tag.Get(TagKey))
			}
			continue
		}

		tag, ok := f.Tag.Lookup(TagKey)
		if !ok {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")
		switch strings.TrimSpace(name) {
		case TagID:
			a.addField(CapabilityID, f)
		case TagName:
			a.addField(CapabilityName, f)
		case TagLastModified:
			a.addField(CapabilityLastModified, f)
		}
	}

	ptr := reflect.PointerTo(t)
	a.addMethod(CapabilityID, ptr, MethodID)
	a.addMethod(CapabilityName, ptr, MethodName)
	a.addMethod(CapabilityType, ptr, MethodType)
	return a
}

func (a *Accessor) addField(c Capability, f reflect.StructField) {
	if a.HasField(c) {
		return
	}
	a.bindings[c] = append(a.bindings[c], fieldBinding{name: f.Name, index: f.Index})
}

func (a *Accessor) addMethod(c Capability, ptr reflect.Type, name string) {
	m, ok := ptr.MethodByName(name)
	if !ok || !isStringAccessor(m) {
		return
	}
	a.bindings[c] = append(a.bindings[c], methodBinding{name: name})
}
