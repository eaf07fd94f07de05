package meta

import (
	"fmt"
	"reflect"
	"strconv"
)

// BindingKind tells a field binding from a method binding.
type BindingKind int

const (
	BindingField BindingKind = iota
	BindingMethod
)

// Binding reads one capability from an entity. Read receives a pointer to the
// entity struct and returns "" when the member holds no value.
type Binding interface {
	Kind() BindingKind
	Member() string
	Read(ptr reflect.Value) (string, error)
}

type fieldBinding struct {
	name  string
	index []int
}

func (b fieldBinding) Kind() BindingKind { return BindingField }
func (b fieldBinding) Member() string    { return b.name }

func (b fieldBinding) Read(ptr reflect.Value) (value string, err error) {
	defer recoverRead(b.name, &err)

	field, ferr := ptr.Elem().FieldByIndexErr(b.index)
	if ferr != nil {
		// promoted through a nil embedded pointer
		return "", nil
	}
	return stringify(field), nil
}

type methodBinding struct {
	name string
}

func (b methodBinding) Kind() BindingKind { return BindingMethod }
func (b methodBinding) Member() string    { return b.name + "()" }

func (b methodBinding) Read(ptr reflect.Value) (value string, err error) {
	defer recoverRead(b.name+"()", &err)

	method := ptr.MethodByName(b.name)
	if !method.IsValid() {
		return "", fmt.Errorf("method %s not found on %s", b.name, ptr.Type())
	}
	out := method.Call(nil)
	return out[0].String(), nil
}

func recoverRead(member string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("reading %s: %v", member, r)
	}
}

// stringify renders a member value the way it is placed into an event.
// Nil pointers and zero values render as "".
func stringify(v reflect.Value) string {
	for v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if !v.IsValid() || v.IsZero() {
		return ""
	}

	switch v.Kind() {
	case reflect.String:
		return v.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(v.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(v.Uint(), 10)
	case reflect.Bool:
		return strconv.FormatBool(v.Bool())
	}

	if v.CanInterface() {
		if s, ok := v.Interface().(fmt.Stringer); ok {
			return s.String()
		}
		return fmt.Sprint(v.Interface())
	}
	return fmt.Sprint(v)
}

func isStringAccessor(m reflect.Method) bool {
	// receiver is In(0)
	return m.Type.NumIn() == 1 &&
		m.Type.NumOut() == 1 &&
		m.Type.Out(0).Kind() == reflect.String
}
