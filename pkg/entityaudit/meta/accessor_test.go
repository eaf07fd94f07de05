package meta

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type taggedEntity struct {
	Entity       `audit:"type=test"`
	ID           string     `audit:"id"`
	Name         string     `audit:"name"`
	LastModified *time.Time `audit:"lastmodified"`
	Subscription string
}

type methodEntity struct {
	Entity       `audit:"create=registered"`
	ID           int64     `audit:"id"`
	LastModified time.Time `audit:"lastmodified"`
	name         string
	kind         string
}

func (m *methodEntity) AuditName() string { return m.name }
func (m methodEntity) AuditType() string  { return "kind:" + m.kind }

type base struct {
	ID        string    `audit:"id"`
	UpdatedAt time.Time `audit:"lastmodified"`
}

type embeddedEntity struct {
	Entity `audit:"type=embedded"`
	*base
	Title string `audit:"name"`
}

type plainStruct struct {
	ID string `audit:"id"`
}

type wrongSignature struct {
	Entity `audit:"type=x"`
}

func (wrongSignature) AuditName() int { return 1 }

type panicking struct {
	Entity `audit:"type=x"`
}

func (panicking) AuditName() string { panic("boom") }

func TestLookup(t *testing.T) {
	t.Run("tagged fields bind id, name and last-modified", func(t *testing.T) {
		a := Lookup(reflect.TypeOf(taggedEntity{}))
		assert.True(t, a.IsEntity())
		assert.Equal(t, "test", a.Descriptor().EntityType)
		assert.True(t, a.HasField(CapabilityID))
		assert.True(t, a.HasField(CapabilityName))
		assert.True(t, a.HasField(CapabilityLastModified))
		assert.False(t, a.Has(CapabilityType))
	})

	t.Run("pointer types share the element accessor", func(t *testing.T) {
		assert.Same(t, Lookup(reflect.TypeOf(taggedEntity{})), Lookup(reflect.TypeOf(&taggedEntity{})))
	})

	t.Run("accessor methods bind name and type across receiver kinds", func(t *testing.T) {
		a := Lookup(reflect.TypeOf(methodEntity{}))
		assert.True(t, a.IsEntity())
		assert.False(t, a.HasField(CapabilityName))
		assert.True(t, a.HasMethod(CapabilityName))
		assert.True(t, a.HasMethod(CapabilityType))
		assert.Equal(t, "registered", a.Descriptor().CreateAction)
		assert.Equal(t, "updated", a.Descriptor().UpdateAction)
	})

	t.Run("promoted fields of embedded structs are discovered", func(t *testing.T) {
		a := Lookup(reflect.TypeOf(embeddedEntity{}))
		assert.True(t, a.HasField(CapabilityID))
		assert.True(t, a.HasField(CapabilityLastModified))
		assert.True(t, a.HasField(CapabilityName))
	})

	t.Run("structs without the marker are not entities", func(t *testing.T) {
		a := Lookup(reflect.TypeOf(plainStruct{}))
		assert.False(t, a.IsEntity())
		assert.True(t, a.Has(CapabilityID))
	})

	t.Run("non-struct types are not entities", func(t *testing.T) {
		assert.False(t, Lookup(reflect.TypeOf("")).IsEntity())
		assert.False(t, Lookup(reflect.TypeOf([]taggedEntity{})).IsEntity())
	})

	t.Run("methods with the wrong signature are ignored", func(t *testing.T) {
		assert.False(t, Lookup(reflect.TypeOf(wrongSignature{})).Has(CapabilityName))
	})

	t.Run("nil object has no accessor", func(t *testing.T) {
		assert.Nil(t, For(nil))
		assert.False(t, For(nil).IsEntity())
	})
}

func TestBindingRead(t *testing.T) {
	t.Run("field values render as strings", func(t *testing.T) {
		e := &taggedEntity{ID: "id-1", Name: "name-1"}
		a := For(e)
		ptr := reflect.ValueOf(e)

		id, err := a.Bindings(CapabilityID)[0].Read(ptr)
		require.NoError(t, err)
		assert.Equal(t, "id-1", id)

		lm, err := a.Bindings(CapabilityLastModified)[0].Read(ptr)
		require.NoError(t, err)
		assert.Empty(t, lm, "nil pointer holds no value")
	})

	t.Run("integer ids render in base 10 and zero is empty", func(t *testing.T) {
		a := For(methodEntity{})
		id, err := a.Bindings(CapabilityID)[0].Read(reflect.ValueOf(&methodEntity{ID: 42}))
		require.NoError(t, err)
		assert.Equal(t, "42", id)

		id, err = a.Bindings(CapabilityID)[0].Read(reflect.ValueOf(&methodEntity{}))
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("methods are invoked", func(t *testing.T) {
		e := &methodEntity{name: "widget", kind: "sensor"}
		a := For(e)
		name, err := a.Bindings(CapabilityName)[0].Read(reflect.ValueOf(e))
		require.NoError(t, err)
		assert.Equal(t, "widget", name)

		typ, err := a.Bindings(CapabilityType)[0].Read(reflect.ValueOf(e))
		require.NoError(t, err)
		assert.Equal(t, "kind:sensor", typ)
	})

	t.Run("nil embedded pointer reads as no value", func(t *testing.T) {
		e := &embeddedEntity{Title: "t"}
		id, err := For(e).Bindings(CapabilityID)[0].Read(reflect.ValueOf(e))
		require.NoError(t, err)
		assert.Empty(t, id)
	})

	t.Run("panicking accessor returns an error", func(t *testing.T) {
		e := &panicking{}
		_, err := For(e).Bindings(CapabilityName)[0].Read(reflect.ValueOf(e))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "AuditName()")
	})
}
