package introspect

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"auditkit/pkg/entityaudit/internal/fixtures/valid"
	"auditkit/pkg/entityaudit/meta"
)

type IntrospectSuite struct {
	suite.Suite
	now time.Time
}

func TestIntrospectSuite(t *testing.T) {
	suite.Run(t, new(IntrospectSuite))
}

func (s *IntrospectSuite) SetupTest() {
	s.now = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
}

// =============================================================================
// Id and name resolution
// =============================================================================

func (s *IntrospectSuite) TestResolveID() {
	s.Run("reads the tagged field from values and pointers", func() {
		e := valid.TestEntity{ID: "id", Name: "name"}
		id, err := ResolveID(e)
		s.Require().NoError(err)
		s.Equal("id", id)

		id, err = ResolveID(&e)
		s.Require().NoError(err)
		s.Equal("id", id)
	})

	s.Run("unset id resolves empty", func() {
		id, err := ResolveID(&valid.TestEntity{})
		s.Require().NoError(err)
		s.Empty(id)
	})

	s.Run("missing binding resolves empty without error", func() {
		id, err := ResolveID(struct{ Other string }{"x"})
		s.Require().NoError(err)
		s.Empty(id)
	})

	s.Run("nil pointer is an introspection error", func() {
		var e *valid.TestEntity
		_, err := ResolveID(e)
		var ierr *IntrospectionError
		s.Require().True(errors.As(err, &ierr))
		s.Equal(meta.CapabilityID, ierr.Capability)
	})
}

func (s *IntrospectSuite) TestResolveName() {
	s.Run("field binding", func() {
		name, err := ResolveName(valid.TestEntity{Name: "name"})
		s.Require().NoError(err)
		s.Equal("name", name)
	})

	s.Run("accessor method on a value receiver copy", func() {
		name, err := ResolveName(valid.MethodTestEntity{Name: "computed"})
		s.Require().NoError(err)
		s.Equal("computed", name)
	})

	s.Run("panicking accessor is an introspection error", func() {
		_, err := ResolveName(&valid.Faulty{ID: "f"})
		var ierr *IntrospectionError
		s.Require().True(errors.As(err, &ierr))
		s.Equal(meta.CapabilityName, ierr.Capability)
		s.Contains(err.Error(), "AuditName()")
	})
}

func (s *IntrospectSuite) TestResolveType() {
	s.Run("static label wins", func() {
		typ, err := ResolveType(&valid.TestEntity{})
		s.Require().NoError(err)
		s.Equal(valid.TestEntityType, typ)
	})

	s.Run("empty label falls back to the accessor", func() {
		typ, err := ResolveType(valid.MethodTypeTestEntity{})
		s.Require().NoError(err)
		s.Equal(valid.MethodType, typ)
	})

	s.Run("non-entities resolve empty", func() {
		typ, err := ResolveType(valid.NotAuditable{})
		s.Require().NoError(err)
		s.Empty(typ)
	})
}

// =============================================================================
// New-vs-existing
// =============================================================================

func (s *IntrospectSuite) TestIsNew() {
	tests := []struct {
		name   string
		entity any
		want   bool
	}{
		{"id and last-modified unset", &valid.TestEntity{Name: "n"}, true},
		{"only id set", &valid.TestEntity{ID: "id"}, true},
		{"only last-modified set", &valid.TestEntity{LastModifiedDate: &s.now}, true},
		{"both set", &valid.TestEntity{ID: "id", LastModifiedDate: &s.now}, false},
		{"zero time value is unset", valid.Labeled{ID: "id"}, true},
		{"time value set", valid.Labeled{ID: "id", UpdatedAt: s.now}, false},
		{"non-entity without bindings", struct{}{}, false},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			got, err := IsNew(tt.entity)
			s.Require().NoError(err)
			s.Equal(tt.want, got)
		})
	}
}

// =============================================================================
// Capability discovery
// =============================================================================

func (s *IntrospectSuite) TestCapabilitiesOf() {
	s.Run("single entity", func() {
		e := &valid.TestEntity{ID: "id"}
		items, ok := CapabilitiesOf(e)
		s.Require().True(ok)
		s.Equal([]any{e}, items)
	})

	s.Run("slice elements are addressed in place", func() {
		list := []valid.TestEntity{{ID: "a"}, {ID: "b"}}
		items, ok := CapabilitiesOf(list)
		s.Require().True(ok)
		s.Require().Len(items, 2)
		s.Same(&list[0], items[0])
	})

	s.Run("slice of pointers", func() {
		list := []*valid.Labeled{{ID: "a"}}
		items, ok := CapabilitiesOf(list)
		s.Require().True(ok)
		s.Same(list[0], items[0])
	})

	s.Run("first element decides for mixed collections", func() {
		_, ok := CapabilitiesOf([]any{valid.NotAuditable{}, &valid.TestEntity{}})
		s.False(ok)

		items, ok := CapabilitiesOf([]any{&valid.TestEntity{}, valid.NotAuditable{}})
		s.True(ok)
		s.Len(items, 2)
	})

	s.Run("non-auditable and empty inputs", func() {
		for _, candidate := range []any{nil, "x", valid.NotAuditable{}, []valid.TestEntity{}, []any{}, (*valid.TestEntity)(nil)} {
			_, ok := CapabilitiesOf(candidate)
			s.False(ok, "%T", candidate)
		}
	})
}

func (s *IntrospectSuite) TestDescriptor() {
	d, ok := Descriptor(valid.Labeled{})
	s.True(ok)
	s.Equal("registered", d.CreateAction)
	s.Equal("retired", d.DeleteAction)

	d, ok = Descriptor(valid.NotAuditable{})
	s.False(ok)
	s.Equal(meta.DefaultDescriptor(), d)
}
