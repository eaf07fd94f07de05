// Package meta defines the tag vocabulary that marks a struct as auditable and
// the per-type accessor table built from it.
//
// A type becomes auditable by embedding Entity. The marker's struct tag carries
// the entity descriptor; member tags and accessor methods carry the bindings:
//
//	type Asset struct {
//		meta.Entity `audit:"type=asset,delete=retired"`
//		ID        string     `audit:"id"`
//		Name      string     `audit:"name"`
//		UpdatedAt *time.Time `audit:"lastmodified"`
//	}
//
// Types whose name or type label is computed implement NameProvider or
// TypeProvider instead of tagging a field.
package meta

import "reflect"

// Entity marks the embedding struct as auditable.
type Entity struct{}

// TagKey is the struct tag key read on the marker and on member fields.
const TagKey = "audit"

// Member tag values.
const (
	TagID           = "id"
	TagName         = "name"
	TagLastModified = "lastmodified"
)

// Accessor method names recognised as bindings. Each must take no arguments
// and return a string.
const (
	MethodID   = "AuditID"
	MethodName = "AuditName"
	MethodType = "AuditType"
)

// IDProvider computes the entity id.
type IDProvider interface{ AuditID() string }

// NameProvider computes the entity display name.
type NameProvider interface{ AuditName() string }

// TypeProvider computes the entity type label when the descriptor leaves it empty.
type TypeProvider interface{ AuditType() string }

var entityMarkerType = reflect.TypeOf(Entity{})

// Capability is a piece of audit metadata a type can bind a member to.
type Capability int

const (
	CapabilityID Capability = iota
	CapabilityName
	CapabilityType
	CapabilityLastModified
)

func (c Capability) String() string {
	switch c {
	case CapabilityID:
		return "id"
	case CapabilityName:
		return "name"
	case CapabilityType:
		return "type"
	case CapabilityLastModified:
		return "last-modified marker"
	default:
		return "unknown"
	}
}
