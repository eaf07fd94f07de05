package meta

import (
	"fmt"
	"strings"

	audit "auditkit/pkg/platform/audit"
)

// Descriptor is the per-type configuration read from the Entity marker tag.
type Descriptor struct {
	// EntityType is the static type label. Empty means the label is resolved
	// per instance through AuditType().
	EntityType   string
	CreateAction string
	UpdateAction string
	DeleteAction string
}

// DefaultDescriptor returns a descriptor with no static type and the default
// created/updated/deleted action labels.
func DefaultDescriptor() Descriptor {
	return Descriptor{
		CreateAction: audit.ActionCreated,
		UpdateAction: audit.ActionUpdated,
		DeleteAction: audit.ActionDeleted,
	}
}

// ParseDescriptor parses a marker tag of the form
// "type=asset,create=registered,update=modified,delete=retired". Every key is
// optional. On error the returned descriptor still carries every key parsed
// before the bad one, on top of the defaults.
func ParseDescriptor(tag string) (Descriptor, error) {
	d := DefaultDescriptor()
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return d, nil
	}

	for _, part := range strings.Split(tag, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return d, fmt.Errorf("descriptor option %q is not key=value", part)
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "type":
			d.EntityType = value
		case "create":
			if value == "" {
				return d, fmt.Errorf("descriptor option %q has an empty label", key)
			}
			d.CreateAction = value
		case "update":
			if value == "" {
				return d, fmt.Errorf("descriptor option %q has an empty label", key)
			}
			d.UpdateAction = value
		case "delete":
			if value == "" {
				return d, fmt.Errorf("descriptor option %q has an empty label", key)
			}
			d.DeleteAction = value
		default:
			return d, fmt.Errorf("unknown descriptor option %q", key)
		}
	}
	return d, nil
}

// HasStaticType reports whether the type label is fixed by the descriptor.
func (d Descriptor) HasStaticType() bool {
	return d.EntityType != ""
}
