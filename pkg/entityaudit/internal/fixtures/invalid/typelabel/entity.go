// Package typelabel holds an auditable type with neither a static nor a computed type.
package typelabel

import (
	"time"

	"auditkit/pkg/entityaudit/meta"
)

type TestEntity struct {
	meta.Entity
	ID               string     `audit:"id"`
	Name             string     `audit:"name"`
	LastModifiedDate *time.Time `audit:"lastmodified"`
}
