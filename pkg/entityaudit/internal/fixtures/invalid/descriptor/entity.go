// Package descriptor holds an auditable type with a malformed marker tag.
package descriptor

import (
	"time"

	"auditkit/pkg/entityaudit/meta"
)

type TestEntity struct {
	meta.Entity      `audit:"type=test,colour=red"`
	ID               string     `audit:"id"`
	Name             string     `audit:"name"`
	LastModifiedDate *time.Time `audit:"lastmodified"`
}
