// Package id holds an auditable type without an id binding.
package id

import (
	"time"

	"auditkit/pkg/entityaudit/meta"
)

type TestEntity struct {
	meta.Entity      `audit:"type=test"`
	ID               string
	Name             string     `audit:"name"`
	LastModifiedDate *time.Time `audit:"lastmodified"`
}
