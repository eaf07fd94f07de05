// Package name holds an auditable type without a name binding.
package name

import (
	"time"

	"auditkit/pkg/entityaudit/meta"
)

type TestEntity struct {
	meta.Entity      `audit:"type=test"`
	ID               string `audit:"id"`
	Name             string
	LastModifiedDate *time.Time `audit:"lastmodified"`
}
