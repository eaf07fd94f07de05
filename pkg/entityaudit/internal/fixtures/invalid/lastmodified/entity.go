// Package lastmodified holds an auditable type without a last-modified marker.
package lastmodified

import (
	"time"

	"auditkit/pkg/entityaudit/meta"
)

type TestEntity struct {
	meta.Entity `audit:"type=test"`
	ID          string `audit:"id"`
	Name        string `audit:"name"`
	CreatedDate *time.Time
}
