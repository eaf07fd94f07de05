// Package valid holds auditable types that satisfy every binding requirement.
package valid

import (
	"time"

	"auditkit/pkg/entityaudit/meta"
)

const (
	TestEntityType = "test"
	MethodType     = "methodType"
)

// TestEntity binds everything through tagged fields.
type TestEntity struct {
	meta.Entity      `audit:"type=test"`
	ID               string     `audit:"id"`
	Name             string     `audit:"name"`
	LastModifiedDate *time.Time `audit:"lastmodified"`
	SubscriptionID   string
}

// MethodTestEntity computes its name.
type MethodTestEntity struct {
	meta.Entity      `audit:"type=methodType"`
	ID               string     `audit:"id"`
	Name             string
	LastModifiedDate *time.Time `audit:"lastmodified"`
}

func (e *MethodTestEntity) AuditName() string { return e.Name }

// MethodTypeTestEntity computes both name and type.
type MethodTypeTestEntity struct {
	meta.Entity
	ID               string     `audit:"id"`
	Name             string
	LastModifiedDate *time.Time `audit:"lastmodified"`
}

func (e *MethodTypeTestEntity) AuditName() string { return e.Name }
func (e *MethodTypeTestEntity) AuditType() string { return MethodType }

// Labeled overrides every action label.
type Labeled struct {
	meta.Entity `audit:"type=labeled,create=registered,update=modified,delete=retired"`
	ID          string    `audit:"id"`
	Name        string    `audit:"name"`
	UpdatedAt   time.Time `audit:"lastmodified"`
}

// Faulty has an accessor that panics, for introspection failure paths.
type Faulty struct {
	meta.Entity `audit:"type=faulty"`
	ID          string    `audit:"id"`
	UpdatedAt   time.Time `audit:"lastmodified"`
}

func (e *Faulty) AuditName() string { panic("name accessor failed") }

// FaultyID exposes its id through an accessor that panics.
type FaultyID struct {
	meta.Entity `audit:"type=faulty"`
	Name        string    `audit:"name"`
	UpdatedAt   time.Time `audit:"lastmodified"`
}

func (e *FaultyID) AuditID() string { panic("id accessor failed") }

// NotAuditable carries id tags but no entity marker.
type NotAuditable struct {
	ID   string `audit:"id"`
	Name string `audit:"name"`
}
