package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	audit "auditkit/pkg/platform/audit"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) appendEvent(action, entityType, entityID string) {
	s.Require().NoError(s.store.Append(s.ctx, audit.Event{
		Action:     action,
		EntityType: entityType,
		Entities:   []audit.EntityRef{{ID: entityID, Name: "n-" + entityID}},
	}))
}

func (s *InMemoryStoreSuite) TestListRecent() {
	s.appendEvent(audit.ActionCreated, "asset", "a1")
	s.appendEvent(audit.ActionUpdated, "asset", "a1")
	s.appendEvent(audit.ActionDeleted, "asset", "a1")

	s.Run("returns newest first", func() {
		events, err := s.store.ListRecent(s.ctx, 2)
		s.Require().NoError(err)
		s.Require().Len(events, 2)
		s.Equal(audit.ActionDeleted, events[0].Action)
		s.Equal(audit.ActionUpdated, events[1].Action)
	})

	s.Run("non-positive limit returns everything", func() {
		events, err := s.store.ListRecent(s.ctx, 0)
		s.Require().NoError(err)
		s.Len(events, 3)
	})
}

func (s *InMemoryStoreSuite) TestListByEntity() {
	s.appendEvent(audit.ActionCreated, "asset", "a1")
	s.appendEvent(audit.ActionCreated, "asset", "a2")
	s.appendEvent(audit.ActionCreated, "device", "a1")

	events, err := s.store.ListByEntity(s.ctx, "asset", "a1")
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal("asset", events[0].EntityType)
}

func (s *InMemoryStoreSuite) TestClear() {
	s.appendEvent(audit.ActionCreated, "asset", "a1")
	s.Require().Equal(1, s.store.Len())

	s.store.Clear()
	s.Equal(0, s.store.Len())
}
