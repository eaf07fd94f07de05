package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"auditkit/internal/inventory/models"
	"auditkit/internal/inventory/store"
	"auditkit/pkg/entityaudit/intercept"
	audit "auditkit/pkg/platform/audit"
	"auditkit/pkg/platform/audit/store/memory"
	"auditkit/pkg/platform/sentinel"
	"auditkit/pkg/requestcontext"
)

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	events  *memory.InMemoryStore
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	now := time.Date(2026, 4, 2, 8, 0, 0, 0, time.UTC)
	s.ctx = requestcontext.WithInitiatorID(context.Background(), "operator-1")
	s.events = memory.NewInMemoryStore()

	policies := intercept.NewPolicies()
	s.Require().NoError(RegisterPolicies(policies))
	ic := intercept.New(s.events, intercept.WithPolicies(policies))

	assets := store.NewRepository[*models.Asset]().WithClock(func() time.Time { return now })
	devices := store.NewRepository[*models.Device]().WithClock(func() time.Time { return now })
	s.service = New(assets, devices, ic)
}

func (s *ServiceSuite) recorded() []audit.Event {
	events, err := s.events.ListAll(context.Background())
	s.Require().NoError(err)
	return events
}

func (s *ServiceSuite) actions() []string {
	var out []string
	for _, e := range s.recorded() {
		out = append(out, e.Action)
	}
	return out
}

func (s *ServiceSuite) register(name string) *models.Asset {
	asset, err := s.service.RegisterAsset(s.ctx, AssetInput{Name: name, Location: "bay-1"})
	s.Require().NoError(err)
	return asset
}

// =============================================================================
// Lifecycle events
// =============================================================================

func (s *ServiceSuite) TestRegisterRenameRemove() {
	asset := s.register("pump")
	s.NotEmpty(asset.ID)

	_, err := s.service.RenameAsset(s.ctx, asset.ID, "main pump")
	s.Require().NoError(err)
	s.Require().NoError(s.service.RemoveAsset(s.ctx, asset.ID))

	events := s.recorded()
	s.Equal([]string{audit.ActionCreated, audit.ActionUpdated, audit.ActionDeleted}, s.actions())
	for _, e := range events {
		s.Equal(models.AssetType, e.EntityType)
		s.Equal("operator-1", e.InitiatorID)
		s.True(e.HasEntity(asset.ID))
	}
	s.Equal("main pump", events[1].Entities[0].Name)
}

func (s *ServiceSuite) TestImportPublishesOneEvent() {
	assets, err := s.service.ImportAssets(s.ctx, []AssetInput{{Name: "a"}, {Name: "b"}, {Name: "c"}})
	s.Require().NoError(err)
	s.Len(assets, 3)

	events := s.recorded()
	s.Require().Len(events, 1)
	s.Equal(audit.ActionCreated, events[0].Action)
	s.Len(events[0].Entities, 3)
}

func (s *ServiceSuite) TestValidationFailuresPublishNothing() {
	_, err := s.service.RegisterAsset(s.ctx, AssetInput{Name: "  "})
	s.ErrorIs(err, sentinel.ErrInvalidInput)

	_, err = s.service.RenameAsset(s.ctx, "missing", "x")
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Empty(s.recorded())
}

// =============================================================================
// Explicit actions
// =============================================================================

func (s *ServiceSuite) TestArchiveSuppressesUpdateEvents() {
	a, b := s.register("a"), s.register("b")
	s.events.Clear()

	archived, err := s.service.ArchiveAssets(s.ctx, []string{a.ID, b.ID})
	s.Require().NoError(err)
	s.True(archived[0].Archived)

	events := s.recorded()
	s.Require().Len(events, 1)
	s.Equal(ActionArchived, events[0].Action)
	s.Equal([]string{a.ID, b.ID}, events[0].EntityIDs())
}

func (s *ServiceSuite) TestRelocateKeepsUpdateEvent() {
	asset := s.register("pump")
	s.events.Clear()

	moved, err := s.service.RelocateAsset(s.ctx, asset.ID, "bay-9")
	s.Require().NoError(err)
	s.Equal("bay-9", moved.Location)
	s.Equal([]string{audit.ActionUpdated, ActionRelocated}, s.actions())
}

func (s *ServiceSuite) TestRecordInspection() {
	asset := s.register("pump")
	s.events.Clear()

	s.Require().NoError(s.service.RecordInspection(s.ctx, asset.ID, "seal replaced"))
	events := s.recorded()
	s.Require().Len(events, 1)
	s.Equal(ActionInspected, events[0].Action)
	s.Equal("seal replaced", events[0].Description)
}

// =============================================================================
// Devices
// =============================================================================

func (s *ServiceSuite) TestDeviceLifecycle() {
	asset := s.register("pump")
	s.events.Clear()

	device, err := s.service.ProvisionDevice(s.ctx, DeviceInput{Serial: "SN-1", Kind: "Sensor", AssetID: asset.ID})
	s.Require().NoError(err)

	s.Run("decommission audits the returned device only", func() {
		retired, err := s.service.DecommissionDevice(s.ctx, device.ID)
		s.Require().NoError(err)
		s.True(retired.Retired)

		events := s.recorded()
		s.Equal([]string{models.DeviceProvisioned, models.DeviceDecommissioned}, s.actions())
		s.Equal("device.sensor", events[1].EntityType)
		s.Equal([]audit.EntityRef{{ID: device.ID, Name: "SN-1"}}, events[1].Entities)
	})

	s.Run("second decommission fails without an event", func() {
		_, err := s.service.DecommissionDevice(s.ctx, device.ID)
		s.ErrorIs(err, sentinel.ErrInvalidState)
		s.Len(s.recorded(), 2)
	})

	s.Run("remove uses the custom delete label", func() {
		s.Require().NoError(s.service.RemoveDevice(s.ctx, device.ID))
		s.Equal(models.DeviceRemoved, s.recorded()[2].Action)
	})

	s.Run("unknown asset is rejected", func() {
		_, err := s.service.ProvisionDevice(s.ctx, DeviceInput{Serial: "SN-2", Kind: "gateway", AssetID: "nope"})
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *ServiceSuite) TestWithoutPoliciesExplicitOperationsAreSilent() {
	assets := store.NewRepository[*models.Asset]()
	svc := New(assets, store.NewRepository[*models.Device](), intercept.New(s.events))
	asset, err := svc.RegisterAsset(s.ctx, AssetInput{Name: "pump"})
	s.Require().NoError(err)
	s.events.Clear()

	_, err = svc.ArchiveAssets(s.ctx, []string{asset.ID})
	s.Require().NoError(err)
	s.Equal([]string{audit.ActionUpdated}, s.actions())
}
