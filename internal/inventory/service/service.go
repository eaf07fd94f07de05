package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"auditkit/internal/inventory/models"
	"auditkit/internal/platform/metrics"
	"auditkit/pkg/entityaudit/assembler"
	"auditkit/pkg/entityaudit/intercept"
	"auditkit/pkg/platform/sentinel"
	strutil "auditkit/pkg/platform/strings"
)

// Operation names used for policy lookup.
const (
	OpArchiveAssets      = "inventory.archive_assets"
	OpRelocateAsset      = "inventory.relocate_asset"
	OpDecommissionDevice = "inventory.decommission_device"
)

// Explicit action labels.
const (
	ActionArchived  = "archived"
	ActionRelocated = "relocated"
	ActionInspected = "inspected"
)

// RegisterPolicies records the audit policy of each explicit operation.
// Archiving replaces the per-asset update events with a single "archived"
// event; relocation keeps the update event and adds "relocated".
func RegisterPolicies(ps *intercept.Policies) error {
	for name, p := range map[string]intercept.Policy{
		OpArchiveAssets:      intercept.ExplicitAction(intercept.NewActionPolicy(ActionArchived)),
		OpRelocateAsset:      intercept.ExplicitAction(intercept.NewActionPolicy(ActionRelocated).KeepDefaultEvents()),
		OpDecommissionDevice: intercept.ExplicitAction(intercept.NewActionPolicy(models.DeviceDecommissioned)),
	} {
		if err := ps.Register(name, p); err != nil {
			return err
		}
	}
	return nil
}

type AssetStore interface {
	intercept.Repository[*models.Asset]
	FindByID(ctx context.Context, id string) (*models.Asset, error)
	List(ctx context.Context) ([]*models.Asset, error)
}

type DeviceStore interface {
	intercept.Repository[*models.Device]
	FindByID(ctx context.Context, id string) (*models.Device, error)
	List(ctx context.Context) ([]*models.Device, error)
}

// Service manages assets and their devices. Writes go through audited
// repositories; explicit operations run under their registered policy.
type Service struct {
	assets       AssetStore
	devices      DeviceStore
	assetWrites  intercept.Repository[*models.Asset]
	deviceWrites intercept.Repository[*models.Device]
	ic           *intercept.Interceptor
	logger       *slog.Logger
	metrics      *metrics.Metrics
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(assets AssetStore, devices DeviceStore, ic *intercept.Interceptor, opts ...Option) *Service {
	s := &Service{
		assets:       assets,
		devices:      devices,
		assetWrites:  intercept.NewAudited[*models.Asset](assets, ic),
		deviceWrites: intercept.NewAudited[*models.Device](devices, ic),
		ic:           ic,
		logger:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AssetInput describes an asset to register.
type AssetInput struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

func (s *Service) RegisterAsset(ctx context.Context, in AssetInput) (*models.Asset, error) {
	asset, err := models.NewAsset(in.Name, in.Location)
	if err != nil {
		return nil, err
	}
	saved, err := s.assetWrites.Save(ctx, asset)
	if err != nil {
		return nil, fmt.Errorf("register asset: %w", err)
	}
	s.metrics.IncrementAssetsCreated()
	return saved, nil
}

// ImportAssets registers all inputs at once; a single event covers them.
func (s *Service) ImportAssets(ctx context.Context, in []AssetInput) ([]*models.Asset, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: nothing to import", sentinel.ErrInvalidInput)
	}
	assets := make([]*models.Asset, 0, len(in))
	for _, item := range in {
		asset, err := models.NewAsset(item.Name, item.Location)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
	}
	saved, err := s.assetWrites.SaveAll(ctx, assets)
	if err != nil {
		return nil, fmt.Errorf("import assets: %w", err)
	}
	for range saved {
		s.metrics.IncrementAssetsCreated()
	}
	return saved, nil
}

func (s *Service) RenameAsset(ctx context.Context, id, name string) (*models.Asset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: asset name is required", sentinel.ErrInvalidInput)
	}
	asset, err := s.assets.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	asset.Name = name
	return s.assetWrites.Save(ctx, asset)
}

func (s *Service) RemoveAsset(ctx context.Context, id string) error {
	asset, err := s.assets.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.assetWrites.Delete(ctx, asset)
}

// RelocateAsset moves an asset. Both the update and "relocated" are audited.
func (s *Service) RelocateAsset(ctx context.Context, id, location string) (*models.Asset, error) {
	asset, err := s.assets.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return intercept.Invoke(ctx, s.ic, OpRelocateAsset, []any{asset},
		func(ctx context.Context) (*models.Asset, error) {
			asset.Location = strings.TrimSpace(location)
			return s.assetWrites.Save(ctx, asset)
		})
}

// ArchiveAssets flags every listed asset as archived under one event.
func (s *Service) ArchiveAssets(ctx context.Context, ids []string) ([]*models.Asset, error) {
	ids = strutil.DedupeAndTrim(ids)
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no assets to archive", sentinel.ErrInvalidInput)
	}
	assets := make([]*models.Asset, 0, len(ids))
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		asset, err := s.assets.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		assets = append(assets, asset)
		args = append(args, asset)
	}

	return intercept.Invoke(ctx, s.ic, OpArchiveAssets, args,
		func(ctx context.Context) ([]*models.Asset, error) {
			for _, a := range assets {
				a.Archived = true
			}
			return s.assetWrites.SaveAll(ctx, assets)
		})
}

// RecordInspection publishes an "inspected" event for an asset without
// changing it.
func (s *Service) RecordInspection(ctx context.Context, id, note string) error {
	asset, err := s.assets.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.ic.Send(ctx, asset, ActionInspected, assembler.WithDescription(note)); err != nil {
		s.logger.ErrorContext(ctx, "inspection not recorded", "asset_id", id, "error", err)
		return fmt.Errorf("record inspection: %w", err)
	}
	return nil
}

func (s *Service) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	return s.assets.FindByID(ctx, id)
}

func (s *Service) ListAssets(ctx context.Context) ([]*models.Asset, error) {
	return s.assets.List(ctx)
}

// DeviceInput describes a device to provision.
type DeviceInput struct {
	Serial  string `json:"serial"`
	Kind    string `json:"kind"`
	AssetID string `json:"asset_id"`
}

func (s *Service) ProvisionDevice(ctx context.Context, in DeviceInput) (*models.Device, error) {
	if _, err := s.assets.FindByID(ctx, in.AssetID); err != nil {
		return nil, fmt.Errorf("provision device: %w", err)
	}
	device, err := models.NewDevice(in.Serial, in.Kind, in.AssetID)
	if err != nil {
		return nil, err
	}
	return s.deviceWrites.Save(ctx, device)
}

func (s *Service) RemoveDevice(ctx context.Context, id string) error {
	device, err := s.devices.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return s.deviceWrites.Delete(ctx, device)
}

// DecommissionDevice retires a device. The audited entity is the returned
// device, since the caller only supplies an id.
func (s *Service) DecommissionDevice(ctx context.Context, id string) (*models.Device, error) {
	return intercept.Invoke(ctx, s.ic, OpDecommissionDevice, []any{id},
		func(ctx context.Context) (*models.Device, error) {
			device, err := s.devices.FindByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if device.Retired {
				return nil, fmt.Errorf("device %s already decommissioned: %w", id, sentinel.ErrInvalidState)
			}
			device.Retired = true
			return s.deviceWrites.Save(ctx, device)
		})
}

func (s *Service) ListDevices(ctx context.Context) ([]*models.Device, error) {
	return s.devices.List(ctx)
}
