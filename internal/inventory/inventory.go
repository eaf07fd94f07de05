// Package inventory is the host domain: assets and the devices attached to
// them, every write audited.
package inventory

import (
	"log/slog"

	"auditkit/internal/inventory/handler"
	"auditkit/internal/inventory/models"
	"auditkit/internal/inventory/service"
	"auditkit/internal/inventory/store"
	"auditkit/internal/platform/metrics"
	"auditkit/pkg/entityaudit/intercept"
	"auditkit/pkg/entityaudit/registry"
)

// Service exposes inventory orchestration.
type Service = service.Service

// Handler wires HTTP endpoints to the inventory service.
type Handler = handler.Handler

// RegisterModels adds the auditable inventory types to r.
func RegisterModels(r *registry.Registry) error {
	return r.Register(models.Asset{}, models.Device{})
}

// RegisterPolicies adds the explicit operation policies to ps.
func RegisterPolicies(ps *intercept.Policies) error {
	return service.RegisterPolicies(ps)
}

// NewService builds the service over in-memory repositories.
func NewService(ic *intercept.Interceptor, logger *slog.Logger, m *metrics.Metrics) *Service {
	return service.New(
		store.NewRepository[*models.Asset](),
		store.NewRepository[*models.Device](),
		ic,
		service.WithLogger(logger),
		service.WithMetrics(m),
	)
}

func NewHandler(s *Service, logger *slog.Logger) *Handler {
	return handler.New(s, logger)
}
