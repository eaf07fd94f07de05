package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"auditkit/internal/inventory/models"
	"auditkit/internal/inventory/service"
	"auditkit/pkg/platform/httputil"
	"auditkit/pkg/requestcontext"
)

// Service defines the inventory operations exposed over HTTP.
type Service interface {
	RegisterAsset(ctx context.Context, in service.AssetInput) (*models.Asset, error)
	ImportAssets(ctx context.Context, in []service.AssetInput) ([]*models.Asset, error)
	RenameAsset(ctx context.Context, id, name string) (*models.Asset, error)
	RemoveAsset(ctx context.Context, id string) error
	RelocateAsset(ctx context.Context, id, location string) (*models.Asset, error)
	ArchiveAssets(ctx context.Context, ids []string) ([]*models.Asset, error)
	RecordInspection(ctx context.Context, id, note string) error
	GetAsset(ctx context.Context, id string) (*models.Asset, error)
	ListAssets(ctx context.Context) ([]*models.Asset, error)
	ProvisionDevice(ctx context.Context, in service.DeviceInput) (*models.Device, error)
	RemoveDevice(ctx context.Context, id string) error
	DecommissionDevice(ctx context.Context, id string) (*models.Device, error)
	ListDevices(ctx context.Context) ([]*models.Device, error)
}

// Handler wires inventory endpoints to the service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts inventory endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/assets", func(r chi.Router) {
		r.Get("/", h.HandleListAssets)
		r.Post("/", h.HandleRegisterAsset)
		r.Post("/import", h.HandleImportAssets)
		r.Post("/archive", h.HandleArchiveAssets)
		r.Get("/{id}", h.HandleGetAsset)
		r.Patch("/{id}", h.HandleRenameAsset)
		r.Delete("/{id}", h.HandleRemoveAsset)
		r.Post("/{id}/relocate", h.HandleRelocateAsset)
		r.Post("/{id}/inspections", h.HandleRecordInspection)
	})
	r.Route("/devices", func(r chi.Router) {
		r.Get("/", h.HandleListDevices)
		r.Post("/", h.HandleProvisionDevice)
		r.Delete("/{id}", h.HandleRemoveDevice)
		r.Post("/{id}/decommission", h.HandleDecommissionDevice)
	})
}

type renameRequest struct {
	Name string `json:"name"`
}

type relocateRequest struct {
	Location string `json:"location"`
}

type archiveRequest struct {
	IDs []string `json:"ids"`
}

type inspectionRequest struct {
	Note string `json:"note"`
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.WarnContext(r.Context(), op+" failed",
		"request_id", requestcontext.RequestID(r.Context()),
		"error", err,
	)
	httputil.WriteError(w, err)
}

func (h *Handler) HandleRegisterAsset(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[service.AssetInput](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	asset, err := h.service.RegisterAsset(r.Context(), req)
	if err != nil {
		h.fail(w, r, "register asset", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, asset)
}

func (h *Handler) HandleImportAssets(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[[]service.AssetInput](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	assets, err := h.service.ImportAssets(r.Context(), req)
	if err != nil {
		h.fail(w, r, "import assets", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, assets)
}

func (h *Handler) HandleListAssets(w http.ResponseWriter, r *http.Request) {
	assets, err := h.service.ListAssets(r.Context())
	if err != nil {
		h.fail(w, r, "list assets", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, assets)
}

func (h *Handler) HandleGetAsset(w http.ResponseWriter, r *http.Request) {
	asset, err := h.service.GetAsset(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, asset)
}

func (h *Handler) HandleRenameAsset(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[renameRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	asset, err := h.service.RenameAsset(r.Context(), chi.URLParam(r, "id"), req.Name)
	if err != nil {
		h.fail(w, r, "rename asset", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, asset)
}

func (h *Handler) HandleRemoveAsset(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveAsset(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "remove asset", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleRelocateAsset(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[relocateRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	asset, err := h.service.RelocateAsset(r.Context(), chi.URLParam(r, "id"), req.Location)
	if err != nil {
		h.fail(w, r, "relocate asset", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, asset)
}

func (h *Handler) HandleArchiveAssets(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[archiveRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	assets, err := h.service.ArchiveAssets(r.Context(), req.IDs)
	if err != nil {
		h.fail(w, r, "archive assets", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, assets)
}

func (h *Handler) HandleRecordInspection(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[inspectionRequest](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := h.service.RecordInspection(r.Context(), chi.URLParam(r, "id"), req.Note); err != nil {
		h.fail(w, r, "record inspection", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) HandleProvisionDevice(w http.ResponseWriter, r *http.Request) {
	req, err := httputil.DecodeJSON[service.DeviceInput](r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	device, err := h.service.ProvisionDevice(r.Context(), req)
	if err != nil {
		h.fail(w, r, "provision device", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, device)
}

func (h *Handler) HandleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.service.ListDevices(r.Context())
	if err != nil {
		h.fail(w, r, "list devices", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, devices)
}

func (h *Handler) HandleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveDevice(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, "remove device", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleDecommissionDevice(w http.ResponseWriter, r *http.Request) {
	device, err := h.service.DecommissionDevice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, "decommission device", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, device)
}
