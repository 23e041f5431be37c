package api

import (
	"net/http"

	"scriptdex/internal/application/common/slogger"
	"scriptdex/internal/application/dto"
	"scriptdex/internal/port/inbound"
)

// AdminHandler handles operator endpoints.
type AdminHandler struct {
	service      inbound.QueryService
	errorHandler ErrorHandler
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service inbound.QueryService, errorHandler ErrorHandler) *AdminHandler {
	return &AdminHandler{service: service, errorHandler: errorHandler}
}

// Reload handles POST /admin/reload. A failed reload keeps the previous snapshot.
func (h *AdminHandler) Reload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Reload(r.Context())
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}
	slogger.Info(r.Context(), "Snapshot reloaded via admin endpoint", slogger.Field("snapshot_id", snap.ID))
	w.Header().Set("Cache-Control", "no-store")
	if err := WriteJSON(w, http.StatusOK, dto.ReloadResponse{
		SnapshotID: snap.ID,
		LoadedAt:   snap.LoadedAt,
		Degraded:   snap.Degraded,
	}); err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
	}
}
