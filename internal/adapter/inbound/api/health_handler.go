package api

import (
	"fmt"
	"net/http"
	"time"

	"scriptdex/internal/application/dto"
	"scriptdex/internal/application/query"
	"scriptdex/internal/port/inbound"
	"scriptdex/internal/version"
)

const (
	// Unit conversion constants.
	nanosecondsToMilliseconds = 1e6
)

// HealthHandler handles HTTP requests for health check operations.
type HealthHandler struct {
	service      inbound.QueryService
	errorHandler ErrorHandler
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(service inbound.QueryService, errorHandler ErrorHandler) *HealthHandler {
	return &HealthHandler{service: service, errorHandler: errorHandler}
}

// GetHealth handles GET /health. It answers 503 until a snapshot is loaded and reports
// "degraded" while any derived artifact was rebuilt in memory or is missing.
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	response := healthResponse(h.service)
	statusCode := http.StatusOK
	if response.Status == string(dto.HealthStatusUnhealthy) {
		statusCode = http.StatusServiceUnavailable
	}

	w.Header().Set("Cache-Control", "no-store")
	w.Header().
		Set("X-Health-Check-Duration", fmt.Sprintf("%.2fms", float64(time.Since(start).Nanoseconds())/nanosecondsToMilliseconds))
	if err := WriteJSON(w, statusCode, response); err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
	}
}

func healthResponse(service inbound.QueryService) *dto.HealthResponse {
	resp := &dto.HealthResponse{
		Timestamp: time.Now(),
		Version:   version.GetVersion().Version,
	}
	snap, err := service.Snapshot()
	if err != nil {
		resp.Status = string(dto.HealthStatusUnhealthy)
		resp.Dependencies = map[string]dto.DependencyStatus{
			"catalog": {Status: string(dto.DependencyStatusUnhealthy), Message: err.Error()},
		}
		return resp
	}

	resp.SnapshotID = snap.ID
	resp.Status = string(dto.HealthStatusHealthy)
	if snap.Degraded.Any() {
		resp.Status = string(dto.HealthStatusDegraded)
	}
	resp.Dependencies = snapshotDependencies(snap)
	return resp
}

func snapshotDependencies(snap *query.Snapshot) map[string]dto.DependencyStatus {
	status := func(degraded bool, fallback dto.DependencyStatusValue) dto.DependencyStatus {
		if degraded {
			return dto.DependencyStatus{Status: string(fallback)}
		}
		return dto.DependencyStatus{Status: string(dto.DependencyStatusHealthy)}
	}
	return map[string]dto.DependencyStatus{
		"catalog":        status(false, ""),
		"catalog_index":  status(snap.Degraded.CatalogIndex, dto.DependencyStatusRebuilt),
		"tuning_trace":   status(snap.Degraded.Traces, dto.DependencyStatusRebuilt),
		"catalog_sqlite": status(snap.Degraded.SQLite, dto.DependencyStatusMissing),
	}
}
