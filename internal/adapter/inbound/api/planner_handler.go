package api

import (
	"net/http"

	"scriptdex/internal/application/cooking"
	"scriptdex/internal/application/farming"
	"scriptdex/internal/port/inbound"
)

// PlannerHandler serves the cooking and farming planners. Planner responses depend on
// the request body and are never cached.
type PlannerHandler struct {
	cooking      inbound.CookingService
	farming      inbound.FarmingService
	errorHandler ErrorHandler
}

// NewPlannerHandler creates a new PlannerHandler.
func NewPlannerHandler(c inbound.CookingService, f inbound.FarmingService, errorHandler ErrorHandler) *PlannerHandler {
	return &PlannerHandler{cooking: c, farming: f, errorHandler: errorHandler}
}

// plannerCall decodes a JSON body into Req, runs fn and writes its result.
func plannerCall[Req any, Res any](h *PlannerHandler, w http.ResponseWriter, r *http.Request, fn func(*http.Request, Req) (Res, error)) {
	var req Req
	if err := decodeJSON(r, &req); err != nil {
		h.errorHandler.HandleValidationError(w, r, err)
		return
	}
	res, err := fn(r, req)
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	if err := WriteJSON(w, http.StatusOK, res); err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
	}
}

// CookingExplore handles POST /cooking/explore.
func (h *PlannerHandler) CookingExplore(w http.ResponseWriter, r *http.Request) {
	plannerCall(h, w, r, func(r *http.Request, req cooking.ExploreRequest) (*cooking.ExploreResult, error) {
		return h.cooking.CookingExplore(r.Context(), req)
	})
}

// CookingSimulate handles POST /cooking/simulate.
func (h *PlannerHandler) CookingSimulate(w http.ResponseWriter, r *http.Request) {
	plannerCall(h, w, r, func(r *http.Request, req cooking.SimulateRequest) (*cooking.SimulateResult, error) {
		return h.cooking.CookingSimulate(r.Context(), req)
	})
}

// FarmingPlanResponse wraps the ranked plans.
type FarmingPlanResponse struct {
	Plans []farming.Plan `json:"plans"`
	Count int            `json:"count"`
}

// FarmingPlan handles POST /farming/plan.
func (h *PlannerHandler) FarmingPlan(w http.ResponseWriter, r *http.Request) {
	plannerCall(h, w, r, func(r *http.Request, req farming.PlanRequest) (*FarmingPlanResponse, error) {
		plans, err := h.farming.FarmingPlan(r.Context(), req)
		if err != nil {
			return nil, err
		}
		if plans == nil {
			plans = []farming.Plan{}
		}
		return &FarmingPlanResponse{Plans: plans, Count: len(plans)}, nil
	})
}

// FarmingSimulate handles POST /farming/simulate.
func (h *PlannerHandler) FarmingSimulate(w http.ResponseWriter, r *http.Request) {
	plannerCall(h, w, r, func(r *http.Request, req farming.SimRequest) (*farming.SimResult, error) {
		return h.farming.FarmingSimulate(r.Context(), req)
	})
}
