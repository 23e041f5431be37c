package api

import (
	"fmt"
	"net/http"
	"strings"
)

var validMethods = map[string]bool{
	http.MethodGet: true, http.MethodPost: true, http.MethodPut: true, http.MethodDelete: true,
	http.MethodPatch: true, http.MethodHead: true, http.MethodOptions: true,
}

// RouteRegistry manages HTTP route registration using Go 1.22+ ServeMux patterns
type RouteRegistry struct {
	routes   map[string]http.Handler
	patterns []string
	mux      *http.ServeMux
}

// NewRouteRegistry creates a new RouteRegistry
func NewRouteRegistry() *RouteRegistry {
	return &RouteRegistry{
		routes: make(map[string]http.Handler),
		mux:    http.NewServeMux(),
	}
}

// Handlers groups the endpoint handlers served by the API.
type Handlers struct {
	Health  *HealthHandler
	Catalog *CatalogHandler
	Planner *PlannerHandler
	Admin   *AdminHandler
}

// RegisterAPIRoutes registers all API routes with their handlers
func (r *RouteRegistry) RegisterAPIRoutes(h Handlers) {
	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"GET /health", h.Health.GetHealth},
		{"GET /meta", h.Catalog.GetMeta},
		{"GET /catalog/index", h.Catalog.GetIndex},
		{"GET /catalog/search", h.Catalog.Search},
		{"GET /items/{id}", h.Catalog.GetItem},
		{"GET /tuning/trace", h.Catalog.GetTrace},
		{"GET /i18n/{lang}", h.Catalog.GetI18n},
		{"POST /cooking/explore", h.Planner.CookingExplore},
		{"POST /cooking/simulate", h.Planner.CookingSimulate},
		{"POST /farming/plan", h.Planner.FarmingPlan},
		{"POST /farming/simulate", h.Planner.FarmingSimulate},
		{"POST /admin/reload", h.Admin.Reload},
	}
	for _, rt := range routes {
		if err := r.RegisterRoute(rt.pattern, rt.handler); err != nil {
			panic(fmt.Errorf("failed to register route %q: %w", rt.pattern, err))
		}
	}
}

// RegisterRoute registers a single route with the given pattern and handler
func (r *RouteRegistry) RegisterRoute(pattern string, handler http.Handler) error {
	if err := validatePattern(pattern); err != nil {
		return err
	}
	if _, exists := r.routes[pattern]; exists {
		return fmt.Errorf("route conflict detected: pattern '%s' is already registered", pattern)
	}
	r.mux.Handle(pattern, handler)
	r.routes[pattern] = handler
	r.patterns = append(r.patterns, pattern)
	return nil
}

// BuildServeMux returns the configured ServeMux
func (r *RouteRegistry) BuildServeMux() *http.ServeMux {
	return r.mux
}

// HasRoute checks if a route pattern is registered
func (r *RouteRegistry) HasRoute(pattern string) bool {
	_, exists := r.routes[pattern]
	return exists
}

// RouteCount returns the number of registered routes
func (r *RouteRegistry) RouteCount() int {
	return len(r.routes)
}

// GetPatterns returns all registered route patterns in registration order
func (r *RouteRegistry) GetPatterns() []string {
	return r.patterns
}

// validatePattern checks the "METHOD /path" form before ServeMux sees it, since
// ServeMux panics on malformed patterns.
func validatePattern(pattern string) error {
	method, path, ok := strings.Cut(strings.TrimSpace(pattern), " ")
	if !ok {
		return fmt.Errorf("invalid route pattern '%s': must have format 'METHOD /path' (e.g., 'GET /items')", pattern)
	}
	if !validMethods[method] {
		return fmt.Errorf("invalid HTTP method '%s' in pattern '%s'", method, pattern)
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path '%s' in pattern '%s' must start with '/'", path, pattern)
	}
	if strings.Contains(path, "//") {
		return fmt.Errorf("path '%s' in pattern '%s' contains double slashes", path, pattern)
	}
	if strings.Count(path, "{") != strings.Count(path, "}") {
		return fmt.Errorf("invalid parameter syntax in pattern '%s': unbalanced braces", pattern)
	}
	if strings.Contains(path, "{}") {
		return fmt.Errorf("invalid parameter syntax in pattern '%s': empty parameter name", pattern)
	}
	return nil
}
