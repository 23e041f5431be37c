package api

import (
	"net/http"
	"strings"

	"scriptdex/internal/application/query"
	"scriptdex/internal/port/inbound"
)

// CatalogHandler serves the read-only catalog endpoints.
type CatalogHandler struct {
	service      inbound.QueryService
	errorHandler ErrorHandler
	cache        *ResponseCache
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(service inbound.QueryService, errorHandler ErrorHandler, cache *ResponseCache) *CatalogHandler {
	return &CatalogHandler{service: service, errorHandler: errorHandler, cache: cache}
}

// cached serves a GET through the response cache of the current snapshot.
func (h *CatalogHandler) cached(w http.ResponseWriter, r *http.Request, build func() (interface{}, error)) {
	snap, err := h.service.Snapshot()
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}
	if err := h.cache.serve(w, r, snap.ID, build); err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
	}
}

// GetMeta handles GET /meta.
func (h *CatalogHandler) GetMeta(w http.ResponseWriter, r *http.Request) {
	meta, err := h.service.Meta(r.Context())
	if err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	if err := WriteJSON(w, http.StatusOK, meta); err != nil {
		h.errorHandler.HandleServiceError(w, r, err)
	}
}

// GetIndex handles GET /catalog/index?offset&limit.
func (h *CatalogHandler) GetIndex(w http.ResponseWriter, r *http.Request) {
	offset, limit, err := pageParams(r)
	if err != nil {
		h.errorHandler.HandleValidationError(w, r, err)
		return
	}
	h.cached(w, r, func() (interface{}, error) {
		return h.service.Index(r.Context(), query.IndexQuery{Offset: offset, Limit: limit})
	})
}

// Search handles GET /catalog/search?q&offset&limit.
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		h.errorHandler.HandleValidationError(w, r, NewValidationError("q", "query is required"))
		return
	}
	offset, limit, err := pageParams(r)
	if err != nil {
		h.errorHandler.HandleValidationError(w, r, err)
		return
	}
	h.cached(w, r, func() (interface{}, error) {
		return h.service.Search(r.Context(), query.SearchQuery{Q: q, Offset: offset, Limit: limit})
	})
}

// GetItem handles GET /items/{id}.
func (h *CatalogHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	h.cached(w, r, func() (interface{}, error) {
		return h.service.Item(r.Context(), id)
	})
}

// GetTrace handles GET /tuning/trace. Exactly one of key and prefix must be set; an
// empty prefix parameter pages from the first key.
func (h *CatalogHandler) GetTrace(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	key := strings.TrimSpace(params.Get("key"))
	_, hasPrefix := params["prefix"]
	switch {
	case key != "" && hasPrefix:
		h.errorHandler.HandleValidationError(w, r, NewValidationError("key", "key and prefix are mutually exclusive"))
		return
	case key == "" && !hasPrefix:
		h.errorHandler.HandleValidationError(w, r, NewValidationError("key", "key or prefix is required"))
		return
	}
	limit, err := intParam(r, "limit")
	if err != nil {
		h.errorHandler.HandleValidationError(w, r, err)
		return
	}
	h.cached(w, r, func() (interface{}, error) {
		if key != "" {
			return h.service.Trace(r.Context(), key)
		}
		return h.service.TracePrefix(r.Context(), params.Get("prefix"), limit)
	})
}

// GetI18n handles GET /i18n/{lang}.
func (h *CatalogHandler) GetI18n(w http.ResponseWriter, r *http.Request) {
	lang := r.PathValue("lang")
	h.cached(w, r, func() (interface{}, error) {
		return h.service.I18n(r.Context(), lang)
	})
}

func pageParams(r *http.Request) (offset, limit int, err error) {
	if offset, err = intParam(r, "offset"); err != nil {
		return 0, 0, err
	}
	if limit, err = intParam(r, "limit"); err != nil {
		return 0, 0, err
	}
	return offset, limit, nil
}
