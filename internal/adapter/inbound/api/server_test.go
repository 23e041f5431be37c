package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptdex/internal/adapter/outbound/artifact"
	"scriptdex/internal/application/common/retry"
	"scriptdex/internal/application/dto"
	"scriptdex/internal/application/linker"
	"scriptdex/internal/application/query"
	"scriptdex/internal/config"
	"scriptdex/internal/domain/entity"
	"scriptdex/internal/testfixtures"
)

func writeFixture(t *testing.T, dir string) {
	t.Helper()
	ctx := context.Background()
	results, err := testfixtures.Extract(ctx, testfixtures.Files())
	require.NoError(t, err)
	g, err := linker.Link(ctx, results, linker.Options{})
	require.NoError(t, err)

	store := artifact.NewStore(dir)
	w := artifact.NewWriter(store, artifact.NewMetaFactory(store, "0123456789ab", nil), artifact.WithNames("en", "zh"))
	for _, write := range []func(context.Context, *entity.Graph) (string, error){
		w.Catalog, w.CatalogIndex, w.Traces, w.I18n, w.Icons, w.Farming, w.CatalogSQLite,
	} {
		_, err := write(ctx, g)
		require.NoError(t, err)
	}
}

func testAPIConfig() config.APIConfig {
	return config.APIConfig{Host: "127.0.0.1", Port: "0", CacheMaxAge: 60, ResponseCacheMB: 1}
}

func newTestServer(t *testing.T, cfg config.APIConfig, load bool) (*Server, *query.Handle) {
	t.Helper()
	dir := t.TempDir()
	writeFixture(t, dir)
	h, err := query.NewHandle(dir, query.Options{
		PreferredLang: "en",
		SecondaryLang: "zh",
		Retry:         &retry.Config{MaxRetries: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, BackoffFactor: 1},
	})
	require.NoError(t, err)
	if load {
		_, err = h.Reload(context.Background())
		require.NoError(t, err)
	}
	s, err := NewServer(cfg, h)
	require.NoError(t, err)
	h.OnReload(func(context.Context, *query.Snapshot) { s.InvalidateCache() })
	t.Cleanup(s.cache.Close)
	return s, h
}

func do(t *testing.T, s *Server, method, target, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestServer_Routes(t *testing.T) {
	s, _ := newTestServer(t, testAPIConfig(), true)

	for _, pattern := range []string{
		"GET /health", "GET /meta", "GET /catalog/index", "GET /catalog/search", "GET /items/{id}",
		"GET /tuning/trace", "GET /i18n/{lang}", "POST /cooking/explore", "POST /cooking/simulate",
		"POST /farming/plan", "POST /farming/simulate", "POST /admin/reload",
	} {
		assert.True(t, s.HasRoute(pattern), pattern)
	}
	assert.Equal(t, 12, s.RouteCount())

	rec := do(t, s, http.MethodDelete, "/meta", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServer_Endpoints(t *testing.T) {
	s, _ := newTestServer(t, testAPIConfig(), true)

	tests := []struct {
		name      string
		method    string
		target    string
		body      string
		status    int
		errorCode string
		check     func(t *testing.T, rec *httptest.ResponseRecorder)
	}{
		{
			name: "health", method: http.MethodGet, target: "/health", status: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp dto.HealthResponse
				decode(t, rec, &resp)
				assert.Equal(t, "healthy", resp.Status)
				assert.NotEmpty(t, resp.SnapshotID)
				assert.Equal(t, "healthy", resp.Dependencies["catalog_sqlite"].Status)
			},
		},
		{
			name: "meta", method: http.MethodGet, target: "/meta", status: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var meta query.MetaView
				decode(t, rec, &meta)
				assert.False(t, meta.DegradedMode)
				assert.True(t, meta.Artifacts["catalog"])
			},
		},
		{
			name: "search with kind filter", method: http.MethodGet, target: "/catalog/search?q=kind:weapon+spear", status: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var res query.SearchResult
				decode(t, rec, &res)
				require.NotEmpty(t, res.Items)
				assert.Equal(t, "spear", res.Items[0].ID)
			},
		},
		{name: "search without q", method: http.MethodGet, target: "/catalog/search", status: http.StatusBadRequest, errorCode: "INVALID_REQUEST"},
		{
			name: "index with bad limit", method: http.MethodGet, target: "/catalog/index?limit=abc", status: http.StatusBadRequest, errorCode: "INVALID_REQUEST",
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Contains(t, rec.Body.String(), `"field":"limit"`)
			},
		},
		{
			name: "index page", method: http.MethodGet, target: "/catalog/index?limit=2", status: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var page query.IndexPage
				decode(t, rec, &page)
				assert.Len(t, page.Items, 2)
			},
		},
		{name: "item", method: http.MethodGet, target: "/items/spear", status: http.StatusOK},
		{
			name: "item miss suggests", method: http.MethodGet, target: "/items/spaer", status: http.StatusNotFound, errorCode: "ITEM_NOT_FOUND",
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp struct {
					Details dto.NotFoundDetails `json:"details"`
				}
				decode(t, rec, &resp)
				assert.Equal(t, "spaer", resp.Details.ID)
				assert.Contains(t, resp.Details.Suggestions, "spear")
				assert.Empty(t, rec.Header().Get("ETag"))
			},
		},
		{name: "trace miss", method: http.MethodGet, target: "/tuning/trace?key=NOPE", status: http.StatusNotFound, errorCode: "TRACE_NOT_FOUND"},
		{name: "trace needs key or prefix", method: http.MethodGet, target: "/tuning/trace", status: http.StatusBadRequest, errorCode: "INVALID_REQUEST"},
		{name: "trace key and prefix", method: http.MethodGet, target: "/tuning/trace?key=a&prefix=b", status: http.StatusBadRequest, errorCode: "INVALID_REQUEST"},
		{
			name: "trace prefix", method: http.MethodGet, target: "/tuning/trace?prefix=craft:", status: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var page query.TracePage
				decode(t, rec, &page)
				assert.Contains(t, page.Traces, "craft:armorwood:ingredient:log")
			},
		},
		{name: "i18n", method: http.MethodGet, target: "/i18n/zh", status: http.StatusOK},
		{name: "i18n unknown", method: http.MethodGet, target: "/i18n/xx", status: http.StatusNotFound, errorCode: "LANGUAGE_NOT_FOUND"},
		{
			name: "cooking simulate", method: http.MethodPost, target: "/cooking/simulate",
			body: `{"slots":{"butterflywings":1,"carrot":3}}`, status: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				assert.Contains(t, rec.Body.String(), `"result":"butterflymuffin"`)
			},
		},
		{name: "cooking too many items", method: http.MethodPost, target: "/cooking/explore", body: `{"slots":{"berries":5}}`, status: http.StatusBadRequest, errorCode: "INVALID_REQUEST"},
		{name: "cooking unknown field", method: http.MethodPost, target: "/cooking/simulate", body: `{"pot":{}}`, status: http.StatusBadRequest, errorCode: "INVALID_REQUEST"},
		{name: "cooking empty body", method: http.MethodPost, target: "/cooking/simulate", status: http.StatusBadRequest, errorCode: "INVALID_REQUEST"},
		{
			name: "farming plan", method: http.MethodPost, target: "/farming/plan",
			body: `{"season":"autumn","plant_ids":["carrot"],"max_kinds":1,"top_n":1}`, status: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp FarmingPlanResponse
				decode(t, rec, &resp)
				assert.Equal(t, 1, resp.Count)
			},
		},
		{name: "farming unknown plant", method: http.MethodPost, target: "/farming/simulate", body: `{"plant":"nosuchplant"}`, status: http.StatusBadRequest, errorCode: "UNKNOWN_PLANT"},
		{
			name: "admin reload", method: http.MethodPost, target: "/admin/reload", status: http.StatusOK,
			check: func(t *testing.T, rec *httptest.ResponseRecorder) {
				var resp dto.ReloadResponse
				decode(t, rec, &resp)
				assert.NotEmpty(t, resp.SnapshotID)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, tt.method, tt.target, tt.body)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
			if tt.errorCode != "" {
				var resp dto.ErrorResponse
				decode(t, rec, &resp)
				assert.Equal(t, tt.errorCode, resp.Error)
				assert.NotEmpty(t, resp.Message)
			}
			if tt.check != nil {
				tt.check(t, rec)
			}
		})
	}
}

func TestServer_ETag(t *testing.T) {
	s, h := newTestServer(t, testAPIConfig(), true)

	first := do(t, s, http.MethodGet, "/catalog/search?q=spear", "")
	require.Equal(t, http.StatusOK, first.Code)
	tag := first.Header().Get("ETag")
	require.NotEmpty(t, tag)
	assert.Equal(t, "public, max-age=60", first.Header().Get("Cache-Control"))

	snap, err := h.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, ETag(snap.ID, "/catalog/search?q=spear"), tag)

	notModified := do(t, s, http.MethodGet, "/catalog/search?q=spear", "", "If-None-Match", tag)
	assert.Equal(t, http.StatusNotModified, notModified.Code)
	assert.Empty(t, notModified.Body.Bytes())

	other := do(t, s, http.MethodGet, "/catalog/search?q=spear&limit=1", "", "If-None-Match", tag)
	assert.Equal(t, http.StatusOK, other.Code)
	assert.NotEqual(t, tag, other.Header().Get("ETag"))
}

func TestServer_WildcardIfNoneMatch(t *testing.T) {
	s, _ := newTestServer(t, testAPIConfig(), true)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{name: "known item", target: "/items/spear", want: http.StatusNotModified},
		{name: "unknown item", target: "/items/spaer", want: http.StatusNotFound},
		{name: "known trace", target: "/tuning/trace?key=item:spear:stat:weapon_damage", want: http.StatusNotModified},
		{name: "unknown trace", target: "/tuning/trace?key=NOPE", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, http.MethodGet, tt.target, "", "If-None-Match", "*")
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusNotModified {
				assert.Empty(t, rec.Body.Bytes())
			}
		})
	}
}

func TestServer_ResponseCache(t *testing.T) {
	s, h := newTestServer(t, testAPIConfig(), true)

	first := do(t, s, http.MethodGet, "/items/spear", "")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
	s.cache.cache.Wait()

	second := do(t, s, http.MethodGet, "/items/spear", "")
	assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
	assert.Equal(t, first.Body.String(), second.Body.String())

	_, err := h.Reload(context.Background())
	require.NoError(t, err)
	third := do(t, s, http.MethodGet, "/items/spear", "")
	assert.Equal(t, "MISS", third.Header().Get("X-Cache"))
}

func TestServer_HotReloadDisablesHTTPCaching(t *testing.T) {
	cfg := testAPIConfig()
	cfg.HotReload = true
	s, _ := newTestServer(t, cfg, true)

	rec := do(t, s, http.MethodGet, "/catalog/index", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	assert.Empty(t, rec.Header().Get("ETag"))
}

func TestServer_NotLoaded(t *testing.T) {
	s, _ := newTestServer(t, testAPIConfig(), false)

	rec := do(t, s, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var health dto.HealthResponse
	decode(t, rec, &health)
	assert.Equal(t, "unhealthy", health.Status)

	rec = do(t, s, http.MethodGet, "/catalog/search?q=spear", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var resp dto.ErrorResponse
	decode(t, rec, &resp)
	assert.Equal(t, "SERVICE_UNAVAILABLE", resp.Error)
}

func TestServer_StartShutdown(t *testing.T) {
	s, _ := newTestServer(t, testAPIConfig(), true)
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())
	assert.Error(t, s.Start(ctx))

	resp, err := http.Get("http://" + s.Address() + "/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Shutdown(ctx))
	assert.False(t, s.IsRunning())
}

func TestNewServer_Validation(t *testing.T) {
	_, err := NewServerBuilder(testAPIConfig()).Build()
	assert.Error(t, err)

	cfg := testAPIConfig()
	cfg.Port = "99999"
	_, err = NewServerBuilder(cfg).WithServices(&query.Handle{}).Build()
	assert.Error(t, err)
}
