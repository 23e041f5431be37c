package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptdex/internal/application/dto"
	"scriptdex/internal/client"
)

func runClient(t *testing.T, args ...string) client.Response {
	t.Helper()
	cmd := NewClientCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())

	var resp client.Response
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp), out.String())
	return resp
}

func fakeServer(t *testing.T) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(dto.HealthResponse{Status: "healthy", SnapshotID: "abc"})
	})
	mux.HandleFunc("GET /items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(dto.NewErrorResponse(dto.ErrorCodeItemNotFound, "item not found: "+r.PathValue("id"),
			dto.NotFoundDetails{ID: r.PathValue("id"), Suggestions: []string{"meatballs"}}))
	})
	mux.HandleFunc("GET /catalog/search", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"q": r.URL.Query().Get("q"), "count": 0})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv.URL
}

func TestClientCmd_Success(t *testing.T) {
	url := fakeServer(t)

	resp := runClient(t, "health", "--api-url", url)
	assert.True(t, resp.Success)
	assert.Equal(t, "abc", resp.Data.(map[string]interface{})["snapshot_id"])

	resp = runClient(t, "search", "cat:food", "meat", "--api-url", url)
	assert.True(t, resp.Success)
	assert.Equal(t, "cat:food meat", resp.Data.(map[string]interface{})["q"])

	resp = runClient(t, "wait", "--api-url", url, "--since", "older", "--interval", "1ms")
	assert.True(t, resp.Success)
}

func TestClientCmd_Failures(t *testing.T) {
	url := fakeServer(t)
	closed := httptest.NewServer(http.NotFoundHandler())
	closedURL := closed.URL
	closed.Close()

	tests := []struct {
		name     string
		args     []string
		wantCode string
	}{
		{name: "server error envelope", args: []string{"item", "meatbal", "--api-url", url}, wantCode: "ITEM_NOT_FOUND"},
		{name: "bad url", args: []string{"health", "--api-url", "localhost"}, wantCode: errCodeInvalidConfig},
		{name: "connection refused", args: []string{"meta", "--api-url", closedURL}, wantCode: errCodeConnectionError},
		{name: "empty trace key", args: []string{"trace", " ", "--api-url", url}, wantCode: errCodeInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := runClient(t, tt.args...)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestClientCmd_NotFoundKeepsSuggestions(t *testing.T) {
	resp := runClient(t, "item", "meatbal", "--api-url", fakeServer(t))
	require.NotNil(t, resp.Error)
	details, ok := resp.Error.Details.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"meatballs"}, details["suggestions"])
}
