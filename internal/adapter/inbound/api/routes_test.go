package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRouteRegistry_RegisterRoute(t *testing.T) {
	ok := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	tests := []struct {
		name    string
		pattern string
		wantErr bool
	}{
		{name: "plain", pattern: "GET /meta"},
		{name: "path parameter", pattern: "GET /items/{id}"},
		{name: "missing method", pattern: "/meta", wantErr: true},
		{name: "unknown method", pattern: "FETCH /meta", wantErr: true},
		{name: "relative path", pattern: "GET meta", wantErr: true},
		{name: "double slash", pattern: "GET //meta", wantErr: true},
		{name: "unbalanced brace", pattern: "GET /items/{id", wantErr: true},
		{name: "empty parameter", pattern: "GET /items/{}", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRouteRegistry().RegisterRoute(tt.pattern, ok)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestRouteRegistry_RejectsDuplicates(t *testing.T) {
	r := NewRouteRegistry()
	ok := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	assert.NoError(t, r.RegisterRoute("GET /meta", ok))
	assert.Error(t, r.RegisterRoute("GET /meta", ok))
	assert.Equal(t, 1, r.RouteCount())
	assert.Equal(t, []string{"GET /meta"}, r.GetPatterns())
}

func TestETagMatches(t *testing.T) {
	tag := ETag("abc", "/catalog/search?q=spear")
	tests := []struct {
		name   string
		header string
		want   etagMatch
	}{
		{"empty", "", etagNoMatch},
		{"exact", tag, etagTagMatch},
		{"weak", "W/" + tag, etagTagMatch},
		{"list", `"nope", ` + tag, etagTagMatch},
		{"wildcard", "*", etagWildcard},
		{"tag beats wildcard", `*, ` + tag, etagTagMatch},
		{"other", `"nope"`, etagNoMatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, etagMatches(tt.header, tag))
		})
	}
	assert.NotEqual(t, tag, ETag("abd", "/catalog/search?q=spear"))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name   string
		xff    string
		realIP string
		remote string
		want   string
	}{
		{name: "forwarded", xff: "bogus, 10.0.0.1", remote: "1.2.3.4:5", want: "10.0.0.1"},
		{name: "real ip", realIP: "10.0.0.2", remote: "1.2.3.4:5", want: "10.0.0.2"},
		{name: "remote v4", remote: "1.2.3.4:5", want: "1.2.3.4"},
		{name: "remote v6", remote: "[::1]:8080", want: "::1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			if tt.xff != "" {
				r.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.realIP != "" {
				r.Header.Set("X-Real-IP", tt.realIP)
			}
			assert.Equal(t, tt.want, clientIP(r))
		})
	}
}
