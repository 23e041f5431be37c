package api

import (
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	"github.com/dgraph-io/ristretto"

	"scriptdex/internal/config"
)

const (
	responseCacheCounters = 100_000
	responseCacheBuffer   = 64
)

// ResponseCache holds encoded GET bodies keyed by snapshot id and request URI, and
// decides the caching headers each response carries.
type ResponseCache struct {
	cache   *ristretto.Cache // nil when the byte budget is 0
	maxAge  int
	noStore bool
}

// NewResponseCache sizes the cache from api.response_cache_mb. Under api.hot_reload
// responses are marked no-store and carry no ETag.
func NewResponseCache(cfg config.APIConfig) (*ResponseCache, error) {
	c := &ResponseCache{maxAge: cfg.CacheMaxAge, noStore: cfg.HotReload}
	if cfg.ResponseCacheMB <= 0 {
		return c, nil
	}
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: responseCacheCounters,
		MaxCost:     int64(cfg.ResponseCacheMB) << 20,
		BufferItems: responseCacheBuffer,
	})
	if err != nil {
		return nil, err
	}
	c.cache = cache
	return c, nil
}

// Clear drops every cached body. Called after each snapshot swap.
func (c *ResponseCache) Clear() {
	if c.cache != nil {
		c.cache.Clear()
	}
}

// Close releases the cache goroutines.
func (c *ResponseCache) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
}

func (c *ResponseCache) get(key string) ([]byte, bool) {
	if c.cache == nil {
		return nil, false
	}
	v, ok := c.cache.Get(key)
	if !ok {
		return nil, false
	}
	body, ok := v.([]byte)
	return body, ok
}

func (c *ResponseCache) set(key string, body []byte) {
	if c.cache != nil {
		c.cache.Set(key, body, int64(len(body)))
	}
}

// ETag derives the entity tag of a response from the snapshot it was served from and
// the full request URI.
func ETag(snapshotID, requestURI string) string {
	sum := sha256.Sum256([]byte(snapshotID + "\x00" + requestURI))
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}

// etagMatch is the outcome of comparing an If-None-Match header with a response tag.
type etagMatch int

const (
	etagNoMatch etagMatch = iota
	etagTagMatch
	etagWildcard // "*": matches only once the resource is known to exist
)

// etagMatches compares an If-None-Match header with tag. Weak tags compare by their
// opaque part. A listed tag takes precedence over "*".
func etagMatches(header, tag string) etagMatch {
	if header == "" {
		return etagNoMatch
	}
	out := etagNoMatch
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		switch candidate {
		case tag:
			return etagTagMatch
		case "*":
			out = etagWildcard
		}
	}
	return out
}

// serve writes a cacheable GET response. build runs only on a cache miss. A wildcard
// If-None-Match is answered with 304 only after the body resolved, so missing resources
// still get their error status.
func (c *ResponseCache) serve(w http.ResponseWriter, r *http.Request, snapshotID string, build func() (interface{}, error)) error {
	match := etagNoMatch
	if c.noStore {
		w.Header().Set("Cache-Control", "no-store")
	} else {
		tag := ETag(snapshotID, r.URL.RequestURI())
		w.Header().Set("ETag", tag)
		w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(c.maxAge))
		match = etagMatches(r.Header.Get("If-None-Match"), tag)
		if match == etagTagMatch {
			w.WriteHeader(http.StatusNotModified)
			return nil
		}
	}

	key := snapshotID + " " + r.URL.RequestURI()
	if body, ok := c.get(key); ok {
		if match == etagWildcard {
			w.WriteHeader(http.StatusNotModified)
			return nil
		}
		w.Header().Set("X-Cache", "HIT")
		return writeBody(w, http.StatusOK, body)
	}
	data, err := build()
	if err != nil {
		return err
	}
	body, err := encodeJSON(data)
	if err != nil {
		return err
	}
	c.set(key, body)
	if match == etagWildcard {
		w.WriteHeader(http.StatusNotModified)
		return nil
	}
	w.Header().Set("X-Cache", "MISS")
	return writeBody(w, http.StatusOK, body)
}
