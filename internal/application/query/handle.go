// Package query serves the built index artifacts: catalog search, item lookups, trace
// lookups, localized names and the cooking and farming planners. All reads go through an
// immutable Snapshot that is swapped atomically on reload.
package query

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"scriptdex/internal/application/common"
	"scriptdex/internal/application/common/retry"
	"scriptdex/internal/application/common/slogger"
	"scriptdex/internal/domain/errors/domain"
)

var tracer = otel.Tracer("scriptdex/query")

// DefaultTraceCacheSize is the trace LRU size used when none is configured.
const DefaultTraceCacheSize = 4096

// Options configures a Handle.
type Options struct {
	PreferredLang  string
	SecondaryLang  string
	IconBase       string
	TraceCacheSize int
	SearchLimitMax int
	MeterProvider  metric.MeterProvider
	Retry          *retry.Config
}

// ReloadHook is called with the new snapshot after every successful reload.
type ReloadHook func(ctx context.Context, s *Snapshot)

// Handle owns the current snapshot of one index directory.
type Handle struct {
	dir     string
	opts    Options
	current atomic.Pointer[Snapshot]
	traces  *lru.Cache[string, cachedTrace]
	metrics *Metrics

	reloadMu   sync.Mutex
	generation uint64
	hooksMu    sync.RWMutex
	hooks      []ReloadHook
}

// cachedTrace is either a single entry or a prefix page, tagged with the snapshot
// generation it was read from.
type cachedTrace struct {
	entry      *TraceResult
	page       *TracePage
	generation uint64
}

// NewHandle creates a handle for dir. Nothing is loaded until Reload is called.
func NewHandle(dir string, opts Options) (*Handle, error) {
	if opts.PreferredLang == "" {
		opts.PreferredLang = "en"
	}
	if opts.TraceCacheSize <= 0 {
		opts.TraceCacheSize = DefaultTraceCacheSize
	}
	if opts.SearchLimitMax <= 0 {
		opts.SearchLimitMax = DefaultMaxLimit
	}
	cache, err := lru.New[string, cachedTrace](opts.TraceCacheSize)
	if err != nil {
		return nil, err
	}
	m, err := NewMetrics(opts.MeterProvider)
	if err != nil {
		return nil, err
	}
	return &Handle{dir: dir, opts: opts, traces: cache, metrics: m}, nil
}

// Dir returns the index directory served by the handle.
func (h *Handle) Dir() string { return h.dir }

// SearchLimitMax is the largest page size the handle serves.
func (h *Handle) SearchLimitMax() int { return h.opts.SearchLimitMax }

// OnReload registers a hook run after each successful reload.
func (h *Handle) OnReload(hook ReloadHook) {
	h.hooksMu.Lock()
	defer h.hooksMu.Unlock()
	h.hooks = append(h.hooks, hook)
}

// Load builds a new snapshot from the index directory without publishing it.
func (h *Handle) Load(ctx context.Context) (*Snapshot, error) {
	return loadSnapshot(ctx, h.dir, loadOptions{
		preferred: h.opts.PreferredLang,
		secondary: h.opts.SecondaryLang,
		iconBase:  h.opts.IconBase,
		retry:     h.opts.Retry,
	})
}

// Reload loads a new snapshot and swaps it in. On failure the previous snapshot keeps
// serving and the error is returned.
func (h *Handle) Reload(ctx context.Context) (*Snapshot, error) {
	ctx, span := tracer.Start(ctx, "query.Reload", trace.WithAttributes(attribute.String("dir", h.dir)))
	defer span.End()

	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	start := time.Now()
	s, err := h.Load(ctx)
	h.metrics.recordRequest(ctx, OpReload, err)
	if err != nil {
		span.RecordError(err)
		slogger.ErrorWithError(ctx, err, "Snapshot reload failed", slogger.Field("dir", h.dir))
		return nil, common.WrapServiceError(common.OpReloadSnapshot, err)
	}

	h.generation++
	s.generation = h.generation
	prev := h.current.Swap(s)
	h.traces.Purge()

	fields := slogger.Fields{
		"snapshot_id": s.ID,
		"items":       len(s.Catalog.Items),
		"traces":      len(s.Traces),
		"degraded":    s.Degraded.Any(),
	}
	if prev != nil {
		fields["previous_snapshot_id"] = prev.ID
	}
	slogger.Performance(ctx, OpReload, time.Since(start), fields)

	h.hooksMu.RLock()
	hooks := append([]ReloadHook(nil), h.hooks...)
	h.hooksMu.RUnlock()
	for _, hook := range hooks {
		hook(ctx, s)
	}
	return s, nil
}

// Snapshot returns the current snapshot, or domain.ErrCatalogNotLoaded.
func (h *Handle) Snapshot() (*Snapshot, error) {
	s := h.current.Load()
	if s == nil {
		return nil, domain.ErrCatalogNotLoaded
	}
	return s, nil
}

// observe wraps one query operation with a span and the request counter.
func (h *Handle) observe(ctx context.Context, op string, fn func(ctx context.Context, s *Snapshot) error) error {
	ctx, span := tracer.Start(ctx, "query."+op)
	defer span.End()

	s, err := h.Snapshot()
	if err == nil {
		span.SetAttributes(attribute.String("snapshot_id", s.ID))
		err = fn(ctx, s)
	}
	if err != nil {
		span.RecordError(err)
	}
	h.metrics.recordRequest(ctx, op, err)
	return err
}
