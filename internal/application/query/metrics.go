package query

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Metric names of the query layer.
const (
	RequestsCounterName       = "scriptdex_query_requests_total"
	TraceCacheHitsCounterName = "scriptdex_trace_cache_hits_total"
)

// Attribute keys for query metrics.
const (
	AttrOperation = "operation"
	AttrOutcome   = "outcome"
)

// Query operations, used as the operation attribute and as span names.
const (
	OpSearch          = "search"
	OpIndex           = "index"
	OpItem            = "item"
	OpTrace           = "trace"
	OpTracePrefix     = "trace_prefix"
	OpI18n            = "i18n"
	OpMeta            = "meta"
	OpCookingExplore  = "cooking_explore"
	OpCookingSimulate = "cooking_simulate"
	OpFarmingPlan     = "farming_plan"
	OpFarmingSimulate = "farming_simulate"
	OpReload          = "reload"
)

// Metrics records query measurements.
type Metrics struct {
	requests  metric.Int64Counter
	cacheHits metric.Int64Counter
}

// NewMetrics creates query metrics on provider. A nil provider records nothing.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	if provider == nil {
		provider = noop.NewMeterProvider()
	}
	meter := provider.Meter("scriptdex/query")

	requests, err := meter.Int64Counter(RequestsCounterName,
		metric.WithDescription("Query layer operations by outcome"),
	)
	if err != nil {
		return nil, err
	}

	cacheHits, err := meter.Int64Counter(TraceCacheHitsCounterName,
		metric.WithDescription("Trace lookups served from the LRU cache"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{requests: requests, cacheHits: cacheHits}, nil
}

func (m *Metrics) recordRequest(ctx context.Context, op string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.requests.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrOperation, op),
		attribute.String(AttrOutcome, outcome),
	))
}

func (m *Metrics) recordCacheHit(ctx context.Context, op string) {
	if m == nil {
		return
	}
	m.cacheHits.Add(ctx, 1, metric.WithAttributes(attribute.String(AttrOperation, op)))
}
