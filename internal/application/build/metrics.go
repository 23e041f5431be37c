package build

import (
	"context"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"

	"scriptdex/internal/domain/entity"
)

// Metric names of the build pipeline.
const (
	ExtractFilesCounterName      = "scriptdex_extract_files_total"
	ExtractUnresolvedCounterName = "scriptdex_extract_unresolved_total"
	StepDurationHistogramName    = "scriptdex_build_step_duration_seconds"
)

// Attribute keys for build metrics.
const (
	AttrExtractor = "extractor"
	AttrStep      = "step"
	AttrSkipped   = "skipped"
)

// Metrics records extractor and step measurements.
type Metrics struct {
	filesCounter      metric.Int64Counter
	unresolvedCounter metric.Int64Counter
	stepHistogram     metric.Float64Histogram
	reader            *sdkmetric.ManualReader
}

// NewMetrics creates build metrics on provider.
func NewMetrics(provider metric.MeterProvider) (*Metrics, error) {
	meter := provider.Meter("scriptdex/build")

	filesCounter, err := meter.Int64Counter(ExtractFilesCounterName,
		metric.WithDescription("Script files read by extractors"),
	)
	if err != nil {
		return nil, err
	}

	unresolvedCounter, err := meter.Int64Counter(ExtractUnresolvedCounterName,
		metric.WithDescription("Records extractors could not normalize"),
	)
	if err != nil {
		return nil, err
	}

	stepHistogram, err := meter.Float64Histogram(StepDurationHistogramName,
		metric.WithDescription("Build step duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		filesCounter:      filesCounter,
		unresolvedCounter: unresolvedCounter,
		stepHistogram:     stepHistogram,
	}, nil
}

// NewManualMetrics creates build metrics backed by a ManualReader, so a command can
// collect and print them when the build ends.
func NewManualMetrics(serviceVersion string) (*Metrics, error) {
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			attribute.String("service.name", entity.ToolName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)

	m, err := NewMetrics(provider)
	if err != nil {
		return nil, err
	}
	m.reader = reader
	return m, nil
}

// RecordExtract records one extractor run.
func (m *Metrics) RecordExtract(ctx context.Context, kind string, s entity.ExtractSummary) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String(AttrExtractor, kind))
	m.filesCounter.Add(ctx, int64(s.Files), attrs)
	m.unresolvedCounter.Add(ctx, int64(s.Unresolved), attrs)
}

// RecordStep records the duration of one build step.
func (m *Metrics) RecordStep(ctx context.Context, step string, d time.Duration, skipped bool) {
	if m == nil {
		return
	}
	m.stepHistogram.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String(AttrStep, step),
		attribute.Bool(AttrSkipped, skipped),
	))
}

// StepTiming is the collected total duration of one step.
type StepTiming struct {
	Step    string
	Seconds float64
	Count   uint64
}

// Collected holds the metrics read back from the manual reader.
type Collected struct {
	Steps      []StepTiming
	Files      map[string]int64
	Unresolved map[string]int64
}

// Collect reads the current metric values. It returns an empty result when the metrics
// were not created with NewManualMetrics.
func (m *Metrics) Collect(ctx context.Context) (*Collected, error) {
	out := &Collected{Files: map[string]int64{}, Unresolved: map[string]int64{}}
	if m == nil || m.reader == nil {
		return out, nil
	}
	var data metricdata.ResourceMetrics
	if err := m.reader.Collect(ctx, &data); err != nil {
		return nil, err
	}

	steps := map[string]*StepTiming{}
	for _, sm := range data.ScopeMetrics {
		for _, md := range sm.Metrics {
			switch md.Name {
			case StepDurationHistogramName:
				hist, ok := md.Data.(metricdata.Histogram[float64])
				if !ok {
					continue
				}
				for _, dp := range hist.DataPoints {
					name, _ := dp.Attributes.Value(attribute.Key(AttrStep))
					st := steps[name.AsString()]
					if st == nil {
						st = &StepTiming{Step: name.AsString()}
						steps[st.Step] = st
					}
					st.Seconds += dp.Sum
					st.Count += dp.Count
				}
			case ExtractFilesCounterName, ExtractUnresolvedCounterName:
				sum, ok := md.Data.(metricdata.Sum[int64])
				if !ok {
					continue
				}
				target := out.Files
				if md.Name == ExtractUnresolvedCounterName {
					target = out.Unresolved
				}
				for _, dp := range sum.DataPoints {
					kind, _ := dp.Attributes.Value(attribute.Key(AttrExtractor))
					target[kind.AsString()] += dp.Value
				}
			}
		}
	}
	for _, st := range steps {
		out.Steps = append(out.Steps, *st)
	}
	sort.Slice(out.Steps, func(i, j int) bool { return out.Steps[i].Step < out.Steps[j].Step })
	return out, nil
}
