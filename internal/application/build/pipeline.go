package build

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"scriptdex/internal/adapter/outbound/artifact"
	"scriptdex/internal/adapter/outbound/extractor"
	"scriptdex/internal/application/common"
	"scriptdex/internal/application/common/logging"
	"scriptdex/internal/application/common/slogger"
	"scriptdex/internal/application/linker"
	vo "scriptdex/internal/domain/valueobject"
)

// RunOptions tunes one pipeline run.
type RunOptions struct {
	// Force rebuilds artifacts whose source hash is unchanged.
	Force bool

	// Thresholds configure the quality step. Zero means the defaults.
	Thresholds *artifact.QualityThresholds
}

// StepReport is the outcome of one step.
type StepReport struct {
	ID        StepID
	Artifacts []string
	Skipped   bool
	Duration  time.Duration
	Counts    map[string]int
}

// Report is the outcome of a pipeline run.
type Report struct {
	BuildID string
	Steps   []StepReport
	Quality *artifact.QualityReport
	Linked  bool
}

// StepError is a fatal step failure. It renders as "<step> <artifact path>: <cause>".
type StepError struct {
	Step StepID
	Path string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Step, e.Path, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Run executes the given steps in build order. Steps whose artifacts are all present and
// were built from the same corpus hash are skipped unless opts.Force is set. Extractors
// needed by the pending steps run in parallel once, before any step writes.
func Run(ctx context.Context, bc *Context, ids []StepID, opts RunOptions) (*Report, error) {
	tracer := otel.Tracer("scriptdex-build")
	buildID := uuid.New().String()
	ctx = logging.WithBuildID(ctx, buildID)
	ctx, span := tracer.Start(ctx, "Build")
	defer span.End()

	selected, err := orderSteps(ids)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	report := &Report{BuildID: buildID}
	var pending []Step
	for _, s := range selected {
		if reason, skip := skipReason(bc, s, opts.Force); skip {
			report.Steps = append(report.Steps, StepReport{ID: s.ID, Artifacts: artifactPaths(bc, s), Skipped: true})
			slogger.BuildStep(ctx, logging.BuildStepEvent{
				Step:     string(s.ID),
				Artifact: bc.Writer.Store().Path(s.Artifacts[0]),
				Skipped:  true,
				Reason:   reason,
			})
			bc.Metrics.RecordStep(ctx, string(s.ID), 0, true)
			continue
		}
		pending = append(pending, s)
	}
	span.SetAttributes(
		attribute.Int("steps.selected", len(selected)),
		attribute.Int("steps.pending", len(pending)),
	)

	st := &state{thresholds: artifact.DefaultQualityThresholds()}
	if opts.Thresholds != nil {
		st.thresholds = *opts.Thresholds
	}

	if kinds := kindsOf(pending); len(kinds) > 0 {
		results, err := extractAll(ctx, bc, kinds)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		graph, err := linker.Link(ctx, results, linker.Options{
			Classifier: bc.Classifier,
			IconBase:   bc.Config.Build.IconBase,
		})
		if err != nil {
			err = common.WrapServiceError(common.OpLinkGraph, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		st.graph = graph
		report.Linked = true
	}

	for _, s := range pending {
		sr, err := runStep(ctx, bc, s, st)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return report, err
		}
		report.Steps = append(report.Steps, sr)
	}
	sort.SliceStable(report.Steps, func(i, j int) bool {
		return stepIndex(report.Steps[i].ID) < stepIndex(report.Steps[j].ID)
	})
	report.Quality = st.quality
	return report, nil
}

func runStep(ctx context.Context, bc *Context, s Step, st *state) (StepReport, error) {
	ctx, span := otel.Tracer("scriptdex-build").Start(ctx, "Step "+string(s.ID))
	defer span.End()

	start := time.Now()
	counts, err := s.run(ctx, bc, st)
	elapsed := time.Since(start)
	path := bc.Writer.Store().Path(s.Artifacts[0])

	slogger.BuildStep(ctx, logging.BuildStepEvent{
		Step:     string(s.ID),
		Artifact: path,
		Counts:   counts,
		Duration: elapsed,
		Error:    err,
	})
	bc.Metrics.RecordStep(ctx, string(s.ID), elapsed, false)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return StepReport{}, &StepError{Step: s.ID, Path: path, Err: err}
	}
	span.SetAttributes(attribute.String("artifact", path))
	return StepReport{
		ID:        s.ID,
		Artifacts: artifactPaths(bc, s),
		Duration:  elapsed,
		Counts:    counts,
	}, nil
}

// extractAll runs the extractors of kinds in parallel. Wait is the barrier before linking.
func extractAll(ctx context.Context, bc *Context, kinds []vo.ExtractorKind) (linker.Results, error) {
	extractors, err := bc.Registry.Select(kinds...)
	if err != nil {
		return nil, common.WrapServiceError(common.OpExtract, err)
	}

	var mu sync.Mutex
	results := make(linker.Results, len(extractors))
	g, gctx := errgroup.WithContext(ctx)
	for _, e := range extractors {
		g.Go(func() error {
			start := time.Now()
			res, err := e.Extract(gctx, extractorInput(bc))
			event := logging.ExtractorEvent{Kind: string(e.Kind()), Duration: time.Since(start), Error: err}
			if res != nil {
				event.Files = res.Summary.Files
				event.Entities = res.Summary.Entities
				event.Unresolved = res.Summary.Unresolved
			}
			slogger.ExtractorDone(gctx, event)
			if err != nil {
				return common.WrapServiceError(common.OpExtract, fmt.Errorf("%s: %w", e.Kind(), err))
			}
			bc.Metrics.RecordExtract(gctx, string(e.Kind()), res.Summary)

			mu.Lock()
			results[e.Kind()] = res
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func extractorInput(bc *Context) extractor.Input {
	return extractor.Input{Corpus: bc.Corpus, Concurrency: bc.Config.Build.Concurrency}
}

func skipReason(bc *Context, s Step, force bool) (string, bool) {
	if force || s.HashFrom == "" {
		return "", false
	}
	for _, name := range s.Artifacts {
		if !bc.Writer.Store().Exists(name) {
			return "", false
		}
	}
	if !bc.Writer.Meta().UpToDate(s.HashFrom) {
		return "", false
	}
	return "inputs unchanged", true
}

func kindsOf(pending []Step) []vo.ExtractorKind {
	seen := map[vo.ExtractorKind]bool{}
	var out []vo.ExtractorKind
	for _, s := range pending {
		for _, k := range s.Kinds {
			if !seen[k] {
				seen[k] = true
				out = append(out, k)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// orderSteps resolves ids into steps in build order. An empty list selects every step.
func orderSteps(ids []StepID) ([]Step, error) {
	if len(ids) == 0 {
		return Steps(), nil
	}
	want := map[StepID]bool{}
	for _, id := range ids {
		if _, err := lookupStep(id); err != nil {
			return nil, err
		}
		want[id] = true
	}
	var out []Step
	for _, s := range steps {
		if want[s.ID] {
			out = append(out, s)
		}
	}
	return out, nil
}

func stepIndex(id StepID) int {
	for i, s := range steps {
		if s.ID == id {
			return i
		}
	}
	return len(steps)
}

func artifactPaths(bc *Context, s Step) []string {
	out := make([]string, 0, len(s.Artifacts))
	for _, name := range s.Artifacts {
		out = append(out, bc.Writer.Store().Path(name))
	}
	return out
}
