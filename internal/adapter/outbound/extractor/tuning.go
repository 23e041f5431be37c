package extractor

import (
	"context"

	"scriptdex/internal/adapter/outbound/tuning"
	"scriptdex/internal/domain/entity"
	"scriptdex/internal/domain/valueobject"
)

const tuningPath = "scripts/tuning.lua"

// TuningExtractor reads the raw TUNING table.
type TuningExtractor struct{}

// NewTuningExtractor creates the tuning extractor.
func NewTuningExtractor() *TuningExtractor { return &TuningExtractor{} }

// Kind implements Extractor.
func (e *TuningExtractor) Kind() valueobject.ExtractorKind { return valueobject.ExtractorTuning }

// Extract implements Extractor. A corpus without tuning.lua yields an empty table and
// an unresolved record; every TUNING reference then stays unresolved downstream.
func (e *TuningExtractor) Extract(ctx context.Context, in Input) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	res := newResult(e.Kind())
	content, ok := readOptional(in, tuningPath)
	if !ok {
		res.Tuning = tuning.NewTable()
		res.unresolved(e.Kind(), tuningPath, "", entity.ReasonParseError, "missing")
		return res.finish(0, 0), nil
	}
	res.Tuning = tuning.Parse(content)
	return res.finish(1, res.Tuning.Len()), nil
}
