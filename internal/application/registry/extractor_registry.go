// Package registry maps extractor kinds to their implementations for the build pipeline.
package registry

import (
	"fmt"
	"sort"

	"scriptdex/internal/adapter/outbound/extractor"
	"scriptdex/internal/domain/valueobject"
)

// ExtractorRegistry is the explicit table of extractors the build may run.
// It is populated once at startup and read-only afterwards.
type ExtractorRegistry struct {
	extractors map[valueobject.ExtractorKind]extractor.Extractor
}

// NewExtractorRegistry creates an empty registry.
func NewExtractorRegistry() *ExtractorRegistry {
	return &ExtractorRegistry{extractors: make(map[valueobject.ExtractorKind]extractor.Extractor)}
}

// Default returns a registry holding every domain extractor.
func Default() *ExtractorRegistry {
	r := NewExtractorRegistry()
	r.Register(extractor.NewPrefabExtractor())
	r.Register(extractor.NewCraftExtractor())
	r.Register(extractor.NewCookingExtractor())
	r.Register(extractor.NewIngredientExtractor())
	r.Register(extractor.NewComponentExtractor())
	r.Register(extractor.NewTuningExtractor())
	r.Register(extractor.NewFarmingExtractor())
	r.Register(extractor.NewStringsExtractor())
	r.Register(extractor.NewIconsExtractor())
	r.Register(extractor.NewLootExtractor())
	return r
}

// Register adds e. Registering a nil extractor or the same kind twice is a programming
// error and panics.
func (r *ExtractorRegistry) Register(e extractor.Extractor) {
	if e == nil {
		panic("extractor cannot be nil")
	}
	if _, exists := r.extractors[e.Kind()]; exists {
		panic(fmt.Sprintf("extractor %q registered twice", e.Kind()))
	}
	r.extractors[e.Kind()] = e
}

// Get returns the extractor of kind.
func (r *ExtractorRegistry) Get(kind valueobject.ExtractorKind) (extractor.Extractor, bool) {
	e, ok := r.extractors[kind]
	return e, ok
}

// Select returns the extractors for kinds in the given order. Unknown kinds are an error.
func (r *ExtractorRegistry) Select(kinds ...valueobject.ExtractorKind) ([]extractor.Extractor, error) {
	out := make([]extractor.Extractor, 0, len(kinds))
	for _, k := range kinds {
		e, ok := r.extractors[k]
		if !ok {
			return nil, fmt.Errorf("no extractor registered for kind %q", k)
		}
		out = append(out, e)
	}
	return out, nil
}

// Kinds returns the registered kinds sorted.
func (r *ExtractorRegistry) Kinds() []valueobject.ExtractorKind {
	out := make([]valueobject.ExtractorKind, 0, len(r.extractors))
	for k := range r.extractors {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
