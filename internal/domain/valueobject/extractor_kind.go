package valueobject

import (
	"fmt"
	"sort"
)

// ExtractorKind names one domain extractor in the build registry.
type ExtractorKind string

// Extractor kind constants.
const (
	ExtractorPrefab     ExtractorKind = "prefab"
	ExtractorCraft      ExtractorKind = "craft"
	ExtractorCooking    ExtractorKind = "cooking"
	ExtractorIngredient ExtractorKind = "ingredient"
	ExtractorComponent  ExtractorKind = "component"
	ExtractorTuning     ExtractorKind = "tuning"
	ExtractorFarming    ExtractorKind = "farming"
	ExtractorStrings    ExtractorKind = "strings"
	ExtractorIcons      ExtractorKind = "icons"
	ExtractorLoot       ExtractorKind = "loot"
)

var validExtractorKinds = map[ExtractorKind]bool{
	ExtractorPrefab:     true,
	ExtractorCraft:      true,
	ExtractorCooking:    true,
	ExtractorIngredient: true,
	ExtractorComponent:  true,
	ExtractorTuning:     true,
	ExtractorFarming:    true,
	ExtractorStrings:    true,
	ExtractorIcons:      true,
	ExtractorLoot:       true,
}

// NewExtractorKind creates an ExtractorKind with validation.
func NewExtractorKind(kind string) (ExtractorKind, error) {
	k := ExtractorKind(kind)
	if !validExtractorKinds[k] {
		return "", fmt.Errorf("invalid extractor kind: %s", kind)
	}
	return k, nil
}

// String returns the string representation of the kind.
func (k ExtractorKind) String() string {
	return string(k)
}

// AllExtractorKinds returns every extractor kind in sorted order.
func AllExtractorKinds() []ExtractorKind {
	kinds := make([]ExtractorKind, 0, len(validExtractorKinds))
	for kind := range validExtractorKinds {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
