package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptdex/internal/adapter/outbound/extractor"
	"scriptdex/internal/domain/valueobject"
)

func TestDefault_HasEveryKind(t *testing.T) {
	r := Default()
	assert.Equal(t, valueobject.AllExtractorKinds(), r.Kinds())
	for _, k := range valueobject.AllExtractorKinds() {
		e, ok := r.Get(k)
		require.True(t, ok, k)
		assert.Equal(t, k, e.Kind())
	}
}

func TestSelect(t *testing.T) {
	r := Default()
	got, err := r.Select(valueobject.ExtractorTuning, valueobject.ExtractorPrefab)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, valueobject.ExtractorTuning, got[0].Kind())
	assert.Equal(t, valueobject.ExtractorPrefab, got[1].Kind())

	_, err = NewExtractorRegistry().Select(valueobject.ExtractorLoot)
	assert.Error(t, err)
}

func TestRegister_Duplicate(t *testing.T) {
	r := NewExtractorRegistry()
	r.Register(extractor.NewLootExtractor())
	assert.Panics(t, func() { r.Register(extractor.NewLootExtractor()) })
	assert.Panics(t, func() { r.Register(nil) })
}
