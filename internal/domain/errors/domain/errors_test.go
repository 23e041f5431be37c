package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors_WrapAndMatch(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		expectedMsg string
	}{
		{name: "no_source_corpus", err: ErrNoSourceCorpus, expectedMsg: "no source corpus found"},
		{name: "item_not_found", err: ErrItemNotFound, expectedMsg: "item not found"},
		{name: "trace_not_found", err: ErrTraceNotFound, expectedMsg: "trace key not found"},
		{name: "catalog_not_loaded", err: ErrCatalogNotLoaded, expectedMsg: "catalog is not loaded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedMsg, tt.err.Error())

			wrapped := fmt.Errorf("step failed: %w", tt.err)
			assert.True(t, errors.Is(wrapped, tt.err))
			assert.Contains(t, wrapped.Error(), tt.expectedMsg)
		})
	}
}
