package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapServiceError(t *testing.T) {
	t.Run("nil error stays nil", func(t *testing.T) {
		assert.NoError(t, WrapServiceError(OpWriteArtifact, nil))
	})

	t.Run("wraps cause with operation", func(t *testing.T) {
		cause := errors.New("disk full")
		err := WrapServiceError(OpWriteArtifact, fmt.Errorf("%s: %w", "data/index/x.json", cause))

		require.Error(t, err)
		assert.Equal(t, "failed to write artifact: data/index/x.json: disk full", err.Error())
		assert.ErrorIs(t, err, cause)

		var serviceErr ServiceError
		require.ErrorAs(t, err, &serviceErr)
		assert.Equal(t, OpWriteArtifact, serviceErr.Operation)
	})
}
