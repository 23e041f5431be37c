package client_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptdex/internal/client"
)

func TestWriteEnvelopes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, client.WriteSuccess(&buf, map[string]int{"count": 2}))
	var ok client.Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &ok))
	assert.True(t, ok.Success)
	assert.Nil(t, ok.Error)
	assert.False(t, ok.Timestamp.IsZero())
	assert.NotContains(t, buf.String(), `"error"`)

	buf.Reset()
	require.NoError(t, client.WriteError(&buf, "ITEM_NOT_FOUND", "item not found", nil))
	var failed client.Response
	require.NoError(t, json.Unmarshal(buf.Bytes(), &failed))
	assert.False(t, failed.Success)
	require.NotNil(t, failed.Error)
	assert.Equal(t, "ITEM_NOT_FOUND", failed.Error.Code)
	assert.NotContains(t, buf.String(), `"data"`)
}
