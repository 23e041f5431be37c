package client_test

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptdex/internal/application/dto"
	"scriptdex/internal/client"
)

func TestNewPoller_NilClient(t *testing.T) {
	_, err := client.NewPoller(nil, nil)
	assert.ErrorContains(t, err, "client cannot be nil")
}

func TestPoller_WaitForSnapshot(t *testing.T) {
	var polls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		switch polls.Add(1) {
		case 1:
			writeJSON(w, http.StatusServiceUnavailable, dto.HealthResponse{Status: "unhealthy"})
		case 2:
			writeJSON(w, http.StatusOK, dto.HealthResponse{Status: "healthy", SnapshotID: "old"})
		default:
			writeJSON(w, http.StatusOK, dto.HealthResponse{Status: "degraded", SnapshotID: "new"})
		}
	})
	p, err := client.NewPoller(c, &client.PollerConfig{Interval: time.Millisecond, MaxWait: 5 * time.Second})
	require.NoError(t, err)

	var progress bytes.Buffer
	health, err := p.WaitForSnapshot(context.Background(), "old", &progress)
	require.NoError(t, err)
	assert.Equal(t, "new", health.SnapshotID)
	assert.Equal(t, int32(3), polls.Load())
	lines := strings.Split(strings.TrimSpace(progress.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"server_status":"unhealthy"`)
	assert.Contains(t, lines[1], `"snapshot_id":"old"`)
}

func TestPoller_Timeout(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, dto.HealthResponse{Status: "healthy", SnapshotID: "same"})
	})
	p, err := client.NewPoller(c, &client.PollerConfig{Interval: time.Millisecond, MaxWait: 20 * time.Millisecond})
	require.NoError(t, err)

	health, err := p.WaitForSnapshot(context.Background(), "same", &bytes.Buffer{})
	assert.ErrorIs(t, err, client.ErrPollingTimeout)
	require.NotNil(t, health)
	assert.Equal(t, "same", health.SnapshotID)
}

func TestPoller_ContextCancelled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusServiceUnavailable, dto.HealthResponse{Status: "unhealthy"})
	})
	p, err := client.NewPoller(c, &client.PollerConfig{Interval: time.Hour})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = p.WaitForSnapshot(ctx, "", &bytes.Buffer{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
