package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"scriptdex/internal/application/dto"
)

const (
	// DefaultPollInterval is the time between health checks while waiting.
	DefaultPollInterval = 2 * time.Second

	// DefaultMaxWait bounds how long WaitForSnapshot waits.
	DefaultMaxWait = 5 * time.Minute
)

// ErrPollingTimeout is returned when the server does not serve a new snapshot in time.
var ErrPollingTimeout = errors.New("polling timeout exceeded")

const progressStatusPolling = "polling"

// PollerConfig configures a Poller. Zero fields use the defaults.
type PollerConfig struct {
	Interval time.Duration
	MaxWait  time.Duration
}

// Poller waits for a server to pick up a rebuilt index.
type Poller struct {
	client   *Client
	interval time.Duration
	maxWait  time.Duration
}

// NewPoller creates a Poller for client.
func NewPoller(client *Client, config *PollerConfig) (*Poller, error) {
	if client == nil {
		return nil, errors.New("client cannot be nil")
	}
	p := &Poller{client: client, interval: DefaultPollInterval, maxWait: DefaultMaxWait}
	if config != nil {
		if config.Interval > 0 {
			p.interval = config.Interval
		}
		if config.MaxWait > 0 {
			p.maxWait = config.MaxWait
		}
	}
	return p, nil
}

// WaitForSnapshot polls /health until the server is serving a snapshot whose id differs
// from since. An empty since accepts any loaded snapshot. Connection errors are retried
// until the deadline. Each unsuccessful poll writes one JSON progress line to
// progressWriter.
func (p *Poller) WaitForSnapshot(ctx context.Context, since string, progressWriter io.Writer) (*dto.HealthResponse, error) {
	start := time.Now()
	var last *dto.HealthResponse
	for polls := 1; ; polls++ {
		health, err := p.client.Health(ctx)
		if err == nil {
			last = health
			if Serving(health) && health.SnapshotID != since {
				return health, nil
			}
		}

		progress := map[string]interface{}{
			"status":     progressStatusPolling,
			"elapsed":    time.Since(start).Round(time.Millisecond).String(),
			"poll_count": polls,
		}
		if err != nil {
			progress["error"] = err.Error()
		} else {
			progress["server_status"] = health.Status
			progress["snapshot_id"] = health.SnapshotID
		}
		_ = json.NewEncoder(progressWriter).Encode(progress)

		if time.Since(start) >= p.maxWait {
			return last, ErrPollingTimeout
		}
		select {
		case <-ctx.Done():
			return last, fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-time.After(p.interval):
		}
	}
}

// Serving reports whether health describes a server with a loaded snapshot.
func Serving(health *dto.HealthResponse) bool {
	return health != nil && health.SnapshotID != "" && health.Status != string(dto.HealthStatusUnhealthy)
}
