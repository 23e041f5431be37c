package dto

import (
	"time"

	"scriptdex/internal/application/query"
)

// ReloadResponse describes the snapshot that is serving after POST /admin/reload.
type ReloadResponse struct {
	SnapshotID string         `json:"snapshot_id"`
	LoadedAt   time.Time      `json:"loaded_at"`
	Degraded   query.Degraded `json:"degraded"`
}
