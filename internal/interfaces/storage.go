package interfaces

import (
	"context"
	"errors"

	"github.com/bobmcallan/vire-recon/internal/models"
)

// ErrSnapshotNotFound is returned when a snapshot id is not stored
var ErrSnapshotNotFound = errors.New("snapshot not found")

// StorageManager coordinates the storage backends
type StorageManager interface {
	SnapshotStore() SnapshotStore
	OverrideStore() OverrideStore

	// WriteRaw writes binary data (charts) under a subdirectory atomically.
	// Returns the path written.
	WriteRaw(subdir, key string, data []byte) (string, error)

	Close() error
}

// SnapshotStore persists reconciliation snapshots
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error
	GetSnapshot(ctx context.Context, id string) (*models.Snapshot, error)
	// ListSnapshots returns summaries, newest first
	ListSnapshots(ctx context.Context) ([]models.SnapshotSummary, error)
}

// OverrideStore persists manual classification overrides keyed by symbol
type OverrideStore interface {
	SaveOverride(ctx context.Context, rec *models.ClassificationRecord) error
	GetOverrides(ctx context.Context) (map[string]*models.ClassificationRecord, error)
	DeleteOverride(ctx context.Context, symbol string) error
}
