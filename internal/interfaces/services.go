package interfaces

import (
	"context"

	"github.com/bobmcallan/vire-recon/internal/models"
)

// ReconcileService runs the pipeline and manages its persisted results
type ReconcileService interface {
	// Run executes one reconciliation and persists the snapshot
	Run(ctx context.Context, input *models.RunInput) (*models.Snapshot, error)

	GetSnapshot(ctx context.Context, id string) (*models.Snapshot, error)
	ListSnapshots(ctx context.Context) ([]models.SnapshotSummary, error)

	// SaveOverride stores a manual classification applied before any lookup
	SaveOverride(ctx context.Context, rec *models.ClassificationRecord) error
	ListOverrides(ctx context.Context) (map[string]*models.ClassificationRecord, error)
	DeleteOverride(ctx context.Context, symbol string) error
}

// ReportService renders snapshots for presentation consumers
type ReportService interface {
	// RenderChart returns a PNG of the bucket allocation
	RenderChart(snapshot *models.Snapshot) ([]byte, error)

	// SaveChart renders the chart and writes it to storage, returning its path
	SaveChart(ctx context.Context, snapshot *models.Snapshot) (string, error)

	// Summary returns a markdown allocation and reconciliation summary
	Summary(snapshot *models.Snapshot) string
}
