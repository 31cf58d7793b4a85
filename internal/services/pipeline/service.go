package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/interfaces"
	"github.com/bobmcallan/vire-recon/internal/models"
)

// ErrInvalidOverride is returned when a manual classification is incomplete
var ErrInvalidOverride = errors.New("invalid classification override")

// Compile-time interface check
var _ interfaces.ReconcileService = (*Service)(nil)

// Service runs the pipeline against stored overrides and persists results
type Service struct {
	pipeline *Pipeline
	storage  interfaces.StorageManager
	logger   *common.Logger
}

// NewService creates a new reconcile service
func NewService(pipeline *Pipeline, storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{
		pipeline: pipeline,
		storage:  storage,
		logger:   logger,
	}
}

// Run loads manual overrides, runs the pipeline and saves the snapshot
func (s *Service) Run(ctx context.Context, input *models.RunInput) (*models.Snapshot, error) {
	overrides, err := s.storage.OverrideStore().GetOverrides(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load classification overrides: %w", err)
	}

	snapshot, err := s.pipeline.Run(ctx, input, overrides)
	if err != nil {
		return nil, err
	}

	if err := s.storage.SnapshotStore().SaveSnapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("failed to save snapshot %s: %w", snapshot.ID, err)
	}
	return snapshot, nil
}

// GetSnapshot returns a stored snapshot
func (s *Service) GetSnapshot(ctx context.Context, id string) (*models.Snapshot, error) {
	return s.storage.SnapshotStore().GetSnapshot(ctx, id)
}

// ListSnapshots returns stored snapshot summaries, newest first
func (s *Service) ListSnapshots(ctx context.Context) ([]models.SnapshotSummary, error) {
	return s.storage.SnapshotStore().ListSnapshots(ctx)
}

// SaveOverride validates and stores a manual classification
func (s *Service) SaveOverride(ctx context.Context, rec *models.ClassificationRecord) error {
	if rec == nil || strings.TrimSpace(rec.Symbol) == "" {
		return fmt.Errorf("%w: symbol is required", ErrInvalidOverride)
	}
	if strings.TrimSpace(rec.Sector) == "" || strings.TrimSpace(rec.IssuerRegion) == "" {
		return fmt.Errorf("%w: sector and issuer_region are required", ErrInvalidOverride)
	}

	out := *rec
	out.Symbol = strings.ToUpper(strings.TrimSpace(rec.Symbol))
	out.Source = models.SourceManual
	out.Confidence = 1
	out.UpdatedAt = time.Now().UTC()

	if err := s.storage.OverrideStore().SaveOverride(ctx, &out); err != nil {
		return fmt.Errorf("failed to save override for %s: %w", out.Symbol, err)
	}
	s.logger.Info().Str("symbol", out.Symbol).Str("sector", out.Sector).Msg("Classification override saved")
	return nil
}

// ListOverrides returns all stored overrides keyed by symbol
func (s *Service) ListOverrides(ctx context.Context) (map[string]*models.ClassificationRecord, error) {
	return s.storage.OverrideStore().GetOverrides(ctx)
}

// DeleteOverride removes a stored override
func (s *Service) DeleteOverride(ctx context.Context, symbol string) error {
	return s.storage.OverrideStore().DeleteOverride(ctx, strings.ToUpper(strings.TrimSpace(symbol)))
}
