// Package report renders reconciliation snapshots as charts and summaries
package report

import (
	"context"
	"fmt"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/interfaces"
	"github.com/bobmcallan/vire-recon/internal/models"
)

// Compile-time interface check
var _ interfaces.ReportService = (*Service)(nil)

// Service implements ReportService
type Service struct {
	storage interfaces.StorageManager
	logger  *common.Logger
}

// NewService creates a new report service
func NewService(storage interfaces.StorageManager, logger *common.Logger) *Service {
	return &Service{storage: storage, logger: logger}
}

// RenderChart returns the allocation pie as PNG bytes
func (s *Service) RenderChart(snapshot *models.Snapshot) ([]byte, error) {
	return RenderAllocationChart(snapshot)
}

// SaveChart renders the allocation chart and writes it to storage under charts/
func (s *Service) SaveChart(ctx context.Context, snapshot *models.Snapshot) (string, error) {
	png, err := RenderAllocationChart(snapshot)
	if err != nil {
		return "", err
	}
	path, err := s.storage.WriteRaw("charts", snapshot.ID+".png", png)
	if err != nil {
		return "", fmt.Errorf("failed to store chart for %s: %w", snapshot.ID, err)
	}
	s.logger.Info().Str("id", snapshot.ID).Str("path", path).Int("bytes", len(png)).Msg("Allocation chart saved")
	return path, nil
}

// Summary returns the markdown summary of a snapshot
func (s *Service) Summary(snapshot *models.Snapshot) string {
	return formatSummary(snapshot)
}
