package surrealdb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/interfaces"
	"github.com/bobmcallan/vire-recon/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// SnapshotStore persists snapshots in the snapshot table. The full snapshot
// is kept as a JSON string so decimal amounts survive the CBOR round trip;
// the summary columns are duplicated for listing.
type SnapshotStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

type snapshotRecord struct {
	SnapshotID  string    `json:"snapshot_id"`
	SnapshotRef string    `json:"snapshot_ref"`
	RunAt       time.Time `json:"run_at"`
	Total       string    `json:"total"`
	Match       bool      `json:"match"`
	Status      string    `json:"status"`
	Data        string    `json:"data,omitempty"`
}

func NewSnapshotStore(db *surrealdb.DB, logger *common.Logger) *SnapshotStore {
	return &SnapshotStore{db: db, logger: logger}
}

func (s *SnapshotStore) SaveSnapshot(ctx context.Context, snapshot *models.Snapshot) error {
	if snapshot == nil || snapshot.ID == "" {
		return fmt.Errorf("snapshot id is required")
	}
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	rec := snapshotRecord{
		SnapshotID:  snapshot.ID,
		SnapshotRef: snapshot.SnapshotRef,
		RunAt:       snapshot.RunAt.UTC(),
		Total:       snapshot.Total.String(),
		Match:       snapshot.Reconciliation.Match,
		Status:      snapshot.Reconciliation.Status,
		Data:        string(data),
	}
	sql := "UPSERT $rid CONTENT $record"
	vars := map[string]any{"rid": surrealmodels.NewRecordID("snapshot", snapshot.ID), "record": rec}

	if _, err := surrealdb.Query[[]snapshotRecord](ctx, s.db, sql, vars); err != nil {
		return fmt.Errorf("failed to save snapshot %s: %w", snapshot.ID, err)
	}
	s.logger.Debug().Str("id", snapshot.ID).Str("snapshot_ref", snapshot.SnapshotRef).Msg("Snapshot saved")
	return nil
}

func (s *SnapshotStore) GetSnapshot(ctx context.Context, id string) (*models.Snapshot, error) {
	rec, err := surrealdb.Select[snapshotRecord](ctx, s.db, surrealmodels.NewRecordID("snapshot", id))
	if err != nil && !isNotFoundError(err) {
		return nil, fmt.Errorf("failed to select snapshot %s: %w", id, err)
	}
	if rec == nil || rec.Data == "" {
		return nil, fmt.Errorf("%w: %s", interfaces.ErrSnapshotNotFound, id)
	}

	var snapshot models.Snapshot
	if err := json.Unmarshal([]byte(rec.Data), &snapshot); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", id, err)
	}
	return &snapshot, nil
}

func (s *SnapshotStore) ListSnapshots(ctx context.Context) ([]models.SnapshotSummary, error) {
	sql := "SELECT snapshot_id, snapshot_ref, run_at, total, match, status FROM snapshot ORDER BY run_at DESC, snapshot_id DESC"
	results, err := surrealdb.Query[[]snapshotRecord](ctx, s.db, sql, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}

	var summaries []models.SnapshotSummary
	if results != nil && len(*results) > 0 {
		for _, rec := range (*results)[0].Result {
			total, err := decimal.NewFromString(rec.Total)
			if err != nil {
				s.logger.Warn().Str("id", rec.SnapshotID).Str("total", rec.Total).Msg("Unreadable snapshot total")
			}
			summaries = append(summaries, models.SnapshotSummary{
				ID:          rec.SnapshotID,
				SnapshotRef: rec.SnapshotRef,
				RunAt:       rec.RunAt,
				Total:       total,
				Match:       rec.Match,
				Status:      rec.Status,
			})
		}
	}
	return summaries, nil
}

// Compile-time check
var _ interfaces.SnapshotStore = (*SnapshotStore)(nil)
