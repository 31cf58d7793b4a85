package surrealdb

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/interfaces"
	"github.com/bobmcallan/vire-recon/internal/models"
	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"
)

// OverrideStore keeps manual classifications in the classification_override
// table, one record per upper-cased symbol.
type OverrideStore struct {
	db     *surrealdb.DB
	logger *common.Logger
}

type overrideRecord struct {
	Symbol string `json:"symbol"`
	Data   string `json:"data"`
}

func NewOverrideStore(db *surrealdb.DB, logger *common.Logger) *OverrideStore {
	return &OverrideStore{db: db, logger: logger}
}

// overrideID makes a symbol safe as a record id (HISU.U -> HISU_U)
func overrideID(symbol string) string {
	return strings.NewReplacer(".", "_", "/", "_", "-", "_").Replace(strings.ToUpper(symbol))
}

func (s *OverrideStore) SaveOverride(ctx context.Context, rec *models.ClassificationRecord) error {
	stored := *rec
	stored.Symbol = strings.ToUpper(rec.Symbol)
	data, err := json.Marshal(&stored)
	if err != nil {
		return fmt.Errorf("failed to marshal override: %w", err)
	}

	sql := "UPSERT $rid CONTENT $record"
	vars := map[string]any{
		"rid":    surrealmodels.NewRecordID("classification_override", overrideID(stored.Symbol)),
		"record": overrideRecord{Symbol: stored.Symbol, Data: string(data)},
	}

	var lastErr error
	for attempt := 1; attempt <= 3; attempt++ {
		_, err := surrealdb.Query[[]overrideRecord](ctx, s.db, sql, vars)
		if err == nil {
			s.logger.Debug().Str("symbol", stored.Symbol).Msg("Override saved")
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("failed to save override after retries: %w", lastErr)
}

func (s *OverrideStore) GetOverrides(ctx context.Context) (map[string]*models.ClassificationRecord, error) {
	results, err := surrealdb.Query[[]overrideRecord](ctx, s.db, "SELECT symbol, data FROM classification_override", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}

	overrides := make(map[string]*models.ClassificationRecord)
	if results != nil && len(*results) > 0 {
		for _, r := range (*results)[0].Result {
			var rec models.ClassificationRecord
			if err := json.Unmarshal([]byte(r.Data), &rec); err != nil {
				s.logger.Warn().Str("symbol", r.Symbol).Err(err).Msg("Skipping unreadable override")
				continue
			}
			overrides[r.Symbol] = &rec
		}
	}
	return overrides, nil
}

func (s *OverrideStore) DeleteOverride(ctx context.Context, symbol string) error {
	rid := surrealmodels.NewRecordID("classification_override", overrideID(symbol))
	deleted, err := surrealdb.Delete[overrideRecord](ctx, s.db, rid)
	if err != nil && !isNotFoundError(err) {
		return fmt.Errorf("failed to delete override %s: %w", symbol, err)
	}
	if deleted == nil || deleted.Symbol == "" {
		return fmt.Errorf("override for %s: %w", strings.ToUpper(symbol), interfaces.ErrNotFound)
	}
	return nil
}

// Compile-time check
var _ interfaces.OverrideStore = (*OverrideStore)(nil)
