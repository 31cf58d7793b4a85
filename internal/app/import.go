package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/interfaces"
	"github.com/bobmcallan/vire-recon/internal/models"
)

// ReadRunInput reads a run request from a JSON file. Numbers are kept as
// json.Number so amounts reach the normalizer without float rounding.
func ReadRunInput(filePath string) (*models.RunInput, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file %s: %w", filePath, err)
	}
	defer f.Close()

	var input models.RunInput
	dec := json.NewDecoder(f)
	dec.UseNumber()
	if err := dec.Decode(&input); err != nil {
		return nil, fmt.Errorf("failed to parse input file %s: %w", filePath, err)
	}
	return &input, nil
}

type importOverridesFile struct {
	Overrides []importOverride `json:"overrides"`
}

type importOverride struct {
	Symbol         string `json:"symbol"`
	Sector         string `json:"sector"`
	Industry       string `json:"industry"`
	IssuerRegion   string `json:"issuer_region"`
	ListingCountry string `json:"listing_country"`
	AssetType      string `json:"asset_type"`
}

// ImportOverridesFromFile reads a manual classification file and stores each
// entry. Symbols that already have an override are skipped unless replace is set.
// Returns (imported count, skipped count, error).
func ImportOverridesFromFile(ctx context.Context, svc interfaces.ReconcileService, logger *common.Logger, filePath string, replace bool) (int, int, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read overrides file %s: %w", filePath, err)
	}

	var file importOverridesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return 0, 0, fmt.Errorf("failed to parse overrides file %s: %w", filePath, err)
	}

	existing, err := svc.ListOverrides(ctx)
	if err != nil {
		return 0, 0, err
	}

	imported, skipped := 0, 0
	for _, o := range file.Overrides {
		symbol := strings.ToUpper(strings.TrimSpace(o.Symbol))
		if symbol == "" {
			skipped++
			continue
		}
		if _, ok := existing[symbol]; ok && !replace {
			skipped++
			continue
		}
		rec := &models.ClassificationRecord{
			Symbol:         symbol,
			Sector:         o.Sector,
			Industry:       o.Industry,
			IssuerRegion:   o.IssuerRegion,
			ListingCountry: o.ListingCountry,
			AssetType:      o.AssetType,
		}
		if err := svc.SaveOverride(ctx, rec); err != nil {
			logger.Warn().Err(err).Str("symbol", symbol).Msg("Failed to save override during import")
			skipped++
			continue
		}
		logger.Info().Str("symbol", symbol).Str("sector", o.Sector).Msg("Override imported")
		imported++
	}
	return imported, skipped, nil
}
