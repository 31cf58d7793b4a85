package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/models"
)

type stubEODHD struct{}

func (stubEODHD) GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error) {
	return &models.Fundamentals{Ticker: ticker}, nil
}

type stubGemini struct{}

func (stubGemini) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return "{}", nil
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := common.NewDefaultConfig()
	cfg.Storage.Path = t.TempDir()
	a, err := NewAppWithConfig(cfg, common.NewSilentLogger())
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestNewAppWithConfig_NoKeys(t *testing.T) {
	a := newTestApp(t)

	assert.NotNil(t, a.Storage)
	assert.NotNil(t, a.ReconcileService)
	assert.NotNil(t, a.ReportService)
	assert.Nil(t, a.EODHDClient)
	assert.Nil(t, a.GeminiClient)
	assert.Empty(t, a.Lookups)
	assert.False(t, a.StartupTime.IsZero())
}

func TestBuildLookups_Order(t *testing.T) {
	cfg := common.NewDefaultConfig()

	lookups := buildLookups(cfg, stubEODHD{}, stubGemini{})
	require.Len(t, lookups, 2)
	assert.Equal(t, string(models.SourceMarketData), lookups[0].Name())
	assert.Equal(t, string(models.SourceSemantic), lookups[1].Name())

	cfg.Classify.UseMarketData = false
	lookups = buildLookups(cfg, stubEODHD{}, nil)
	assert.Empty(t, lookups)
}

func TestReadRunInput_RunsEndToEnd(t *testing.T) {
	a := newTestApp(t)
	path := writeFile(t, "input.json", `{
		"snapshot_ref": "2025-06-30",
		"expected_total": 11880,
		"holdings": [
			{"Symbol": "XBB", "Name": "iShares Core Canadian Universe Bond Index ETF", "Currency": "CAD", "Market_Value": 10000},
			{"Symbol": "AAPL", "Name": "Apple Inc", "Currency": "USD", "Market_Value": 1000, "Market_Value_CAD": 1380}
		],
		"cash_balances": [
			{"account_name": "Chequing", "category": "brokerage_cash", "currency": "CAD", "amount": "$500.00"}
		]
	}`)

	input, err := ReadRunInput(path)
	require.NoError(t, err)
	require.NotNil(t, input.ExpectedTotal)

	snap, err := a.ReconcileService.Run(context.Background(), input)
	require.NoError(t, err)
	assert.True(t, snap.Reconciliation.Match)
	assert.Equal(t, "11880", snap.Total.String())
}

func TestReadRunInput_Errors(t *testing.T) {
	_, err := ReadRunInput(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = ReadRunInput(writeFile(t, "bad.json", "{not json"))
	assert.Error(t, err)
}

func TestImportOverridesFromFile(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()
	path := writeFile(t, "overrides.json", `{"overrides": [
		{"symbol": "tih", "sector": "Capital Goods", "issuer_region": "Canada"},
		{"symbol": "", "sector": "Energy", "issuer_region": "Canada"},
		{"symbol": "ENB", "sector": "Energy"}
	]}`)

	imported, skipped, err := ImportOverridesFromFile(ctx, a.ReconcileService, a.Logger, path, false)
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 2, skipped, "empty symbol and missing region")

	imported, skipped, err = ImportOverridesFromFile(ctx, a.ReconcileService, a.Logger, path, false)
	require.NoError(t, err)
	assert.Equal(t, 0, imported)
	assert.Equal(t, 3, skipped)

	overrides, err := a.ReconcileService.ListOverrides(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Capital Goods", overrides["TIH"].Sector)
}
