package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/interfaces"
	"github.com/bobmcallan/vire-recon/internal/models"
	"github.com/bobmcallan/vire-recon/internal/services/normalize"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// countingLookup answers every symbol and counts calls
type countingLookup struct {
	calls atomic.Int64
}

func (c *countingLookup) Name() string { return "semantic_classifier" }

func (c *countingLookup) Lookup(ctx context.Context, req interfaces.LookupRequest) (*models.ClassificationRecord, error) {
	c.calls.Add(1)
	return &models.ClassificationRecord{
		Sector: "Industrials", IssuerRegion: "Canada", Confidence: 0.85,
		Rationale: "test classifier", Source: models.SourceSemantic,
	}, nil
}

func newTestPipeline(t *testing.T, mutate func(*common.Config), lookups ...interfaces.ClassificationLookup) *Pipeline {
	t.Helper()
	cfg := common.NewDefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	p, err := New(cfg, lookups, common.NewSilentLogger())
	require.NoError(t, err)
	return p
}

// scenarioInput is one CAD bond ETF, one USD equity and one bank balance
func scenarioInput(expected string) *models.RunInput {
	in := &models.RunInput{
		SnapshotRef: "2025-06-30/brokerage",
		Holdings: []any{
			map[string]any{"symbol": "XBB", "name": "iShares Core Canadian Universe Bond Index ETF", "currency": "CAD", "market_value": "10000"},
			map[string]any{"symbol": "AAPL", "name": "Apple Inc", "currency": "USD", "market_value": "1000", "market_value_cad": "1380"},
		},
		CashBalances: []any{
			map[string]any{"account_name": "Chequing", "category": "brokerage_cash", "currency": "CAD", "amount": "500"},
		},
	}
	if expected != "" {
		d := dec(expected)
		in.ExpectedTotal = &d
	}
	return in
}

func TestRun_MatchScenario(t *testing.T) {
	snap, err := newTestPipeline(t, nil).Run(context.Background(), scenarioInput("11880"), nil)
	require.NoError(t, err)

	assert.True(t, snap.BucketTotal(models.BucketFixedIncome).Equal(dec("10000")))
	assert.True(t, snap.BucketTotal(models.BucketEquity).Equal(dec("1380")))
	assert.True(t, snap.BucketTotal(models.BucketCash).Equal(dec("500")))
	assert.True(t, snap.BucketTotal(models.BucketRealEstate).IsZero())
	assert.True(t, snap.Total.Equal(dec("11880")))
	assert.True(t, snap.Reconciliation.Match)
	assert.Equal(t, models.StatusMatched, snap.Reconciliation.Status)
	assert.Len(t, snap.Buckets, 6)
	assert.Len(t, snap.Assignments, 3)
	assert.Equal(t, "CAD", snap.ReportingCurrency)
	assert.NotEmpty(t, snap.ID)
}

func TestRun_MismatchScenario(t *testing.T) {
	snap, err := newTestPipeline(t, nil).Run(context.Background(), scenarioInput("12880"), nil)
	require.NoError(t, err)

	r := snap.Reconciliation
	assert.False(t, r.Match)
	assert.True(t, r.Difference.Equal(dec("1000")))
	assert.Empty(t, r.Adjustments)
	assert.Equal(t, 1, snap.Anomalies[models.AnomalyReconMismatch])
	assert.True(t, snap.Total.Equal(dec("11880")))
}

func TestRun_MismatchWithAdjustmentPolicy(t *testing.T) {
	p := newTestPipeline(t, func(c *common.Config) { c.Reconcile.AllowAdjustment = true })
	snap, err := p.Run(context.Background(), scenarioInput("12880"), nil)
	require.NoError(t, err)

	require.Len(t, snap.Reconciliation.Adjustments, 1)
	assert.Equal(t, "pending benefits data", snap.Reconciliation.Adjustments[0].Source)
	assert.True(t, snap.BucketTotal(models.BucketCash).Equal(dec("1500")))
	assert.True(t, snap.Reconciliation.ComputedTotal.Equal(dec("11880")))
	assert.True(t, snap.Total.Equal(dec("12880")))
	assert.Len(t, snap.Holdings, 2, "no record added or removed")
}

func TestRun_Idempotent(t *testing.T) {
	lookup := &countingLookup{}
	p := newTestPipeline(t, nil, lookup)
	input := scenarioInput("11880")
	input.Holdings = append(input.Holdings.([]any),
		map[string]any{"symbol": "TIH", "name": "Toromont Industries", "currency": "CAD", "market_value": "123.45"})

	first, err := p.Run(context.Background(), input, nil)
	require.NoError(t, err)
	second, err := p.Run(context.Background(), input, nil)
	require.NoError(t, err)

	a, err := json.Marshal(first.Buckets)
	require.NoError(t, err)
	b, err := json.Marshal(second.Buckets)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))

	ha, err := json.Marshal(first.Holdings)
	require.NoError(t, err)
	hb, err := json.Marshal(second.Holdings)
	require.NoError(t, err)
	assert.Equal(t, string(ha), string(hb))

	// XBB (partial keyword match) and TIH are looked up once per run
	assert.Equal(t, int64(4), lookup.calls.Load())
}

func TestRun_MemoizesSharedSymbols(t *testing.T) {
	lookup := &countingLookup{}
	p := newTestPipeline(t, func(c *common.Config) { c.Classify.Concurrency = 4 }, lookup)

	var holdings []any
	for i := 0; i < 10; i++ {
		holdings = append(holdings, map[string]any{
			"symbol": "TIH", "name": "Toromont Industries", "currency": "CAD", "market_value": 10, "account": string(rune('A' + i)),
		})
	}
	holdings = append(holdings, map[string]any{"symbol": "WSP", "name": "WSP Global", "currency": "CAD", "market_value": 5})

	snap, err := p.Run(context.Background(), &models.RunInput{SnapshotRef: "memo", Holdings: holdings}, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(2), lookup.calls.Load())
	assert.Equal(t, 2, snap.Classification.Lookups)
	assert.Equal(t, 11, snap.Classification.BySource[models.SourceSemantic])
	assert.Equal(t, 11, snap.Classification.ByBand["medium"])
}

func TestRun_PlaceholderCashAndBenefits(t *testing.T) {
	input := &models.RunInput{
		SnapshotRef: "benefits",
		Holdings: []any{
			map[string]any{"symbol": "CASH", "name": "Cash", "currency": "CAD", "market_value": "250", "account": "TFSA"},
			map[string]any{"symbol": "CMR", "name": "iShares Premium Money Market ETF", "currency": "CAD", "market_value": "250", "account": "TFSA"},
		},
		CashBalances: []any{
			map[string]any{"account_name": "TFSA", "currency": "CAD", "amount": "250", "category": "brokerage_cash"},
			map[string]any{"account_name": "Sun Life DC Pension", "category": "benefits", "amount": "$20,000.00"},
			map[string]any{"account_name": "Group RRSP", "category": "benefits", "amount": "$15,500.50"},
		},
	}

	snap, err := newTestPipeline(t, nil).Run(context.Background(), input, nil)
	require.NoError(t, err)

	assert.True(t, snap.BucketTotal(models.BucketDCPension).Equal(dec("20000")))
	assert.True(t, snap.BucketTotal(models.BucketRRSP).Equal(dec("15500.5")))
	// CMR and the statement balance are both kept; the CASH placeholder repeats the balance
	assert.True(t, snap.BucketTotal(models.BucketCash).Equal(dec("500")))
	assert.Equal(t, 1, snap.Counts.Superseded)
	assert.Equal(t, 1, snap.Dedupe.Rewritten)
	assert.Equal(t, 2, snap.Anomalies[models.AnomalyAmbiguousCash])
	assert.Equal(t, models.StatusNoExpectedTotal, snap.Reconciliation.Status)
	assert.False(t, snap.Reconciliation.Match)
}

func TestRun_ManualOverrideApplied(t *testing.T) {
	lookup := &countingLookup{}
	overrides := map[string]*models.ClassificationRecord{
		"TIH": {Symbol: "TIH", Sector: "Capital Goods", IssuerRegion: "Canada"},
	}
	input := &models.RunInput{
		SnapshotRef: "override",
		Holdings:    []any{map[string]any{"symbol": "tih", "name": "Toromont Industries", "currency": "CAD", "market_value": 1}},
	}

	snap, err := newTestPipeline(t, nil, lookup).Run(context.Background(), input, overrides)
	require.NoError(t, err)

	assert.Equal(t, "Capital Goods", snap.Holdings[0].Sector)
	assert.Equal(t, models.SourceManual, snap.Holdings[0].Source)
	assert.Equal(t, int64(0), lookup.calls.Load())
}

func TestRun_StructuralErrorsAreFatal(t *testing.T) {
	p := newTestPipeline(t, nil)

	_, err := p.Run(context.Background(), &models.RunInput{SnapshotRef: "bad", Holdings: "not-a-list"}, nil)
	assert.True(t, errors.Is(err, normalize.ErrStructuralInput))

	_, err = p.Run(context.Background(), &models.RunInput{Holdings: []any{}}, nil)
	assert.True(t, errors.Is(err, normalize.ErrStructuralInput), "snapshot_ref is required")
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Rules = []common.RuleConfig{{Bucket: "Equity", Scope: "holding", Keywords: []string{"x"}}}
	_, err := New(cfg, nil, common.NewSilentLogger())
	assert.Error(t, err)
}
