package report

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/models"
	"github.com/bobmcallan/vire-recon/internal/storage"
)

var pngSignature = []byte{0x89, 'P', 'N', 'G'}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testSnapshot() *models.Snapshot {
	return &models.Snapshot{
		ID:                "run-1",
		SnapshotRef:       "2025-06-30",
		RunAt:             time.Date(2025, 6, 30, 9, 30, 0, 0, time.UTC),
		ReportingCurrency: "CAD",
		Counts:            models.RecordCounts{Holdings: 2, CashBalances: 1},
		Buckets: []models.BucketTotal{
			{Bucket: models.BucketDCPension},
			{Bucket: models.BucketRRSP},
			{Bucket: models.BucketEquity, Count: 1, Total: d("1380")},
			{Bucket: models.BucketFixedIncome, Count: 1, Total: d("10000")},
			{Bucket: models.BucketCash, Count: 1, Total: d("500"), Adjustment: d("1000")},
			{Bucket: models.BucketRealEstate},
		},
		Total: d("12880"),
		Reconciliation: models.ReconciliationReport{
			Status:        models.StatusAdjusted,
			ExpectedTotal: decimal.NewNullDecimal(d("12880")),
			ComputedTotal: d("11880"),
			AdjustedTotal: d("12880"),
			Difference:    d("1000"),
			DifferencePct: d("7.7639751552795031"),
			Tolerance:     d("1000"),
			Adjustments: []models.Adjustment{
				{Label: "Unreconciled difference", Source: "pending benefits data", Bucket: models.BucketCash, Amount: d("1000")},
			},
			Match: true,
		},
		Classification: models.ClassificationSummary{
			Classified:  2,
			BySource:    map[models.ClassificationSource]int{models.SourceRuleBased: 2},
			NeedsReview: []string{"XBB"},
		},
		Anomalies: map[models.AnomalyKind]int{models.AnomalyUnclassifiedHolding: 1},
	}
}

func TestSummary(t *testing.T) {
	svc := NewService(nil, common.NewSilentLogger())
	out := svc.Summary(testSnapshot())

	assert.Contains(t, out, "# Reconciliation: 2025-06-30")
	assert.Contains(t, out, "**Total:** $12,880.00")
	assert.Contains(t, out, "| Fixed Income | 1 | $10,000.00 | 77.6% |")
	assert.Contains(t, out, "| Cash & Cash Equivalents * | 1 | $1,500.00 | 11.6% |")
	assert.Contains(t, out, "**Result:** MATCH (adjusted)")
	assert.Contains(t, out, "**Difference:** $1,000.00 (7.8%)")
	assert.Contains(t, out, "source: pending benefits data")
	assert.Contains(t, out, "**Needs review:** XBB")
	assert.Contains(t, out, "- unclassified_holding: 1")
}

func TestSummary_NoExpectedTotal(t *testing.T) {
	snap := testSnapshot()
	snap.Reconciliation = models.ReconciliationReport{Status: models.StatusNoExpectedTotal}
	out := formatSummary(snap)
	assert.Contains(t, out, "No expected total supplied")
	assert.False(t, strings.Contains(out, "**Result:**"))
}

func TestRenderAllocationChart(t *testing.T) {
	png, err := RenderAllocationChart(testSnapshot())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, pngSignature))
}

func TestRenderAllocationChart_NothingToPlot(t *testing.T) {
	snap := testSnapshot()
	for i := range snap.Buckets {
		snap.Buckets[i].Total = decimal.Zero
		snap.Buckets[i].Adjustment = decimal.Zero
	}
	_, err := RenderAllocationChart(snap)
	assert.Error(t, err)
}

func TestSaveChart(t *testing.T) {
	cfg := common.NewDefaultConfig()
	cfg.Storage.Path = t.TempDir()
	logger := common.NewSilentLogger()
	sm, err := storage.NewManager(logger, cfg)
	require.NoError(t, err)

	path, err := NewService(sm, logger).SaveChart(context.Background(), testSnapshot())
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, pngSignature))
}
