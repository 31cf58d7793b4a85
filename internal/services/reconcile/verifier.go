// Package reconcile verifies computed totals against an expected total
package reconcile

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/models"
)

const stage = "reconcile"

// Policy controls whether a mismatch may be closed by an adjustment
type Policy struct {
	Tolerance        decimal.Decimal
	AllowAdjustment  bool
	AdjustmentSource string
	AdjustmentBucket models.Bucket
}

// PolicyFromConfig builds a Policy from the reconcile configuration
func PolicyFromConfig(cfg common.ReconcileConfig) (Policy, error) {
	p := Policy{
		Tolerance:        decimal.NewFromFloat(cfg.Tolerance),
		AllowAdjustment:  cfg.AllowAdjustment,
		AdjustmentSource: cfg.AdjustmentSource,
		AdjustmentBucket: models.BucketCash,
	}
	if p.Tolerance.IsNegative() {
		return p, fmt.Errorf("reconcile: tolerance must not be negative")
	}
	if cfg.AdjustmentBucket != "" {
		b, ok := models.ParseBucket(cfg.AdjustmentBucket)
		if !ok {
			return p, fmt.Errorf("reconcile: unknown adjustment bucket %q", cfg.AdjustmentBucket)
		}
		p.AdjustmentBucket = b
	}
	if p.AllowAdjustment && p.AdjustmentSource == "" {
		return p, fmt.Errorf("reconcile: adjustments require a named source")
	}
	return p, nil
}

// Result is the verified allocation. Totals carry any adjustment in the
// Adjustment field of its bucket; record totals are never changed.
type Result struct {
	Report models.ReconciliationReport
	Totals []models.BucketTotal
	Events []models.AuditEvent
}

// Verifier compares an allocation with an expected total
type Verifier struct {
	policy Policy
	logger *common.Logger
}

// NewVerifier creates a verifier
func NewVerifier(policy Policy, logger *common.Logger) *Verifier {
	return &Verifier{policy: policy, logger: logger}
}

// Verify sums the bucket totals and compares them with expected. A match
// requires the absolute difference to be strictly below the tolerance, or
// zero, so a tolerance of 0 means an exact match.
func (v *Verifier) Verify(alloc *models.Allocation, expected *decimal.Decimal, snapshotRef string) Result {
	computed := decimal.Zero
	totals := make([]models.BucketTotal, len(alloc.Totals))
	for i, t := range alloc.Totals {
		computed = computed.Add(t.Total)
		totals[i] = t
		totals[i].Adjustment = decimal.Zero
	}

	report := models.ReconciliationReport{
		ComputedTotal: computed,
		AdjustedTotal: computed,
		Tolerance:     v.policy.Tolerance,
		Adjustments:   []models.Adjustment{},
	}

	if expected == nil {
		report.Status = models.StatusNoExpectedTotal
		return Result{
			Report: report,
			Totals: totals,
			Events: []models.AuditEvent{{
				Stage: stage, Action: "not_verified",
				Message: "no expected total supplied; totals not verified",
			}},
		}
	}

	report.ExpectedTotal = decimal.NewNullDecimal(*expected)
	report.Difference = expected.Sub(computed)
	if !expected.IsZero() {
		report.DifferencePct = report.Difference.Div(*expected).Mul(decimal.NewFromInt(100))
	}

	if v.withinTolerance(report.Difference) {
		report.Status = models.StatusMatched
		report.Match = true
		v.logger.Info().Str("difference", report.Difference.String()).Msg("Reconciliation matched")
		return Result{Report: report, Totals: totals}
	}

	events := []models.AuditEvent{{
		Stage: stage, Action: "mismatch", Kind: models.AnomalyReconMismatch,
		Message: fmt.Sprintf("expected %s, computed %s, difference %s exceeds tolerance %s",
			expected, computed, report.Difference, v.policy.Tolerance),
	}}
	v.logger.Warn().
		Str("expected", expected.String()).
		Str("computed", computed.String()).
		Str("difference", report.Difference.String()).
		Msg("Reconciliation mismatch")

	if !v.policy.AllowAdjustment {
		report.Status = models.StatusMismatch
		return Result{Report: report, Totals: totals, Events: events}
	}

	adj := models.Adjustment{
		ID:     uuid.NewSHA1(uuid.NameSpaceOID, []byte("adjustment/"+snapshotRef+"/"+report.Difference.String())).String(),
		Label:  "Reconciliation adjustment: " + v.policy.AdjustmentSource,
		Source: v.policy.AdjustmentSource,
		Bucket: v.policy.AdjustmentBucket,
		Amount: report.Difference,
	}
	for i := range totals {
		if totals[i].Bucket == adj.Bucket {
			totals[i].Adjustment = adj.Amount
		}
	}
	report.Adjustments = append(report.Adjustments, adj)
	report.AdjustedTotal = computed.Add(adj.Amount)
	report.Match = v.withinTolerance(expected.Sub(report.AdjustedTotal))
	report.Status = models.StatusAdjusted

	events = append(events, models.AuditEvent{
		Stage: stage, Action: "adjustment", RecordID: adj.ID,
		Message: fmt.Sprintf("%s of %s added to %s", adj.Label, adj.Amount, adj.Bucket),
	})
	v.logger.Warn().Str("source", adj.Source).Str("amount", adj.Amount.String()).Msg("Reconciliation adjustment applied")

	return Result{Report: report, Totals: totals, Events: events}
}

func (v *Verifier) withinTolerance(diff decimal.Decimal) bool {
	return diff.IsZero() || diff.Abs().LessThan(v.policy.Tolerance)
}
