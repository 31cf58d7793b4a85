package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RunInput is one reconciliation request. Holdings and CashBalances carry the
// raw per-source objects and are validated by the normalizer.
type RunInput struct {
	SnapshotRef   string           `json:"snapshot_ref"`
	AsOf          string           `json:"as_of,omitempty"`
	ExpectedTotal *decimal.Decimal `json:"expected_total,omitempty"`
	Holdings      any              `json:"holdings"`
	CashBalances  any              `json:"cash_balances"`
}

// DedupeClass summarises one partition class
type DedupeClass struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// DedupeSummary reports the cash/security partition
type DedupeSummary struct {
	CashLikeSecurities DedupeClass `json:"cash_like_securities"`
	BankCash           DedupeClass `json:"bank_cash"`
	Securities         DedupeClass `json:"securities"`
	Benefits           DedupeClass `json:"benefits"`
	Rewritten          int         `json:"rewritten"`
	Superseded         int         `json:"superseded"`
}

// RecordCounts are the headline record counts of a snapshot
type RecordCounts struct {
	Holdings     int `json:"holdings"`
	CashBalances int `json:"cash_balances"`
	Superseded   int `json:"superseded"`
	Unclassified int `json:"unclassified"`
	NeedsReview  int `json:"needs_review"`
}

// Snapshot is the persisted output of one reconciliation run
type Snapshot struct {
	ID                string                `json:"id"`
	SnapshotRef       string                `json:"snapshot_ref"`
	AsOf              string                `json:"as_of,omitempty"`
	RunAt             time.Time             `json:"run_at"`
	ReportingCurrency string                `json:"reporting_currency"`
	Counts            RecordCounts          `json:"counts"`
	Buckets           []BucketTotal         `json:"buckets"`
	Total             decimal.Decimal       `json:"total"`
	Reconciliation    ReconciliationReport  `json:"reconciliation"`
	Dedupe            DedupeSummary         `json:"dedupe"`
	Classification    ClassificationSummary `json:"classification"`
	Anomalies         map[AnomalyKind]int   `json:"anomalies"`
	Holdings          []Holding             `json:"holdings"`
	CashBalances      []CashAccountBalance  `json:"cash_balances"`
	Assignments       []BucketAssignment    `json:"assignments"`
	Audit             []AuditEvent          `json:"audit"`
}

// SnapshotSummary is the listing entry for a stored snapshot
type SnapshotSummary struct {
	ID          string          `json:"id"`
	SnapshotRef string          `json:"snapshot_ref"`
	RunAt       time.Time       `json:"run_at"`
	Total       decimal.Decimal `json:"total"`
	Match       bool            `json:"match"`
	Status      string          `json:"status"`
}

// Summary returns the listing entry for the snapshot
func (s *Snapshot) Summary() SnapshotSummary {
	return SnapshotSummary{
		ID:          s.ID,
		SnapshotRef: s.SnapshotRef,
		RunAt:       s.RunAt,
		Total:       s.Total,
		Match:       s.Reconciliation.Match,
		Status:      s.Reconciliation.Status,
	}
}

// BucketTotal returns the reported (adjusted) total for a bucket
func (s *Snapshot) BucketTotal(b Bucket) decimal.Decimal {
	for _, t := range s.Buckets {
		if t.Bucket == b {
			return t.Total.Add(t.Adjustment)
		}
	}
	return decimal.Zero
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
