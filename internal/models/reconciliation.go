package models

import "github.com/shopspring/decimal"

// Reconciliation statuses
const (
	StatusMatched         = "matched"
	StatusMismatch        = "mismatch"
	StatusAdjusted        = "adjusted"
	StatusNoExpectedTotal = "no_expected_total"
)

// Adjustment is a labeled synthetic entry closing a reconciliation gap
type Adjustment struct {
	ID     string          `json:"id"`
	Label  string          `json:"label"`
	Source string          `json:"source"`
	Bucket Bucket          `json:"bucket"`
	Amount decimal.Decimal `json:"amount"`
}

// ReconciliationReport compares computed totals with an expected total.
// Difference is expected minus computed.
type ReconciliationReport struct {
	Status        string              `json:"status"`
	ExpectedTotal decimal.NullDecimal `json:"expected_total"`
	ComputedTotal decimal.Decimal     `json:"computed_total"`
	AdjustedTotal decimal.Decimal     `json:"adjusted_total"`
	Difference    decimal.Decimal     `json:"difference"`
	DifferencePct decimal.Decimal     `json:"difference_pct"`
	Tolerance     decimal.Decimal     `json:"tolerance"`
	Adjustments   []Adjustment        `json:"adjustments"`
	Match         bool                `json:"match"`
}
