package models

import "github.com/shopspring/decimal"

// Bucket is one of the six allocation buckets
type Bucket string

const (
	BucketDCPension   Bucket = "DC Pension"
	BucketRRSP        Bucket = "RRSP"
	BucketEquity      Bucket = "Equity"
	BucketFixedIncome Bucket = "Fixed Income"
	BucketCash        Bucket = "Cash & Cash Equivalents"
	BucketRealEstate  Bucket = "Real Estate"
)

// AllBuckets lists the buckets in report order
func AllBuckets() []Bucket {
	return []Bucket{BucketDCPension, BucketRRSP, BucketEquity, BucketFixedIncome, BucketCash, BucketRealEstate}
}

// ParseBucket matches a bucket by name, case-insensitively
func ParseBucket(s string) (Bucket, bool) {
	for _, b := range AllBuckets() {
		if equalFold(string(b), s) {
			return b, true
		}
	}
	return "", false
}

// RuleScope restricts which records a bucket rule is evaluated against
type RuleScope string

const (
	ScopeBenefits RuleScope = "cash_benefits"
	ScopeCash     RuleScope = "cash_other"
	ScopeHolding  RuleScope = "holding"
)

// ParseRuleScope accepts the canonical names and the short config aliases
func ParseRuleScope(s string) (RuleScope, bool) {
	switch s {
	case "cash_benefits", "benefits":
		return ScopeBenefits, true
	case "cash_other", "cash":
		return ScopeCash, true
	case "holding", "holdings":
		return ScopeHolding, true
	}
	return "", false
}

// BucketRule is one row of the ordered bucket rule table. A rule with no
// keywords and no symbols matches every record in its scope.
type BucketRule struct {
	Name     string    `json:"name"`
	Bucket   Bucket    `json:"bucket"`
	Applies  RuleScope `json:"applies"`
	Keywords []string  `json:"keywords,omitempty"`
	Symbols  []string  `json:"symbols,omitempty"`
	Flag     bool      `json:"flag,omitempty"` // assignments by this rule are audited as fallbacks
}

// RecordKind distinguishes the two record types in assignments
type RecordKind string

const (
	RecordHolding RecordKind = "holding"
	RecordCash    RecordKind = "cash_balance"
)

// BucketAssignment is the audit of one record's bucket
type BucketAssignment struct {
	RecordID string          `json:"record_id"`
	Kind     RecordKind      `json:"kind"`
	Bucket   Bucket          `json:"bucket"`
	Rule     string          `json:"rule"`
	Value    decimal.Decimal `json:"value"`
	Flagged  bool            `json:"flagged,omitempty"`
}

// BucketTotal is the count and reporting-currency total of one bucket
type BucketTotal struct {
	Bucket     Bucket          `json:"bucket"`
	Count      int             `json:"count"`
	Total      decimal.Decimal `json:"total"`
	Adjustment decimal.Decimal `json:"adjustment"`
}

// Allocation is the complete result of bucket aggregation
type Allocation struct {
	Totals      []BucketTotal      `json:"totals"`
	Assignments []BucketAssignment `json:"assignments"`
	Total       decimal.Decimal    `json:"total"`
}

// TotalFor returns the bucket's total, or zero
func (a *Allocation) TotalFor(b Bucket) decimal.Decimal {
	for _, t := range a.Totals {
		if t.Bucket == b {
			return t.Total
		}
	}
	return decimal.Zero
}
