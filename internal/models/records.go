// Package models defines the canonical records and reports for vire-recon
package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Unknown is the default for classification strings the source did not supply.
const Unknown = "Unknown"

// ClassificationSource records which stage produced a holding's classification
type ClassificationSource string

const (
	SourceRuleBased    ClassificationSource = "rule_based"
	SourceMarketData   ClassificationSource = "market_data"
	SourceSemantic     ClassificationSource = "semantic_classifier"
	SourceManual       ClassificationSource = "manual_adjustment"
	SourceUnclassified ClassificationSource = "unclassified"
)

// CashCategory distinguishes brokerage cash from benefits-portal balances
type CashCategory string

const (
	CashCategoryBrokerage CashCategory = "brokerage_cash"
	CashCategoryBenefits  CashCategory = "benefits"
)

// ConversionMethod records how a reporting-currency rate was obtained
type ConversionMethod string

const (
	ConversionDerived  ConversionMethod = "derived"  // reporting value / original value
	ConversionFallback ConversionMethod = "fallback" // configured rate
	ConversionIdentity ConversionMethod = "identity" // already in reporting currency
)

// Conversion is the audit of one currency conversion
type Conversion struct {
	Rate   decimal.Decimal  `json:"rate"`
	Method ConversionMethod `json:"method"`
	From   string           `json:"from"`
	To     string           `json:"to"`
}

// Holding is one reconciled position. A holding without a symbol is a
// bank-style cash balance.
type Holding struct {
	ID      string `json:"id"`
	Symbol  string `json:"symbol,omitempty"`
	Name    string `json:"name"`
	Account string `json:"account,omitempty"`

	Currency  string          `json:"currency"`
	Quantity  decimal.Decimal `json:"quantity"`
	LastPrice decimal.Decimal `json:"last_price"`

	MarketValue          decimal.Decimal     `json:"market_value"`
	MarketValueReporting decimal.Decimal     `json:"market_value_reporting"`
	ReportedValue        decimal.NullDecimal `json:"reported_value"` // reporting-currency value as supplied by the source

	BookValue          decimal.Decimal `json:"book_value"`
	BookValueReporting decimal.Decimal `json:"book_value_reporting"`

	UnrealizedGain          decimal.Decimal `json:"unrealized_gain"`
	UnrealizedGainReporting decimal.Decimal `json:"unrealized_gain_reporting"`
	UnrealizedGainPct       decimal.Decimal `json:"unrealized_gain_pct"`

	AnnualIncome          decimal.Decimal `json:"annual_income"`
	AnnualIncomeReporting decimal.Decimal `json:"annual_income_reporting"`

	AssetType      string               `json:"asset_type"`
	Sector         string               `json:"sector"`
	Industry       string               `json:"industry"`
	IssuerRegion   string               `json:"issuer_region"`
	ListingCountry string               `json:"listing_country"`
	Source         ClassificationSource `json:"classification_source"`
	Confidence     float64              `json:"confidence"`
	Rationale      string               `json:"rationale,omitempty"`
	NeedsReview    bool                 `json:"needs_review"`

	Conversion   Conversion `json:"conversion"`
	SourceRef    string     `json:"source_ref,omitempty"`
	Restates     string     `json:"restates,omitempty"`
	Superseded   bool       `json:"superseded,omitempty"`
	SupersededBy string     `json:"superseded_by,omitempty"`
}

// IsCash reports whether the holding is a symbol-less cash balance
func (h *Holding) IsCash() bool {
	return strings.TrimSpace(h.Symbol) == ""
}

// QuarterlyIncomeReporting is the annual reporting-currency income spread evenly.
func (h *Holding) QuarterlyIncomeReporting() decimal.Decimal {
	return h.AnnualIncomeReporting.Div(decimal.NewFromInt(4))
}

// NeedsClassification reports whether sector or region is missing or the
// confidence is below threshold.
func (h *Holding) NeedsClassification(threshold float64) bool {
	return h.Sector == Unknown || h.IssuerRegion == Unknown || h.Confidence < threshold
}

// ApplyClassification copies a classification record onto the holding.
// Empty fields on the record leave the holding's values in place.
func (h *Holding) ApplyClassification(rec *ClassificationRecord) {
	if rec == nil {
		return
	}
	if rec.Sector != "" {
		h.Sector = rec.Sector
	}
	if rec.Industry != "" {
		h.Industry = rec.Industry
	}
	if rec.IssuerRegion != "" {
		h.IssuerRegion = rec.IssuerRegion
	}
	if rec.ListingCountry != "" {
		h.ListingCountry = rec.ListingCountry
	}
	if rec.AssetType != "" {
		h.AssetType = rec.AssetType
	}
	h.Source = rec.Source
	h.Confidence = rec.Confidence
	h.Rationale = rec.Rationale
	h.NeedsReview = h.Sector == Unknown || h.IssuerRegion == Unknown
}

// CashAccountBalance is a cash statement line: brokerage cash or a benefits
// portal balance (DC pension, RRSP).
type CashAccountBalance struct {
	ID          string       `json:"id"`
	AccountID   string       `json:"account_id,omitempty"`
	AccountName string       `json:"account_name"`
	Category    CashCategory `json:"category"`
	Currency    string       `json:"currency"`

	Amount          decimal.Decimal     `json:"amount"`
	AmountReporting decimal.Decimal     `json:"amount_reporting"`
	ReportedAmount  decimal.NullDecimal `json:"reported_amount"`

	Conversion   Conversion `json:"conversion"`
	SourceRef    string     `json:"source_ref,omitempty"`
	Restates     string     `json:"restates,omitempty"`
	Superseded   bool       `json:"superseded,omitempty"`
	SupersededBy string     `json:"superseded_by,omitempty"`
}

// IsBenefits reports whether the balance came from a benefits portal
func (c *CashAccountBalance) IsBenefits() bool {
	return c.Category == CashCategoryBenefits
}

// RecordSet is the canonical record collection handed between pipeline stages.
// Stages return a new RecordSet and never modify the one they were given.
type RecordSet struct {
	Holdings     []Holding            `json:"holdings"`
	CashBalances []CashAccountBalance `json:"cash_balances"`
	Audit        []AuditEvent         `json:"audit"`
}

// Clone returns a copy whose slices can be modified independently
func (rs *RecordSet) Clone() *RecordSet {
	out := &RecordSet{
		Holdings:     make([]Holding, len(rs.Holdings)),
		CashBalances: make([]CashAccountBalance, len(rs.CashBalances)),
		Audit:        make([]AuditEvent, len(rs.Audit)),
	}
	copy(out.Holdings, rs.Holdings)
	copy(out.CashBalances, rs.CashBalances)
	copy(out.Audit, rs.Audit)
	return out
}

// Record appends an audit event
func (rs *RecordSet) Record(events ...AuditEvent) {
	rs.Audit = append(rs.Audit, events...)
}

// Active returns the holdings and balances that take part in aggregation
func (rs *RecordSet) Active() ([]Holding, []CashAccountBalance) {
	var holdings []Holding
	for _, h := range rs.Holdings {
		if !h.Superseded {
			holdings = append(holdings, h)
		}
	}
	var cash []CashAccountBalance
	for _, c := range rs.CashBalances {
		if !c.Superseded {
			cash = append(cash, c)
		}
	}
	return holdings, cash
}
