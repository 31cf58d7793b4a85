package models

import "time"

// ClassificationRecord is the answer of one classification source for a symbol
type ClassificationRecord struct {
	Symbol         string               `json:"symbol"`
	Sector         string               `json:"sector"`
	Industry       string               `json:"industry,omitempty"`
	IssuerRegion   string               `json:"issuer_region"`
	ListingCountry string               `json:"listing_country,omitempty"`
	AssetType      string               `json:"asset_type,omitempty"`
	Confidence     float64              `json:"confidence"`
	Rationale      string               `json:"rationale,omitempty"`
	Source         ClassificationSource `json:"source"`
	UpdatedAt      time.Time            `json:"updated_at,omitempty"`
}

// Complete reports whether both sector and region are known
func (r *ClassificationRecord) Complete() bool {
	return r != nil && r.Sector != "" && r.Sector != Unknown &&
		r.IssuerRegion != "" && r.IssuerRegion != Unknown
}

// ConfidenceBand labels a confidence for the audit summary
func ConfidenceBand(c float64) string {
	switch {
	case c >= 0.9:
		return "high"
	case c >= 0.8:
		return "medium"
	case c >= 0.5:
		return "low"
	default:
		return "very_low"
	}
}

// ClassificationSummary is the coverage report of a classification pass
type ClassificationSummary struct {
	Classified   int                          `json:"classified"`
	Unclassified int                          `json:"unclassified"`
	BySource     map[ClassificationSource]int `json:"by_source"`
	ByBand       map[string]int               `json:"by_confidence_band"`
	Lookups      int                          `json:"lookups"` // external calls made
	NeedsReview  []string                     `json:"needs_review,omitempty"`
}
