package models

import "time"

// Fundamentals holds the descriptive subset of an EODHD fundamentals document
// used for classification.
type Fundamentals struct {
	Ticker      string    `json:"ticker"`
	Name        string    `json:"name"`
	Type        string    `json:"type"` // "Common Stock", "ETF", ...
	Sector      string    `json:"sector"`
	Industry    string    `json:"industry"`
	Category    string    `json:"category,omitempty"` // fund category for ETFs
	CountryName string    `json:"country_name,omitempty"`
	CountryISO  string    `json:"country_iso,omitempty"` // domicile from ISIN prefix when General.CountryISO is empty
	ISIN        string    `json:"isin,omitempty"`
	Exchange    string    `json:"exchange,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	IsETF       bool      `json:"is_etf"`
	TopRegion   string    `json:"top_region,omitempty"` // largest ETF world-region weight
	LastUpdated time.Time `json:"last_updated"`
}
