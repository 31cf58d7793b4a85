package classify

import (
	"context"
	"strings"
	"unicode"

	"github.com/bobmcallan/vire-recon/internal/clients/eodhd"
	"github.com/bobmcallan/vire-recon/internal/interfaces"
	"github.com/bobmcallan/vire-recon/internal/models"
)

const marketDataConfidence = 0.9

// MarketDataLookup classifies a symbol from its EODHD fundamentals
type MarketDataLookup struct {
	client    interfaces.EODHDClient
	exchanges map[string]string // currency -> exchange suffix
}

var _ interfaces.ClassificationLookup = (*MarketDataLookup)(nil)

// NewMarketDataLookup creates the lookup. exchanges maps a holding currency
// to the EODHD exchange suffix used to build the ticker.
func NewMarketDataLookup(client interfaces.EODHDClient, exchanges map[string]string) *MarketDataLookup {
	ex := make(map[string]string, len(exchanges))
	for ccy, suffix := range exchanges {
		ex[strings.ToUpper(ccy)] = strings.ToUpper(suffix)
	}
	return &MarketDataLookup{client: client, exchanges: ex}
}

func (l *MarketDataLookup) Name() string { return string(models.SourceMarketData) }

// Ticker builds the EODHD ticker, e.g. "HISU.U" in CAD becomes "HISU-U.TO".
// Returns "" for symbols EODHD cannot list, such as numeric fund codes.
func (l *MarketDataLookup) Ticker(symbol, currency string) string {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" || strings.IndexFunc(symbol, unicode.IsLetter) < 0 {
		return ""
	}
	suffix, ok := l.exchanges[strings.ToUpper(currency)]
	if !ok {
		suffix = "US"
	}
	return strings.ReplaceAll(symbol, ".", "-") + "." + suffix
}

// Lookup implements interfaces.ClassificationLookup
func (l *MarketDataLookup) Lookup(ctx context.Context, req interfaces.LookupRequest) (*models.ClassificationRecord, error) {
	ticker := l.Ticker(req.Symbol, req.Currency)
	if ticker == "" {
		return nil, interfaces.ErrNotFound
	}

	f, err := l.client.GetFundamentals(ctx, ticker)
	if err != nil {
		if eodhd.IsNotFound(err) {
			return nil, interfaces.ErrNotFound
		}
		return nil, err
	}

	sector := f.Sector
	if sector == "" && f.IsETF {
		sector = f.Category
	}
	region := regionName(f.CountryName, f.CountryISO)
	if f.IsETF && f.TopRegion != "" {
		region = f.TopRegion
	}
	if sector == "" && region == "" {
		return nil, interfaces.ErrNotFound
	}

	return &models.ClassificationRecord{
		Symbol:         req.Symbol,
		Sector:         orUnknown(sector),
		Industry:       f.Industry,
		IssuerRegion:   orUnknown(region),
		ListingCountry: f.Exchange,
		AssetType:      f.Type,
		Confidence:     marketDataConfidence,
		Source:         models.SourceMarketData,
	}, nil
}

// regionName prefers the spelled-out country and folds the US variants
func regionName(name, iso string) string {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "USA", "UNITED STATES", "UNITED STATES OF AMERICA":
		return "US"
	case "":
	default:
		return strings.TrimSpace(name)
	}
	switch strings.ToUpper(iso) {
	case "":
		return ""
	case "US":
		return "US"
	case "CA":
		return "Canada"
	default:
		return strings.ToUpper(iso)
	}
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return models.Unknown
	}
	return s
}
