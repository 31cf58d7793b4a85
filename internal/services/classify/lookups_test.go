package classify

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-recon/internal/clients/eodhd"
	"github.com/bobmcallan/vire-recon/internal/interfaces"
	"github.com/bobmcallan/vire-recon/internal/models"
)

type stubEODHD struct {
	getFundamentalsFn func(ctx context.Context, ticker string) (*models.Fundamentals, error)
	tickers           []string
}

func (s *stubEODHD) GetFundamentals(ctx context.Context, ticker string) (*models.Fundamentals, error) {
	s.tickers = append(s.tickers, ticker)
	return s.getFundamentalsFn(ctx, ticker)
}

type stubGemini struct {
	generateFn func(ctx context.Context, prompt string) (string, error)
}

func (s *stubGemini) GenerateContent(ctx context.Context, prompt string) (string, error) {
	return s.generateFn(ctx, prompt)
}

func TestMarketDataLookup_Ticker(t *testing.T) {
	l := NewMarketDataLookup(nil, map[string]string{"cad": "to", "USD": "US"})

	assert.Equal(t, "XBB.TO", l.Ticker("xbb", "CAD"))
	assert.Equal(t, "HISU-U.TO", l.Ticker("HISU.U", "CAD"))
	assert.Equal(t, "AAPL.US", l.Ticker("AAPL", "USD"))
	assert.Equal(t, "SAP.US", l.Ticker("SAP", "EUR"))
	assert.Equal(t, "", l.Ticker("5565652", "CAD"))
}

func TestMarketDataLookup_Stock(t *testing.T) {
	client := &stubEODHD{getFundamentalsFn: func(ctx context.Context, ticker string) (*models.Fundamentals, error) {
		return &models.Fundamentals{
			Ticker: ticker, Type: "Common Stock", Sector: "Utilities", Industry: "Utilities - Regulated Electric",
			CountryName: "Canada", Exchange: "TO",
		}, nil
	}}
	l := NewMarketDataLookup(client, map[string]string{"CAD": "TO"})

	rec, err := l.Lookup(context.Background(), interfaces.LookupRequest{Symbol: "FTS", Currency: "CAD"})
	require.NoError(t, err)

	assert.Equal(t, []string{"FTS.TO"}, client.tickers)
	assert.Equal(t, "Utilities", rec.Sector)
	assert.Equal(t, "Canada", rec.IssuerRegion)
	assert.Equal(t, models.SourceMarketData, rec.Source)
	assert.True(t, rec.Complete())
}

func TestMarketDataLookup_ETFUsesCategoryAndRegion(t *testing.T) {
	client := &stubEODHD{getFundamentalsFn: func(ctx context.Context, ticker string) (*models.Fundamentals, error) {
		return &models.Fundamentals{IsETF: true, Category: "Global Equity", CountryISO: "CA", TopRegion: "North America"}, nil
	}}
	rec, err := NewMarketDataLookup(client, nil).Lookup(context.Background(), interfaces.LookupRequest{Symbol: "XEQT"})
	require.NoError(t, err)

	assert.Equal(t, "Global Equity", rec.Sector)
	assert.Equal(t, "North America", rec.IssuerRegion)
}

func TestMarketDataLookup_NotFound(t *testing.T) {
	client := &stubEODHD{getFundamentalsFn: func(ctx context.Context, ticker string) (*models.Fundamentals, error) {
		return nil, &eodhd.APIError{StatusCode: http.StatusNotFound, Message: "Ticker Not Found."}
	}}
	l := NewMarketDataLookup(client, nil)

	_, err := l.Lookup(context.Background(), interfaces.LookupRequest{Symbol: "NOPE"})
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = l.Lookup(context.Background(), interfaces.LookupRequest{Symbol: "5565652"})
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	assert.Len(t, client.tickers, 1, "numeric fund codes are not sent to EODHD")
}

func TestRegionName(t *testing.T) {
	assert.Equal(t, "US", regionName("USA", ""))
	assert.Equal(t, "Canada", regionName("", "CA"))
	assert.Equal(t, "Germany", regionName("Germany", "DE"))
	assert.Equal(t, "", regionName("", ""))
}

func TestSemanticLookup_ParsesFencedJSON(t *testing.T) {
	var prompt string
	client := &stubGemini{generateFn: func(ctx context.Context, p string) (string, error) {
		prompt = p
		return "```json\n{\"sector\": \"Real Estate\", \"industry\": \"Industrial REITs\", \"issuer_region\": \"Canada\", \"confidence\": 1.0, \"rationale\": \"Granite is a Canadian industrial REIT\"}\n```", nil
	}}

	rec, err := NewSemanticLookup(client).Lookup(context.Background(), interfaces.LookupRequest{Symbol: "GRT.UN", Name: "Granite REIT", Currency: "CAD"})
	require.NoError(t, err)

	assert.Contains(t, prompt, "GRT.UN")
	assert.Contains(t, prompt, "Granite REIT")
	assert.Equal(t, "Real Estate", rec.Sector)
	assert.Equal(t, models.SourceSemantic, rec.Source)
	assert.Equal(t, maxSemanticConfidence, rec.Confidence)
	assert.NotEmpty(t, rec.Rationale)
}

func TestParseAnswer_Rejections(t *testing.T) {
	_, err := parseAnswer("X", `{"sector": "Unknown", "issuer_region": "Unknown", "rationale": "no idea"}`)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = parseAnswer("X", `{"sector": "Energy", "issuer_region": "Canada"}`)
	assert.ErrorContains(t, err, "rationale")

	_, err = parseAnswer("X", `{"sector": "Energy"`)
	assert.ErrorContains(t, err, "malformed")
}
