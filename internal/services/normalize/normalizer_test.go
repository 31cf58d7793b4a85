package normalize

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/models"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer("cad", common.NewSilentLogger())
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestNormalize_AliasesAndStrings(t *testing.T) {
	input := &models.RunInput{
		Holdings: []any{
			map[string]any{
				"Symbol":           "aapl",
				"Security_Name":    "Apple Inc",
				"Market_Value":     "$1,000.00",
				"Market_Value_CAD": "1,385.35",
				"Currency":         "usd",
				"Annual_Dividend":  "N/A",
				"Sector":           "Technology",
				"Region":           "United States",
			},
		},
		CashBalances: []map[string]any{
			{"account_name": "DC Pension Plan", "category": "benefits", "balance": "$12,345.67"},
		},
	}

	rs, err := newTestNormalizer().Normalize(input)
	require.NoError(t, err)
	require.Len(t, rs.Holdings, 1)
	require.Len(t, rs.CashBalances, 1)

	h := rs.Holdings[0]
	assert.Equal(t, "AAPL", h.Symbol)
	assert.Equal(t, "Apple Inc", h.Name)
	assert.Equal(t, "USD", h.Currency)
	assert.True(t, h.MarketValue.Equal(dec("1000")))
	require.True(t, h.ReportedValue.Valid)
	assert.True(t, h.ReportedValue.Decimal.Equal(dec("1385.35")))
	assert.True(t, h.AnnualIncome.IsZero())
	assert.Equal(t, models.SourceRuleBased, h.Source)
	assert.Equal(t, 1.0, h.Confidence)
	assert.Equal(t, models.Unknown, h.Industry)
	assert.NotEmpty(t, h.ID)

	c := rs.CashBalances[0]
	assert.Equal(t, models.CashCategoryBenefits, c.Category)
	assert.True(t, c.Amount.Equal(dec("12345.67")))
	assert.Equal(t, "CAD", c.Currency)
}

func TestNormalize_DefaultsAreAudited(t *testing.T) {
	input := &models.RunInput{
		Holdings: []any{map[string]any{"symbol": "XYZ"}},
	}

	rs, err := newTestNormalizer().Normalize(input)
	require.NoError(t, err)

	h := rs.Holdings[0]
	assert.Equal(t, "XYZ", h.Name)
	assert.Equal(t, models.Unknown, h.Sector)
	assert.Equal(t, models.SourceUnclassified, h.Source)
	assert.Equal(t, 0.0, h.Confidence)
	assert.True(t, h.MarketValue.IsZero())

	fields := map[string]bool{}
	for _, e := range rs.Audit {
		assert.Equal(t, models.AnomalyMissingField, e.Kind)
		assert.Equal(t, h.ID, e.RecordID)
		fields[e.Field] = true
	}
	assert.True(t, fields["currency"])
	assert.True(t, fields["market_value"])
	assert.True(t, fields["name"])
}

func TestNormalize_UnknownCurrencyRetained(t *testing.T) {
	rs, err := newTestNormalizer().Normalize(&models.RunInput{
		Holdings: []any{map[string]any{"symbol": "ABC", "name": "Abc", "market_value": 10, "currency": "zzz"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "ZZZ", rs.Holdings[0].Currency)
	require.Len(t, rs.Audit, 1)
	assert.Equal(t, "currency", rs.Audit[0].Field)
}

func TestNormalize_StructuralErrors(t *testing.T) {
	cases := map[string]*models.RunInput{
		"holdings not a list":  {Holdings: "oops"},
		"element not object":   {Holdings: []any{map[string]any{"symbol": "A"}, 42}},
		"cash balances object": {CashBalances: map[string]any{"amount": 1}},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := newTestNormalizer().Normalize(input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrStructuralInput))
		})
	}
}

func TestNormalize_EmptyInput(t *testing.T) {
	rs, err := newTestNormalizer().Normalize(&models.RunInput{})
	require.NoError(t, err)
	assert.Empty(t, rs.Holdings)
	assert.Empty(t, rs.CashBalances)
}

func TestNormalize_DeterministicAndDisambiguatedIDs(t *testing.T) {
	input := &models.RunInput{
		Holdings: []any{
			map[string]any{"symbol": "XBB", "name": "Bond ETF", "market_value": 100, "currency": "CAD"},
			map[string]any{"symbol": "XBB", "name": "Bond ETF", "market_value": 100, "currency": "CAD"},
			map[string]any{"id": "h1", "symbol": "A", "name": "A", "market_value": 1, "currency": "CAD"},
			map[string]any{"id": "h1", "symbol": "B", "name": "B", "market_value": 2, "currency": "CAD"},
		},
	}

	first, err := newTestNormalizer().Normalize(input)
	require.NoError(t, err)
	second, err := newTestNormalizer().Normalize(input)
	require.NoError(t, err)

	assert.Equal(t, first.Holdings[0].ID, second.Holdings[0].ID)
	assert.Equal(t, first.Holdings[0].ID+"#2", first.Holdings[1].ID)
	assert.Equal(t, "h1", first.Holdings[2].ID)
	assert.Equal(t, "h1#2", first.Holdings[3].ID)

	var renamed int
	for _, e := range first.Audit {
		if e.Action == "id_disambiguated" {
			renamed++
		}
	}
	assert.Equal(t, 2, renamed)
}

func TestNormalizeJSON_PreservesDigits(t *testing.T) {
	doc := []byte(`{
		"snapshot_ref": "2025-06-30",
		"expected_total": 11880,
		"holdings": [{"symbol": "XBB", "name": "iShares Core Canadian Universe Bond", "market_value": 10000.10, "currency": "CAD"}],
		"cash_balances": []
	}`)

	input, rs, err := newTestNormalizer().NormalizeJSON(doc)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-30", input.SnapshotRef)
	require.NotNil(t, input.ExpectedTotal)
	assert.True(t, input.ExpectedTotal.Equal(dec("11880")))
	assert.Equal(t, "10000.1", rs.Holdings[0].MarketValue.String())
}

func TestNormalizeJSON_Malformed(t *testing.T) {
	_, _, err := newTestNormalizer().NormalizeJSON([]byte(`{"holdings": 5}`))
	assert.True(t, errors.Is(err, ErrStructuralInput))

	_, _, err = newTestNormalizer().NormalizeJSON([]byte(`not json`))
	assert.True(t, errors.Is(err, ErrStructuralInput))
}

func TestParseMoneyString(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		present bool
	}{
		{"$1,234.50", "1234.5", true},
		{"(250.00)", "-250", true},
		{"12.5%", "12.5", true},
		{"CAD 1,000", "1000", true},
		{"N/A", "0", false},
		{"", "0", false},
		{"-42", "-42", true},
	}
	for _, c := range cases {
		d, present, err := parseMoneyString(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.present, present, c.in)
		assert.Equal(t, c.want, d.String(), c.in)
	}

	_, present, err := parseMoneyString("12#4")
	assert.True(t, present)
	assert.Error(t, err)
}

func TestParseCategory_InfersBenefitsFromName(t *testing.T) {
	assert.Equal(t, models.CashCategoryBenefits, parseCategory("", "Group RRSP"))
	assert.Equal(t, models.CashCategoryBrokerage, parseCategory("", "TFSA Cash"))
	assert.Equal(t, models.CashCategoryBrokerage, parseCategory("brokerage_cash", "Pension top-up"))
}
