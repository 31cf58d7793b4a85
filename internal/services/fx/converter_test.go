package fx

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/models"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestConverter() *Converter {
	return NewConverter(common.NewDefaultConfig().FX, "CAD", common.NewSilentLogger())
}

func TestConvert_DerivedRateAppliedToAllFields(t *testing.T) {
	rs := &models.RecordSet{Holdings: []models.Holding{{
		ID:             "h1",
		Currency:       "USD",
		MarketValue:    dec("1000"),
		ReportedValue:  decimal.NewNullDecimal(dec("1380")),
		BookValue:      dec("800"),
		UnrealizedGain: dec("200"),
		AnnualIncome:   dec("40"),
	}}}

	out := newTestConverter().Convert(rs)
	h := out.Holdings[0]

	assert.Equal(t, models.ConversionDerived, h.Conversion.Method)
	assert.True(t, h.Conversion.Rate.Equal(dec("1.38")))
	assert.True(t, h.MarketValueReporting.Equal(dec("1380")))
	assert.True(t, h.BookValueReporting.Equal(dec("1104")))
	assert.True(t, h.UnrealizedGainReporting.Equal(dec("276")))
	assert.True(t, h.AnnualIncomeReporting.Equal(dec("55.2")))
	assert.True(t, h.QuarterlyIncomeReporting().Equal(dec("13.8")))
	assert.Empty(t, out.Audit)

	// input untouched
	assert.True(t, rs.Holdings[0].MarketValueReporting.IsZero())
}

func TestConvert_RoundTripConsistency(t *testing.T) {
	rs := &models.RecordSet{Holdings: []models.Holding{{
		ID:            "h1",
		Currency:      "USD",
		MarketValue:   dec("3"),
		ReportedValue: decimal.NewNullDecimal(dec("4.15605")),
	}}}

	h := newTestConverter().Convert(rs).Holdings[0]
	assert.True(t, h.MarketValueReporting.Div(h.MarketValue).Equal(h.Conversion.Rate))
}

func TestConvert_FallbackRate(t *testing.T) {
	rs := &models.RecordSet{Holdings: []models.Holding{{
		ID:          "h1",
		Currency:    "USD",
		MarketValue: dec("1000"),
		BookValue:   dec("900"),
	}}}

	out := newTestConverter().Convert(rs)
	h := out.Holdings[0]

	assert.Equal(t, models.ConversionFallback, h.Conversion.Method)
	assert.True(t, h.Conversion.Rate.Equal(dec("1.38535")))
	assert.True(t, h.MarketValueReporting.Equal(dec("1385.35")))
	assert.True(t, h.BookValueReporting.Equal(dec("1246.815")))
	require.Len(t, out.Audit, 1)
	assert.Equal(t, "fallback_rate", out.Audit[0].Action)
}

func TestConvert_ZeroOriginalUsesFallback(t *testing.T) {
	rs := &models.RecordSet{Holdings: []models.Holding{{
		ID:            "h1",
		Currency:      "USD",
		MarketValue:   decimal.Zero,
		ReportedValue: decimal.NewNullDecimal(dec("50")),
	}}}

	out := newTestConverter().Convert(rs)
	assert.Equal(t, models.ConversionFallback, out.Holdings[0].Conversion.Method)
	assert.Contains(t, out.Audit[0].Message, "ignored")
}

func TestConvert_IdentityAndUnknownCurrency(t *testing.T) {
	rs := &models.RecordSet{
		Holdings: []models.Holding{
			{ID: "cad", Currency: "CAD", MarketValue: dec("10000")},
			{ID: "eur", Currency: "EUR", MarketValue: dec("10")},
		},
		CashBalances: []models.CashAccountBalance{
			{ID: "c1", Currency: "USD", Amount: dec("100"), ReportedAmount: decimal.NewNullDecimal(dec("137"))},
		},
	}

	out := newTestConverter().Convert(rs)

	assert.Equal(t, models.ConversionIdentity, out.Holdings[0].Conversion.Method)
	assert.True(t, out.Holdings[0].MarketValueReporting.Equal(dec("10000")))

	assert.Equal(t, models.ConversionFallback, out.Holdings[1].Conversion.Method)
	assert.True(t, out.Holdings[1].MarketValueReporting.Equal(dec("10")))
	require.Len(t, out.Audit, 1)
	assert.Contains(t, out.Audit[0].Message, "no configured rate")

	assert.Equal(t, models.ConversionDerived, out.CashBalances[0].Conversion.Method)
	assert.True(t, out.CashBalances[0].AmountReporting.Equal(dec("137")))
}
