// Package fx converts record values into the reporting currency
package fx

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/models"
)

const stage = "fx"

// Converter applies one rate per record to every monetary field
type Converter struct {
	reporting   string
	fallback    map[string]decimal.Decimal
	defaultRate decimal.Decimal
	logger      *common.Logger
}

// NewConverter creates a converter. Fallback rates are per source currency,
// expressed in units of the reporting currency.
func NewConverter(cfg common.FXConfig, reportingCurrency string, logger *common.Logger) *Converter {
	c := &Converter{
		reporting:   strings.ToUpper(reportingCurrency),
		fallback:    make(map[string]decimal.Decimal, len(cfg.FallbackRates)),
		defaultRate: decimal.NewFromFloat(cfg.DefaultRate),
		logger:      logger,
	}
	for ccy, rate := range cfg.FallbackRates {
		c.fallback[strings.ToUpper(ccy)] = decimal.NewFromFloat(rate)
	}
	if !c.defaultRate.IsPositive() {
		c.defaultRate = decimal.NewFromInt(1)
	}
	return c
}

// Rate decides the conversion for one amount. A derived rate needs a
// positive original value and a supplied reporting value.
func (c *Converter) Rate(currency string, original decimal.Decimal, reported decimal.NullDecimal) (models.Conversion, bool) {
	conv := models.Conversion{From: currency, To: c.reporting}
	switch {
	case currency == c.reporting:
		conv.Rate = decimal.NewFromInt(1)
		conv.Method = models.ConversionIdentity
		return conv, true
	case reported.Valid && original.IsPositive():
		conv.Rate = reported.Decimal.Div(original)
		conv.Method = models.ConversionDerived
		return conv, true
	}
	rate, ok := c.fallback[currency]
	if !ok {
		rate = c.defaultRate
	}
	conv.Rate = rate
	conv.Method = models.ConversionFallback
	return conv, ok
}

// Convert returns a copy of rs with reporting-currency values filled in
func (c *Converter) Convert(rs *models.RecordSet) *models.RecordSet {
	out := rs.Clone()
	var fallbacks int

	for i := range out.Holdings {
		h := &out.Holdings[i]
		conv, known := c.Rate(h.Currency, h.MarketValue, h.ReportedValue)
		h.Conversion = conv

		switch conv.Method {
		case models.ConversionDerived:
			h.MarketValueReporting = h.ReportedValue.Decimal
		default:
			h.MarketValueReporting = h.MarketValue.Mul(conv.Rate)
		}
		h.BookValueReporting = h.BookValue.Mul(conv.Rate)
		h.UnrealizedGainReporting = h.UnrealizedGain.Mul(conv.Rate)
		h.AnnualIncomeReporting = h.AnnualIncome.Mul(conv.Rate)

		if conv.Method == models.ConversionFallback {
			fallbacks++
			out.Record(c.fallbackEvent(h.ID, conv, known, h.ReportedValue.Valid))
		}
	}

	for i := range out.CashBalances {
		cb := &out.CashBalances[i]
		conv, known := c.Rate(cb.Currency, cb.Amount, cb.ReportedAmount)
		cb.Conversion = conv

		if conv.Method == models.ConversionDerived {
			cb.AmountReporting = cb.ReportedAmount.Decimal
		} else {
			cb.AmountReporting = cb.Amount.Mul(conv.Rate)
		}

		if conv.Method == models.ConversionFallback {
			fallbacks++
			out.Record(c.fallbackEvent(cb.ID, conv, known, cb.ReportedAmount.Valid))
		}
	}

	c.logger.Debug().
		Str("reporting_currency", c.reporting).
		Int("fallback_conversions", fallbacks).
		Msg("Currency conversion complete")

	return out
}

func (c *Converter) fallbackEvent(id string, conv models.Conversion, known, hadReported bool) models.AuditEvent {
	msg := fmt.Sprintf("%s->%s converted at fallback rate %s", conv.From, conv.To, conv.Rate)
	if !known {
		msg = fmt.Sprintf("%s->%s has no configured rate, converted at default %s", conv.From, conv.To, conv.Rate)
	}
	if hadReported {
		msg += "; supplied reporting value ignored because original value is not positive"
	}
	return models.AuditEvent{
		Stage:    stage,
		Action:   "fallback_rate",
		RecordID: id,
		Message:  msg,
	}
}
