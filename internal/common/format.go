package common

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// FormatMoney renders an amount in its currency's display form, e.g.
// "$11,880.00" for CAD. The amount is rounded to the currency's minor unit
// for display only. Unknown currencies fall back to "<amount> <code>".
func FormatMoney(amount decimal.Decimal, currency string) string {
	currency = strings.ToUpper(currency)
	cur := money.GetCurrency(currency)
	if cur == nil {
		return amount.StringFixed(2) + " " + currency
	}
	factor := decimal.New(1, int32(cur.Fraction))
	return money.New(amount.Mul(factor).Round(0).IntPart(), currency).Display()
}

// FormatSignedMoney prefixes positive amounts with "+"
func FormatSignedMoney(amount decimal.Decimal, currency string) string {
	if amount.IsPositive() {
		return "+" + FormatMoney(amount, currency)
	}
	return FormatMoney(amount, currency)
}

// FormatPct renders a percentage with one decimal, e.g. "12.5%"
func FormatPct(pct decimal.Decimal) string {
	return pct.StringFixed(1) + "%"
}
