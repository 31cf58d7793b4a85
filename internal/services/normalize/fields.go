package normalize

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Field aliases, in lookup order. Keys are compared after folding: lower-cased
// with every non-alphanumeric character removed, so "Market_Value" and
// "market value" both match "marketvalue".
var (
	aliasID        = []string{"id", "holdingid", "recordid"}
	aliasSymbol    = []string{"symbol", "ticker", "code"}
	aliasName      = []string{"name", "securityname", "description", "security"}
	aliasAccount   = []string{"account", "accountname", "accountid", "accountnumber"}
	aliasCurrency  = []string{"currency", "marketvaluecurrency", "ccy", "currencycode"}
	aliasQuantity  = []string{"quantity", "units", "shares", "qty"}
	aliasLastPrice = []string{"lastprice", "price", "marketprice"}
	aliasValue     = []string{"marketvalue", "value"}
	aliasBook      = []string{"bookvalue", "bookvaluemarket", "cost", "bookcost"}
	aliasGain      = []string{"unrealizedgain", "marketunrealizedreturns", "unrealizedreturns", "gainloss"}
	aliasGainPct   = []string{"unrealizedgainpct", "marketunrealizedreturnspct", "unrealizedreturnspct", "gainlosspct"}
	aliasIncome    = []string{"annualincome", "annualdividend", "annualdividendincome", "dividendincome"}
	aliasAssetType = []string{"assettype", "securitytype", "type"}
	aliasSector    = []string{"sector"}
	aliasIndustry  = []string{"industry"}
	aliasRegion    = []string{"issuerregion", "region", "countryofrisk"}
	aliasListing   = []string{"listingcountry", "listingexchange", "exchange"}
	aliasSource    = []string{"classificationsource", "source"}
	aliasConf      = []string{"confidence", "classificationconfidence"}
	aliasRationale = []string{"rationale"}
	aliasSourceRef = []string{"sourceref", "sourcefile", "file"}
	aliasRestates  = []string{"restates", "restatementof"}

	aliasAccountID   = []string{"accountid", "accountnumber"}
	aliasAccountName = []string{"accountname", "account", "name", "plan"}
	aliasCategory    = []string{"category", "accounttype", "kind"}
	aliasAmount      = []string{"amount", "balance", "value", "marketvalue"}
)

// reportingAliases returns the aliases of a reporting-currency amount, e.g.
// "marketvaluecad" for base "marketvalue" when reporting in CAD.
func reportingAliases(reportingCurrency string, bases ...string) []string {
	ccy := strings.ToLower(reportingCurrency)
	var out []string
	for _, b := range bases {
		out = append(out, b+"reporting", b+ccy)
	}
	return out
}

// fold lower-cases a key and strips everything but letters and digits
func fold(key string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(key) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// row is a raw source object with folded keys
type row map[string]any

func newRow(raw map[string]any) row {
	r := make(row, len(raw))
	for k, v := range raw {
		fk := fold(k)
		if _, exists := r[fk]; !exists {
			r[fk] = v
		}
	}
	return r
}

// lookup returns the first non-nil value under any alias
func (r row) lookup(aliases []string) (any, bool) {
	for _, a := range aliases {
		if v, ok := r[a]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// str returns a trimmed string value, or "" when absent
func (r row) str(aliases []string) string {
	v, ok := r.lookup(aliases)
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case json.Number:
		return t.String()
	case float64:
		return decimal.NewFromFloat(t).String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// number parses a numeric field. present is false when the field is absent
// or a placeholder like "N/A"; err is set when a value is present but cannot
// be read as a number.
func (r row) number(aliases []string) (d decimal.Decimal, present bool, err error) {
	v, ok := r.lookup(aliases)
	if !ok {
		return decimal.Zero, false, nil
	}
	return parseDecimal(v)
}

var placeholders = map[string]bool{"": true, "n/a": true, "na": true, "-": true, "--": true, "null": true, "none": true}

// parseDecimal accepts JSON numbers and money-formatted strings such as
// "$1,234.50", "(250.00)" or "12.5%".
func parseDecimal(v any) (decimal.Decimal, bool, error) {
	switch t := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(t.String())
		if err != nil {
			return decimal.Zero, true, err
		}
		return d, true, nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return decimal.Zero, true, fmt.Errorf("non-finite number")
		}
		return decimal.NewFromFloat(t), true, nil
	case float32:
		return decimal.NewFromFloat32(t), true, nil
	case int:
		return decimal.NewFromInt(int64(t)), true, nil
	case int64:
		return decimal.NewFromInt(t), true, nil
	case decimal.Decimal:
		return t, true, nil
	case string:
		return parseMoneyString(t)
	default:
		return decimal.Zero, true, fmt.Errorf("unsupported numeric type %T", v)
	}
}

func parseMoneyString(s string) (decimal.Decimal, bool, error) {
	s = strings.TrimSpace(s)
	if placeholders[strings.ToLower(s)] {
		return decimal.Zero, false, nil
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	var sb strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-', r == '+', r == 'e', r == 'E':
			sb.WriteRune(r)
		case r == ',', r == '$', r == '%', r == ' ', r == '\u00a0':
			// separators and symbols
		default:
			// currency codes and words around the amount
			if (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') {
				continue
			}
			return decimal.Zero, true, fmt.Errorf("invalid character %q in %q", r, s)
		}
	}
	cleaned := strings.Trim(sb.String(), "eE")
	if cleaned == "" {
		return decimal.Zero, false, nil
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, true, fmt.Errorf("parse %q: %w", s, err)
	}
	if negative {
		d = d.Neg()
	}
	return d, true, nil
}
