// Package normalize converts raw per-source objects into canonical records
package normalize

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/models"
)

const stage = "normalize"

// ErrStructuralInput is returned when a record collection is not a sequence
// of objects. It is the only fatal normalizer error.
var ErrStructuralInput = errors.New("structural input error")

// idNamespace seeds content-derived record ids
var idNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("vire-recon/records"))

// Normalizer builds a RecordSet from a RunInput
type Normalizer struct {
	reportingCurrency string
	logger            *common.Logger
}

// NewNormalizer creates a normalizer for the given reporting currency
func NewNormalizer(reportingCurrency string, logger *common.Logger) *Normalizer {
	return &Normalizer{
		reportingCurrency: strings.ToUpper(reportingCurrency),
		logger:            logger,
	}
}

// NormalizeJSON decodes a snapshot-input document and normalizes it.
// Numbers are decoded as json.Number so amounts keep their exact digits.
func (n *Normalizer) NormalizeJSON(data []byte) (*models.RunInput, *models.RecordSet, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var input models.RunInput
	if err := dec.Decode(&input); err != nil {
		return nil, nil, fmt.Errorf("%w: decode input document: %v", ErrStructuralInput, err)
	}

	rs, err := n.Normalize(&input)
	if err != nil {
		return nil, nil, err
	}
	return &input, rs, nil
}

// Normalize converts the raw holdings and cash balances of input. Missing
// fields are defaulted and audited; only a malformed collection is fatal.
func (n *Normalizer) Normalize(input *models.RunInput) (*models.RecordSet, error) {
	if input == nil {
		return nil, fmt.Errorf("%w: nil input", ErrStructuralInput)
	}

	holdingRows, err := rows("holdings", input.Holdings)
	if err != nil {
		return nil, err
	}
	cashRows, err := rows("cash_balances", input.CashBalances)
	if err != nil {
		return nil, err
	}

	rs := &models.RecordSet{
		Holdings:     make([]models.Holding, 0, len(holdingRows)),
		CashBalances: make([]models.CashAccountBalance, 0, len(cashRows)),
	}
	ids := newIDSet()

	for _, r := range holdingRows {
		h, events := n.holding(r)
		h.ID = ids.claim(h.ID, &events)
		rs.Holdings = append(rs.Holdings, h)
		rs.Record(events...)
	}
	for _, r := range cashRows {
		c, events := n.cashBalance(r)
		c.ID = ids.claim(c.ID, &events)
		rs.CashBalances = append(rs.CashBalances, c)
		rs.Record(events...)
	}

	n.logger.Debug().
		Int("holdings", len(rs.Holdings)).
		Int("cash_balances", len(rs.CashBalances)).
		Int("audit_events", len(rs.Audit)).
		Msg("Records normalized")

	return rs, nil
}

// rows validates that a section is a sequence of objects
func rows(section string, v any) ([]row, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []map[string]any:
		out := make([]row, len(t))
		for i, m := range t {
			if m == nil {
				return nil, fmt.Errorf("%w: %s[%d] is null", ErrStructuralInput, section, i)
			}
			out[i] = newRow(m)
		}
		return out, nil
	case []any:
		out := make([]row, len(t))
		for i, item := range t {
			m, ok := item.(map[string]any)
			if !ok || m == nil {
				return nil, fmt.Errorf("%w: %s[%d] is %T, not an object", ErrStructuralInput, section, i, item)
			}
			out[i] = newRow(m)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %s is %T, not a list of objects", ErrStructuralInput, section, v)
	}
}

func (n *Normalizer) holding(r row) (models.Holding, []models.AuditEvent) {
	var events []models.AuditEvent
	h := models.Holding{
		ID:        r.str(aliasID),
		Symbol:    strings.ToUpper(r.str(aliasSymbol)),
		Name:      r.str(aliasName),
		Account:   r.str(aliasAccount),
		SourceRef: r.str(aliasSourceRef),
		Restates:  r.str(aliasRestates),
		Rationale: r.str(aliasRationale),
	}

	h.Currency, events = n.currency(r, h.ID, events)

	num := func(field string, aliases []string, required bool) decimal.Decimal {
		d, present, err := r.number(aliases)
		switch {
		case err != nil:
			events = append(events, missing(h.ID, field, fmt.Sprintf("unreadable %s defaulted to 0: %v", field, err)))
		case !present && required:
			events = append(events, missing(h.ID, field, field+" missing, defaulted to 0"))
		}
		return d
	}

	h.Quantity = num("quantity", aliasQuantity, false)
	h.LastPrice = num("last_price", aliasLastPrice, false)
	h.MarketValue = num("market_value", aliasValue, true)
	h.BookValue = num("book_value", aliasBook, false)
	h.UnrealizedGain = num("unrealized_gain", aliasGain, false)
	h.UnrealizedGainPct = num("unrealized_gain_pct", aliasGainPct, false)
	h.AnnualIncome = num("annual_income", aliasIncome, false)

	if d, present, err := r.number(reportingAliases(n.reportingCurrency, "marketvalue", "value")); err == nil && present {
		h.ReportedValue = decimal.NewNullDecimal(d)
	}

	if h.Name == "" {
		h.Name = h.Symbol
		if h.Name == "" {
			h.Name = models.Unknown
		}
		events = append(events, missing(h.ID, "name", "name missing, defaulted to "+h.Name))
	}

	h.AssetType = orUnknown(r.str(aliasAssetType))
	h.Sector = orUnknown(r.str(aliasSector))
	h.Industry = orUnknown(r.str(aliasIndustry))
	h.IssuerRegion = orUnknown(r.str(aliasRegion))
	h.ListingCountry = orUnknown(r.str(aliasListing))

	known := h.Sector != models.Unknown && h.IssuerRegion != models.Unknown
	h.Source = parseSource(r.str(aliasSource), known)
	if c, present, err := r.number(aliasConf); err == nil && present {
		f, _ := c.Float64()
		h.Confidence = clamp01(f)
	} else if h.Source != models.SourceUnclassified {
		h.Confidence = 1
	}
	if h.Source != models.SourceSemantic {
		h.Rationale = ""
	}

	if h.ID == "" {
		h.ID = contentID("holding", h.Symbol, h.Name, h.Account, h.Currency, h.MarketValue.String(), h.SourceRef)
	}
	for i := range events {
		events[i].RecordID = h.ID
	}
	return h, events
}

func (n *Normalizer) cashBalance(r row) (models.CashAccountBalance, []models.AuditEvent) {
	var events []models.AuditEvent
	c := models.CashAccountBalance{
		ID:          r.str(aliasID),
		AccountID:   r.str(aliasAccountID),
		AccountName: r.str(aliasAccountName),
		SourceRef:   r.str(aliasSourceRef),
		Restates:    r.str(aliasRestates),
	}

	c.Currency, events = n.currency(r, c.ID, events)

	category := r.str(aliasCategory)
	c.Category = parseCategory(category, c.AccountName)
	if category == "" {
		events = append(events, missing(c.ID, "category", "category missing, inferred "+string(c.Category)))
	}

	amount, present, err := r.number(aliasAmount)
	switch {
	case err != nil:
		events = append(events, missing(c.ID, "amount", fmt.Sprintf("unreadable amount defaulted to 0: %v", err)))
	case !present:
		events = append(events, missing(c.ID, "amount", "amount missing, defaulted to 0"))
	}
	c.Amount = amount

	if d, present, err := r.number(reportingAliases(n.reportingCurrency, "amount", "balance")); err == nil && present {
		c.ReportedAmount = decimal.NewNullDecimal(d)
	}

	if c.AccountName == "" {
		c.AccountName = c.AccountID
		if c.AccountName == "" {
			c.AccountName = models.Unknown
		}
		events = append(events, missing(c.ID, "account_name", "account name missing"))
	}

	if c.ID == "" {
		c.ID = contentID("cash", c.AccountID, c.AccountName, string(c.Category), c.Currency, c.Amount.String(), c.SourceRef)
	}
	for i := range events {
		events[i].RecordID = c.ID
	}
	return c, events
}

// currency reads and validates the ISO code. Unknown codes are kept as given
// and audited; a missing code defaults to the reporting currency.
func (n *Normalizer) currency(r row, id string, events []models.AuditEvent) (string, []models.AuditEvent) {
	code := strings.ToUpper(r.str(aliasCurrency))
	if code == "" {
		return n.reportingCurrency, append(events, missing(id, "currency", "currency missing, defaulted to "+n.reportingCurrency))
	}
	if money.GetCurrency(code) == nil {
		events = append(events, missing(id, "currency", fmt.Sprintf("unknown currency code %q", code)))
	}
	return code, events
}

func missing(id, field, msg string) models.AuditEvent {
	return models.AuditEvent{
		Stage:    stage,
		Action:   "defaulted",
		Kind:     models.AnomalyMissingField,
		RecordID: id,
		Field:    field,
		Message:  msg,
	}
}

func orUnknown(s string) string {
	if s == "" || strings.EqualFold(s, "unknown") || strings.EqualFold(s, "n/a") {
		return models.Unknown
	}
	return s
}

func parseSource(s string, known bool) models.ClassificationSource {
	switch models.ClassificationSource(strings.ToLower(s)) {
	case models.SourceRuleBased, models.SourceMarketData, models.SourceSemantic, models.SourceManual:
		if known {
			return models.ClassificationSource(strings.ToLower(s))
		}
	}
	if known {
		return models.SourceRuleBased
	}
	return models.SourceUnclassified
}

func parseCategory(s, accountName string) models.CashCategory {
	switch fold(s) {
	case "benefits", "benefit", "pension", "dcpension", "rrsp", "groupplan":
		return models.CashCategoryBenefits
	case "":
		name := strings.ToLower(accountName)
		for _, kw := range []string{"pension", "rrsp", "retirement"} {
			if strings.Contains(name, kw) {
				return models.CashCategoryBenefits
			}
		}
	}
	return models.CashCategoryBrokerage
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// contentID derives a stable id from record content
func contentID(kind string, parts ...string) string {
	return kind + "-" + uuid.NewSHA1(idNamespace, []byte(strings.Join(parts, "\x1f"))).String()
}

// idSet disambiguates repeated ids with a "#n" suffix
type idSet map[string]int

func newIDSet() idSet { return make(idSet) }

func (s idSet) claim(id string, events *[]models.AuditEvent) string {
	s[id]++
	if s[id] == 1 {
		return id
	}
	next := id + "#" + strconv.Itoa(s[id])
	for s[next] > 0 {
		s[id]++
		next = id + "#" + strconv.Itoa(s[id])
	}
	s[next]++
	for i := range *events {
		(*events)[i].RecordID = next
	}
	*events = append(*events, models.AuditEvent{
		Stage:    stage,
		Action:   "id_disambiguated",
		RecordID: next,
		Field:    "id",
		Message:  fmt.Sprintf("duplicate id %q renamed to %q", id, next),
	})
	return next
}
