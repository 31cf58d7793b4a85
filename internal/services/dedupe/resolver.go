// Package dedupe resolves ambiguous and duplicate cash representations
package dedupe

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/models"
)

const (
	stage = "dedupe"

	CashSector = "Cash & Equivalents"
	CashRegion = "Cash"
)

// Class is the partition a record falls in
type Class int

const (
	ClassCashLikeSecurity Class = iota + 1 // symbol holding that behaves like cash
	ClassBankCash                          // symbol-less balance
	ClassSecurity                          // any other symbol holding
	ClassBenefits                          // benefits portal balance
)

// Resolver partitions records and resolves cash representations
type Resolver struct {
	placeholders map[string]bool
	cashSymbols  map[string]bool
	cashKeywords []string
	logger       *common.Logger
}

// NewResolver creates a resolver from the dedupe configuration
func NewResolver(cfg common.DedupeConfig, logger *common.Logger) *Resolver {
	r := &Resolver{
		placeholders: upperSet(cfg.PlaceholderSymbols),
		cashSymbols:  upperSet(cfg.CashEquivalentSymbols),
		logger:       logger,
	}
	for _, kw := range cfg.CashKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			r.cashKeywords = append(r.cashKeywords, kw)
		}
	}
	return r
}

func upperSet(items []string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, s := range items {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			m[s] = true
		}
	}
	return m
}

// ClassifyHolding returns the partition class of a holding
func (r *Resolver) ClassifyHolding(h *models.Holding) Class {
	if h.IsCash() {
		return ClassBankCash
	}
	if r.cashSymbols[strings.ToUpper(h.Symbol)] {
		return ClassCashLikeSecurity
	}
	name := strings.ToLower(h.Name)
	for _, kw := range r.cashKeywords {
		if strings.Contains(name, kw) {
			return ClassCashLikeSecurity
		}
	}
	return ClassSecurity
}

// Resolve returns a copy of rs with placeholders rewritten and restated or
// duplicated cash representations superseded. Superseded records stay in
// the set and the audit trail.
func (r *Resolver) Resolve(rs *models.RecordSet) (*models.RecordSet, models.DedupeSummary) {
	out := rs.Clone()
	var summary models.DedupeSummary

	rewritten := r.rewritePlaceholders(out)
	summary.Rewritten = len(rewritten)

	r.applyRestatements(out)
	r.supersedeDuplicatePlaceholders(out, rewritten)
	r.flagCoincidentTotals(out)

	for i := range out.Holdings {
		h := &out.Holdings[i]
		if h.Superseded {
			summary.Superseded++
			continue
		}
		switch r.ClassifyHolding(h) {
		case ClassCashLikeSecurity:
			add(&summary.CashLikeSecurities, h.MarketValueReporting)
		case ClassBankCash:
			add(&summary.BankCash, h.MarketValueReporting)
		default:
			add(&summary.Securities, h.MarketValueReporting)
		}
	}
	for i := range out.CashBalances {
		cb := &out.CashBalances[i]
		if cb.Superseded {
			summary.Superseded++
			continue
		}
		if cb.IsBenefits() {
			add(&summary.Benefits, cb.AmountReporting)
		} else {
			add(&summary.BankCash, cb.AmountReporting)
		}
	}

	r.logger.Info().
		Int("cash_like_securities", summary.CashLikeSecurities.Count).
		Int("bank_cash", summary.BankCash.Count).
		Int("securities", summary.Securities.Count).
		Int("benefits", summary.Benefits.Count).
		Int("rewritten", summary.Rewritten).
		Int("superseded", summary.Superseded).
		Msg("Cash representations resolved")

	return out, summary
}

func add(c *models.DedupeClass, v decimal.Decimal) {
	c.Count++
	c.Total = c.Total.Add(v)
}

// rewritePlaceholders turns placeholder-symbol holdings into symbol-less cash.
// Returns the indexes of rewritten holdings.
func (r *Resolver) rewritePlaceholders(rs *models.RecordSet) []int {
	var idx []int
	for i := range rs.Holdings {
		h := &rs.Holdings[i]
		if !r.placeholders[strings.ToUpper(strings.TrimSpace(h.Symbol))] {
			continue
		}
		before, beforeType := h.Symbol, h.AssetType

		h.Symbol = ""
		h.AssetType = "Cash " + h.Currency
		h.Sector = CashSector
		h.Industry = CashSector
		h.IssuerRegion = CashRegion
		h.Source = models.SourceRuleBased
		h.Confidence = 1
		h.Rationale = ""
		h.NeedsReview = false

		rs.Record(models.AuditEvent{
			Stage:           stage,
			Action:          "placeholder_rewritten",
			RecordID:        h.ID,
			BeforeSymbol:    before,
			BeforeAssetType: beforeType,
			AfterAssetType:  h.AssetType,
			Message:         fmt.Sprintf("placeholder symbol %q rewritten to symbol-less cash", before),
		})
		r.logger.Info().Str("id", h.ID).Str("symbol", before).Str("asset_type", h.AssetType).Msg("Placeholder cash rewritten")
		idx = append(idx, i)
	}
	return idx
}

// recordRef addresses a holding or a cash balance in a RecordSet
type recordRef struct {
	holding int // -1 when the record is a cash balance
	cash    int
}

func (ref recordRef) supersede(rs *models.RecordSet, by string) {
	if ref.holding >= 0 {
		rs.Holdings[ref.holding].Superseded = true
		rs.Holdings[ref.holding].SupersededBy = by
		return
	}
	rs.CashBalances[ref.cash].Superseded = true
	rs.CashBalances[ref.cash].SupersededBy = by
}

func (ref recordRef) superseded(rs *models.RecordSet) bool {
	if ref.holding >= 0 {
		return rs.Holdings[ref.holding].Superseded
	}
	return rs.CashBalances[ref.cash].Superseded
}

// applyRestatements supersedes every record named in another record's
// restates field. Records are processed in input order and a record that is
// already superseded cannot supersede another.
func (r *Resolver) applyRestatements(rs *models.RecordSet) {
	index := make(map[string]recordRef, len(rs.Holdings)+len(rs.CashBalances))
	for i := range rs.Holdings {
		index[rs.Holdings[i].ID] = recordRef{holding: i, cash: -1}
	}
	for i := range rs.CashBalances {
		index[rs.CashBalances[i].ID] = recordRef{holding: -1, cash: i}
	}

	apply := func(self recordRef, id, target string) {
		if target == "" {
			return
		}
		if self.superseded(rs) {
			rs.Record(models.AuditEvent{
				Stage: stage, Action: "restatement_ignored", RecordID: id,
				Message: fmt.Sprintf("superseded record cannot restate %q", target),
			})
			return
		}
		ref, ok := index[target]
		if !ok || target == id {
			rs.Record(models.AuditEvent{
				Stage: stage, Action: "restatement_unresolved", Kind: models.AnomalyMissingField,
				RecordID: id, Field: "restates",
				Message: fmt.Sprintf("restated record %q not found", target),
			})
			return
		}
		ref.supersede(rs, id)
		rs.Record(models.AuditEvent{
			Stage: stage, Action: "superseded", Kind: models.AnomalyAmbiguousCash, RecordID: target,
			Message: fmt.Sprintf("restated by %q and excluded from aggregation", id),
		})
		r.logger.Info().Str("id", target).Str("restated_by", id).Msg("Record superseded by restatement")
	}

	for i := range rs.Holdings {
		apply(recordRef{holding: i, cash: -1}, rs.Holdings[i].ID, rs.Holdings[i].Restates)
	}
	for i := range rs.CashBalances {
		apply(recordRef{holding: -1, cash: i}, rs.CashBalances[i].ID, rs.CashBalances[i].Restates)
	}
}

// supersedeDuplicatePlaceholders handles a rewritten placeholder that repeats
// a bank cash balance already present: same currency, same amount and the
// same named account. The statement balance stays authoritative and each
// balance can stand in for at most one placeholder. A placeholder that only
// matches on amount, because an account is missing on either side, is kept
// and audited as ambiguous.
func (r *Resolver) supersedeDuplicatePlaceholders(rs *models.RecordSet, rewritten []int) {
	isRewritten := make(map[int]bool, len(rewritten))
	for _, i := range rewritten {
		isRewritten[i] = true
	}
	claimed := make(map[string]bool)

	for _, i := range rewritten {
		p := &rs.Holdings[i]
		if p.Superseded {
			continue
		}

		match, ambiguous := "", ""
		consider := func(id, currency string, amount decimal.Decimal, accounts ...string) {
			if match != "" || claimed[id] || currency != p.Currency || !amount.Equal(p.MarketValue) {
				return
			}
			switch {
			case sameAccount(p.Account, accounts...):
				match = id
			case ambiguous == "" && accountsCompatible(p.Account, accounts...):
				ambiguous = id
			}
		}
		for j := range rs.CashBalances {
			cb := &rs.CashBalances[j]
			if !cb.Superseded && !cb.IsBenefits() {
				consider(cb.ID, cb.Currency, cb.Amount, cb.AccountID, cb.AccountName)
			}
		}
		for j := range rs.Holdings {
			h := &rs.Holdings[j]
			if j != i && !isRewritten[j] && !h.Superseded && h.IsCash() {
				consider(h.ID, h.Currency, h.MarketValue, h.Account)
			}
		}

		if match == "" {
			if ambiguous != "" {
				rs.Record(models.AuditEvent{
					Stage: stage, Action: "retained_ambiguous", Kind: models.AnomalyAmbiguousCash, RecordID: p.ID,
					Message: fmt.Sprintf("placeholder cash has the same value as balance %q but no shared account; both retained", ambiguous),
				})
				r.logger.Warn().Str("id", p.ID).Str("candidate", ambiguous).Msg("Placeholder cash retained without account match")
			}
			continue
		}

		claimed[match] = true
		p.Superseded = true
		p.SupersededBy = match
		rs.Record(models.AuditEvent{
			Stage: stage, Action: "superseded", Kind: models.AnomalyAmbiguousCash, RecordID: p.ID,
			Message: fmt.Sprintf("placeholder cash duplicates balance %q and is excluded from aggregation", match),
		})
		r.logger.Warn().Str("id", p.ID).Str("duplicate_of", match).Msg("Duplicate placeholder cash superseded")
	}
}

// flagCoincidentTotals audits cash-like securities whose value equals a bank
// cash balance in the same account. Both stay in the aggregation.
func (r *Resolver) flagCoincidentTotals(rs *models.RecordSet) {
	for i := range rs.Holdings {
		h := &rs.Holdings[i]
		if h.Superseded || r.ClassifyHolding(h) != ClassCashLikeSecurity {
			continue
		}
		for j := range rs.CashBalances {
			cb := &rs.CashBalances[j]
			if cb.Superseded || cb.IsBenefits() || !cb.AmountReporting.Equal(h.MarketValueReporting) ||
				!accountsCompatible(h.Account, cb.AccountID, cb.AccountName) {
				continue
			}
			rs.Record(models.AuditEvent{
				Stage: stage, Action: "retained_distinct", Kind: models.AnomalyAmbiguousCash, RecordID: h.ID,
				Message: fmt.Sprintf("cash-like security %s and bank balance %q have equal value %s; both retained",
					h.Symbol, cb.ID, h.MarketValueReporting),
			})
		}
	}
}

// accountsCompatible treats an empty account on either side as unknown
func accountsCompatible(account string, others ...string) bool {
	account = strings.TrimSpace(account)
	if account == "" {
		return true
	}
	anyKnown := false
	for _, o := range others {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		anyKnown = true
		if strings.EqualFold(o, account) {
			return true
		}
	}
	return !anyKnown
}

// sameAccount reports whether account is known and equals one of others
func sameAccount(account string, others ...string) bool {
	account = strings.TrimSpace(account)
	if account == "" {
		return false
	}
	for _, o := range others {
		if strings.EqualFold(strings.TrimSpace(o), account) {
			return true
		}
	}
	return false
}
