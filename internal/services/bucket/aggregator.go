// Package bucket assigns every record to exactly one allocation bucket
package bucket

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/models"
)

const stage = "bucket"

// ErrUnassigned is returned when a record matches no rule
var ErrUnassigned = errors.New("record matched no bucket rule")

// Aggregator evaluates the ordered rule table
type Aggregator struct {
	rules  map[models.RuleScope][]compiledRule
	logger *common.Logger
}

// NewAggregator compiles rules. Every scope must end in a catch-all rule so
// that no record can go unassigned.
func NewAggregator(rules []models.BucketRule, logger *common.Logger) (*Aggregator, error) {
	a := &Aggregator{rules: make(map[models.RuleScope][]compiledRule), logger: logger}
	for _, r := range rules {
		a.rules[r.Applies] = append(a.rules[r.Applies], compile(r))
	}
	for _, scope := range []models.RuleScope{models.ScopeBenefits, models.ScopeCash, models.ScopeHolding} {
		scoped := a.rules[scope]
		hasCatchAll := false
		for i := range scoped {
			if scoped[i].catchAll() {
				hasCatchAll = true
				break
			}
		}
		if !hasCatchAll {
			return nil, fmt.Errorf("bucket rules: scope %s has no catch-all rule", scope)
		}
	}
	return a, nil
}

// Rules returns the rules of a scope in evaluation order
func (a *Aggregator) Rules(scope models.RuleScope) []models.BucketRule {
	out := make([]models.BucketRule, 0, len(a.rules[scope]))
	for _, c := range a.rules[scope] {
		out = append(out, c.BucketRule)
	}
	return out
}

func (a *Aggregator) match(scope models.RuleScope, name, symbol string) (*compiledRule, error) {
	name = strings.ToLower(name)
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	for i := range a.rules[scope] {
		if a.rules[scope][i].matches(name, symbol) {
			return &a.rules[scope][i], nil
		}
	}
	return nil, ErrUnassigned
}

// Aggregate assigns every active record and returns the six bucket totals.
// Superseded records are skipped. The allocation is only returned once every
// record has been assigned.
func (a *Aggregator) Aggregate(rs *models.RecordSet) (*models.Allocation, []models.AuditEvent, error) {
	holdings, balances := rs.Active()

	totals := make(map[models.Bucket]*models.BucketTotal, 6)
	for _, b := range models.AllBuckets() {
		totals[b] = &models.BucketTotal{Bucket: b}
	}

	alloc := &models.Allocation{
		Assignments: make([]models.BucketAssignment, 0, len(holdings)+len(balances)),
	}
	var events []models.AuditEvent

	assign := func(id string, kind models.RecordKind, rule *compiledRule, value decimal.Decimal) {
		t := totals[rule.Bucket]
		t.Count++
		t.Total = t.Total.Add(value)
		alloc.Total = alloc.Total.Add(value)
		alloc.Assignments = append(alloc.Assignments, models.BucketAssignment{
			RecordID: id,
			Kind:     kind,
			Bucket:   rule.Bucket,
			Rule:     rule.Name,
			Value:    value,
			Flagged:  rule.Flag,
		})
		if rule.Flag {
			events = append(events, models.AuditEvent{
				Stage:    stage,
				Action:   "fallback_assignment",
				RecordID: id,
				Message:  fmt.Sprintf("no keyword rule matched; assigned to %s by %s", rule.Bucket, rule.Name),
			})
			a.logger.Warn().Str("id", id).Str("bucket", string(rule.Bucket)).Msg("Benefits balance assigned by fallback rule")
		}
	}

	for i := range balances {
		cb := &balances[i]
		scope := models.ScopeCash
		if cb.IsBenefits() {
			scope = models.ScopeBenefits
		}
		rule, err := a.match(scope, cb.AccountName, "")
		if err != nil {
			return nil, nil, fmt.Errorf("cash balance %s: %w", cb.ID, err)
		}
		assign(cb.ID, models.RecordCash, rule, cb.AmountReporting)
	}

	for i := range holdings {
		h := &holdings[i]
		scope := models.ScopeHolding
		if h.IsCash() {
			scope = models.ScopeCash
		}
		rule, err := a.match(scope, h.Name, h.Symbol)
		if err != nil {
			return nil, nil, fmt.Errorf("holding %s: %w", h.ID, err)
		}
		assign(h.ID, models.RecordHolding, rule, h.MarketValueReporting)
	}

	for _, b := range models.AllBuckets() {
		alloc.Totals = append(alloc.Totals, *totals[b])
	}

	a.logger.Info().
		Int("records", len(alloc.Assignments)).
		Str("total", alloc.Total.String()).
		Msg("Buckets aggregated")

	return alloc, events, nil
}
