package bucket

import (
	"fmt"
	"strings"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/models"
)

// DefaultRules is the built-in rule table. Order is significant: the first
// matching rule in a record's scope wins, so real estate is checked before
// fixed income and both before the equity catch-all.
func DefaultRules() []models.BucketRule {
	return []models.BucketRule{
		{
			Name:     "benefits-pension",
			Bucket:   models.BucketDCPension,
			Applies:  models.ScopeBenefits,
			Keywords: []string{"dc pension", "defined contribution", "pension"},
		},
		{
			Name:     "benefits-rrsp",
			Bucket:   models.BucketRRSP,
			Applies:  models.ScopeBenefits,
			Keywords: []string{"rrsp", "rsp", "registered retirement", "retirement savings"},
		},
		{
			Name:    "benefits-fallback",
			Bucket:  models.BucketCash,
			Applies: models.ScopeBenefits,
			Flag:    true,
		},
		{
			Name:    "cash",
			Bucket:  models.BucketCash,
			Applies: models.ScopeCash,
		},
		{
			Name:     "real-estate",
			Bucket:   models.BucketRealEstate,
			Applies:  models.ScopeHolding,
			Keywords: []string{"reit", "real estate", "property"},
			Symbols:  []string{"ZRE", "VRE", "XRE", "VNQ", "IYR", "O", "REXR", "STAG", "NWH.UN", "PMZ.UN"},
		},
		{
			Name:     "fixed-income",
			Bucket:   models.BucketFixedIncome,
			Applies:  models.ScopeHolding,
			Keywords: []string{"bond", "treasury", "note", "debenture", "fixed income"},
			Symbols:  []string{"HYG", "ICSH", "5565652", "ZAG", "XBB", "TLT", "IEF", "SHY", "LQD", "BNDX"},
		},
		{
			Name:     "cash-equivalent",
			Bucket:   models.BucketCash,
			Applies:  models.ScopeHolding,
			Keywords: []string{"money market", "cash management", "ultra-short", "ultra short", "high interest savings", "high-interest savings", "savings account"},
			Symbols:  []string{"CMR", "MNY", "HISU.U", "ZMMK", "PSA", "CASH.TO"},
		},
		{
			Name:    "equity",
			Bucket:  models.BucketEquity,
			Applies: models.ScopeHolding,
		},
	}
}

// RulesFromConfig converts configured rules. An empty list yields the
// built-in table.
func RulesFromConfig(cfg []common.RuleConfig) ([]models.BucketRule, error) {
	if len(cfg) == 0 {
		return DefaultRules(), nil
	}

	rules := make([]models.BucketRule, 0, len(cfg))
	for i, rc := range cfg {
		b, ok := models.ParseBucket(rc.Bucket)
		if !ok {
			return nil, fmt.Errorf("rule %d (%s): unknown bucket %q", i, rc.Name, rc.Bucket)
		}
		scope, ok := models.ParseRuleScope(strings.ToLower(rc.Scope))
		if !ok {
			return nil, fmt.Errorf("rule %d (%s): unknown scope %q", i, rc.Name, rc.Scope)
		}
		name := rc.Name
		if name == "" {
			name = fmt.Sprintf("rule-%d", i+1)
		}
		rules = append(rules, models.BucketRule{
			Name:     name,
			Bucket:   b,
			Applies:  scope,
			Keywords: rc.Keywords,
			Symbols:  rc.Symbols,
			Flag:     scope == models.ScopeBenefits && len(rc.Keywords) == 0 && len(rc.Symbols) == 0,
		})
	}
	return rules, nil
}

// compiledRule holds the lower-cased keywords and upper-cased symbols of a rule
type compiledRule struct {
	models.BucketRule
	keywords []string
	symbols  map[string]bool
}

func compile(r models.BucketRule) compiledRule {
	c := compiledRule{BucketRule: r, symbols: make(map[string]bool, len(r.Symbols))}
	for _, kw := range r.Keywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			c.keywords = append(c.keywords, kw)
		}
	}
	for _, s := range r.Symbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			c.symbols[s] = true
		}
	}
	return c
}

func (c *compiledRule) catchAll() bool {
	return len(c.keywords) == 0 && len(c.symbols) == 0
}

// matches applies the rule to a lower-cased name and an upper-cased symbol.
// Either a keyword hit or a symbol hit is enough.
func (c *compiledRule) matches(name, symbol string) bool {
	if c.catchAll() {
		return true
	}
	if symbol != "" && c.symbols[symbol] {
		return true
	}
	for _, kw := range c.keywords {
		if strings.Contains(name, kw) {
			return true
		}
	}
	return false
}
