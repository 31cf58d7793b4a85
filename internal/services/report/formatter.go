package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/models"
)

// formatSummary generates the markdown summary of a snapshot
func formatSummary(s *models.Snapshot) string {
	var sb strings.Builder
	ccy := s.ReportingCurrency
	money := func(d decimal.Decimal) string { return common.FormatMoney(d, ccy) }

	sb.WriteString(fmt.Sprintf("# Reconciliation: %s\n\n", s.SnapshotRef))
	sb.WriteString(fmt.Sprintf("**Run:** %s (%s)\n", s.RunAt.Format("2006-01-02 15:04"), s.ID))
	if s.AsOf != "" {
		sb.WriteString(fmt.Sprintf("**As of:** %s\n", s.AsOf))
	}
	sb.WriteString(fmt.Sprintf("**Total:** %s\n", money(s.Total)))
	sb.WriteString(fmt.Sprintf("**Records:** %d holdings, %d cash balances, %d superseded\n\n",
		s.Counts.Holdings, s.Counts.CashBalances, s.Counts.Superseded))

	sb.WriteString("## Allocation\n\n")
	sb.WriteString("| Bucket | Records | Value | Weight |\n")
	sb.WriteString("|--------|---------|-------|--------|\n")
	for _, b := range s.Buckets {
		v := b.Total.Add(b.Adjustment)
		weight := decimal.Zero
		if !s.Total.IsZero() {
			weight = v.Div(s.Total).Mul(decimal.NewFromInt(100))
		}
		label := string(b.Bucket)
		if !b.Adjustment.IsZero() {
			label += " *"
		}
		sb.WriteString(fmt.Sprintf("| %s | %d | %s | %s |\n", label, b.Count, money(v), common.FormatPct(weight)))
	}
	sb.WriteString(fmt.Sprintf("| **Total** | | **%s** | |\n\n", money(s.Total)))

	writeReconciliation(&sb, &s.Reconciliation, money)
	writeClassification(&sb, &s.Classification)
	writeAnomalies(&sb, s.Anomalies)

	return sb.String()
}

func writeReconciliation(sb *strings.Builder, r *models.ReconciliationReport, money func(decimal.Decimal) string) {
	sb.WriteString("## Reconciliation\n\n")
	if !r.ExpectedTotal.Valid {
		sb.WriteString("No expected total supplied; totals not verified.\n\n")
		return
	}

	result := "MISMATCH"
	if r.Match {
		result = "MATCH"
	}
	sb.WriteString(fmt.Sprintf("**Result:** %s (%s)\n", result, r.Status))
	sb.WriteString(fmt.Sprintf("**Expected:** %s\n", money(r.ExpectedTotal.Decimal)))
	sb.WriteString(fmt.Sprintf("**Computed:** %s\n", money(r.ComputedTotal)))
	sb.WriteString(fmt.Sprintf("**Difference:** %s (%s)\n", money(r.Difference), common.FormatPct(r.DifferencePct)))
	sb.WriteString(fmt.Sprintf("**Tolerance:** %s\n", money(r.Tolerance)))
	for _, a := range r.Adjustments {
		sb.WriteString(fmt.Sprintf("\n\\* %s: %s added to %s (source: %s)\n", a.Label, money(a.Amount), a.Bucket, a.Source))
	}
	sb.WriteString("\n")
}

func writeClassification(sb *strings.Builder, c *models.ClassificationSummary) {
	sb.WriteString("## Classification\n\n")
	sb.WriteString(fmt.Sprintf("%d classified, %d unclassified, %d external lookups\n\n", c.Classified, c.Unclassified, c.Lookups))

	sources := make([]string, 0, len(c.BySource))
	for src := range c.BySource {
		sources = append(sources, string(src))
	}
	sort.Strings(sources)
	for _, src := range sources {
		sb.WriteString(fmt.Sprintf("- %s: %d\n", src, c.BySource[models.ClassificationSource(src)]))
	}
	if len(sources) > 0 {
		sb.WriteString("\n")
	}

	if len(c.NeedsReview) > 0 {
		sb.WriteString(fmt.Sprintf("**Needs review:** %s\n\n", strings.Join(c.NeedsReview, ", ")))
	}
}

func writeAnomalies(sb *strings.Builder, anomalies map[models.AnomalyKind]int) {
	if len(anomalies) == 0 {
		return
	}
	kinds := make([]string, 0, len(anomalies))
	for k := range anomalies {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	sb.WriteString("## Anomalies\n\n")
	for _, k := range kinds {
		sb.WriteString(fmt.Sprintf("- %s: %d\n", k, anomalies[models.AnomalyKind(k)]))
	}
	sb.WriteString("\n")
}
