// Package classify assigns sector and region classifications to holdings
package classify

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/interfaces"
	"github.com/bobmcallan/vire-recon/internal/models"
)

const (
	stage = "classify"

	CashSector = "Cash & Equivalents"
	CashRegion = "Cash"

	maxSemanticConfidence = 0.99
)

// Engine classifies holdings through manual overrides, the rule table and
// the configured external lookups, in that order.
type Engine struct {
	lookups     []interfaces.ClassificationLookup
	threshold   float64
	concurrency int
	timeout     time.Duration
	logger      *common.Logger
}

// NewEngine creates an engine. Lookups are tried in the order given.
func NewEngine(cfg common.ClassifyConfig, lookups []interfaces.ClassificationLookup, logger *common.Logger) *Engine {
	concurrency := cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Engine{
		lookups:     lookups,
		threshold:   cfg.ConfidenceThreshold,
		concurrency: concurrency,
		timeout:     cfg.GetLookupTimeout(),
		logger:      logger,
	}
}

// pending is a holding waiting on the external lookups
type pending struct {
	index   int
	key     string
	partial *models.ClassificationRecord // keyword match, if any
	result  *lookupResult
}

// symbolJob is the single lookup made for one distinct symbol. Its request
// comes from the first holding with that symbol in input order, so the name
// and currency sent to a source do not depend on goroutine scheduling.
type symbolJob struct {
	req    interfaces.LookupRequest
	result *lookupResult
}

// Classify returns a copy of rs with every active holding classified or
// flagged for review. Only cancellation of ctx is returned as an error.
func (e *Engine) Classify(ctx context.Context, rs *models.RecordSet, overrides map[string]*models.ClassificationRecord) (*models.RecordSet, models.ClassificationSummary, error) {
	out := rs.Clone()
	var queue []*pending

	for i := range out.Holdings {
		h := &out.Holdings[i]
		if h.Superseded {
			continue
		}
		if h.IsCash() {
			if h.NeedsClassification(e.threshold) || h.Sector != CashSector {
				h.ApplyClassification(cashRecord())
			}
			continue
		}
		if ov, ok := overrides[strings.ToUpper(h.Symbol)]; ok && ov != nil {
			rec := *ov
			rec.Source = models.SourceManual
			rec.Confidence = 1
			rec.Rationale = ""
			h.ApplyClassification(&rec)
			out.Record(models.AuditEvent{
				Stage: stage, Action: "manual_override", RecordID: h.ID,
				Message: fmt.Sprintf("%s classified by manual override as %s / %s", h.Symbol, h.Sector, h.IssuerRegion),
			})
			continue
		}
		if !h.NeedsClassification(e.threshold) {
			continue
		}

		rec, complete := ruleLookup(h.Symbol, h.Name)
		if complete {
			h.ApplyClassification(rec)
			continue
		}
		queue = append(queue, &pending{index: i, key: strings.ToUpper(h.Symbol), partial: rec})
	}

	memo := newSymbolMemo(e.lookups, e.timeout)
	if len(queue) > 0 && len(e.lookups) > 0 {
		jobs := make(map[string]*symbolJob)
		var order []string
		for _, p := range queue {
			if _, ok := jobs[p.key]; ok {
				continue
			}
			h := &out.Holdings[p.index]
			jobs[p.key] = &symbolJob{req: interfaces.LookupRequest{Symbol: h.Symbol, Name: h.Name, Currency: h.Currency}}
			order = append(order, p.key)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(e.concurrency)
		for _, key := range order {
			job := jobs[key]
			g.Go(func() error {
				res, err := memo.resolve(gctx, job.req)
				if err != nil {
					return err
				}
				job.result = res
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, models.ClassificationSummary{}, fmt.Errorf("classification lookups: %w", err)
		}
		for _, p := range queue {
			p.result = jobs[p.key].result
		}
	}

	for _, p := range queue {
		e.apply(out, p)
	}

	summary := e.summarize(out, int(memo.calls.Load()))
	out.Record(models.AuditEvent{
		Stage:   stage,
		Action:  "summary",
		Message: summaryMessage(summary),
	})

	e.logger.Info().
		Int("classified", summary.Classified).
		Int("unclassified", summary.Unclassified).
		Int("lookups", summary.Lookups).
		Int("needs_review", len(summary.NeedsReview)).
		Msg("Classification complete")

	return out, summary, nil
}

func cashRecord() *models.ClassificationRecord {
	return &models.ClassificationRecord{
		Sector:       CashSector,
		Industry:     CashSector,
		IssuerRegion: CashRegion,
		Confidence:   1,
		Source:       models.SourceRuleBased,
	}
}

// apply writes the outcome for one queued holding, in holding order
func (e *Engine) apply(out *models.RecordSet, p *pending) {
	h := &out.Holdings[p.index]

	var rec *models.ClassificationRecord
	var notes []string
	complete := false
	if p.result != nil {
		notes = p.result.notes
		if p.result.complete {
			r := *p.result.record
			rec, complete = &r, true
		} else if p.result.record != nil && p.partial == nil {
			r := *p.result.record
			rec = &r
		}
	}
	if rec == nil && p.partial != nil {
		rec = p.partial
	}

	if rec != nil && rec.Source == models.SourceSemantic && rec.Confidence > maxSemanticConfidence {
		rec.Confidence = maxSemanticConfidence
	}

	switch {
	case complete:
		h.ApplyClassification(rec)
		if rec.Confidence < e.threshold {
			h.NeedsReview = true
			out.Record(models.AuditEvent{
				Stage: stage, Action: "low_confidence", Kind: models.AnomalyUnclassifiedHolding, RecordID: h.ID,
				Message: fmt.Sprintf("%s classified by %s with confidence %.2f below threshold %.2f", h.Symbol, rec.Source, rec.Confidence, e.threshold),
			})
		}
	case rec != nil:
		h.ApplyClassification(rec)
		h.NeedsReview = true
		out.Record(models.AuditEvent{
			Stage: stage, Action: "partially_classified", Kind: models.AnomalyUnclassifiedHolding, RecordID: h.ID,
			Message: fmt.Sprintf("%s has sector %s but no region; needs manual review%s", h.Symbol, h.Sector, joinNotes(notes)),
		})
	default:
		// Values the source supplied are kept; only blanks become Unknown.
		if strings.TrimSpace(h.Sector) == "" {
			h.Sector = models.Unknown
		}
		if strings.TrimSpace(h.IssuerRegion) == "" {
			h.IssuerRegion = models.Unknown
		}
		h.Source = models.SourceUnclassified
		h.Confidence = 0
		h.Rationale = ""
		h.NeedsReview = true
		out.Record(models.AuditEvent{
			Stage: stage, Action: "unclassified", Kind: models.AnomalyUnclassifiedHolding, RecordID: h.ID,
			Message: fmt.Sprintf("%s could not be classified; needs manual review%s", h.Symbol, joinNotes(notes)),
		})
		e.logger.Warn().Str("symbol", h.Symbol).Strs("notes", notes).Msg("Holding unclassified")
	}
}

func joinNotes(notes []string) string {
	if len(notes) == 0 {
		return ""
	}
	return " (" + strings.Join(notes, "; ") + ")"
}

func (e *Engine) summarize(rs *models.RecordSet, calls int) models.ClassificationSummary {
	s := models.ClassificationSummary{
		BySource: make(map[models.ClassificationSource]int),
		ByBand:   make(map[string]int),
		Lookups:  calls,
	}
	review := make(map[string]bool)

	for i := range rs.Holdings {
		h := &rs.Holdings[i]
		if h.Superseded {
			continue
		}
		s.BySource[h.Source]++
		if h.Source == models.SourceUnclassified {
			s.Unclassified++
		} else {
			s.Classified++
			s.ByBand[models.ConfidenceBand(h.Confidence)]++
		}
		if h.NeedsReview {
			label := h.Symbol
			if label == "" {
				label = h.ID
			}
			review[label] = true
		}
	}

	for label := range review {
		s.NeedsReview = append(s.NeedsReview, label)
	}
	sort.Strings(s.NeedsReview)
	return s
}

func summaryMessage(s models.ClassificationSummary) string {
	bands := make([]string, 0, 4)
	for _, b := range []string{"high", "medium", "low", "very_low"} {
		bands = append(bands, fmt.Sprintf("%s=%d", b, s.ByBand[b]))
	}
	return fmt.Sprintf("%d classified, %d unclassified, %d external lookups; confidence %s",
		s.Classified, s.Unclassified, s.Lookups, strings.Join(bands, " "))
}
