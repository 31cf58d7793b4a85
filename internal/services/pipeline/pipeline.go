// Package pipeline runs the reconciliation stages and persists snapshots
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bobmcallan/vire-recon/internal/common"
	"github.com/bobmcallan/vire-recon/internal/interfaces"
	"github.com/bobmcallan/vire-recon/internal/models"
	"github.com/bobmcallan/vire-recon/internal/services/bucket"
	"github.com/bobmcallan/vire-recon/internal/services/classify"
	"github.com/bobmcallan/vire-recon/internal/services/dedupe"
	"github.com/bobmcallan/vire-recon/internal/services/fx"
	"github.com/bobmcallan/vire-recon/internal/services/normalize"
	"github.com/bobmcallan/vire-recon/internal/services/reconcile"
)

// Pipeline is the single-pass reconciliation run:
// normalize, convert, dedupe, classify, aggregate, verify.
type Pipeline struct {
	reportingCurrency string
	normalizer        *normalize.Normalizer
	converter         *fx.Converter
	resolver          *dedupe.Resolver
	engine            *classify.Engine
	aggregator        *bucket.Aggregator
	verifier          *reconcile.Verifier
	logger            *common.Logger
	now               func() time.Time
}

// New builds a pipeline from configuration. lookups are the external
// classification sources in the order they are tried.
func New(cfg *common.Config, lookups []interfaces.ClassificationLookup, logger *common.Logger) (*Pipeline, error) {
	rules, err := bucket.RulesFromConfig(cfg.Rules)
	if err != nil {
		return nil, err
	}
	aggregator, err := bucket.NewAggregator(rules, logger)
	if err != nil {
		return nil, err
	}
	policy, err := reconcile.PolicyFromConfig(cfg.Reconcile)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		reportingCurrency: cfg.ReportingCurrency,
		normalizer:        normalize.NewNormalizer(cfg.ReportingCurrency, logger),
		converter:         fx.NewConverter(cfg.FX, cfg.ReportingCurrency, logger),
		resolver:          dedupe.NewResolver(cfg.Dedupe, logger),
		engine:            classify.NewEngine(cfg.Classify, lookups, logger),
		aggregator:        aggregator,
		verifier:          reconcile.NewVerifier(policy, logger),
		logger:            logger,
		now:               time.Now,
	}, nil
}

// Run executes every stage and returns a complete snapshot, or an error and
// no snapshot at all.
func (p *Pipeline) Run(ctx context.Context, input *models.RunInput, overrides map[string]*models.ClassificationRecord) (*models.Snapshot, error) {
	if input == nil || strings.TrimSpace(input.SnapshotRef) == "" {
		return nil, fmt.Errorf("%w: snapshot_ref is required", normalize.ErrStructuralInput)
	}

	runID := uuid.New().String()
	ctx = common.WithRunID(ctx, runID)
	start := p.now()

	rs, err := p.normalizer.Normalize(input)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	rs = p.converter.Convert(rs)

	rs, dedupeSummary := p.resolver.Resolve(rs)

	rs, classSummary, err := p.engine.Classify(ctx, rs, overrides)
	if err != nil {
		return nil, fmt.Errorf("classify: %w", err)
	}

	alloc, bucketEvents, err := p.aggregator.Aggregate(rs)
	if err != nil {
		return nil, fmt.Errorf("aggregate: %w", err)
	}
	rs.Record(bucketEvents...)

	result := p.verifier.Verify(alloc, input.ExpectedTotal, input.SnapshotRef)
	rs.Record(result.Events...)

	snapshot := &models.Snapshot{
		ID:                runID,
		SnapshotRef:       input.SnapshotRef,
		AsOf:              input.AsOf,
		RunAt:             start.UTC(),
		ReportingCurrency: p.reportingCurrency,
		Buckets:           result.Totals,
		Total:             result.Report.AdjustedTotal,
		Reconciliation:    result.Report,
		Dedupe:            dedupeSummary,
		Classification:    classSummary,
		Anomalies:         models.CountAnomalies(rs.Audit),
		Holdings:          rs.Holdings,
		CashBalances:      rs.CashBalances,
		Assignments:       alloc.Assignments,
		Audit:             rs.Audit,
	}
	snapshot.Counts = countRecords(rs, classSummary)

	p.logger.Info().
		Str("run_id", common.RunIDFromContext(ctx)).
		Str("snapshot_ref", snapshot.SnapshotRef).
		Int("holdings", snapshot.Counts.Holdings).
		Int("cash_balances", snapshot.Counts.CashBalances).
		Str("total", snapshot.Total.String()).
		Str("status", snapshot.Reconciliation.Status).
		Bool("match", snapshot.Reconciliation.Match).
		Dur("elapsed", p.now().Sub(start)).
		Msg("Reconciliation run complete")

	return snapshot, nil
}

func countRecords(rs *models.RecordSet, cs models.ClassificationSummary) models.RecordCounts {
	c := models.RecordCounts{
		Holdings:     len(rs.Holdings),
		CashBalances: len(rs.CashBalances),
		Unclassified: cs.Unclassified,
	}
	for i := range rs.Holdings {
		if rs.Holdings[i].Superseded {
			c.Superseded++
		} else if rs.Holdings[i].NeedsReview {
			c.NeedsReview++
		}
	}
	for i := range rs.CashBalances {
		if rs.CashBalances[i].Superseded {
			c.Superseded++
		}
	}
	return c
}
