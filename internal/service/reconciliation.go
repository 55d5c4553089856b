// Package service orchestrates the reconciliation pipeline: normalize the
// uploaded files, map categories against the chart of accounts, merge into a
// ledger, and serve metric queries against the current snapshot. One ledger
// is live at a time; a new upload supersedes it wholesale.
package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/finsight/finsight-go/internal/analytics"
	"github.com/finsight/finsight-go/internal/coa"
	"github.com/finsight/finsight-go/internal/config"
	"github.com/finsight/finsight-go/internal/domain"
	"github.com/finsight/finsight-go/internal/export"
	"github.com/finsight/finsight-go/internal/infra/observability"
	"github.com/finsight/finsight-go/internal/infra/resilience"
	"github.com/finsight/finsight-go/internal/normalizer"
	"github.com/finsight/finsight-go/internal/port"
	"github.com/finsight/finsight-go/internal/reconcile"
)

var tracer = otel.Tracer("service/reconciliation")

// Upload is one input file of an ingestion cycle.
type Upload struct {
	Name   string
	Reader io.Reader
}

// Reconciler runs ingestion cycles and answers metric queries against the
// latest ledger.
type Reconciler struct {
	pipeline *config.Pipeline
	bulkhead *resilience.Bulkhead
	cache    port.Cache[any]
	metrics  *observability.Metrics
	logger   *zap.Logger

	mu     sync.RWMutex
	ledger *domain.Ledger
	report *domain.ReconciliationReport
	index  *coa.Index
}

// NewReconciler creates the reconciliation service with all dependencies
// injected.
func NewReconciler(
	pipeline *config.Pipeline,
	bulkhead *resilience.Bulkhead,
	cache port.Cache[any],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		pipeline: pipeline,
		bulkhead: bulkhead,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
	}
}

// RunCycle ingests one sales file, one expenses file and one chart of
// accounts, and replaces the current ledger with the result. Cycles are
// serialized through the bulkhead so concurrent uploads cannot interleave
// their snapshot swaps with half-built state.
func (r *Reconciler) RunCycle(ctx context.Context, sales, expenses, chart Upload) (*domain.ReconciliationReport, error) {
	if err := r.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer r.bulkhead.Release()

	ctx, span := tracer.Start(ctx, "Reconciler.RunCycle")
	defer span.End()

	start := time.Now()
	report, err := r.runCycle(ctx, sales, expenses, chart)
	r.metrics.RecordStageDuration("cycle", time.Since(start))
	if err != nil {
		r.metrics.IncrUploadCycle("error")
		return nil, err
	}
	r.metrics.IncrUploadCycle("success")

	span.SetAttributes(
		attribute.String("snapshot.id", report.SnapshotID),
		attribute.Int("transactions.total", report.TotalTransactions),
		attribute.Int("transactions.unmapped", report.UnmappedCount+report.AmbiguousCount),
	)
	return report, nil
}

func (r *Reconciler) runCycle(ctx context.Context, sales, expenses, chart Upload) (*domain.ReconciliationReport, error) {
	n := normalizer.New(r.pipeline)

	chartStart := time.Now()
	chartTable, err := normalizer.ReadTable(chart.Reader, chart.Name, r.pipeline.CSV.Delimiter)
	if err != nil {
		return nil, err
	}
	chartEntries, chartSkipped, err := n.NormalizeChart(chartTable)
	if err != nil {
		return nil, err
	}
	r.metrics.RecordStageDuration("normalize_chart", time.Since(chartStart))
	r.metrics.AddRowsSkipped(string(domain.SourceChart), len(chartSkipped))

	var (
		salesBatch   *normalizer.Batch
		expenseBatch *normalizer.Batch
	)

	normStart := time.Now()
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := gCtx.Err(); err != nil {
			return err
		}
		table, err := normalizer.ReadTable(sales.Reader, sales.Name, r.pipeline.CSV.Delimiter)
		if err != nil {
			return err
		}
		salesBatch, err = n.NormalizeTransactions(table, domain.KindSale, domain.SourceSales)
		return err
	})
	g.Go(func() error {
		if err := gCtx.Err(); err != nil {
			return err
		}
		table, err := normalizer.ReadTable(expenses.Reader, expenses.Name, r.pipeline.CSV.Delimiter)
		if err != nil {
			return err
		}
		expenseBatch, err = n.NormalizeTransactions(table, domain.KindExpense, domain.SourceExpenses)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	r.metrics.RecordStageDuration("normalize", time.Since(normStart))
	r.metrics.AddRowsNormalized(string(domain.SourceSales), len(salesBatch.Transactions))
	r.metrics.AddRowsNormalized(string(domain.SourceExpenses), len(expenseBatch.Transactions))
	r.metrics.AddRowsSkipped(string(domain.SourceSales), len(salesBatch.Skipped))
	r.metrics.AddRowsSkipped(string(domain.SourceExpenses), len(expenseBatch.Skipped))

	mergeStart := time.Now()
	ix := coa.NewIndex(chartEntries)
	skipped := append(append(chartSkipped, salesBatch.Skipped...), expenseBatch.Skipped...)
	result, err := reconcile.Merge(ix, ix.MapAll(salesBatch.Transactions), ix.MapAll(expenseBatch.Transactions), skipped)
	if err != nil {
		return nil, err
	}
	r.metrics.RecordStageDuration("merge", time.Since(mergeStart))
	r.metrics.AddUnmappedRows(result.Report.UnmappedCount + result.Report.AmbiguousCount)

	r.mu.Lock()
	r.ledger = result.Ledger
	r.report = result.Report
	r.index = ix
	r.mu.Unlock()
	r.cache.Flush()

	r.logger.Info("ingestion cycle complete",
		zap.String("snapshot_id", result.Ledger.SnapshotID),
		zap.Int("transactions", result.Report.TotalTransactions),
		zap.Int("mapped", result.Report.MappedCount),
		zap.Int("unmapped", result.Report.UnmappedCount),
		zap.Int("ambiguous", result.Report.AmbiguousCount),
		zap.Int("skipped_rows", len(skipped)),
		zap.Int("orphan_accounts", len(result.Report.OrphanAccounts)),
	)
	if result.Report.UnmappedCount+result.Report.AmbiguousCount > 0 {
		r.logger.Warn("transactions without chart mapping, review the exception export",
			zap.Int("count", result.Report.UnmappedCount+result.Report.AmbiguousCount),
		)
	}

	return result.Report, nil
}

func (r *Reconciler) snapshot() (*domain.Ledger, *domain.ReconciliationReport, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.ledger == nil {
		return nil, nil, &domain.ErrNotFound{Resource: "snapshot", ID: "current"}
	}
	return r.ledger, r.report, nil
}

// Report returns the reconciliation report for the current snapshot.
func (r *Reconciler) Report(ctx context.Context) (*domain.ReconciliationReport, error) {
	_, span := tracer.Start(ctx, "Reconciler.Report")
	defer span.End()

	_, report, err := r.snapshot()
	return report, err
}

// Ledger returns the current ledger.
func (r *Reconciler) Ledger(ctx context.Context) (*domain.Ledger, error) {
	_, span := tracer.Start(ctx, "Reconciler.Ledger")
	defer span.End()

	ledger, _, err := r.snapshot()
	return ledger, err
}

// Series computes a monthly metric series, optionally replaced by its
// month-over-month growth.
func (r *Reconciler) Series(ctx context.Context, metric domain.Metric, rng *analytics.Range, growth bool) (*domain.MetricSeries, error) {
	_, span := tracer.Start(ctx, "Reconciler.Series")
	defer span.End()

	ledger, _, err := r.snapshot()
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("series:%s:%s:%s:%v", ledger.SnapshotID, metric, rangeKey(rng), growth)
	if cached, ok := r.cache.Get(cacheKey); ok {
		if s, ok := cached.(*domain.MetricSeries); ok {
			r.metrics.IncrCacheHit("query")
			return s, nil
		}
	}
	r.metrics.IncrCacheMiss("query")

	series, err := analytics.Series(ledger, metric, rng)
	if err != nil {
		return nil, err
	}
	if growth {
		series = analytics.Growth(series)
	}
	r.cache.Set(cacheKey, series)
	return series, nil
}

// PnL computes the monthly profit & loss table.
func (r *Reconciler) PnL(ctx context.Context, rng *analytics.Range) (*domain.PnLTable, error) {
	_, span := tracer.Start(ctx, "Reconciler.PnL")
	defer span.End()

	ledger, _, err := r.snapshot()
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("pnl:%s:%s", ledger.SnapshotID, rangeKey(rng))
	if cached, ok := r.cache.Get(cacheKey); ok {
		if t, ok := cached.(*domain.PnLTable); ok {
			r.metrics.IncrCacheHit("query")
			return t, nil
		}
	}
	r.metrics.IncrCacheMiss("query")

	table, err := analytics.PnL(ledger, rng)
	if err != nil {
		return nil, err
	}
	r.cache.Set(cacheKey, table)
	return table, nil
}

// KPIs computes the headline summary for the current snapshot.
func (r *Reconciler) KPIs(ctx context.Context) (*domain.KPISummary, error) {
	_, span := tracer.Start(ctx, "Reconciler.KPIs")
	defer span.End()

	ledger, _, err := r.snapshot()
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("kpi:%s", ledger.SnapshotID)
	if cached, ok := r.cache.Get(cacheKey); ok {
		if s, ok := cached.(*domain.KPISummary); ok {
			r.metrics.IncrCacheHit("query")
			return s, nil
		}
	}
	r.metrics.IncrCacheMiss("query")

	summary := analytics.KPIs(ledger)
	r.cache.Set(cacheKey, summary)
	return summary, nil
}

// Breakdown computes a dimensional breakdown of one metric.
func (r *Reconciler) Breakdown(ctx context.Context, metric domain.Metric, dim domain.Dimension, limit int) (*domain.BreakdownTable, error) {
	_, span := tracer.Start(ctx, "Reconciler.Breakdown")
	defer span.End()

	ledger, _, err := r.snapshot()
	if err != nil {
		return nil, err
	}

	cacheKey := fmt.Sprintf("breakdown:%s:%s:%s:%d", ledger.SnapshotID, metric, dim, limit)
	if cached, ok := r.cache.Get(cacheKey); ok {
		if t, ok := cached.(*domain.BreakdownTable); ok {
			r.metrics.IncrCacheHit("query")
			return t, nil
		}
	}
	r.metrics.IncrCacheMiss("query")

	table, err := analytics.Breakdown(ledger, metric, dim, limit)
	if err != nil {
		return nil, err
	}
	r.cache.Set(cacheKey, table)
	return table, nil
}

// Export table names accepted by Export.
const (
	ExportLedger   = "ledger"
	ExportUnmapped = "unmapped_transactions"
	ExportOrphans  = "orphan_accounts"
	ExportSkipped  = "skipped_rows"
	ExportPnL      = "pnl"
)

// Export renders one of the named tables for the current snapshot.
func (r *Reconciler) Export(ctx context.Context, name string) (*export.Table, error) {
	ctx, span := tracer.Start(ctx, "Reconciler.Export")
	defer span.End()
	span.SetAttributes(attribute.String("export.table", name))

	ledger, report, err := r.snapshot()
	if err != nil {
		return nil, err
	}

	switch name {
	case ExportLedger:
		return export.LedgerTable(ledger), nil
	case ExportUnmapped:
		return export.UnmappedTable(report), nil
	case ExportOrphans:
		return export.OrphanAccountsTable(report), nil
	case ExportSkipped:
		return export.SkippedRowsTable(report), nil
	case ExportPnL:
		table, err := r.PnL(ctx, nil)
		if err != nil {
			return nil, err
		}
		return export.PnLExportTable(table), nil
	}
	return nil, &domain.ErrValidation{Field: "table", Message: fmt.Sprintf("unknown export table %q", name)}
}

func rangeKey(rng *analytics.Range) string {
	if rng == nil || !rng.Bounded {
		return "all"
	}
	return fmt.Sprintf("%s..%s", rng.From, rng.To)
}
