package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/finsight/finsight-go/internal/domain"
	"github.com/finsight/finsight-go/internal/infra/observability"
	"github.com/finsight/finsight-go/internal/port"
)

// Insight assembles the metric context for one report section and asks the
// external generator for commentary.
type Insight struct {
	reconciler *Reconciler
	generator  port.InsightGenerator
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewInsight creates the insight service.
func NewInsight(reconciler *Reconciler, generator port.InsightGenerator, metrics *observability.Metrics, logger *zap.Logger) *Insight {
	return &Insight{
		reconciler: reconciler,
		generator:  generator,
		metrics:    metrics,
		logger:     logger,
	}
}

// Generate produces commentary for one section of the current snapshot.
func (s *Insight) Generate(ctx context.Context, section string) (*domain.InsightResponse, error) {
	ctx, span := tracer.Start(ctx, "Insight.Generate")
	defer span.End()
	span.SetAttributes(attribute.String("insight.section", section))

	start := time.Now()
	defer func() {
		s.metrics.RecordStageDuration("insight", time.Since(start))
	}()

	req, err := s.buildRequest(ctx, section)
	if err != nil {
		return nil, err
	}

	resp, err := s.generator.Generate(ctx, req)
	if err != nil {
		s.metrics.IncrExternalError("insight")
		s.logger.Error("insight generation failed",
			zap.String("section", section),
			zap.Error(err),
		)
		return nil, err
	}

	s.metrics.RecordTokens(resp.TokensUsed.PromptTokens, resp.TokensUsed.CompletionTokens)
	s.logger.Info("insight generated",
		zap.String("section", section),
		zap.Int("insights", len(resp.Insights)),
		zap.Int("total_tokens", resp.TokensUsed.TotalTokens),
	)
	return resp, nil
}

func (s *Insight) buildRequest(ctx context.Context, section string) (*domain.InsightRequest, error) {
	ledger, err := s.reconciler.Ledger(ctx)
	if err != nil {
		return nil, err
	}

	req := &domain.InsightRequest{
		SnapshotID: ledger.SnapshotID,
		Section:    section,
	}

	switch section {
	case domain.InsightTrends:
		pnl, err := s.reconciler.PnL(ctx, nil)
		if err != nil {
			return nil, err
		}
		req.PnL = pnl

	case domain.InsightRevenue:
		pnl, err := s.reconciler.PnL(ctx, nil)
		if err != nil {
			return nil, err
		}
		req.PnL = pnl
		for _, dim := range []domain.Dimension{domain.DimensionProduct, domain.DimensionRegion} {
			table, err := s.reconciler.Breakdown(ctx, domain.MetricRevenue, dim, 10)
			if err != nil {
				return nil, err
			}
			req.Breakdowns = append(req.Breakdowns, *table)
		}

	case domain.InsightExpenses:
		pnl, err := s.reconciler.PnL(ctx, nil)
		if err != nil {
			return nil, err
		}
		req.PnL = pnl
		table, err := s.reconciler.Breakdown(ctx, domain.MetricExpenses, domain.DimensionExpenseType, 10)
		if err != nil {
			return nil, err
		}
		req.Breakdowns = append(req.Breakdowns, *table)

	case domain.InsightReconciliation:
		report, err := s.reconciler.Report(ctx)
		if err != nil {
			return nil, err
		}
		req.Report = report

	default:
		return nil, &domain.ErrValidation{Field: "section", Message: fmt.Sprintf("unknown insight section %q", section)}
	}

	return req, nil
}
