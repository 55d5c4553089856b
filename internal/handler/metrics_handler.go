package handler

import (
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/finsight/finsight-go/internal/domain"
	"github.com/finsight/finsight-go/internal/infra/observability"
	"github.com/finsight/finsight-go/internal/service"
)

// ============================================================
// Metric queries — GET /v1/metrics/*
// ============================================================

func seriesHandler(svc *service.Reconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/metrics/series")
		defer span.End()

		metric, err := domain.ParseMetric(r.URL.Query().Get("metric"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		rng, err := parseRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		growth := r.URL.Query().Get("growth") == "true"
		span.SetAttributes(
			attribute.String("metric", string(metric)),
			attribute.Bool("growth", growth),
		)

		series, err := svc.Series(ctx, metric, rng, growth)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, series)
	}
}

func pnlHandler(svc *service.Reconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/metrics/pnl")
		defer span.End()

		rng, err := parseRange(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		table, err := svc.PnL(ctx, rng)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, table)
	}
}

func kpiHandler(svc *service.Reconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/metrics/kpi")
		defer span.End()

		summary, err := svc.KPIs(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func breakdownHandler(svc *service.Reconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/metrics/breakdown")
		defer span.End()

		metric, err := domain.ParseMetric(r.URL.Query().Get("metric"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		dim, err := domain.ParseDimension(r.URL.Query().Get("dimension"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(
			attribute.String("metric", string(metric)),
			attribute.String("dimension", string(dim)),
		)

		table, err := svc.Breakdown(ctx, metric, dim, parseLimit(r))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, table)
	}
}

// pipelineMetricsHandler serves a JSON snapshot of pipeline counters,
// complementing the Prometheus exposition on /metrics.
func pipelineMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetPipelineSnapshot())
	}
}
