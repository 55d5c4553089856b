// Package handler exposes the reconciliation engine over HTTP. Handlers stay
// thin: decode the request, call one service method, translate domain errors
// to status codes.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/finsight/finsight-go/internal/domain"
	"github.com/finsight/finsight-go/internal/infra/observability"
	"github.com/finsight/finsight-go/internal/service"
)

var tracer = otel.Tracer("handler")

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(
	recSvc *service.Reconciler,
	insightSvc *service.Insight,
	metrics *observability.Metrics,
	logger *zap.Logger,
	maxUploadBytes int64,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.RequestLogger(logger))
	r.Use(observability.TraceExtractor)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(recSvc))
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		// Ingestion
		r.Post("/reconciliation/upload", uploadHandler(recSvc, logger, maxUploadBytes))
		r.Get("/reconciliation/report", reportHandler(recSvc, logger))
		r.Get("/ledger", ledgerHandler(recSvc, logger))

		// Metrics queries
		r.Get("/metrics/series", seriesHandler(recSvc, logger))
		r.Get("/metrics/pnl", pnlHandler(recSvc, logger))
		r.Get("/metrics/kpi", kpiHandler(recSvc, logger))
		r.Get("/metrics/breakdown", breakdownHandler(recSvc, logger))
		r.Get("/metrics/pipeline", pipelineMetricsHandler(metrics))

		// Exports
		r.Get("/export/{table}", exportHandler(recSvc, logger))

		// Insights
		r.Post("/insights", insightsHandler(insightSvc, logger))
	})

	return r
}

func healthzHandler(recSvc *service.Reconciler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snapshot := "none"
		if report, err := recSvc.Report(r.Context()); err == nil {
			snapshot = report.SnapshotID
		} else {
			var notFound *domain.ErrNotFound
			if !errors.As(err, &notFound) {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"status":     "healthy",
			"snapshot":   snapshot,
			"checked_at": time.Now().Format(time.RFC3339),
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
