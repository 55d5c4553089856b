package handler

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/finsight/finsight-go/internal/service"
)

// ============================================================
// Insights — POST /v1/insights
// ============================================================

func insightsHandler(svc *service.Insight, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/insights")
		defer span.End()

		var req struct {
			Section string `json:"section"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Section == "" {
			writeError(w, http.StatusBadRequest, "section is required")
			return
		}
		span.SetAttributes(attribute.String("insight.section", req.Section))

		resp, err := svc.Generate(ctx, req.Section)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
