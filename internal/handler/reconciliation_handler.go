package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/finsight/finsight-go/internal/domain"
	"github.com/finsight/finsight-go/internal/export"
	"github.com/finsight/finsight-go/internal/service"
)

// ============================================================
// Ingestion — POST /v1/reconciliation/upload
// ============================================================

// uploadHandler accepts a multipart form with three file parts: "sales",
// "expenses" and "chart". A successful cycle replaces the current snapshot
// and returns its reconciliation report.
func uploadHandler(svc *service.Reconciler, logger *zap.Logger, maxUploadBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/reconciliation/upload")
		defer span.End()

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
			return
		}
		defer r.MultipartForm.RemoveAll()

		uploads := make(map[string]service.Upload, 3)
		for _, part := range []string{"sales", "expenses", "chart"} {
			file, header, err := r.FormFile(part)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Sprintf("missing file part %q", part))
				return
			}
			defer file.Close()
			uploads[part] = service.Upload{Name: header.Filename, Reader: file}
		}

		report, err := svc.RunCycle(ctx, uploads["sales"], uploads["expenses"], uploads["chart"])
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("snapshot.id", report.SnapshotID))

		writeJSON(w, http.StatusCreated, report)
	}
}

// ============================================================
// Reports — GET /v1/reconciliation/report, GET /v1/ledger
// ============================================================

func reportHandler(svc *service.Reconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/reconciliation/report")
		defer span.End()

		report, err := svc.Report(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}

type ledgerPage struct {
	SnapshotID   string                     `json:"snapshot_id"`
	CreatedAt    time.Time                  `json:"created_at"`
	Total        int                        `json:"total"`
	Offset       int                        `json:"offset"`
	Limit        int                        `json:"limit"`
	Transactions []domain.MappedTransaction `json:"transactions"`
}

func ledgerHandler(svc *service.Reconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/ledger")
		defer span.End()

		offset, limit, err := parsePage(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		ledger, err := svc.Ledger(ctx)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		total := len(ledger.Transactions)
		if offset > total {
			offset = total
		}
		end := total
		if limit > 0 && offset+limit < end {
			end = offset + limit
		}

		writeJSON(w, http.StatusOK, ledgerPage{
			SnapshotID:   ledger.SnapshotID,
			CreatedAt:    ledger.CreatedAt,
			Total:        total,
			Offset:       offset,
			Limit:        limit,
			Transactions: ledger.Transactions[offset:end],
		})
	}
}

// ============================================================
// Exports — GET /v1/export/{table}
// ============================================================

func exportHandler(svc *service.Reconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/export/{table}")
		defer span.End()

		name := chi.URLParam(r, "table")
		table, err := svc.Export(ctx, name)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", table.Name+".csv"))
		if err := export.Write(w, table); err != nil {
			logger.Error("export write failed", zap.String("table", name), zap.Error(err))
		}
	}
}
