package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/finsight/finsight-go/internal/domain"
)

// Metrics holds all Prometheus metrics for the reconciliation pipeline.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	stageDuration  *prometheus.HistogramVec
	uploadCycles   *prometheus.CounterVec
	rowsNormalized *prometheus.CounterVec
	rowsSkipped    *prometheus.CounterVec
	unmappedRows   prometheus.Counter
	externalErrors *prometheus.CounterVec
	cacheHits      *prometheus.CounterVec
	cacheMisses    *prometheus.CounterVec
	tokensUsed     *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "finsight_stage_duration_seconds",
				Help:    "Duration of pipeline stages.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		uploadCycles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_upload_cycles_total",
				Help: "Total ingestion cycles processed.",
			},
			[]string{"status"},
		),
		rowsNormalized: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_rows_normalized_total",
				Help: "Total rows successfully normalized.",
			},
			[]string{"source"},
		),
		rowsSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_rows_skipped_total",
				Help: "Total rows dropped during normalization.",
			},
			[]string{"source"},
		),
		unmappedRows: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "finsight_unmapped_rows_total",
				Help: "Total transactions left unmapped or ambiguous per cycle.",
			},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "finsight_llm_tokens_total",
				Help: "Total LLM tokens consumed by insight generation.",
			},
			[]string{"type"},
		),
	}
}

// RecordStageDuration records the duration of one pipeline stage.
func (m *Metrics) RecordStageDuration(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// IncrUploadCycle increments the cycle counter with a status label
// ("success" or "error").
func (m *Metrics) IncrUploadCycle(status string) {
	m.uploadCycles.WithLabelValues(status).Inc()
}

// AddRowsNormalized records rows that survived normalization.
func (m *Metrics) AddRowsNormalized(source string, n int) {
	m.rowsNormalized.WithLabelValues(source).Add(float64(n))
}

// AddRowsSkipped records rows dropped during normalization.
func (m *Metrics) AddRowsSkipped(source string, n int) {
	m.rowsSkipped.WithLabelValues(source).Add(float64(n))
}

// AddUnmappedRows records reconciliation exceptions for a cycle.
func (m *Metrics) AddUnmappedRows(n int) {
	m.unmappedRows.Add(float64(n))
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// GetPipelineSnapshot returns a snapshot of pipeline counters for the
// GET /v1/metrics/pipeline endpoint.
func (m *Metrics) GetPipelineSnapshot() *domain.PipelineMetrics {
	// Prometheus counters expose cumulative values.
	success := getCounterValue(m.uploadCycles.WithLabelValues("success"))
	failed := getCounterValue(m.uploadCycles.WithLabelValues("error"))

	normalized := getCounterValue(m.rowsNormalized.WithLabelValues(string(domain.SourceSales))) +
		getCounterValue(m.rowsNormalized.WithLabelValues(string(domain.SourceExpenses)))
	skipped := getCounterValue(m.rowsSkipped.WithLabelValues(string(domain.SourceSales))) +
		getCounterValue(m.rowsSkipped.WithLabelValues(string(domain.SourceExpenses))) +
		getCounterValue(m.rowsSkipped.WithLabelValues(string(domain.SourceChart)))

	hits := getCounterValue(m.cacheHits.WithLabelValues("query"))
	misses := getCounterValue(m.cacheMisses.WithLabelValues("query"))
	cacheHitRate := float64(0)
	if hits+misses > 0 {
		cacheHitRate = hits / (hits + misses)
	}

	return &domain.PipelineMetrics{
		UploadCycles:     int64(success + failed),
		FailedCycles:     int64(failed),
		RowsNormalized:   int64(normalized),
		RowsSkipped:      int64(skipped),
		UnmappedRows:     int64(getCounterValue(m.unmappedRows)),
		CacheHitRate:     cacheHitRate,
		PromptTokens:     int64(getCounterValue(m.tokensUsed.WithLabelValues("prompt"))),
		CompletionTokens: int64(getCounterValue(m.tokensUsed.WithLabelValues("completion"))),
	}
}

// getCounterValue extracts the current float64 value from a counter.
func getCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
