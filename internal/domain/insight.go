package domain

// Insight sections the external generator knows how to analyze.
const (
	InsightTrends         = "trends"
	InsightRevenue        = "revenue"
	InsightExpenses       = "expenses"
	InsightReconciliation = "reconciliation"
)

// InsightRequest is the payload sent to the external AI insight generator.
// It only ever carries derived, read-only tables; the generator cannot
// influence engine output.
type InsightRequest struct {
	SnapshotID string                `json:"snapshot_id"`
	Section    string                `json:"section"`
	PnL        *PnLTable             `json:"pnl,omitempty"`
	Breakdowns []BreakdownTable      `json:"breakdowns,omitempty"`
	Report     *ReconciliationReport `json:"report,omitempty"`
}

// InsightResponse is the generator's free-text recommendations.
type InsightResponse struct {
	SnapshotID string     `json:"snapshot_id"`
	Section    string     `json:"section"`
	Insights   []string   `json:"insights"`
	TokensUsed TokenUsage `json:"tokens_used"`
}

// TokenUsage reports LLM token consumption for one insight call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// PipelineMetrics is a snapshot of pipeline counters for the
// GET /v1/metrics/pipeline endpoint.
type PipelineMetrics struct {
	UploadCycles     int64   `json:"upload_cycles"`
	FailedCycles     int64   `json:"failed_cycles"`
	RowsNormalized   int64   `json:"rows_normalized"`
	RowsSkipped      int64   `json:"rows_skipped"`
	UnmappedRows     int64   `json:"unmapped_rows"`
	CacheHitRate     float64 `json:"cache_hit_rate"`
	PromptTokens     int64   `json:"prompt_tokens"`
	CompletionTokens int64   `json:"completion_tokens"`
}
