package domain

// SkippedRow records a single input row that failed parsing and was excluded
// from the batch. Non-fatal: the batch still succeeds with the remaining rows.
type SkippedRow struct {
	Source SourceKind `json:"source"`
	Row    int        `json:"row"`
	Field  string     `json:"field"`
	Value  string     `json:"value"`
	Reason string     `json:"reason"`
}

// ReconciliationReport is the exception report for one ingestion cycle.
// Recomputed fresh every cycle, never persisted across runs.
type ReconciliationReport struct {
	SnapshotID string `json:"snapshot_id"`

	// UnmappedTransactions holds every Unmapped or Ambiguous transaction,
	// ordered by date ascending, ties broken by original input order.
	UnmappedTransactions []MappedTransaction `json:"unmapped_transactions"`

	// OrphanAccounts are chart entries that received zero Mapped
	// transactions in this run, sorted ascending.
	OrphanAccounts []string `json:"orphan_accounts"`

	AliasConflicts []AliasConflict `json:"alias_conflicts,omitempty"`
	SkippedRows    []SkippedRow    `json:"skipped_rows,omitempty"`

	TotalTransactions int `json:"total_transactions"`
	MappedCount       int `json:"mapped_count"`
	UnmappedCount     int `json:"unmapped_count"`
	AmbiguousCount    int `json:"ambiguous_count"`
}
