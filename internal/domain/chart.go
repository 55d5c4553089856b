package domain

// ChartEntry is one canonical account in the chart of accounts, with the raw
// category aliases that map to it.
type ChartEntry struct {
	CanonicalAccount string   `json:"canonical_account"`
	AccountType      string   `json:"account_type,omitempty"` // e.g. Revenue, OPEX, COGS
	Aliases          []string `json:"aliases"`
}

// ChartOfAccounts is the canonical account taxonomy for a reconciliation run.
// Entries preserve source-file order. Alias uniqueness across the whole chart
// is an invariant of a well-formed chart; violations are kept and surfaced as
// AliasConflicts, never resolved silently.
type ChartOfAccounts struct {
	Entries []ChartEntry `json:"entries"`
}

// AliasConflict records an alias claimed by more than one canonical account,
// a mapping-configuration defect. Every transaction bearing the alias is
// marked Ambiguous.
type AliasConflict struct {
	Alias    string   `json:"alias"`
	Accounts []string `json:"accounts"`
}
