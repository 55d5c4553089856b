package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind tags a normalized transaction as revenue or cost. The tag comes from
// the source file the row was uploaded in, never from the sign of the amount.
type Kind string

const (
	KindSale    Kind = "sale"
	KindExpense Kind = "expense"
)

// IsValid reports whether k is one of the two recognized kinds.
func (k Kind) IsValid() bool {
	return k == KindSale || k == KindExpense
}

// SourceKind identifies which uploaded file a row (or error) belongs to.
type SourceKind string

const (
	SourceSales    SourceKind = "sales"
	SourceExpenses SourceKind = "expenses"
	SourceChart    SourceKind = "chart"
)

// Dimension keys recognized on transactions. A dimension is present only when
// the source file supplied the corresponding column.
const (
	DimProduct     = "product"
	DimRegion      = "region"
	DimExpenseType = "expense_type"
	DimCustomer    = "customer"
	DimInvoiceNo   = "invoice_no"
	DimDescription = "description"
)

// Transaction is a normalized sale or expense row.
type Transaction struct {
	ID          string            `json:"id"`
	Date        time.Time         `json:"date"`
	Amount      decimal.Decimal   `json:"amount"`
	Kind        Kind              `json:"kind"`
	RawCategory string            `json:"raw_category"`
	Dimensions  map[string]string `json:"dimensions,omitempty"`

	// Row is the line number of the row within its source file (the header
	// is line 1). It is the tiebreaker for every stable ordering downstream.
	Row int `json:"row"`
}

// Dimension returns the named dimension value, or "" when the source file
// did not supply it.
func (t Transaction) Dimension(key string) string {
	return t.Dimensions[key]
}

// MappingStatus classifies how a transaction resolved against the chart of
// accounts.
type MappingStatus string

const (
	StatusMapped    MappingStatus = "mapped"
	StatusUnmapped  MappingStatus = "unmapped"
	StatusAmbiguous MappingStatus = "ambiguous"
)

// MappedTransaction is a Transaction extended with its chart-of-accounts
// resolution. Immutable once produced; a new reconciliation run re-derives
// it rather than mutating in place.
type MappedTransaction struct {
	Transaction

	CanonicalAccount string        `json:"canonical_account,omitempty"`
	AccountType      string        `json:"account_type,omitempty"`
	MappingStatus    MappingStatus `json:"mapping_status"`
}

// Ledger is the full set of mapped transactions for one ingestion cycle.
// It is owned by that cycle and superseded wholesale by the next upload.
type Ledger struct {
	SnapshotID   string              `json:"snapshot_id"`
	CreatedAt    time.Time           `json:"created_at"`
	Transactions []MappedTransaction `json:"transactions"`
}
