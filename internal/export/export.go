// Package export renders ledgers, reports and metric tables as delimited
// output. Undefined metric values render as empty cells so spreadsheet
// consumers never mistake a missing margin for a zero one.
package export

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/finsight/finsight-go/internal/domain"
)

const dateLayout = "2006-01-02"

// Table is a named grid ready for delimited output.
type Table struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// Write renders the table as CSV.
func Write(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Headers); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range t.Rows {
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// LedgerTable renders every transaction in the ledger.
func LedgerTable(ledger *domain.Ledger) *Table {
	t := &Table{
		Name:    "ledger",
		Headers: []string{"id", "date", "kind", "amount", "raw_category", "canonical_account", "account_type", "mapping_status", "product", "region", "customer", "invoice_no", "description"},
	}
	for _, tx := range ledger.Transactions {
		t.Rows = append(t.Rows, []string{
			tx.ID,
			tx.Date.Format(dateLayout),
			string(tx.Kind),
			tx.Amount.String(),
			tx.RawCategory,
			tx.CanonicalAccount,
			tx.AccountType,
			string(tx.MappingStatus),
			tx.Dimensions[domain.DimProduct],
			tx.Dimensions[domain.DimRegion],
			tx.Dimensions[domain.DimCustomer],
			tx.Dimensions[domain.DimInvoiceNo],
			tx.Dimensions[domain.DimDescription],
		})
	}
	return t
}

// UnmappedTable renders the reconciliation exceptions for review.
func UnmappedTable(report *domain.ReconciliationReport) *Table {
	t := &Table{
		Name:    "unmapped_transactions",
		Headers: []string{"id", "date", "kind", "amount", "raw_category", "mapping_status"},
	}
	for _, tx := range report.UnmappedTransactions {
		t.Rows = append(t.Rows, []string{
			tx.ID,
			tx.Date.Format(dateLayout),
			string(tx.Kind),
			tx.Amount.String(),
			tx.RawCategory,
			string(tx.MappingStatus),
		})
	}
	return t
}

// OrphanAccountsTable renders chart accounts that matched no transactions.
func OrphanAccountsTable(report *domain.ReconciliationReport) *Table {
	t := &Table{Name: "orphan_accounts", Headers: []string{"canonical_account"}}
	for _, account := range report.OrphanAccounts {
		t.Rows = append(t.Rows, []string{account})
	}
	return t
}

// SkippedRowsTable renders the rows dropped during normalization.
func SkippedRowsTable(report *domain.ReconciliationReport) *Table {
	t := &Table{Name: "skipped_rows", Headers: []string{"source", "row", "field", "value", "reason"}}
	for _, s := range report.SkippedRows {
		t.Rows = append(t.Rows, []string{string(s.Source), fmt.Sprintf("%d", s.Row), s.Field, s.Value, s.Reason})
	}
	return t
}

// SeriesTable renders a metric series one bucket per row.
func SeriesTable(series *domain.MetricSeries) *Table {
	t := &Table{Name: string(series.Metric), Headers: []string{"month", string(series.Metric)}}
	for _, p := range series.Points {
		t.Rows = append(t.Rows, []string{p.Bucket.String(), metricCell(p.MetricValue)})
	}
	return t
}

// PnLExportTable renders the monthly profit & loss statement.
func PnLExportTable(table *domain.PnLTable) *Table {
	t := &Table{Name: "pnl", Headers: []string{"month", "revenue", "expenses", "net_profit", "margin"}}
	for _, row := range table.Rows {
		t.Rows = append(t.Rows, []string{
			row.Bucket.String(),
			row.Revenue.String(),
			row.Expenses.String(),
			row.NetProfit.String(),
			metricCell(row.Margin),
		})
	}
	return t
}

// BreakdownExportTable renders a dimensional breakdown.
func BreakdownExportTable(table *domain.BreakdownTable) *Table {
	t := &Table{
		Name:    fmt.Sprintf("%s_by_%s", table.Metric, table.Dimension),
		Headers: []string{string(table.Dimension), string(table.Metric), "transactions"},
	}
	for _, row := range table.Rows {
		t.Rows = append(t.Rows, []string{row.Group, metricCell(row.Value), fmt.Sprintf("%d", row.Count)})
	}
	return t
}

func metricCell(v domain.MetricValue) string {
	if !v.Defined {
		return ""
	}
	return v.Value.String()
}
