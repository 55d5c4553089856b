package export_test

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finsight/finsight-go/internal/domain"
	"github.com/finsight/finsight-go/internal/export"
)

func TestWrite_CSVOutput(t *testing.T) {
	table := &export.Table{
		Name:    "demo",
		Headers: []string{"a", "b"},
		Rows:    [][]string{{"1", "x,y"}, {"2", "z"}},
	}

	var buf strings.Builder
	if err := export.Write(&buf, table); err != nil {
		t.Fatalf("Write: %v", err)
	}

	want := "a,b\n1,\"x,y\"\n2,z\n"
	if buf.String() != want {
		t.Errorf("output = %q, want %q", buf.String(), want)
	}
}

func TestLedgerTable(t *testing.T) {
	ledger := &domain.Ledger{
		Transactions: []domain.MappedTransaction{
			{
				Transaction: domain.Transaction{
					ID:          "t1",
					Date:        time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
					Amount:      decimal.NewFromFloat(12.5),
					Kind:        domain.KindSale,
					RawCategory: "Sales",
					Dimensions:  map[string]string{domain.DimProduct: "Widget"},
				},
				CanonicalAccount: "Sales Revenue",
				AccountType:      "Revenue",
				MappingStatus:    domain.StatusMapped,
			},
		},
	}

	table := export.LedgerTable(ledger)
	if len(table.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(table.Rows))
	}
	row := table.Rows[0]
	if row[1] != "2024-03-15" {
		t.Errorf("date cell = %s", row[1])
	}
	if row[3] != "12.5" {
		t.Errorf("amount cell = %s", row[3])
	}
	if row[5] != "Sales Revenue" {
		t.Errorf("account cell = %s", row[5])
	}
	if row[8] != "Widget" {
		t.Errorf("product cell = %s", row[8])
	}
}

func TestSeriesTable_UndefinedRendersEmpty(t *testing.T) {
	series := &domain.MetricSeries{
		Metric: domain.MetricProfitMargin,
		Points: []domain.MetricPoint{
			{Bucket: domain.YearMonth{Year: 2024, Month: time.January}, MetricValue: domain.Undefined()},
			{Bucket: domain.YearMonth{Year: 2024, Month: time.February}, MetricValue: domain.DefinedValue(decimal.NewFromFloat(0.42))},
		},
	}

	table := export.SeriesTable(series)
	if table.Rows[0][1] != "" {
		t.Errorf("undefined cell = %q, want empty", table.Rows[0][1])
	}
	if table.Rows[1][1] != "0.42" {
		t.Errorf("defined cell = %q, want 0.42", table.Rows[1][1])
	}
	if table.Rows[0][0] != "2024-01" {
		t.Errorf("bucket cell = %q", table.Rows[0][0])
	}
}

func TestPnLExportTable(t *testing.T) {
	pnl := &domain.PnLTable{
		Rows: []domain.PnLRow{
			{
				Bucket:    domain.YearMonth{Year: 2024, Month: time.January},
				Revenue:   decimal.NewFromInt(1000),
				Expenses:  decimal.NewFromInt(400),
				NetProfit: decimal.NewFromInt(600),
				Margin:    domain.DefinedValue(decimal.NewFromFloat(0.6)),
			},
		},
	}

	table := export.PnLExportTable(pnl)
	row := table.Rows[0]
	want := []string{"2024-01", "1000", "400", "600", "0.6"}
	for i := range want {
		if row[i] != want[i] {
			t.Errorf("cell %d = %q, want %q", i, row[i], want[i])
		}
	}
}

func TestBreakdownExportTable(t *testing.T) {
	b := &domain.BreakdownTable{
		Metric:    domain.MetricRevenue,
		Dimension: domain.DimensionProduct,
		Rows: []domain.BreakdownRow{
			{Group: "Widget", Value: domain.DefinedValue(decimal.NewFromInt(900)), Count: 3},
		},
	}

	table := export.BreakdownExportTable(b)
	if table.Name != "revenue_by_product" {
		t.Errorf("table name = %s", table.Name)
	}
	if table.Rows[0][2] != "3" {
		t.Errorf("count cell = %s", table.Rows[0][2])
	}
}

func TestUnmappedTable(t *testing.T) {
	report := &domain.ReconciliationReport{
		UnmappedTransactions: []domain.MappedTransaction{
			{
				Transaction: domain.Transaction{
					ID:          "u1",
					Date:        time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
					Amount:      decimal.NewFromInt(77),
					Kind:        domain.KindExpense,
					RawCategory: "Mystery",
				},
				MappingStatus: domain.StatusUnmapped,
			},
		},
	}

	table := export.UnmappedTable(report)
	if len(table.Rows) != 1 || table.Rows[0][4] != "Mystery" {
		t.Errorf("unexpected rows: %v", table.Rows)
	}
}
