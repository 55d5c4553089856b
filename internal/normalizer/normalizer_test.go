package normalizer_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/finsight/finsight-go/internal/config"
	"github.com/finsight/finsight-go/internal/domain"
	"github.com/finsight/finsight-go/internal/normalizer"
)

func asErr[T error](err error, target *T) bool {
	return errors.As(err, target)
}

func readTable(t *testing.T, data, name string) *normalizer.Table {
	t.Helper()
	table, err := normalizer.ReadTable(strings.NewReader(data), name, "")
	if err != nil {
		t.Fatalf("ReadTable: %v", err)
	}
	return table
}

func TestReadTable_CSVHeadersAndRows(t *testing.T) {
	data := "Date,Total,Product\n2024-01-15,100.50,Widget\n2024-01-16,200,Gadget\n"
	table := readTable(t, data, "sales.csv")

	if len(table.Headers) != 3 {
		t.Fatalf("expected 3 headers, got %d", len(table.Headers))
	}
	if len(table.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(table.Rows))
	}
	if table.Rows[0]["Product"] != "Widget" {
		t.Errorf("expected 'Widget', got '%s'", table.Rows[0]["Product"])
	}
}

func TestReadTable_SkipsBlankRows(t *testing.T) {
	data := "Date,Total\n2024-01-15,100\n,,\n\n2024-01-16,200\n"
	table := readTable(t, data, "sales.csv")

	if len(table.Rows) != 2 {
		t.Fatalf("expected blank rows skipped, got %d rows", len(table.Rows))
	}
}

func TestReadTable_PadsShortRows(t *testing.T) {
	data := "Date,Total,Region\n2024-01-15,100\n"
	table := readTable(t, data, "sales.csv")

	if got, ok := table.Rows[0]["Region"]; !ok || got != "" {
		t.Errorf("expected empty Region cell, got %q (present=%v)", got, ok)
	}
}

func TestReadTable_EmptyFile(t *testing.T) {
	_, err := normalizer.ReadTable(strings.NewReader(""), "empty.csv", "")
	if err == nil {
		t.Fatal("expected error for empty file")
	}
	var inputErr *domain.ErrInput
	if !asErr(err, &inputErr) {
		t.Fatalf("expected ErrInput, got %T", err)
	}
}

func TestNormalizeTransactions_SynonymHeaders(t *testing.T) {
	data := "Transaction Date,Total,Kategori,Item,Area\n2024-01-15,\"$1,250.75\",Sales,Widget,North\n"
	table := readTable(t, data, "sales.csv")

	n := normalizer.New(config.DefaultPipeline())
	batch, err := n.NormalizeTransactions(table, domain.KindSale, domain.SourceSales)
	if err != nil {
		t.Fatalf("NormalizeTransactions: %v", err)
	}
	if len(batch.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(batch.Transactions))
	}

	tx := batch.Transactions[0]
	if tx.Amount.String() != "1250.75" {
		t.Errorf("expected amount 1250.75, got %s", tx.Amount)
	}
	if tx.RawCategory != "Sales" {
		t.Errorf("expected category 'Sales', got '%s'", tx.RawCategory)
	}
	if tx.Date.Format("2006-01-02") != "2024-01-15" {
		t.Errorf("unexpected date %s", tx.Date)
	}
	if tx.Dimensions[domain.DimProduct] != "Widget" {
		t.Errorf("expected product dimension 'Widget', got '%s'", tx.Dimensions[domain.DimProduct])
	}
	if tx.Dimensions[domain.DimRegion] != "North" {
		t.Errorf("expected region dimension 'North', got '%s'", tx.Dimensions[domain.DimRegion])
	}
}

func TestNormalizeTransactions_ExpenseCategory(t *testing.T) {
	data := "Date,Amount,ExpenseType\n2024-02-01,300.00,Office Supplies\n"
	table := readTable(t, data, "expenses.csv")

	n := normalizer.New(config.DefaultPipeline())
	batch, err := n.NormalizeTransactions(table, domain.KindExpense, domain.SourceExpenses)
	if err != nil {
		t.Fatalf("NormalizeTransactions: %v", err)
	}

	tx := batch.Transactions[0]
	if tx.Amount.String() != "300" {
		t.Errorf("expected 300, got %s", tx.Amount)
	}
	if tx.RawCategory != "Office Supplies" {
		t.Errorf("expected category 'Office Supplies', got '%s'", tx.RawCategory)
	}
}

func TestNormalizeTransactions_AbsolutePolicyDiscardsInputSign(t *testing.T) {
	data := "Date,Amount,Category\n2024-02-01,(150.00),Travel\n"
	table := readTable(t, data, "expenses.csv")

	n := normalizer.New(config.DefaultPipeline())
	batch, err := n.NormalizeTransactions(table, domain.KindExpense, domain.SourceExpenses)
	if err != nil {
		t.Fatalf("NormalizeTransactions: %v", err)
	}
	if got := batch.Transactions[0].Amount.String(); got != "150" {
		t.Errorf("expected 150 under absolute policy, got %s", got)
	}
}

func TestNormalizeTransactions_PreservePolicyKeepsRefunds(t *testing.T) {
	data := "Date,Amount,Category\n2024-02-01,(150.00),Travel\n"
	table := readTable(t, data, "expenses.csv")

	p := config.DefaultPipeline()
	p.AmountSignPolicy = config.SignPreserve
	n := normalizer.New(p)

	batch, err := n.NormalizeTransactions(table, domain.KindExpense, domain.SourceExpenses)
	if err != nil {
		t.Fatalf("NormalizeTransactions: %v", err)
	}
	if got := batch.Transactions[0].Amount.String(); got != "-150" {
		t.Errorf("expected -150 under preserve policy, got %s", got)
	}
}

func TestNormalizeTransactions_SkipsBadRows(t *testing.T) {
	data := "Date,Amount,Category\n2024-01-15,100,Sales\nnot-a-date,200,Sales\n2024-01-17,abc,Sales\n"
	table := readTable(t, data, "sales.csv")

	n := normalizer.New(config.DefaultPipeline())
	batch, err := n.NormalizeTransactions(table, domain.KindSale, domain.SourceSales)
	if err != nil {
		t.Fatalf("NormalizeTransactions: %v", err)
	}
	if len(batch.Transactions) != 1 {
		t.Fatalf("expected 1 good transaction, got %d", len(batch.Transactions))
	}
	if len(batch.Skipped) != 2 {
		t.Fatalf("expected 2 skipped rows, got %d", len(batch.Skipped))
	}
	if batch.Skipped[0].Row != 3 || batch.Skipped[0].Field != normalizer.FieldDate {
		t.Errorf("unexpected first skip: %+v", batch.Skipped[0])
	}
	if batch.Skipped[1].Row != 4 || batch.Skipped[1].Field != normalizer.FieldAmount {
		t.Errorf("unexpected second skip: %+v", batch.Skipped[1])
	}
}

func TestNormalizeTransactions_MissingAmountColumn(t *testing.T) {
	data := "Date,Product\n2024-01-15,Widget\n"
	table := readTable(t, data, "sales.csv")

	n := normalizer.New(config.DefaultPipeline())
	_, err := n.NormalizeTransactions(table, domain.KindSale, domain.SourceSales)

	var schemaErr *domain.ErrSchema
	if !asErr(err, &schemaErr) {
		t.Fatalf("expected ErrSchema, got %v", err)
	}
	if schemaErr.Field != normalizer.FieldAmount {
		t.Errorf("expected amount field in error, got %s", schemaErr.Field)
	}
}

func TestNormalizeTransactions_RequiresCategoryColumn(t *testing.T) {
	cases := []struct {
		name   string
		kind   domain.Kind
		source domain.SourceKind
	}{
		{"sales", domain.KindSale, domain.SourceSales},
		{"expenses", domain.KindExpense, domain.SourceExpenses},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			data := "Date,Amount\n2024-01-15,50\n"
			table := readTable(t, data, c.name+".csv")

			n := normalizer.New(config.DefaultPipeline())
			_, err := n.NormalizeTransactions(table, c.kind, c.source)

			var schemaErr *domain.ErrSchema
			if !asErr(err, &schemaErr) {
				t.Fatalf("expected ErrSchema, got %v", err)
			}
			if schemaErr.Field != normalizer.FieldCategory {
				t.Errorf("expected category field in error, got %s", schemaErr.Field)
			}
		})
	}
}

func TestNormalizeTransactions_EmptySalesCategoryEntersLedger(t *testing.T) {
	data := "Date,Amount,Category\n2024-01-15,100,\n"
	table := readTable(t, data, "sales.csv")

	n := normalizer.New(config.DefaultPipeline())
	batch, err := n.NormalizeTransactions(table, domain.KindSale, domain.SourceSales)
	if err != nil {
		t.Fatalf("NormalizeTransactions: %v", err)
	}
	if len(batch.Transactions) != 1 || len(batch.Skipped) != 0 {
		t.Fatalf("expected 1 transaction and 0 skips, got %d/%d", len(batch.Transactions), len(batch.Skipped))
	}
	if batch.Transactions[0].RawCategory != "" {
		t.Errorf("expected empty category, got %q", batch.Transactions[0].RawCategory)
	}
}

func TestNormalizeTransactions_EmptyExpenseCategorySkipsRow(t *testing.T) {
	data := "Date,Amount,Category\n2024-01-15,50,\n"
	table := readTable(t, data, "expenses.csv")

	n := normalizer.New(config.DefaultPipeline())
	batch, err := n.NormalizeTransactions(table, domain.KindExpense, domain.SourceExpenses)
	if err != nil {
		t.Fatalf("NormalizeTransactions: %v", err)
	}
	if len(batch.Transactions) != 0 || len(batch.Skipped) != 1 {
		t.Fatalf("expected 0 transactions and 1 skip, got %d/%d", len(batch.Transactions), len(batch.Skipped))
	}
}

func TestNormalizeTransactions_ConfiguredSynonyms(t *testing.T) {
	data := "Booked On,Grand Total,Bucket\n2024-03-01,42,Sales\n"
	table := readTable(t, data, "sales.csv")

	p := config.DefaultPipeline()
	p.ColumnSynonyms = map[string][]string{
		"date":     {"Booked On"},
		"amount":   {"Grand Total"},
		"category": {"Bucket"},
	}
	n := normalizer.New(p)

	batch, err := n.NormalizeTransactions(table, domain.KindSale, domain.SourceSales)
	if err != nil {
		t.Fatalf("NormalizeTransactions: %v", err)
	}
	if len(batch.Transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(batch.Transactions))
	}
}

func TestNormalizeChart_MergesAliases(t *testing.T) {
	data := "Alias,Canonical Account,Account Type\nOffice Supplies,Operating Expenses,OPEX\nSupplies,Operating Expenses,OPEX\nProduct Sales,Sales Revenue,Revenue\n"
	table := readTable(t, data, "chart.csv")

	n := normalizer.New(config.DefaultPipeline())
	chart, skipped, err := n.NormalizeChart(table)
	if err != nil {
		t.Fatalf("NormalizeChart: %v", err)
	}
	if len(skipped) != 0 {
		t.Fatalf("expected no skipped rows, got %d", len(skipped))
	}
	if len(chart.Entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(chart.Entries))
	}

	opex := chart.Entries[0]
	if opex.CanonicalAccount != "Operating Expenses" || len(opex.Aliases) != 2 {
		t.Errorf("unexpected entry: %+v", opex)
	}
}

func TestNormalizeChart_ConflictingAccountType(t *testing.T) {
	data := "Alias,Canonical Account,Account Type\nRent,Facilities,OPEX\nLease,Facilities,COGS\n"
	table := readTable(t, data, "chart.csv")

	n := normalizer.New(config.DefaultPipeline())
	chart, skipped, err := n.NormalizeChart(table)
	if err != nil {
		t.Fatalf("NormalizeChart: %v", err)
	}
	if len(skipped) != 1 {
		t.Fatalf("expected 1 skipped row, got %d", len(skipped))
	}
	if chart.Entries[0].AccountType != "OPEX" {
		t.Errorf("expected first type to win, got %s", chart.Entries[0].AccountType)
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in   string
		want string
		err  bool
	}{
		{"100", "100", false},
		{"$1,234.56", "1234.56", false},
		{"€ 99.90", "99.9", false},
		{"Rp 1.500.000", "", true},
		{"(42.00)", "-42", false},
		{"-17.5", "-17.5", false},
		{"", "", true},
		{"abc", "", true},
	}
	for _, c := range cases {
		got, err := normalizer.ParseAmount(c.in)
		if c.err {
			if err == nil {
				t.Errorf("ParseAmount(%q): expected error", c.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseAmount(%q): %v", c.in, err)
			continue
		}
		if got.String() != c.want {
			t.Errorf("ParseAmount(%q) = %s, want %s", c.in, got, c.want)
		}
	}
}
