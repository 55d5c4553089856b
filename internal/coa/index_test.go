package coa_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/finsight/finsight-go/internal/coa"
	"github.com/finsight/finsight-go/internal/domain"
)

func testChart() *domain.ChartOfAccounts {
	return &domain.ChartOfAccounts{
		Entries: []domain.ChartEntry{
			{
				CanonicalAccount: "Sales Revenue",
				AccountType:      "Revenue",
				Aliases:          []string{"Product Sales", "Sales"},
			},
			{
				CanonicalAccount: "Operating Expenses",
				AccountType:      "OPEX",
				Aliases:          []string{"Office Supplies", "Rent"},
			},
			{
				CanonicalAccount: "Cost of Goods Sold",
				AccountType:      "COGS",
				Aliases:          []string{"Materials"},
			},
		},
	}
}

func TestIndex_MapExactAndCaseInsensitive(t *testing.T) {
	ix := coa.NewIndex(testChart())

	account, accountType, status := ix.Map("office supplies")
	if status != domain.StatusMapped {
		t.Fatalf("expected mapped, got %s", status)
	}
	if account != "Operating Expenses" || accountType != "OPEX" {
		t.Errorf("unexpected mapping: %s/%s", account, accountType)
	}
}

func TestIndex_MapCollapsesWhitespace(t *testing.T) {
	ix := coa.NewIndex(testChart())

	_, _, status := ix.Map("  Office   Supplies ")
	if status != domain.StatusMapped {
		t.Errorf("expected mapped, got %s", status)
	}
}

func TestIndex_MapUnknownCategory(t *testing.T) {
	ix := coa.NewIndex(testChart())

	account, _, status := ix.Map("Mystery")
	if status != domain.StatusUnmapped {
		t.Errorf("expected unmapped, got %s", status)
	}
	if account != "" {
		t.Errorf("expected empty account, got %s", account)
	}
}

func TestIndex_MapEmptyCategory(t *testing.T) {
	ix := coa.NewIndex(testChart())

	if _, _, status := ix.Map(""); status != domain.StatusUnmapped {
		t.Errorf("expected unmapped for empty category, got %s", status)
	}
}

func TestIndex_ConflictingAliasIsAmbiguous(t *testing.T) {
	chart := testChart()
	chart.Entries[2].Aliases = append(chart.Entries[2].Aliases, "Rent")
	ix := coa.NewIndex(chart)

	_, _, status := ix.Map("rent")
	if status != domain.StatusAmbiguous {
		t.Fatalf("expected ambiguous, got %s", status)
	}

	conflicts := ix.Conflicts()
	if len(conflicts) != 1 {
		t.Fatalf("expected 1 conflict, got %d", len(conflicts))
	}
	c := conflicts[0]
	if c.Alias != "rent" {
		t.Errorf("expected alias 'rent', got %s", c.Alias)
	}
	if len(c.Accounts) != 2 || c.Accounts[0] != "Cost of Goods Sold" || c.Accounts[1] != "Operating Expenses" {
		t.Errorf("unexpected conflict accounts: %v", c.Accounts)
	}
}

func TestIndex_SameAccountDuplicateAliasNotConflict(t *testing.T) {
	chart := testChart()
	chart.Entries[0].Aliases = append(chart.Entries[0].Aliases, "SALES")
	ix := coa.NewIndex(chart)

	if len(ix.Conflicts()) != 0 {
		t.Fatalf("expected no conflicts, got %v", ix.Conflicts())
	}
	if _, _, status := ix.Map("Sales"); status != domain.StatusMapped {
		t.Errorf("expected mapped, got %s", status)
	}
}

func TestIndex_MapAllPreservesOrder(t *testing.T) {
	ix := coa.NewIndex(testChart())

	txs := []domain.Transaction{
		{ID: "a", RawCategory: "Materials", Amount: decimal.NewFromInt(10), Kind: domain.KindExpense},
		{ID: "b", RawCategory: "Nope", Amount: decimal.NewFromInt(20), Kind: domain.KindExpense},
		{ID: "c", RawCategory: "Sales", Amount: decimal.NewFromInt(30), Kind: domain.KindSale},
	}
	mapped := ix.MapAll(txs)

	if len(mapped) != 3 {
		t.Fatalf("expected 3 mapped transactions, got %d", len(mapped))
	}
	if mapped[0].ID != "a" || mapped[1].ID != "b" || mapped[2].ID != "c" {
		t.Error("expected input order preserved")
	}
	if mapped[0].MappingStatus != domain.StatusMapped {
		t.Errorf("expected first mapped, got %s", mapped[0].MappingStatus)
	}
	if mapped[1].MappingStatus != domain.StatusUnmapped {
		t.Errorf("expected second unmapped, got %s", mapped[1].MappingStatus)
	}
	if mapped[2].CanonicalAccount != "Sales Revenue" {
		t.Errorf("unexpected account %s", mapped[2].CanonicalAccount)
	}
}

func TestIndex_MapAllIsIdempotent(t *testing.T) {
	ix := coa.NewIndex(testChart())

	txs := []domain.Transaction{
		{ID: "a", RawCategory: "Materials", Amount: decimal.NewFromInt(10), Kind: domain.KindExpense},
		{ID: "b", RawCategory: "Nope", Amount: decimal.NewFromInt(20), Kind: domain.KindExpense},
		{ID: "c", RawCategory: "Sales", Amount: decimal.NewFromInt(30), Kind: domain.KindSale},
	}

	first := ix.MapAll(txs)
	second := ix.MapAll(txs)

	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].CanonicalAccount != second[i].CanonicalAccount ||
			first[i].MappingStatus != second[i].MappingStatus {
			t.Errorf("run %d diverged: %s/%s vs %s/%s", i,
				first[i].CanonicalAccount, first[i].MappingStatus,
				second[i].CanonicalAccount, second[i].MappingStatus)
		}
	}
}

func TestIndex_MapAllPartitionsEveryTransaction(t *testing.T) {
	chart := testChart()
	chart.Entries[2].Aliases = append(chart.Entries[2].Aliases, "Rent")
	ix := coa.NewIndex(chart)

	txs := []domain.Transaction{
		{ID: "a", RawCategory: "Sales", Amount: decimal.NewFromInt(100), Kind: domain.KindSale},
		{ID: "b", RawCategory: "Rent", Amount: decimal.NewFromInt(40), Kind: domain.KindExpense},
		{ID: "c", RawCategory: "Mystery", Amount: decimal.NewFromInt(5), Kind: domain.KindExpense},
		{ID: "d", RawCategory: "", Amount: decimal.NewFromInt(1), Kind: domain.KindSale},
	}
	mapped := ix.MapAll(txs)

	counts := map[domain.MappingStatus]int{}
	for _, m := range mapped {
		switch m.MappingStatus {
		case domain.StatusMapped, domain.StatusUnmapped, domain.StatusAmbiguous:
			counts[m.MappingStatus]++
		default:
			t.Fatalf("transaction %s has status outside the partition: %q", m.ID, m.MappingStatus)
		}
		if m.MappingStatus == domain.StatusMapped && m.CanonicalAccount == "" {
			t.Errorf("mapped transaction %s lacks an account", m.ID)
		}
		if m.MappingStatus != domain.StatusMapped && m.CanonicalAccount != "" {
			t.Errorf("%s transaction %s carries account %q", m.MappingStatus, m.ID, m.CanonicalAccount)
		}
	}

	if total := counts[domain.StatusMapped] + counts[domain.StatusUnmapped] + counts[domain.StatusAmbiguous]; total != len(txs) {
		t.Fatalf("partition does not cover all transactions: %d of %d", total, len(txs))
	}
	if counts[domain.StatusMapped] != 1 || counts[domain.StatusUnmapped] != 2 || counts[domain.StatusAmbiguous] != 1 {
		t.Errorf("unexpected partition: %v", counts)
	}
}

func TestIndex_AccountsSorted(t *testing.T) {
	ix := coa.NewIndex(testChart())

	accounts := ix.Accounts()
	want := []string{"Cost of Goods Sold", "Operating Expenses", "Sales Revenue"}
	if len(accounts) != len(want) {
		t.Fatalf("expected %d accounts, got %d", len(want), len(accounts))
	}
	for i := range want {
		if accounts[i] != want[i] {
			t.Errorf("accounts[%d] = %s, want %s", i, accounts[i], want[i])
		}
	}
}
