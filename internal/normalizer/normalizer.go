// Package normalizer turns heterogeneous sales and expense exports into the
// canonical transaction schema. Column headers are matched through a synonym
// table, dates through an ordered list of layouts, and amounts through a
// currency-tolerant decimal parser.
package normalizer

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finsight/finsight-go/internal/config"
	"github.com/finsight/finsight-go/internal/domain"
)

// Canonical field names recognized in input headers.
const (
	FieldDate     = "date"
	FieldAmount   = "amount"
	FieldCategory = "category"
)

// Chart-of-accounts field names.
const (
	FieldCanonicalAccount = "canonical_account"
	FieldAccountType      = "account_type"
	FieldAlias            = "alias"
)

// builtinSynonyms maps canonical field names to accepted header spellings.
// All matching is done on the lowercased, trimmed header.
var builtinSynonyms = map[string][]string{
	FieldDate:     {"date", "transaction date", "transaction_date", "trans_date", "tanggal", "posted", "posting date"},
	FieldAmount:   {"amount", "amt", "value", "total", "gross", "nominal"},
	FieldCategory: {"category", "expensetype", "expense type", "expense_type", "type", "kategori"},

	domain.DimProduct:     {"product", "item", "product name", "product_name", "sku"},
	domain.DimRegion:      {"region", "area", "territory", "market"},
	domain.DimCustomer:    {"customer", "client", "account name", "customer_name"},
	domain.DimInvoiceNo:   {"invoice_no", "invoice", "invoice number", "invoice no", "reference"},
	domain.DimDescription: {"description", "desc", "memo", "notes", "details"},

	FieldCanonicalAccount: {"canonical_account", "canonical account", "account", "coa", "coa account", "account name"},
	FieldAccountType:      {"account_type", "account type", "type", "classification"},
	FieldAlias:            {"alias", "category", "source category", "mapped from", "raw category"},
}

// currencySymbols are stripped from amount cells before decimal parsing.
var currencySymbols = []string{"$", "€", "£", "¥", "Rp", "IDR", "R$", "USD", "EUR"}

// Batch is the outcome of normalizing one input table: the rows that parsed
// plus a record of every row that did not.
type Batch struct {
	Transactions []domain.Transaction
	Skipped      []domain.SkippedRow
}

// Normalizer applies pipeline options to raw tables.
type Normalizer struct {
	pipeline *config.Pipeline
	synonyms map[string][]string
}

// New builds a Normalizer from pipeline options. Configured synonyms extend
// the built-in table rather than replacing it.
func New(p *config.Pipeline) *Normalizer {
	syn := make(map[string][]string, len(builtinSynonyms))
	for field, names := range builtinSynonyms {
		syn[field] = append([]string(nil), names...)
	}
	for field, names := range p.ColumnSynonyms {
		syn[strings.ToLower(field)] = append(syn[strings.ToLower(field)], names...)
	}
	return &Normalizer{pipeline: p, synonyms: syn}
}

// NormalizeTransactions converts a parsed table into canonical transactions.
// A missing date or amount column fails the whole file; individual rows with
// unparseable values are recorded as skipped and do not abort the batch.
func (n *Normalizer) NormalizeTransactions(t *Table, kind domain.Kind, source domain.SourceKind) (*Batch, error) {
	cols := n.resolveColumns(t.Headers)

	dateCol, ok := cols[FieldDate]
	if !ok {
		return nil, &domain.ErrSchema{Source: source, Field: FieldDate, Reason: "no recognized date column"}
	}
	amountCol, ok := cols[FieldAmount]
	if !ok {
		return nil, &domain.ErrSchema{Source: source, Field: FieldAmount, Reason: "no recognized amount column"}
	}
	categoryCol, ok := cols[FieldCategory]
	if !ok {
		return nil, &domain.ErrSchema{Source: source, Field: FieldCategory, Reason: "no recognized category column"}
	}

	batch := &Batch{}
	for i, row := range t.Rows {
		// Data rows are 1-based after the header row.
		rowNum := i + 2

		date, err := n.parseDate(row[dateCol])
		if err != nil {
			batch.Skipped = append(batch.Skipped, domain.SkippedRow{
				Source: source, Row: rowNum, Field: FieldDate, Value: row[dateCol], Reason: err.Error(),
			})
			continue
		}

		amount, err := ParseAmount(row[amountCol])
		if err != nil {
			batch.Skipped = append(batch.Skipped, domain.SkippedRow{
				Source: source, Row: rowNum, Field: FieldAmount, Value: row[amountCol], Reason: err.Error(),
			})
			continue
		}
		amount = n.applySign(amount)

		tx := domain.Transaction{
			ID:          uuid.NewString(),
			Date:        date,
			Amount:      amount,
			Kind:        kind,
			RawCategory: strings.TrimSpace(row[categoryCol]),
			Dimensions:  n.collectDimensions(row, cols),
			Row:         rowNum,
		}
		// A sales row with an empty category still enters the ledger and
		// surfaces as Unmapped; an expense row without one is unusable.
		if kind == domain.KindExpense && tx.RawCategory == "" {
			batch.Skipped = append(batch.Skipped, domain.SkippedRow{
				Source: source, Row: rowNum, Field: FieldCategory, Reason: "empty category",
			})
			continue
		}

		batch.Transactions = append(batch.Transactions, tx)
	}
	return batch, nil
}

// NormalizeChart converts a chart-of-accounts table into domain entries.
// Rows sharing a canonical account are merged; each row contributes one alias.
func (n *Normalizer) NormalizeChart(t *Table) (*domain.ChartOfAccounts, []domain.SkippedRow, error) {
	cols := n.resolveColumns(t.Headers)

	accountCol, ok := cols[FieldCanonicalAccount]
	if !ok {
		return nil, nil, &domain.ErrSchema{Source: domain.SourceChart, Field: FieldCanonicalAccount, Reason: "no recognized account column"}
	}
	typeCol, ok := cols[FieldAccountType]
	if !ok {
		return nil, nil, &domain.ErrSchema{Source: domain.SourceChart, Field: FieldAccountType, Reason: "no recognized account type column"}
	}
	aliasCol, hasAlias := cols[FieldAlias]

	var skipped []domain.SkippedRow
	index := make(map[string]*domain.ChartEntry)
	var order []string

	for i, row := range t.Rows {
		rowNum := i + 2
		account := strings.TrimSpace(row[accountCol])
		if account == "" {
			skipped = append(skipped, domain.SkippedRow{
				Source: domain.SourceChart, Row: rowNum, Field: FieldCanonicalAccount, Reason: "empty account",
			})
			continue
		}
		accType := strings.TrimSpace(row[typeCol])
		if accType == "" {
			skipped = append(skipped, domain.SkippedRow{
				Source: domain.SourceChart, Row: rowNum, Field: FieldAccountType, Reason: "empty account type",
			})
			continue
		}

		entry, exists := index[account]
		if !exists {
			entry = &domain.ChartEntry{CanonicalAccount: account, AccountType: accType}
			index[account] = entry
			order = append(order, account)
		} else if !strings.EqualFold(entry.AccountType, accType) {
			skipped = append(skipped, domain.SkippedRow{
				Source: domain.SourceChart, Row: rowNum, Field: FieldAccountType, Value: accType,
				Reason: fmt.Sprintf("conflicts with earlier type %q for account %q", entry.AccountType, account),
			})
			continue
		}

		alias := account
		if hasAlias {
			if a := strings.TrimSpace(row[aliasCol]); a != "" {
				alias = a
			}
		}
		if !containsFold(entry.Aliases, alias) {
			entry.Aliases = append(entry.Aliases, alias)
		}
	}

	chart := &domain.ChartOfAccounts{}
	for _, account := range order {
		chart.Entries = append(chart.Entries, *index[account])
	}
	if len(chart.Entries) == 0 {
		return nil, skipped, &domain.ErrInput{Source: domain.SourceChart, Message: "chart has no usable entries"}
	}
	return chart, skipped, nil
}

// resolveColumns maps canonical field names to actual table headers.
// The first header matching a synonym wins; later duplicates are ignored.
func (n *Normalizer) resolveColumns(headers []string) map[string]string {
	cols := make(map[string]string)
	for field, names := range n.synonyms {
		for _, h := range headers {
			if containsFold(names, h) {
				cols[field] = h
				break
			}
		}
	}
	return cols
}

func (n *Normalizer) collectDimensions(row map[string]string, cols map[string]string) map[string]string {
	dims := make(map[string]string)
	for _, dim := range []string{domain.DimProduct, domain.DimRegion, domain.DimCustomer, domain.DimInvoiceNo, domain.DimDescription} {
		col, ok := cols[dim]
		if !ok {
			continue
		}
		if v := strings.TrimSpace(row[col]); v != "" {
			dims[dim] = v
		}
	}
	return dims
}

func (n *Normalizer) parseDate(value string) (time.Time, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range n.pipeline.DateFormats {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("no configured layout matches %q", v)
}

// applySign normalizes amount sign. Kind carries the sale/expense
// distinction, so under the absolute policy amounts are stored as positive
// magnitudes regardless of how the source file signed them. The preserve
// policy keeps the parsed sign for callers whose negatives mean refunds.
func (n *Normalizer) applySign(amount decimal.Decimal) decimal.Decimal {
	if n.pipeline.AmountSignPolicy == config.SignAbsolute {
		return amount.Abs()
	}
	return amount
}

// ParseAmount parses a monetary cell, tolerating currency symbols, thousands
// separators, surrounding whitespace and accounting-style parentheses.
func ParseAmount(value string) (decimal.Decimal, error) {
	v := strings.TrimSpace(value)
	if v == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		negative = true
		v = strings.TrimSpace(v[1 : len(v)-1])
	}
	for _, sym := range currencySymbols {
		v = strings.ReplaceAll(v, sym, "")
	}
	v = strings.ReplaceAll(v, ",", "")
	v = strings.TrimSpace(v)

	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number: %q", value)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), strings.TrimSpace(s)) {
			return true
		}
	}
	return false
}
