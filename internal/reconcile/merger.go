// Package reconcile merges mapped sales and expense transactions into a
// single ledger and derives the exception report for the run. Exceptions are
// an outcome, not an error: a fully unmapped upload still yields a valid
// ledger and a report describing exactly what failed to reconcile.
package reconcile

import (
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/finsight/finsight-go/internal/coa"
	"github.com/finsight/finsight-go/internal/domain"
)

// Result bundles the ledger for an ingestion cycle with its report.
type Result struct {
	Ledger *domain.Ledger
	Report *domain.ReconciliationReport
}

// Merge builds the unified ledger from mapped sales and expenses. The ledger
// keeps sales before expenses in input order; the exception list is sorted by
// date ascending with ties broken by that combined input order.
func Merge(ix *coa.Index, sales, expenses []domain.MappedTransaction, skipped []domain.SkippedRow) (*Result, error) {
	if len(sales) == 0 && len(expenses) == 0 {
		return nil, &domain.ErrInput{Source: "upload", Message: "no transactions in sales or expenses"}
	}

	all := make([]domain.MappedTransaction, 0, len(sales)+len(expenses))
	all = append(all, sales...)
	all = append(all, expenses...)

	ledger := &domain.Ledger{
		SnapshotID:   uuid.NewString(),
		CreatedAt:    time.Now().UTC(),
		Transactions: all,
	}

	report := &domain.ReconciliationReport{
		SnapshotID:        ledger.SnapshotID,
		AliasConflicts:    ix.Conflicts(),
		SkippedRows:       skipped,
		TotalTransactions: len(all),
	}

	matched := make(map[string]bool)
	for _, tx := range all {
		switch tx.MappingStatus {
		case domain.StatusMapped:
			report.MappedCount++
			matched[tx.CanonicalAccount] = true
		case domain.StatusAmbiguous:
			report.AmbiguousCount++
			report.UnmappedTransactions = append(report.UnmappedTransactions, tx)
		default:
			report.UnmappedCount++
			report.UnmappedTransactions = append(report.UnmappedTransactions, tx)
		}
	}

	// Stable sort keeps combined input order for same-date exceptions.
	sort.SliceStable(report.UnmappedTransactions, func(i, j int) bool {
		return report.UnmappedTransactions[i].Date.Before(report.UnmappedTransactions[j].Date)
	})

	for _, account := range ix.Accounts() {
		if !matched[account] {
			report.OrphanAccounts = append(report.OrphanAccounts, account)
		}
	}

	return &Result{Ledger: ledger, Report: report}, nil
}
