// Package coa indexes a chart of accounts for category lookup. Aliases are
// matched case-insensitively; an alias claimed by more than one canonical
// account is a conflict and every transaction hitting it is flagged
// ambiguous rather than silently assigned.
package coa

import (
	"sort"
	"strings"

	"github.com/finsight/finsight-go/internal/domain"
)

type entry struct {
	account     string
	accountType string
}

// Index is an immutable alias lookup built from a chart of accounts.
type Index struct {
	byAlias   map[string]entry
	ambiguous map[string][]string
	accounts  []string
	types     map[string]string
}

// NewIndex builds the lookup. Conflicting aliases are removed from the
// direct map and tracked so reports can surface them.
func NewIndex(chart *domain.ChartOfAccounts) *Index {
	ix := &Index{
		byAlias:   make(map[string]entry),
		ambiguous: make(map[string][]string),
		types:     make(map[string]string),
	}

	for _, ce := range chart.Entries {
		ix.accounts = append(ix.accounts, ce.CanonicalAccount)
		ix.types[ce.CanonicalAccount] = ce.AccountType

		for _, alias := range ce.Aliases {
			key := Normalize(alias)
			if key == "" {
				continue
			}
			if others, clash := ix.ambiguous[key]; clash {
				if !contains(others, ce.CanonicalAccount) {
					ix.ambiguous[key] = append(others, ce.CanonicalAccount)
				}
				continue
			}
			if prev, ok := ix.byAlias[key]; ok {
				if prev.account == ce.CanonicalAccount {
					continue
				}
				delete(ix.byAlias, key)
				ix.ambiguous[key] = []string{prev.account, ce.CanonicalAccount}
				continue
			}
			ix.byAlias[key] = entry{account: ce.CanonicalAccount, accountType: ce.AccountType}
		}
	}

	sort.Strings(ix.accounts)
	return ix
}

// Normalize is the alias key function: lowercased with collapsed whitespace.
func Normalize(alias string) string {
	return strings.Join(strings.Fields(strings.ToLower(alias)), " ")
}

// Map classifies one raw category.
func (ix *Index) Map(rawCategory string) (account, accountType string, status domain.MappingStatus) {
	key := Normalize(rawCategory)
	if key == "" {
		return "", "", domain.StatusUnmapped
	}
	if _, clash := ix.ambiguous[key]; clash {
		return "", "", domain.StatusAmbiguous
	}
	if e, ok := ix.byAlias[key]; ok {
		return e.account, e.accountType, domain.StatusMapped
	}
	return "", "", domain.StatusUnmapped
}

// MapAll classifies a batch of transactions, preserving order.
func (ix *Index) MapAll(txs []domain.Transaction) []domain.MappedTransaction {
	mapped := make([]domain.MappedTransaction, 0, len(txs))
	for _, tx := range txs {
		account, accountType, status := ix.Map(tx.RawCategory)
		mapped = append(mapped, domain.MappedTransaction{
			Transaction:      tx,
			CanonicalAccount: account,
			AccountType:      accountType,
			MappingStatus:    status,
		})
	}
	return mapped
}

// Accounts returns every canonical account, sorted.
func (ix *Index) Accounts() []string {
	return append([]string(nil), ix.accounts...)
}

// AccountType returns the type for a canonical account.
func (ix *Index) AccountType(account string) (string, bool) {
	t, ok := ix.types[account]
	return t, ok
}

// Conflicts returns every alias claimed by more than one account, sorted by
// alias for stable output.
func (ix *Index) Conflicts() []domain.AliasConflict {
	conflicts := make([]domain.AliasConflict, 0, len(ix.ambiguous))
	for alias, accounts := range ix.ambiguous {
		sorted := append([]string(nil), accounts...)
		sort.Strings(sorted)
		conflicts = append(conflicts, domain.AliasConflict{Alias: alias, Accounts: sorted})
	}
	sort.Slice(conflicts, func(i, j int) bool { return conflicts[i].Alias < conflicts[j].Alias })
	return conflicts
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
