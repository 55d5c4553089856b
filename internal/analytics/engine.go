// Package analytics computes derived financial metrics over a ledger:
// monthly series, month-over-month growth, profit-and-loss rows, dimensional
// breakdowns and headline KPIs. All aggregation runs on exact decimals; a
// metric that cannot be computed (margin with zero revenue, growth at the
// first bucket) is reported as undefined, never as a fake zero.
package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/finsight/finsight-go/internal/domain"
)

// Range bounds a monthly query. When Bounded is false the engine spans the
// observed months of the ledger instead.
type Range struct {
	From    domain.YearMonth
	To      domain.YearMonth
	Bounded bool
}

type monthTotals struct {
	revenue  decimal.Decimal
	expenses decimal.Decimal
}

// buckets returns the ordered list of months a query covers, plus per-month
// sale and expense sums. Months inside the span with no activity are present
// with zero totals.
func buckets(ledger *domain.Ledger, rng *Range) ([]domain.YearMonth, map[domain.YearMonth]monthTotals) {
	totals := make(map[domain.YearMonth]monthTotals)
	var observedMin, observedMax domain.YearMonth
	seen := false

	for _, tx := range ledger.Transactions {
		ym := domain.YearMonthOf(tx.Date)
		mt := totals[ym]
		switch tx.Kind {
		case domain.KindSale:
			mt.revenue = mt.revenue.Add(tx.Amount)
		case domain.KindExpense:
			mt.expenses = mt.expenses.Add(tx.Amount)
		}
		totals[ym] = mt

		if !seen || ym.Before(observedMin) {
			observedMin = ym
		}
		if !seen || ym.After(observedMax) {
			observedMax = ym
		}
		seen = true
	}

	from, to := observedMin, observedMax
	if rng != nil && rng.Bounded {
		from, to = rng.From, rng.To
	} else if !seen {
		return nil, totals
	}

	var months []domain.YearMonth
	for ym := from; !ym.After(to); ym = ym.Next() {
		months = append(months, ym)
	}
	return months, totals
}

func metricAt(metric domain.Metric, mt monthTotals) domain.MetricValue {
	switch metric {
	case domain.MetricRevenue:
		return domain.DefinedValue(mt.revenue)
	case domain.MetricExpenses:
		return domain.DefinedValue(mt.expenses)
	case domain.MetricNetProfit:
		return domain.DefinedValue(mt.revenue.Sub(mt.expenses))
	case domain.MetricProfitMargin:
		if mt.revenue.IsZero() {
			return domain.Undefined()
		}
		return domain.DefinedValue(mt.revenue.Sub(mt.expenses).Div(mt.revenue))
	}
	return domain.Undefined()
}

// Series computes one metric per month over the query range.
func Series(ledger *domain.Ledger, metric domain.Metric, rng *Range) (*domain.MetricSeries, error) {
	if rng != nil && rng.Bounded && rng.To.Before(rng.From) {
		return nil, &domain.ErrValidation{Field: "range", Message: "to precedes from"}
	}

	months, totals := buckets(ledger, rng)
	series := &domain.MetricSeries{Metric: metric}
	for _, ym := range months {
		series.Points = append(series.Points, domain.MetricPoint{
			Bucket:      ym,
			MetricValue: metricAt(metric, totals[ym]),
		})
	}
	return series, nil
}

// Growth derives the month-over-month growth series from a metric series.
// The first bucket is always undefined, as is any bucket whose predecessor
// is zero or undefined.
func Growth(series *domain.MetricSeries) *domain.MetricSeries {
	out := &domain.MetricSeries{Metric: series.Metric}
	for i, p := range series.Points {
		point := domain.MetricPoint{Bucket: p.Bucket, MetricValue: domain.Undefined()}
		if i > 0 {
			prev := series.Points[i-1]
			if prev.Defined && p.Defined && !prev.Value.IsZero() {
				point.MetricValue = domain.DefinedValue(p.Value.Sub(prev.Value).Div(prev.Value))
			}
		}
		out.Points = append(out.Points, point)
	}
	return out
}

// PnL computes the monthly profit-and-loss table.
func PnL(ledger *domain.Ledger, rng *Range) (*domain.PnLTable, error) {
	if rng != nil && rng.Bounded && rng.To.Before(rng.From) {
		return nil, &domain.ErrValidation{Field: "range", Message: "to precedes from"}
	}

	months, totals := buckets(ledger, rng)
	table := &domain.PnLTable{SnapshotID: ledger.SnapshotID}
	for _, ym := range months {
		mt := totals[ym]
		table.Rows = append(table.Rows, domain.PnLRow{
			Bucket:    ym,
			Revenue:   mt.revenue,
			Expenses:  mt.expenses,
			NetProfit: mt.revenue.Sub(mt.expenses),
			Margin:    metricAt(domain.MetricProfitMargin, mt),
		})
	}
	return table, nil
}

// Breakdown aggregates one metric grouped by a dimension, sorted descending
// by value with ties broken by label ascending. Undefined groups sort last.
// A limit of zero returns every group.
func Breakdown(ledger *domain.Ledger, metric domain.Metric, dim domain.Dimension, limit int) (*domain.BreakdownTable, error) {
	type groupTotals struct {
		totals monthTotals
		count  int
	}
	groups := make(map[string]*groupTotals)

	for _, tx := range ledger.Transactions {
		label, ok := groupLabel(tx, dim)
		if !ok {
			continue
		}
		g := groups[label]
		if g == nil {
			g = &groupTotals{}
			groups[label] = g
		}
		switch tx.Kind {
		case domain.KindSale:
			g.totals.revenue = g.totals.revenue.Add(tx.Amount)
		case domain.KindExpense:
			g.totals.expenses = g.totals.expenses.Add(tx.Amount)
		}
		g.count++
	}

	table := &domain.BreakdownTable{Metric: metric, Dimension: dim}
	for label, g := range groups {
		table.Rows = append(table.Rows, domain.BreakdownRow{
			Group: label,
			Value: metricAt(metric, g.totals),
			Count: g.count,
		})
	}

	sort.Slice(table.Rows, func(i, j int) bool {
		a, b := table.Rows[i], table.Rows[j]
		if a.Value.Defined != b.Value.Defined {
			return a.Value.Defined
		}
		if a.Value.Defined && !a.Value.Value.Equal(b.Value.Value) {
			return a.Value.Value.GreaterThan(b.Value.Value)
		}
		return a.Group < b.Group
	})

	if limit > 0 && len(table.Rows) > limit {
		table.Rows = table.Rows[:limit]
	}
	return table, nil
}

func groupLabel(tx domain.MappedTransaction, dim domain.Dimension) (string, bool) {
	switch dim {
	case domain.DimensionProduct:
		v, ok := tx.Dimensions[domain.DimProduct]
		return v, ok
	case domain.DimensionRegion:
		v, ok := tx.Dimensions[domain.DimRegion]
		return v, ok
	case domain.DimensionCategory:
		if tx.MappingStatus == domain.StatusMapped {
			return tx.CanonicalAccount, true
		}
		return "Unmapped", true
	case domain.DimensionExpenseType:
		if tx.Kind != domain.KindExpense || tx.RawCategory == "" {
			return "", false
		}
		return tx.RawCategory, true
	}
	return "", false
}

// KPIs computes the headline summary for a ledger.
func KPIs(ledger *domain.Ledger) *domain.KPISummary {
	months, totals := buckets(ledger, nil)

	summary := &domain.KPISummary{
		SnapshotID:       ledger.SnapshotID,
		Months:           len(months),
		TransactionCount: len(ledger.Transactions),
		AverageMargin:    domain.Undefined(),
		LatestMoMGrowth:  domain.Undefined(),
	}

	marginSum := decimal.Zero
	marginCount := 0
	for _, ym := range months {
		mt := totals[ym]
		summary.TotalRevenue = summary.TotalRevenue.Add(mt.revenue)
		summary.TotalExpenses = summary.TotalExpenses.Add(mt.expenses)
		if m := metricAt(domain.MetricProfitMargin, mt); m.Defined {
			marginSum = marginSum.Add(m.Value)
			marginCount++
		}
	}
	summary.NetProfit = summary.TotalRevenue.Sub(summary.TotalExpenses)
	if marginCount > 0 {
		summary.AverageMargin = domain.DefinedValue(marginSum.Div(decimal.NewFromInt(int64(marginCount))))
	}

	if len(months) >= 2 {
		// An unbounded range cannot fail validation; on any error the
		// growth KPI simply stays undefined.
		if series, err := Series(ledger, domain.MetricNetProfit, nil); err == nil {
			growth := Growth(series)
			summary.LatestMoMGrowth = growth.Points[len(growth.Points)-1].MetricValue
		}
	}
	return summary
}
