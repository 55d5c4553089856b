package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Metric names a computable financial metric.
type Metric string

const (
	MetricRevenue      Metric = "revenue"
	MetricExpenses     Metric = "expenses"
	MetricNetProfit    Metric = "net_profit"
	MetricProfitMargin Metric = "profit_margin"
)

// ParseMetric parses a metric name from a query parameter.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricRevenue, MetricExpenses, MetricNetProfit, MetricProfitMargin:
		return Metric(s), nil
	}
	return "", &ErrValidation{Field: "metric", Message: fmt.Sprintf("unknown metric %q", s)}
}

// Dimension names a grouping axis for breakdowns.
type Dimension string

const (
	DimensionProduct     Dimension = "product"
	DimensionCategory    Dimension = "category"
	DimensionRegion      Dimension = "region"
	DimensionExpenseType Dimension = "expense_type"
)

// ParseDimension parses a dimension name from a query parameter.
func ParseDimension(s string) (Dimension, error) {
	switch Dimension(s) {
	case DimensionProduct, DimensionCategory, DimensionRegion, DimensionExpenseType:
		return Dimension(s), nil
	}
	return "", &ErrValidation{Field: "dimension", Message: fmt.Sprintf("unknown dimension %q", s)}
}

// YearMonth is a calendar-month bucket.
type YearMonth struct {
	Year  int
	Month time.Month
}

// YearMonthOf buckets a date.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth{Year: t.Year(), Month: t.Month()}
}

// ParseYearMonth parses "2006-01" style bucket labels.
func ParseYearMonth(s string) (YearMonth, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return YearMonth{}, &ErrValidation{Field: "bucket", Message: fmt.Sprintf("invalid month %q, want YYYY-MM", s)}
	}
	return YearMonthOf(t), nil
}

// Next returns the following calendar month.
func (ym YearMonth) Next() YearMonth {
	if ym.Month == time.December {
		return YearMonth{Year: ym.Year + 1, Month: time.January}
	}
	return YearMonth{Year: ym.Year, Month: ym.Month + 1}
}

// Before reports whether ym precedes other.
func (ym YearMonth) Before(other YearMonth) bool {
	if ym.Year != other.Year {
		return ym.Year < other.Year
	}
	return ym.Month < other.Month
}

// After reports whether ym follows other.
func (ym YearMonth) After(other YearMonth) bool {
	return other.Before(ym)
}

func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// MarshalJSON renders the bucket as its "YYYY-MM" label.
func (ym YearMonth) MarshalJSON() ([]byte, error) {
	return json.Marshal(ym.String())
}

// UnmarshalJSON parses a "YYYY-MM" label.
func (ym *YearMonth) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseYearMonth(s)
	if err != nil {
		return err
	}
	*ym = parsed
	return nil
}

// MetricValue is a decimal that may be undefined (margin with zero revenue,
// growth at the first bucket). Undefined is an explicit missing value, never
// zero and never an error.
type MetricValue struct {
	Value   decimal.Decimal `json:"value"`
	Defined bool            `json:"defined"`
}

// DefinedValue wraps a decimal as a defined metric value.
func DefinedValue(d decimal.Decimal) MetricValue {
	return MetricValue{Value: d, Defined: true}
}

// Undefined is the explicit missing metric value.
func Undefined() MetricValue {
	return MetricValue{}
}

// MetricPoint is one bucket of a metric series.
type MetricPoint struct {
	Bucket YearMonth `json:"bucket"`
	MetricValue
}

// MetricSeries is an ordered sequence of metric points, bucket ascending.
// Derived, read-only, regenerated per query.
type MetricSeries struct {
	Metric Metric        `json:"metric"`
	Points []MetricPoint `json:"points"`
}

// BreakdownRow is one group of a dimensional breakdown.
type BreakdownRow struct {
	Group string      `json:"group"`
	Value MetricValue `json:"value"`
	Count int         `json:"count"`
}

// BreakdownTable aggregates a metric per dimension group, sorted descending
// by value with ties broken by group label ascending.
type BreakdownTable struct {
	Metric    Metric         `json:"metric"`
	Dimension Dimension      `json:"dimension"`
	Rows      []BreakdownRow `json:"rows"`
}

// PnLRow is one month of the profit & loss table.
type PnLRow struct {
	Bucket    YearMonth       `json:"bucket"`
	Revenue   decimal.Decimal `json:"revenue"`
	Expenses  decimal.Decimal `json:"expenses"`
	NetProfit decimal.Decimal `json:"net_profit"`
	Margin    MetricValue     `json:"margin"`
}

// PnLTable is the monthly profit & loss statement, bucket ascending.
type PnLTable struct {
	SnapshotID string   `json:"snapshot_id"`
	Rows       []PnLRow `json:"rows"`
}

// KPISummary is the headline-number view of a ledger.
type KPISummary struct {
	SnapshotID       string          `json:"snapshot_id"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	TotalExpenses    decimal.Decimal `json:"total_expenses"`
	NetProfit        decimal.Decimal `json:"net_profit"`
	AverageMargin    MetricValue     `json:"average_margin"`
	LatestMoMGrowth  MetricValue     `json:"latest_mom_growth"`
	Months           int             `json:"months"`
	TransactionCount int             `json:"transaction_count"`
}
