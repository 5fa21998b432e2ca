package aggregate

import (
	"time"

	"finclient/internal/core"
)

// Report bundles the chart series for export.
type Report struct {
	GeneratedAt time.Time
	Currency    string
	Monthly     []MonthBucket
	Savings     []SavingsPoint
	Categories  []CategoryTotal
}

// BuildReport computes every chart series from one transaction list.
// Categories holds the expense breakdown only.
func BuildReport(txs []core.Transaction, now time.Time, currency string, opts ...Option) Report {
	return Report{
		GeneratedAt: now,
		Currency:    currency,
		Monthly:     MonthlyIncomeExpenses(txs, now, opts...),
		Savings:     SavingsTrend(txs, now, opts...),
		Categories:  ExpenseCategories(CategoryBreakdown(txs, opts...)),
	}
}
