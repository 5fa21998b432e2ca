package aggregate

import (
	"sort"
	"time"

	"finclient/internal/core"
)

// Overview is the dashboard headline computed from raw lists.
type Overview struct {
	TotalBalance     core.Money
	MonthIncome      core.Money
	MonthExpenses    core.Money
	NetSavings       core.Money
	SavingsRate      float64
	AccountCount     int
	TransactionCount int
	BudgetCount      int
}

// BuildOverview sums account balances and the current month's income and
// expenses. The savings rate is zero when there is no income.
func BuildOverview(accounts []core.Account, txs []core.Transaction, budgets []core.Budget, now time.Time) Overview {
	ov := Overview{
		TotalBalance:     core.Zero,
		MonthIncome:      core.Zero,
		MonthExpenses:    core.Zero,
		AccountCount:     len(accounts),
		TransactionCount: len(txs),
		BudgetCount:      len(budgets),
	}
	for _, a := range accounts {
		ov.TotalBalance = ov.TotalBalance.Add(a.Balance)
	}
	for _, t := range txs {
		if t.Date.Year() != now.Year() || t.Date.Month() != now.Month() {
			continue
		}
		switch t.Type {
		case core.Income:
			ov.MonthIncome = ov.MonthIncome.Add(t.Amount)
		case core.Expense:
			ov.MonthExpenses = ov.MonthExpenses.Add(t.Amount)
		}
	}
	ov.NetSavings = ov.MonthIncome.Sub(ov.MonthExpenses)
	if ov.MonthIncome.IsPositive() {
		ov.SavingsRate = ov.NetSavings.Percent(ov.MonthIncome)
	}
	return ov
}

// RecentTransactions returns the n newest transactions, newest first.
// The input is not modified.
func RecentTransactions(txs []core.Transaction, n int) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date.Time)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
