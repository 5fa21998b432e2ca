package core

// DashboardSummary is the backend's aggregate for a period.
type DashboardSummary struct {
	Period           string  `json:"period,omitempty"`
	TotalBalance     Money   `json:"totalBalance"`
	TotalIncome      Money   `json:"totalIncome"`
	TotalExpenses    Money   `json:"totalExpenses"`
	NetSavings       Money   `json:"netSavings"`
	SavingsRate      float64 `json:"savingsRate"`
	AccountCount     int     `json:"accountCount"`
	TransactionCount int     `json:"transactionCount"`
	BudgetCount      int     `json:"budgetCount"`
}

// CategoryStatistics is one category's share of income or expenses.
type CategoryStatistics struct {
	CategoryID   int64           `json:"categoryId"`
	CategoryName string          `json:"categoryName"`
	Type         TransactionType `json:"type"`
	Amount       Money           `json:"amount"`
	Count        int             `json:"count"`
	Percentage   float64         `json:"percentage"`
	Color        string          `json:"color,omitempty"`
}

// MonthlyTrend is a server-computed monthly total.
type MonthlyTrend struct {
	Month    string `json:"month"`
	Year     int    `json:"year"`
	Income   Money  `json:"income"`
	Expenses Money  `json:"expenses"`
	Savings  Money  `json:"savings"`
}

// PeriodTotals are the totals for one side of a period comparison.
type PeriodTotals struct {
	StartDate Date  `json:"startDate"`
	EndDate   Date  `json:"endDate"`
	Income    Money `json:"income"`
	Expenses  Money `json:"expenses"`
	Savings   Money `json:"savings"`
}

type PeriodComparison struct {
	Current               PeriodTotals `json:"currentPeriod"`
	Previous              PeriodTotals `json:"previousPeriod"`
	IncomeChange          Money        `json:"incomeChange"`
	ExpensesChange        Money        `json:"expensesChange"`
	IncomeChangePercent   float64      `json:"incomeChangePercentage"`
	ExpensesChangePercent float64      `json:"expensesChangePercentage"`
}
