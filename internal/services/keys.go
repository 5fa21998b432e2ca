package services

import (
	"strconv"

	"finclient/internal/cache"
	"finclient/internal/core"
)

func id(v int64) string { return strconv.FormatInt(v, 10) }

func KeyAccounts() cache.Key            { return cache.NewKey("accounts") }
func KeyAccount(v int64) cache.Key      { return cache.NewKey("accounts", id(v)) }
func KeyTransactions() cache.Key        { return cache.NewKey("transactions") }
func KeyTransaction(v int64) cache.Key  { return cache.NewKey("transactions", id(v)) }
func KeyBudgets() cache.Key             { return cache.NewKey("budgets") }
func KeyBudget(v int64) cache.Key       { return cache.NewKey("budgets", id(v)) }
func KeyCategories() cache.Key          { return cache.NewKey("categories") }
func KeyCategory(v int64) cache.Key     { return cache.NewKey("categories", id(v)) }
func KeyGoals() cache.Key               { return cache.NewKey("goals") }
func KeyGoal(v int64) cache.Key         { return cache.NewKey("goals", id(v)) }
func KeyGoalProgress(v int64) cache.Key { return cache.NewKey("goals", id(v), "progress") }
func KeyActiveGoals() cache.Key         { return cache.NewKey("goals", "active") }
func KeyCompletedGoals() cache.Key      { return cache.NewKey("goals", "completed") }
func KeyGoalsByPriority(p core.GoalPriority) cache.Key {
	return cache.NewKey("goals", "priority", string(p))
}

// KeyDashboardSummary with an empty period is also the prefix of every period.
func KeyDashboardSummary(period string) cache.Key {
	return cache.NewKey("dashboard", "summary", period)
}

func KeyCategoryStatistics(period string, typ core.TransactionType) cache.Key {
	return cache.NewKey("dashboard", "categoryStats", period, string(typ))
}

func KeyMonthlyTrends(months int) cache.Key {
	m := ""
	if months > 0 {
		m = strconv.Itoa(months)
	}
	return cache.NewKey("dashboard", "monthlyTrends", m)
}

func KeyPeriodComparison(cs, ce, ps, pe core.Date) cache.Key {
	return cache.NewKey("dashboard", "periodComparison", cs.String(), ce.String(), ps.String(), pe.String())
}

// Keys each mutation makes stale. They are prefixes: KeyDashboardSummary("")
// covers every period.

func accountCreatedKeys() []cache.Key {
	return []cache.Key{KeyAccounts(), KeyDashboardSummary("")}
}

func accountUpdatedKeys(v int64) []cache.Key {
	return []cache.Key{KeyAccounts(), KeyAccount(v), KeyDashboardSummary("")}
}

func accountDeletedKeys() []cache.Key {
	return []cache.Key{KeyAccounts(), KeyTransactions(), KeyDashboardSummary("")}
}

// transactionKeys covers everything a transaction can move: balances,
// budget spend and the dashboard aggregates.
func transactionKeys(ids ...int64) []cache.Key {
	keys := []cache.Key{KeyTransactions()}
	for _, v := range ids {
		keys = append(keys, KeyTransaction(v))
	}
	return append(keys,
		KeyAccounts(),
		KeyBudgets(),
		KeyDashboardSummary(""),
		KeyCategoryStatistics("", ""),
		KeyMonthlyTrends(0),
	)
}

func budgetKeys() []cache.Key {
	return []cache.Key{KeyBudgets(), KeyDashboardSummary("")}
}

func budgetUpdatedKeys(v int64) []cache.Key {
	return []cache.Key{KeyBudgets(), KeyBudget(v), KeyDashboardSummary("")}
}

func categoryKeys() []cache.Key {
	return []cache.Key{KeyCategories()}
}

func categoryUpdatedKeys(v int64) []cache.Key {
	return []cache.Key{KeyCategories(), KeyCategory(v)}
}

func goalCreatedKeys() []cache.Key {
	return []cache.Key{KeyGoals(), KeyActiveGoals()}
}

func goalUpdatedKeys(v int64) []cache.Key {
	return []cache.Key{KeyGoals(), KeyGoal(v), KeyGoalProgress(v)}
}

func goalClosedKeys() []cache.Key {
	return []cache.Key{KeyGoals(), KeyActiveGoals(), KeyCompletedGoals()}
}

func goalCancelledKeys() []cache.Key {
	return []cache.Key{KeyGoals(), KeyActiveGoals()}
}
