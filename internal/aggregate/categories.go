package aggregate

import (
	"sort"

	"finclient/internal/core"
)

// DashboardTopN is how many categories the dashboard summary shows.
const DashboardTopN = 5

// CategoryTotal is the sum of one category's transactions of one type.
type CategoryTotal struct {
	CategoryID int64
	Name       string
	Color      string
	Type       core.TransactionType
	Amount     core.Money
	Count      int
}

type categoryKey struct {
	id  int64
	typ core.TransactionType
}

// CategoryBreakdown groups transactions by (category, type), so a category
// used for both income and expenses appears twice. Uncategorised
// transactions are skipped. Entries are sorted by descending amount; ties
// keep first-seen order.
func CategoryBreakdown(txs []core.Transaction, opts ...Option) []CategoryTotal {
	o := buildOptions(opts)

	var totals []CategoryTotal
	index := make(map[categoryKey]int)
	for _, t := range txs {
		id, ok := t.CategoryKey()
		if !ok {
			continue
		}
		key := categoryKey{id: id, typ: t.Type}
		if i, seen := index[key]; seen {
			totals[i].Amount = totals[i].Amount.Add(t.Amount)
			totals[i].Count++
			continue
		}

		total := CategoryTotal{CategoryID: id, Type: t.Type, Amount: t.Amount, Count: 1}
		switch {
		case t.Category != nil:
			total.Name, total.Color = t.Category.Name, t.Category.Color
		default:
			if c, ok := o.categories[id]; ok {
				total.Name, total.Color = c.Name, c.Color
			}
		}
		index[key] = len(totals)
		totals = append(totals, total)
	}

	sort.SliceStable(totals, func(i, j int) bool {
		return totals[i].Amount.Cmp(totals[j].Amount) > 0
	})
	if totals == nil {
		totals = []CategoryTotal{}
	}
	return totals
}

// TopCategories is the breakdown truncated to n entries.
func TopCategories(txs []core.Transaction, n int, opts ...Option) []CategoryTotal {
	totals := CategoryBreakdown(txs, opts...)
	if n >= 0 && len(totals) > n {
		totals = totals[:n]
	}
	return totals
}

// ExpenseCategories keeps the expense entries of a breakdown, in order.
func ExpenseCategories(breakdown []CategoryTotal) []CategoryTotal {
	out := make([]CategoryTotal, 0, len(breakdown))
	for _, c := range breakdown {
		if c.Type == core.Expense {
			out = append(out, c)
		}
	}
	return out
}

// Share returns each entry's percentage of the breakdown total.
func Share(breakdown []CategoryTotal) []float64 {
	total := core.Zero
	for _, c := range breakdown {
		total = total.Add(c.Amount)
	}
	shares := make([]float64, len(breakdown))
	for i, c := range breakdown {
		shares[i] = c.Amount.Percent(total)
	}
	return shares
}
