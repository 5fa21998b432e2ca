package sheets

import (
	"strconv"
	"time"

	"finclient/internal/aggregate"
)

// Rows lays out a report as a grid: a header line, the monthly table with
// savings, then the expense category table.
func Rows(r aggregate.Report) [][]any {
	rows := [][]any{
		{"Generated", r.GeneratedAt.UTC().Format(time.RFC3339), "Currency", r.Currency},
		{},
		{"Month", "Income", "Expenses", "Savings", "Cumulative"},
	}
	for i, b := range r.Monthly {
		row := []any{b.Label, b.Income.Float64(), b.Expenses.Float64()}
		if i < len(r.Savings) {
			row = append(row, r.Savings[i].Savings.Float64(), r.Savings[i].Cumulative.Float64())
		}
		rows = append(rows, row)
	}

	rows = append(rows, []any{}, []any{"Category", "Type", "Amount", "Count", "Share %"})
	shares := aggregate.Share(r.Categories)
	for i, c := range r.Categories {
		name := c.Name
		if name == "" {
			name = "#" + itoa(c.CategoryID)
		}
		rows = append(rows, []any{name, string(c.Type), c.Amount.Float64(), c.Count, shares[i]})
	}
	return rows
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
