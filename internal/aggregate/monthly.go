// Package aggregate turns flat transaction lists into chart-ready series.
// Every function is pure and total: empty input yields zero-filled or
// empty output, never an error.
package aggregate

import (
	"fmt"
	"time"

	"finclient/internal/core"
)

// Months is the width of the trailing window used by the monthly series.
const Months = 6

// Labeler renders the label of a month bucket.
type Labeler func(year int, month time.Month) string

var frenchMonths = [...]string{
	"janv.", "févr.", "mars", "avr.", "mai", "juin",
	"juil.", "août", "sept.", "oct.", "nov.", "déc.",
}

// FrenchLabel renders "janv. 2025", the short month form of the fr-FR locale.
func FrenchLabel(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", frenchMonths[month-1], year)
}

// EnglishLabel renders "Jan 2025".
func EnglishLabel(year int, month time.Month) string {
	return fmt.Sprintf("%s %d", month.String()[:3], year)
}

type options struct {
	labeler    Labeler
	categories map[int64]core.Category
}

type Option func(*options)

// WithLabeler overrides the month label format.
func WithLabeler(l Labeler) Option {
	return func(o *options) {
		if l != nil {
			o.labeler = l
		}
	}
}

// WithCategories supplies category details for transactions whose category
// is referenced by id only.
func WithCategories(categories []core.Category) Option {
	return func(o *options) {
		if o.categories == nil {
			o.categories = make(map[int64]core.Category, len(categories))
		}
		for _, c := range categories {
			o.categories[c.ID] = c
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{labeler: FrenchLabel}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// MonthBucket holds the income and expense totals of one calendar month.
type MonthBucket struct {
	Label    string
	Year     int
	Month    time.Month
	Income   core.Money
	Expenses core.Money
}

// Net is income minus expenses.
func (b MonthBucket) Net() core.Money {
	return b.Income.Sub(b.Expenses)
}

// SavingsPoint is a month bucket with its savings and the running total.
type SavingsPoint struct {
	MonthBucket
	Savings    core.Money
	Cumulative core.Money
}

type monthKey struct {
	year  int
	month time.Month
}

// window returns the Months calendar months ending at now's month, oldest first.
func window(now time.Time, labeler Labeler) []MonthBucket {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	buckets := make([]MonthBucket, Months)
	for i := 0; i < Months; i++ {
		m := first.AddDate(0, i-(Months-1), 0)
		buckets[i] = MonthBucket{
			Label:    labeler(m.Year(), m.Month()),
			Year:     m.Year(),
			Month:    m.Month(),
			Income:   core.Zero,
			Expenses: core.Zero,
		}
	}
	return buckets
}

// MonthlyIncomeExpenses sums income and expenses per month over the
// trailing window ending at now. Transfers and transactions outside the
// window are ignored. The result always has Months buckets.
func MonthlyIncomeExpenses(txs []core.Transaction, now time.Time, opts ...Option) []MonthBucket {
	o := buildOptions(opts)
	buckets := window(now, o.labeler)

	index := make(map[monthKey]int, len(buckets))
	for i, b := range buckets {
		index[monthKey{b.Year, b.Month}] = i
	}

	for _, t := range txs {
		if t.Date.IsZero() {
			continue
		}
		i, ok := index[monthKey{t.Date.Year(), t.Date.Month()}]
		if !ok {
			continue
		}
		switch t.Type {
		case core.Income:
			buckets[i].Income = buckets[i].Income.Add(t.Amount)
		case core.Expense:
			buckets[i].Expenses = buckets[i].Expenses.Add(t.Amount)
		}
	}
	return buckets
}

// SavingsTrend reuses the monthly buckets and adds per-month savings and
// their running sum from the oldest month.
func SavingsTrend(txs []core.Transaction, now time.Time, opts ...Option) []SavingsPoint {
	buckets := MonthlyIncomeExpenses(txs, now, opts...)
	points := make([]SavingsPoint, len(buckets))
	cumulative := core.Zero
	for i, b := range buckets {
		savings := b.Net()
		cumulative = cumulative.Add(savings)
		points[i] = SavingsPoint{MonthBucket: b, Savings: savings, Cumulative: cumulative}
	}
	return points
}
