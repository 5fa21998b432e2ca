// Package core provides money parsing and handling utilities.
//
// This file contains the Money type used for every amount exchanged with the
// backend, and helpers to parse and format amounts typed by a user.
package core

import (
	"bytes"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultCurrency is the currency code used when an amount has none attached.
const DefaultCurrency = "MGA"

// Money is an exact decimal amount. It marshals to a bare JSON number.
type Money struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{}

// NewMoney wraps a decimal value.
func NewMoney(d decimal.Decimal) Money {
	return Money{d: d}
}

// MoneyFromInt returns a whole amount.
func MoneyFromInt(v int64) Money {
	return Money{d: decimal.NewFromInt(v)}
}

// MoneyFromFloat converts a float, for values coming from UI-style input.
func MoneyFromFloat(v float64) Money {
	return Money{d: decimal.NewFromFloat(v)}
}

// MustMoney parses s and panics on error. Intended for tests and constants.
func MustMoney(s string) Money {
	m, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return Money{d: m}
}

func (m Money) Decimal() decimal.Decimal { return m.d }
func (m Money) Add(o Money) Money        { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money        { return Money{d: m.d.Sub(o.d)} }
func (m Money) Cmp(o Money) int          { return m.d.Cmp(o.d) }
func (m Money) Equal(o Money) bool       { return m.d.Equal(o.d) }
func (m Money) IsZero() bool             { return m.d.IsZero() }
func (m Money) IsNegative() bool         { return m.d.IsNegative() }
func (m Money) IsPositive() bool         { return m.d.IsPositive() }
func (m Money) String() string           { return m.d.String() }

// Float64 returns the amount as a float for display and chart rendering.
// Use Money for calculations to avoid floating-point precision issues.
func (m Money) Float64() float64 {
	f, _ := m.d.Float64()
	return f
}

// Percent returns m / total * 100 rounded to two places, or zero when total is zero.
func (m Money) Percent(total Money) float64 {
	if total.d.IsZero() {
		return 0
	}
	f, _ := m.d.Div(total.d).Mul(decimal.NewFromInt(100)).Round(2).Float64()
	return f
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.d.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		m.d = decimal.Zero
		return nil
	}
	return m.d.UnmarshalJSON(data)
}

// ParseMoney converts a user-typed decimal string into a positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, ignores
// spaces used as thousands separators and rejects signs, zero, and anything
// that is not a plain decimal number.
//
// Examples:
//
//	ParseMoney("12.34")     -> 12.34
//	ParseMoney("12,34")     -> 12.34
//	ParseMoney("1 250 000") -> 1250000
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalidAmount
	}
	s = strings.NewReplacer(" ", "", "\u00a0", "", "\u202f", "").Replace(s)
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Zero, ErrInvalidAmount
	}
	if strings.ContainsAny(s, "eE") {
		return Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, ErrInvalidAmount
	}
	if !d.IsPositive() {
		return Zero, ErrInvalidAmount
	}
	return Money{d: d}, nil
}

var currencySymbols = map[string]string{
	"MGA": "Ar",
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
}

// FormatMoney renders an amount with French digit grouping followed by the
// currency symbol, e.g. "1 250 000 Ar". Unknown codes are printed as-is.
func FormatMoney(m Money, currency string) string {
	if currency == "" {
		currency = DefaultCurrency
	}
	symbol, ok := currencySymbols[strings.ToUpper(currency)]
	if !ok {
		symbol = strings.ToUpper(currency)
	}
	p := message.NewPrinter(language.French)
	return p.Sprintf("%v %s", number.Decimal(m.Float64(), number.MaxFractionDigits(2)), symbol)
}
