// Package core provides the allocation accounting model.
//
// This file contains the Money type: a decimal amount that serializes as a
// plain JSON number, parsing from user input and localized display.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Money is a decimal amount in ringgit.
type Money struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Money{d: decimal.Zero}

var displayPrinter = message.NewPrinter(language.MustParse("en-MY"))

// NewMoney wraps a decimal value.
func NewMoney(d decimal.Decimal) Money { return Money{d: d} }

// MoneyFromInt returns a whole-ringgit amount.
func MoneyFromInt(v int64) Money { return Money{d: decimal.NewFromInt(v)} }

// MoneyFromFloat converts a float amount; NaN and infinities are rejected.
func MoneyFromFloat(f float64) (Money, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Money{}, ErrInvalidAmount
	}
	return Money{d: decimal.NewFromFloat(f)}, nil
}

// ParseMoney parses user input such as "3000", "2800.50" or "2800,50".
//
// The sign is kept so that validation can report negative amounts; only
// non-numeric input is rejected here.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return Money{}, ErrInvalidAmount
	}
	// decimal accepts exponents; user input never needs them
	if strings.ContainsAny(s, "eE") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{d: d}, nil
}

func (m Money) Decimal() decimal.Decimal { return m.d }
func (m Money) Add(o Money) Money        { return Money{d: m.d.Add(o.d)} }
func (m Money) Sub(o Money) Money        { return Money{d: m.d.Sub(o.d)} }
func (m Money) Cmp(o Money) int          { return m.d.Cmp(o.d) }
func (m Money) Equal(o Money) bool       { return m.d.Equal(o.d) }
func (m Money) IsZero() bool             { return m.d.IsZero() }
func (m Money) IsNegative() bool         { return m.d.IsNegative() }
func (m Money) GreaterThan(o Money) bool { return m.d.GreaterThan(o.d) }
func (m Money) LessThan(o Money) bool    { return m.d.LessThan(o.d) }

// Percent returns p percent of m.
func (m Money) Percent(p decimal.Decimal) Money {
	return Money{d: m.d.Mul(p).Div(decimal.NewFromInt(100))}
}

// String returns the plain decimal representation.
func (m Money) String() string { return m.d.String() }

// Float64 is for display and metrics only.
func (m Money) Float64() float64 {
	f, _ := m.d.Float64()
	return f
}

// Format renders the amount with two decimals and en-MY grouping, e.g. "RM 33,000.00".
func (m Money) Format() string {
	if m.IsNegative() {
		return "-RM " + displayPrinter.Sprintf("%.2f", m.d.Neg().InexactFloat64())
	}
	return "RM " + displayPrinter.Sprintf("%.2f", m.d.InexactFloat64())
}

// MarshalJSON writes the amount as a JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.d.String()), nil
}

// UnmarshalJSON accepts both JSON numbers and quoted decimal strings.
func (m *Money) UnmarshalJSON(b []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	m.d = d
	return nil
}
