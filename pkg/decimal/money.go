package decimal

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary amount with proper financial precision
type Money struct {
	decimal.Decimal
}

// NewMoney creates a Money from a simulated float amount, rounded to cents
func NewMoney(value float64) Money {
	return Money{decimal.NewFromFloat(value).Round(2)}
}

// NewMoneyFromString creates a new Money instance from a string
func NewMoneyFromString(value string) (Money, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return Money{}, err
	}
	return Money{d}, nil
}

// Sum adds float amounts after rounding each to cents, so a total matches
// the sum of the values printed next to it.
func Sum(values ...float64) Money {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(decimal.NewFromFloat(v).Round(2))
	}
	return Money{total}
}

// Round rounds the money amount to cents
func (m Money) Round() Money {
	return Money{m.Decimal.Round(2)}
}

// Add adds another Money amount
func (m Money) Add(other Money) Money {
	return Money{m.Decimal.Add(other.Decimal)}
}

// Float64 returns the amount as a float, for grouped printing.
func (m Money) Float64() float64 {
	return m.Decimal.InexactFloat64()
}

// String returns the amount with exactly two decimals
func (m Money) String() string {
	return m.Decimal.StringFixed(2)
}

// Format formats the amount as dollars, with the sign ahead of the symbol
func (m Money) Format() string {
	if m.Decimal.IsNegative() {
		return "-$" + m.Decimal.Neg().StringFixed(2)
	}
	return "$" + m.String()
}
