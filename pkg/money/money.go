// Package money provides currency-safe amounts for report display. Amounts are held in
// minor units through go-money; KRW has no minor unit, so one unit is one won.
package money

import (
	"fmt"
	"math"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Currency codes (ISO-4217)
const (
	KRW = "KRW" // Korean Won (no decimal places)
	USD = "USD" // US Dollar
)

// DefaultCurrency is the currency of every report amount.
const DefaultCurrency = KRW

// Money represents a monetary value with currency.
// It holds go-money minor units and converts to shopspring/decimal for calculations.
type Money struct {
	m *money.Money
}

// New creates a new Money value from minor units and currency code.
// For KRW and other zero-decimal currencies, amount is the actual value.
func New(amount int64, currencyCode string) *Money {
	return &Money{
		m: money.New(amount, currencyCode),
	}
}

// NewFromDecimal creates Money from a decimal.Decimal value.
// This is the safest way to create Money from a non-integer value.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	currency := money.GetCurrency(currencyCode)
	if currency == nil {
		currency = money.GetCurrency(DefaultCurrency)
		currencyCode = DefaultCurrency
	}

	multiplier := decimal.New(1, int32(currency.Fraction))
	minor := clampInt64(amount.Mul(multiplier).Round(0))

	return New(minor, currencyCode)
}

var (
	maxMinor = decimal.NewFromInt(math.MaxInt64)
	minMinor = decimal.NewFromInt(math.MinInt64)
)

// clampInt64 saturates at the int64 bounds instead of wrapping.
func clampInt64(d decimal.Decimal) int64 {
	switch {
	case d.GreaterThan(maxMinor):
		return math.MaxInt64
	case d.LessThan(minMinor):
		return math.MinInt64
	default:
		return d.IntPart()
	}
}

// NewFromString parses amounts such as "1,234", "₩1,234" or "1,234원".
func NewFromString(amount string, currencyCode string) (*Money, error) {
	amount = strings.TrimSpace(amount)
	amount = strings.ReplaceAll(amount, " ", "")

	for _, sym := range []string{"₩", "￦", "$"} {
		amount = strings.ReplaceAll(amount, sym, "")
	}
	amount = strings.TrimSuffix(amount, "원")
	amount = strings.ReplaceAll(amount, ",", "")

	d, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	return NewFromDecimal(d, currencyCode), nil
}

// Amount returns the amount in minor units
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// IsNegative returns true if the amount is less than zero
func (m *Money) IsNegative() bool {
	return m != nil && m.m != nil && m.m.IsNegative()
}

// ToDecimal converts to decimal.Decimal for precise calculations
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	currency := m.m.Currency()
	d := decimal.NewFromInt(m.m.Amount())
	divisor := decimal.New(1, int32(currency.Fraction))
	return d.Div(divisor)
}

// FormatWon formats a decimal amount as whole won, e.g. "₩1,234" or "-₩11,880". It works on
// the decimal directly, so amounts beyond int64 still print correctly.
func FormatWon(amount decimal.Decimal) string {
	digits := amount.Round(0).Abs().String()

	var b strings.Builder
	if amount.Round(0).IsNegative() {
		b.WriteByte('-')
	}
	b.WriteString("₩")
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return b.String()
}
