// Package money provides currency-safe arithmetic on integer minor units.
// Amounts are held as go-money values and converted to shopspring/decimal at
// the edges, so totals never accumulate binary floating-point error.
package money

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Common currency codes (ISO-4217)
const (
	USD = "USD"
	EUR = "EUR"
	GBP = "GBP"
	JPY = "JPY"
)

// ErrCurrencyMismatch is returned when combining amounts of different currencies.
var ErrCurrencyMismatch = errors.New("currency mismatch")

// Money represents a monetary value with currency.
type Money struct {
	m *money.Money
	// raw is the decoded amount while its currency is still unknown
	raw *decimal.Decimal
}

// New creates a Money value from minor units and a currency code.
func New(amountMinor int64, currencyCode string) *Money {
	return &Money{m: money.New(amountMinor, normalizeCode(currencyCode))}
}

// Zero returns a zero Money value for the given currency
func Zero(currencyCode string) *Money {
	return New(0, currencyCode)
}

// NewFromDecimal creates Money from a decimal amount in major units,
// rounding half away from zero to the currency's minor unit.
func NewFromDecimal(amount decimal.Decimal, currencyCode string) *Money {
	code := normalizeCode(currencyCode)
	minor := amount.Shift(fraction(code)).Round(0).IntPart()
	return New(minor, code)
}

// Parse reads a plain decimal string such as "1234.56" or "1,234.56".
// More fractional digits than the currency allows is an error.
func Parse(amount string, currencyCode string) (*Money, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(amount), ",", "")
	if cleaned == "" {
		return nil, errors.New("empty amount")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	code := normalizeCode(currencyCode)
	if -d.Exponent() > fraction(code) {
		return nil, fmt.Errorf("invalid amount %q: too many decimal places for %s", amount, code)
	}
	return NewFromDecimal(d, code), nil
}

// Amount returns the amount in minor units
func (m *Money) Amount() int64 {
	if m == nil || m.m == nil {
		return 0
	}
	return m.m.Amount()
}

// Currency returns the ISO-4217 currency code
func (m *Money) Currency() string {
	if m == nil || m.m == nil {
		return ""
	}
	return m.m.Currency().Code
}

func (m *Money) IsZero() bool {
	return m == nil || m.m == nil || m.m.IsZero()
}

func (m *Money) IsPositive() bool {
	return m != nil && m.m != nil && m.m.IsPositive()
}

// Add returns m + other. A nil operand acts as zero.
func (m *Money) Add(other *Money) (*Money, error) {
	if m == nil || m.m == nil {
		return other, nil
	}
	if other == nil || other.m == nil {
		return m, nil
	}
	result, err := m.m.Add(other.m)
	if err != nil {
		return nil, fmt.Errorf("%w: %s + %s", ErrCurrencyMismatch, m.Currency(), other.Currency())
	}
	return &Money{m: result}, nil
}

// Subtract returns m - other. A nil operand acts as zero.
func (m *Money) Subtract(other *Money) (*Money, error) {
	if other == nil || other.m == nil {
		return m, nil
	}
	if m == nil || m.m == nil {
		return &Money{m: other.m.Negative()}, nil
	}
	result, err := m.m.Subtract(other.m)
	if err != nil {
		return nil, fmt.Errorf("%w: %s - %s", ErrCurrencyMismatch, m.Currency(), other.Currency())
	}
	return &Money{m: result}, nil
}

// Compare returns -1 if m < other, 0 if equal, 1 if m > other.
// Amounts are compared in minor units regardless of currency.
func (m *Money) Compare(other *Money) int {
	a, b := m.Amount(), other.Amount()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// ToDecimal converts to decimal.Decimal in major units
func (m *Money) ToDecimal() decimal.Decimal {
	if m == nil || m.m == nil {
		return decimal.Zero
	}
	return decimal.NewFromInt(m.m.Amount()).Shift(-fraction(m.Currency()))
}

// String returns the amount as a fixed-point decimal string (e.g., "1234.50")
func (m *Money) String() string {
	if m == nil || m.m == nil {
		return "0.00"
	}
	return m.ToDecimal().StringFixed(fraction(m.Currency()))
}

// PercentageOf returns what percentage m is of total, rounded to two places.
func (m *Money) PercentageOf(total *Money) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return m.ToDecimal().Div(total.ToDecimal()).Mul(decimal.NewFromInt(100)).Round(2)
}

// MarshalJSON encodes the amount as a decimal string.
func (m *Money) MarshalJSON() ([]byte, error) {
	if m == nil || m.m == nil {
		return json.Marshal(nil)
	}
	return json.Marshal(m.String())
}

// UnmarshalJSON reads a decimal string written by MarshalJSON. The currency is
// not part of the encoding: a receiver that already has one parses in it,
// otherwise the amount is held in EUR until Rebase names the real currency.
func (m *Money) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("money must be a decimal string: %w", err)
	}
	m.raw = nil
	if raw == nil {
		m.m = nil
		return nil
	}
	if m.m != nil {
		parsed, err := Parse(*raw, m.Currency())
		if err != nil {
			return err
		}
		m.m = parsed.m
		return nil
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(*raw), ",", ""))
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", *raw, err)
	}
	m.raw = &d
	m.m = NewFromDecimal(d, EUR).m
	return nil
}

// Rebase rereads a decoded amount in currencyCode. A value that did not come
// from UnmarshalJSON must already be in currencyCode.
func (m *Money) Rebase(currencyCode string) error {
	if m == nil {
		return nil
	}
	code := normalizeCode(currencyCode)
	if m.raw == nil {
		if m.m != nil && m.Currency() != code {
			return fmt.Errorf("%w: %s as %s", ErrCurrencyMismatch, m.Currency(), code)
		}
		return nil
	}
	d := *m.raw
	if !d.Equal(d.Truncate(fraction(code))) {
		return fmt.Errorf("invalid amount %s: too many decimal places for %s", d.String(), code)
	}
	m.m = NewFromDecimal(d, code).m
	m.raw = nil
	return nil
}

// Equal reports whether both values have the same currency and amount.
func (m *Money) Equal(other *Money) bool {
	return m.Currency() == other.Currency() && m.Amount() == other.Amount()
}

func fraction(code string) int32 {
	c := money.GetCurrency(code)
	if c == nil {
		return 2
	}
	return int32(c.Fraction)
}

func normalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || money.GetCurrency(code) == nil {
		return EUR
	}
	return code
}
