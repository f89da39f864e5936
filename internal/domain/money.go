package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrDivisionByZero is returned by MonetaryValue.Div when the divisor amount is zero
var ErrDivisionByZero = errors.New("division by zero")

// MonetaryValue is an amount tagged with its unit (a fiat currency like "USD"
// or an asset like "BTC").
// Binary operations only succeed between values of the same unit.
type MonetaryValue struct {
	Amount decimal.Decimal
	Unit   string
}

// UnitMismatchError describes a binary operation attempted on two different units
type UnitMismatchError struct {
	Op    string
	Left  string
	Right string
}

func (e *UnitMismatchError) Error() string {
	return fmt.Sprintf("unit mismatch in %s: %q vs %q", e.Op, e.Left, e.Right)
}

// Is makes errors.Is(err, ErrUnitMismatch) hold for every UnitMismatchError
func (e *UnitMismatchError) Is(target error) bool {
	return target == ErrUnitMismatch
}

// NormalizeUnit upper-cases and trims a unit so " btc" and "BTC" compare equal
func NormalizeUnit(unit string) string {
	return strings.ToUpper(strings.TrimSpace(unit))
}

// NewMonetaryValue creates a MonetaryValue with a normalized unit
func NewMonetaryValue(amount decimal.Decimal, unit string) MonetaryValue {
	return MonetaryValue{Amount: amount, Unit: NormalizeUnit(unit)}
}

// MustParseMonetaryValue parses a decimal string and panics on malformed input.
// Intended for fixtures and constants.
func MustParseMonetaryValue(amount, unit string) MonetaryValue {
	return NewMonetaryValue(decimal.RequireFromString(amount), unit)
}

// ZeroOf returns a zero amount of the given unit
func ZeroOf(unit string) MonetaryValue {
	return NewMonetaryValue(decimal.Zero, unit)
}

// SameUnit reports whether both values carry the same unit (case/whitespace-insensitive)
func (m MonetaryValue) SameUnit(other MonetaryValue) bool {
	return NormalizeUnit(m.Unit) == NormalizeUnit(other.Unit)
}

func (m MonetaryValue) check(op string, other MonetaryValue) error {
	if !m.SameUnit(other) {
		return &UnitMismatchError{Op: op, Left: m.Unit, Right: other.Unit}
	}
	return nil
}

// Add returns m + other
func (m MonetaryValue) Add(other MonetaryValue) (MonetaryValue, error) {
	if err := m.check("add", other); err != nil {
		return MonetaryValue{}, err
	}
	return NewMonetaryValue(m.Amount.Add(other.Amount), m.Unit), nil
}

// Sub returns m - other
func (m MonetaryValue) Sub(other MonetaryValue) (MonetaryValue, error) {
	if err := m.check("sub", other); err != nil {
		return MonetaryValue{}, err
	}
	return NewMonetaryValue(m.Amount.Sub(other.Amount), m.Unit), nil
}

// Mul returns m * other, keeping m's unit
func (m MonetaryValue) Mul(other MonetaryValue) (MonetaryValue, error) {
	if err := m.check("mul", other); err != nil {
		return MonetaryValue{}, err
	}
	return NewMonetaryValue(m.Amount.Mul(other.Amount), m.Unit), nil
}

// Div returns m / other, keeping m's unit
func (m MonetaryValue) Div(other MonetaryValue) (MonetaryValue, error) {
	if err := m.check("div", other); err != nil {
		return MonetaryValue{}, err
	}
	if other.Amount.IsZero() {
		return MonetaryValue{}, ErrDivisionByZero
	}
	return NewMonetaryValue(m.Amount.Div(other.Amount), m.Unit), nil
}

// Cmp compares m and other: -1 if m < other, 0 if equal, +1 if m > other
func (m MonetaryValue) Cmp(other MonetaryValue) (int, error) {
	if err := m.check("compare", other); err != nil {
		return 0, err
	}
	return m.Amount.Cmp(other.Amount), nil
}

// GreaterThan reports whether m > other
func (m MonetaryValue) GreaterThan(other MonetaryValue) (bool, error) {
	c, err := m.Cmp(other)
	return c > 0, err
}

// LessThanOrEqual reports whether m <= other
func (m MonetaryValue) LessThanOrEqual(other MonetaryValue) (bool, error) {
	c, err := m.Cmp(other)
	return c <= 0, err
}

// Abs returns the absolute value
func (m MonetaryValue) Abs() MonetaryValue {
	return NewMonetaryValue(m.Amount.Abs(), m.Unit)
}

// Scale multiplies the amount by a plain factor
func (m MonetaryValue) Scale(factor decimal.Decimal) MonetaryValue {
	return NewMonetaryValue(m.Amount.Mul(factor), m.Unit)
}

func (m MonetaryValue) IsPositive() bool {
	return m.Amount.IsPositive()
}

func (m MonetaryValue) IsZero() bool {
	return m.Amount.IsZero()
}

func (m MonetaryValue) String() string {
	return m.Amount.String() + " " + NormalizeUnit(m.Unit)
}
