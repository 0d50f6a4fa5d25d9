/*
Package generic provides the domain-agnostic core of the welfare fund engine.

PURPOSE:
  This package holds the pieces every fund workflow leans on but that know
  nothing about members, loans or claims: currency arithmetic, calendar
  helpers, the append-only fund ledger, sequential number allocation and the
  error taxonomy shared by all workflows.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money: currency amounts as decimal.Decimal, rounded to 2 places
  - Actor: opaque identifier of whoever performs an operation

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal, never float64, for money
  2. Immutability: Ledger entries are never modified, only offset
  3. Explicit actors: Every write takes the acting user as a parameter

USAGE:
  fine := generic.Money(amount.Mul(generic.Rate("0.5")))
  covered := generic.Percent(billed, pct)

SEE ALSO:
  - ledger.go: Fund ledger entries and balance aggregation
  - sequence.go: Receipt/claim/registration number allocation
  - errors.go: Error taxonomy
*/
package generic

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Fixed-point currency amounts
// =============================================================================

// MoneyPlaces is the number of fractional digits kept for currency.
const MoneyPlaces = 2

// Money rounds a decimal to currency precision (half away from zero).
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// MustParseDecimal parses s or returns zero. Used for stored values that
// were written by this package.
func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Rate parses a constant multiplier such as "0.5". Panics on malformed input,
// so only call it with literals.
func Rate(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// Percent returns amount * pct / 100 at currency precision.
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return Money(amount.Mul(pct).Div(decimal.NewFromInt(100)))
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

// Actor identifies the user performing an operation. The engine never reads
// the current user from ambient state; callers pass it in.
type Actor string

// System is the actor used for automated sweeps.
const System Actor = "system"

func (a Actor) String() string { return string(a) }
