package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a non-negative currency quantity held as a fixed-point decimal
// with two fractional digits. The zero value is zero money.
type Amount struct {
	d decimal.Decimal
}

// Zero is the zero amount.
var Zero = Amount{}

// Parse converts a decimal string such as "12.50" into an Amount. Values are
// rounded half-up to two decimal places. Negative values are rejected.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return Amount{}, fmt.Errorf("amount %q is negative", s)
	}
	return Amount{d: d.Round(2)}, nil
}

// MustParse is a test helper that panics on malformed input.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// FromCents builds an Amount from an integral number of cents.
func FromCents(cents int64) Amount {
	return Amount{d: decimal.New(cents, -2)}
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{d: a.d.Add(b.d)}
}

// Sub returns a - b, failing if the result would be negative.
func (a Amount) Sub(b Amount) (Amount, error) {
	r := a.d.Sub(b.d)
	if r.IsNegative() {
		return Amount{}, fmt.Errorf("amount %s - %s is negative", a, b)
	}
	return Amount{d: r}, nil
}

// Cmp compares two amounts exactly: -1 if a < b, 0 if equal, +1 if a > b.
func (a Amount) Cmp(b Amount) int {
	return a.d.Cmp(b.d)
}

// Equal reports whether both amounts hold the same value.
func (a Amount) Equal(b Amount) bool {
	return a.d.Cmp(b.d) == 0
}

// Less reports whether a < b.
func (a Amount) Less(b Amount) bool {
	return a.d.Cmp(b.d) < 0
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool {
	return a.d.IsPositive()
}

// Decimal exposes the underlying decimal, primarily for persistence scans.
func (a Amount) Decimal() decimal.Decimal {
	return a.d
}

// FromDecimal wraps a decimal scanned from storage, rejecting negatives.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	if d.IsNegative() {
		return Amount{}, fmt.Errorf("amount %s is negative", d)
	}
	return Amount{d: d.Round(2)}, nil
}

// String renders the amount with exactly two decimal places.
func (a Amount) String() string {
	return a.d.StringFixed(2)
}

// MarshalJSON encodes the amount as a quoted decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + a.String() + `"`), nil
}

// UnmarshalJSON accepts either a quoted decimal string or a bare number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
