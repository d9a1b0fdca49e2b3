package domain

import (
	"bytes"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a non-negative currency value. It decodes from JSON numbers and
// JSON strings alike; anything unparseable or negative decodes as zero.
type Amount struct {
	decimal.Decimal
}

func NewAmount(value decimal.Decimal) Amount {
	if value.IsNegative() {
		return Amount{}
	}
	return Amount{Decimal: value}
}

func AmountFromInt(value int64) Amount {
	return NewAmount(decimal.NewFromInt(value))
}

func AmountFromCents(cents int64) Amount {
	return NewAmount(decimal.New(cents, -2))
}

// ParseAmount is parse-or-default: it never fails and yields zero for empty,
// malformed or negative input.
func ParseAmount(raw string) Amount {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return Amount{}
	}
	parsed, err := decimal.NewFromString(clean)
	if err != nil {
		return Amount{}
	}
	return NewAmount(parsed)
}

// MaxCost is the largest accident cost every store accepts, the NUMERIC(12,2)
// ceiling of the postgres column.
var MaxCost = Amount{Decimal: decimal.New(999_999_999_999, -2)}

// CheckCost rejects a cost that no store can hold once rounded to cents.
func CheckCost(cost Amount) error {
	if cost.RoundCents().GreaterThan(MaxCost.Decimal) {
		return InvalidArgument("cost must not exceed " + MaxCost.StringFixed(2))
	}
	return nil
}

var (
	minCents = decimal.NewFromInt(math.MinInt64)
	maxCents = decimal.NewFromInt(math.MaxInt64)
)

// Cents rounds to two decimals and returns the value in hundredths. ok is
// false when the result does not fit an int64.
func (a Amount) Cents() (cents int64, ok bool) {
	shifted := a.Decimal.Round(2).Shift(2)
	if shifted.LessThan(minCents) || shifted.GreaterThan(maxCents) {
		return 0, false
	}
	return shifted.IntPart(), true
}

func (a Amount) RoundCents() Amount {
	return Amount{Decimal: a.Decimal.Round(2)}
}

func (a Amount) Add(other Amount) Amount {
	return Amount{Decimal: a.Decimal.Add(other.Decimal)}
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

func (a *Amount) UnmarshalJSON(raw []byte) error {
	clean := bytes.TrimSpace(raw)
	if bytes.Equal(clean, []byte("null")) {
		*a = Amount{}
		return nil
	}
	*a = ParseAmount(strings.Trim(string(clean), `"`))
	return nil
}
