// Package usdc holds the fixed-point helpers used for every monetary value:
// six decimal places, round half up, re-scaled after each arithmetic step.
package usdc

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

const Scale = 6

var (
	Zero = decimal.Zero.Round(Scale)
	One  = decimal.NewFromInt(1)

	ErrNotRepresentable = errors.New("amount_not_representable")
	ErrNegativeDecimals = errors.New("negative_token_decimals")
)

// Round rescales v to six places. decimal.Round is half away from zero,
// which is round half up for the non-negative amounts handled here.
func Round(v decimal.Decimal) decimal.Decimal {
	return v.Round(Scale)
}

// NonNegative rounds v and clamps negatives to zero.
func NonNegative(v decimal.Decimal) decimal.Decimal {
	if v.Sign() < 0 {
		return Zero
	}
	return Round(v)
}

func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThanOrEqual(b) {
		return a
	}
	return b
}

func Clamp01(v decimal.Decimal) decimal.Decimal {
	if v.Sign() < 0 {
		return Zero
	}
	if v.GreaterThan(One) {
		return Round(One)
	}
	return Round(v)
}

func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return d, nil
}

// MustParse is for constants and tests.
func MustParse(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// String renders v with exactly six decimal places.
func String(v decimal.Decimal) string {
	return Round(v).StringFixed(Scale)
}

// ToBaseUnits converts a token amount to its integer base units at the given
// decimal count. Amounts with more precision than decimals are rejected.
func ToBaseUnits(amount decimal.Decimal, decimals int) (*big.Int, error) {
	if decimals < 0 {
		return nil, ErrNegativeDecimals
	}
	shifted := amount.Shift(int32(decimals))
	if !shifted.Equal(shifted.Truncate(0)) {
		return nil, fmt.Errorf("%w: %s at %d decimals", ErrNotRepresentable, amount.String(), decimals)
	}
	return shifted.BigInt(), nil
}

// FromBaseUnits is the inverse of ToBaseUnits.
func FromBaseUnits(units *big.Int, decimals int) decimal.Decimal {
	return decimal.NewFromBigInt(units, int32(-decimals))
}
