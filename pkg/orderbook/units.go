package orderbook

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ToDisplay converts a price in minor units (e.g. pence) to display units
// using scale decimal places.
func ToDisplay(price int64, scale int32) decimal.Decimal {
	return decimal.New(price, -scale)
}

// FromDisplay converts a display price back to minor units. Prices finer
// than the scale are rejected rather than rounded.
func FromDisplay(d decimal.Decimal, scale int32) (int64, error) {
	minor := d.Shift(scale)
	if !minor.Equal(minor.Truncate(0)) {
		return 0, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidPrice, d, scale)
	}
	return minor.IntPart(), nil
}
