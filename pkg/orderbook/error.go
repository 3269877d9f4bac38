package orderbook

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidPrice    = errors.New("invalid order price")
	ErrInvalidQuantity = errors.New("invalid order quantity")
	ErrInvalidSide     = errors.New("invalid order side")
)

// InvariantError reports a broken book invariant. It always indicates a bug
// and is raised with panic, never returned.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return "orderbook invariant violated: " + e.Msg
}

func violation(format string, args ...any) {
	panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
}

func validateLimit(price, qty int64, side Side) error {
	if !side.valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSide, side)
	}
	if price <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidPrice, price)
	}
	if qty <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}
	return nil
}
