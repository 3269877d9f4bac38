package orderbook

import "time"

type Side string

const (
	BUY  Side = "BUY"
	SELL Side = "SELL"
)

func (s Side) valid() bool {
	return s == BUY || s == SELL
}

// Opposite returns the side an order of side s trades against.
func (s Side) Opposite() Side {
	if s == BUY {
		return SELL
	}
	return BUY
}

// Order is a live resting order. Price and Qty are in the smallest currency
// unit and whole lots respectively.
type Order struct {
	ID        uint64
	Side      Side
	Price     int64
	Qty       int64 // remaining
	OrigQty   int64
	Seq       uint64 // arrival sequence, only used to break ties inside a level
	Timestamp time.Time

	// intrusive FIFO links, owned by the level the order rests in
	level *priceLevel
	prev  *Order
	next  *Order
}

// Filled returns the quantity executed so far.
func (o *Order) Filled() int64 {
	return o.OrigQty - o.Qty
}

// snapshot copies the public fields so callers never hold a pointer into the book.
func (o *Order) snapshot() Order {
	return Order{
		ID:        o.ID,
		Side:      o.Side,
		Price:     o.Price,
		Qty:       o.Qty,
		OrigQty:   o.OrigQty,
		Seq:       o.Seq,
		Timestamp: o.Timestamp,
	}
}
