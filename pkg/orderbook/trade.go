package orderbook

import "time"

// Trade is an immutable execution record. Price is the resting ask's price.
type Trade struct {
	ID          uint64
	Price       int64
	Qty         int64
	BuyOrderID  uint64
	SellOrderID uint64
	Aggressor   Side // side of the order whose arrival caused the cross
	Timestamp   time.Time
}
