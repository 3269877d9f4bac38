package feed

import (
	"time"

	"github.com/joripage/clob/pkg/orderbook"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventLevelUpdate EventType = "LEVEL_UPDATE"
	EventLevelDelete EventType = "LEVEL_DELETE"
	EventTrade       EventType = "TRADE"
	EventSnapshot    EventType = "SNAPSHOT"
)

// DisplayLevel is a price level with its price in display units.
type DisplayLevel struct {
	Price  decimal.Decimal `json:"price"`
	Qty    int64           `json:"qty"`
	Orders int             `json:"orders"`
}

// Event is one market data message. Seq is gapless per publisher, so a
// consumer that sees a jump knows it lost messages and should resync from a
// SNAPSHOT. BookSeq is the book update that produced the event.
type Event struct {
	Seq       uint64    `json:"seq"`
	BookSeq   uint64    `json:"book_seq"`
	Type      EventType `json:"type"`
	Symbol    string    `json:"symbol"`
	Timestamp time.Time `json:"timestamp"`

	// LEVEL_UPDATE / LEVEL_DELETE / TRADE
	Side   orderbook.Side  `json:"side,omitempty"`
	Action string          `json:"action,omitempty"`
	Price  decimal.Decimal `json:"price,omitzero"`
	Qty    int64           `json:"qty,omitempty"`
	Orders int             `json:"orders,omitempty"`

	// TRADE
	TradeID     uint64 `json:"trade_id,omitempty"`
	BuyOrderID  uint64 `json:"buy_order_id,omitempty"`
	SellOrderID uint64 `json:"sell_order_id,omitempty"`

	// SNAPSHOT
	Bids []DisplayLevel `json:"bids,omitempty"`
	Asks []DisplayLevel `json:"asks,omitempty"`
}

// eventsFromUpdate expands one book update into feed events: trades first,
// then the final state of every touched level.
func eventsFromUpdate(symbol string, scale int32, at time.Time, u orderbook.Update) []Event {
	out := make([]Event, 0, len(u.Trades)+len(u.Levels))
	for _, t := range u.Trades {
		out = append(out, Event{
			BookSeq:     u.Seq,
			Type:        EventTrade,
			Symbol:      symbol,
			Timestamp:   t.Timestamp,
			Side:        t.Aggressor,
			Price:       orderbook.ToDisplay(t.Price, scale),
			Qty:         t.Qty,
			TradeID:     t.ID,
			BuyOrderID:  t.BuyOrderID,
			SellOrderID: t.SellOrderID,
		})
	}
	for _, l := range u.Levels {
		e := Event{
			BookSeq:   u.Seq,
			Type:      EventLevelUpdate,
			Symbol:    symbol,
			Timestamp: at,
			Side:      l.Side,
			Action:    string(l.Action),
			Price:     orderbook.ToDisplay(l.Price, scale),
			Qty:       l.Qty,
			Orders:    l.Orders,
		}
		if l.Action == orderbook.LevelDeleted {
			e.Type = EventLevelDelete
			e.Action = ""
		}
		out = append(out, e)
	}
	return out
}

func displayLevels(levels []orderbook.Level, scale int32) []DisplayLevel {
	out := make([]DisplayLevel, len(levels))
	for i, l := range levels {
		out[i] = DisplayLevel{Price: orderbook.ToDisplay(l.Price, scale), Qty: l.Qty, Orders: l.Orders}
	}
	return out
}
