package orderbook

import (
	"fmt"

	"go.uber.org/zap"
)

type MarketStatus string

const (
	// MarketNoLiquidity: the opposing side was empty, nothing was created.
	MarketNoLiquidity MarketStatus = "NO_LIQUIDITY"
	// MarketFilled: the whole quantity executed.
	MarketFilled MarketStatus = "FILLED"
	// MarketRested: part executed and the remainder rests as a limit order
	// at the swept price (shallow sweep).
	MarketRested MarketStatus = "RESTED"
	// MarketPartial: the opposing side ran dry and the remainder was dropped
	// (deep sweep).
	MarketPartial MarketStatus = "PARTIAL"
)

type MarketResult struct {
	Status MarketStatus
	// OrderID is the synthesized order. Zero for MarketNoLiquidity.
	OrderID   uint64
	Requested int64
	Filled    int64
	Remaining int64
	Trades    []Trade
}

func (ob *OrderBook) PlaceMarketBuy(qty int64) (MarketResult, error) {
	return ob.placeMarket(BUY, qty)
}

func (ob *OrderBook) PlaceMarketSell(qty int64) (MarketResult, error) {
	return ob.placeMarket(SELL, qty)
}

// placeMarket turns a market order into a limit order priced at the best
// opposing price. In shallow mode that single level is all it can reach and
// any remainder rests there. In deep mode the order is re-priced to each
// next opposing level until filled or the side is empty.
func (ob *OrderBook) placeMarket(side Side, qty int64) (MarketResult, error) {
	if !side.valid() {
		return MarketResult{}, fmt.Errorf("%w: %q", ErrInvalidSide, side)
	}
	if qty <= 0 {
		return MarketResult{}, fmt.Errorf("%w: %d", ErrInvalidQuantity, qty)
	}

	ob.mu.Lock()
	defer ob.mu.Unlock()
	defer ob.surface("place_market")

	res := MarketResult{Requested: qty, Remaining: qty}
	opposing := ob.index(side.Opposite())

	price, ok := opposing.bestPrice()
	if !ok {
		res.Status = MarketNoLiquidity
		ob.logger.Debug("no liquidity for market order", zap.String("side", string(side)), zap.Int64("qty", qty))
		return res, nil
	}

	o := ob.newOrderLocked(price, qty, side)
	res.OrderID = o.ID

	for {
		ob.restLocked(o)
		ob.matchLocked(side)
		if o.Qty == 0 {
			res.Status = MarketFilled
			break
		}
		if ob.cfg.SweepMode == SweepShallow {
			res.Status = MarketRested
			break
		}
		if ob.cfg.SweepMode != SweepDeep {
			violation("unknown sweep mode %q", ob.cfg.SweepMode)
		}

		// the level at o.Price is exhausted; pull the remainder back off the book
		ob.index(side).remove(o.Price, o)
		next, ok := opposing.bestPrice()
		if !ok {
			ob.orders.remove(o.ID)
			res.Status = MarketPartial
			break
		}
		o.Price = next
	}

	res.Remaining = o.Qty
	res.Filled = qty - o.Qty
	for _, t := range ob.pending.trades {
		if t.BuyOrderID == o.ID || t.SellOrderID == o.ID {
			res.Trades = append(res.Trades, t)
		}
	}
	ob.flushLocked()

	ob.logger.Debug("market order done",
		zap.String("side", string(side)),
		zap.String("status", string(res.Status)),
		zap.Int64("filled", res.Filled),
		zap.Int64("remaining", res.Remaining),
	)

	return res, nil
}
