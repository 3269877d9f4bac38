package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/joripage/clob/pkg/orderbook"
	"github.com/shopspring/decimal"
)

const (
	minPrice = 100.0
	maxPrice = 200.0
	minQty   = 1
	maxQty   = 100
)

type order struct {
	price int64
	qty   int64
	side  orderbook.Side
}

func randomOrder(rng *rand.Rand, scale int32) order {
	side := orderbook.BUY
	if rng.Intn(2) == 0 {
		side = orderbook.SELL
	}
	// display price rounded to the tick, then converted to minor units
	display := decimal.NewFromFloat(minPrice + rng.Float64()*(maxPrice-minPrice)).Truncate(scale)
	price, err := orderbook.FromDisplay(display, scale)
	if err != nil {
		log.Fatalf("price %s: %v", display, err)
	}
	qty := int64(rng.Intn(maxQty-minQty+1) + minQty)

	return order{price: price, qty: qty, side: side}
}

func main() {
	var (
		numOrders  int
		marketEach int
		cancelEach int
		sweep      string
		seed       int64
	)
	flag.IntVar(&numOrders, "orders", 1_000_000, "number of limit orders to submit")
	flag.IntVar(&marketEach, "market-every", 20, "submit a market order every N limit orders, 0 disables")
	flag.IntVar(&cancelEach, "cancel-every", 10, "cancel a recent order every N limit orders, 0 disables")
	flag.StringVar(&sweep, "sweep", string(orderbook.SweepShallow), "market sweep mode: shallow or deep")
	flag.Int64Var(&seed, "seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	cfg := orderbook.DefaultConfig()
	cfg.Symbol = "ABC"
	cfg.SweepMode = orderbook.SweepMode(sweep)
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	totalMatched := 0
	totalQty := int64(0)
	cb := orderbook.ListenerFunc(func(u orderbook.Update) {
		for _, t := range u.Trades {
			totalMatched++
			totalQty += t.Qty
			if totalMatched <= 5 {
				log.Printf("Match: BUY[%d] <=> SELL[%d] @ %s Qty %d\n",
					t.BuyOrderID, t.SellOrderID, orderbook.ToDisplay(t.Price, cfg.PriceScale), t.Qty)
			}
		}
	})
	book := orderbook.New(cfg, orderbook.WithListener(cb))

	rng := rand.New(rand.NewSource(seed))
	orders := make([]order, numOrders)
	for i := range orders {
		orders[i] = randomOrder(rng, cfg.PriceScale)
	}

	var ids []uint64
	cancelled := 0
	markets := 0

	start := time.Now()
	for i, o := range orders {
		id, err := book.AddOrder(o.price, o.qty, o.side)
		if err != nil {
			log.Fatal(err)
		}
		ids = append(ids, id)

		if cancelEach > 0 && i%cancelEach == 0 && len(ids) > 0 {
			if book.RemoveOrder(ids[rng.Intn(len(ids))]) {
				cancelled++
			}
		}
		if marketEach > 0 && i%marketEach == 0 {
			if _, err := book.PlaceMarketBuy(o.qty); err == nil {
				markets++
			}
		}
		if len(ids) > 1024 {
			ids = ids[512:]
		}
	}
	elapsed := time.Since(start)

	s := book.Stats(time.Minute)
	fmt.Println("--------")
	fmt.Printf("Total Orders     : %d\n", numOrders)
	fmt.Printf("Market Orders    : %d\n", markets)
	fmt.Printf("Cancelled        : %d\n", cancelled)
	fmt.Printf("Total Matches    : %d\n", totalMatched)
	fmt.Printf("Total Matched Qty: %d\n", totalQty)
	fmt.Printf("Resting Orders   : %d (%d bid / %d ask levels)\n", s.OrderCount, s.BidLevels, s.AskLevels)
	fmt.Printf("Time Taken       : %s\n", elapsed)
	fmt.Printf("Throughput       : %.0f orders/s\n", float64(numOrders)/elapsed.Seconds())
}
