package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nikolaydubina/fpdecimal"

	"github.com/erain9/tickmatch/pkg/core"
	"github.com/erain9/tickmatch/pkg/engine"
)

func main() {
	// An engine with no sender and no store keeps everything in process
	eng := engine.NewMatchingEngine(engine.Options{Symbol: "BTC-USD"})
	defer eng.Close()

	// Seed both sides of the book with resting limit orders
	apply(eng, "Seed bid 5 @ 9.90", limit("bid-1", core.Buy, 5, 9.90))
	apply(eng, "Seed bid 7 @ 9.80", limit("bid-2", core.Buy, 7, 9.80))
	apply(eng, "Seed ask 4 @ 10.10", limit("ask-1", core.Sell, 4, 10.10))
	apply(eng, "Seed ask 6 @ 10.20", limit("ask-2", core.Sell, 6, 10.20))
	apply(eng, "Seed ask 2 @ 10.30", limit("ask-3", core.Sell, 2, 10.30))

	// Crosses the first ask, the remainder rests as the new best bid
	apply(eng, "Buy 5 @ 10.10 (partial fill)", limit("taker-1", core.Buy, 5, 10.10))

	// Fills what it can and cancels the rest instead of resting
	apply(eng, "Sell 8 @ 9.85 IOC", engine.SubmitCommand{
		OrderID:   "taker-2",
		Side:      core.Sell,
		Type:      core.TypeLimit,
		Price:     fpdecimal.FromFloat(9.85),
		Quantity:  fpdecimal.FromFloat(8),
		TIF:       core.IOC,
		Submitter: "demo",
	})

	// Pull a resting order back out
	apply(eng, "Cancel ask-2", engine.CancelCommand{OrderID: "ask-2"})

	fmt.Println("\nBook summary:")
	if bid, ok := eng.BestBid(); ok {
		fmt.Printf("- Best bid: %s\n", bid.String())
	}
	if ask, ok := eng.BestAsk(); ok {
		fmt.Printf("- Best ask: %s\n", ask.String())
	}
	fmt.Printf("- Last trade price: %s\n", eng.LastTradePrice().String())
	fmt.Printf("- Resting orders: %d\n", eng.OrderCount())

	depth := eng.Depth(5)
	fmt.Println("\nDepth:")
	for _, level := range depth.Asks {
		fmt.Printf("  ASK %s x %s (%d orders)\n", level.Price.String(), level.Quantity.String(), level.Orders)
	}
	for _, level := range depth.Bids {
		fmt.Printf("  BID %s x %s (%d orders)\n", level.Price.String(), level.Quantity.String(), level.Orders)
	}
}

func limit(orderID string, side core.Side, quantity, price float64) engine.SubmitCommand {
	return engine.SubmitCommand{
		OrderID:   orderID,
		Side:      side,
		Type:      core.TypeLimit,
		Price:     fpdecimal.FromFloat(price),
		Quantity:  fpdecimal.FromFloat(quantity),
		TIF:       core.GTC,
		Submitter: "demo",
	}
}

func apply(eng *engine.MatchingEngine, what string, cmd engine.Command) {
	events, err := eng.Apply(context.Background(), cmd)
	if err != nil {
		panic(err)
	}

	fmt.Printf("\n%s\n", what)
	for _, ev := range events {
		b, err := json.Marshal(ev)
		if err != nil {
			panic(err)
		}
		fmt.Printf("  %s\n", b)
	}
}
