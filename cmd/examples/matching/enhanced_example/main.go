package main

import (
	"fmt"

	"github.com/nikolaydubina/fpdecimal"

	"github.com/erain9/tickmatch/pkg/core"
)

var seq uint64

// A demonstration of the matching semantics, one command at a time
func main() {
	book := core.NewOrderBook(core.BookOptions{Symbol: "BTC-USD"})

	fmt.Println("===== TICKMATCH ORDER MATCHING DEMONSTRATION =====")
	fmt.Println("This example shows how orders match and which events each command produces")
	fmt.Println()

	// Step 1: Create several sell (ask) orders
	fmt.Println("STEP 1: Adding sell orders to the order book")
	fmt.Println("------------------------------------------")

	// Add sell orders at different price levels (from lowest to highest)
	process(book, "Sell 5 @ 10.00", limitOrder("sell-1", core.Sell, 10.0, 5.0, core.GTC))
	process(book, "Sell 3 @ 10.50", limitOrder("sell-2", core.Sell, 10.5, 3.0, core.GTC))
	process(book, "Sell 7 @ 11.00", limitOrder("sell-3", core.Sell, 11.0, 7.0, core.GTC))

	fmt.Println("\nCurrent order book status:")
	fmt.Println(book.String())

	// Step 2: A buy order that partially fills the best ask
	fmt.Println("STEP 2: Adding a buy order that matches the lowest sell price")
	fmt.Println("----------------------------------------------------------")

	process(book, "Buy 3 @ 10.00", limitOrder("buy-1", core.Buy, 10.0, 3.0, core.GTC))

	fmt.Println("\nUpdated order book status:")
	fmt.Println(book.String())

	// Step 3: A buy order that crosses multiple price levels
	fmt.Println("STEP 3: Adding a buy order that crosses multiple sell orders")
	fmt.Println("---------------------------------------------------------")

	process(book, "Buy 8 @ 11.00", limitOrder("buy-2", core.Buy, 11.0, 8.0, core.GTC))

	fmt.Println("\nUpdated order book status:")
	fmt.Println(book.String())

	// Step 4: A market buy order takes whatever the book offers
	fmt.Println("STEP 4: Adding a market buy order")
	fmt.Println("-------------------------------")

	marketBuy, err := core.NewMarketOrder("market-buy-1", core.Buy, fpdecimal.FromFloat(4.0), "demo")
	if err != nil {
		panic(err)
	}
	process(book, "Market buy 4", marketBuy)

	fmt.Println("\nUpdated order book status:")
	fmt.Println(book.String())

	// Step 5: Fill-or-kill refuses partial execution
	fmt.Println("STEP 5: A fill-or-kill order larger than the available quantity")
	fmt.Println("------------------------------------------------------------")

	process(book, "Buy 5 @ 9.50", limitOrder("bid-1", core.Buy, 9.5, 5.0, core.GTC))
	process(book, "Sell 8 @ 9.50 FOK", limitOrder("fok-1", core.Sell, 9.5, 8.0, core.FOK))

	fmt.Println("\nUpdated order book status:")
	fmt.Println(book.String())

	// Step 6: Immediate-or-cancel fills what it can
	fmt.Println("STEP 6: The same order as immediate-or-cancel")
	fmt.Println("-------------------------------------------")

	process(book, "Sell 8 @ 9.50 IOC", limitOrder("ioc-1", core.Sell, 9.5, 8.0, core.IOC))

	fmt.Println("\nFinal order book status:")
	fmt.Println(book.String())

	// Step 7: Self-match prevention on a stricter book
	fmt.Println("STEP 7: Self-match prevention with reject_incoming")
	fmt.Println("------------------------------------------------")

	strictBook := core.NewOrderBook(core.BookOptions{
		Symbol:        "BTC-USD",
		SelfMatchMode: core.SelfMatchRejectIncoming,
	})
	process(strictBook, "Sell 5 @ 10.00 (same submitter)", limitOrder("self-1", core.Sell, 10.0, 5.0, core.GTC))
	process(strictBook, "Buy 5 @ 10.00 (same submitter)", limitOrder("self-2", core.Buy, 10.0, 5.0, core.GTC))
	fmt.Println()

	// Explanation section
	fmt.Println("===== MATCHING ENGINE EXPLANATION =====")
	fmt.Println("The matching engine implements these key principles:")
	fmt.Println("1. Price-Time Priority: Orders are filled from best to worst price")
	fmt.Println("2. For buy orders: matches with the lowest-priced sell orders first")
	fmt.Println("3. For sell orders: matches with the highest-priced buy orders first")
	fmt.Println("4. When a match occurs (buy price >= sell price), the trade executes at the resting order's price")
	fmt.Println("5. Every state change is reported as an event carrying the command's sequence number")
	fmt.Println("6. Partial fills leave the remainder resting (GTC) or cancel it (IOC)")
	fmt.Println("7. Fill-or-kill orders execute completely or not at all")
	fmt.Println()
	fmt.Println("In this example, we saw:")
	fmt.Println("- A buy order matching with a sell order at the same price")
	fmt.Println("- A buy order matching with multiple sell orders across price levels")
	fmt.Println("- A market order executing immediately at the best available price")
	fmt.Println("- FOK and IOC orders canceling instead of resting")
	fmt.Println("- An incoming order rejected because it would trade against its own submitter")
}

// Helper function to create a limit order
func limitOrder(id string, side core.Side, price, quantity float64, tif core.TIF) *core.Order {
	order, err := core.NewLimitOrder(
		id,
		side,
		fpdecimal.FromFloat(quantity),
		fpdecimal.FromFloat(price),
		tif,
		"demo",
	)
	if err != nil {
		panic(err)
	}
	return order
}

// Helper function to submit one order and print the resulting events
func process(book *core.OrderBook, what string, order *core.Order) {
	seq++
	events, err := book.Submit(order, seq)
	if err != nil {
		panic(err)
	}

	fmt.Printf("%s (seq %d):\n", what, seq)
	for _, ev := range events {
		switch e := ev.(type) {
		case core.Ack:
			fmt.Printf("  -> ACK %s\n", e.OrderID)
		case core.Trade:
			fmt.Printf("  -> TRADE %s @ %s (buy=%s, sell=%s)\n", e.Quantity, e.Price, e.BuyOrderID, e.SellOrderID)
		case core.Cancel:
			fmt.Printf("  -> CANCEL %s remaining=%s reason=%s\n", e.OrderID, e.Remaining, e.Reason)
		case core.Reject:
			fmt.Printf("  -> REJECT %s reason=%s\n", e.OrderID, e.Reason)
		}
	}
}
