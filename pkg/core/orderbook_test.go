package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/nikolaydubina/fpdecimal"
)

func newTestBook() *OrderBook {
	return NewOrderBook(BookOptions{
		Symbol: "BTC-USD",
		Clock:  FixedClock{T: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
	})
}

func submitLimit(t *testing.T, book *OrderBook, seq uint64, id string, side Side, qty, price float64, tif TIF, submitter string) []Event {
	t.Helper()
	order, err := NewLimitOrder(id, side, fpdecimal.FromFloat(qty), fpdecimal.FromFloat(price), tif, submitter)
	if err != nil {
		t.Fatalf("NewLimitOrder(%s) returned error: %v", id, err)
	}
	events, err := book.Submit(order, seq)
	if err != nil {
		t.Fatalf("Submit(%s) returned error: %v", id, err)
	}
	return events
}

func submitMarket(t *testing.T, book *OrderBook, seq uint64, id string, side Side, qty float64) []Event {
	t.Helper()
	order, err := NewMarketOrder(id, side, fpdecimal.FromFloat(qty), "")
	if err != nil {
		t.Fatalf("NewMarketOrder(%s) returned error: %v", id, err)
	}
	events, err := book.Submit(order, seq)
	if err != nil {
		t.Fatalf("Submit(%s) returned error: %v", id, err)
	}
	return events
}

// kinds flattens an event slice into type tags for shape assertions
func kinds(events []Event) string {
	tags := ""
	for i, ev := range events {
		if i > 0 {
			tags += " "
		}
		switch ev.(type) {
		case Ack:
			tags += "ACK"
		case Trade:
			tags += "TRADE"
		case Cancel:
			tags += "CANCEL"
		case Reject:
			tags += "REJECT"
		default:
			tags += "?"
		}
	}
	return tags
}

func TestOrderBookCreation(t *testing.T) {
	book := newTestBook()

	if book == nil {
		t.Fatal("Expected OrderBook to be created, got nil")
	}

	if book.Symbol() != "BTC-USD" {
		t.Errorf("Expected symbol BTC-USD, got %s", book.Symbol())
	}

	if book.Len() != 0 {
		t.Errorf("Expected empty book, got %d orders", book.Len())
	}

	if _, ok := book.BestBid(); ok {
		t.Error("Expected no best bid on empty book")
	}

	if _, ok := book.BestAsk(); ok {
		t.Error("Expected no best ask on empty book")
	}

	if !book.LastTradePrice().Equal(fpdecimal.Zero) {
		t.Errorf("Expected zero last trade price, got %v", book.LastTradePrice())
	}
}

func TestSubmitNilOrder(t *testing.T) {
	book := newTestBook()

	if _, err := book.Submit(nil, 1); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestLimitOrderRests(t *testing.T) {
	book := newTestBook()

	events := submitLimit(t, book, 1, "buy-1", Buy, 5.0, 100.0, GTC, "")

	if got := kinds(events); got != "ACK" {
		t.Errorf("Expected events ACK, got %s", got)
	}

	if events[0].Seq() != 1 {
		t.Errorf("Expected sequence 1, got %d", events[0].Seq())
	}

	if book.Len() != 1 {
		t.Errorf("Expected 1 resting order, got %d", book.Len())
	}

	best, ok := book.BestBid()
	if !ok || !best.Equal(fpdecimal.FromFloat(100.0)) {
		t.Errorf("Expected best bid 100.000, got %v (ok=%v)", best, ok)
	}

	resting := book.GetOrder("buy-1")
	if resting == nil {
		t.Fatal("Expected order buy-1 to rest")
	}

	if resting.Status() != StatusNew {
		t.Errorf("Expected status NEW, got %v", resting.Status())
	}
}

func TestDuplicateOrderIDRejected(t *testing.T) {
	book := newTestBook()

	submitLimit(t, book, 1, "dup-1", Buy, 5.0, 100.0, GTC, "")
	events := submitLimit(t, book, 2, "dup-1", Buy, 3.0, 101.0, GTC, "")

	// No ack: the command is refused outright and the book is untouched.
	if got := kinds(events); got != "REJECT" {
		t.Errorf("Expected events REJECT, got %s", got)
	}

	reject := events[0].(Reject)
	if reject.Reason != RejectDuplicateOrderID {
		t.Errorf("Expected reason DUPLICATE_ORDER_ID, got %v", reject.Reason)
	}

	if book.Len() != 1 {
		t.Errorf("Expected 1 resting order, got %d", book.Len())
	}

	if !book.GetOrder("dup-1").Quantity().Equal(fpdecimal.FromFloat(5.0)) {
		t.Errorf("Expected original order untouched, got quantity %v", book.GetOrder("dup-1").Quantity())
	}
}

func TestPartialFillLeavesMakerResting(t *testing.T) {
	book := newTestBook()

	submitLimit(t, book, 1, "sell-1", Sell, 5.0, 10.0, GTC, "")
	events := submitLimit(t, book, 2, "buy-1", Buy, 2.0, 10.0, GTC, "")

	if got := kinds(events); got != "ACK TRADE" {
		t.Errorf("Expected events ACK TRADE, got %s", got)
	}

	trade := events[1].(Trade)
	if !trade.Quantity.Equal(fpdecimal.FromFloat(2.0)) {
		t.Errorf("Expected trade quantity 2, got %v", trade.Quantity)
	}

	if !trade.Price.Equal(fpdecimal.FromFloat(10.0)) {
		t.Errorf("Expected trade price 10.000, got %v", trade.Price)
	}

	maker := book.GetOrder("sell-1")
	if maker == nil {
		t.Fatal("Expected maker to keep resting")
	}

	if !maker.Quantity().Equal(fpdecimal.FromFloat(3.0)) {
		t.Errorf("Expected maker remaining 3, got %v", maker.Quantity())
	}

	if maker.Status() != StatusPartiallyFilled {
		t.Errorf("Expected maker status PARTIALLY_FILLED, got %v", maker.Status())
	}

	// The taker filled completely and must not rest.
	if book.GetOrder("buy-1") != nil {
		t.Error("Expected filled taker to leave the book")
	}
}

func TestTradePriceIsMakerPrice(t *testing.T) {
	book := newTestBook()

	submitLimit(t, book, 1, "sell-1", Sell, 1.0, 100.0, GTC, "")
	events := submitLimit(t, book, 2, "buy-1", Buy, 1.0, 105.0, GTC, "")

	if got := kinds(events); got != "ACK TRADE" {
		t.Errorf("Expected events ACK TRADE, got %s", got)
	}

	trade := events[1].(Trade)
	if !trade.Price.Equal(fpdecimal.FromFloat(100.0)) {
		t.Errorf("Expected trade at resting price 100.000, got %v", trade.Price)
	}

	if !book.LastTradePrice().Equal(fpdecimal.FromFloat(100.0)) {
		t.Errorf("Expected last trade price 100.000, got %v", book.LastTradePrice())
	}
}

func TestTradeEventFields(t *testing.T) {
	clock := FixedClock{T: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	book := NewOrderBook(BookOptions{Symbol: "BTC-USD", Clock: clock})

	submitLimit(t, book, 1, "maker-sell", Sell, 1.0, 100.0, GTC, "")
	events := submitLimit(t, book, 2, "taker-buy", Buy, 1.0, 100.0, GTC, "")

	trade := events[1].(Trade)

	if trade.BuyOrderID != "taker-buy" {
		t.Errorf("Expected BuyOrderID taker-buy, got %s", trade.BuyOrderID)
	}

	if trade.SellOrderID != "maker-sell" {
		t.Errorf("Expected SellOrderID maker-sell, got %s", trade.SellOrderID)
	}

	if trade.TakerSide != Buy {
		t.Errorf("Expected TakerSide Buy, got %v", trade.TakerSide)
	}

	if trade.TradeID != 1 {
		t.Errorf("Expected TradeID 1, got %d", trade.TradeID)
	}

	if trade.Sequence != 2 {
		t.Errorf("Expected Sequence 2, got %d", trade.Sequence)
	}

	if !trade.Timestamp.Equal(clock.T) {
		t.Errorf("Expected timestamp %v, got %v", clock.T, trade.Timestamp)
	}

	// Reverse the sides: now the taker sells into a resting bid.
	submitLimit(t, book, 3, "maker-buy", Buy, 1.0, 100.0, GTC, "")
	events = submitLimit(t, book, 4, "taker-sell", Sell, 1.0, 100.0, GTC, "")

	trade = events[1].(Trade)
	if trade.BuyOrderID != "maker-buy" || trade.SellOrderID != "taker-sell" {
		t.Errorf("Expected maker-buy/taker-sell, got %s/%s", trade.BuyOrderID, trade.SellOrderID)
	}

	if trade.TakerSide != Sell {
		t.Errorf("Expected TakerSide Sell, got %v", trade.TakerSide)
	}

	if trade.TradeID != 2 {
		t.Errorf("Expected TradeID 2, got %d", trade.TradeID)
	}
}

func TestTimePriorityWithinLevel(t *testing.T) {
	book := newTestBook()

	submitLimit(t, book, 1, "older", Sell, 1.0, 100.0, GTC, "")
	submitLimit(t, book, 2, "newer", Sell, 1.0, 100.0, GTC, "")

	events := submitLimit(t, book, 3, "taker", Buy, 1.0, 100.0, GTC, "")

	trade := events[1].(Trade)
	if trade.SellOrderID != "older" {
		t.Errorf("Expected oldest maker to fill first, got %s", trade.SellOrderID)
	}

	if book.GetOrder("older") != nil {
		t.Error("Expected older maker to be gone")
	}

	if book.GetOrder("newer") == nil {
		t.Error("Expected newer maker to keep resting")
	}
}

func TestPricePriorityAcrossLevels(t *testing.T) {
	book := newTestBook()

	submitLimit(t, book, 1, "worse", Sell, 1.0, 101.0, GTC, "")
	submitLimit(t, book, 2, "better", Sell, 1.0, 100.0, GTC, "")

	events := submitMarket(t, book, 3, "taker", Buy, 2.0)

	if got := kinds(events); got != "ACK TRADE TRADE" {
		t.Fatalf("Expected events ACK TRADE TRADE, got %s", got)
	}

	first := events[1].(Trade)
	second := events[2].(Trade)

	if first.SellOrderID != "better" || !first.Price.Equal(fpdecimal.FromFloat(100.0)) {
		t.Errorf("Expected first trade against better@100.000, got %s@%v", first.SellOrderID, first.Price)
	}

	if second.SellOrderID != "worse" || !second.Price.Equal(fpdecimal.FromFloat(101.0)) {
		t.Errorf("Expected second trade against worse@101.000, got %s@%v", second.SellOrderID, second.Price)
	}
}

func TestIOCResidualCanceled(t *testing.T) {
	book := newTestBook()

	submitLimit(t, book, 1, "sell-1", Sell, 1.0, 10.0, GTC, "")
	submitLimit(t, book, 2, "sell-2", Sell, 2.0, 10.0, GTC, "")

	events := submitLimit(t, book, 3, "ioc-buy", Buy, 5.0, 10.0, IOC, "")

	if got := kinds(events); got != "ACK TRADE TRADE CANCEL" {
		t.Fatalf("Expected events ACK TRADE TRADE CANCEL, got %s", got)
	}

	cancel := events[3].(Cancel)
	if cancel.Reason != CancelIOCResidual {
		t.Errorf("Expected reason IOC_RESIDUAL, got %v", cancel.Reason)
	}

	if !cancel.Remaining.Equal(fpdecimal.FromFloat(2.0)) {
		t.Errorf("Expected remaining 2, got %v", cancel.Remaining)
	}

	// Nothing rests: makers were consumed and the residual was canceled.
	if book.Len() != 0 {
		t.Errorf("Expected empty book, got %d orders", book.Len())
	}
}

func TestFOKKilledWhenUnderfilled(t *testing.T) {
	book := newTestBook()

	submitLimit(t, book, 1, "sell-1", Sell, 3.0, 10.0, GTC, "")

	events := submitLimit(t, book, 2, "fok-buy", Buy, 5.0, 10.0, FOK, "")

	// Kill before any fill: ack then cancel, no trades.
	if got := kinds(events); got != "ACK CANCEL" {
		t.Fatalf("Expected events ACK CANCEL, got %s", got)
	}

	cancel := events[1].(Cancel)
	if cancel.Reason != CancelFOKKill {
		t.Errorf("Expected reason FOK_KILL, got %v", cancel.Reason)
	}

	if !cancel.Remaining.Equal(fpdecimal.FromFloat(5.0)) {
		t.Errorf("Expected remaining 5, got %v", cancel.Remaining)
	}

	// The book is exactly as before the FOK arrived.
	maker := book.GetOrder("sell-1")
	if maker == nil || !maker.Quantity().Equal(fpdecimal.FromFloat(3.0)) {
		t.Error("Expected resting maker untouched by killed FOK")
	}
}

func TestFOKFilledWhenLiquiditySuffices(t *testing.T) {
	book := newTestBook()

	submitLimit(t, book, 1, "sell-1", Sell, 1.0, 10.0, GTC, "")
	submitLimit(t, book, 2, "sell-2", Sell, 2.0, 10.0, GTC, "")

	events := submitLimit(t, book, 3, "fok-buy", Buy, 3.0, 10.0, FOK, "")

	if got := kinds(events); got != "ACK TRADE TRADE" {
		t.Fatalf("Expected events ACK TRADE TRADE, got %s", got)
	}

	if book.Len() != 0 {
		t.Errorf("Expected empty book after full fill, got %d orders", book.Len())
	}
}

func TestFOKCountsOnlyCrossingLevels(t *testing.T) {
	book := newTestBook()

	// Enough total quantity, but half of it rests beyond the limit price.
	submitLimit(t, book, 1, "sell-near", Sell, 2.0, 10.0, GTC, "")
	submitLimit(t, book, 2, "sell-far", Sell, 2.0, 11.0, GTC, "")

	events := submitLimit(t, book, 3, "fok-buy", Buy, 4.0, 10.0, FOK, "")

	if got := kinds(events); got != "ACK CANCEL" {
		t.Fatalf("Expected events ACK CANCEL, got %s", got)
	}

	if book.Len() != 2 {
		t.Errorf("Expected both makers untouched, got %d orders", book.Len())
	}
}

func TestMarketOrderInsufficientLiquidity(t *testing.T) {
	book := newTestBook()

	submitLimit(t, book, 1, "sell-1", Sell, 2.0, 10.0, GTC, "")
	submitLimit(t, book, 2, "sell-2", Sell, 1.0, 11.0, GTC, "")

	events := submitMarket(t, book, 3, "market-buy", Buy, 5.0)

	if got := kinds(events); got != "ACK TRADE TRADE REJECT" {
		t.Fatalf("Expected events ACK TRADE TRADE REJECT, got %s", got)
	}

	reject := events[3].(Reject)
	if reject.Reason != RejectInsufficientLiquidity {
		t.Errorf("Expected reason INSUFFICIENT_LIQUIDITY, got %v", reject.Reason)
	}

	// Market orders never rest.
	if book.Len() != 0 {
		t.Errorf("Expected empty book, got %d orders", book.Len())
	}
}

func TestMarketOrderEmptyBook(t *testing.T) {
	book := newTestBook()

	events := submitMarket(t, book, 1, "market-buy", Buy, 1.0)

	if got := kinds(events); got != "ACK REJECT" {
		t.Fatalf("Expected events ACK REJECT, got %s", got)
	}

	reject := events[1].(Reject)
	if reject.Reason != RejectInsufficientLiquidity {
		t.Errorf("Expected reason INSUFFICIENT_LIQUIDITY, got %v", reject.Reason)
	}
}

func TestCancelRestingOrder(t *testing.T) {
	book := newTestBook()

	submitLimit(t, book, 1, "buy-1", Buy, 5.0, 100.0, GTC, "")

	events, err := book.Cancel("buy-1", 2)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}

	if got := kinds(events); got != "CANCEL" {
		t.Fatalf("Expected events CANCEL, got %s", got)
	}

	cancel := events[0].(Cancel)
	if cancel.Reason != CancelRequested {
		t.Errorf("Expected reason REQUESTED, got %v", cancel.Reason)
	}

	if !cancel.Remaining.Equal(fpdecimal.FromFloat(5.0)) {
		t.Errorf("Expected remaining 5, got %v", cancel.Remaining)
	}

	if book.Len() != 0 {
		t.Errorf("Expected empty book, got %d orders", book.Len())
	}

	// Canceling again is a no-op reject, same as any unknown ID.
	events, err = book.Cancel("buy-1", 3)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}

	if got := kinds(events); got != "REJECT" {
		t.Fatalf("Expected events REJECT, got %s", got)
	}

	if events[0].(Reject).Reason != RejectUnknownOrder {
		t.Errorf("Expected reason UNKNOWN_ORDER, got %v", events[0].(Reject).Reason)
	}
}

func TestCancelUnknownOrder(t *testing.T) {
	book := newTestBook()

	events, err := book.Cancel("ghost", 1)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}

	if got := kinds(events); got != "REJECT" {
		t.Fatalf("Expected events REJECT, got %s", got)
	}

	reject := events[0].(Reject)
	if reject.Reason != RejectUnknownOrder {
		t.Errorf("Expected reason UNKNOWN_ORDER, got %v", reject.Reason)
	}

	if reject.OrderID != "ghost" {
		t.Errorf("Expected orderID ghost, got %s", reject.OrderID)
	}
}

func TestCancelFilledOrder(t *testing.T) {
	book := newTestBook()

	submitLimit(t, book, 1, "sell-1", Sell, 1.0, 10.0, GTC, "")
	submitLimit(t, book, 2, "buy-1", Buy, 1.0, 10.0, GTC, "")

	// The maker filled completely; its ID no longer names a live order.
	events, err := book.Cancel("sell-1", 3)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}

	if got := kinds(events); got != "REJECT" {
		t.Fatalf("Expected events REJECT, got %s", got)
	}

	if events[0].(Reject).Reason != RejectUnknownOrder {
		t.Errorf("Expected reason UNKNOWN_ORDER, got %v", events[0].(Reject).Reason)
	}
}

func TestPartialFillThenCancelRemainder(t *testing.T) {
	book := newTestBook()

	submitLimit(t, book, 1, "sell-1", Sell, 5.0, 10.0, GTC, "")
	submitLimit(t, book, 2, "buy-1", Buy, 2.0, 10.0, GTC, "")

	events, err := book.Cancel("sell-1", 3)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}

	cancel := events[0].(Cancel)
	if !cancel.Remaining.Equal(fpdecimal.FromFloat(3.0)) {
		t.Errorf("Expected remaining 3 after partial fill, got %v", cancel.Remaining)
	}

	if book.Len() != 0 {
		t.Errorf("Expected empty book, got %d orders", book.Len())
	}
}

func TestQuantityConservation(t *testing.T) {
	book := newTestBook()

	maker, err := NewLimitOrder("maker", Sell, fpdecimal.FromFloat(5.0), fpdecimal.FromFloat(10.0), GTC, "")
	if err != nil {
		t.Fatalf("NewLimitOrder returned error: %v", err)
	}
	if _, err := book.Submit(maker, 1); err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}

	events := submitLimit(t, book, 2, "taker", Buy, 2.0, 10.0, GTC, "")

	traded := fpdecimal.Zero
	for _, ev := range events {
		if trade, ok := ev.(Trade); ok {
			traded = traded.Add(trade.Quantity)
		}
	}

	// original = filled + remaining, and filled matches the trade quantities.
	if !maker.FilledQty().Equal(traded) {
		t.Errorf("Expected filled %v to equal traded %v", maker.FilledQty(), traded)
	}

	sum := maker.FilledQty().Add(maker.Quantity())
	if !sum.Equal(maker.OriginalQty()) {
		t.Errorf("Expected filled+remaining %v to equal original %v", sum, maker.OriginalQty())
	}

	// Cancel the rest: the cancel event accounts for every unit not traded.
	cancelEvents, err := book.Cancel("maker", 3)
	if err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}

	remaining := cancelEvents[0].(Cancel).Remaining
	if !traded.Add(remaining).Equal(maker.OriginalQty()) {
		t.Errorf("Expected traded+canceled %v to equal original %v", traded.Add(remaining), maker.OriginalQty())
	}
}

func TestBookNeverCrossed(t *testing.T) {
	book := newTestBook()

	// A buy above the resting ask must trade, not rest next to it.
	submitLimit(t, book, 1, "sell-1", Sell, 1.0, 100.0, GTC, "")
	submitLimit(t, book, 2, "buy-1", Buy, 2.0, 103.0, GTC, "")
	submitLimit(t, book, 3, "sell-2", Sell, 3.0, 105.0, GTC, "")

	bid, okBid := book.BestBid()
	ask, okAsk := book.BestAsk()

	if !okBid || !okAsk {
		t.Fatalf("Expected both sides populated, got bid=%v ask=%v", okBid, okAsk)
	}

	if !bid.LessThan(ask) {
		t.Errorf("Expected bid %v < ask %v", bid, ask)
	}
}

func TestSelfMatchAllow(t *testing.T) {
	book := newTestBook()

	submitLimit(t, book, 1, "sell-1", Sell, 1.0, 10.0, GTC, "alice")
	events := submitLimit(t, book, 2, "buy-1", Buy, 1.0, 10.0, GTC, "alice")

	// Default mode: same submitter trades with itself.
	if got := kinds(events); got != "ACK TRADE" {
		t.Errorf("Expected events ACK TRADE, got %s", got)
	}
}

func TestSelfMatchCancelResting(t *testing.T) {
	book := NewOrderBook(BookOptions{
		Clock:         FixedClock{T: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		SelfMatchMode: SelfMatchCancelResting,
	})

	submitLimit(t, book, 1, "own-sell", Sell, 1.0, 10.0, GTC, "alice")
	submitLimit(t, book, 2, "other-sell", Sell, 1.0, 10.0, GTC, "bob")

	events := submitLimit(t, book, 3, "own-buy", Buy, 1.0, 10.0, GTC, "alice")

	// Alice's resting sell is evicted, then the buy trades with Bob's.
	if got := kinds(events); got != "ACK CANCEL TRADE" {
		t.Fatalf("Expected events ACK CANCEL TRADE, got %s", got)
	}

	cancel := events[1].(Cancel)
	if cancel.OrderID != "own-sell" || cancel.Reason != CancelSelfMatch {
		t.Errorf("Expected own-sell canceled with SELF_MATCH, got %s %v", cancel.OrderID, cancel.Reason)
	}

	trade := events[2].(Trade)
	if trade.SellOrderID != "other-sell" {
		t.Errorf("Expected trade against other-sell, got %s", trade.SellOrderID)
	}

	if book.GetOrder("own-sell") != nil {
		t.Error("Expected own-sell to leave the book")
	}
}

func TestSelfMatchRejectIncoming(t *testing.T) {
	book := NewOrderBook(BookOptions{
		Clock:         FixedClock{T: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		SelfMatchMode: SelfMatchRejectIncoming,
	})

	submitLimit(t, book, 1, "own-sell", Sell, 2.0, 10.0, GTC, "alice")

	events := submitLimit(t, book, 2, "own-buy", Buy, 1.0, 10.0, GTC, "alice")

	if got := kinds(events); got != "ACK REJECT" {
		t.Fatalf("Expected events ACK REJECT, got %s", got)
	}

	reject := events[1].(Reject)
	if reject.OrderID != "own-buy" || reject.Reason != RejectSelfMatch {
		t.Errorf("Expected own-buy rejected with SELF_MATCH, got %s %v", reject.OrderID, reject.Reason)
	}

	// The resting order is untouched and the incoming one never rests.
	maker := book.GetOrder("own-sell")
	if maker == nil || !maker.Quantity().Equal(fpdecimal.FromFloat(2.0)) {
		t.Error("Expected resting order untouched")
	}

	if book.GetOrder("own-buy") != nil {
		t.Error("Expected rejected order not to rest")
	}
}

func TestSelfMatchIgnoresEmptySubmitter(t *testing.T) {
	book := NewOrderBook(BookOptions{
		Clock:         FixedClock{T: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
		SelfMatchMode: SelfMatchRejectIncoming,
	})

	// Anonymous orders carry no submitter and never count as self-matches.
	submitLimit(t, book, 1, "sell-1", Sell, 1.0, 10.0, GTC, "")
	events := submitLimit(t, book, 2, "buy-1", Buy, 1.0, 10.0, GTC, "")

	if got := kinds(events); got != "ACK TRADE" {
		t.Errorf("Expected events ACK TRADE, got %s", got)
	}
}

func TestParseSelfMatchMode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    SelfMatchMode
		wantErr bool
	}{
		{"Empty", "", SelfMatchAllow, false},
		{"Allow", "allow", SelfMatchAllow, false},
		{"CancelResting", "cancel_resting", SelfMatchCancelResting, false},
		{"RejectIncoming", "reject_incoming", SelfMatchRejectIncoming, false},
		{"Unknown", "bogus", SelfMatchAllow, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseSelfMatchMode(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Errorf("Expected ErrInvalidArgument, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseSelfMatchMode returned error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseSelfMatchMode(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestSelfMatchModeString(t *testing.T) {
	tests := []struct {
		mode SelfMatchMode
		want string
	}{
		{SelfMatchAllow, "allow"},
		{SelfMatchCancelResting, "cancel_resting"},
		{SelfMatchRejectIncoming, "reject_incoming"},
	}

	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

// replayCommands drives one book through a fixed mixed workload and returns
// every event produced, in order.
func replayCommands(t *testing.T, book *OrderBook) []Event {
	t.Helper()

	all := make([]Event, 0)
	seq := uint64(0)

	apply := func(events []Event, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("Command %d returned error: %v", seq, err)
		}
		all = append(all, events...)
	}

	submit := func(id string, side Side, qty, price float64, tif TIF) {
		seq++
		order, err := NewLimitOrder(id, side, fpdecimal.FromFloat(qty), fpdecimal.FromFloat(price), tif, "")
		if err != nil {
			t.Fatalf("NewLimitOrder(%s) returned error: %v", id, err)
		}
		apply(book.Submit(order, seq))
	}

	market := func(id string, side Side, qty float64) {
		seq++
		order, err := NewMarketOrder(id, side, fpdecimal.FromFloat(qty), "")
		if err != nil {
			t.Fatalf("NewMarketOrder(%s) returned error: %v", id, err)
		}
		apply(book.Submit(order, seq))
	}

	cancel := func(id string) {
		seq++
		apply(book.Cancel(id, seq))
	}

	submit("s1", Sell, 5.0, 101.0, GTC)
	submit("s2", Sell, 3.0, 100.0, GTC)
	submit("b1", Buy, 4.0, 99.0, GTC)
	submit("b2", Buy, 2.0, 100.0, GTC)
	market("m1", Buy, 4.0)
	submit("b3", Buy, 6.0, 101.0, IOC)
	submit("s3", Sell, 2.0, 99.0, FOK)
	cancel("b1")
	cancel("ghost")

	return all
}

func TestDeterministicReplay(t *testing.T) {
	clock := FixedClock{T: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}

	first := replayCommands(t, NewOrderBook(BookOptions{Symbol: "BTC-USD", Clock: clock}))
	second := replayCommands(t, NewOrderBook(BookOptions{Symbol: "BTC-USD", Clock: clock}))

	if len(first) != len(second) {
		t.Fatalf("Expected identical event counts, got %d and %d", len(first), len(second))
	}

	for i := range first {
		a, err := json.Marshal(first[i])
		if err != nil {
			t.Fatalf("Failed to marshal event %d: %v", i, err)
		}
		b, err := json.Marshal(second[i])
		if err != nil {
			t.Fatalf("Failed to marshal event %d: %v", i, err)
		}
		if string(a) != string(b) {
			t.Errorf("Event %d differs:\n%s\n%s", i, a, b)
		}
	}
}

func TestEverySubmitEmitsAtLeastOneEvent(t *testing.T) {
	book := newTestBook()

	ids := 0
	nextID := func() string {
		ids++
		return fmt.Sprintf("order-%d", ids)
	}

	var allEvents [][]Event
	allEvents = append(allEvents, submitLimit(t, book, 1, nextID(), Buy, 1.0, 100.0, GTC, ""))
	allEvents = append(allEvents, submitLimit(t, book, 2, nextID(), Sell, 1.0, 100.0, IOC, ""))
	allEvents = append(allEvents, submitLimit(t, book, 3, nextID(), Sell, 1.0, 200.0, FOK, ""))
	allEvents = append(allEvents, submitMarket(t, book, 4, nextID(), Sell, 5.0))

	for i, events := range allEvents {
		if len(events) == 0 {
			t.Errorf("Command %d produced no events", i+1)
		}
		for _, ev := range events {
			if ev.Seq() != uint64(i+1) {
				t.Errorf("Command %d produced event with sequence %d", i+1, ev.Seq())
			}
		}
	}
}

func TestOrderBookString(t *testing.T) {
	book := newTestBook()

	submitLimit(t, book, 1, "sell-1", Sell, 1.0, 101.0, GTC, "")
	submitLimit(t, book, 2, "buy-1", Buy, 2.0, 99.0, GTC, "")

	s := book.String()
	if s == "" {
		t.Error("Expected non-empty string representation")
	}
}
