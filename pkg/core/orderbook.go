package core

import (
	"fmt"
	"strings"

	"github.com/nikolaydubina/fpdecimal"
)

// SelfMatchMode controls what happens when an incoming order would trade
// against a resting order from the same submitter
type SelfMatchMode int

// Self-match modes
const (
	// SelfMatchAllow lets the orders trade normally
	SelfMatchAllow SelfMatchMode = iota
	// SelfMatchCancelResting cancels the resting order and keeps matching
	SelfMatchCancelResting
	// SelfMatchRejectIncoming stops matching and rejects the incoming remainder
	SelfMatchRejectIncoming
)

// String returns the mode as string
func (m SelfMatchMode) String() string {
	switch m {
	case SelfMatchCancelResting:
		return "cancel_resting"
	case SelfMatchRejectIncoming:
		return "reject_incoming"
	default:
		return "allow"
	}
}

// ParseSelfMatchMode parses a mode name as used in configuration files. An
// empty string selects SelfMatchAllow.
func ParseSelfMatchMode(s string) (SelfMatchMode, error) {
	switch s {
	case "", "allow":
		return SelfMatchAllow, nil
	case "cancel_resting":
		return SelfMatchCancelResting, nil
	case "reject_incoming":
		return SelfMatchRejectIncoming, nil
	default:
		return SelfMatchAllow, fmt.Errorf("%w: self-match mode %q", ErrInvalidArgument, s)
	}
}

// BookOptions configures an OrderBook. The zero value is usable: it selects
// the system clock and SelfMatchAllow.
type BookOptions struct {
	Symbol        string
	Clock         Clock
	SelfMatchMode SelfMatchMode
}

// OrderBook implements price-time priority matching for one instrument. It
// owns every resting order exclusively and is not safe for concurrent use;
// callers serialize access, normally through a MatchingEngine.
type OrderBook struct {
	symbol         string
	clock          Clock
	selfMatch      SelfMatchMode
	bids           *bookSide
	asks           *bookSide
	orders         map[string]*Order
	lastTradePrice fpdecimal.Decimal
	nextTradeID    uint64
}

// NewOrderBook creates an empty OrderBook
func NewOrderBook(opts BookOptions) *OrderBook {
	clock := opts.Clock
	if clock == nil {
		clock = RealClock{}
	}

	return &OrderBook{
		symbol:         opts.Symbol,
		clock:          clock,
		selfMatch:      opts.SelfMatchMode,
		bids:           newBookSide(Buy),
		asks:           newBookSide(Sell),
		orders:         make(map[string]*Order),
		lastTradePrice: fpdecimal.Zero,
	}
}

// Symbol returns the instrument this book trades
func (ob *OrderBook) Symbol() string {
	return ob.symbol
}

// GetOrder returns the resting order with the given ID, or nil
func (ob *OrderBook) GetOrder(orderID string) *Order {
	return ob.orders[orderID]
}

// Len returns the number of resting orders
func (ob *OrderBook) Len() int {
	return len(ob.orders)
}

// BestBid returns the highest resting buy price, if any
func (ob *OrderBook) BestBid() (fpdecimal.Decimal, bool) {
	return ob.bids.bestPrice()
}

// BestAsk returns the lowest resting sell price, if any
func (ob *OrderBook) BestAsk() (fpdecimal.Decimal, bool) {
	return ob.asks.bestPrice()
}

// LastTradePrice returns the price of the most recent trade, or zero if
// nothing has traded yet
func (ob *OrderBook) LastTradePrice() fpdecimal.Decimal {
	return ob.lastTradePrice
}

// Submit runs one order through validation-independent matching. The caller
// assigns seq, the command's sequence number; every emitted event carries it.
// Event order per call: Ack, trades in execution order, then at most one
// terminal Cancel or Reject for the unfilled remainder.
//
// A non-nil error means the book detected internal corruption. The events
// produced so far are returned with it; the book must not be used again.
func (ob *OrderBook) Submit(order *Order, seq uint64) ([]Event, error) {
	if order == nil {
		return nil, ErrInvalidArgument
	}

	if _, exists := ob.orders[order.ID()]; exists {
		order.setRejected()
		return []Event{Reject{Sequence: seq, OrderID: order.ID(), Reason: RejectDuplicateOrderID}}, nil
	}

	order.seq = seq

	var events []Event
	var err error
	if order.IsMarketOrder() {
		events, err = ob.processMarketOrder(order, seq)
	} else {
		events, err = ob.processLimitOrder(order, seq)
	}
	if err != nil {
		return events, err
	}

	return events, ob.checkCrossed()
}

// Cancel removes a resting order. Unknown IDs, filled orders and already
// canceled orders all produce the same UNKNOWN_ORDER reject, which makes
// cancellation idempotent from the caller's point of view.
func (ob *OrderBook) Cancel(orderID string, seq uint64) ([]Event, error) {
	order, ok := ob.orders[orderID]
	if !ok {
		return []Event{Reject{Sequence: seq, OrderID: orderID, Reason: RejectUnknownOrder}}, nil
	}

	remaining := order.Quantity()
	ob.sideFor(order.Side()).removeOrder(order)
	delete(ob.orders, orderID)
	order.setCanceled()

	events := []Event{Cancel{Sequence: seq, OrderID: orderID, Remaining: remaining, Reason: CancelRequested}}
	return events, ob.checkCrossed()
}

func (ob *OrderBook) processMarketOrder(order *Order, seq uint64) ([]Event, error) {
	events := make([]Event, 0, 4)
	events = append(events, Ack{Sequence: seq, OrderID: order.ID()})

	events, err := ob.matchIncoming(order, seq, events)
	if err != nil {
		return events, err
	}

	// Market orders never rest: whatever the book could not fill is refused.
	if order.Quantity().GreaterThan(fpdecimal.Zero) && !order.Status().IsTerminal() {
		order.setRejected()
		events = append(events, Reject{Sequence: seq, OrderID: order.ID(), Reason: RejectInsufficientLiquidity})
	}

	return events, nil
}

func (ob *OrderBook) processLimitOrder(order *Order, seq uint64) ([]Event, error) {
	events := make([]Event, 0, 4)
	events = append(events, Ack{Sequence: seq, OrderID: order.ID()})

	// FOK fills completely or not at all. The availability check runs before
	// any order is touched, so a kill leaves no partial fills behind.
	if order.TIF() == FOK {
		opposite := ob.oppositeSide(order.Side())
		available := opposite.availableTo(order.Side(), order.Price(), true)
		if available.LessThan(order.Quantity()) {
			order.setCanceled()
			events = append(events, Cancel{Sequence: seq, OrderID: order.ID(), Remaining: order.Quantity(), Reason: CancelFOKKill})
			return events, nil
		}
	}

	events, err := ob.matchIncoming(order, seq, events)
	if err != nil {
		return events, err
	}

	if order.Quantity().GreaterThan(fpdecimal.Zero) && !order.Status().IsTerminal() {
		switch order.TIF() {
		case IOC:
			order.setCanceled()
			events = append(events, Cancel{Sequence: seq, OrderID: order.ID(), Remaining: order.Quantity(), Reason: CancelIOCResidual})
		case FOK:
			// Reachable only when self-match cancellation removed liquidity
			// the availability check had counted.
			order.setCanceled()
			events = append(events, Cancel{Sequence: seq, OrderID: order.ID(), Remaining: order.Quantity(), Reason: CancelFOKKill})
		default:
			ob.sideFor(order.Side()).appendOrder(order)
			ob.orders[order.ID()] = order
		}
	}

	return events, nil
}

// matchIncoming trades the incoming order against the opposite side until it
// is filled, the book runs out of crossing liquidity, or a self-match rule
// fires. Makers are consumed strictly in price-time order and every trade
// executes at the maker's price.
func (ob *OrderBook) matchIncoming(taker *Order, seq uint64, events []Event) ([]Event, error) {
	hasLimit := taker.IsLimitOrder()
	limitPrice := taker.Price()
	opposite := ob.oppositeSide(taker.Side())

	for taker.Quantity().GreaterThan(fpdecimal.Zero) {
		level := opposite.head
		if level == nil {
			break
		}

		if hasLimit && !priceCrosses(taker.Side(), limitPrice, level.price) {
			break
		}

		maker := level.head

		if ob.selfMatch != SelfMatchAllow && maker.Submitter() != "" && maker.Submitter() == taker.Submitter() {
			if ob.selfMatch == SelfMatchCancelResting {
				remaining := maker.Quantity()
				opposite.removeOrder(maker)
				delete(ob.orders, maker.ID())
				maker.setCanceled()
				events = append(events, Cancel{Sequence: seq, OrderID: maker.ID(), Remaining: remaining, Reason: CancelSelfMatch})
				continue
			}

			taker.setRejected()
			events = append(events, Reject{Sequence: seq, OrderID: taker.ID(), Reason: RejectSelfMatch})
			return events, nil
		}

		matchQty := min(taker.Quantity(), maker.Quantity())
		tradePrice := level.price

		if err := taker.fill(matchQty); err != nil {
			return events, err
		}
		if err := maker.fill(matchQty); err != nil {
			return events, err
		}
		level.reduce(matchQty)
		ob.lastTradePrice = tradePrice

		buyID, sellID := taker.ID(), maker.ID()
		if taker.Side() == Sell {
			buyID, sellID = maker.ID(), taker.ID()
		}

		ob.nextTradeID++
		events = append(events, Trade{
			Sequence:    seq,
			TradeID:     ob.nextTradeID,
			BuyOrderID:  buyID,
			SellOrderID: sellID,
			TakerSide:   taker.Side(),
			Price:       tradePrice,
			Quantity:    matchQty,
			Timestamp:   ob.clock.Now(),
		})

		if maker.Quantity().Equal(fpdecimal.Zero) {
			opposite.removeOrder(maker)
			delete(ob.orders, maker.ID())
		}
	}

	return events, nil
}

// checkCrossed verifies the standing invariant that the best bid stays below
// the best ask once a command has been fully applied
func (ob *OrderBook) checkCrossed() error {
	bid, okBid := ob.bids.bestPrice()
	ask, okAsk := ob.asks.bestPrice()
	if okBid && okAsk && bid.GreaterThanOrEqual(ask) {
		return fmt.Errorf("%w: bid %s >= ask %s", ErrCrossedBook, bid, ask)
	}
	return nil
}

func (ob *OrderBook) sideFor(side Side) *bookSide {
	if side == Buy {
		return ob.bids
	}
	return ob.asks
}

func (ob *OrderBook) oppositeSide(side Side) *bookSide {
	if side == Buy {
		return ob.asks
	}
	return ob.bids
}

// priceCrosses checks if the taker's limit price reaches the book price
func priceCrosses(takerSide Side, takerPrice, bookPrice fpdecimal.Decimal) bool {
	if takerSide == Buy {
		return takerPrice.GreaterThanOrEqual(bookPrice)
	}
	return takerPrice.LessThanOrEqual(bookPrice)
}

// min returns the minimum of two decimals
func min(a, b fpdecimal.Decimal) fpdecimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// String implements fmt.Stringer interface
func (ob *OrderBook) String() string {
	builder := strings.Builder{}

	builder.WriteString("Ask:")
	builder.WriteString(ob.asks.String())
	builder.WriteString("\n")

	builder.WriteString("Bid:")
	builder.WriteString(ob.bids.String())
	builder.WriteString("\n")

	return builder.String()
}
