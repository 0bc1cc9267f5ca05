package core

import (
	"fmt"

	"github.com/nikolaydubina/fpdecimal"
)

// Side represents buy or sell side of the order
type Side int

// Order sides
const (
	Sell Side = iota
	Buy
)

// String returns side as string
func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// Opposite returns the other side of the book
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType represents type of the order
type OrderType string

// Order types
const (
	TypeMarket OrderType = "MARKET"
	TypeLimit  OrderType = "LIMIT"
)

// TIF represents time in force parameter
type TIF string

// Order Time In Force (TIF)
const (
	GTC TIF = "GTC" // Good Till Canceled
	IOC TIF = "IOC" // Immediate Or Cancel
	FOK TIF = "FOK" // Fill Or Kill
)

// OrderStatus represents the lifecycle state of an order
type OrderStatus string

// Order statuses. Filled, Canceled and Rejected are terminal.
const (
	StatusNew             OrderStatus = "NEW"
	StatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	StatusFilled          OrderStatus = "FILLED"
	StatusCanceled        OrderStatus = "CANCELED"
	StatusRejected        OrderStatus = "REJECTED"
)

// IsTerminal reports whether the status allows no further transitions
func (s OrderStatus) IsTerminal() bool {
	return s == StatusFilled || s == StatusCanceled || s == StatusRejected
}

// Order stores information about a single order. The identity fields never
// change after construction; quantity and status are mutated only by the
// book's matching and cancel paths.
type Order struct {
	id          string
	orderType   OrderType
	side        Side
	quantity    fpdecimal.Decimal
	originalQty fpdecimal.Decimal
	price       fpdecimal.Decimal
	tif         TIF
	status      OrderStatus
	submitter   string
	seq         uint64

	// intrusive FIFO links, owned by the price level the order rests on
	next, prev *Order
	level      *priceLevel
}

// NewMarketOrder creates a new market Order. Market orders carry no price
// and never rest on the book.
func NewMarketOrder(orderID string, side Side, quantity fpdecimal.Decimal, submitter string) (*Order, error) {
	if quantity.LessThanOrEqual(fpdecimal.Zero) {
		return nil, ErrInvalidQuantity
	}

	return &Order{
		id:          orderID,
		orderType:   TypeMarket,
		side:        side,
		quantity:    quantity,
		originalQty: quantity,
		price:       fpdecimal.Zero,
		status:      StatusNew,
		submitter:   submitter,
	}, nil
}

// NewLimitOrder creates a new limit Order. An empty TIF defaults to GTC.
func NewLimitOrder(orderID string, side Side, quantity, price fpdecimal.Decimal, tif TIF, submitter string) (*Order, error) {
	if quantity.LessThanOrEqual(fpdecimal.Zero) {
		return nil, ErrInvalidQuantity
	}

	if price.LessThanOrEqual(fpdecimal.Zero) {
		return nil, ErrInvalidPrice
	}

	if tif == "" {
		tif = GTC
	}

	if tif != GTC && tif != FOK && tif != IOC {
		return nil, ErrInvalidTif
	}

	return &Order{
		id:          orderID,
		orderType:   TypeLimit,
		side:        side,
		quantity:    quantity,
		originalQty: quantity,
		price:       price,
		tif:         tif,
		status:      StatusNew,
		submitter:   submitter,
	}, nil
}

// ID returns OrderID field copy
func (o *Order) ID() string {
	return o.id
}

// Side returns side of the Order
func (o *Order) Side() Side {
	return o.side
}

// Type returns the order type
func (o *Order) Type() OrderType {
	return o.orderType
}

// Quantity returns the remaining quantity
func (o *Order) Quantity() fpdecimal.Decimal {
	return o.quantity
}

// OriginalQty returns originalQty field copy
func (o *Order) OriginalQty() fpdecimal.Decimal {
	return o.originalQty
}

// FilledQty returns the quantity executed so far
func (o *Order) FilledQty() fpdecimal.Decimal {
	return o.originalQty.Sub(o.quantity)
}

// Price returns Price field copy
func (o *Order) Price() fpdecimal.Decimal {
	return o.price
}

// TIF returns tif field
func (o *Order) TIF() TIF {
	return o.tif
}

// Status returns the lifecycle status
func (o *Order) Status() OrderStatus {
	return o.status
}

// Submitter returns the opaque tag of the submitting party
func (o *Order) Submitter() string {
	return o.submitter
}

// Sequence returns the arrival sequence number assigned when the order's
// submission was applied
func (o *Order) Sequence() uint64 {
	return o.seq
}

// IsMarketOrder returns true if Order is MARKET
func (o *Order) IsMarketOrder() bool {
	return o.orderType == TypeMarket
}

// IsLimitOrder returns true if Order is LIMIT
func (o *Order) IsLimitOrder() bool {
	return o.orderType == TypeLimit
}

// fill reduces the remaining quantity and advances the status. The match
// quantity must never exceed the remaining quantity; a violation means the
// book state is corrupt.
func (o *Order) fill(qty fpdecimal.Decimal) error {
	if qty.GreaterThan(o.quantity) {
		return ErrNegativeQuantity
	}

	o.quantity = o.quantity.Sub(qty)
	if o.quantity.Equal(fpdecimal.Zero) {
		o.status = StatusFilled
	} else {
		o.status = StatusPartiallyFilled
	}

	return nil
}

func (o *Order) setCanceled() {
	o.status = StatusCanceled
}

func (o *Order) setRejected() {
	o.status = StatusRejected
}

// String implements Stringer interface
func (o *Order) String() string {
	return fmt.Sprintf("%s %s %s %s@%s [%s]",
		o.id, o.side, o.orderType, o.quantity, o.price, o.status)
}
