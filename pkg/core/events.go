package core

import (
	"encoding/json"
	"time"

	"github.com/nikolaydubina/fpdecimal"
)

// RejectReason explains why a command was refused
type RejectReason string

// Reject reasons
const (
	RejectInvalidPrice          RejectReason = "INVALID_PRICE"
	RejectInvalidQuantity       RejectReason = "INVALID_QUANTITY"
	RejectInvalidTIF            RejectReason = "INVALID_TIF"
	RejectDuplicateOrderID      RejectReason = "DUPLICATE_ORDER_ID"
	RejectUnknownOrder          RejectReason = "UNKNOWN_ORDER"
	RejectInsufficientLiquidity RejectReason = "INSUFFICIENT_LIQUIDITY"
	RejectSelfMatch             RejectReason = "SELF_MATCH"
)

// CancelReason explains why quantity was canceled
type CancelReason string

// Cancel reasons
const (
	CancelRequested   CancelReason = "REQUESTED"
	CancelIOCResidual CancelReason = "IOC_RESIDUAL"
	CancelFOKKill     CancelReason = "FOK_KILL"
	CancelSelfMatch   CancelReason = "SELF_MATCH"
)

// Event is the closed set of facts the book emits while applying a command.
// Every event carries the sequence number of the command that produced it.
type Event interface {
	isEvent()
	Seq() uint64
}

// Ack records that a submission passed validation and entered matching
type Ack struct {
	Sequence uint64
	OrderID  string
}

// Trade records one match between a resting and an incoming order. Price is
// always the resting order's limit price.
type Trade struct {
	Sequence    uint64
	TradeID     uint64
	BuyOrderID  string
	SellOrderID string
	TakerSide   Side
	Price       fpdecimal.Decimal
	Quantity    fpdecimal.Decimal
	Timestamp   time.Time
}

// Cancel records quantity taken off the market, either on request or as the
// unfilled residual of an IOC or FOK order
type Cancel struct {
	Sequence  uint64
	OrderID   string
	Remaining fpdecimal.Decimal
	Reason    CancelReason
}

// Reject records that a command was refused. The book is unchanged by a
// rejected command.
type Reject struct {
	Sequence uint64
	OrderID  string
	Reason   RejectReason
}

func (Ack) isEvent()    {}
func (Trade) isEvent()  {}
func (Cancel) isEvent() {}
func (Reject) isEvent() {}

// Seq returns the producing command's sequence number
func (e Ack) Seq() uint64 { return e.Sequence }

// Seq returns the producing command's sequence number
func (e Trade) Seq() uint64 { return e.Sequence }

// Seq returns the producing command's sequence number
func (e Cancel) Seq() uint64 { return e.Sequence }

// Seq returns the producing command's sequence number
func (e Reject) Seq() uint64 { return e.Sequence }

// MarshalJSON implements Marshaler interface
func (e Ack) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string `json:"type"`
		Sequence uint64 `json:"sequence"`
		OrderID  string `json:"orderID"`
	}{
		Type:     "ACK",
		Sequence: e.Sequence,
		OrderID:  e.OrderID,
	})
}

// MarshalJSON implements Marshaler interface
func (e Trade) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type        string `json:"type"`
		Sequence    uint64 `json:"sequence"`
		TradeID     uint64 `json:"tradeID"`
		BuyOrderID  string `json:"buyOrderID"`
		SellOrderID string `json:"sellOrderID"`
		TakerSide   string `json:"takerSide"`
		Price       string `json:"price"`
		Quantity    string `json:"quantity"`
		Timestamp   string `json:"timestamp"`
	}{
		Type:        "TRADE",
		Sequence:    e.Sequence,
		TradeID:     e.TradeID,
		BuyOrderID:  e.BuyOrderID,
		SellOrderID: e.SellOrderID,
		TakerSide:   e.TakerSide.String(),
		Price:       e.Price.String(),
		Quantity:    e.Quantity.String(),
		Timestamp:   e.Timestamp.Format(time.RFC3339Nano),
	})
}

// MarshalJSON implements Marshaler interface
func (e Cancel) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      string `json:"type"`
		Sequence  uint64 `json:"sequence"`
		OrderID   string `json:"orderID"`
		Remaining string `json:"remaining"`
		Reason    string `json:"reason"`
	}{
		Type:      "CANCEL",
		Sequence:  e.Sequence,
		OrderID:   e.OrderID,
		Remaining: e.Remaining.String(),
		Reason:    string(e.Reason),
	})
}

// MarshalJSON implements Marshaler interface
func (e Reject) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type     string `json:"type"`
		Sequence uint64 `json:"sequence"`
		OrderID  string `json:"orderID"`
		Reason   string `json:"reason"`
	}{
		Type:     "REJECT",
		Sequence: e.Sequence,
		OrderID:  e.OrderID,
		Reason:   string(e.Reason),
	})
}
