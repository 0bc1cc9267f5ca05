package messaging

import (
	"context"
	"time"

	"github.com/erain9/tickmatch/pkg/core"
)

// EventSender defines an interface for publishing book events to downstream
// consumers. It decouples the engine from specific transports like Kafka.
type EventSender interface {
	SendEventMessage(ctx context.Context, msg *EventMessage) error
	Close() error
}

// EventMessage is the wire form of a book event. One flat struct covers all
// event types; fields that do not apply to a type are omitted from the JSON.
type EventMessage struct {
	Type        string `json:"type"`
	Sequence    uint64 `json:"sequence"`
	OrderID     string `json:"orderID,omitempty"`
	TradeID     uint64 `json:"tradeID,omitempty"`
	BuyOrderID  string `json:"buyOrderID,omitempty"`
	SellOrderID string `json:"sellOrderID,omitempty"`
	TakerSide   string `json:"takerSide,omitempty"`
	Price       string `json:"price,omitempty"`
	Quantity    string `json:"quantity,omitempty"`
	Remaining   string `json:"remaining,omitempty"`
	Reason      string `json:"reason,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

// NoopEventSender discards every message. It is the default when no broker
// is configured.
type NoopEventSender struct{}

// SendEventMessage discards the message
func (NoopEventSender) SendEventMessage(ctx context.Context, msg *EventMessage) error {
	return nil
}

// Close is a no-op
func (NoopEventSender) Close() error {
	return nil
}

var _ EventSender = NoopEventSender{}

// Key returns the partitioning key for the message. Trades key on the buy
// order so fills of one order land on one partition; everything else keys on
// the order itself.
func (m *EventMessage) Key() string {
	if m.Type == "TRADE" {
		return m.BuyOrderID
	}
	return m.OrderID
}

// FromEvent converts a book event to its wire form. It returns nil for
// event types it does not recognize.
func FromEvent(ev core.Event) *EventMessage {
	switch e := ev.(type) {
	case core.Ack:
		return &EventMessage{
			Type:     "ACK",
			Sequence: e.Sequence,
			OrderID:  e.OrderID,
		}
	case core.Trade:
		return &EventMessage{
			Type:        "TRADE",
			Sequence:    e.Sequence,
			TradeID:     e.TradeID,
			BuyOrderID:  e.BuyOrderID,
			SellOrderID: e.SellOrderID,
			TakerSide:   e.TakerSide.String(),
			Price:       e.Price.String(),
			Quantity:    e.Quantity.String(),
			Timestamp:   e.Timestamp.Format(time.RFC3339Nano),
		}
	case core.Cancel:
		return &EventMessage{
			Type:      "CANCEL",
			Sequence:  e.Sequence,
			OrderID:   e.OrderID,
			Remaining: e.Remaining.String(),
			Reason:    string(e.Reason),
		}
	case core.Reject:
		return &EventMessage{
			Type:     "REJECT",
			Sequence: e.Sequence,
			OrderID:  e.OrderID,
			Reason:   string(e.Reason),
		}
	default:
		return nil
	}
}
