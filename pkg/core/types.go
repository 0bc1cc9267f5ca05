package core

import (
	"encoding/json"
	"fmt"

	"github.com/nikolaydubina/fpdecimal"
)

// DepthLevel is one aggregated price level of a depth view
type DepthLevel struct {
	Price    fpdecimal.Decimal
	Quantity fpdecimal.Decimal
	Orders   int
}

// DepthSnapshot is an aggregated view of the top of the book, bids and asks
// each ordered best first
type DepthSnapshot struct {
	Symbol string
	Bids   []DepthLevel
	Asks   []DepthLevel
}

// BookOrder is a copy of one resting order as captured by Snapshot
type BookOrder struct {
	ID          string
	Submitter   string
	Price       fpdecimal.Decimal
	Quantity    fpdecimal.Decimal
	OriginalQty fpdecimal.Decimal
	TIF         TIF
	Sequence    uint64
}

// BookSnapshot is a full copy of the book's resting state, suitable for
// persistence. Orders appear in matching priority order.
type BookSnapshot struct {
	Symbol         string
	LastTradePrice fpdecimal.Decimal
	Bids           []BookOrder
	Asks           []BookOrder
}

// Depth returns the aggregated best levels of both sides. levels <= 0
// returns the whole ladder.
func (ob *OrderBook) Depth(levels int) *DepthSnapshot {
	return &DepthSnapshot{
		Symbol: ob.symbol,
		Bids:   ob.bids.depth(levels),
		Asks:   ob.asks.depth(levels),
	}
}

// Snapshot copies the complete resting state of the book
func (ob *OrderBook) Snapshot() *BookSnapshot {
	return &BookSnapshot{
		Symbol:         ob.symbol,
		LastTradePrice: ob.lastTradePrice,
		Bids:           ob.bids.snapshotOrders(),
		Asks:           ob.asks.snapshotOrders(),
	}
}

// MarshalJSON implements Marshaler interface
func (o BookOrder) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          string `json:"id"`
		Submitter   string `json:"submitter,omitempty"`
		Price       string `json:"price"`
		Quantity    string `json:"quantity"`
		OriginalQty string `json:"originalQty"`
		TIF         TIF    `json:"tif"`
		Sequence    uint64 `json:"sequence"`
	}{
		ID:          o.ID,
		Submitter:   o.Submitter,
		Price:       o.Price.String(),
		Quantity:    o.Quantity.String(),
		OriginalQty: o.OriginalQty.String(),
		TIF:         o.TIF,
		Sequence:    o.Sequence,
	})
}

// UnmarshalJSON implements Unmarshaler interface
func (o *BookOrder) UnmarshalJSON(data []byte) error {
	var aux struct {
		ID          string `json:"id"`
		Submitter   string `json:"submitter"`
		Price       string `json:"price"`
		Quantity    string `json:"quantity"`
		OriginalQty string `json:"originalQty"`
		TIF         TIF    `json:"tif"`
		Sequence    uint64 `json:"sequence"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	price, err := fpdecimal.FromString(aux.Price)
	if err != nil {
		return fmt.Errorf("invalid price %q: %w", aux.Price, err)
	}
	quantity, err := fpdecimal.FromString(aux.Quantity)
	if err != nil {
		return fmt.Errorf("invalid quantity %q: %w", aux.Quantity, err)
	}
	originalQty, err := fpdecimal.FromString(aux.OriginalQty)
	if err != nil {
		return fmt.Errorf("invalid originalQty %q: %w", aux.OriginalQty, err)
	}

	*o = BookOrder{
		ID:          aux.ID,
		Submitter:   aux.Submitter,
		Price:       price,
		Quantity:    quantity,
		OriginalQty: originalQty,
		TIF:         aux.TIF,
		Sequence:    aux.Sequence,
	}
	return nil
}

// MarshalJSON implements Marshaler interface
func (s *BookSnapshot) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Symbol         string      `json:"symbol"`
		LastTradePrice string      `json:"lastTradePrice"`
		Bids           []BookOrder `json:"bids"`
		Asks           []BookOrder `json:"asks"`
	}{
		Symbol:         s.Symbol,
		LastTradePrice: s.LastTradePrice.String(),
		Bids:           s.Bids,
		Asks:           s.Asks,
	})
}

// UnmarshalJSON implements Unmarshaler interface
func (s *BookSnapshot) UnmarshalJSON(data []byte) error {
	var aux struct {
		Symbol         string      `json:"symbol"`
		LastTradePrice string      `json:"lastTradePrice"`
		Bids           []BookOrder `json:"bids"`
		Asks           []BookOrder `json:"asks"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	lastTradePrice, err := fpdecimal.FromString(aux.LastTradePrice)
	if err != nil {
		return fmt.Errorf("invalid lastTradePrice %q: %w", aux.LastTradePrice, err)
	}

	*s = BookSnapshot{
		Symbol:         aux.Symbol,
		LastTradePrice: lastTradePrice,
		Bids:           aux.Bids,
		Asks:           aux.Asks,
	}
	return nil
}
