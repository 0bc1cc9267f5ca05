package core

import (
	"encoding/json"
	"testing"

	"github.com/nikolaydubina/fpdecimal"
)

func TestOrderBookDepth(t *testing.T) {
	book := newTestBook()

	submitLimit(t, book, 1, "b1", Buy, 1.0, 100.0, GTC, "")
	submitLimit(t, book, 2, "b2", Buy, 2.0, 100.0, GTC, "")
	submitLimit(t, book, 3, "b3", Buy, 3.0, 99.0, GTC, "")
	submitLimit(t, book, 4, "a1", Sell, 4.0, 101.0, GTC, "")
	submitLimit(t, book, 5, "a2", Sell, 5.0, 102.0, GTC, "")

	depth := book.Depth(0)

	if depth.Symbol != "BTC-USD" {
		t.Errorf("Expected symbol BTC-USD, got %s", depth.Symbol)
	}

	if len(depth.Bids) != 2 {
		t.Fatalf("Expected 2 bid levels, got %d", len(depth.Bids))
	}

	if len(depth.Asks) != 2 {
		t.Fatalf("Expected 2 ask levels, got %d", len(depth.Asks))
	}

	// Best first on both sides.
	if !depth.Bids[0].Price.Equal(fpdecimal.FromFloat(100.0)) {
		t.Errorf("Expected best bid level 100.000, got %v", depth.Bids[0].Price)
	}

	if !depth.Bids[0].Quantity.Equal(fpdecimal.FromFloat(3.0)) || depth.Bids[0].Orders != 2 {
		t.Errorf("Expected best bid level qty 3 with 2 orders, got %v with %d", depth.Bids[0].Quantity, depth.Bids[0].Orders)
	}

	if !depth.Asks[0].Price.Equal(fpdecimal.FromFloat(101.0)) {
		t.Errorf("Expected best ask level 101.000, got %v", depth.Asks[0].Price)
	}

	top := book.Depth(1)
	if len(top.Bids) != 1 || len(top.Asks) != 1 {
		t.Errorf("Expected one level per side with Depth(1), got %d/%d", len(top.Bids), len(top.Asks))
	}
}

func TestOrderBookSnapshot(t *testing.T) {
	book := newTestBook()

	submitLimit(t, book, 1, "b1", Buy, 1.0, 100.0, GTC, "alice")
	submitLimit(t, book, 2, "b2", Buy, 2.0, 99.0, GTC, "")
	submitLimit(t, book, 3, "a1", Sell, 3.0, 101.0, GTC, "bob")

	// Trade moves the last trade price into the snapshot.
	submitLimit(t, book, 4, "taker", Buy, 1.0, 101.0, GTC, "")

	snapshot := book.Snapshot()

	if snapshot.Symbol != "BTC-USD" {
		t.Errorf("Expected symbol BTC-USD, got %s", snapshot.Symbol)
	}

	if !snapshot.LastTradePrice.Equal(fpdecimal.FromFloat(101.0)) {
		t.Errorf("Expected last trade price 101.000, got %v", snapshot.LastTradePrice)
	}

	if len(snapshot.Bids) != 2 {
		t.Fatalf("Expected 2 bid orders, got %d", len(snapshot.Bids))
	}

	if len(snapshot.Asks) != 1 {
		t.Fatalf("Expected 1 ask order, got %d", len(snapshot.Asks))
	}

	// Priority order: best price first.
	if snapshot.Bids[0].ID != "b1" || snapshot.Bids[1].ID != "b2" {
		t.Errorf("Expected bids b1,b2, got %s,%s", snapshot.Bids[0].ID, snapshot.Bids[1].ID)
	}

	ask := snapshot.Asks[0]
	if ask.ID != "a1" {
		t.Errorf("Expected ask a1, got %s", ask.ID)
	}

	if !ask.Quantity.Equal(fpdecimal.FromFloat(2.0)) {
		t.Errorf("Expected ask remaining 2, got %v", ask.Quantity)
	}

	if !ask.OriginalQty.Equal(fpdecimal.FromFloat(3.0)) {
		t.Errorf("Expected ask original 3, got %v", ask.OriginalQty)
	}

	if ask.Submitter != "bob" {
		t.Errorf("Expected submitter bob, got %s", ask.Submitter)
	}

	if ask.Sequence != 3 {
		t.Errorf("Expected sequence 3, got %d", ask.Sequence)
	}

	// The snapshot is a copy: mutating the book later must not change it.
	if _, err := book.Cancel("b1", 5); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}

	if len(snapshot.Bids) != 2 {
		t.Errorf("Expected snapshot unchanged after cancel, got %d bids", len(snapshot.Bids))
	}
}

func TestBookOrder_MarshalJSON(t *testing.T) {
	order := BookOrder{
		ID:          "test-123",
		Submitter:   "alice",
		Price:       fpdecimal.FromFloat(100.0),
		Quantity:    fpdecimal.FromFloat(10.0),
		OriginalQty: fpdecimal.FromFloat(12.0),
		TIF:         GTC,
		Sequence:    42,
	}

	data, err := json.Marshal(order)
	if err != nil {
		t.Fatalf("Failed to marshal BookOrder: %v", err)
	}

	var jsonMap map[string]interface{}
	if err := json.Unmarshal(data, &jsonMap); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}

	if jsonMap["id"] != "test-123" {
		t.Errorf("Expected id test-123, got %v", jsonMap["id"])
	}

	if jsonMap["submitter"] != "alice" {
		t.Errorf("Expected submitter alice, got %v", jsonMap["submitter"])
	}

	if price, ok := jsonMap["price"].(string); !ok || price != "100.000" {
		t.Errorf("Expected price 100.000, got %v", jsonMap["price"])
	}

	if quantity, ok := jsonMap["quantity"].(string); !ok || quantity != "10.000" {
		t.Errorf("Expected quantity 10.000, got %v", jsonMap["quantity"])
	}

	if original, ok := jsonMap["originalQty"].(string); !ok || original != "12.000" {
		t.Errorf("Expected originalQty 12.000, got %v", jsonMap["originalQty"])
	}

	if jsonMap["tif"] != "GTC" {
		t.Errorf("Expected tif GTC, got %v", jsonMap["tif"])
	}

	if jsonMap["sequence"] != float64(42) {
		t.Errorf("Expected sequence 42, got %v", jsonMap["sequence"])
	}

	// An anonymous order omits the submitter field entirely.
	anon := BookOrder{ID: "anon", Price: fpdecimal.FromFloat(1.0), Quantity: fpdecimal.FromFloat(1.0), OriginalQty: fpdecimal.FromFloat(1.0), TIF: GTC}
	data, err = json.Marshal(anon)
	if err != nil {
		t.Fatalf("Failed to marshal BookOrder: %v", err)
	}
	if err := json.Unmarshal(data, &jsonMap); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}
	if _, present := jsonMap["submitter"]; present {
		t.Error("Expected submitter to be omitted when empty")
	}
}

func TestBookSnapshotRoundTrip(t *testing.T) {
	book := newTestBook()

	submitLimit(t, book, 1, "b1", Buy, 2.0, 99.0, GTC, "alice")
	submitLimit(t, book, 2, "a1", Sell, 3.0, 101.0, IOC, "")
	submitLimit(t, book, 3, "a2", Sell, 3.0, 101.0, GTC, "")

	data, err := json.Marshal(book.Snapshot())
	if err != nil {
		t.Fatalf("Failed to marshal BookSnapshot: %v", err)
	}

	var restored BookSnapshot
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("Failed to unmarshal BookSnapshot: %v", err)
	}

	if restored.Symbol != "BTC-USD" {
		t.Errorf("Expected symbol BTC-USD, got %s", restored.Symbol)
	}

	if len(restored.Bids) != 1 || len(restored.Asks) != 1 {
		t.Fatalf("Expected 1 bid and 1 ask, got %d/%d", len(restored.Bids), len(restored.Asks))
	}

	bid := restored.Bids[0]
	if bid.ID != "b1" || bid.Submitter != "alice" {
		t.Errorf("Expected bid b1 from alice, got %s from %s", bid.ID, bid.Submitter)
	}

	if !bid.Price.Equal(fpdecimal.FromFloat(99.0)) {
		t.Errorf("Expected bid price 99.000, got %v", bid.Price)
	}

	if !bid.Quantity.Equal(fpdecimal.FromFloat(2.0)) {
		t.Errorf("Expected bid quantity 2, got %v", bid.Quantity)
	}

	if bid.TIF != GTC || bid.Sequence != 1 {
		t.Errorf("Expected GTC seq 1, got %v seq %d", bid.TIF, bid.Sequence)
	}
}

func TestBookSnapshot_MarshalJSON(t *testing.T) {
	book := newTestBook()

	submitLimit(t, book, 1, "b1", Buy, 1.0, 99.0, GTC, "")
	submitLimit(t, book, 2, "a1", Sell, 1.0, 101.0, GTC, "")

	data, err := json.Marshal(book.Snapshot())
	if err != nil {
		t.Fatalf("Failed to marshal BookSnapshot: %v", err)
	}

	var jsonMap map[string]interface{}
	if err := json.Unmarshal(data, &jsonMap); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}

	if jsonMap["symbol"] != "BTC-USD" {
		t.Errorf("Expected symbol BTC-USD, got %v", jsonMap["symbol"])
	}

	if price, ok := jsonMap["lastTradePrice"].(string); !ok || price != "0.000" {
		t.Errorf("Expected lastTradePrice 0.000, got %v", jsonMap["lastTradePrice"])
	}

	bids, ok := jsonMap["bids"].([]interface{})
	if !ok || len(bids) != 1 {
		t.Fatalf("Expected 1 bid in JSON, got %v", jsonMap["bids"])
	}

	asks, ok := jsonMap["asks"].([]interface{})
	if !ok || len(asks) != 1 {
		t.Fatalf("Expected 1 ask in JSON, got %v", jsonMap["asks"])
	}
}
