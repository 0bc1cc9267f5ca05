package core

import (
	"fmt"
	"strings"

	"github.com/nikolaydubina/fpdecimal"
)

// priceLevel holds the orders resting at one price, oldest first. Orders are
// linked through their intrusive next/prev pointers so that removal from the
// middle of the queue is O(1).
type priceLevel struct {
	price      fpdecimal.Decimal
	head, tail *Order
	orderCount int
	totalQty   fpdecimal.Decimal
	next, prev *priceLevel
}

func newPriceLevel(price fpdecimal.Decimal) *priceLevel {
	return &priceLevel{
		price:    price,
		totalQty: fpdecimal.Zero,
	}
}

// reduce subtracts executed quantity from the level total without removing
// the order from the queue
func (pl *priceLevel) reduce(qty fpdecimal.Decimal) {
	pl.totalQty = pl.totalQty.Sub(qty)
}

// bookSide is one side of the book: price levels linked best-first, plus a
// price index for O(1) level lookup. The bid side orders levels descending,
// the ask side ascending.
type bookSide struct {
	side   Side
	head   *priceLevel
	tail   *priceLevel
	levels map[fpdecimal.Decimal]*priceLevel
}

func newBookSide(side Side) *bookSide {
	return &bookSide{
		side:   side,
		levels: make(map[fpdecimal.Decimal]*priceLevel),
	}
}

// bestPrice returns the price of the best level, if any
func (bs *bookSide) bestPrice() (fpdecimal.Decimal, bool) {
	if bs.head == nil {
		return fpdecimal.Zero, false
	}
	return bs.head.price, true
}

// appendOrder adds a resting order at the tail of its price level, creating
// and linking the level if this is the first order at that price
func (bs *bookSide) appendOrder(order *Order) {
	level, ok := bs.levels[order.price]
	if !ok {
		level = newPriceLevel(order.price)
		bs.levels[order.price] = level
		bs.insertLevel(level)
	}

	order.level = level
	order.prev = level.tail
	order.next = nil
	if level.tail != nil {
		level.tail.next = order
	} else {
		level.head = order
	}
	level.tail = order
	level.orderCount++
	level.totalQty = level.totalQty.Add(order.quantity)
}

// removeOrder unlinks a resting order from its level queue. The order's
// remaining quantity leaves the level total; an emptied level is dropped.
func (bs *bookSide) removeOrder(order *Order) {
	level := order.level
	if level == nil {
		return
	}

	if order.prev != nil {
		order.prev.next = order.next
	} else {
		level.head = order.next
	}

	if order.next != nil {
		order.next.prev = order.prev
	} else {
		level.tail = order.prev
	}

	order.next = nil
	order.prev = nil
	order.level = nil

	level.orderCount--
	level.totalQty = level.totalQty.Sub(order.quantity)

	if level.orderCount == 0 {
		bs.unlinkLevel(level)
		delete(bs.levels, level.price)
	}
}

// insertLevel links a new level into the list, keeping the best price at the
// head
func (bs *bookSide) insertLevel(level *priceLevel) {
	if bs.head == nil {
		bs.head = level
		bs.tail = level
		return
	}

	price := level.price

	if bs.side == Buy {
		// Buy side: highest price first
		if price.GreaterThan(bs.head.price) {
			level.next = bs.head
			bs.head.prev = level
			bs.head = level
		} else if price.LessThanOrEqual(bs.tail.price) {
			level.prev = bs.tail
			bs.tail.next = level
			bs.tail = level
		} else {
			current := bs.head
			for current != nil && price.LessThan(current.price) {
				current = current.next
			}
			level.next = current
			level.prev = current.prev
			current.prev.next = level
			current.prev = level
		}
	} else {
		// Sell side: lowest price first
		if price.LessThan(bs.head.price) {
			level.next = bs.head
			bs.head.prev = level
			bs.head = level
		} else if price.GreaterThanOrEqual(bs.tail.price) {
			level.prev = bs.tail
			bs.tail.next = level
			bs.tail = level
		} else {
			current := bs.head
			for current != nil && price.GreaterThan(current.price) {
				current = current.next
			}
			level.next = current
			level.prev = current.prev
			current.prev.next = level
			current.prev = level
		}
	}
}

// unlinkLevel removes a level from the list
func (bs *bookSide) unlinkLevel(level *priceLevel) {
	if level.prev != nil {
		level.prev.next = level.next
	} else {
		bs.head = level.next
	}

	if level.next != nil {
		level.next.prev = level.prev
	} else {
		bs.tail = level.prev
	}

	level.next = nil
	level.prev = nil
}

// availableTo sums the resting quantity a taker on the given side could
// reach. With hasLimit set, only levels crossing limitPrice count; levels are
// best-first, so the walk stops at the first level out of range.
func (bs *bookSide) availableTo(takerSide Side, limitPrice fpdecimal.Decimal, hasLimit bool) fpdecimal.Decimal {
	total := fpdecimal.Zero
	for level := bs.head; level != nil; level = level.next {
		if hasLimit && !priceCrosses(takerSide, limitPrice, level.price) {
			break
		}
		total = total.Add(level.totalQty)
	}
	return total
}

// depth aggregates the best n levels, best first. n <= 0 returns every level.
func (bs *bookSide) depth(n int) []DepthLevel {
	out := make([]DepthLevel, 0)
	for level := bs.head; level != nil; level = level.next {
		if n > 0 && len(out) == n {
			break
		}
		out = append(out, DepthLevel{
			Price:    level.price,
			Quantity: level.totalQty,
			Orders:   level.orderCount,
		})
	}
	return out
}

// snapshotOrders copies every resting order in priority order: best level
// first, oldest order first within a level
func (bs *bookSide) snapshotOrders() []BookOrder {
	out := make([]BookOrder, 0)
	for level := bs.head; level != nil; level = level.next {
		for o := level.head; o != nil; o = o.next {
			out = append(out, BookOrder{
				ID:          o.id,
				Submitter:   o.submitter,
				Price:       o.price,
				Quantity:    o.quantity,
				OriginalQty: o.originalQty,
				TIF:         o.tif,
				Sequence:    o.seq,
			})
		}
	}
	return out
}

// String implements fmt.Stringer interface
func (bs *bookSide) String() string {
	sb := strings.Builder{}
	for level := bs.head; level != nil; level = level.next {
		sb.WriteString(fmt.Sprintf("\n%s -> qty: %s, orders: %d",
			level.price, level.totalQty, level.orderCount))
	}
	return sb.String()
}
