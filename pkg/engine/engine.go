package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/nikolaydubina/fpdecimal"
	"github.com/rs/zerolog/log"

	"github.com/erain9/tickmatch/pkg/core"
	"github.com/erain9/tickmatch/pkg/logging"
	"github.com/erain9/tickmatch/pkg/messaging"
	"github.com/erain9/tickmatch/pkg/store"
)

var (
	// ErrEngineHalted is returned once the engine has detected book
	// corruption and refuses all further commands
	ErrEngineHalted = errors.New("engine halted")

	// ErrEngineClosed is returned for commands applied after Close
	ErrEngineClosed = errors.New("engine closed")
)

// Command is the closed set of inputs the engine accepts
type Command interface {
	isCommand()
}

// SubmitCommand asks the engine to run one order through matching
type SubmitCommand struct {
	OrderID   string
	Side      core.Side
	Type      core.OrderType
	Price     fpdecimal.Decimal
	Quantity  fpdecimal.Decimal
	TIF       core.TIF
	Submitter string
}

// CancelCommand asks the engine to remove a resting order
type CancelCommand struct {
	OrderID string
}

func (SubmitCommand) isCommand() {}
func (CancelCommand) isCommand() {}

// Options configures a MatchingEngine. Sender and Store default to no-op
// implementations, Clock to the system clock.
type Options struct {
	Symbol        string
	Clock         core.Clock
	SelfMatchMode core.SelfMatchMode
	Sender        messaging.EventSender
	Store         store.Store
}

// MatchingEngine owns one instrument's book and serializes every command
// against it. Events produced inside the critical section are handed to a
// background dispatcher, so senders and stores never stall matching. All
// methods are safe for concurrent use.
type MatchingEngine struct {
	symbol string

	mu     sync.Mutex
	book   *core.OrderBook
	seq    uint64
	halted bool
	closed bool

	disp   *dispatcher
	sender messaging.EventSender
	store  store.Store
}

// NewMatchingEngine creates an engine for one instrument and starts its
// dispatcher
func NewMatchingEngine(opts Options) *MatchingEngine {
	sender := opts.Sender
	if sender == nil {
		sender = messaging.NoopEventSender{}
	}

	st := opts.Store
	if st == nil {
		st = store.NoopStore{}
	}

	book := core.NewOrderBook(core.BookOptions{
		Symbol:        opts.Symbol,
		Clock:         opts.Clock,
		SelfMatchMode: opts.SelfMatchMode,
	})

	logger := log.With().Str("symbol", opts.Symbol).Logger()

	return &MatchingEngine{
		symbol: opts.Symbol,
		book:   book,
		disp:   newDispatcher(sender, st, logger),
		sender: sender,
		store:  st,
	}
}

// Symbol returns the instrument this engine matches
func (e *MatchingEngine) Symbol() string {
	return e.symbol
}

// Apply runs one command against the book. The returned events are the
// caller's copy; delivery to the sender and store happens asynchronously.
//
// Malformed commands fail with an error wrapping core.ErrInvalidArgument and
// consume no sequence number. Every well-formed command consumes exactly one
// sequence number and produces at least one event, a Reject when its content
// is invalid. A command that exposes book corruption halts the engine.
func (e *MatchingEngine) Apply(ctx context.Context, cmd Command) ([]core.Event, error) {
	logger := logging.FromContext(ctx).With().Str("symbol", e.symbol).Logger()

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil, ErrEngineClosed
	}
	if e.halted {
		return nil, ErrEngineHalted
	}

	var events []core.Event
	var err error

	switch c := cmd.(type) {
	case SubmitCommand:
		events, err = e.applySubmit(c)
	case CancelCommand:
		e.seq++
		events, err = e.book.Cancel(c.OrderID, e.seq)
	case nil:
		return nil, fmt.Errorf("%w: nil command", core.ErrInvalidArgument)
	default:
		return nil, fmt.Errorf("%w: command type %T", core.ErrInvalidArgument, cmd)
	}

	if err != nil && !errors.Is(err, core.ErrInvalidArgument) {
		// The book reported corruption. Events produced before the error
		// describe fills that really happened, so they are still delivered.
		e.halted = true
		logger.Error().Err(err).Uint64("seq", e.seq).Msg("Book corrupted, halting engine")
	}

	if len(events) > 0 {
		e.disp.enqueue(events)
	}

	return events, err
}

func (e *MatchingEngine) applySubmit(cmd SubmitCommand) ([]core.Event, error) {
	if err := validateSubmit(cmd); err != nil {
		return nil, err
	}

	e.seq++

	var order *core.Order
	var err error
	if cmd.Type == core.TypeMarket {
		if cmd.Price != fpdecimal.Zero {
			return []core.Event{core.Reject{Sequence: e.seq, OrderID: cmd.OrderID, Reason: core.RejectInvalidPrice}}, nil
		}
		order, err = core.NewMarketOrder(cmd.OrderID, cmd.Side, cmd.Quantity, cmd.Submitter)
	} else {
		order, err = core.NewLimitOrder(cmd.OrderID, cmd.Side, cmd.Quantity, cmd.Price, cmd.TIF, cmd.Submitter)
	}
	if err != nil {
		return []core.Event{core.Reject{Sequence: e.seq, OrderID: cmd.OrderID, Reason: rejectReasonFor(err)}}, nil
	}

	return e.book.Submit(order, e.seq)
}

// validateSubmit checks the command's tag fields. Failures here mean the
// command never entered the book, so no sequence number is spent on it.
func validateSubmit(cmd SubmitCommand) error {
	switch cmd.Type {
	case core.TypeLimit, core.TypeMarket:
	default:
		return fmt.Errorf("%w: order type %q", core.ErrInvalidArgument, cmd.Type)
	}

	switch cmd.Side {
	case core.Buy, core.Sell:
	default:
		return fmt.Errorf("%w: side %d", core.ErrInvalidArgument, int(cmd.Side))
	}

	return nil
}

func rejectReasonFor(err error) core.RejectReason {
	switch {
	case errors.Is(err, core.ErrInvalidPrice):
		return core.RejectInvalidPrice
	case errors.Is(err, core.ErrInvalidTif):
		return core.RejectInvalidTIF
	default:
		return core.RejectInvalidQuantity
	}
}

// BestBid returns the highest resting buy price, if any
func (e *MatchingEngine) BestBid() (fpdecimal.Decimal, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.BestBid()
}

// BestAsk returns the lowest resting sell price, if any
func (e *MatchingEngine) BestAsk() (fpdecimal.Decimal, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.BestAsk()
}

// LastTradePrice returns the price of the most recent trade, or zero
func (e *MatchingEngine) LastTradePrice() fpdecimal.Decimal {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.LastTradePrice()
}

// Depth returns the aggregated best levels of both sides
func (e *MatchingEngine) Depth(levels int) *core.DepthSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Depth(levels)
}

// OrderCount returns the number of resting orders
func (e *MatchingEngine) OrderCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Len()
}

// Sequence returns the sequence number of the last applied command
func (e *MatchingEngine) Sequence() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seq
}

// Halted reports whether the engine has stopped after detecting corruption
func (e *MatchingEngine) Halted() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.halted
}

// Snapshot copies the book's resting state
func (e *MatchingEngine) Snapshot() *core.BookSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.book.Snapshot()
}

// SnapshotNow captures the book state and writes it to the store. The
// capture runs under the engine lock; the store write does not, so a slow
// store never blocks matching.
func (e *MatchingEngine) SnapshotNow(ctx context.Context) (*core.BookSnapshot, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEngineClosed
	}
	snapshot := e.book.Snapshot()
	e.mu.Unlock()

	if err := e.store.SaveSnapshot(ctx, snapshot); err != nil {
		return snapshot, fmt.Errorf("failed to save snapshot: %w", err)
	}

	return snapshot, nil
}

// DeliveryFailures returns how many persist and publish operations have
// failed. Delivery failures are reported, never rolled back into the book.
func (e *MatchingEngine) DeliveryFailures() uint64 {
	return e.disp.failures()
}

// Close drains the dispatcher, then closes the sender and store. Further
// commands return ErrEngineClosed. Close is idempotent.
func (e *MatchingEngine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	e.disp.close()

	var firstErr error
	if err := e.sender.Close(); err != nil {
		firstErr = err
	}
	if err := e.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}
