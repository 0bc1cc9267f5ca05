package engine

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/gammazero/deque"
	"github.com/rs/zerolog"

	"github.com/erain9/tickmatch/pkg/core"
	"github.com/erain9/tickmatch/pkg/messaging"
	"github.com/erain9/tickmatch/pkg/store"
)

// dispatcher moves event batches from the engine's critical section to the
// sender and store. A single worker goroutine preserves the order in which
// commands were applied; the engine only pays for an enqueue while holding
// its lock.
type dispatcher struct {
	sender messaging.EventSender
	store  store.Store
	logger zerolog.Logger

	mu      sync.Mutex
	pending deque.Deque[[]core.Event]

	notify chan struct{}
	done   chan struct{}
	wg     sync.WaitGroup

	failed uint64
}

func newDispatcher(sender messaging.EventSender, st store.Store, logger zerolog.Logger) *dispatcher {
	d := &dispatcher{
		sender: sender,
		store:  st,
		logger: logger,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

// enqueue hands one command's events to the worker. Safe to call while the
// engine lock is held; it never blocks on delivery.
func (d *dispatcher) enqueue(events []core.Event) {
	d.mu.Lock()
	d.pending.PushBack(events)
	d.mu.Unlock()

	select {
	case d.notify <- struct{}{}:
	default:
	}
}

func (d *dispatcher) next() ([]core.Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending.Len() == 0 {
		return nil, false
	}
	return d.pending.PopFront(), true
}

func (d *dispatcher) run() {
	defer d.wg.Done()

	for {
		if batch, ok := d.next(); ok {
			d.deliver(batch)
			continue
		}

		select {
		case <-d.notify:
		case <-d.done:
			// Drain anything enqueued before close was requested.
			for {
				batch, ok := d.next()
				if !ok {
					return
				}
				d.deliver(batch)
			}
		}
	}
}

// deliver persists a batch and publishes each event. Failures are counted
// and logged; the book state they describe is already final and is never
// rolled back.
func (d *dispatcher) deliver(events []core.Event) {
	ctx := context.Background()

	if err := d.store.PersistEvents(ctx, events); err != nil {
		atomic.AddUint64(&d.failed, 1)
		d.logger.Warn().Err(err).Int("count", len(events)).Msg("Failed to persist events")
	}

	for _, ev := range events {
		msg := messaging.FromEvent(ev)
		if msg == nil {
			continue
		}
		if err := d.sender.SendEventMessage(ctx, msg); err != nil {
			atomic.AddUint64(&d.failed, 1)
			d.logger.Warn().Err(err).Uint64("seq", ev.Seq()).Str("type", msg.Type).Msg("Failed to publish event")
		}
	}
}

// failures returns the number of persist and publish operations that have
// failed so far
func (d *dispatcher) failures() uint64 {
	return atomic.LoadUint64(&d.failed)
}

// close waits for every enqueued batch to be delivered, then stops the
// worker. The caller must not enqueue after close.
func (d *dispatcher) close() {
	close(d.done)
	d.wg.Wait()
}
