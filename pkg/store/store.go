package store

import (
	"context"
	"sync"

	"github.com/erain9/tickmatch/pkg/core"
)

// Store persists the engine's output. Implementations append events in the
// order they are handed over and keep the most recent book snapshot.
type Store interface {
	PersistEvents(ctx context.Context, events []core.Event) error
	SaveSnapshot(ctx context.Context, snapshot *core.BookSnapshot) error
	Close() error
}

// NoopStore discards everything. It is the default when no durability is
// configured.
type NoopStore struct{}

// NewNoopStore creates a new NoopStore.
func NewNoopStore() *NoopStore {
	return &NoopStore{}
}

// PersistEvents does nothing.
func (NoopStore) PersistEvents(ctx context.Context, events []core.Event) error {
	return nil
}

// SaveSnapshot does nothing.
func (NoopStore) SaveSnapshot(ctx context.Context, snapshot *core.BookSnapshot) error {
	return nil
}

// Close does nothing.
func (NoopStore) Close() error {
	return nil
}

// MemoryStore keeps events and the latest snapshot in memory. It exists for
// tests and local experiments.
type MemoryStore struct {
	mu       sync.Mutex
	events   []core.Event
	snapshot *core.BookSnapshot
	closed   bool

	// Err, when set, is returned by every persistence call.
	Err error
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// PersistEvents appends the events to the in-memory log.
func (m *MemoryStore) PersistEvents(ctx context.Context, events []core.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	m.events = append(m.events, events...)
	return nil
}

// SaveSnapshot replaces the stored snapshot.
func (m *MemoryStore) SaveSnapshot(ctx context.Context, snapshot *core.BookSnapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}

	m.snapshot = snapshot
	return nil
}

// Events returns a copy of the event log.
func (m *MemoryStore) Events() []core.Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]core.Event, len(m.events))
	copy(out, m.events)
	return out
}

// LatestSnapshot returns the most recently saved snapshot, or nil.
func (m *MemoryStore) LatestSnapshot() *core.BookSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.snapshot
}

// Close marks the store closed.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	return nil
}

// Closed reports whether Close has been called.
func (m *MemoryStore) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.closed
}

// Ensure both implementations satisfy Store
var (
	_ Store = (*NoopStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
