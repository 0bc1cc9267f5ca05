package pebble

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"github.com/erain9/tickmatch/pkg/core"
	"github.com/erain9/tickmatch/pkg/store"
)

const (
	// Event keys embed the sequence number and the event's position within
	// its command, zero padded so byte order equals sequence order.
	eventKeyFormat = "event/%020d/%04d"
	eventPrefix    = "event/"
	eventPrefixEnd = "event/~"

	snapshotKey = "snapshot/latest"
)

// PebbleStore implements Store on an embedded pebble database. It needs no
// external services, which makes it the default durable store for a single
// node deployment.
type PebbleStore struct {
	db     *pebble.DB
	logger *zap.Logger
}

// NewPebbleStore opens or creates the database under dir
func NewPebbleStore(dir string, logger *zap.Logger) (*PebbleStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", dir, err)
	}

	return &PebbleStore{
		db:     db,
		logger: logger,
	}, nil
}

// PersistEvents writes the events in one synced batch. Events must arrive in
// sequence order; events of one command share a sequence number and are
// distinguished by position.
func (s *PebbleStore) PersistEvents(ctx context.Context, events []core.Event) error {
	if len(events) == 0 {
		return nil
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	idx := 0
	lastSeq := uint64(0)
	for _, ev := range events {
		if ev.Seq() != lastSeq {
			idx = 0
			lastSeq = ev.Seq()
		} else {
			idx++
		}

		payload, err := json.Marshal(ev)
		if err != nil {
			return fmt.Errorf("failed to marshal event: %w", err)
		}

		key := fmt.Sprintf(eventKeyFormat, ev.Seq(), idx)
		if err := batch.Set([]byte(key), payload, nil); err != nil {
			return fmt.Errorf("failed to stage event %s: %w", key, err)
		}
	}

	if err := s.db.Apply(batch, pebble.Sync); err != nil {
		s.logger.Error("failed to persist events",
			zap.Int("count", len(events)),
			zap.Error(err))
		return fmt.Errorf("failed to persist events: %w", err)
	}

	return nil
}

// SaveSnapshot overwrites the stored snapshot
func (s *PebbleStore) SaveSnapshot(ctx context.Context, snapshot *core.BookSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := s.db.Set([]byte(snapshotKey), data, pebble.Sync); err != nil {
		s.logger.Error("failed to save snapshot",
			zap.String("symbol", snapshot.Symbol),
			zap.Error(err))
		return fmt.Errorf("failed to save snapshot: %w", err)
	}

	return nil
}

// LatestSnapshot loads the stored snapshot. It returns nil without error
// when no snapshot has been saved yet.
func (s *PebbleStore) LatestSnapshot() (*core.BookSnapshot, error) {
	val, closer, err := s.db.Get([]byte(snapshotKey))
	if err != nil {
		if err == pebble.ErrNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	data := append([]byte(nil), val...)
	if err := closer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close snapshot value: %w", err)
	}

	var snapshot core.BookSnapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}

	return &snapshot, nil
}

// ScanEvents calls fn with each persisted event payload in sequence order.
// A non-nil error from fn stops the scan and is returned.
func (s *PebbleStore) ScanEvents(fn func(payload []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(eventPrefix),
		UpperBound: []byte(eventPrefixEnd),
	})
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		payload := append([]byte(nil), iter.Value()...)
		if err := fn(payload); err != nil {
			return err
		}
	}

	return iter.Error()
}

// Close flushes and closes the database
func (s *PebbleStore) Close() error {
	return s.db.Close()
}

// Ensure PebbleStore implements Store
var _ store.Store = (*PebbleStore)(nil)
