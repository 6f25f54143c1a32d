// Package archive keeps a local, append-only copy of every relayed event in
// Badger, keyed by big-endian sequence number so iteration order is sequence
// order. The archive serves the read-side event feed without touching the
// primary store and survives broker retention limits.
package archive

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	badger "github.com/dgraph-io/badger/v4"

	"museion/internal/events"
)

// Archive is a Badger-backed event log.
type Archive struct {
	db *badger.DB
}

// Open opens (or creates) the archive at dir. Badger's own logger is
// silenced; the relay logs archive failures itself.
func Open(dir string) (*Archive, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open event archive: %w", err)
	}
	return &Archive{db: db}, nil
}

// Put stores one event under its sequence key. Idempotent: replaying a
// sequence overwrites the identical record.
func (a *Archive) Put(event events.Event) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = a.db.Update(func(txn *badger.Txn) error {
		return txn.Set(seqKey(event.Seq), value)
	})
	if err != nil {
		return fmt.Errorf("archive event seq %d: %w", event.Seq, err)
	}
	return nil
}

// Get returns the archived event with the given sequence.
func (a *Archive) Get(seq uint64) (*events.Event, error) {
	var event events.Event
	err := a.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(seqKey(seq))
		if err != nil {
			return err
		}
		return item.Value(func(value []byte) error {
			return json.Unmarshal(value, &event)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("event seq %d not archived", seq)
		}
		return nil, fmt.Errorf("read archived event: %w", err)
	}
	return &event, nil
}

// ListAfter returns up to limit events with Seq > after, in sequence order.
// Satisfies the same read contract as the outbox store.
func (a *Archive) ListAfter(_ context.Context, after uint64, limit int) ([]events.Event, error) {
	out := make([]events.Event, 0, limit)
	err := a.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seqKey(after + 1)); it.Valid() && len(out) < limit; it.Next() {
			var event events.Event
			err := it.Item().Value(func(value []byte) error {
				return json.Unmarshal(value, &event)
			})
			if err != nil {
				return err
			}
			out = append(out, event)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan event archive: %w", err)
	}
	return out, nil
}

// Close flushes and closes the underlying store.
func (a *Archive) Close() error {
	return a.db.Close()
}

func seqKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}
