package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
)

// Badger stores payloads in an embedded BadgerDB, giving low-latency local
// persistence without an external service.
type Badger struct {
	db    *badger.DB
	owned bool
}

// BadgerConfig holds the settings NewBadger needs.
type BadgerConfig struct {
	// Path is the directory for the database files. Ignored when InMemory
	// is set.
	Path string

	// InMemory disables disk persistence. Useful for tests.
	InMemory bool

	// SyncWrites forces durable writes at the cost of latency.
	SyncWrites bool
}

// NewBadger opens a BadgerDB with the given configuration. Close must be
// called to release the database.
func NewBadger(cfg BadgerConfig) (*Badger, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("backend: open badger: %w", err)
	}
	return &Badger{db: db, owned: true}, nil
}

// WrapBadger uses an already-open database owned by the caller; Close
// becomes a no-op.
func WrapBadger(db *badger.DB) *Badger {
	return &Badger{db: db}
}

// Close releases the database if this backend opened it.
func (b *Badger) Close() error {
	if !b.owned {
		return nil
	}
	return b.db.Close()
}

func (b *Badger) Save(ctx context.Context, key string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
	if err != nil {
		return fmt.Errorf("backend: badger save: %w", err)
	}
	return nil
}

func (b *Badger) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var data []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("backend: badger load: %w", err)
	}
	return data, nil
}
