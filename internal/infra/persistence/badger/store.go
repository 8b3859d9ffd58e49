// Package badger persists records in an embedded BadgerDB key-value store.
// Keys are "<kind>/<id>"; values are the JSON-encoded record.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dgraph-io/badger/v4"

	"simcore/pkg/domain"
)

var _ domain.RecordStore = (*Store)(nil)

// Config selects where the database lives.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string
	// InMemory keeps everything in memory; nothing survives Close.
	InMemory bool
	// SyncWrites fsyncs every write.
	SyncWrites bool
}

// Store is a Badger-backed record store.
type Store struct {
	db *badger.DB
}

// Open opens the database described by cfg.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("path is required for persistent database")
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create database directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger database: %w", err)
	}
	return &Store{db: db}, nil
}

func recordKey(kind domain.RecordKind, id string) []byte {
	return []byte(string(kind) + "/" + id)
}

// Put implements domain.RecordStore.
func (s *Store) Put(ctx context.Context, rec domain.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.Fields == nil {
		rec.Fields = map[string]any{}
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s %s: %w", rec.Kind, rec.ID, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(rec.Kind, rec.ID), data)
	})
}

// Remove implements domain.RecordStore.
func (s *Store) Remove(ctx context.Context, kind domain.RecordKind, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(kind, id))
	})
}

// Get implements domain.RecordStore.
func (s *Store) Get(ctx context.Context, kind domain.RecordKind, id string) (domain.Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Record{}, false, err
	}
	var rec domain.Record
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(kind, id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error { return json.Unmarshal(val, &rec) })
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.Record{}, false, nil
	}
	if err != nil {
		return domain.Record{}, false, fmt.Errorf("get %s %s: %w", kind, id, err)
	}
	return rec, true, nil
}

// List implements domain.RecordStore. Badger iterates keys in byte order, so
// the result is sorted by id.
func (s *Store) List(ctx context.Context, kind domain.RecordKind) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []domain.Record
	prefix := []byte(string(kind) + "/")
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec domain.Record
			if err := it.Item().Value(func(val []byte) error { return json.Unmarshal(val, &rec) }); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	return out, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
