// Package memory provides an in-memory record store used for tests and
// ephemeral runs. Besides the current records it keeps the journal of every
// write it received.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"simcore/pkg/domain"
)

var _ domain.RecordStore = (*Store)(nil)

// Op is one journaled write.
type Op struct {
	Delete bool
	Record domain.Record
}

type key struct {
	kind domain.RecordKind
	id   string
}

// Store keeps records in maps guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	records map[key]domain.Record
	journal []Op
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{records: make(map[key]domain.Record)}
}

func copyRecord(rec domain.Record) domain.Record {
	out := rec
	out.Fields = maps.Clone(rec.Fields)
	if out.Fields == nil {
		out.Fields = map[string]any{}
	}
	return out
}

// Put stores rec, replacing any record with the same kind and id.
func (s *Store) Put(_ context.Context, rec domain.Record) error {
	rec = copyRecord(rec)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key{rec.Kind, rec.ID}] = rec
	s.journal = append(s.journal, Op{Record: rec})
	return nil
}

// Remove deletes a record. Removing an absent record is not an error.
func (s *Store) Remove(_ context.Context, kind domain.RecordKind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key{kind, id})
	s.journal = append(s.journal, Op{Delete: true, Record: domain.Record{Kind: kind, ID: id}})
	return nil
}

// Get returns a copy of the record.
func (s *Store) Get(_ context.Context, kind domain.RecordKind, id string) (domain.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[key{kind, id}]
	if !ok {
		return domain.Record{}, false, nil
	}
	return copyRecord(rec), true, nil
}

// List returns the records of a kind sorted by id.
func (s *Store) List(_ context.Context, kind domain.RecordKind) ([]domain.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Record
	for k, rec := range s.records {
		if k.kind == kind {
			out = append(out, copyRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Journal returns every write in arrival order.
func (s *Store) Journal() []Op {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Op, len(s.journal))
	for i, op := range s.journal {
		out[i] = Op{Delete: op.Delete, Record: copyRecord(op.Record)}
	}
	return out
}

// Len reports the number of current records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close implements domain.RecordStore.
func (s *Store) Close() error { return nil }
