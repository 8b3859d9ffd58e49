// Package sqlite persists records to a single SQLite table, one row per
// (kind, id), with the fields stored as a JSON blob.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"simcore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

var _ domain.RecordStore = (*Store)(nil)

const defaultPath = "simcore.db"

// Store is a SQLite-backed record store.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (or creates) the database at path and ensures the records
// table exists.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// sqlite serialises writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS records (
		kind TEXT NOT NULL,
		id TEXT NOT NULL,
		owner TEXT NOT NULL DEFAULT '',
		fields BLOB NOT NULL,
		PRIMARY KEY (kind, id)
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create records table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// DB exposes the underlying sql.DB for tests.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Put implements domain.RecordStore.
func (s *Store) Put(ctx context.Context, rec domain.Record) error {
	data, err := domain.EncodeFields(rec.Fields)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO records(kind,id,owner,fields) VALUES(?,?,?,?)
		ON CONFLICT(kind,id) DO UPDATE SET owner=excluded.owner, fields=excluded.fields`,
		string(rec.Kind), rec.ID, rec.OwnerID, data); err != nil {
		return fmt.Errorf("upsert %s %s: %w", rec.Kind, rec.ID, err)
	}
	return nil
}

// Remove implements domain.RecordStore.
func (s *Store) Remove(ctx context.Context, kind domain.RecordKind, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE kind=? AND id=?`, string(kind), id); err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	return nil
}

// Get implements domain.RecordStore.
func (s *Store) Get(ctx context.Context, kind domain.RecordKind, id string) (domain.Record, bool, error) {
	var owner string
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT owner, fields FROM records WHERE kind=? AND id=?`, string(kind), id).Scan(&owner, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Record{}, false, nil
	}
	if err != nil {
		return domain.Record{}, false, fmt.Errorf("select %s %s: %w", kind, id, err)
	}
	fields, err := domain.DecodeFields(data)
	if err != nil {
		return domain.Record{}, false, err
	}
	return domain.Record{Kind: kind, ID: id, OwnerID: owner, Fields: fields}, true, nil
}

// List implements domain.RecordStore.
func (s *Store) List(ctx context.Context, kind domain.RecordKind) ([]domain.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, owner, fields FROM records WHERE kind=?`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", kind, err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.Record
	for rows.Next() {
		rec := domain.Record{Kind: kind}
		var data []byte
		if err := rows.Scan(&rec.ID, &rec.OwnerID, &data); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		if rec.Fields, err = domain.DecodeFields(data); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", kind, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
