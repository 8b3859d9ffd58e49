// Package postgres persists records to a Postgres table with JSONB fields.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"simcore/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

var _ domain.RecordStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/simcore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store is a Postgres-backed record store.
type Store struct {
	db *sql.DB
}

// NewStore opens a store using dsn (defaultDSN when empty), pings the server
// and ensures the records table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureRecordsTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

func ensureRecordsTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS records (
		kind TEXT NOT NULL,
		id TEXT NOT NULL,
		owner TEXT NOT NULL DEFAULT '',
		fields JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (kind, id)
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure records table: %w", err)
	}
	return nil
}

// Put implements domain.RecordStore.
func (s *Store) Put(ctx context.Context, rec domain.Record) error {
	data, err := domain.EncodeFields(rec.Fields)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO records(kind,id,owner,fields) VALUES($1,$2,$3,$4) ON CONFLICT(kind,id) DO UPDATE SET owner=EXCLUDED.owner, fields=EXCLUDED.fields, updated_at=now()`,
		string(rec.Kind), rec.ID, rec.OwnerID, data); err != nil {
		return fmt.Errorf("upsert %s %s: %w", rec.Kind, rec.ID, err)
	}
	return nil
}

// Remove implements domain.RecordStore.
func (s *Store) Remove(ctx context.Context, kind domain.RecordKind, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE kind=$1 AND id=$2`, string(kind), id); err != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, err)
	}
	return nil
}

// Get implements domain.RecordStore.
func (s *Store) Get(ctx context.Context, kind domain.RecordKind, id string) (domain.Record, bool, error) {
	var owner string
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT owner, fields FROM records WHERE kind=$1 AND id=$2`, string(kind), id).Scan(&owner, &data)
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
	rows, err := s.db.QueryContext(ctx, `SELECT id, owner, fields FROM records WHERE kind=$1`, string(kind))
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

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}
