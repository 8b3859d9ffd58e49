package core

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"simcore/internal/infra/persistence"
	"simcore/internal/infra/persistence/badger"
	"simcore/internal/infra/persistence/memory"
	"simcore/internal/infra/persistence/postgres"
	"simcore/internal/infra/persistence/sqlite"
	"simcore/pkg/domain"
)

// StorageDriver identifies a record store backend.
type StorageDriver string

const (
	StorageNone     StorageDriver = "none"     // discard every notification
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
	StorageBadger   StorageDriver = "badger"   // embedded badger directory
)

const defaultAsyncBuffer = 256

// PersistenceConfig selects and configures the record store behind the
// persistence hook.
type PersistenceConfig struct {
	Driver      StorageDriver `yaml:"driver"`
	SQLitePath  string        `yaml:"sqlite_path"`
	PostgresDSN string        `yaml:"postgres_dsn"`
	BadgerPath  string        `yaml:"badger_path"`
	Async       bool          `yaml:"async"`
	Buffer      int           `yaml:"buffer"`
}

// PersistenceConfigFromEnv reads the configuration from the environment.
//
//	SIMCORE_PERSIST_DRIVER: none|memory|sqlite|postgres|badger (default none)
//	SIMCORE_SQLITE_PATH: sqlite file (default ./simcore.db)
//	SIMCORE_POSTGRES_DSN: postgres DSN when driver=postgres
//	SIMCORE_BADGER_PATH: badger directory; empty keeps badger in memory
//	SIMCORE_PERSIST_ASYNC: write from a background worker when true
//	SIMCORE_PERSIST_BUFFER: async queue length (default 256)
func PersistenceConfigFromEnv() (PersistenceConfig, error) {
	cfg := PersistenceConfig{
		Driver:      StorageDriver(os.Getenv("SIMCORE_PERSIST_DRIVER")),
		SQLitePath:  os.Getenv("SIMCORE_SQLITE_PATH"),
		PostgresDSN: os.Getenv("SIMCORE_POSTGRES_DSN"),
		BadgerPath:  os.Getenv("SIMCORE_BADGER_PATH"),
	}
	if raw := os.Getenv("SIMCORE_PERSIST_ASYNC"); raw != "" {
		async, err := strconv.ParseBool(raw)
		if err != nil {
			return cfg, fmt.Errorf("SIMCORE_PERSIST_ASYNC: %w", err)
		}
		cfg.Async = async
	}
	if raw := os.Getenv("SIMCORE_PERSIST_BUFFER"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return cfg, fmt.Errorf("SIMCORE_PERSIST_BUFFER: %w", err)
		}
		cfg.Buffer = n
	}
	return cfg, nil
}

// Persistence bundles an opened record store with the hook feeding it.
type Persistence struct {
	Hook  domain.PersistHook
	Store domain.RecordStore
	async *persistence.AsyncHook
}

// OpenPersistence opens the configured store. The zero config discards
// everything.
func OpenPersistence(ctx context.Context, cfg PersistenceConfig, logger Logger) (*Persistence, error) {
	if logger == nil {
		logger = noopLogger{}
	}
	driver := cfg.Driver
	if driver == "" {
		driver = StorageNone
	}
	var store domain.RecordStore
	var err error
	switch driver {
	case StorageNone:
		return &Persistence{Hook: domain.NopPersistHook{}}, nil
	case StorageMemory:
		store = memory.NewStore()
	case StorageSQLite:
		store, err = sqlite.NewStore(cfg.SQLitePath)
	case StoragePostgres:
		store, err = postgres.NewStore(ctx, cfg.PostgresDSN)
	case StorageBadger:
		store, err = badger.Open(badger.Config{Path: cfg.BadgerPath, InMemory: cfg.BadgerPath == ""})
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", driver, err)
	}
	p := &Persistence{Store: store}
	if cfg.Async {
		buffer := cfg.Buffer
		if buffer <= 0 {
			buffer = defaultAsyncBuffer
		}
		p.async = persistence.NewAsyncHook(store, logger, buffer)
		p.Hook = p.async
	} else {
		p.Hook = persistence.NewHook(store, logger)
	}
	logger.Info("persistence opened", "driver", string(driver), "async", cfg.Async)
	return p, nil
}

// Flush waits for queued writes when the hook is asynchronous.
func (p *Persistence) Flush(ctx context.Context) error {
	if p.async == nil {
		return nil
	}
	return p.async.Flush(ctx)
}

// Close drains the hook and closes the store.
func (p *Persistence) Close() error {
	if p.async != nil {
		_ = p.async.Close()
	}
	if p.Store == nil {
		return nil
	}
	return p.Store.Close()
}
