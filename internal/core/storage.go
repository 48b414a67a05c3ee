package core

import (
	"context"
	"fmt"

	"kittycore/internal/infra/persistence/memory"
	"kittycore/internal/infra/persistence/postgres"
	"kittycore/internal/infra/persistence/sqlite"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageOptions selects and parameterises a backend. An empty Driver means
// memory.
type StorageOptions struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
	MaxOwned    int
}

// OpenPersistentStore constructs the configured backend. Durable backends
// rehydrate their last persisted snapshot before returning and implement
// io.Closer.
func OpenPersistentStore(ctx context.Context, opts StorageOptions, engine *RulesEngine) (PersistentStore, error) {
	switch opts.Driver {
	case "", StorageMemory:
		return memory.NewStore(engine, opts.MaxOwned), nil
	case StorageSQLite:
		return sqlite.NewStore(opts.SQLitePath, engine, opts.MaxOwned)
	case StoragePostgres:
		if opts.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres storage requires a DSN")
		}
		return postgres.NewStore(ctx, opts.PostgresDSN, engine, opts.MaxOwned)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", opts.Driver)
	}
}
