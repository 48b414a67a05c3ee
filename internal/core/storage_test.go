package core

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"kittycore/internal/host"
	"kittycore/internal/infra/persistence/memory"
	"kittycore/internal/infra/persistence/sqlite"
	"kittycore/internal/ledger"
)

func TestOpenPersistentStoreMemoryDefault(t *testing.T) {
	store, err := OpenPersistentStore(context.Background(), StorageOptions{MaxOwned: 7}, NewRulesEngine())
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	mem, ok := store.(*memory.Store)
	if !ok {
		t.Fatalf("expected memory store, got %T", store)
	}
	if mem.MaxOwned() != 7 {
		t.Fatalf("expected capacity 7, got %d", mem.MaxOwned())
	}
}

func TestOpenPersistentStoreSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kitties.db")
	opts := StorageOptions{Driver: StorageSQLite, SQLitePath: path, MaxOwned: 3}

	store, err := OpenPersistentStore(ctx, opts, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if _, ok := store.(*sqlite.Store); !ok {
		t.Fatalf("expected sqlite store, got %T", store)
	}
	svc := NewService(store, host.NewChain([32]byte{}), ledger.New(0))
	k, _, err := svc.CreateKitty(ctx, "alice")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.(io.Closer).Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := OpenPersistentStore(ctx, opts, NewDefaultRulesEngine())
	if err != nil {
		t.Fatalf("reopen sqlite: %v", err)
	}
	defer func() { _ = reopened.(io.Closer).Close() }()
	if got, ok := reopened.GetKitty(k.ID); !ok || got.Owner != "alice" {
		t.Fatalf("expected kitty after reopen, got %+v ok=%v", got, ok)
	}
}

func TestOpenPersistentStoreErrors(t *testing.T) {
	ctx := context.Background()
	if _, err := OpenPersistentStore(ctx, StorageOptions{Driver: StoragePostgres}, nil); err == nil || !strings.Contains(err.Error(), "DSN") {
		t.Fatalf("expected DSN error, got %v", err)
	}
	if _, err := OpenPersistentStore(ctx, StorageOptions{Driver: "bogus"}, nil); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}
