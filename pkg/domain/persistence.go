package domain

import "context"

// Transaction exposes the registry and ownership index operations that a
// persistence implementation must support within an atomic scope. Nothing
// written through a Transaction is visible outside it until the enclosing
// RunInTransaction returns without error.
type Transaction interface {
	Snapshot() TransactionView
	FindKitty(id KittyID) (Kitty, bool)
	OwnedCount(owner AccountID) int
	MaxOwned() int
	// NextNonce returns the current global counter value and increments it.
	NextNonce() (uint32, error)
	// CreateKitty inserts a registry record and appends it to the owner's
	// index entry.
	CreateKitty(Kitty) (Kitty, error)
	// UpdateKitty mutates listing data. Identity, DNA and owner are restored
	// after the mutator runs; use TransferKitty to change ownership.
	UpdateKitty(id KittyID, mutator func(*Kitty) error) (Kitty, error)
	// TransferKitty moves the kitty to a new owner, updating both index
	// entries and clearing the listing price.
	TransferKitty(id KittyID, to AccountID) (Kitty, error)
	// OnCommit registers a hook that runs after rules pass and before the
	// transaction state is published. A hook error aborts the commit.
	OnCommit(hook func(context.Context) error)
}

// TransactionView provides read-only access to snapshot data for rules and
// queries.
type TransactionView interface {
	ListKitties() []Kitty
	FindKitty(id KittyID) (Kitty, bool)
	ListOwners() []AccountID
	OwnedBy(owner AccountID) []KittyID
	KittyCount() uint32
	MaxOwned() int
}

// PersistentStore is a minimal abstraction over durable backends. It mirrors
// the subset of store capabilities used directly by higher layers.
type PersistentStore interface {
	RunInTransaction(ctx context.Context, fn func(Transaction) error) (Result, error)
	View(ctx context.Context, fn func(TransactionView) error) error
	GetKitty(id KittyID) (Kitty, bool)
	OwnedBy(owner AccountID) []KittyID
	ListKitties() []Kitty
	KittyCount() uint32
}
