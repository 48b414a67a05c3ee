// Package domain defines the collectible registry value types, the events and
// errors produced by marketplace transitions, and the rule evaluation and
// persistence primitives used by kittycore.
package domain

import (
	"encoding/hex"
	"fmt"
)

// DefaultMaxOwned is the capacity bound applied when a store is constructed
// without an explicit per-account limit.
const DefaultMaxOwned = 100

// EntityType identifies the type of record touched by a Change.
type EntityType string

// Supported entity type identifiers used in Change records and persistence buckets.
const (
	// EntityKitty identifies a registry record.
	EntityKitty EntityType = "kitty"
	// EntityOwnership identifies an ownership index entry.
	EntityOwnership EntityType = "ownership"
)

// Severity captures rule outcomes.
type Severity string

// Rule evaluation severities determine commit behavior and logging.
const (
	// SeverityBlock blocks transaction commit.
	SeverityBlock Severity = "block"
	// SeverityWarn logs a warning but allows commit.
	SeverityWarn Severity = "warn"
	SeverityLog  Severity = "log"
)

// KittyID is the 32-byte identity of a kitty. It is unique and never changes
// once assigned.
type KittyID [32]byte

// String renders the identity as lowercase hex.
func (id KittyID) String() string { return hex.EncodeToString(id[:]) }

// IsZero reports whether the identity is unset.
func (id KittyID) IsZero() bool { return id == KittyID{} }

// MarshalText encodes the identity as hex so it can key JSON objects.
func (id KittyID) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText decodes a hex identity.
func (id *KittyID) UnmarshalText(text []byte) error {
	return decodeHash32("kitty id", text, (*[32]byte)(id))
}

// ParseKittyID decodes a hex encoded identity.
func ParseKittyID(s string) (KittyID, error) {
	var id KittyID
	if err := id.UnmarshalText([]byte(s)); err != nil {
		return KittyID{}, err
	}
	return id, nil
}

// DNA is the 32-byte genome of a kitty.
type DNA [32]byte

func (d DNA) String() string { return hex.EncodeToString(d[:]) }

// MarshalText encodes the DNA as hex.
func (d DNA) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText decodes hex DNA.
func (d *DNA) UnmarshalText(text []byte) error {
	return decodeHash32("dna", text, (*[32]byte)(d))
}

func decodeHash32(label string, text []byte, out *[32]byte) error {
	if len(text) != hex.EncodedLen(len(out)) {
		return fmt.Errorf("%s: expected %d hex characters, got %d", label, hex.EncodedLen(len(out)), len(text))
	}
	if _, err := hex.Decode(out[:], text); err != nil {
		return fmt.Errorf("%s: %w", label, err)
	}
	return nil
}

// AccountID references an account resolved by the dispatch layer.
type AccountID string

// Balance is an amount held in the host balance ledger.
type Balance uint64

// NewPrice returns a listing price for use in Kitty.Price and SetPrice.
func NewPrice(amount Balance) *Balance {
	return &amount
}

// Kitty is the registry record for a single collectible.
type Kitty struct {
	ID    KittyID   `json:"id"`
	DNA   DNA       `json:"dna"`
	Owner AccountID `json:"owner"`
	// Price is nil when the kitty is not for sale; otherwise it is the
	// minimum payment accepted by BuyKitty.
	Price *Balance `json:"price,omitempty"`
}

// ForSale reports whether the kitty carries a listing price.
func (k Kitty) ForSale() bool { return k.Price != nil }

// Clone returns a deep copy that shares no pointers with k.
func (k Kitty) Clone() Kitty {
	cp := k
	if k.Price != nil {
		cp.Price = NewPrice(*k.Price)
	}
	return cp
}

// Change describes a mutation applied to an entity during a transaction.
type Change struct {
	Entity EntityType
	Action Action
	Before any
	After  any
}

// Action indicates the type of modification performed.
type Action string

// Change actions enumerate the registry mutations captured for rule evaluation.
const (
	// ActionCreate indicates a kitty was minted.
	ActionCreate Action = "create"
	// ActionUpdate indicates a kitty's listing changed.
	ActionUpdate Action = "update"
	// ActionTransfer indicates a kitty moved between accounts.
	ActionTransfer Action = "transfer"
)

// Violation reports a failed rule evaluation.
type Violation struct {
	Rule     string
	Severity Severity
	Message  string
	Entity   EntityType
	EntityID string
}

// Result aggregates violations from the rules engine.
type Result struct {
	Violations []Violation
}

// Merge appends violations from another result.
func (r *Result) Merge(other Result) {
	if len(other.Violations) == 0 {
		return
	}
	r.Violations = append(r.Violations, other.Violations...)
}

// HasBlocking returns true if the result contains blocking violations.
func (r Result) HasBlocking() bool {
	for _, v := range r.Violations {
		if v.Severity == SeverityBlock {
			return true
		}
	}
	return false
}

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}
