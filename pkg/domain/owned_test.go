package domain

import (
	"errors"
	"testing"
)

func kittyID(b byte) KittyID {
	var id KittyID
	id[0] = b
	return id
}

func TestOwnedKittiesAppendRespectsLimit(t *testing.T) {
	set, err := NewOwnedKitties(2)
	if err != nil {
		t.Fatalf("new owned kitties: %v", err)
	}
	if err := set.Append(kittyID(1)); err != nil {
		t.Fatalf("append first: %v", err)
	}
	if err := set.Append(kittyID(2)); err != nil {
		t.Fatalf("append second: %v", err)
	}
	if !set.Full() {
		t.Fatalf("expected set to be full at %d/%d", set.Len(), set.Cap())
	}
	err = set.Append(kittyID(3))
	if !errors.Is(err, ErrStorageOverflow) {
		t.Fatalf("expected ErrStorageOverflow, got %v", err)
	}
	if set.Len() != 2 || set.Contains(kittyID(3)) {
		t.Fatalf("overflowing append must not modify the set: %v", set.IDs())
	}
}

func TestOwnedKittiesRejectsDuplicate(t *testing.T) {
	set, _ := NewOwnedKitties(3, kittyID(1))
	if err := set.Append(kittyID(1)); !errors.Is(err, ErrDuplicateKitty) {
		t.Fatalf("expected ErrDuplicateKitty, got %v", err)
	}
}

func TestOwnedKittiesRemoveKeepsOrder(t *testing.T) {
	set, err := NewOwnedKitties(5, kittyID(1), kittyID(2), kittyID(3), kittyID(4))
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if !set.Remove(kittyID(2)) {
		t.Fatalf("expected removal of present id")
	}
	if set.Remove(kittyID(9)) {
		t.Fatalf("expected missing id removal to report false")
	}
	got := set.IDs()
	want := []KittyID{kittyID(1), kittyID(3), kittyID(4)}
	if len(got) != len(want) {
		t.Fatalf("expected %d ids, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestOwnedKittiesCloneIsIndependent(t *testing.T) {
	set, _ := NewOwnedKitties(3, kittyID(1))
	cp := set.Clone()
	if err := cp.Append(kittyID(2)); err != nil {
		t.Fatalf("append clone: %v", err)
	}
	if set.Len() != 1 {
		t.Fatalf("mutating a clone leaked into the original: %v", set.IDs())
	}
	ids := set.IDs()
	ids[0] = kittyID(7)
	if !set.Contains(kittyID(1)) {
		t.Fatalf("IDs must return a copy")
	}
}

func TestNewOwnedKittiesValidation(t *testing.T) {
	if _, err := NewOwnedKitties(0); err == nil {
		t.Fatalf("expected error for zero limit")
	}
	if _, err := NewOwnedKitties(1, kittyID(1), kittyID(2)); !errors.Is(err, ErrStorageOverflow) {
		t.Fatalf("expected overflow when seeding past the limit, got %v", err)
	}
}
