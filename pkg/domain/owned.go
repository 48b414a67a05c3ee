package domain

import (
	"fmt"
	"slices"
)

// OwnedKitties is the ownership index entry for one account: an
// insertion-ordered set of identities with a fixed capacity. The zero value
// has no capacity; construct with NewOwnedKitties.
type OwnedKitties struct {
	limit int
	ids   []KittyID
}

// NewOwnedKitties builds an entry bounded by limit and seeded with ids in
// order. It fails with ErrStorageOverflow when ids exceed the limit.
func NewOwnedKitties(limit int, ids ...KittyID) (OwnedKitties, error) {
	if limit <= 0 {
		return OwnedKitties{}, fmt.Errorf("owned kitties: limit must be positive, got %d", limit)
	}
	set := OwnedKitties{limit: limit, ids: make([]KittyID, 0, min(len(ids), limit))}
	for _, id := range ids {
		if err := set.Append(id); err != nil {
			return OwnedKitties{}, err
		}
	}
	return set, nil
}

// Len returns the number of owned kitties.
func (o OwnedKitties) Len() int { return len(o.ids) }

// Cap returns the capacity bound.
func (o OwnedKitties) Cap() int { return o.limit }

// Full reports whether another Append would overflow.
func (o OwnedKitties) Full() bool { return len(o.ids) >= o.limit }

// Contains reports whether id is present.
func (o OwnedKitties) Contains(id KittyID) bool {
	return slices.Contains(o.ids, id)
}

// Append adds id at the end of the sequence.
func (o *OwnedKitties) Append(id KittyID) error {
	if o.Contains(id) {
		return fmt.Errorf("%w: %s already indexed", ErrDuplicateKitty, id)
	}
	if o.Full() {
		return fmt.Errorf("%w: limit %d", ErrStorageOverflow, o.limit)
	}
	o.ids = append(o.ids, id)
	return nil
}

// Remove deletes id, keeping the remaining order. It reports whether id was
// present.
func (o *OwnedKitties) Remove(id KittyID) bool {
	idx := slices.Index(o.ids, id)
	if idx < 0 {
		return false
	}
	o.ids = slices.Delete(o.ids, idx, idx+1)
	return true
}

// IDs returns a copy of the identities in insertion order.
func (o OwnedKitties) IDs() []KittyID {
	return slices.Clone(o.ids)
}

// Clone returns an entry that shares no backing storage with o.
func (o OwnedKitties) Clone() OwnedKitties {
	return OwnedKitties{limit: o.limit, ids: slices.Clone(o.ids)}
}
