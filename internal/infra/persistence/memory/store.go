// Package memory provides the in-memory transactional registry used directly
// in tests and ephemeral environments, and as the working set behind the
// durable sqlite and postgres stores.
package memory

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"
	"sync"

	"kittycore/pkg/domain"
)

// Compile-time contract assertions ensuring memory.Store adheres to the domain persistence interfaces.
var _ domain.PersistentStore = (*Store)(nil)

type (
	// Kitty aliases domain.Kitty for in-memory persistence operations.
	Kitty = domain.Kitty
	// KittyID aliases domain.KittyID.
	KittyID = domain.KittyID
	// AccountID aliases domain.AccountID.
	AccountID = domain.AccountID
	// Change aliases domain.Change captured in transactions.
	Change = domain.Change
	// Result aliases domain.Result summarizing rule evaluation.
	Result = domain.Result
	// RulesEngine aliases domain.RulesEngine used to evaluate rules.
	RulesEngine = domain.RulesEngine
	// Transaction aliases domain.Transaction representing a mutable unit of work.
	Transaction = domain.Transaction
	// TransactionView aliases domain.TransactionView providing read-only state.
	TransactionView = domain.TransactionView
)

type memoryState struct {
	kitties map[KittyID]Kitty
	owned   map[AccountID]domain.OwnedKitties
	count   uint32
}

// Snapshot captures a point-in-time clone of the store state.
type Snapshot struct {
	Kitties map[KittyID]Kitty       `json:"kitties"`
	Owned   map[AccountID][]KittyID `json:"owned"`
	Count   uint32                  `json:"count"`
}

func newMemoryState() memoryState {
	return memoryState{
		kitties: make(map[KittyID]Kitty),
		owned:   make(map[AccountID]domain.OwnedKitties),
	}
}

func (s memoryState) clone() memoryState {
	cloned := memoryState{
		kitties: make(map[KittyID]Kitty, len(s.kitties)),
		owned:   make(map[AccountID]domain.OwnedKitties, len(s.owned)),
		count:   s.count,
	}
	for k, v := range s.kitties {
		cloned.kitties[k] = v.Clone()
	}
	for k, v := range s.owned {
		cloned.owned[k] = v.Clone()
	}
	return cloned
}

func snapshotFromMemoryState(state memoryState) Snapshot {
	s := Snapshot{
		Kitties: make(map[KittyID]Kitty, len(state.kitties)),
		Owned:   make(map[AccountID][]KittyID, len(state.owned)),
		Count:   state.count,
	}
	for k, v := range state.kitties {
		s.Kitties[k] = v.Clone()
	}
	for k, v := range state.owned {
		if v.Len() == 0 {
			continue
		}
		s.Owned[k] = v.IDs()
	}
	return s
}

// memoryStateFromSnapshot rebuilds state from a snapshot. The ownership index
// is trusted for ordering only: entries pointing at missing kitties or at a
// different owner are dropped, and kitties absent from their owner's entry are
// appended in identity order so the registry stays the source of truth.
func memoryStateFromSnapshot(s Snapshot, limit int) (memoryState, error) {
	state := newMemoryState()
	state.count = s.Count
	for id, k := range s.Kitties {
		if k.ID != id {
			return memoryState{}, fmt.Errorf("snapshot kitty keyed %s carries id %s", id, k.ID)
		}
		if k.Owner == "" {
			return memoryState{}, fmt.Errorf("snapshot kitty %s has no owner", id)
		}
		state.kitties[id] = k.Clone()
	}
	if uint64(len(state.kitties)) > uint64(state.count) {
		return memoryState{}, fmt.Errorf("snapshot counter %d below kitty total %d", state.count, len(state.kitties))
	}

	ordered := make(map[AccountID][]KittyID, len(s.Owned))
	seen := make(map[KittyID]struct{}, len(state.kitties))
	for owner, ids := range s.Owned {
		for _, id := range ids {
			k, ok := state.kitties[id]
			if !ok || k.Owner != owner {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ordered[owner] = append(ordered[owner], id)
		}
	}
	var missing []Kitty
	for id, k := range state.kitties {
		if _, ok := seen[id]; !ok {
			missing = append(missing, k)
		}
	}
	sort.Slice(missing, func(i, j int) bool { return missing[i].ID.String() < missing[j].ID.String() })
	for _, k := range missing {
		ordered[k.Owner] = append(ordered[k.Owner], k.ID)
	}

	for owner, ids := range ordered {
		set, err := domain.NewOwnedKitties(limit, ids...)
		if err != nil {
			return memoryState{}, fmt.Errorf("snapshot owner %s: %w", owner, err)
		}
		state.owned[owner] = set
	}
	return state, nil
}

// CommitWriter durably records a staged state before it replaces the
// committed one. A returned error aborts the transaction.
type CommitWriter func(ctx context.Context, staged Snapshot) error

// Store provides an in-memory transactional store for the registry and the
// ownership index.
type Store struct {
	mu       sync.RWMutex
	state    memoryState
	engine   *RulesEngine
	maxOwned int
	writer   CommitWriter
}

// NewStore constructs an in-memory store backed by the provided rules engine.
// A non-positive maxOwned selects domain.DefaultMaxOwned.
func NewStore(engine *RulesEngine, maxOwned int) *Store {
	if engine == nil {
		engine = domain.NewRulesEngine()
	}
	if maxOwned <= 0 {
		maxOwned = domain.DefaultMaxOwned
	}
	return &Store{
		state:    newMemoryState(),
		engine:   engine,
		maxOwned: maxOwned,
	}
}

// ExportState clones the current store state for external persistence.
func (s *Store) ExportState() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return snapshotFromMemoryState(s.state)
}

// ImportState replaces the store state with the provided snapshot. The
// current state is kept when the snapshot cannot satisfy the store's
// capacity bound.
func (s *Store) ImportState(snapshot Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := memoryStateFromSnapshot(snapshot, s.maxOwned)
	if err != nil {
		return fmt.Errorf("import state: %w", err)
	}
	s.state = state
	return nil
}

// WriteThrough registers w to run on every commit and restore, after rule
// evaluation and before any commit hook. Passing nil disables it.
func (s *Store) WriteThrough(w CommitWriter) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writer = w
}

// Restore replaces the store state with snapshot. Unlike ImportState it
// passes the new state through the registered CommitWriter first, so a
// failed write keeps the current state.
func (s *Store) Restore(ctx context.Context, snapshot Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, err := memoryStateFromSnapshot(snapshot, s.maxOwned)
	if err != nil {
		return fmt.Errorf("restore state: %w", err)
	}
	if s.writer != nil {
		if err := s.writer(ctx, snapshotFromMemoryState(state)); err != nil {
			return err
		}
	}
	s.state = state
	return nil
}

// RulesEngine exposes the currently configured engine.
func (s *Store) RulesEngine() *RulesEngine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

// MaxOwned returns the per-account capacity bound.
func (s *Store) MaxOwned() int { return s.maxOwned }

// transaction is a mutation set applied to a private clone of the store state.
type transaction struct {
	store   *Store
	state   memoryState
	changes []Change
	hooks   []func(context.Context) error
}

type transactionView struct {
	state    *memoryState
	maxOwned int
}

func newTransactionView(state *memoryState, maxOwned int) TransactionView {
	return transactionView{state: state, maxOwned: maxOwned}
}

// ListKitties returns all kitties ordered by identity.
func (v transactionView) ListKitties() []Kitty {
	out := make([]Kitty, 0, len(v.state.kitties))
	for _, k := range v.state.kitties {
		out = append(out, k.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// FindKitty retrieves a kitty by identity from the snapshot.
func (v transactionView) FindKitty(id KittyID) (Kitty, bool) {
	k, ok := v.state.kitties[id]
	if !ok {
		return Kitty{}, false
	}
	return k.Clone(), true
}

// ListOwners returns every account with a non-empty index entry, sorted.
func (v transactionView) ListOwners() []AccountID {
	out := make([]AccountID, 0, len(v.state.owned))
	for owner, set := range v.state.owned {
		if set.Len() > 0 {
			out = append(out, owner)
		}
	}
	slices.SortFunc(out, func(a, b AccountID) int { return strings.Compare(string(a), string(b)) })
	return out
}

// OwnedBy returns the identities owned by owner in insertion order.
func (v transactionView) OwnedBy(owner AccountID) []KittyID {
	return v.state.owned[owner].IDs()
}

func (v transactionView) KittyCount() uint32 { return v.state.count }

func (v transactionView) MaxOwned() int { return v.maxOwned }

// RunInTransaction executes fn within a transactional copy of the store state.
// The copy replaces the store state only when fn, rule evaluation, the
// CommitWriter and every commit hook succeed. When a hook fails after the
// writer accepted the copy, the writer is handed the unchanged state again.
func (s *Store) RunInTransaction(ctx context.Context, fn func(tx Transaction) error) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &transaction{
		store: s,
		state: s.state.clone(),
	}

	if err := fn(tx); err != nil {
		return Result{}, err
	}

	var result Result
	if s.engine != nil {
		view := newTransactionView(&tx.state, s.maxOwned)
		res, err := s.engine.Evaluate(ctx, view, tx.changes)
		if err != nil {
			return Result{}, err
		}
		result = res
		if res.HasBlocking() {
			return res, domain.RuleViolationError{Result: res}
		}
	}

	if s.writer != nil {
		if err := s.writer(ctx, snapshotFromMemoryState(tx.state)); err != nil {
			return result, err
		}
	}

	for _, hook := range tx.hooks {
		if err := hook(ctx); err != nil {
			if s.writer != nil {
				if wErr := s.writer(ctx, snapshotFromMemoryState(s.state)); wErr != nil {
					return result, errors.Join(err, fmt.Errorf("revert staged state: %w", wErr))
				}
			}
			return result, err
		}
	}

	s.state = tx.state
	return result, nil
}

// View executes fn against a read-only snapshot of the store state.
func (s *Store) View(_ context.Context, fn func(TransactionView) error) error {
	s.mu.RLock()
	snapshot := s.state.clone()
	s.mu.RUnlock()

	return fn(newTransactionView(&snapshot, s.maxOwned))
}

// GetKitty returns a committed kitty by identity.
func (s *Store) GetKitty(id KittyID) (Kitty, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state, s.maxOwned).FindKitty(id)
}

// OwnedBy returns the committed ownership index entry for owner.
func (s *Store) OwnedBy(owner AccountID) []KittyID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.owned[owner].IDs()
}

// ListKitties returns every committed kitty ordered by identity.
func (s *Store) ListKitties() []Kitty {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return newTransactionView(&s.state, s.maxOwned).ListKitties()
}

// KittyCount returns the committed global counter.
func (s *Store) KittyCount() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.count
}

func (tx *transaction) recordChange(change Change) {
	tx.changes = append(tx.changes, change)
}

// Snapshot returns a read-only view over the transactional state.
func (tx *transaction) Snapshot() TransactionView {
	return newTransactionView(&tx.state, tx.store.maxOwned)
}

func (tx *transaction) FindKitty(id KittyID) (Kitty, bool) {
	k, ok := tx.state.kitties[id]
	if !ok {
		return Kitty{}, false
	}
	return k.Clone(), true
}

func (tx *transaction) OwnedCount(owner AccountID) int {
	return tx.state.owned[owner].Len()
}

func (tx *transaction) MaxOwned() int { return tx.store.maxOwned }

// NextNonce reserves the current counter value for the caller.
func (tx *transaction) NextNonce() (uint32, error) {
	if tx.state.count == math.MaxUint32 {
		return 0, domain.ErrTooManyKitties
	}
	nonce := tx.state.count
	tx.state.count++
	return nonce, nil
}

// OnCommit registers a hook to run immediately before the state swap.
func (tx *transaction) OnCommit(hook func(context.Context) error) {
	tx.hooks = append(tx.hooks, hook)
}

// ownedFor returns a private copy of owner's index entry, creating an empty
// one bounded by the store limit when the account owns nothing yet.
func (tx *transaction) ownedFor(owner AccountID) domain.OwnedKitties {
	if set, ok := tx.state.owned[owner]; ok {
		return set.Clone()
	}
	set, err := domain.NewOwnedKitties(tx.store.maxOwned)
	if err != nil {
		panic(fmt.Errorf("memory store: %w", err))
	}
	return set
}

func (tx *transaction) putOwned(owner AccountID, set domain.OwnedKitties) {
	if set.Len() == 0 {
		delete(tx.state.owned, owner)
		return
	}
	tx.state.owned[owner] = set
}

// CreateKitty stores a new kitty and indexes it under its owner.
func (tx *transaction) CreateKitty(k Kitty) (Kitty, error) {
	if k.ID.IsZero() {
		return Kitty{}, fmt.Errorf("kitty id required")
	}
	if k.Owner == "" {
		return Kitty{}, fmt.Errorf("kitty %s: owner required", k.ID)
	}
	if _, exists := tx.state.kitties[k.ID]; exists {
		return Kitty{}, fmt.Errorf("%w: %s", domain.ErrDuplicateKitty, k.ID)
	}
	owned := tx.ownedFor(k.Owner)
	if err := owned.Append(k.ID); err != nil {
		return Kitty{}, fmt.Errorf("index kitty %s for %s: %w", k.ID, k.Owner, err)
	}
	tx.state.kitties[k.ID] = k.Clone()
	tx.putOwned(k.Owner, owned)
	tx.recordChange(Change{Entity: domain.EntityKitty, Action: domain.ActionCreate, After: k.Clone()})
	return k.Clone(), nil
}

// UpdateKitty mutates listing data of an existing kitty.
func (tx *transaction) UpdateKitty(id KittyID, mutator func(*Kitty) error) (Kitty, error) {
	current, ok := tx.state.kitties[id]
	if !ok {
		return Kitty{}, fmt.Errorf("%w: %s", domain.ErrNoKitty, id)
	}
	before := current.Clone()
	updated := current.Clone()
	if err := mutator(&updated); err != nil {
		return Kitty{}, err
	}
	updated.ID = before.ID
	updated.DNA = before.DNA
	updated.Owner = before.Owner
	tx.state.kitties[id] = updated.Clone()
	tx.recordChange(Change{Entity: domain.EntityKitty, Action: domain.ActionUpdate, Before: before, After: updated.Clone()})
	return updated, nil
}

// TransferKitty moves a kitty between ownership index entries and clears its
// listing price.
func (tx *transaction) TransferKitty(id KittyID, to AccountID) (Kitty, error) {
	current, ok := tx.state.kitties[id]
	if !ok {
		return Kitty{}, fmt.Errorf("%w: %s", domain.ErrNoKitty, id)
	}
	if to == "" {
		return Kitty{}, fmt.Errorf("kitty %s: recipient required", id)
	}
	from := current.Owner
	if from == to {
		return Kitty{}, fmt.Errorf("%w: %s already owns %s", domain.ErrTransferToSelf, to, id)
	}
	fromOwned := tx.ownedFor(from)
	if !fromOwned.Remove(id) {
		return Kitty{}, fmt.Errorf("%w: %s missing from ownership index of %s", domain.ErrNoKitty, id, from)
	}
	toOwned := tx.ownedFor(to)
	if err := toOwned.Append(id); err != nil {
		return Kitty{}, fmt.Errorf("index kitty %s for %s: %w", id, to, err)
	}

	before := current.Clone()
	moved := current.Clone()
	moved.Owner = to
	moved.Price = nil

	tx.state.kitties[id] = moved.Clone()
	tx.putOwned(from, fromOwned)
	tx.putOwned(to, toOwned)
	tx.recordChange(Change{Entity: domain.EntityKitty, Action: domain.ActionTransfer, Before: before, After: moved.Clone()})
	return moved, nil
}
