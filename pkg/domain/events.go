package domain

import "context"

// EventKind names a committed marketplace transition.
type EventKind string

// Event kinds emitted once per successful transition.
const (
	EventCreated     EventKind = "created"
	EventTransferred EventKind = "transferred"
	EventPriceSet    EventKind = "price_set"
	EventSold        EventKind = "sold"
)

// Event is the payload handed to an EventSink after a transition commits.
//
// Field usage by kind:
//
//	created:     KittyID, Owner
//	transferred: KittyID, From, To
//	price_set:   KittyID, Owner, Price (nil when delisted)
//	sold:        KittyID, From (seller), To (buyer), Price
type Event struct {
	Kind    EventKind `json:"kind"`
	KittyID KittyID   `json:"kitty_id"`
	Owner   AccountID `json:"owner,omitempty"`
	From    AccountID `json:"from,omitempty"`
	To      AccountID `json:"to,omitempty"`
	Price   *Balance  `json:"price,omitempty"`
	Block   uint64    `json:"block"`
	TxIndex uint32    `json:"tx_index"`
}

// EventSink records committed transitions for external observers. Emit is
// fire-and-forget: it must not fail the transition that produced the event.
type EventSink interface {
	Emit(ctx context.Context, event Event)
}

// BlockContext supplies the deterministic entropy of the executing block.
type BlockContext interface {
	ParentHash() [32]byte
	BlockNumber() uint64
	ExtrinsicIndex() uint32
}

// BalanceLedger is the host's fungible balance ledger. BalanceOf reports the
// spendable amount; Transfer returns ErrInsufficientBalance (possibly
// wrapped) when the sender cannot cover amount, and
// ErrBelowExistentialDeposit when the recipient would be left with dust.
type BalanceLedger interface {
	BalanceOf(account AccountID) Balance
	Transfer(from, to AccountID, amount Balance) error
}
