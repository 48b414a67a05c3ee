package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kittycore/internal/identity"
	"kittycore/internal/infra/persistence/memory"
	"kittycore/pkg/domain"
)

// Operation names reported to loggers, metrics and tracers.
const (
	OpCreateKitty = "create_kitty"
	OpTransfer    = "transfer"
	OpSetPrice    = "set_price"
	OpBuyKitty    = "buy_kitty"
)

var errCallerRequired = errors.New("caller account required")

// Service exposes the marketplace transitions over a transactional registry.
// Each transition commits all of its mutations or none of them, and emits
// exactly one event after a successful commit.
type Service struct {
	store   PersistentStore
	block   BlockContext
	ledger  BalanceLedger
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	sink    EventSink
	now     func() time.Time
}

// ServiceOption configures optional collaborators.
type ServiceOption func(*Service)

// WithLogger sets the structured logger. A nil logger keeps the no-op default.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder sets the per-operation metrics recorder.
func WithMetricsRecorder(recorder MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if recorder != nil {
			s.metrics = recorder
		}
	}
}

// WithTracer sets the span tracer.
func WithTracer(tracer Tracer) ServiceOption {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithEventSink sets the sink that receives committed transition events.
func WithEventSink(sink EventSink) ServiceOption {
	return func(s *Service) {
		if sink != nil {
			s.sink = sink
		}
	}
}

// WithClock overrides the clock used for operation durations.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a service over store. block supplies the entropy of
// the executing call and ledger settles purchases.
func NewService(store PersistentStore, block BlockContext, ledger BalanceLedger, opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		block:   block,
		ledger:  ledger,
		logger:  noopLogger{},
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
		sink:    noopEventSink{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewInMemoryService creates a service over a fresh in-memory store bounded by
// domain.DefaultMaxOwned.
func NewInMemoryService(engine *RulesEngine, block BlockContext, ledger BalanceLedger, opts ...ServiceOption) *Service {
	return NewService(memory.NewStore(engine, domain.DefaultMaxOwned), block, ledger, opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() PersistentStore {
	return s.store
}

// CreateKitty mints a kitty owned by caller with identity and DNA derived
// from the current block and the global counter.
func (s *Service) CreateKitty(ctx context.Context, caller AccountID) (Kitty, Result, error) {
	var created Kitty
	res, err := s.run(ctx, OpCreateKitty, func(tx Transaction) (Event, error) {
		if caller == "" {
			return Event{}, errCallerRequired
		}
		if tx.OwnedCount(caller) >= tx.MaxOwned() {
			return Event{}, fmt.Errorf("create kitty for %s: %w", caller, domain.ErrStorageOverflow)
		}
		nonce, err := tx.NextNonce()
		if err != nil {
			return Event{}, fmt.Errorf("create kitty for %s: %w", caller, err)
		}
		id, dna := identity.Generate(s.block, nonce)
		created, err = tx.CreateKitty(Kitty{ID: id, DNA: dna, Owner: caller})
		if err != nil {
			return Event{}, fmt.Errorf("create kitty for %s: %w", caller, err)
		}
		return Event{Kind: EventCreated, KittyID: id, Owner: caller}, nil
	})
	return created, res, err
}

// Transfer moves kitty id from one account to another and withdraws any
// sale listing.
func (s *Service) Transfer(ctx context.Context, from, to AccountID, id KittyID) (Kitty, Result, error) {
	var moved Kitty
	res, err := s.run(ctx, OpTransfer, func(tx Transaction) (Event, error) {
		current, ok := tx.FindKitty(id)
		if !ok {
			return Event{}, fmt.Errorf("transfer %s: %w", id, domain.ErrNoKitty)
		}
		if current.Owner != from {
			return Event{}, fmt.Errorf("transfer %s from %s: %w", id, from, domain.ErrNotOwner)
		}
		if to == from {
			return Event{}, fmt.Errorf("transfer %s to %s: %w", id, to, domain.ErrTransferToSelf)
		}
		if to == "" {
			return Event{}, fmt.Errorf("transfer %s: recipient: %w", id, errCallerRequired)
		}
		if tx.OwnedCount(to) >= tx.MaxOwned() {
			return Event{}, fmt.Errorf("transfer %s to %s: %w", id, to, domain.ErrStorageOverflow)
		}
		var err error
		moved, err = tx.TransferKitty(id, to)
		if err != nil {
			return Event{}, fmt.Errorf("transfer %s: %w", id, err)
		}
		return Event{Kind: EventTransferred, KittyID: id, From: from, To: to}, nil
	})
	return moved, res, err
}

// SetPrice lists kitty id at price, or delists it when price is nil.
func (s *Service) SetPrice(ctx context.Context, caller AccountID, id KittyID, price *Balance) (Kitty, Result, error) {
	var updated Kitty
	res, err := s.run(ctx, OpSetPrice, func(tx Transaction) (Event, error) {
		current, ok := tx.FindKitty(id)
		if !ok {
			return Event{}, fmt.Errorf("set price %s: %w", id, domain.ErrNoKitty)
		}
		if current.Owner != caller {
			return Event{}, fmt.Errorf("set price %s by %s: %w", id, caller, domain.ErrNotOwner)
		}
		var err error
		updated, err = tx.UpdateKitty(id, func(k *Kitty) error {
			k.Price = clonePrice(price)
			return nil
		})
		if err != nil {
			return Event{}, fmt.Errorf("set price %s: %w", id, err)
		}
		return Event{Kind: EventPriceSet, KittyID: id, Owner: caller, Price: clonePrice(price)}, nil
	})
	return updated, res, err
}

// BuyKitty purchases kitty id for buyer at its listed price, provided the
// price does not exceed maxPrice. The payment to the seller is settled
// through the balance ledger as the last step before the registry commit; if
// it fails, ownership is unchanged.
func (s *Service) BuyKitty(ctx context.Context, buyer AccountID, id KittyID, maxPrice Balance) (Kitty, Result, error) {
	var bought Kitty
	res, err := s.run(ctx, OpBuyKitty, func(tx Transaction) (Event, error) {
		current, ok := tx.FindKitty(id)
		if !ok {
			return Event{}, fmt.Errorf("buy %s: %w", id, domain.ErrNoKitty)
		}
		if !current.ForSale() {
			return Event{}, fmt.Errorf("buy %s: %w", id, domain.ErrNotForSale)
		}
		price := *current.Price
		if price > maxPrice {
			return Event{}, fmt.Errorf("buy %s: listed at %d, max %d: %w", id, price, maxPrice, domain.ErrPriceTooLow)
		}
		seller := current.Owner
		if seller == buyer {
			return Event{}, fmt.Errorf("buy %s by %s: %w", id, buyer, domain.ErrTransferToSelf)
		}
		if buyer == "" {
			return Event{}, fmt.Errorf("buy %s: %w", id, errCallerRequired)
		}
		if tx.OwnedCount(buyer) >= tx.MaxOwned() {
			return Event{}, fmt.Errorf("buy %s by %s: %w", id, buyer, domain.ErrStorageOverflow)
		}
		if available := s.ledger.BalanceOf(buyer); available < price {
			return Event{}, fmt.Errorf("buy %s: %s has %d spendable, needs %d: %w", id, buyer, available, price, domain.ErrNotEnoughBalance)
		}
		var err error
		bought, err = tx.TransferKitty(id, buyer)
		if err != nil {
			return Event{}, fmt.Errorf("buy %s: %w", id, err)
		}
		tx.OnCommit(func(context.Context) error {
			if err := s.ledger.Transfer(buyer, seller, price); err != nil {
				if errors.Is(err, domain.ErrInsufficientBalance) {
					return fmt.Errorf("buy %s: %w: %w", id, domain.ErrNotEnoughBalance, err)
				}
				return fmt.Errorf("buy %s: settle payment: %w", id, err)
			}
			return nil
		})
		return Event{Kind: EventSold, KittyID: id, From: seller, To: buyer, Price: domain.NewPrice(price)}, nil
	})
	return bought, res, err
}

// GetKitty returns the committed registry record for id.
func (s *Service) GetKitty(id KittyID) (Kitty, bool) {
	return s.store.GetKitty(id)
}

// OwnedBy returns the identities owned by account in index order.
func (s *Service) OwnedBy(account AccountID) []KittyID {
	return s.store.OwnedBy(account)
}

// ListKitties returns every committed kitty ordered by identity.
func (s *Service) ListKitties() []Kitty {
	return s.store.ListKitties()
}

// KittyCount returns the global counter, which equals the number of kitties
// ever created.
func (s *Service) KittyCount() uint32 {
	return s.store.KittyCount()
}

// run executes fn in a store transaction and reports the outcome to the
// tracer, metrics recorder and logger. The event returned by fn reaches the
// sink only after the commit succeeds.
func (s *Service) run(ctx context.Context, op string, fn func(Transaction) (Event, error)) (Result, error) {
	ctx, span := s.tracer.Start(ctx, op)
	started := s.now()

	var event Event
	res, err := s.store.RunInTransaction(ctx, func(tx Transaction) error {
		var fnErr error
		event, fnErr = fn(tx)
		return fnErr
	})

	code := domain.ErrorCode(err)
	s.metrics.Observe(ctx, op, code, s.now().Sub(started))
	span.End(err)

	if err != nil {
		s.logFailure(op, code, err)
		return res, err
	}
	for _, v := range res.Violations {
		s.logger.Warn("rule violation", "op", op, "rule", v.Rule, "severity", string(v.Severity), "message", v.Message)
	}

	event.Block = s.block.BlockNumber()
	event.TxIndex = s.block.ExtrinsicIndex()
	s.sink.Emit(ctx, event)
	s.logger.Info("transition committed", "op", op, "kitty_id", event.KittyID.String(), "event", string(event.Kind))
	return res, nil
}

func (s *Service) logFailure(op, code string, err error) {
	switch code {
	case "internal", "rule_violation":
		s.logger.Error("transition failed", "op", op, "code", code, "error", err)
	default:
		s.logger.Debug("transition rejected", "op", op, "code", code, "error", err)
	}
}

func clonePrice(p *Balance) *Balance {
	if p == nil {
		return nil
	}
	return domain.NewPrice(*p)
}
