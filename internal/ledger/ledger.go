// Package ledger provides an in-memory balance ledger with keep-alive
// transfer semantics. Every funded account must retain at least the
// existential deposit, so the spendable balance is the total held minus that
// deposit.
package ledger

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	"kittycore/pkg/domain"
)

var _ domain.BalanceLedger = (*Ledger)(nil)

// Ledger is a concurrency-safe in-memory domain.BalanceLedger.
type Ledger struct {
	mu                 sync.Mutex
	balances           map[domain.AccountID]domain.Balance
	existentialDeposit domain.Balance
}

// New constructs an empty ledger using the provided existential deposit.
func New(existentialDeposit domain.Balance) *Ledger {
	return &Ledger{
		balances:           make(map[domain.AccountID]domain.Balance),
		existentialDeposit: existentialDeposit,
	}
}

// ExistentialDeposit returns the amount every account must keep.
func (l *Ledger) ExistentialDeposit() domain.Balance { return l.existentialDeposit }

// Deposit credits amount to account, as a host would when minting funds.
func (l *Ledger) Deposit(account domain.AccountID, amount domain.Balance) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	current := l.balances[account]
	if current > math.MaxUint64-amount {
		return fmt.Errorf("deposit %d to %s overflows balance", amount, account)
	}
	l.balances[account] = current + amount
	return nil
}

// Total returns everything held by account, including the existential deposit.
func (l *Ledger) Total(account domain.AccountID) domain.Balance {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// BalanceOf returns the spendable balance of account.
func (l *Ledger) BalanceOf(account domain.AccountID) domain.Balance {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.spendable(account)
}

func (l *Ledger) spendable(account domain.AccountID) domain.Balance {
	total := l.balances[account]
	if total <= l.existentialDeposit {
		return 0
	}
	return total - l.existentialDeposit
}

// Transfer moves amount from one account to another without reaping the
// sender. It fails with domain.ErrInsufficientBalance when amount exceeds
// the sender's spendable balance, and with domain.ErrBelowExistentialDeposit
// when the recipient would hold less than the existential deposit. Both
// balances are untouched on error.
func (l *Ledger) Transfer(from, to domain.AccountID, amount domain.Balance) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if amount == 0 || from == to {
		return nil
	}
	if available := l.spendable(from); available < amount {
		return fmt.Errorf("%w: %s has %d spendable, needs %d", domain.ErrInsufficientBalance, from, available, amount)
	}
	recipient := l.balances[to]
	if recipient > math.MaxUint64-amount {
		return fmt.Errorf("transfer %d to %s overflows balance", amount, to)
	}
	if recipient+amount < l.existentialDeposit {
		return fmt.Errorf("%w: %d leaves %s with %d, deposit is %d", domain.ErrBelowExistentialDeposit, amount, to, recipient+amount, l.existentialDeposit)
	}
	l.balances[from] -= amount
	l.balances[to] = recipient + amount
	return nil
}

// Accounts returns every account with a non-zero total, sorted.
func (l *Ledger) Accounts() []domain.AccountID {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.AccountID, 0, len(l.balances))
	for account, total := range l.balances {
		if total > 0 {
			out = append(out, account)
		}
	}
	slices.SortFunc(out, func(a, b domain.AccountID) int { return strings.Compare(string(a), string(b)) })
	return out
}
