package domain

import "errors"

// Rejected-transition outcomes. Handlers wrap these with context, so callers
// should match with errors.Is.
var (
	ErrStorageOverflow  = errors.New("storage overflow: account owns the maximum number of kitties")
	ErrNoKitty          = errors.New("kitty not found")
	ErrNotOwner         = errors.New("caller does not own kitty")
	ErrTransferToSelf   = errors.New("cannot transfer kitty to its current owner")
	ErrNotForSale       = errors.New("kitty is not for sale")
	ErrPriceTooLow      = errors.New("max price is below the listed price")
	ErrNotEnoughBalance = errors.New("not enough balance")
	ErrDuplicateKitty   = errors.New("kitty identity already exists")
	ErrTooManyKitties   = errors.New("kitty counter exhausted")
)

// Errors returned by BalanceLedger implementations. ErrInsufficientBalance
// means the transfer would overdraw the sender; ErrBelowExistentialDeposit
// means the recipient would end up holding less than the existential deposit.
var (
	ErrInsufficientBalance     = errors.New("insufficient balance")
	ErrBelowExistentialDeposit = errors.New("recipient below existential deposit")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrStorageOverflow, "storage_overflow"},
	{ErrNoKitty, "no_kitty"},
	{ErrNotOwner, "not_owner"},
	{ErrTransferToSelf, "transfer_to_self"},
	{ErrNotForSale, "not_for_sale"},
	{ErrPriceTooLow, "price_too_low"},
	{ErrNotEnoughBalance, "not_enough_balance"},
	{ErrDuplicateKitty, "duplicate_kitty"},
	{ErrTooManyKitties, "too_many_kitties"},
	{ErrInsufficientBalance, "not_enough_balance"},
	{ErrBelowExistentialDeposit, "below_existential_deposit"},
}

// ErrorCode maps an error to a stable, low-cardinality code. A nil error maps
// to "ok"; rule violations map to "rule_violation"; anything unrecognised
// maps to "internal".
func ErrorCode(err error) string {
	if err == nil {
		return "ok"
	}
	for _, candidate := range errorCodes {
		if errors.Is(err, candidate.err) {
			return candidate.code
		}
	}
	var violation RuleViolationError
	if errors.As(err, &violation) {
		return "rule_violation"
	}
	return "internal"
}
