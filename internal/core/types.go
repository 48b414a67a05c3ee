package core

import "kittycore/pkg/domain"

type (
	Kitty              = domain.Kitty
	KittyID            = domain.KittyID
	DNA                = domain.DNA
	AccountID          = domain.AccountID
	Balance            = domain.Balance
	Event              = domain.Event
	EventKind          = domain.EventKind
	EventSink          = domain.EventSink
	BlockContext       = domain.BlockContext
	BalanceLedger      = domain.BalanceLedger
	EntityType         = domain.EntityType
	Severity           = domain.Severity
	Change             = domain.Change
	Action             = domain.Action
	Violation          = domain.Violation
	Result             = domain.Result
	RuleViolationError = domain.RuleViolationError
	Rule               = domain.Rule
	RulesEngine        = domain.RulesEngine
	Transaction        = domain.Transaction
	TransactionView    = domain.TransactionView
	PersistentStore    = domain.PersistentStore
)

const (
	EntityKitty     = domain.EntityKitty
	EntityOwnership = domain.EntityOwnership
)

const (
	SeverityBlock = domain.SeverityBlock
	SeverityWarn  = domain.SeverityWarn
	SeverityLog   = domain.SeverityLog
)

const (
	ActionCreate   = domain.ActionCreate
	ActionUpdate   = domain.ActionUpdate
	ActionTransfer = domain.ActionTransfer
)

const (
	EventCreated     = domain.EventCreated
	EventTransferred = domain.EventTransferred
	EventPriceSet    = domain.EventPriceSet
	EventSold        = domain.EventSold
)
