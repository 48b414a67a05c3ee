package core

import (
	"kittycore/internal/host"
	"kittycore/internal/ledger"
)

func newTestService(engine *RulesEngine, opts ...ServiceOption) *Service {
	return NewInMemoryService(engine, host.NewChain([32]byte{0xaa}), ledger.New(0), opts...)
}
