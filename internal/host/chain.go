// Package host supplies deterministic block context for driving kittycore
// transitions outside a real block-production environment.
package host

import (
	"encoding/binary"
	"sync"

	"golang.org/x/crypto/blake2b"

	"kittycore/pkg/domain"
)

// Block is a fixed domain.BlockContext value.
type Block struct {
	Parent [32]byte
	Number uint64
	Index  uint32
}

var _ domain.BlockContext = Block{}

// ParentHash returns the hash of the previous block.
func (b Block) ParentHash() [32]byte { return b.Parent }

// BlockNumber returns the current block number.
func (b Block) BlockNumber() uint64 { return b.Number }

// ExtrinsicIndex returns the position of the executing transition in the block.
func (b Block) ExtrinsicIndex() uint32 { return b.Index }

// Chain is a mutable block context that advances one extrinsic per
// transition and seals blocks on demand. Parent hashes are chained through
// Blake2b-256 so that replaying the same sequence reproduces the same
// entropy.
type Chain struct {
	mu      sync.Mutex
	current Block
}

var _ domain.BlockContext = (*Chain)(nil)

// NewChain starts a chain at block 1 whose parent is the genesis hash.
func NewChain(genesis [32]byte) *Chain {
	return &Chain{current: Block{Parent: genesis, Number: 1}}
}

// Current returns a copy of the block context at this point.
func (c *Chain) Current() Block {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// ParentHash returns the hash of the last sealed block.
func (c *Chain) ParentHash() [32]byte { return c.Current().Parent }

// BlockNumber returns the number of the open block.
func (c *Chain) BlockNumber() uint64 { return c.Current().Number }

// ExtrinsicIndex returns the position of the current extrinsic in the open block.
func (c *Chain) ExtrinsicIndex() uint32 { return c.Current().Index }

// NextExtrinsic moves to the next position within the current block.
func (c *Chain) NextExtrinsic() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current.Index++
}

// Seal closes the current block and opens the next one, returning the hash
// of the sealed block.
func (c *Chain) Seal() [32]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	var buf [32 + 8 + 4]byte
	copy(buf[:32], c.current.Parent[:])
	binary.LittleEndian.PutUint64(buf[32:40], c.current.Number)
	binary.LittleEndian.PutUint32(buf[40:], c.current.Index)
	sealed := blake2b.Sum256(buf[:])
	c.current = Block{Parent: sealed, Number: c.current.Number + 1}
	return sealed
}
