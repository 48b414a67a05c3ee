// Package identity derives kitty identities and DNA from block entropy.
//
// Both values are Blake2b-256 digests of the same 48-byte payload:
//
//	parent hash (32) | block number (u64 LE) | extrinsic index (u32 LE) | nonce (u32 LE)
//
// DNA is domain-separated from the identity by a fixed salt prefix, so the two
// are independent values even though they share their entropy.
package identity

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"kittycore/pkg/domain"
)

const payloadSize = 32 + 8 + 4 + 4

var dnaSalt = []byte("kittycore/dna/v1")

// Entropy is the deterministic input to identity derivation.
type Entropy struct {
	ParentHash     [32]byte
	BlockNumber    uint64
	ExtrinsicIndex uint32
	Nonce          uint32
}

// FromBlock captures the block context of the executing call together with
// the global counter value reserved for the new kitty.
func FromBlock(block domain.BlockContext, nonce uint32) Entropy {
	return Entropy{
		ParentHash:     block.ParentHash(),
		BlockNumber:    block.BlockNumber(),
		ExtrinsicIndex: block.ExtrinsicIndex(),
		Nonce:          nonce,
	}
}

func (e Entropy) payload() []byte {
	buf := make([]byte, 0, payloadSize)
	buf = append(buf, e.ParentHash[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, e.BlockNumber)
	buf = binary.LittleEndian.AppendUint32(buf, e.ExtrinsicIndex)
	buf = binary.LittleEndian.AppendUint32(buf, e.Nonce)
	return buf
}

// KittyID returns the identity for e.
func (e Entropy) KittyID() domain.KittyID {
	return domain.KittyID(blake2b.Sum256(e.payload()))
}

// DNA returns the salted genome for e.
func (e Entropy) DNA() domain.DNA {
	salted := make([]byte, 0, len(dnaSalt)+payloadSize)
	salted = append(salted, dnaSalt...)
	salted = append(salted, e.payload()...)
	return domain.DNA(blake2b.Sum256(salted))
}

// Generate derives the identity and DNA of the kitty minted with nonce in the
// current block. Callers must reserve nonce from the global counter so that no
// two calls in a process lifetime share it.
func Generate(block domain.BlockContext, nonce uint32) (domain.KittyID, domain.DNA) {
	e := FromBlock(block, nonce)
	return e.KittyID(), e.DNA()
}
