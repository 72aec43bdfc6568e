package types

import "math/bits"

// SmartSignature groups the confidant signatures that authorize a single
// smart-contract new-state source within a block.
type SmartSignature struct {
	SmartKey           PublicKey
	SmartConsensusPool Sequence
	Signatures         []IndexedSignature
}

// IndexedSignature pairs a signature with the index into the smart
// consensus pool's confidant set that produced it.
type IndexedSignature struct {
	ConfidantIndex uint8
	Signature      Signature
}

// Pool is an accepted (or candidate) block. The name follows the source
// domain's terminology: a "pool" of transactions sealed by a round's
// confidants.
type Pool struct {
	Sequence        Sequence
	PreviousHash    Hash
	Confidants      []PublicKey
	RealTrustedMask uint64
	Signatures      []Signature
	SmartSignatures []SmartSignature
	Transactions    []Transaction
	UserFields      map[uint32]any
	HashingLength   uint32

	// Bytes is the block's canonical serialized form; HashingLength bytes
	// of its prefix are hashed to link the next block and to derive the
	// message that confidants sign.
	Bytes []byte
}

// PopcountMask returns the number of bits set in RealTrustedMask.
func (p Pool) PopcountMask() int { return bits.OnesCount64(p.RealTrustedMask) }

// SignerAt reports whether confidant i is recorded as having signed.
func (p Pool) SignerAt(i int) bool {
	if i < 0 || i >= 64 {
		return false
	}
	return p.RealTrustedMask&(1<<uint(i)) != 0
}

// HashingPrefix returns the byte range of Bytes that is hashed to produce
// PreviousHash for the successor block and the message confidants sign.
func (p Pool) HashingPrefix() []byte {
	if int(p.HashingLength) > len(p.Bytes) {
		return p.Bytes
	}
	return p.Bytes[:p.HashingLength]
}
