package interfaces

import "github.com/ledgercore/node/pkg/types"

// SequenceRange is an inclusive [Lo, Hi] gap of missing sequences.
type SequenceRange struct {
	Lo, Hi types.Sequence
}

// BlockStorage is the persisted block ledger. The core drives it through
// this narrow surface; the storage engine (e.g. a badger-backed adapter) is
// otherwise opaque to the core.
type BlockStorage interface {
	Append(pool types.Pool) error
	Load(seq types.Sequence) (types.Pool, error)
	LastSequence() types.Sequence
	CachedBlocksSize() int
	RequiredRanges() []SequenceRange
	HashBySequence(seq types.Sequence) (types.Hash, error)
	GlobalSequence() types.Sequence
	BlockRequestNeed() bool
}

// WalletStore is the read/write/invalidation surface the core drives wallet
// accounting through. Ownership of WalletData lives entirely in the
// implementation; the core only ever calls these hooks.
type WalletStore interface {
	Get(addr types.Address) (types.WalletData, bool)
	Put(addr types.Address, data types.WalletData)
	Invalidate(addr types.Address)
	ResolveWalletId(pk types.PublicKey) (types.WalletId, bool)
	ResolvePublicKey(id types.WalletId) (types.PublicKey, bool)
}
