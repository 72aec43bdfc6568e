package wallet

import (
	"sync"

	"github.com/ledgercore/node/pkg/types"
)

// InMemoryRecentHashes tracks each wallet's cyclic buffer of recent block
// hashes, guarded by a single mutex since it is written once per transaction
// during block application and read only for diagnostics.
type InMemoryRecentHashes struct {
	mu   sync.Mutex
	byPK map[types.PublicKey]*types.RecentHashes
}

// NewInMemoryRecentHashes builds an empty InMemoryRecentHashes.
func NewInMemoryRecentHashes() *InMemoryRecentHashes {
	return &InMemoryRecentHashes{byPK: make(map[types.PublicKey]*types.RecentHashes)}
}

// Push records hash against addr, provided addr resolves to a PublicKey
// form; compact WalletId addresses are skipped since RecentHashes is keyed
// by the wallet's stable public key.
func (r *InMemoryRecentHashes) Push(addr types.Address, hash types.Hash) {
	if addr.Kind != types.AddressPublicKey {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rh, ok := r.byPK[addr.Key]
	if !ok {
		rh = &types.RecentHashes{}
		r.byPK[addr.Key] = rh
	}
	rh.Push(hash)
}

// Hashes returns the recorded hashes for pk, oldest first.
func (r *InMemoryRecentHashes) Hashes(pk types.PublicKey) []types.Hash {
	r.mu.Lock()
	defer r.mu.Unlock()
	rh, ok := r.byPK[pk]
	if !ok {
		return nil
	}
	return rh.Slice()
}
