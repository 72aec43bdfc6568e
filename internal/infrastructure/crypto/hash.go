// Package crypto adapts the primitives the spec assumes are available:
// Blake2 hashing and Ed25519 signature verification.
package crypto

import (
	"crypto/ed25519"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

// HashService computes Blake2b-256 digests, memoizing the results for the
// first 4096 distinct inputs it sees; memoized entries are never evicted.
type HashService struct {
	mu    sync.RWMutex
	cache map[string]types.Hash
}

// NewHashService returns a ready HashService.
func NewHashService() *HashService {
	return &HashService{cache: make(map[string]types.Hash)}
}

var _ interfaces.HashManager = (*HashService)(nil)

// Blake2 returns the Blake2b-256 digest of data.
func (h *HashService) Blake2(data []byte) types.Hash {
	key := string(data)
	h.mu.RLock()
	if v, ok := h.cache[key]; ok {
		h.mu.RUnlock()
		return v
	}
	h.mu.RUnlock()

	sum := blake2b.Sum256(data)
	out := types.Hash(sum)

	h.mu.Lock()
	if len(h.cache) < 4096 {
		h.cache[key] = out
	}
	h.mu.Unlock()
	return out
}

// SignatureService verifies Ed25519 signatures.
type SignatureService struct{}

// NewSignatureService returns a ready SignatureService.
func NewSignatureService() *SignatureService { return &SignatureService{} }

var _ interfaces.SignatureVerifier = (*SignatureService)(nil)

// Verify reports whether sig is a valid Ed25519 signature by pub over message.
func (s *SignatureService) Verify(pub types.PublicKey, message []byte, sig types.Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), message, sig[:])
}
