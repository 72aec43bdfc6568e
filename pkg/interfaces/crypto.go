package interfaces

import "github.com/ledgercore/node/pkg/types"

// HashManager computes the Blake2 digests the block-linkage and packet
// invariants are defined over.
type HashManager interface {
	Blake2(data []byte) types.Hash
}

// SignatureVerifier verifies Ed25519 signatures over arbitrary messages.
type SignatureVerifier interface {
	Verify(pub types.PublicKey, message []byte, sig types.Signature) bool
}
