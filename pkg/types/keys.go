// Package types defines the wire-level and domain data model shared by the
// consensus, sync and validation subsystems: keys, hashes, amounts,
// transactions, blocks and round bookkeeping structures.
package types

import (
	"encoding/hex"
	"errors"
)

const (
	// PublicKeySize is the length in bytes of a node/wallet public key.
	PublicKeySize = 32
	// SignatureSize is the length in bytes of an Ed25519 signature.
	SignatureSize = 64
	// HashSize is the length in bytes of a Blake2 digest.
	HashSize = 32
)

// PublicKey identifies a node and doubles as the key form of a wallet address.
type PublicKey [PublicKeySize]byte

// Signature is a fixed-size Ed25519 signature.
type Signature [SignatureSize]byte

// Hash is a fixed-size Blake2 digest.
type Hash [HashSize]byte

var (
	// ErrInvalidLength is returned when decoding bytes of the wrong size
	// into a fixed-size key, signature or hash.
	ErrInvalidLength = errors.New("types: invalid byte length")
)

// String renders the key as hex, matching the debug format used elsewhere in
// log lines throughout the node.
func (p PublicKey) String() string { return hex.EncodeToString(p[:]) }

// IsZero reports whether the key is the all-zero value.
func (p PublicKey) IsZero() bool { return p == PublicKey{} }

// Bytes returns a copy of the underlying bytes.
func (p PublicKey) Bytes() []byte {
	out := make([]byte, PublicKeySize)
	copy(out, p[:])
	return out
}

// PublicKeyFromBytes builds a PublicKey from a slice, failing on wrong length.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeySize {
		return pk, ErrInvalidLength
	}
	copy(pk[:], b)
	return pk, nil
}

// String renders the hash as hex.
func (h Hash) String() string { return hex.EncodeToString(h[:]) }

// IsZero reports whether the hash is the all-zero value.
func (h Hash) IsZero() bool { return h == Hash{} }

// Bytes returns a copy of the underlying bytes.
func (h Hash) Bytes() []byte {
	out := make([]byte, HashSize)
	copy(out, h[:])
	return out
}

// HashFromBytes builds a Hash from a slice, failing on wrong length.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, ErrInvalidLength
	}
	copy(h[:], b)
	return h, nil
}

// Bytes returns a copy of the underlying signature bytes.
func (s Signature) Bytes() []byte {
	out := make([]byte, SignatureSize)
	copy(out, s[:])
	return out
}

// SignatureFromBytes builds a Signature from a slice, failing on wrong length.
func SignatureFromBytes(b []byte) (Signature, error) {
	var s Signature
	if len(b) != SignatureSize {
		return s, ErrInvalidLength
	}
	copy(s[:], b)
	return s, nil
}

// RoundNumber is a monotonically increasing consensus epoch counter.
type RoundNumber uint64

// Sequence is a monotonically increasing block index.
type Sequence uint64

// MinConfidants and MaxConfidants bound the size of a round's trusted set;
// MaxConfidants is capped by the width of the realTrustedMask bitfield.
const (
	MinConfidants = 3
	MaxConfidants = 64
)
