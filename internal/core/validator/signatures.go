package validator

import (
	"math/bits"

	"github.com/ledgercore/node/internal/core/consensus"
	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

// BlockSignaturesValidator checks that realTrustedMask matches the declared
// signatures one-for-one and that every asserted bit verifies against the
// confidant at that index over the block's hashing prefix.
type BlockSignaturesValidator struct {
	hashMgr  interfaces.HashManager
	verifier interfaces.SignatureVerifier
}

// NewBlockSignaturesValidator builds a BlockSignaturesValidator.
func NewBlockSignaturesValidator(hashMgr interfaces.HashManager, verifier interfaces.SignatureVerifier) *BlockSignaturesValidator {
	return &BlockSignaturesValidator{hashMgr: hashMgr, verifier: verifier}
}

func (v *BlockSignaturesValidator) Name() string { return "BlockSignaturesValidator" }

func (v *BlockSignaturesValidator) Validate(prev, candidate types.Pool) consensus.ValidationVerdict {
	if len(candidate.Confidants) > types.MaxConfidants {
		return consensus.VerdictError
	}
	if bits.OnesCount64(candidate.RealTrustedMask) != len(candidate.Signatures) {
		return consensus.VerdictError
	}

	digest := v.hashMgr.Blake2(candidate.HashingPrefix())
	next := 0
	for i := 0; i < len(candidate.Confidants); i++ {
		if !candidate.SignerAt(i) {
			continue
		}
		if next >= len(candidate.Signatures) {
			return consensus.VerdictError
		}
		sig := candidate.Signatures[next]
		next++
		if !v.verifier.Verify(candidate.Confidants[i], digest[:], sig) {
			return consensus.VerdictError
		}
	}
	return consensus.VerdictNoError
}
