package validator

import (
	"testing"

	"github.com/ledgercore/node/internal/core/consensus"
	"github.com/ledgercore/node/pkg/types"
)

type fakeVerifier struct {
	valid map[types.PublicKey]bool
}

func (f fakeVerifier) Verify(pub types.PublicKey, message []byte, sig types.Signature) bool {
	return f.valid[pub]
}

func TestBlockSignaturesValidatorQuorum(t *testing.T) {
	c0, c1, c2 := types.PublicKey{1}, types.PublicKey{2}, types.PublicKey{3}
	confidants := []types.PublicKey{c0, c1, c2}

	verifier := fakeVerifier{valid: map[types.PublicKey]bool{c0: true, c2: true}}
	v := NewBlockSignaturesValidator(fakeHashMgr{}, verifier)

	candidate := types.Pool{
		Confidants:      confidants,
		RealTrustedMask: 0b101, // c0 and c2 signed
		Signatures:      []types.Signature{{}, {}},
	}

	if got := v.Validate(types.Pool{}, candidate); got != consensus.VerdictNoError {
		t.Fatalf("expected quorum to validate, got %v", got)
	}
}

func TestBlockSignaturesValidatorRejectsMaskMismatch(t *testing.T) {
	confidants := []types.PublicKey{{1}, {2}}
	v := NewBlockSignaturesValidator(fakeHashMgr{}, fakeVerifier{})

	candidate := types.Pool{
		Confidants:      confidants,
		RealTrustedMask: 0b11,
		Signatures:      []types.Signature{{}}, // popcount(mask)=2 but only one signature
	}

	if got := v.Validate(types.Pool{}, candidate); got != consensus.VerdictError {
		t.Fatalf("expected mask/signature count mismatch to error, got %v", got)
	}
}

func TestBlockSignaturesValidatorRejectsBadSignature(t *testing.T) {
	c0 := types.PublicKey{1}
	verifier := fakeVerifier{valid: map[types.PublicKey]bool{}} // nobody verifies
	v := NewBlockSignaturesValidator(fakeHashMgr{}, verifier)

	candidate := types.Pool{
		Confidants:      []types.PublicKey{c0},
		RealTrustedMask: 0b1,
		Signatures:      []types.Signature{{}},
	}

	if got := v.Validate(types.Pool{}, candidate); got != consensus.VerdictError {
		t.Fatalf("expected an invalid signature to error, got %v", got)
	}
}
