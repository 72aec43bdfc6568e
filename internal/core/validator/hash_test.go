package validator

import (
	"testing"

	"github.com/ledgercore/node/internal/core/consensus"
	"github.com/ledgercore/node/pkg/types"
)

type fakeHashMgr struct {
	fixed types.Hash
}

func (f fakeHashMgr) Blake2(data []byte) types.Hash { return f.fixed }

func TestHashValidatorAcceptsLinkedBlock(t *testing.T) {
	want := types.Hash{1, 2, 3}
	v := NewHashValidator(fakeHashMgr{fixed: want})

	prev := types.Pool{Sequence: 5, Bytes: []byte("prevblock"), HashingLength: 5}
	candidate := types.Pool{Sequence: 6, PreviousHash: want}

	if got := v.Validate(prev, candidate); got != consensus.VerdictNoError {
		t.Fatalf("expected VerdictNoError, got %v", got)
	}
}

func TestHashValidatorRejectsBrokenChain(t *testing.T) {
	v := NewHashValidator(fakeHashMgr{fixed: types.Hash{9, 9, 9}})

	prev := types.Pool{Sequence: 5, Bytes: []byte("prevblock"), HashingLength: 5}
	candidate := types.Pool{Sequence: 6, PreviousHash: types.Hash{}}

	if got := v.Validate(prev, candidate); got != consensus.VerdictFatal {
		t.Fatalf("expected VerdictFatal on a broken chain, got %v", got)
	}
}

func TestBlockNumValidator(t *testing.T) {
	v := BlockNumValidator{}

	ok := v.Validate(types.Pool{Sequence: 10}, types.Pool{Sequence: 11})
	if ok != consensus.VerdictNoError {
		t.Fatalf("expected sequential blocks to pass, got %v", ok)
	}

	gap := v.Validate(types.Pool{Sequence: 10}, types.Pool{Sequence: 12})
	if gap != consensus.VerdictError {
		t.Fatalf("expected a sequence gap to error, got %v", gap)
	}
}
