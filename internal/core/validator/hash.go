package validator

import (
	"github.com/ledgercore/node/internal/core/consensus"
	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

// HashValidator checks that candidate.PreviousHash links to prev's hashing
// prefix. A mismatch breaks the chain and is fatal.
type HashValidator struct {
	hashMgr interfaces.HashManager
}

// NewHashValidator builds a HashValidator.
func NewHashValidator(hashMgr interfaces.HashManager) *HashValidator {
	return &HashValidator{hashMgr: hashMgr}
}

func (v *HashValidator) Name() string { return "HashValidator" }

func (v *HashValidator) Validate(prev, candidate types.Pool) consensus.ValidationVerdict {
	if candidate.Sequence == 0 {
		return consensus.VerdictNoError
	}
	want := v.hashMgr.Blake2(prev.HashingPrefix())
	if candidate.PreviousHash != want {
		return consensus.VerdictFatal
	}
	return consensus.VerdictNoError
}

// BlockNumValidator enforces that candidate.Sequence is exactly prev+1.
type BlockNumValidator struct{}

func (v BlockNumValidator) Name() string { return "BlockNumValidator" }

func (v BlockNumValidator) Validate(prev, candidate types.Pool) consensus.ValidationVerdict {
	if candidate.Sequence == 0 {
		return consensus.VerdictNoError
	}
	if candidate.Sequence-prev.Sequence != 1 {
		return consensus.VerdictError
	}
	return consensus.VerdictNoError
}
