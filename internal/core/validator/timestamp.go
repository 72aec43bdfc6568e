package validator

import (
	"github.com/ledgercore/node/internal/core/consensus"
	"github.com/ledgercore/node/pkg/types"
)

// TimestampValidator checks that consecutive blocks carry a non-regressing
// timestamp in the well-known user field. Absence or regression is a
// warning, not a rejection: clocks skew, and the chain must still advance.
type TimestampValidator struct{}

func (v TimestampValidator) Name() string { return "TimestampValidator" }

func (v TimestampValidator) Validate(prev, candidate types.Pool) consensus.ValidationVerdict {
	if candidate.Sequence == 0 {
		return consensus.VerdictNoError
	}
	curr, ok := blockTimestamp(candidate)
	if !ok {
		return consensus.VerdictWarning
	}
	prevTS, ok := blockTimestamp(prev)
	if !ok {
		return consensus.VerdictWarning
	}
	if curr < prevTS {
		return consensus.VerdictWarning
	}
	return consensus.VerdictNoError
}

func blockTimestamp(p types.Pool) (int64, bool) {
	raw, ok := p.UserFields[types.UserFieldTimestamp]
	if !ok {
		return 0, false
	}
	ts, ok := raw.(int64)
	return ts, ok
}
