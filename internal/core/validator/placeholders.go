package validator

import (
	"github.com/ledgercore/node/internal/core/consensus"
	"github.com/ledgercore/node/pkg/types"
)

// BalanceChecker is a reserved pipeline slot. It always returns noError.
// Balance sufficiency is not checked here, nor during block application in
// the wallet pools, where a source balance may go negative.
type BalanceChecker struct{}

func (BalanceChecker) Name() string { return "BalanceChecker" }

func (BalanceChecker) Validate(prev, candidate types.Pool) consensus.ValidationVerdict {
	return consensus.VerdictNoError
}

// TransactionsChecker is a reserved pipeline slot. It always returns
// noError: per-transaction signature verification is out of this pipeline's
// scope until a transaction signing scheme is finalized.
type TransactionsChecker struct{}

func (TransactionsChecker) Name() string { return "TransactionsChecker" }

func (TransactionsChecker) Validate(prev, candidate types.Pool) consensus.ValidationVerdict {
	return consensus.VerdictNoError
}
