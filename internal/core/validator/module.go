package validator

import (
	"go.uber.org/fx"

	"github.com/ledgercore/node/internal/core/consensus"
	"github.com/ledgercore/node/pkg/interfaces"
)

// ModuleInput lists the collaborators the validation pipeline is built from.
type ModuleInput struct {
	fx.In

	HashMgr  interfaces.HashManager
	Verifier interfaces.SignatureVerifier
	Pools    consensus.BlockSource
	Logger   interfaces.Logger
}

// Module provides the block validator pipeline in declared plugin order,
// matching §4.5.
func Module() fx.Option {
	return fx.Module("validator",
		fx.Provide(func(in ModuleInput) consensus.BlockValidator {
			return New(in.Logger,
				NewHashValidator(in.HashMgr),
				BlockNumValidator{},
				TimestampValidator{},
				NewBlockSignaturesValidator(in.HashMgr, in.Verifier),
				NewSmartSourceSignaturesValidator(in.HashMgr, in.Verifier, in.Pools),
				BalanceChecker{},
				TransactionsChecker{},
			)
		}),
	)
}
