package wallet

import (
	"go.uber.org/fx"

	"github.com/ledgercore/node/internal/core/consensus"
	"github.com/ledgercore/node/pkg/interfaces"
)

// ModuleInput lists the collaborators the wallet applier is built from.
type ModuleInput struct {
	fx.In

	Store   interfaces.WalletStore
	Storage interfaces.BlockStorage
	HashMgr interfaces.HashManager
	Logger  interfaces.Logger
}

// Module provides the wallet block applier to the application graph.
func Module() fx.Option {
	return fx.Module("wallet",
		fx.Provide(func(in ModuleInput) consensus.BlockApplier {
			return New(in.Store, NewInMemoryRecentHashes(), in.Storage, in.HashMgr, in.Logger)
		}),
	)
}
