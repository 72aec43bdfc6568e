package badgerstore

import (
	"context"

	"go.uber.org/fx"

	"github.com/ledgercore/node/pkg/interfaces"
)

// ModuleInput lists the collaborators the BadgerDB-backed stores are built
// from.
type ModuleInput struct {
	fx.In

	Options Options `optional:"true"`
	HashMgr interfaces.HashManager
	Logger  interfaces.Logger
}

// ModuleOutput exposes both interfaces.BlockStorage and interfaces.WalletStore
// over the single shared BadgerDB handle, plus the handle itself so the
// application can close it on shutdown.
type ModuleOutput struct {
	fx.Out

	DB      *DB
	Blocks  interfaces.BlockStorage
	Wallets interfaces.WalletStore
}

// Module provides the badger-backed storage layer to the application graph.
func Module() fx.Option {
	return fx.Module("badgerstore",
		fx.Provide(func(in ModuleInput) (ModuleOutput, error) {
			opts := in.Options
			if opts.Path == "" {
				opts = DefaultOptions()
			}
			db, err := Open(opts, in.Logger)
			if err != nil {
				return ModuleOutput{}, err
			}
			return ModuleOutput{
				DB:      db,
				Blocks:  NewBlockStore(db, in.HashMgr),
				Wallets: NewWalletStore(db),
			}, nil
		}),
		fx.Invoke(func(lc fx.Lifecycle, db *DB) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					return db.Close()
				},
			})
		}),
	)
}
