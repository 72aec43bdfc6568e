package consensus

import (
	"context"

	"go.uber.org/fx"

	"github.com/ledgercore/node/internal/core/roundstate"
	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

// ModuleInput lists the collaborators the consensus module needs from the
// rest of the application graph.
type ModuleInput struct {
	fx.In

	MyKey     types.PublicKey
	Validator BlockValidator
	Applier   BlockApplier
	Source    BlockSource
	Packets   PacketSource
	Scheduler interfaces.Scheduler
	Transport interfaces.Transport
	HashMgr   interfaces.HashManager
	Logger    interfaces.Logger
	Config    interfaces.ConsensusConfig
}

// ModuleOutput exposes the services other modules are allowed to depend on.
type ModuleOutput struct {
	fx.Out

	FSM   *FSM
	Round *roundstate.State
}

// Module wires the consensus round state, writer producer and FSM into the
// application's fx graph.
func Module() fx.Option {
	return fx.Module("consensus",
		fx.Provide(func(in ModuleInput) ModuleOutput {
			round := roundstate.New(in.MyKey)
			writer := NewWriterProducer(in.HashMgr, in.Packets, in.Source, in.Transport, in.Logger)
			fsm := New(round, in.Validator, in.Applier, in.Source, in.Scheduler, in.Transport, in.Logger, in.Config, writer)
			hashesFromRoundTable = (*roundstate.State).Stage1Hashes

			return ModuleOutput{FSM: fsm, Round: round}
		}),
		fx.Invoke(func(lc fx.Lifecycle, fsm *FSM, logger interfaces.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					logger.Info("consensus module started", "state", fsm.Current().String())
					return nil
				},
				OnStop: func(ctx context.Context) error {
					logger.Info("consensus module stopped")
					return nil
				},
			})
		}),
	)
}
