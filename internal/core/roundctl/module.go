package roundctl

import (
	"go.uber.org/fx"

	"github.com/ledgercore/node/internal/core/consensus"
	"github.com/ledgercore/node/internal/core/sync"
	"github.com/ledgercore/node/internal/infrastructure/metrics"
	"github.com/ledgercore/node/pkg/interfaces"
)

// ModuleInput lists the collaborators the round controller is built from.
type ModuleInput struct {
	fx.In

	FSM       *consensus.FSM
	Transport interfaces.Transport
	Storage   interfaces.BlockStorage
	Sync      *sync.Synchronizer
	Logger    interfaces.Logger
	Metrics   *metrics.Metrics
}

// Module provides the round advancement controller to the application graph.
func Module() fx.Option {
	return fx.Module("roundctl",
		fx.Provide(func(in ModuleInput) *Controller {
			return New(in.FSM, in.Transport, in.Storage, in.Sync, in.Logger, in.Metrics)
		}),
	)
}
