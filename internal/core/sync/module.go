package sync

import (
	"go.uber.org/fx"

	"github.com/ledgercore/node/internal/infrastructure/metrics"
	"github.com/ledgercore/node/pkg/interfaces"
)

// ModuleInput lists the collaborators the pool synchronizer is built from.
type ModuleInput struct {
	fx.In

	Storage   interfaces.BlockStorage
	Transport interfaces.Transport
	Scheduler interfaces.Scheduler
	Logger    interfaces.Logger
	Config    interfaces.ConsensusConfig
	Metrics   *metrics.Metrics
}

// Module provides the pool synchronizer to the application graph.
func Module() fx.Option {
	return fx.Module("sync",
		fx.Provide(func(in ModuleInput) *Synchronizer {
			return New(in.Storage, in.Transport, in.Scheduler, in.Logger, in.Config, in.Metrics)
		}),
	)
}
