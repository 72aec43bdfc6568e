package dispatch

import (
	"go.uber.org/fx"

	"github.com/ledgercore/node/internal/core/consensus"
	"github.com/ledgercore/node/internal/core/packetcache"
	"github.com/ledgercore/node/internal/core/roundctl"
	"github.com/ledgercore/node/internal/core/sync"
	"github.com/ledgercore/node/internal/infrastructure/metrics"
	"github.com/ledgercore/node/pkg/interfaces"
)

// ModuleInput lists the collaborators the frame dispatcher routes into.
type ModuleInput struct {
	fx.In

	FSM       *consensus.FSM
	Ctl       *roundctl.Controller
	Sync      *sync.Synchronizer
	Packets   *packetcache.Cache
	Storage   interfaces.BlockStorage
	Transport interfaces.Transport
	Logger    interfaces.Logger
	Metrics   *metrics.Metrics
}

// Module provides the frame dispatcher to the application graph.
func Module() fx.Option {
	return fx.Module("dispatch",
		fx.Provide(func(in ModuleInput) *Dispatcher {
			return New(in.FSM, in.Ctl, in.Sync, in.Packets, in.Storage, in.Transport, in.Logger, in.Metrics)
		}),
	)
}
