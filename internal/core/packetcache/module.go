package packetcache

import (
	"go.uber.org/fx"

	"github.com/ledgercore/node/internal/core/consensus"
	"github.com/ledgercore/node/pkg/interfaces"
)

// ModuleInput lists the collaborators the packet cache is built from.
type ModuleInput struct {
	fx.In

	HashMgr   interfaces.HashManager
	Transport interfaces.Transport
}

// ModuleOutput exposes both the concrete cache (for the dispatcher, which
// also needs Insert/Reply) and the narrower PacketSource view the writer
// producer depends on.
type ModuleOutput struct {
	fx.Out

	Cache   *Cache
	Packets consensus.PacketSource
}

// Module provides the transaction-packet cache to the application graph.
func Module() fx.Option {
	return fx.Module("packetcache",
		fx.Provide(func(in ModuleInput) ModuleOutput {
			c := New(in.HashMgr, in.Transport)
			return ModuleOutput{Cache: c, Packets: c}
		}),
	)
}
