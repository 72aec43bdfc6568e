package network

import (
	"context"

	"go.uber.org/fx"

	"github.com/ledgercore/node/internal/core/dispatch"
	"github.com/ledgercore/node/internal/core/roundstate"
	"github.com/ledgercore/node/internal/infrastructure/metrics"
	"github.com/ledgercore/node/pkg/interfaces"
	"github.com/ledgercore/node/pkg/types"
)

// ModuleInput lists the collaborators the transport is built from. Round
// state and storage are deliberately absent here even though the transport
// consults them per frame: both are wired later via SetRoundSource, since
// consensus's round state itself depends on this module's Transport output
// and a constructor-time dependency here would cycle back on it.
type ModuleInput struct {
	fx.In

	Self    types.PublicKey
	Options Options `optional:"true"`
	Logger  interfaces.Logger
	Metrics *metrics.Metrics
}

// Module provides the websocket transport to the application graph. The
// frame handler and outbound connections are wired in a later fx.Invoke,
// once the dispatcher (which depends on this Transport) exists.
func Module() fx.Option {
	return fx.Module("network",
		fx.Provide(func(in ModuleInput) (*Transport, interfaces.Transport) {
			opts := in.Options
			if opts.ListenAddr == "" {
				opts = DefaultOptions()
			}
			t := New(in.Self, opts, in.Logger, in.Metrics)
			return t, t
		}),
		fx.Invoke(func(lc fx.Lifecycle, t *Transport, d *dispatch.Dispatcher, round *roundstate.State, storage interfaces.BlockStorage) {
			t.SetRoundSource(round.Round, storage.LastSequence)
			t.SetHandler(d.Handle)
			lc.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					go func() {
						if err := t.ListenAndServe(); err != nil {
							t.logger.Error("network transport stopped", "err", err)
						}
					}()
					t.DialAll()
					return nil
				},
				OnStop: func(ctx context.Context) error {
					return t.Close()
				},
			})
		}),
	)
}
