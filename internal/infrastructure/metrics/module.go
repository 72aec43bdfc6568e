package metrics

import "go.uber.org/fx"

// Module provides the shared Metrics registry to the application graph.
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(New),
	)
}
