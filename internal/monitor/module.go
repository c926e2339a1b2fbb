package monitor

import "go.uber.org/fx"

func Module() fx.Option {
	return fx.Module("monitor",
		fx.Provide(
			New,
		),
	)
}
