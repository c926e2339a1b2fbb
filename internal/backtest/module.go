package backtest

import "go.uber.org/fx"

func Module() fx.Option {
	return fx.Module("backtest",
		fx.Provide(
			NewRunner,
		),
	)
}
