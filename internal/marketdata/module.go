package marketdata

import (
	"go.uber.org/fx"

	"quant_bot/internal/modules/config"
)

// NewProvider выбирает источник: каталог CSV задан — читаем с диска,
// иначе ходим в котировочный API.
func NewProvider(cfg *config.Config) Provider {
	if cfg.Data.Dir != "" {
		return NewCSVProvider(cfg)
	}
	return NewHTTPProvider(cfg)
}

func Module() fx.Option {
	return fx.Module("marketdata",
		fx.Provide(
			NewProvider,
		),
	)
}
