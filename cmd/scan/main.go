package main

import (
	"context"
	"log"

	"go.uber.org/fx"

	"quant_bot/internal/marketdata"
	"quant_bot/internal/models"
	"quant_bot/internal/modules/config"
	"quant_bot/internal/notify"
	"quant_bot/internal/plan"
	"quant_bot/pkg/logger"
)

func main() {
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	logger.SetServiceName("scan")

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
			func(cfg *config.Config) notify.Notifier {
				if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
					if tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, nil); err == nil {
						return tg
					}
				}
				return notify.NewStdout()
			},
			plan.NewGenerator,
		),
		config.Module(),
		marketdata.Module(),
		fx.Invoke(run),
	)
	app.Run()
}

func run(lc fx.Lifecycle, sd fx.Shutdowner, cfg *config.Config, provider marketdata.Provider, gen *plan.Generator, n notify.Notifier) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() { _ = sd.Shutdown() }()

				seriesByID, skipped := marketdata.LoadAll(ctx, provider, cfg)
				for sym, err := range skipped {
					logger.Error("load %s: %v", sym, err)
				}

				// индекс-бенчмарк для проверки рынка; без него
				// проверка просто пропускается
				var index models.MarketSeries
				if cfg.Strategy.IndexSymbol != "" {
					idx, err := provider.FetchDailySeries(ctx, cfg.Strategy.IndexSymbol, cfg.Backtest.LookbackDays)
					if err != nil {
						logger.Error("load index %s: %v", cfg.Strategy.IndexSymbol, err)
					} else {
						index = idx
					}
				}

				entries, riskMsg := gen.Generate(seriesByID, index)
				if riskMsg != "" {
					n.Sendf("⛔ Рынок в зоне риска, план не строится: %s", riskMsg)
					return
				}
				n.Send(plan.FormatPlan(entries))

				if cfg.PlanCSV != "" && len(entries) > 0 {
					if err := plan.SaveCSV(entries, cfg.PlanCSV); err != nil {
						logger.Error("save plan: %v", err)
						return
					}
					logger.Info("plan saved: %s (%d entries)", cfg.PlanCSV, len(entries))
				}
			}()
			return nil
		},
	})
}
