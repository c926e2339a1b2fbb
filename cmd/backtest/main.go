package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/fx"

	"quant_bot/internal/backtest"
	"quant_bot/internal/marketdata"
	"quant_bot/internal/modules/config"
	"quant_bot/internal/notify"
	"quant_bot/internal/store"
	"quant_bot/pkg/db"
	"quant_bot/pkg/logger"
	"quant_bot/pkg/tracing"
)

func main() {
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	logger.SetServiceName("backtest")
	tracing.SetServiceName("backtest")

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
			// Notifier: если TELEGRAM_* нет — используем stdout
			func(cfg *config.Config) notify.Notifier {
				if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
					if tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, nil); err == nil {
						return tg
					}
				}
				return notify.NewStdout()
			},
			// журнал опционален: без DSN гоняем без базы
			func(ctx context.Context, cfg *config.Config) (*store.Store, error) {
				if cfg.DB == "" {
					return nil, nil
				}
				pool, err := db.NewPool(ctx, db.PoolConfig{DSN: cfg.DB})
				if err != nil {
					return nil, err
				}
				return store.NewStore(db.NewPgTxManager(pool)), nil
			},
		),
		config.Module(),
		marketdata.Module(),
		backtest.Module(),
		fx.Invoke(run),
	)
	app.Run()
}

func run(lc fx.Lifecycle, sd fx.Shutdowner, cfg *config.Config, provider marketdata.Provider, runner *backtest.Runner, n notify.Notifier, st *store.Store) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() { _ = sd.Shutdown() }()

				closeTracer, err := initTracer(cfg)
				if err != nil {
					logger.Error("init tracer: %v", err)
				} else {
					defer closeTracer()
				}

				seriesByID, skipped := marketdata.LoadAll(ctx, provider, cfg)
				for sym, err := range skipped {
					logger.Error("load %s: %v", sym, err)
				}

				res, err := runner.Run(ctx, seriesByID)
				if err != nil {
					logger.Error("backtest: %v", err)
					return
				}

				report := backtest.FormatReport(res)
				n.Send(report)

				if st != nil {
					if err := st.Migrate(ctx); err != nil {
						logger.Error("migrate: %v", err)
						return
					}
					if err := st.SaveTrades(ctx, res.Trades); err != nil {
						logger.Error("save trades: %v", err)
					}
					// вышедшие за прогон позиции убираем из журнала,
					// живой остаётся только открытый хвост
					for _, tr := range res.Trades {
						if err := st.ClosePosition(ctx, tr.Symbol); err != nil {
							logger.Error("close position %s: %v", tr.Symbol, err)
						}
					}
					for _, p := range res.Open {
						if err := st.UpsertPosition(ctx, p); err != nil {
							logger.Error("save position %s: %v", p.Symbol, err)
						}
					}
					if err := st.SaveRun(ctx, time.Now(), backtest.ComputeMetrics(res)); err != nil {
						logger.Error("save run: %v", err)
					}
				}
			}()
			return nil
		},
	})
}

func initTracer(cfg *config.Config) (func(), error) {
	_, closer, err := tracing.InitTracer(tracing.Config{
		Host: cfg.Jaeger.Host,
		Port: cfg.Jaeger.Port,
	})
	return closer, err
}
