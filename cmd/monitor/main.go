package main

import (
	"context"
	"log"

	"go.uber.org/fx"

	"quant_bot/internal/modules/config"
	"quant_bot/internal/modules/postgres"
	"quant_bot/internal/monitor"
	"quant_bot/internal/notify"
	"quant_bot/internal/store"
	"quant_bot/pkg/logger"
)

func main() {
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	logger.SetServiceName("monitor")

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
			func(cfg *config.Config, st *store.Store) notify.Notifier {
				if cfg.Telegram.Token != "" && cfg.Telegram.ChatID != 0 {
					if tg, err := notify.NewTelegram(cfg.Telegram.Token, cfg.Telegram.ChatID, st); err == nil {
						return tg
					}
				}
				return notify.NewStdout()
			},
			func(st *store.Store) monitor.PositionSource { return st },
		),
		config.Module(),
		postgres.Module(),
		store.Module(),
		monitor.Module(),
		fx.Invoke(run),
	)
	app.Run()
}

func run(lc fx.Lifecycle, sd fx.Shutdowner, m *monitor.Monitor, st *store.Store, n notify.Notifier) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := st.Migrate(ctx); err != nil {
				return err
			}
			if tg, ok := n.(*notify.Telegram); ok {
				if err := tg.Start(ctx); err != nil {
					return err
				}
			}
			go func() {
				defer func() { _ = sd.Shutdown() }()
				if err := m.Run(ctx); err != nil && err != context.Canceled {
					logger.Error("monitor: %v", err)
				}
			}()
			log.Println("monitor started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if tg, ok := n.(*notify.Telegram); ok {
				tg.Stop()
			}
			log.Println("stopping...")
			return nil
		},
	})
}
