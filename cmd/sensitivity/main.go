package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/viper"

	"quant_bot/internal/backtest"
	"quant_bot/internal/marketdata"
	"quant_bot/internal/modules/config"
	"quant_bot/pkg/logger"
)

// Перебор параметров стратегии по сетке из configs/sensitivity.yaml.
// Каждая комбинация гоняется отдельным прогоном на одних и тех же данных,
// результаты сортируются по доходности.

type combo struct {
	stopLoss   float64
	takeProfit float64
	trailing   float64
	votes      int
}

type outcome struct {
	combo
	metrics backtest.Metrics
}

func main() {
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}
	logger.SetServiceName("sensitivity")

	viper.SetConfigName("sensitivity")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	if err := viper.ReadInConfig(); err != nil {
		panic(fmt.Errorf("fatal error config file: %w", err))
	}

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()

	provider := marketdata.NewProvider(cfg)
	seriesByID, skipped := marketdata.LoadAll(ctx, provider, cfg)
	for sym, err := range skipped {
		logger.Error("load %s: %v", sym, err)
	}
	if len(seriesByID) == 0 {
		log.Fatal("no market data for sweep")
	}

	combos := buildGrid(cfg)
	logger.Info("sweep: %d combinations over %d instruments", len(combos), len(seriesByID))

	outcomes := make([]outcome, 0, len(combos))
	for _, c := range combos {
		run := *cfg
		run.Stops.StopLossRatio = c.stopLoss
		run.Stops.TakeProfitRatio = c.takeProfit
		run.Stops.TrailingRatio = c.trailing
		run.Strategy.RequiredVotes = c.votes
		run.Risk.StateFile = "" // прогоны сетки не трогают общий стейт

		res, err := backtest.NewRunner(&run).Run(ctx, seriesByID)
		if err != nil {
			logger.Error("sweep run: %v", err)
			continue
		}
		outcomes = append(outcomes, outcome{combo: c, metrics: backtest.ComputeMetrics(res)})
	}

	sort.Slice(outcomes, func(i, j int) bool {
		return outcomes[i].metrics.TotalReturn > outcomes[j].metrics.TotalReturn
	})
	printTable(outcomes)
}

func buildGrid(cfg *config.Config) []combo {
	stops := floatsOr("grid.stop_loss_ratio", cfg.Stops.StopLossRatio)
	takes := floatsOr("grid.take_profit_ratio", cfg.Stops.TakeProfitRatio)
	trails := floatsOr("grid.trailing_ratio", cfg.Stops.TrailingRatio)
	votes := intsOr("grid.required_votes", cfg.Strategy.RequiredVotes)

	var combos []combo
	for _, sl := range stops {
		for _, tp := range takes {
			for _, tr := range trails {
				for _, v := range votes {
					combos = append(combos, combo{stopLoss: sl, takeProfit: tp, trailing: tr, votes: v})
				}
			}
		}
	}
	return combos
}

func floatsOr(key string, fallback float64) []float64 {
	if vals := viperFloats(key); len(vals) > 0 {
		return vals
	}
	return []float64{fallback}
}

func viperFloats(key string) []float64 {
	raw := viper.Get(key)
	items, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	out := make([]float64, 0, len(items))
	for _, it := range items {
		switch v := it.(type) {
		case float64:
			out = append(out, v)
		case int:
			out = append(out, float64(v))
		}
	}
	return out
}

func intsOr(key string, fallback int) []int {
	vals := viper.GetIntSlice(key)
	if len(vals) == 0 {
		return []int{fallback}
	}
	return vals
}

func printTable(outcomes []outcome) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "stop\ttake\ttrail\tvotes\ttrades\twin%\treturn%\tmaxDD%\tsharpe")
	for _, o := range outcomes {
		fmt.Fprintf(w, "%.2f\t%.2f\t%.2f\t%d\t%d\t%.1f\t%.2f\t%.2f\t%.2f\n",
			o.stopLoss, o.takeProfit, o.trailing, o.votes,
			o.metrics.TotalTrades, o.metrics.WinRate*100,
			o.metrics.TotalReturn*100, o.metrics.MaxDrawdown*100, o.metrics.Sharpe)
	}
	_ = w.Flush()
}
