package plan

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"quant_bot/internal/cost"
	"quant_bot/internal/indicator"
	"quant_bot/internal/models"
	"quant_bot/internal/modules/config"
	"quant_bot/internal/stops"
	"quant_bot/internal/strategy"
)

// Entry — строка торгового плана на завтра: что покупать, сколько
// и где выходить.
type Entry struct {
	Symbol     string
	Name       string
	Sector     string
	Date       time.Time
	Price      float64
	Stop       float64
	TakeProfit float64
	Shares     float64
	Amount     float64
	Reason     string
}

// Generator прогоняет валидатор по свежим данным и из сработавших
// сигналов собирает план входов с уровнями от стоп-движка.
type Generator struct {
	cfg       *config.Config
	validator *strategy.Validator
	stops     stops.Engine
	costs     cost.Model
}

func NewGenerator(cfg *config.Config) *Generator {
	return &Generator{
		cfg:       cfg,
		validator: strategy.NewValidator(cfg.Strategy),
		stops:     stops.NewEngine(cfg.Stops),
		costs:     cost.NewModel(cfg.Cost),
	}
}

// Generate — план по последнему дню каждой серии, отсортированный по коду.
// Капитал берётся из конфига риска, размер лотами по 100 штук.
// Сначала проверяется рынок по индексу: под длинной MA план не строится,
// вторым значением возвращается причина отказа (пустая в норме).
func (g *Generator) Generate(seriesByID map[string]models.MarketSeries, index models.MarketSeries) ([]Entry, string) {
	if risky, msg := strategy.CheckMarketRisk(index, g.cfg.Strategy.IndexMAPeriod); risky {
		return nil, msg
	}

	var entries []Entry
	alloc := g.cfg.Risk.InitialCapital * g.cfg.Risk.PositionRatio

	for _, series := range seriesByID {
		if err := series.Validate(); err != nil {
			continue
		}
		frame := indicator.BuildFrame(series, g.cfg.Strategy.MAPeriod, g.cfg.Stops.ATRPeriod)
		sig := g.validator.Evaluate(frame)
		if !sig.Triggered {
			continue
		}

		last := series.Last()
		netPrice, entryCost := g.costs.Fill(last.Close, true)
		shares := math.Floor(alloc/(netPrice+entryCost)/100) * 100
		if shares < 100 {
			continue
		}

		ma := frame.MA[frame.Len()-1]
		entries = append(entries, Entry{
			Symbol:     series.Symbol,
			Name:       series.Name,
			Sector:     series.Sector,
			Date:       last.Date,
			Price:      last.Close,
			Stop:       g.stops.InitialStop(netPrice, ma, series.Tail(g.cfg.Stops.ATRPeriod+1)),
			TakeProfit: g.stops.TakeProfit(netPrice),
			Shares:     shares,
			Amount:     shares * (netPrice + entryCost),
			Reason:     sig.Reason,
		})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Symbol < entries[j].Symbol })
	return entries, ""
}

// SaveCSV пишет план в файл, заголовок плюс строка на инструмент.
func SaveCSV(entries []Entry, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "create %s", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"date", "symbol", "name", "sector", "price", "stop", "take_profit", "shares", "amount", "reason"}); err != nil {
		return errors.Wrap(err, "write header")
	}
	for _, e := range entries {
		row := []string{
			e.Date.Format("2006-01-02"),
			e.Symbol,
			e.Name,
			e.Sector,
			formatFloat(e.Price),
			formatFloat(e.Stop),
			formatFloat(e.TakeProfit),
			strconv.Itoa(int(e.Shares)),
			formatFloat(e.Amount),
			e.Reason,
		}
		if err := w.Write(row); err != nil {
			return errors.Wrapf(err, "write row %s", e.Symbol)
		}
	}
	w.Flush()
	return errors.Wrap(w.Error(), "flush csv")
}

// FormatPlan — текст плана для консоли и телеграма.
func FormatPlan(entries []Entry) string {
	if len(entries) == 0 {
		return "📭 Сигналов на завтра нет"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📋 План на завтра: %d кандидатов\n", len(entries))
	for _, e := range entries {
		fmt.Fprintf(&b, "• %s %s (%s)\n  цена %.2f, стоп %.2f, тейк %.2f, %d шт. ≈ %.0f\n  %s\n",
			e.Symbol, e.Name, e.Sector, e.Price, e.Stop, e.TakeProfit, int(e.Shares), e.Amount, e.Reason)
	}
	return b.String()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
