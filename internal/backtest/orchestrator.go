package backtest

import (
	"context"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"

	"quant_bot/internal/cost"
	"quant_bot/internal/indicator"
	"quant_bot/internal/models"
	"quant_bot/internal/modules/config"
	"quant_bot/internal/risk"
	"quant_bot/internal/stops"
	"quant_bot/internal/strategy"
	"quant_bot/pkg/logger"
)

// Runner гоняет валидатор + стоп-движок + модель издержек + риск-контроль
// по истории. Один Runner можно переиспользовать, всё состояние прогона
// живёт внутри Run.
type Runner struct {
	cfg       *config.Config
	validator *strategy.Validator
	stops     stops.Engine
	costs     cost.Model
}

func NewRunner(cfg *config.Config) *Runner {
	return &Runner{
		cfg:       cfg,
		validator: strategy.NewValidator(cfg.Strategy),
		stops:     stops.NewEngine(cfg.Stops),
		costs:     cost.NewModel(cfg.Cost),
	}
}

// symbolSim — состояние симуляции одного инструмента.
type symbolSim struct {
	series models.MarketSeries
	frame  *indicator.Frame
	// решения валидатора по индексам, считаются заранее и параллельно:
	// чистая функция фрейма
	triggered []bool
	byDate    map[int64]int // unix даты -> индекс свечи

	pos         *models.Position
	pendingExit models.ExitReason // выход, отложенный планкой вниз
	lastClose   float64           // для mark-to-market в дни без свечи
}

// Result — иммутабельный выход прогона.
type Result struct {
	Trades  []models.Trade
	Equity  models.EquityCurve
	Open    []models.Position // не закрытые к концу истории
	Skipped map[string]error  // инструменты, выпавшие из прогона
}

// Run — бэктест по набору инструментов с общим портфельным состоянием.
// Порядок обработки внутри дня детерминирован: сортировка по коду.
// Отказ одного инструмента не валит пакет.
func (r *Runner) Run(ctx context.Context, seriesByID map[string]models.MarketSeries) (*Result, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "backtest.run")
	defer span.Finish()

	res := &Result{Skipped: make(map[string]error)}

	warmup := r.cfg.Strategy.MAPeriod + 1
	if atrWarmup := r.cfg.Stops.ATRPeriod + 1; atrWarmup > warmup {
		warmup = atrWarmup
	}

	sims := r.prepare(ctx, seriesByID, res)
	if len(sims) == 0 {
		// ни одного пригодного инструмента — пустой результат, не ошибка
		logger.Error("backtest: no instruments survived validation")
		return res, nil
	}

	symbols := make([]string, 0, len(sims))
	for sym := range sims {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	span.SetTag("instruments", len(symbols))

	dates := unionDates(sims)

	rc := risk.NewController(r.cfg.Risk)
	if r.cfg.Risk.StateFile != "" {
		if err := rc.LoadState(r.cfg.Risk.StateFile); err != nil {
			logger.Error("backtest: load risk state: %v", err)
		}
	}
	cash := r.cfg.Risk.InitialCapital

	for _, d := range dates {
		day := time.Unix(d, 0).UTC()

		// 1) выходы по всем инструментам: закрытая позиция освобождает
		// слот и капитал в тот же день, до любых входов
		for _, sym := range symbols {
			cash = r.stepExit(sims[sym], d, day, rc, res, cash)
		}

		// 2) входы, в порядке кодов: исчерпание лимитов разрешается
		// воспроизводимо
		openValue := func() float64 { return openExposure(sims, symbols) }
		for _, sym := range symbols {
			cash = r.stepEntry(sims[sym], d, day, warmup, rc, cash, openValue)
		}

		// 3) капитал дня и единственный дневной апдейт риск-контроля
		capital := r.markCapital(sims, symbols, cash)
		res.Equity = append(res.Equity, models.EquityPoint{Date: day, Capital: capital})
		if allowed, msg := rc.Update(capital, day); !allowed {
			logger.Info("backtest %s: trading halted: %s", day.Format("2006-01-02"), msg)
		}
	}

	for _, sym := range symbols {
		if sims[sym].pos != nil {
			res.Open = append(res.Open, *sims[sym].pos)
		}
	}
	if r.cfg.Risk.StateFile != "" {
		if err := rc.SaveState(r.cfg.Risk.StateFile); err != nil {
			logger.Error("backtest: save risk state: %v", err)
		}
	}
	return res, nil
}

// prepare валидирует серии и параллельно считает фреймы и сигналы.
// Это чистая часть: общего состояния нет, поэтому fork-join безопасен.
func (r *Runner) prepare(ctx context.Context, seriesByID map[string]models.MarketSeries, res *Result) map[string]*symbolSim {
	type job struct {
		sym    string
		series models.MarketSeries
	}

	jobs := make(chan job)
	sims := make(map[string]*symbolSim)
	var mu sync.Mutex
	var wg sync.WaitGroup

	workers := r.cfg.Backtest.Workers
	if workers < 1 {
		workers = 1
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				sim := r.buildSim(j.series)
				mu.Lock()
				sims[j.sym] = sim
				mu.Unlock()
			}
		}()
	}

	for sym, series := range seriesByID {
		if err := series.Validate(); err != nil {
			logger.Error("backtest: skip %s: %v", sym, err)
			res.Skipped[sym] = err
			continue
		}
		select {
		case <-ctx.Done():
		case jobs <- job{sym: sym, series: series}:
		}
	}
	close(jobs)
	wg.Wait()
	return sims
}

func (r *Runner) buildSim(series models.MarketSeries) *symbolSim {
	frame := indicator.BuildFrame(series, r.cfg.Strategy.MAPeriod, r.cfg.Stops.ATRPeriod)
	sim := &symbolSim{
		series:    series,
		frame:     frame,
		triggered: make([]bool, series.Len()),
		byDate:    make(map[int64]int, series.Len()),
	}
	for i, c := range series.Candles {
		sim.byDate[c.Date.Unix()] = i
		sim.triggered[i] = r.validator.EvaluateAt(frame, i).Triggered
	}
	return sim
}

func (r *Runner) stepExit(sim *symbolSim, d int64, day time.Time, rc *risk.Controller, res *Result, cash float64) float64 {
	idx, ok := sim.byDate[d]
	if !ok || sim.pos == nil {
		return cash
	}
	candle := sim.series.Candles[idx]
	sim.lastClose = candle.Close

	// отложенный планкой выход: продаём по сегодняшнему открытию
	if sim.pendingExit != "" {
		reason := sim.pendingExit
		sim.pendingExit = ""
		return r.closePosition(sim, rc, res, reason, candle.Open, day, true, cash)
	}

	ev, exit := r.stops.Step(sim.pos, candle)
	if !exit {
		return cash
	}
	if r.cfg.Backtest.CNFrictions && idx > 0 &&
		isLimitDown(candle.Close, sim.series.Candles[idx-1].Close, r.cfg.Backtest.LimitThreshold) {
		// планка вниз: продать нельзя, переносим на следующий день
		sim.pendingExit = ev.Reason
		return cash
	}
	return r.closePosition(sim, rc, res, ev.Reason, ev.Price, day, false, cash)
}

func (r *Runner) closePosition(sim *symbolSim, rc *risk.Controller, res *Result, reason models.ExitReason, rawExit float64, day time.Time, deferred bool, cash float64) float64 {
	p := sim.pos
	exitNet, exitCost := r.costs.Fill(rawExit, false)

	gross := (exitNet - p.EntryPrice) * p.Shares
	net := gross - p.EntryCost*p.Shares - exitCost*p.Shares

	trade := models.Trade{
		ID:          uuid.NewString(),
		Symbol:      p.Symbol,
		Name:        p.Name,
		Sector:      p.Sector,
		EntryDate:   p.EntryDate,
		EntryPrice:  p.EntryPrice,
		ExitDate:    day,
		ExitPrice:   exitNet,
		ExitReason:  reason,
		Deferred:    deferred,
		Shares:      p.Shares,
		GrossPnL:    gross,
		NetPnL:      net,
		CostPaid:    (p.EntryCost + exitCost) * p.Shares,
		HoldingDays: int(day.Sub(p.EntryDate).Hours() / 24),
	}
	res.Trades = append(res.Trades, trade)

	p.Status = models.PositionClosed
	rc.Portfolio.RemovePosition(p.Sector)
	sim.pos = nil

	logger.Info("backtest %s: exit %s @ %.2f (%s) pnl=%.2f",
		day.Format("2006-01-02"), trade.Symbol, exitNet, reason, net)
	return cash + p.Shares*exitNet - p.Shares*exitCost
}

func (r *Runner) stepEntry(sim *symbolSim, d int64, day time.Time, warmup int, rc *risk.Controller, cash float64, openValue func() float64) float64 {
	idx, ok := sim.byDate[d]
	if !ok || sim.pos != nil || sim.pendingExit != "" {
		return cash
	}
	if idx < warmup || !sim.triggered[idx] {
		return cash
	}
	candle := sim.series.Candles[idx]
	sim.lastClose = candle.Close

	if r.cfg.Backtest.CNFrictions && idx > 0 &&
		isLimitUp(candle.Open, sim.series.Candles[idx-1].Close, r.cfg.Backtest.LimitThreshold) {
		// открылись по планке вверх — купить нереально
		return cash
	}

	alloc := rc.Portfolio.CurrentCapital * r.cfg.Risk.PositionRatio * rc.RiskScale()
	pos, outlay := r.OpenPosition(sim.series, sim.frame, idx, day, alloc, cash)
	if pos == nil {
		return cash
	}

	allowed, msg := rc.AllowEntry(pos.Sector, pos.Shares*pos.EntryPrice, openValue())
	if !allowed {
		logger.Info("backtest %s: entry %s rejected: %s", day.Format("2006-01-02"), pos.Symbol, msg)
		return cash
	}

	sim.pos = pos
	rc.Portfolio.AddPosition(pos.Sector)
	logger.Info("backtest %s: enter %s %.0f shares @ %.2f stop=%.2f tp=%.2f",
		day.Format("2006-01-02"), pos.Symbol, pos.Shares, pos.EntryPrice, pos.Stop, pos.TakeProfit)
	return cash - outlay
}

// OpenPosition строит позицию по сегодняшнему закрытию: размер лотами по
// 100 штук, стоп и тейк от чистой цены входа. nil — позицию открыть нельзя
// (не хватает денег даже на лот).
func (r *Runner) OpenPosition(series models.MarketSeries, frame *indicator.Frame, idx int, day time.Time, alloc, cash float64) (*models.Position, float64) {
	candle := series.Candles[idx]
	netPrice, entryCost := r.costs.Fill(candle.Close, true)
	perShare := netPrice + entryCost

	shares := math.Floor(alloc/perShare/100) * 100
	for shares >= 100 && shares*perShare > cash {
		shares -= 100
	}
	if shares < 100 {
		return nil, 0
	}

	ma := frame.MA[idx]
	stop := r.stops.InitialStop(netPrice, ma, series.Candles[:idx+1])
	pos := &models.Position{
		Symbol:     series.Symbol,
		Name:       series.Name,
		Sector:     series.Sector,
		EntryDate:  day,
		EntryPrice: netPrice,
		EntryCost:  entryCost,
		Shares:     shares,
		Stop:       stop,
		TakeProfit: r.stops.TakeProfit(netPrice),
		Highest:    netPrice,
		Status:     models.PositionOpen,
	}
	return pos, shares * perShare
}

// markCapital — капитал дня: деньги плюс открытые позиции.
// В режиме realized открытые позиции учитываются по цене входа.
func (r *Runner) markCapital(sims map[string]*symbolSim, symbols []string, cash float64) float64 {
	capital := cash
	for _, sym := range symbols {
		sim := sims[sym]
		if sim.pos == nil {
			continue
		}
		if r.cfg.Backtest.EquityMode == config.EquityRealized {
			capital += sim.pos.Value(sim.pos.EntryPrice)
			continue
		}
		price := sim.lastClose
		if price <= 0 {
			price = sim.pos.EntryPrice
		}
		capital += sim.pos.Value(price)
	}
	return capital
}

func openExposure(sims map[string]*symbolSim, symbols []string) float64 {
	var total float64
	for _, sym := range symbols {
		sim := sims[sym]
		if sim.pos == nil {
			continue
		}
		price := sim.lastClose
		if price <= 0 {
			price = sim.pos.EntryPrice
		}
		total += sim.pos.Value(price)
	}
	return total
}

func unionDates(sims map[string]*symbolSim) []int64 {
	seen := make(map[int64]struct{})
	for _, sim := range sims {
		for d := range sim.byDate {
			seen[d] = struct{}{}
		}
	}
	dates := make([]int64, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i] < dates[j] })
	return dates
}

func isLimitUp(open, prevClose, threshold float64) bool {
	return prevClose > 0 && open >= prevClose*(1+threshold)
}

func isLimitDown(close, prevClose, threshold float64) bool {
	return prevClose > 0 && close <= prevClose*(1-threshold)
}
