package backtest

import (
	"math"
	"sort"

	"quant_bot/internal/indicator"
)

const (
	tradingDaysPerYear = 252
	riskFreeRate       = 0.03
)

// Metrics — сводка прогона. Все доли в абсолютных значениях (0.15 = 15%).
type Metrics struct {
	TotalTrades  int
	WinRate      float64
	ProfitFactor float64
	AvgHolding   float64
	TotalReturn  float64
	MaxDrawdown  float64
	Sharpe       float64
	Sortino      float64
	Calmar       float64
	VaR95        float64
}

// ComputeMetrics считает сводку по закрытым сделкам и кривой капитала.
// Пустой результат даёт нулевую сводку, без паник.
func ComputeMetrics(res *Result) Metrics {
	var m Metrics
	m.TotalTrades = len(res.Trades)

	var wins int
	var grossProfit, grossLoss, holding float64
	for _, t := range res.Trades {
		if t.Win() {
			wins++
			grossProfit += t.NetPnL
		} else {
			grossLoss += -t.NetPnL
		}
		holding += float64(t.HoldingDays)
	}
	if m.TotalTrades > 0 {
		m.WinRate = float64(wins) / float64(m.TotalTrades)
		m.AvgHolding = holding / float64(m.TotalTrades)
	}
	if grossLoss > 0 {
		m.ProfitFactor = grossProfit / grossLoss
	} else if grossProfit > 0 {
		m.ProfitFactor = math.Inf(1)
	}

	if res.Equity.Len() < 2 {
		return m
	}
	first := res.Equity[0].Capital
	last := res.Equity.Last().Capital
	if first > 0 {
		m.TotalReturn = last/first - 1
	}

	values := make([]float64, res.Equity.Len())
	for i, p := range res.Equity {
		values[i] = p.Capital
	}
	m.MaxDrawdown = indicator.MaxDrawdown(values)

	returns := res.Equity.Returns()
	m.Sharpe = sharpe(returns)
	m.Sortino = sortino(returns)
	m.VaR95 = valueAtRisk(returns, 0.95)

	years := float64(res.Equity.Len()) / tradingDaysPerYear
	if years > 0 && m.MaxDrawdown > 0 {
		annual := math.Pow(1+m.TotalReturn, 1/years) - 1
		m.Calmar = annual / m.MaxDrawdown
	}
	return m
}

func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	excess := riskFreeRate / tradingDaysPerYear
	mean := meanOf(returns)
	sd := indicator.Volatility(returns)
	if sd == 0 {
		return 0
	}
	return (mean - excess) / sd * math.Sqrt(tradingDaysPerYear)
}

// sortino аналогичен sharpe, но штрафует только отрицательные дни.
func sortino(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	excess := riskFreeRate / tradingDaysPerYear
	mean := meanOf(returns)

	var downside float64
	var n int
	for _, r := range returns {
		if r < 0 {
			downside += r * r
			n++
		}
	}
	if n == 0 {
		return 0
	}
	dd := math.Sqrt(downside / float64(n))
	if dd == 0 {
		return 0
	}
	return (mean - excess) / dd * math.Sqrt(tradingDaysPerYear)
}

// valueAtRisk — исторический VaR: квантиль дневных доходностей,
// возвращается как положительная величина потерь.
func valueAtRisk(returns []float64, confidence float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	sorted := make([]float64, len(returns))
	copy(sorted, returns)
	sort.Float64s(sorted)

	idx := int(float64(len(sorted)) * (1 - confidence))
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	v := sorted[idx]
	if v >= 0 {
		return 0
	}
	return -v
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
