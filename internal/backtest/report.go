package backtest

import (
	"fmt"
	"math"
	"strings"
)

// FormatReport — текстовый отчёт прогона, годится и для консоли,
// и для телеграма.
func FormatReport(res *Result) string {
	m := ComputeMetrics(res)

	var b strings.Builder
	b.WriteString("📊 Отчёт по бэктесту\n")
	b.WriteString(strings.Repeat("=", 32) + "\n")
	fmt.Fprintf(&b, "Сделок:            %d\n", m.TotalTrades)
	fmt.Fprintf(&b, "Win rate:          %.1f%%\n", m.WinRate*100)
	if math.IsInf(m.ProfitFactor, 1) {
		b.WriteString("Profit factor:     ∞\n")
	} else {
		fmt.Fprintf(&b, "Profit factor:     %.2f\n", m.ProfitFactor)
	}
	fmt.Fprintf(&b, "Ср. удержание:     %.1f дн.\n", m.AvgHolding)
	fmt.Fprintf(&b, "Доходность:        %.2f%%\n", m.TotalReturn*100)
	fmt.Fprintf(&b, "Макс. просадка:    %.2f%%\n", m.MaxDrawdown*100)
	fmt.Fprintf(&b, "Sharpe:            %.2f\n", m.Sharpe)
	fmt.Fprintf(&b, "Sortino:           %.2f\n", m.Sortino)
	fmt.Fprintf(&b, "Calmar:            %.2f\n", m.Calmar)
	fmt.Fprintf(&b, "VaR 95%%:           %.2f%%\n", m.VaR95*100)

	if len(res.Open) > 0 {
		b.WriteString("\n📌 Открытые позиции:\n")
		for _, p := range res.Open {
			fmt.Fprintf(&b, "  %s %s: %.0f шт. @ %.2f, стоп %.2f\n",
				p.Symbol, p.Name, p.Shares, p.EntryPrice, p.Stop)
		}
	}
	if len(res.Skipped) > 0 {
		fmt.Fprintf(&b, "\n⚠️ Пропущено инструментов: %d\n", len(res.Skipped))
	}
	return b.String()
}
