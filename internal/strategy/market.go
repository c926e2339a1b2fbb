package strategy

import (
	"fmt"

	"quant_bot/internal/indicator"
	"quant_bot/internal/models"
)

// CheckMarketRisk — проверка рынка по индексу: закрытие под длинной MA
// означает плохую среду, новые входы лучше не делать.
// При нехватке данных риска не объявляем.
func CheckMarketRisk(index models.MarketSeries, maPeriod int) (bool, string) {
	if index.Len() < maPeriod {
		return false, "index history too short, market check skipped"
	}
	closes := make([]float64, index.Len())
	for i, c := range index.Candles {
		closes[i] = c.Close
	}
	ma := indicator.SMA(closes, maPeriod)
	last := index.Len() - 1
	if !indicator.Ready(ma[last]) {
		return false, "index ma not ready, market check skipped"
	}
	if index.Candles[last].Close < ma[last] {
		return true, fmt.Sprintf("index %.2f below MA%d %.2f, new entries disabled",
			index.Candles[last].Close, maPeriod, ma[last])
	}
	return false, fmt.Sprintf("index %.2f above MA%d %.2f", index.Candles[last].Close, maPeriod, ma[last])
}
