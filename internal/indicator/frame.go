package indicator

import "quant_bot/internal/models"

// Frame — серия, дополненная производными рядами. Все ряды выровнены
// по индексу со свечами; значение в точке i не видит будущего.
type Frame struct {
	Series models.MarketSeries
	MA     []float64 // сигнальная MA по close
	ATR    []float64
}

func (f *Frame) Len() int { return f.Series.Len() }

// Candle — свеча по индексу.
func (f *Frame) Candle(i int) models.Candle { return f.Series.Candles[i] }

// BuildFrame считает производные ряды один раз на серию.
func BuildFrame(series models.MarketSeries, maPeriod, atrPeriod int) *Frame {
	closes := make([]float64, series.Len())
	for i, c := range series.Candles {
		closes[i] = c.Close
	}
	return &Frame{
		Series: series,
		MA:     SMA(closes, maPeriod),
		ATR:    ATR(series.Candles, atrPeriod),
	}
}
