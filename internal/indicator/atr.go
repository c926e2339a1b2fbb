package indicator

import (
	"math"

	"quant_bot/internal/models"
)

// trueRange для свечи i (i >= 1): max(H-L, |H-prevC|, |L-prevC|).
func trueRange(cur, prev models.Candle) float64 {
	hl := cur.High - cur.Low
	hc := math.Abs(cur.High - prev.Close)
	lc := math.Abs(cur.Low - prev.Close)
	return math.Max(hl, math.Max(hc, lc))
}

// ATR — средний истинный диапазон, скользящее среднее TR за period.
// Значение по индексу i считается только из свечей <= i; до прогрева NaN.
func ATR(candles []models.Candle, period int) []float64 {
	out := make([]float64, len(candles))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(candles) < period+1 {
		return out
	}
	tr := make([]float64, len(candles))
	for i := 1; i < len(candles); i++ {
		tr[i] = trueRange(candles[i], candles[i-1])
	}
	var sum float64
	for i := 1; i < len(candles); i++ {
		sum += tr[i]
		if i > period {
			sum -= tr[i-period]
		}
		if i >= period {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// ATRLatest — последний ATR по истории. ok=false, если истории меньше
// period+1 свечей (кандидат просто опускается, а не считается нулём).
func ATRLatest(candles []models.Candle, period int) (float64, bool) {
	if len(candles) < period+1 {
		return 0, false
	}
	var sum float64
	for i := len(candles) - period; i < len(candles); i++ {
		sum += trueRange(candles[i], candles[i-1])
	}
	return sum / float64(period), true
}
