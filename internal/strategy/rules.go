package strategy

import (
	"quant_bot/internal/indicator"
	"quant_bot/internal/modules/config"
)

// ruleMomentum: close над MA, объём раздут против вчерашнего,
// но цена не улетела от MA дальше max_deviation.
func ruleMomentum(cfg config.StrategyConfig, f *indicator.Frame, i int) bool {
	if i < 1 || !indicator.Ready(f.MA[i]) {
		return false
	}
	latest, prev := f.Candle(i), f.Candle(i-1)
	ma := f.MA[i]

	priceAboveMA := latest.Close > ma
	volumeIncrease := latest.Volume > prev.Volume*cfg.VolumeThreshold
	priceNotTooHigh := latest.Close <= ma*(1+cfg.MaxDeviation)

	return priceAboveMA && volumeIncrease && priceNotTooHigh
}

// ruleBreakout: пробой с откатом — 4 дня подряд над MA,
// пятый откатился, но не глубже 1% под неё.
func ruleBreakout(cfg config.StrategyConfig, f *indicator.Frame, i int) bool {
	if i < 4 {
		return false
	}
	for j := i - 4; j < i; j++ {
		if !indicator.Ready(f.MA[j]) || f.Candle(j).Close <= f.MA[j] {
			return false
		}
	}
	if !indicator.Ready(f.MA[i]) {
		return false
	}
	return f.Candle(i).Close > f.MA[i]*0.99
}

// ruleVolumePriceHealth: фильтр дивергенции — запрещает вход,
// только когда цена выросла на падающем (>10%) объёме.
func ruleVolumePriceHealth(_ config.StrategyConfig, f *indicator.Frame, i int) bool {
	if i < 1 {
		return false
	}
	latest, prev := f.Candle(i), f.Candle(i-1)
	priceUp := latest.Close > prev.Close
	volumeDown := latest.Volume < prev.Volume*0.9
	return !(priceUp && volumeDown)
}
