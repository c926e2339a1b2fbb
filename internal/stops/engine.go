package stops

import (
	"quant_bot/internal/indicator"
	"quant_bot/internal/models"
	"quant_bot/internal/modules/config"
)

// ExitEvent — результат дневного шага позиции: максимум одно событие в день.
type ExitEvent struct {
	Reason models.ExitReason
	Price  float64 // сырая цена выхода, до модели издержек
}

// Engine считает уровни выхода и гоняет позицию по дневному автомату
// OPEN -> CLOSED. Состояния не хранит, всё в Position.
type Engine struct {
	cfg config.StopConfig
}

func NewEngine(cfg config.StopConfig) Engine {
	return Engine{cfg: cfg}
}

// InitialStop — стоп на входе: максимум из трёх кандидатов.
//
//	A: фиксированный, entry*(1-stop_loss_ratio)
//	B: чуть ниже короткой MA, ma*0.99
//	C: entry - k*ATR по истории ДО входа; при нехватке истории
//	   кандидат опускается, а не берётся нулём
//
// Берём максимум — самый близкий к входу, он срабатывает раньше
// и режет убыток жёстче.
func (e Engine) InitialStop(entryPrice, maShort float64, prior []models.Candle) float64 {
	stop := entryPrice * (1 - e.cfg.StopLossRatio)
	if maStop := maShort * 0.99; maStop > stop {
		stop = maStop
	}
	if atr, ok := indicator.ATRLatest(prior, e.cfg.ATRPeriod); ok {
		if atrStop := entryPrice - e.cfg.ATRMultiplier*atr; atrStop > stop {
			stop = atrStop
		}
	}
	return stop
}

// TakeProfit фиксируется на входе и не пересчитывается.
func (e Engine) TakeProfit(entryPrice float64) float64 {
	return entryPrice * (1 + e.cfg.TakeProfitRatio)
}

// Step — один симулируемый день позиции. Условия проверяются в жёстком
// порядке (стоп > тейк > трейлинг), первый матч выигрывает, так что
// причина выхода за день ровно одна. Если выхода нет, ратчет Highest.
func (e Engine) Step(p *models.Position, day models.Candle) (ExitEvent, bool) {
	if p.Status != models.PositionOpen {
		return ExitEvent{}, false
	}

	// 1. стоп-лосс
	if day.Close <= p.Stop {
		return ExitEvent{Reason: models.ExitStopLoss, Price: p.Stop}, true
	}

	// 2. тейк-профит
	if day.Close >= p.TakeProfit {
		return ExitEvent{Reason: models.ExitTakeProfit, Price: p.TakeProfit}, true
	}

	// 3. трейлинг — только после активации по максимуму с входа
	if p.Highest >= p.EntryPrice*(1+e.cfg.TrailingActivation) {
		trail := p.Highest * (1 - e.cfg.TrailingRatio)
		if day.Close <= trail {
			return ExitEvent{Reason: models.ExitTrailing, Price: trail}, true
		}
	}

	if day.Close > p.Highest {
		p.Highest = day.Close
	}
	return ExitEvent{}, false
}
