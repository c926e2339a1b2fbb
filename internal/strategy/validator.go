package strategy

import (
	"fmt"

	"quant_bot/internal/indicator"
	"quant_bot/internal/models"
	"quant_bot/internal/modules/config"
)

// rule — независимый булев предикат над фреймом на индексе i.
// Правило, которому не хватает данных, возвращает false и никогда не падает.
type rule struct {
	name  models.RuleName
	check func(cfg config.StrategyConfig, f *indicator.Frame, i int) bool
}

// Validator — композитный валидатор входа: сигнал срабатывает, когда
// набирается кворум required_votes из независимых правил.
type Validator struct {
	cfg   config.StrategyConfig
	rules []rule
}

func NewValidator(cfg config.StrategyConfig) *Validator {
	return &Validator{
		cfg: cfg,
		// порядок фиксирован только для детерминизма списка Rules,
		// на решение он не влияет
		rules: []rule{
			{models.RuleMomentum, ruleMomentum},
			{models.RuleBreakout, ruleBreakout},
			{models.RuleVolumePrice, ruleVolumePriceHealth},
		},
	}
}

// Evaluate оценивает последний день фрейма.
func (v *Validator) Evaluate(f *indicator.Frame) models.Signal {
	return v.EvaluateAt(f, f.Len()-1)
}

// EvaluateAt оценивает фрейм по состоянию на индекс i (без заглядывания
// вперёд). Недостаток истории — не ошибка: возвращается несработавший
// сигнал с пустым списком правил.
func (v *Validator) EvaluateAt(f *indicator.Frame, i int) models.Signal {
	sig := models.Signal{Symbol: f.Series.Symbol}
	if i < 0 || i >= f.Len() {
		return sig
	}
	day := f.Candle(i)
	sig.Date = day.Date
	sig.Price = day.Close

	// нужно минимум lookback+1 дней
	if i+1 < v.cfg.MAPeriod+1 {
		return sig
	}

	for _, r := range v.rules {
		if r.check(v.cfg, f, i) {
			sig.Rules = append(sig.Rules, r.name)
		}
	}
	sig.Triggered = len(sig.Rules) >= v.cfg.RequiredVotes
	if sig.Triggered {
		sig.Reason = fmt.Sprintf("votes=%d/%d rules=%v close=%.2f ma=%.2f",
			len(sig.Rules), len(v.rules), sig.Rules, day.Close, f.MA[i])
	}
	return sig
}
