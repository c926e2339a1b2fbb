package models

import "time"

// RuleName — имя правила композитного валидатора.
type RuleName string

const (
	RuleMomentum    RuleName = "momentum"
	RuleBreakout    RuleName = "breakout_confirmation"
	RuleVolumePrice RuleName = "volume_price_health"
)

// Signal — решение валидатора на один день. Не персистится,
// пересчитывается каждый день заново.
type Signal struct {
	Symbol    string
	Date      time.Time
	Triggered bool
	Rules     []RuleName // сработавшие правила, фиксированный порядок
	Price     float64    // цена закрытия на момент сигнала
	Reason    string
}

func (s Signal) HasRule(r RuleName) bool {
	for _, name := range s.Rules {
		if name == r {
			return true
		}
	}
	return false
}
