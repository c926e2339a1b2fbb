package risk

import (
	"fmt"
	"strings"
	"time"

	"quant_bot/internal/modules/config"
)

// State — выход контроллера просадки за один день.
type State struct {
	CanTrade        bool
	RiskScale       float64 // множитель размера позиции (месячная soft-линия)
	MaxExposure     float64 // лимит доли открытых позиций в капитале
	TotalDrawdown   float64
	MonthlyDrawdown float64
	Reasons         []string
	AsOf            time.Time
}

func (s State) Summary() string {
	reasons := "none"
	if len(s.Reasons) > 0 {
		reasons = strings.Join(s.Reasons, "; ")
	}
	return fmt.Sprintf("dd=%.1f%% monthly=%.1f%% scale=%.2f exposure<=%.0f%% trade=%v reasons: %s",
		s.TotalDrawdown*100, s.MonthlyDrawdown*100, s.RiskScale, s.MaxExposure*100, s.CanTrade, reasons)
}

// DrawdownController ведёт пик капитала и решает, можно ли открывать новые
// позиции. Только запрещает входы — существующие позиции не трогает,
// их судьба целиком у стоп-движка.
type DrawdownController struct {
	cfg config.RiskConfig

	peak    float64
	current float64

	monthStartCapital float64
	monthStartDate    time.Time
	pausedUntil       time.Time

	last State
}

func NewDrawdownController(cfg config.RiskConfig) *DrawdownController {
	return &DrawdownController{
		cfg:               cfg,
		peak:              cfg.InitialCapital,
		current:           cfg.InitialCapital,
		monthStartCapital: cfg.InitialCapital,
		last:              State{CanTrade: true, RiskScale: 1, MaxExposure: 1},
	}
}

// Drawdown — текущая доля отката от пика.
func (c *DrawdownController) Drawdown() float64 {
	if c.peak <= 0 {
		return 0
	}
	return (c.peak - c.current) / c.peak
}

func (c *DrawdownController) monthlyDrawdown() float64 {
	if c.monthStartCapital <= 0 {
		return 0
	}
	return (c.monthStartCapital - c.current) / c.monthStartCapital
}

func (c *DrawdownController) maybeResetMonth(asOf time.Time) {
	if c.monthStartDate.IsZero() {
		// первый апдейт: база месяца уже выставлена конструктором
		// или снапшотом
		c.monthStartDate = asOf
		return
	}
	if c.monthStartDate.Year() != asOf.Year() || c.monthStartDate.Month() != asOf.Month() {
		c.monthStartDate = asOf
		c.monthStartCapital = c.current
	}
}

// Update — чистый переход состояния, вызывается максимум раз в
// симулируемый день. Пик монотонен: никогда не уменьшается.
func (c *DrawdownController) Update(newCapital float64, asOf time.Time) State {
	c.current = newCapital
	c.maybeResetMonth(asOf)
	if newCapital > c.peak {
		c.peak = newCapital
	}

	totalDD := c.Drawdown()
	monthlyDD := c.monthlyDrawdown()

	st := State{
		CanTrade:        true,
		RiskScale:       1,
		MaxExposure:     1,
		TotalDrawdown:   totalDD,
		MonthlyDrawdown: monthlyDD,
		AsOf:            asOf,
	}

	// ступени общей просадки
	switch {
	case totalDD >= c.cfg.MaxDrawdownHard:
		st.CanTrade = false
		st.MaxExposure = 0
		st.Reasons = append(st.Reasons, fmt.Sprintf("total drawdown %.1f%% over hard ceiling %.0f%%",
			totalDD*100, c.cfg.MaxDrawdownHard*100))
	case totalDD >= c.cfg.ReduceLevel2:
		st.MaxExposure = c.cfg.ReduceTargetL2
		st.Reasons = append(st.Reasons, fmt.Sprintf("total drawdown %.1f%% hit reduce level 2", totalDD*100))
	case totalDD >= c.cfg.ReduceLevel1:
		st.MaxExposure = c.cfg.ReduceTargetL1
		st.Reasons = append(st.Reasons, fmt.Sprintf("total drawdown %.1f%% hit reduce level 1", totalDD*100))
	}

	// месячные линии
	if c.cfg.MonthlySoft > 0 && monthlyDD >= c.cfg.MonthlySoft {
		if c.cfg.MonthlyRiskScale < st.RiskScale {
			st.RiskScale = c.cfg.MonthlyRiskScale
		}
		st.Reasons = append(st.Reasons, fmt.Sprintf("monthly drawdown %.1f%% hit soft line", monthlyDD*100))
	}
	if c.cfg.MonthlyHard > 0 && monthlyDD >= c.cfg.MonthlyHard {
		st.CanTrade = false
		c.pausedUntil = asOf.AddDate(0, 0, c.cfg.MonthlyCooldownDays)
		st.Reasons = append(st.Reasons, fmt.Sprintf("monthly drawdown %.1f%% hit hard line", monthlyDD*100))
	}
	if !c.pausedUntil.IsZero() && !asOf.After(c.pausedUntil) {
		st.CanTrade = false
		st.Reasons = append(st.Reasons, fmt.Sprintf("monthly cooldown until %s", c.pausedUntil.Format("2006-01-02")))
	}

	c.last = st
	return st
}

// Last — состояние после последнего Update.
func (c *DrawdownController) Last() State { return c.last }
