package risk

import (
	"fmt"
	"time"

	"quant_bot/internal/models"
	"quant_bot/internal/modules/config"
)

// Controller — портфельный гейт перед открытием позиции. Объединяет две
// независимые подсистемы: контроль просадки и лимиты число/отрасль.
// Только советует (вето на вход), принудительно ничего не закрывает.
type Controller struct {
	dd     *DrawdownController
	limits Limiter

	// Portfolio принадлежит контроллеру; мутации — только через
	// методы ниже, из сериализованного прохода оркестратора.
	Portfolio *models.PortfolioState
}

func NewController(cfg config.RiskConfig) *Controller {
	return &Controller{
		dd: NewDrawdownController(cfg),
		limits: Limiter{
			MaxPositions: cfg.MaxPositions,
			MaxPerSector: cfg.MaxPerSector,
		},
		Portfolio: models.NewPortfolioState(cfg.InitialCapital),
	}
}

// Update фиксирует капитал дня; вызывается ровно один раз в день.
func (c *Controller) Update(newCapital float64, asOf time.Time) (bool, string) {
	c.Portfolio.CurrentCapital = newCapital
	if newCapital > c.Portfolio.PeakCapital {
		c.Portfolio.PeakCapital = newCapital
	}
	st := c.dd.Update(newCapital, asOf)
	return st.CanTrade, st.Summary()
}

// AllowEntry — можно ли открыть новую позицию стоимостью positionValue
// при текущей открытой экспозиции openValue.
func (c *Controller) AllowEntry(sector string, positionValue, openValue float64) (bool, string) {
	st := c.dd.Last()
	if !st.CanTrade {
		return false, st.Summary()
	}
	if c.Portfolio.CurrentCapital > 0 {
		exposure := (openValue + positionValue) / c.Portfolio.CurrentCapital
		if exposure > st.MaxExposure {
			return false, fmt.Sprintf("exposure %.0f%% over cap %.0f%%", exposure*100, st.MaxExposure*100)
		}
	}
	return c.limits.Allow(c.Portfolio, sector)
}

// RiskScale — множитель размера позиции от месячной soft-линии.
func (c *Controller) RiskScale() float64 { return c.dd.Last().RiskScale }

// Drawdown — текущая просадка от пика.
func (c *Controller) Drawdown() float64 { return c.dd.Drawdown() }

func (c *Controller) LoadState(path string) error { return c.dd.LoadState(path) }
func (c *Controller) SaveState(path string) error { return c.dd.SaveState(path) }
