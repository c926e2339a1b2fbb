package risk

import (
	"fmt"

	"quant_bot/internal/models"
)

// Limiter — лимиты на число позиций: общий и по отрасли.
// Чистая проверка по PortfolioState, сама состояние не мутирует —
// счётчики двигает оркестратор при фактическом открытии/закрытии.
type Limiter struct {
	MaxPositions int
	MaxPerSector int
}

func (l Limiter) Allow(ps *models.PortfolioState, sector string) (bool, string) {
	if ps.OpenPositions >= l.MaxPositions {
		return false, fmt.Sprintf("position limit reached: %d/%d open", ps.OpenPositions, l.MaxPositions)
	}
	if sector != "" && ps.SectorCounts[sector] >= l.MaxPerSector {
		return false, fmt.Sprintf("sector limit reached for %q: %d/%d", sector, ps.SectorCounts[sector], l.MaxPerSector)
	}
	return true, ""
}
