package marketdata

import (
	"context"
	"errors"

	"quant_bot/internal/models"
)

// ErrDataUnavailable — у провайдера нет истории по инструменту.
// Вызывающий код пропускает инструмент, не валя весь пакет.
var ErrDataUnavailable = errors.New("market data unavailable")

// Provider отдаёт дневные свечи за lookbackDays календарных дней,
// по возрастанию дат.
type Provider interface {
	FetchDailySeries(ctx context.Context, symbol string, lookbackDays int) (models.MarketSeries, error)
}
