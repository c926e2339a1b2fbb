package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"quant_bot/internal/models"
	"quant_bot/internal/modules/config"
)

// HTTPProvider тянет дневные свечи с котировочного API.
// Формат ответа: массив строк [date, open, high, low, close, volume].
type HTTPProvider struct {
	client  *resty.Client
	symbols map[string]config.SymbolConfig
}

func NewHTTPProvider(cfg *config.Config) *HTTPProvider {
	client := resty.New()
	client.SetBaseURL(cfg.Data.BaseURL)
	client.SetTimeout(30 * time.Second)
	client.SetRetryCount(3)
	client.SetRetryWaitTime(2 * time.Second)

	symbols := make(map[string]config.SymbolConfig, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		symbols[s.Code] = s
	}
	return &HTTPProvider{client: client, symbols: symbols}
}

type dailyBar struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume"`
}

func (p *HTTPProvider) FetchDailySeries(ctx context.Context, symbol string, lookbackDays int) (models.MarketSeries, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -lookbackDays)

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"start":  start.Format("2006-01-02"),
			"end":    end.Format("2006-01-02"),
			"freq":   "daily",
		}).
		Get("/history")
	if err != nil {
		return models.MarketSeries{}, errors.Wrapf(err, "fetch history %s", symbol)
	}
	if resp.StatusCode() == 404 {
		return models.MarketSeries{}, ErrDataUnavailable
	}
	if resp.IsError() {
		return models.MarketSeries{}, fmt.Errorf("fetch history %s: status %d", symbol, resp.StatusCode())
	}

	var bars []dailyBar
	if err := sonic.Unmarshal(resp.Body(), &bars); err != nil {
		return models.MarketSeries{}, errors.Wrapf(err, "decode history %s", symbol)
	}
	if len(bars) == 0 {
		return models.MarketSeries{}, ErrDataUnavailable
	}

	series := models.MarketSeries{Symbol: symbol}
	if sc, ok := p.symbols[symbol]; ok {
		series.Name = sc.Name
		series.Sector = sc.Sector
	}
	for _, b := range bars {
		d, err := time.Parse("2006-01-02", b.Date)
		if err != nil {
			return models.MarketSeries{}, errors.Wrapf(err, "bad date %q for %s", b.Date, symbol)
		}
		series.Candles = append(series.Candles, models.Candle{
			Date:   d,
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}
	if err := series.Validate(); err != nil {
		return models.MarketSeries{}, errors.Wrapf(err, "history %s", symbol)
	}
	return series, nil
}
