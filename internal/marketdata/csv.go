package marketdata

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"quant_bot/internal/models"
	"quant_bot/internal/modules/config"
)

// CSVProvider читает дневные свечи из каталога с файлами <symbol>.csv.
// Формат: заголовок date,open,high,low,close,volume, дальше строки
// по возрастанию дат. Удобен для офлайн-прогонов и тестов.
type CSVProvider struct {
	dir     string
	symbols map[string]config.SymbolConfig
}

func NewCSVProvider(cfg *config.Config) *CSVProvider {
	symbols := make(map[string]config.SymbolConfig, len(cfg.Symbols))
	for _, s := range cfg.Symbols {
		symbols[s.Code] = s
	}
	return &CSVProvider{dir: cfg.Data.Dir, symbols: symbols}
}

func (p *CSVProvider) FetchDailySeries(_ context.Context, symbol string, lookbackDays int) (models.MarketSeries, error) {
	path := filepath.Join(p.dir, symbol+".csv")
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return models.MarketSeries{}, ErrDataUnavailable
		}
		return models.MarketSeries{}, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return models.MarketSeries{}, errors.Wrapf(err, "read %s", path)
	}
	if len(rows) < 2 {
		return models.MarketSeries{}, ErrDataUnavailable
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -lookbackDays)
	series := models.MarketSeries{Symbol: symbol}
	if sc, ok := p.symbols[symbol]; ok {
		series.Name = sc.Name
		series.Sector = sc.Sector
	}
	for _, row := range rows[1:] {
		if len(row) < 6 {
			return models.MarketSeries{}, errors.Errorf("%s: malformed row %v", path, row)
		}
		c, err := parseRow(row)
		if err != nil {
			return models.MarketSeries{}, errors.Wrapf(err, "parse %s", path)
		}
		if c.Date.Before(cutoff) {
			continue
		}
		series.Candles = append(series.Candles, c)
	}
	if series.Len() == 0 {
		return models.MarketSeries{}, ErrDataUnavailable
	}
	if err := series.Validate(); err != nil {
		return models.MarketSeries{}, errors.Wrapf(err, "history %s", symbol)
	}
	return series, nil
}

func parseRow(row []string) (models.Candle, error) {
	d, err := time.Parse("2006-01-02", row[0])
	if err != nil {
		return models.Candle{}, err
	}
	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		vals[i], err = strconv.ParseFloat(row[i+1], 64)
		if err != nil {
			return models.Candle{}, err
		}
	}
	return models.Candle{
		Date:   d,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}

// LoadAll тянет серии для всех инструментов из конфига. Недоступные
// инструменты складываются в skipped, остальные идут в прогон.
func LoadAll(ctx context.Context, p Provider, cfg *config.Config) (map[string]models.MarketSeries, map[string]error) {
	out := make(map[string]models.MarketSeries, len(cfg.Symbols))
	skipped := make(map[string]error)
	for _, s := range cfg.Symbols {
		series, err := p.FetchDailySeries(ctx, s.Code, cfg.Backtest.LookbackDays)
		if err != nil {
			skipped[s.Code] = err
			continue
		}
		out[s.Code] = series
	}
	return out, skipped
}
