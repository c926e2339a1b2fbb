package models

import (
	"time"

	"github.com/pkg/errors"
)

// Candle — одна дневная свеча OHLCV.
type Candle struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// MarketSeries — дневные свечи одного инструмента, даты строго по возрастанию.
type MarketSeries struct {
	Symbol  string
	Name    string
	Sector  string
	Candles []Candle
}

func (s MarketSeries) Len() int { return len(s.Candles) }

func (s MarketSeries) Last() Candle {
	return s.Candles[len(s.Candles)-1]
}

// Validate проверяет инвариант серии: непустая, даты уникальны и растут,
// цены положительные.
func (s MarketSeries) Validate() error {
	if s.Symbol == "" {
		return errors.New("series: empty symbol")
	}
	if len(s.Candles) == 0 {
		return errors.Errorf("series %s: no candles", s.Symbol)
	}
	for i, c := range s.Candles {
		if c.Open <= 0 || c.High <= 0 || c.Low <= 0 || c.Close <= 0 {
			return errors.Errorf("series %s: non-positive price at %s", s.Symbol, c.Date.Format("2006-01-02"))
		}
		if c.High < c.Low {
			return errors.Errorf("series %s: high < low at %s", s.Symbol, c.Date.Format("2006-01-02"))
		}
		if i > 0 && !c.Date.After(s.Candles[i-1].Date) {
			return errors.Errorf("series %s: dates not strictly increasing at %s", s.Symbol, c.Date.Format("2006-01-02"))
		}
	}
	return nil
}

// Tail возвращает последние n свечей (или всю серию, если она короче).
func (s MarketSeries) Tail(n int) []Candle {
	if n >= len(s.Candles) {
		return s.Candles
	}
	return s.Candles[len(s.Candles)-n:]
}
