package stops

import (
	"math"
	"testing"
	"time"

	"quant_bot/internal/models"
	"quant_bot/internal/modules/config"
)

func testCfg() config.StopConfig {
	return config.StopConfig{
		StopLossRatio:      0.05,
		TakeProfitRatio:    0.15,
		TrailingRatio:      0.08,
		TrailingActivation: 0.10,
		ATRPeriod:          14,
		ATRMultiplier:      1.5,
	}
}

func day(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func flatCandles(n int, price float64) []models.Candle {
	out := make([]models.Candle, n)
	for i := range out {
		out[i] = models.Candle{Date: day(i), Open: price, High: price, Low: price, Close: price, Volume: 1000}
	}
	return out
}

func openPosition(entry float64, e Engine) *models.Position {
	return &models.Position{
		Symbol:     "600036",
		EntryDate:  day(0),
		EntryPrice: entry,
		Shares:     100,
		Stop:       entry * 0.95,
		TakeProfit: e.TakeProfit(entry),
		Highest:    entry,
		Status:     models.PositionOpen,
	}
}

func TestInitialStop_MATightensFixed(t *testing.T) {
	e := NewEngine(testCfg())
	// ровная история: ATR нулевой, его кандидат entry-0 выше остальных
	// быть не может только при ненулевом ATR, поэтому без ATR:
	prior := flatCandles(5, 100) // меньше period+1, кандидат C опущен

	// фикс 95.00 против ma*0.99 = 95.04: берётся более близкий 95.04
	stop := e.InitialStop(100, 96, prior)
	if math.Abs(stop-95.04) > 1e-9 {
		t.Errorf("expected 95.04, got %v", stop)
	}

	// низкая MA не ослабляет фиксированный стоп
	stop = e.InitialStop(100, 90, prior)
	if math.Abs(stop-95.0) > 1e-9 {
		t.Errorf("expected 95.00, got %v", stop)
	}
}

func TestInitialStop_ATRCandidate(t *testing.T) {
	e := NewEngine(testCfg())
	// диапазон 1 на свечу: ATR=1, кандидат 100-1.5 = 98.5
	prior := make([]models.Candle, 20)
	for i := range prior {
		prior[i] = models.Candle{Date: day(i), Open: 100, High: 100.5, Low: 99.5, Close: 100, Volume: 1}
	}
	stop := e.InitialStop(100, 90, prior)
	if math.Abs(stop-98.5) > 1e-9 {
		t.Errorf("expected ATR stop 98.5, got %v", stop)
	}
}

func TestStep_StopLossBeatsEverything(t *testing.T) {
	e := NewEngine(testCfg())
	p := openPosition(100, e)
	p.Stop = 95

	candle := models.Candle{Date: day(1), Open: 96, High: 97, Low: 94, Close: 94.5, Volume: 1000}
	ev, exit := e.Step(p, candle)
	if !exit {
		t.Fatal("expected stop-loss exit")
	}
	if ev.Reason != models.ExitStopLoss {
		t.Errorf("expected stop-loss, got %s", ev.Reason)
	}
	if ev.Price != 95 {
		t.Errorf("exit at stop level 95, got %v", ev.Price)
	}
}

func TestStep_TakeProfit(t *testing.T) {
	e := NewEngine(testCfg())
	p := openPosition(100, e)

	candle := models.Candle{Date: day(1), Open: 110, High: 116, Low: 109, Close: 115.5, Volume: 1000}
	ev, exit := e.Step(p, candle)
	if !exit {
		t.Fatal("expected take-profit exit")
	}
	if ev.Reason != models.ExitTakeProfit {
		t.Errorf("expected take-profit, got %s", ev.Reason)
	}
	if math.Abs(ev.Price-115) > 1e-9 {
		t.Errorf("exit at tp level 115, got %v", ev.Price)
	}
}

func TestStep_TrailingNeedsActivation(t *testing.T) {
	e := NewEngine(testCfg())
	p := openPosition(100, e)
	p.Highest = 105 // +5%, активации (+10%) ещё нет

	// откат к 97: ни стоп (95), ни тейк, трейлинг не активен
	candle := models.Candle{Date: day(1), Open: 104, High: 104, Low: 96.5, Close: 97, Volume: 1000}
	if _, exit := e.Step(p, candle); exit {
		t.Fatal("trailing must not fire before activation")
	}
}

func TestStep_TrailingAfterActivation(t *testing.T) {
	e := NewEngine(testCfg())
	p := openPosition(100, e)
	p.Highest = 112 // активация пройдена, трейл = 112*0.92 = 103.04

	candle := models.Candle{Date: day(1), Open: 105, High: 105, Low: 102, Close: 103, Volume: 1000}
	ev, exit := e.Step(p, candle)
	if !exit {
		t.Fatal("expected trailing exit")
	}
	if ev.Reason != models.ExitTrailing {
		t.Errorf("expected trailing-stop, got %s", ev.Reason)
	}
	if math.Abs(ev.Price-103.04) > 1e-9 {
		t.Errorf("exit at trail level 103.04, got %v", ev.Price)
	}
}

func TestStep_HighestRatchetsMonotonically(t *testing.T) {
	e := NewEngine(testCfg())
	p := openPosition(100, e)

	closes := []float64{102, 104, 103, 106, 105}
	wantHighest := []float64{102, 104, 104, 106, 106}
	for i, c := range closes {
		candle := models.Candle{Date: day(i + 1), Open: c, High: c, Low: c, Close: c, Volume: 1000}
		if _, exit := e.Step(p, candle); exit {
			t.Fatalf("unexpected exit at close %v", c)
		}
		if p.Highest != wantHighest[i] {
			t.Errorf("day %d: expected highest %v, got %v", i, wantHighest[i], p.Highest)
		}
	}
}

func TestStep_ClosedPositionIsNoop(t *testing.T) {
	e := NewEngine(testCfg())
	p := openPosition(100, e)
	p.Status = models.PositionClosed

	candle := models.Candle{Date: day(1), Open: 90, High: 90, Low: 90, Close: 90, Volume: 1000}
	if _, exit := e.Step(p, candle); exit {
		t.Error("closed position must not produce exits")
	}
}

func TestStep_OneEventPerDay(t *testing.T) {
	// день, где close одновременно под стопом и под трейлом:
	// причина ровно одна и это стоп-лосс
	e := NewEngine(testCfg())
	p := openPosition(100, e)
	p.Highest = 115

	candle := models.Candle{Date: day(1), Open: 96, High: 96, Low: 94, Close: 94, Volume: 1000}
	ev, exit := e.Step(p, candle)
	if !exit || ev.Reason != models.ExitStopLoss {
		t.Errorf("stop-loss has priority, got %s", ev.Reason)
	}
}
