package plan

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quant_bot/internal/models"
	"quant_bot/internal/modules/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	return cfg
}

func day(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func signalSeries(symbol, sector string) models.MarketSeries {
	s := models.MarketSeries{Symbol: symbol, Name: symbol, Sector: sector}
	for i := 0; i < 31; i++ {
		s.Candles = append(s.Candles, models.Candle{
			Date: day(i), Open: 50, High: 50, Low: 50, Close: 50, Volume: 1000,
		})
	}
	last := &s.Candles[30]
	last.High = 51
	last.Close = 51
	last.Volume = 1500
	return s
}

func quietSeries(symbol string) models.MarketSeries {
	s := models.MarketSeries{Symbol: symbol, Name: symbol}
	for i := 0; i < 31; i++ {
		s.Candles = append(s.Candles, models.Candle{
			Date: day(i), Open: 50, High: 50, Low: 50, Close: 50, Volume: 1000,
		})
	}
	return s
}

// indexSeries — 70 дней линейного тренда бенчмарка.
func indexSeries(trend float64) models.MarketSeries {
	s := models.MarketSeries{Symbol: "sh000300", Name: "沪深300"}
	price := 3000.0
	for i := 0; i < 70; i++ {
		price += trend
		s.Candles = append(s.Candles, models.Candle{
			Date: day(i), Open: price, High: price, Low: price, Close: price, Volume: 1e6,
		})
	}
	return s
}

func TestGenerate(t *testing.T) {
	g := NewGenerator(testConfig())
	entries, riskMsg := g.Generate(map[string]models.MarketSeries{
		"600036": signalSeries("600036", "银行"),
		"600519": quietSeries("600519"),
	}, models.MarketSeries{})

	if riskMsg != "" {
		t.Fatalf("empty index must skip the market check, got %q", riskMsg)
	}
	if len(entries) != 1 {
		t.Fatalf("expected one plan entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Symbol != "600036" {
		t.Errorf("unexpected symbol %s", e.Symbol)
	}
	if e.Shares < 100 || int(e.Shares)%100 != 0 {
		t.Errorf("shares must be round lots, got %v", e.Shares)
	}
	if e.Stop >= e.Price || e.TakeProfit <= e.Price {
		t.Errorf("levels must bracket the price: stop=%v price=%v tp=%v", e.Stop, e.Price, e.TakeProfit)
	}
	if e.Reason == "" {
		t.Error("entry must carry the signal reason")
	}
}

func TestGenerate_RiskyMarketSuppressesPlan(t *testing.T) {
	g := NewGenerator(testConfig())
	entries, riskMsg := g.Generate(map[string]models.MarketSeries{
		"600036": signalSeries("600036", "银行"),
	}, indexSeries(-5))

	if riskMsg == "" {
		t.Fatal("declining index must flag market risk")
	}
	if !strings.Contains(riskMsg, "below MA60") {
		t.Errorf("risk message must name the MA line: %q", riskMsg)
	}
	if len(entries) != 0 {
		t.Errorf("risky market must suppress all entries, got %d", len(entries))
	}
}

func TestGenerate_HealthyMarketKeepsPlan(t *testing.T) {
	g := NewGenerator(testConfig())
	entries, riskMsg := g.Generate(map[string]models.MarketSeries{
		"600036": signalSeries("600036", "银行"),
	}, indexSeries(5))

	if riskMsg != "" {
		t.Fatalf("rising index must pass the market check, got %q", riskMsg)
	}
	if len(entries) != 1 {
		t.Errorf("expected the signal to survive a healthy market, got %d entries", len(entries))
	}
}

func TestGenerate_SortedBySymbol(t *testing.T) {
	g := NewGenerator(testConfig())
	entries, _ := g.Generate(map[string]models.MarketSeries{
		"600036": signalSeries("600036", "银行"),
		"000858": signalSeries("000858", "白酒"),
	}, models.MarketSeries{})
	if len(entries) != 2 {
		t.Fatalf("expected two entries, got %d", len(entries))
	}
	if entries[0].Symbol != "000858" || entries[1].Symbol != "600036" {
		t.Errorf("entries must be sorted: %s, %s", entries[0].Symbol, entries[1].Symbol)
	}
}

func TestSaveCSV(t *testing.T) {
	g := NewGenerator(testConfig())
	entries, _ := g.Generate(map[string]models.MarketSeries{
		"600036": signalSeries("600036", "银行"),
	}, models.MarketSeries{})

	path := filepath.Join(t.TempDir(), "plan.csv")
	if err := SaveCSV(entries, path); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header plus one row, got %d", len(rows))
	}
	if rows[0][1] != "symbol" || rows[1][1] != "600036" {
		t.Errorf("unexpected csv content: %v", rows)
	}
}

func TestFormatPlan(t *testing.T) {
	if !strings.Contains(FormatPlan(nil), "нет") {
		t.Error("empty plan must say there is nothing to do")
	}

	g := NewGenerator(testConfig())
	entries, _ := g.Generate(map[string]models.MarketSeries{
		"600036": signalSeries("600036", "银行"),
	}, models.MarketSeries{})
	text := FormatPlan(entries)
	if !strings.Contains(text, "600036") || !strings.Contains(text, "стоп") {
		t.Errorf("plan text must carry symbol and levels: %q", text)
	}
}
