package cost

import (
	"math"
	"testing"

	"quant_bot/internal/modules/config"
)

func testCfg() config.CostConfig {
	return config.CostConfig{
		CommissionRate: 0.0003,
		StampTaxRate:   0.001,
		Slippage:       0.001,
	}
}

func TestFill_SlippageIsAlwaysAdverse(t *testing.T) {
	m := NewModel(testCfg())

	buyNet, _ := m.Fill(100, true)
	if buyNet <= 100 {
		t.Errorf("buy must fill above the raw price, got %v", buyNet)
	}
	if math.Abs(buyNet-100.1) > 1e-9 {
		t.Errorf("expected buy fill 100.10, got %v", buyNet)
	}

	sellNet, _ := m.Fill(100, false)
	if sellNet >= 100 {
		t.Errorf("sell must fill below the raw price, got %v", sellNet)
	}
	if math.Abs(sellNet-99.9) > 1e-9 {
		t.Errorf("expected sell fill 99.90, got %v", sellNet)
	}
}

func TestFill_StampTaxOnlyOnSell(t *testing.T) {
	m := NewModel(testCfg())

	_, buyCost := m.Fill(100, true)
	wantBuy := 100.1 * 0.0003
	if math.Abs(buyCost-wantBuy) > 1e-9 {
		t.Errorf("buy cost: expected %v, got %v", wantBuy, buyCost)
	}

	_, sellCost := m.Fill(100, false)
	wantSell := 99.9 * (0.0003 + 0.001)
	if math.Abs(sellCost-wantSell) > 1e-9 {
		t.Errorf("sell cost: expected %v, got %v", wantSell, sellCost)
	}
}

func TestRound_NetPnLIdentity(t *testing.T) {
	m := NewModel(testCfg())
	rt := m.Round(100, 110, 1000)

	if math.Abs(rt.GrossPnL-10000) > 1e-6 {
		t.Errorf("gross: expected 10000, got %v", rt.GrossPnL)
	}

	// тождество: net = (exitNet - entryNet - entryCost - exitCost) * shares
	entryNet, entryCost := m.Fill(100, true)
	exitNet, exitCost := m.Fill(110, false)
	want := (exitNet-entryNet)*1000 - entryCost*1000 - exitCost*1000
	if math.Abs(rt.NetPnL-want) > 1e-6 {
		t.Errorf("net: expected %v, got %v", want, rt.NetPnL)
	}
	if rt.NetPnL >= rt.GrossPnL {
		t.Error("frictions must always eat into the gross result")
	}
}

func TestRound_FlatTradeLosesFrictions(t *testing.T) {
	m := NewModel(testCfg())
	rt := m.Round(100, 100, 100)
	if rt.GrossPnL != 0 {
		t.Errorf("flat trade gross must be zero, got %v", rt.GrossPnL)
	}
	if rt.NetPnL >= 0 {
		t.Errorf("flat trade must lose the round-trip frictions, got %v", rt.NetPnL)
	}
}

func TestZeroRatesModelIsFree(t *testing.T) {
	m := NewModel(config.CostConfig{})
	net, cost := m.Fill(100, true)
	if net != 100 || cost != 0 {
		t.Errorf("zero-rate model must be a no-op: net=%v cost=%v", net, cost)
	}
	rt := m.Round(100, 110, 100)
	if rt.NetPnL != rt.GrossPnL {
		t.Errorf("zero-rate model: net %v must equal gross %v", rt.NetPnL, rt.GrossPnL)
	}
}
