package cost

import "quant_bot/internal/modules/config"

// Model — модель транзакционных издержек: проскальзывание всегда против
// нас, комиссия на обе ноги, гербовый сбор только на продажу.
// Детерминирована, состояния нет.
type Model struct {
	Commission float64
	StampTax   float64
	Slippage   float64
}

func NewModel(cfg config.CostConfig) Model {
	return Model{
		Commission: cfg.CommissionRate,
		StampTax:   cfg.StampTaxRate,
		Slippage:   cfg.Slippage,
	}
}

// Fill переводит сырую цену в нетто-цену и издержки на акцию.
func (m Model) Fill(rawPrice float64, isBuy bool) (netPrice, cost float64) {
	if isBuy {
		netPrice = rawPrice * (1 + m.Slippage)
		cost = netPrice * m.Commission
		return netPrice, cost
	}
	netPrice = rawPrice * (1 - m.Slippage)
	cost = netPrice * (m.Commission + m.StampTax)
	return netPrice, cost
}

// RoundTrip — итог полного круга по сырым ценам входа/выхода.
type RoundTrip struct {
	EntryNet  float64
	ExitNet   float64
	EntryCost float64 // на акцию
	ExitCost  float64 // на акцию
	GrossPnL  float64
	NetPnL    float64
	CostPaid  float64
}

func (m Model) Round(entryRaw, exitRaw, shares float64) RoundTrip {
	entryNet, entryCost := m.Fill(entryRaw, true)
	exitNet, exitCost := m.Fill(exitRaw, false)
	return RoundTrip{
		EntryNet:  entryNet,
		ExitNet:   exitNet,
		EntryCost: entryCost,
		ExitCost:  exitCost,
		GrossPnL:  (exitRaw - entryRaw) * shares,
		NetPnL:    (exitNet-entryNet)*shares - entryCost*shares - exitCost*shares,
		CostPaid:  (entryCost + exitCost) * shares,
	}
}
