package models

import "time"

// Trade — иммутабельная запись о закрытой позиции. Пишется один раз,
// добавляется в журнал прогона.
type Trade struct {
	ID          string // uuid
	Symbol      string
	Name        string
	Sector      string
	EntryDate   time.Time
	EntryPrice  float64 // нетто
	ExitDate    time.Time
	ExitPrice   float64 // нетто
	ExitReason  ExitReason
	Deferred    bool // выход перенесён на следующий день из-за планки
	Shares      float64
	GrossPnL    float64
	NetPnL      float64
	CostPaid    float64 // суммарные издержки обеих ног
	HoldingDays int
}

func (t Trade) Win() bool { return t.NetPnL > 0 }
