package models

import "time"

type PositionStatus string

const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// ExitReason — причина закрытия позиции. За день возможна максимум одна.
type ExitReason string

const (
	ExitStopLoss   ExitReason = "stop-loss"
	ExitTakeProfit ExitReason = "take-profit"
	ExitTrailing   ExitReason = "trailing-stop"
)

// Position — открытая позиция. Принадлежит ровно одному прогону симуляции
// (или, в живом режиме, трейдеру); мутируется раз в день.
type Position struct {
	Symbol     string
	Name       string
	Sector     string
	EntryDate  time.Time
	EntryPrice float64 // нетто-цена входа, с учётом проскальзывания
	EntryCost  float64 // издержки на акцию по входу
	Shares     float64
	Stop       float64
	TakeProfit float64
	Highest    float64 // максимум close с момента входа, только растёт
	Status     PositionStatus
}

// Value — текущая рыночная стоимость по переданной цене.
func (p Position) Value(price float64) float64 {
	return p.Shares * price
}
