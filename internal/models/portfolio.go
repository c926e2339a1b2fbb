package models

import "time"

// PortfolioState — единственный разделяемый мутабельный ресурс между
// симуляциями инструментов. Мутирует только оркестратор, один раз в день,
// в сериализованном проходе.
type PortfolioState struct {
	InitialCapital float64
	PeakCapital    float64
	CurrentCapital float64
	OpenPositions  int
	SectorCounts   map[string]int
}

func NewPortfolioState(initialCapital float64) *PortfolioState {
	return &PortfolioState{
		InitialCapital: initialCapital,
		PeakCapital:    initialCapital,
		CurrentCapital: initialCapital,
		SectorCounts:   make(map[string]int),
	}
}

func (p *PortfolioState) AddPosition(sector string) {
	p.OpenPositions++
	p.SectorCounts[sector]++
}

func (p *PortfolioState) RemovePosition(sector string) {
	if p.OpenPositions > 0 {
		p.OpenPositions--
	}
	if p.SectorCounts[sector] > 0 {
		p.SectorCounts[sector]--
	}
}

type EquityPoint struct {
	Date    time.Time
	Capital float64
}

// EquityCurve — по одной точке на симулируемый день, только append.
type EquityCurve []EquityPoint

func (e EquityCurve) Len() int          { return len(e) }
func (e EquityCurve) Last() EquityPoint { return e[len(e)-1] }

// Returns — дневные доходности кривой капитала.
func (e EquityCurve) Returns() []float64 {
	if len(e) < 2 {
		return nil
	}
	out := make([]float64, 0, len(e)-1)
	for i := 1; i < len(e); i++ {
		prev := e[i-1].Capital
		if prev <= 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, e[i].Capital/prev-1)
	}
	return out
}
