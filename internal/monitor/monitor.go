package monitor

import (
	"context"
	"sync"
	"time"

	"quant_bot/internal/models"
	"quant_bot/internal/modules/config"
	"quant_bot/internal/notify"
	"quant_bot/pkg/logger"
)

// alertCooldown — не спамим одним и тем же алертом чаще раза в 5 минут.
const alertCooldown = 5 * time.Minute

// PositionSource отдаёт текущие открытые позиции.
type PositionSource interface {
	OpenPositions(ctx context.Context) ([]models.Position, error)
}

// Monitor следит за котировками открытых позиций внутри дня и шлёт
// алерты на пробой стопа, тейка и трейлинга. Позиции сам не закрывает,
// решение за трейдером.
type Monitor struct {
	cfg       *config.Config
	positions PositionSource
	notifier  notify.Notifier

	mu        sync.Mutex
	open      map[string]*models.Position
	lastAlert map[string]time.Time // symbol+kind -> время последнего алерта
}

func New(cfg *config.Config, positions PositionSource, notifier notify.Notifier) *Monitor {
	return &Monitor{
		cfg:       cfg,
		positions: positions,
		notifier:  notifier,
		open:      make(map[string]*models.Position),
		lastAlert: make(map[string]time.Time),
	}
}

// Run блокируется до отмены ctx: загружает позиции, подписывается на
// котировки и проверяет уровни на каждом тике.
func (m *Monitor) Run(ctx context.Context) error {
	positions, err := m.positions.OpenPositions(ctx)
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		m.notifier.Send("📭 Открытых позиций нет, мониторить нечего")
		return nil
	}

	symbols := make([]string, 0, len(positions))
	for i := range positions {
		p := positions[i]
		m.open[p.Symbol] = &p
		symbols = append(symbols, p.Symbol)
	}
	m.notifier.Sendf("👀 Мониторинг запущен: %d позиций", len(symbols))

	quotes := StreamQuotes(ctx, m.cfg.Data.QuoteWS, symbols)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case q, ok := <-quotes:
			if !ok {
				return nil
			}
			m.check(q)
		}
	}
}

func (m *Monitor) check(q Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.open[q.Symbol]
	if !ok || p.Status != models.PositionOpen {
		return
	}

	switch {
	case q.Price <= p.Stop:
		m.alert(q, "stop", "🛑 %s %s: цена %.2f пробила стоп %.2f — продать",
			p.Symbol, p.Name, q.Price, p.Stop)
	case q.Price >= p.TakeProfit:
		m.alert(q, "tp", "🎯 %s %s: цена %.2f достигла тейка %.2f — фиксировать",
			p.Symbol, p.Name, q.Price, p.TakeProfit)
	default:
		activation := p.EntryPrice * (1 + m.cfg.Stops.TrailingActivation)
		if p.Highest >= activation {
			trail := p.Highest * (1 - m.cfg.Stops.TrailingRatio)
			if q.Price <= trail {
				m.alert(q, "trail", "📉 %s %s: цена %.2f ниже трейлинга %.2f (пик %.2f) — продать",
					p.Symbol, p.Name, q.Price, trail, p.Highest)
			}
		}
	}

	if q.Price > p.Highest {
		p.Highest = q.Price
	}
}

func (m *Monitor) alert(q Quote, kind, format string, args ...any) {
	key := q.Symbol + ":" + kind
	if last, ok := m.lastAlert[key]; ok && time.Since(last) < alertCooldown {
		return
	}
	m.lastAlert[key] = time.Now()
	m.notifier.Sendf(format, args...)
	logger.Info("monitor alert %s: price=%.2f", key, q.Price)
}
