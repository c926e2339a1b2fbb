package risk

import (
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// Snapshot — персистентное состояние контроллера просадки между запусками.
type Snapshot struct {
	PeakCapital       float64 `json:"peak_capital"`
	CurrentCapital    float64 `json:"current_capital"`
	MonthStartCapital float64 `json:"month_start_capital"`
	MonthStartDate    string  `json:"month_start_date"`
	PausedUntil       string  `json:"paused_until"`
	UpdatedAt         string  `json:"updated_at"`
}

const dateLayout = "2006-01-02"

func (c *DrawdownController) Snapshot() Snapshot {
	s := Snapshot{
		PeakCapital:       c.peak,
		CurrentCapital:    c.current,
		MonthStartCapital: c.monthStartCapital,
		UpdatedAt:         time.Now().Format(time.RFC3339),
	}
	if !c.monthStartDate.IsZero() {
		s.MonthStartDate = c.monthStartDate.Format(dateLayout)
	}
	if !c.pausedUntil.IsZero() {
		s.PausedUntil = c.pausedUntil.Format(dateLayout)
	}
	return s
}

func (c *DrawdownController) Restore(s Snapshot) {
	if s.PeakCapital > 0 {
		c.peak = s.PeakCapital
	}
	if s.CurrentCapital > 0 {
		c.current = s.CurrentCapital
	}
	if s.MonthStartCapital > 0 {
		c.monthStartCapital = s.MonthStartCapital
	}
	if d, err := time.Parse(dateLayout, s.MonthStartDate); err == nil {
		c.monthStartDate = d
	}
	if d, err := time.Parse(dateLayout, s.PausedUntil); err == nil {
		c.pausedUntil = d
	}
}

// SaveState пишет снапшот в json-файл.
func (c *DrawdownController) SaveState(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "mkdir state dir")
		}
	}
	data, err := sonic.Marshal(c.Snapshot())
	if err != nil {
		return errors.Wrap(err, "marshal drawdown state")
	}
	return errors.Wrap(os.WriteFile(path, data, 0o644), "write drawdown state")
}

// LoadState читает снапшот; отсутствие файла — не ошибка.
func (c *DrawdownController) LoadState(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrap(err, "read drawdown state")
	}
	var s Snapshot
	if err = sonic.Unmarshal(data, &s); err != nil {
		return errors.Wrap(err, "unmarshal drawdown state")
	}
	c.Restore(s)
	return nil
}
