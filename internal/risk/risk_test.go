package risk

import (
	"path/filepath"
	"testing"
	"time"

	"quant_bot/internal/models"
	"quant_bot/internal/modules/config"
)

func testCfg() config.RiskConfig {
	return config.RiskConfig{
		InitialCapital:      100000,
		MaxDrawdownHard:     0.20,
		ReduceLevel1:        0.10,
		ReduceLevel2:        0.15,
		ReduceTargetL1:      0.6,
		ReduceTargetL2:      0.3,
		MonthlySoft:         0.08,
		MonthlyHard:         0.12,
		MonthlyRiskScale:    0.5,
		MonthlyCooldownDays: 10,
		MaxPositions:        10,
		MaxPerSector:        3,
		PositionRatio:       0.10,
	}
}

// конфиг без месячных линий, чтобы проверять ступени общей просадки
// в изоляции
func totalOnlyCfg() config.RiskConfig {
	cfg := testCfg()
	cfg.MonthlySoft = 0
	cfg.MonthlyHard = 0
	return cfg
}

func day(i int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func TestDrawdown_FreshControllerAllowsEverything(t *testing.T) {
	c := NewDrawdownController(testCfg())
	st := c.Last()
	if !st.CanTrade || st.RiskScale != 1 || st.MaxExposure != 1 {
		t.Errorf("fresh controller must be fully permissive, got %+v", st)
	}
}

func TestDrawdown_ReduceLevels(t *testing.T) {
	c := NewDrawdownController(totalOnlyCfg())

	st := c.Update(89000, day(1)) // 11%
	if !st.CanTrade {
		t.Error("L1 must not stop trading")
	}
	if st.MaxExposure != 0.6 {
		t.Errorf("L1 exposure 0.6, got %v", st.MaxExposure)
	}

	st = c.Update(84000, day(2)) // 16%
	if st.MaxExposure != 0.3 {
		t.Errorf("L2 exposure 0.3, got %v", st.MaxExposure)
	}
	if !st.CanTrade {
		t.Error("L2 must not stop trading")
	}
}

func TestDrawdown_HardCeilingStopsEntriesUntilRecovery(t *testing.T) {
	c := NewDrawdownController(totalOnlyCfg())

	st := c.Update(79000, day(1)) // 21%
	if st.CanTrade {
		t.Fatal("hard ceiling must stop entries")
	}
	if st.MaxExposure != 0 {
		t.Errorf("hard ceiling exposure 0, got %v", st.MaxExposure)
	}

	// просадка всё ещё за порогом: запрет держится
	st = c.Update(79500, day(2))
	if st.CanTrade {
		t.Error("still over the ceiling, entries must stay blocked")
	}

	// восстановление выше порога снимает запрет
	st = c.Update(85000, day(3)) // 15% -> L2
	if !st.CanTrade {
		t.Error("recovery above the ceiling must unblock entries")
	}
	if st.MaxExposure != 0.3 {
		t.Errorf("after recovery to 15%% expected L2 cap, got %v", st.MaxExposure)
	}
}

func TestDrawdown_PeakIsMonotone(t *testing.T) {
	c := NewDrawdownController(totalOnlyCfg())
	c.Update(120000, day(1))
	st := c.Update(100000, day(2))
	// пик 120к, просадка 1/6
	if st.TotalDrawdown < 0.166 || st.TotalDrawdown > 0.167 {
		t.Errorf("expected drawdown from peak 120000, got %v", st.TotalDrawdown)
	}
}

func TestDrawdown_MonthlySoftScalesRisk(t *testing.T) {
	c := NewDrawdownController(testCfg())
	st := c.Update(91000, day(5)) // 9% за месяц
	if !st.CanTrade {
		t.Error("soft line must not stop trading")
	}
	if st.RiskScale != 0.5 {
		t.Errorf("soft line scale 0.5, got %v", st.RiskScale)
	}
}

func TestDrawdown_MonthlyHardCooldown(t *testing.T) {
	c := NewDrawdownController(testCfg())

	st := c.Update(87000, day(5)) // 13% за месяц
	if st.CanTrade {
		t.Fatal("monthly hard line must pause trading")
	}

	// капитал вернулся, но кулдаун ещё идёт
	st = c.Update(99000, day(10))
	if st.CanTrade {
		t.Error("cooldown must hold even after recovery")
	}

	// кулдаун истёк
	st = c.Update(99000, day(16))
	if !st.CanTrade {
		t.Errorf("cooldown expired, trading must resume: %+v", st.Reasons)
	}
}

func TestDrawdown_MonthRollover(t *testing.T) {
	c := NewDrawdownController(testCfg())
	c.Update(91000, day(5)) // 9%: soft сработала
	// новый месяц: база пересчитывается от текущего капитала
	st := c.Update(91000, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	if st.MonthlyDrawdown != 0 {
		t.Errorf("new month resets monthly drawdown, got %v", st.MonthlyDrawdown)
	}
	if st.RiskScale != 1 {
		t.Errorf("new month restores scale, got %v", st.RiskScale)
	}
}

func TestLimiter(t *testing.T) {
	l := Limiter{MaxPositions: 2, MaxPerSector: 1}
	ps := models.NewPortfolioState(100000)

	if ok, _ := l.Allow(ps, "银行"); !ok {
		t.Fatal("empty portfolio must allow entry")
	}
	ps.AddPosition("银行")

	if ok, msg := l.Allow(ps, "银行"); ok {
		t.Error("sector cap must reject second bank entry")
	} else if msg == "" {
		t.Error("rejection must carry a reason")
	}
	if ok, _ := l.Allow(ps, "白酒"); !ok {
		t.Error("other sector still has room")
	}

	ps.AddPosition("白酒")
	if ok, _ := l.Allow(ps, "医药"); ok {
		t.Error("total cap must reject third position")
	}

	ps.RemovePosition("银行")
	if ok, _ := l.Allow(ps, "银行"); !ok {
		t.Error("closing a position frees the slot the same day")
	}
}

func TestController_AllowEntryExposureCap(t *testing.T) {
	c := NewController(totalOnlyCfg())
	c.Update(89000, day(1)) // L1: exposure <= 0.6

	// открыто на 45к, хотим ещё 12к: (45+12)/89 = 64% > 60%
	if ok, msg := c.AllowEntry("银行", 12000, 45000); ok {
		t.Errorf("expected exposure rejection, got ok")
	} else if msg == "" {
		t.Error("rejection must carry a reason")
	}

	// 8к проходит: (45+8)/89 = 59.5%
	if ok, msg := c.AllowEntry("银行", 8000, 45000); !ok {
		t.Errorf("expected entry allowed: %s", msg)
	}
}

func TestController_AllowEntryWhenHalted(t *testing.T) {
	c := NewController(totalOnlyCfg())
	c.Update(79000, day(1))
	if ok, _ := c.AllowEntry("银行", 1000, 0); ok {
		t.Error("halted controller must reject every entry")
	}
}

func TestSnapshot_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "risk.json")

	c := NewDrawdownController(testCfg())
	c.Update(120000, day(1))
	c.Update(87000, day(5)) // месячный hard: кулдаун до day(15)
	if err := c.SaveState(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	restored := NewDrawdownController(testCfg())
	if err := restored.LoadState(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	// пик и кулдаун пережили рестарт
	st := restored.Update(100000, day(10))
	if st.CanTrade {
		t.Error("cooldown must survive a restart")
	}
	if restored.Drawdown() < 0.16 {
		t.Errorf("peak must survive a restart, drawdown=%v", restored.Drawdown())
	}
}

func TestLoadState_MissingFileIsFine(t *testing.T) {
	c := NewDrawdownController(testCfg())
	if err := c.LoadState(filepath.Join(t.TempDir(), "absent.json")); err != nil {
		t.Fatalf("missing state file must not error: %v", err)
	}
}
