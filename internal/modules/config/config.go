package config

import (
	"os"
	"strconv"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
)

// SymbolConfig — инструмент из пула: код, имя, отрасль.
type SymbolConfig struct {
	Code   string `yaml:"code"`
	Name   string `yaml:"name"`
	Sector string `yaml:"sector"`
}

type StrategyConfig struct {
	// Период сигнальной MA (цена должна стоять над ней)
	MAPeriod int `yaml:"ma_period"`
	// Период индексной MA для проверки риска рынка
	IndexMAPeriod int `yaml:"index_ma_period"`
	// Код индекса-бенчмарка; пусто — проверка рынка выключена
	IndexSymbol string `yaml:"index_symbol"`
	// Во сколько раз объём должен превысить вчерашний
	VolumeThreshold float64 `yaml:"volume_threshold"`
	// Максимальное отклонение цены от MA (защита от покупки на хаях)
	MaxDeviation float64 `yaml:"max_deviation"`
	// Сколько правил из трёх должно сработать
	RequiredVotes int `yaml:"required_votes"`
}

type StopConfig struct {
	StopLossRatio      float64 `yaml:"stop_loss_ratio"`
	TakeProfitRatio    float64 `yaml:"take_profit_ratio"`
	TrailingRatio      float64 `yaml:"trailing_ratio"`
	TrailingActivation float64 `yaml:"trailing_activation"`
	ATRPeriod          int     `yaml:"atr_period"`
	ATRMultiplier      float64 `yaml:"atr_multiplier"`
}

type RiskConfig struct {
	InitialCapital float64 `yaml:"initial_capital"`

	// Ступени просадки: L1/L2 режут лимит экспозиции, hard запрещает входы
	MaxDrawdownHard float64 `yaml:"max_drawdown_hard"`
	ReduceLevel1    float64 `yaml:"reduce_level_1"`
	ReduceLevel2    float64 `yaml:"reduce_level_2"`
	ReduceTargetL1  float64 `yaml:"reduce_target_l1"`
	ReduceTargetL2  float64 `yaml:"reduce_target_l2"`

	// Месячные линии: soft режет риск, hard ставит кулдаун
	MonthlySoft         float64 `yaml:"monthly_soft"`
	MonthlyHard         float64 `yaml:"monthly_hard"`
	MonthlyRiskScale    float64 `yaml:"monthly_risk_scale"`
	MonthlyCooldownDays int     `yaml:"monthly_cooldown_days"`

	MaxPositions  int     `yaml:"max_positions"`
	MaxPerSector  int     `yaml:"max_per_sector"`
	PositionRatio float64 `yaml:"position_ratio"`

	// Файл снапшота состояния контроллера; пусто — не сохраняем
	StateFile string `yaml:"state_file"`
}

type CostConfig struct {
	CommissionRate float64 `yaml:"commission_rate"`
	StampTaxRate   float64 `yaml:"stamp_tax_rate"` // только продажа
	Slippage       float64 `yaml:"slippage"`
}

const (
	EquityMarkToMarket = "mark_to_market"
	EquityRealized     = "realized"
)

type BacktestConfig struct {
	LookbackDays int    `yaml:"lookback_days"`
	EquityMode   string `yaml:"equity_mode"`
	// Учёт планок: запрет входа по планке вверх,
	// перенос выхода при планке вниз
	CNFrictions    bool    `yaml:"cn_frictions"`
	LimitThreshold float64 `yaml:"limit_threshold"`
	Workers        int     `yaml:"workers"`
}

// Config ...
type Config struct {
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	DB     string `yaml:"db_dsn"`
	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`
	Data struct {
		BaseURL string `yaml:"base_url"`
		Dir     string `yaml:"dir"` // csv-каталог; если задан, API не трогаем
		QuoteWS string `yaml:"quote_ws"`
	} `yaml:"data"`

	Strategy StrategyConfig `yaml:"strategy"`
	Stops    StopConfig     `yaml:"stops"`
	Risk     RiskConfig     `yaml:"risk"`
	Cost     CostConfig     `yaml:"cost"`
	Backtest BacktestConfig `yaml:"backtest"`

	Symbols []SymbolConfig `yaml:"symbols"`

	PlanCSV string `yaml:"plan_csv"`
}

// Default — дефолты как в боевом конфиге, env поверх.
func Default() *Config {
	cfg := &Config{}
	cfg.Strategy = StrategyConfig{
		MAPeriod:        intFromEnv("MA_PERIOD", 20),
		IndexMAPeriod:   intFromEnv("INDEX_MA_PERIOD", 60),
		IndexSymbol:     getenvDefault("INDEX_SYMBOL", "sh000300"),
		VolumeThreshold: floatFromEnv("VOLUME_THRESHOLD", 1.2),
		MaxDeviation:    floatFromEnv("MAX_DEVIATION", 0.03),
		RequiredVotes:   intFromEnv("REQUIRED_VOTES", 2),
	}
	cfg.Stops = StopConfig{
		StopLossRatio:      floatFromEnv("STOP_LOSS_RATIO", 0.05),
		TakeProfitRatio:    floatFromEnv("TAKE_PROFIT_RATIO", 0.15),
		TrailingRatio:      floatFromEnv("TRAILING_RATIO", 0.08),
		TrailingActivation: floatFromEnv("TRAILING_ACTIVATION", 0.10),
		ATRPeriod:          intFromEnv("ATR_PERIOD", 14),
		ATRMultiplier:      floatFromEnv("ATR_MULTIPLIER", 1.5),
	}
	cfg.Risk = RiskConfig{
		InitialCapital:      floatFromEnv("INITIAL_CAPITAL", 100000),
		MaxDrawdownHard:     0.20,
		ReduceLevel1:        0.10,
		ReduceLevel2:        0.15,
		ReduceTargetL1:      0.6,
		ReduceTargetL2:      0.3,
		MonthlySoft:         0.08,
		MonthlyHard:         0.12,
		MonthlyRiskScale:    0.5,
		MonthlyCooldownDays: 10,
		MaxPositions:        intFromEnv("MAX_POSITIONS", 10),
		MaxPerSector:        intFromEnv("MAX_SECTOR_POSITIONS", 3),
		PositionRatio:       floatFromEnv("POSITION_RATIO", 0.10),
	}
	cfg.Cost = CostConfig{
		CommissionRate: 0.0003,
		StampTaxRate:   0.001,
		Slippage:       0.001,
	}
	cfg.Backtest = BacktestConfig{
		LookbackDays:   intFromEnv("LOOKBACK_DAYS", 365),
		EquityMode:     getenvDefault("EQUITY_MODE", EquityMarkToMarket),
		CNFrictions:    boolFromEnv("CN_FRICTIONS", true),
		LimitThreshold: 0.098,
		Workers:        intFromEnv("BACKTEST_WORKERS", 4),
	}
	cfg.PlanCSV = getenvDefault("PLAN_CSV", "data/trading_plan.csv")
	return cfg
}

func NewConfig() (*Config, error) {
	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		return nil, errors.Wrap(err, "open config file")
	}
	defer func() {
		_ = file.Close()
	}()

	config := Default()
	if err = yaml.NewDecoder(file).Decode(config); err != nil {
		return nil, errors.Wrap(err, "decode config file")
	}

	if token := os.Getenv(tokenTelegramENV); token != "" {
		config.Telegram.Token = token
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		config.DB = dsn
	}

	// невалидный конфиг фатален до старта любой симуляции
	if err = config.Validate(); err != nil {
		return nil, errors.Wrap(err, "validate config")
	}
	return config, nil
}

func (c *Config) Validate() error {
	s := c.Strategy
	if s.MAPeriod <= 0 || s.IndexMAPeriod <= 0 {
		return errors.New("strategy: ma periods must be positive")
	}
	if s.RequiredVotes < 1 || s.RequiredVotes > 3 {
		return errors.Errorf("strategy: required_votes=%d out of [1,3]", s.RequiredVotes)
	}
	if s.VolumeThreshold <= 0 {
		return errors.New("strategy: volume_threshold must be positive")
	}
	if s.MaxDeviation < 0 || s.MaxDeviation > 1 {
		return errors.Errorf("strategy: max_deviation=%.3f out of [0,1]", s.MaxDeviation)
	}

	st := c.Stops
	for name, v := range map[string]float64{
		"stop_loss_ratio":     st.StopLossRatio,
		"take_profit_ratio":   st.TakeProfitRatio,
		"trailing_ratio":      st.TrailingRatio,
		"trailing_activation": st.TrailingActivation,
	} {
		if v < 0 || v > 1 {
			return errors.Errorf("stops: %s=%.3f out of [0,1]", name, v)
		}
	}
	if st.ATRPeriod <= 0 {
		return errors.New("stops: atr_period must be positive")
	}
	if st.ATRMultiplier <= 0 {
		return errors.New("stops: atr_multiplier must be positive")
	}

	r := c.Risk
	if r.InitialCapital <= 0 {
		return errors.New("risk: initial_capital must be positive")
	}
	if !(r.ReduceLevel1 < r.ReduceLevel2 && r.ReduceLevel2 < r.MaxDrawdownHard) {
		return errors.Errorf("risk: drawdown levels must be ordered: %.2f < %.2f < %.2f",
			r.ReduceLevel1, r.ReduceLevel2, r.MaxDrawdownHard)
	}
	for name, v := range map[string]float64{
		"max_drawdown_hard": r.MaxDrawdownHard,
		"reduce_target_l1":  r.ReduceTargetL1,
		"reduce_target_l2":  r.ReduceTargetL2,
		"position_ratio":    r.PositionRatio,
	} {
		if v < 0 || v > 1 {
			return errors.Errorf("risk: %s=%.3f out of [0,1]", name, v)
		}
	}
	if r.MaxPositions <= 0 || r.MaxPerSector <= 0 {
		return errors.New("risk: position limits must be positive")
	}

	co := c.Cost
	if co.CommissionRate < 0 || co.StampTaxRate < 0 || co.Slippage < 0 {
		return errors.New("cost: rates must be non-negative")
	}

	b := c.Backtest
	if b.EquityMode != EquityMarkToMarket && b.EquityMode != EquityRealized {
		return errors.Errorf("backtest: unknown equity_mode %q", b.EquityMode)
	}
	if b.Workers <= 0 {
		return errors.New("backtest: workers must be positive")
	}
	return nil
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
