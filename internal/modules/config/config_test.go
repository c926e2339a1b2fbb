package config

import (
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("defaults must validate: %v", err)
	}
}

func TestValidate_VotesOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Strategy.RequiredVotes = 0
	if err := cfg.Validate(); err == nil {
		t.Error("required_votes=0 must fail")
	}
	cfg.Strategy.RequiredVotes = 4
	if err := cfg.Validate(); err == nil {
		t.Error("required_votes=4 must fail")
	}
}

func TestValidate_RatioOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Stops.StopLossRatio = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("stop_loss_ratio > 1 must fail")
	}

	cfg = Default()
	cfg.Stops.TrailingRatio = -0.1
	if err := cfg.Validate(); err == nil {
		t.Error("negative trailing_ratio must fail")
	}
}

func TestValidate_DrawdownLevelsMustBeOrdered(t *testing.T) {
	cfg := Default()
	cfg.Risk.ReduceLevel1 = 0.15
	cfg.Risk.ReduceLevel2 = 0.10
	if err := cfg.Validate(); err == nil {
		t.Error("L1 >= L2 must fail")
	}

	cfg = Default()
	cfg.Risk.MaxDrawdownHard = 0.12 // ниже L2
	if err := cfg.Validate(); err == nil {
		t.Error("hard ceiling below L2 must fail")
	}
}

func TestValidate_EquityMode(t *testing.T) {
	cfg := Default()
	cfg.Backtest.EquityMode = "paper"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown equity_mode must fail")
	}
	cfg.Backtest.EquityMode = EquityRealized
	if err := cfg.Validate(); err != nil {
		t.Errorf("realized mode must validate: %v", err)
	}
}

func TestValidate_Limits(t *testing.T) {
	cfg := Default()
	cfg.Risk.MaxPositions = 0
	if err := cfg.Validate(); err == nil {
		t.Error("max_positions=0 must fail")
	}

	cfg = Default()
	cfg.Backtest.Workers = 0
	if err := cfg.Validate(); err == nil {
		t.Error("workers=0 must fail")
	}
}
