package store

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jackc/pgx/v5"

	"quant_bot/internal/models"
	"quant_bot/pkg/db"
)

// Store — журнал позиций и сделок. Открытая позиция живёт в journal до
// закрытия, сделки пишутся в trade_log, сводки прогонов в backtest_runs.
type Store struct {
	db *db.PgTxManager
}

func NewStore(manager *db.PgTxManager) *Store {
	return &Store{db: manager}
}

// Migrate создаёт таблицы, если их нет. Схема намеренно плоская.
func (s *Store) Migrate(ctx context.Context) error {
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		for _, stmt := range []string{
			`CREATE TABLE IF NOT EXISTS positions (
				symbol      TEXT PRIMARY KEY,
				name        TEXT NOT NULL DEFAULT '',
				sector      TEXT NOT NULL DEFAULT '',
				entry_date  DATE NOT NULL,
				entry_price DOUBLE PRECISION NOT NULL,
				entry_cost  DOUBLE PRECISION NOT NULL,
				shares      DOUBLE PRECISION NOT NULL,
				stop        DOUBLE PRECISION NOT NULL,
				take_profit DOUBLE PRECISION NOT NULL,
				highest     DOUBLE PRECISION NOT NULL,
				status      TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS trade_log (
				id           TEXT PRIMARY KEY,
				symbol       TEXT NOT NULL,
				entry_date   DATE NOT NULL,
				exit_date    DATE NOT NULL,
				entry_price  DOUBLE PRECISION NOT NULL,
				exit_price   DOUBLE PRECISION NOT NULL,
				exit_reason  TEXT NOT NULL,
				deferred     BOOLEAN NOT NULL DEFAULT FALSE,
				shares       DOUBLE PRECISION NOT NULL,
				gross_pnl    DOUBLE PRECISION NOT NULL,
				net_pnl      DOUBLE PRECISION NOT NULL,
				cost_paid    DOUBLE PRECISION NOT NULL,
				holding_days INT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS backtest_runs (
				id         BIGSERIAL PRIMARY KEY,
				run_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
				summary    JSONB NOT NULL
			)`,
		} {
			if _, err := tx.Exec(ctxTx, stmt); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		return nil
	})
}

// UpsertPosition пишет открытую позицию, по символу позиция одна.
func (s *Store) UpsertPosition(ctx context.Context, p models.Position) error {
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `
			INSERT INTO positions (symbol, name, sector, entry_date, entry_price, entry_cost,
			                       shares, stop, take_profit, highest, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			ON CONFLICT (symbol) DO UPDATE SET
				stop = EXCLUDED.stop, highest = EXCLUDED.highest, status = EXCLUDED.status`,
			p.Symbol, p.Name, p.Sector, p.EntryDate, p.EntryPrice, p.EntryCost,
			p.Shares, p.Stop, p.TakeProfit, p.Highest, string(p.Status))
		if err != nil {
			return fmt.Errorf("upsert position %s: %w", p.Symbol, err)
		}
		return nil
	})
}

// ClosePosition убирает позицию из журнала после выхода.
func (s *Store) ClosePosition(ctx context.Context, symbol string) error {
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		_, err := tx.Exec(ctxTx, `DELETE FROM positions WHERE symbol = $1`, symbol)
		if err != nil {
			return fmt.Errorf("close position %s: %w", symbol, err)
		}
		return nil
	})
}

func (s *Store) OpenPositions(ctx context.Context) ([]models.Position, error) {
	var out []models.Position
	err := s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctxTx, `
			SELECT symbol, name, sector, entry_date, entry_price, entry_cost,
			       shares, stop, take_profit, highest, status
			FROM positions WHERE status = $1 ORDER BY symbol`, string(models.PositionOpen))
		if err != nil {
			return fmt.Errorf("select positions: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var p models.Position
			var status string
			if err := rows.Scan(&p.Symbol, &p.Name, &p.Sector, &p.EntryDate, &p.EntryPrice,
				&p.EntryCost, &p.Shares, &p.Stop, &p.TakeProfit, &p.Highest, &status); err != nil {
				return fmt.Errorf("scan position: %w", err)
			}
			p.Status = models.PositionStatus(status)
			out = append(out, p)
		}
		return rows.Err()
	})
	return out, err
}

// SaveTrades пишет закрытые сделки пачкой в одной транзакции.
func (s *Store) SaveTrades(ctx context.Context, trades []models.Trade) error {
	if len(trades) == 0 {
		return nil
	}
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		for _, t := range trades {
			_, err := tx.Exec(ctxTx, `
				INSERT INTO trade_log (id, symbol, entry_date, exit_date, entry_price, exit_price,
				                       exit_reason, deferred, shares, gross_pnl, net_pnl, cost_paid, holding_days)
				VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
				ON CONFLICT (id) DO NOTHING`,
				t.ID, t.Symbol, t.EntryDate, t.ExitDate, t.EntryPrice, t.ExitPrice,
				string(t.ExitReason), t.Deferred, t.Shares, t.GrossPnL, t.NetPnL, t.CostPaid, t.HoldingDays)
			if err != nil {
				return fmt.Errorf("insert trade %s: %w", t.ID, err)
			}
		}
		return nil
	})
}

// SaveRun сохраняет сводку прогона как JSONB.
func (s *Store) SaveRun(ctx context.Context, runAt time.Time, summary any) error {
	blob, err := sonic.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}
	return s.db.RunMaster(ctx, func(ctxTx context.Context, tx pgx.Tx) error {
		if _, err := tx.Exec(ctxTx,
			`INSERT INTO backtest_runs (run_at, summary) VALUES ($1, $2)`, runAt, blob); err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		return nil
	})
}
