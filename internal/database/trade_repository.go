package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/tradepulse-ai/tradepulse/internal/models"
)

// DatabasePool defines the pool operations the repository needs. Satisfied by
// pgxpool.Pool and by pgxmock in tests.
type DatabasePool interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// TradeRepository persists trade records. Writes are upserts keyed by trade
// id, so the same row is touched at open, on scales and at close.
type TradeRepository struct {
	pool DatabasePool
}

// NewTradeRepository creates a repository on top of a pool.
func NewTradeRepository(pool DatabasePool) *TradeRepository {
	return &TradeRepository{pool: pool}
}

const tradesSchema = `
	CREATE TABLE IF NOT EXISTS trades (
		id              TEXT PRIMARY KEY,
		instrument      TEXT NOT NULL,
		timeframe       TEXT NOT NULL,
		session         TEXT NOT NULL,
		side            TEXT NOT NULL,
		open_price      DOUBLE PRECISION,
		stop            DOUBLE PRECISION,
		target          DOUBLE PRECISION,
		score           DOUBLE PRECISION,
		risk_distance   DOUBLE PRECISION,
		reward_distance DOUBLE PRECISION,
		reward_risk     DOUBLE PRECISION NOT NULL DEFAULT 0,
		adds            INTEGER NOT NULL DEFAULT 0,
		opened_at       TIMESTAMPTZ NOT NULL,
		closed_at       TIMESTAMPTZ,
		close_price     DOUBLE PRECISION,
		label           TEXT
	)`

// EnsureSchema creates the trades table when it does not exist yet.
func (r *TradeRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, tradesSchema); err != nil {
		return fmt.Errorf("failed to ensure trades schema: %w", err)
	}
	return nil
}

// Save upserts one trade row.
func (r *TradeRepository) Save(ctx context.Context, trade *models.Trade) error {
	query := `
		INSERT INTO trades (
			id, instrument, timeframe, session, side,
			open_price, stop, target, score,
			risk_distance, reward_distance, reward_risk, adds,
			opened_at, closed_at, close_price, label
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		ON CONFLICT (id) DO UPDATE SET
			adds = EXCLUDED.adds,
			closed_at = EXCLUDED.closed_at,
			close_price = EXCLUDED.close_price,
			label = EXCLUDED.label
	`

	_, err := r.pool.Exec(ctx, query,
		trade.ID, trade.Instrument, trade.Timeframe, string(trade.Session), string(trade.Side),
		decimalPtrToFloat(trade.OpenPrice), decimalPtrToFloat(trade.Stop), decimalPtrToFloat(trade.Target), trade.Score,
		decimalPtrToFloat(trade.RiskDistance), decimalPtrToFloat(trade.RewardDistance), trade.RewardRisk, trade.Adds,
		trade.OpenedAt, trade.ClosedAt, decimalPtrToFloat(trade.ClosePrice), labelPtrToString(trade.Label),
	)
	if err != nil {
		return fmt.Errorf("failed to save trade %s: %w", trade.ID, err)
	}
	return nil
}

// LoadAll reads every persisted trade, open first and then closed by close
// time, for engine rehydration at startup.
func (r *TradeRepository) LoadAll(ctx context.Context) ([]*models.Trade, error) {
	query := `
		SELECT id, instrument, timeframe, session, side,
		       open_price, stop, target, score,
		       risk_distance, reward_distance, reward_risk, adds,
		       opened_at, closed_at, close_price, label
		FROM trades
		ORDER BY closed_at NULLS FIRST, opened_at
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}
	defer rows.Close()

	var trades []*models.Trade
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read trade rows: %w", err)
	}
	return trades, nil
}

func scanTrade(rows pgx.Rows) (*models.Trade, error) {
	var (
		trade                                  models.Trade
		session, side                          string
		openPrice, stop, target                *float64
		riskDistance, rewardDistance, closePrc *float64
		closedAt                               *time.Time
		label                                  *string
	)
	err := rows.Scan(
		&trade.ID, &trade.Instrument, &trade.Timeframe, &session, &side,
		&openPrice, &stop, &target, &trade.Score,
		&riskDistance, &rewardDistance, &trade.RewardRisk, &trade.Adds,
		&trade.OpenedAt, &closedAt, &closePrc, &label,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan trade row: %w", err)
	}

	trade.Session = models.Session(session)
	trade.Side = models.Side(side)
	trade.OpenPrice = floatPtrToDecimal(openPrice)
	trade.Stop = floatPtrToDecimal(stop)
	trade.Target = floatPtrToDecimal(target)
	trade.RiskDistance = floatPtrToDecimal(riskDistance)
	trade.RewardDistance = floatPtrToDecimal(rewardDistance)
	trade.ClosedAt = closedAt
	trade.ClosePrice = floatPtrToDecimal(closePrc)
	if label != nil {
		l := models.Label(*label)
		trade.Label = &l
	}
	return &trade, nil
}

func decimalPtrToFloat(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f, _ := d.Float64()
	return &f
}

func floatPtrToDecimal(f *float64) *decimal.Decimal {
	if f == nil {
		return nil
	}
	d := decimal.NewFromFloat(*f)
	return &d
}

func labelPtrToString(l *models.Label) *string {
	if l == nil {
		return nil
	}
	s := string(*l)
	return &s
}
