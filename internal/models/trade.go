package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Label is the outcome assigned to a closed trade.
type Label string

const (
	LabelWin       Label = "WIN"
	LabelLoss      Label = "LOSS"
	LabelBreakeven Label = "BREAKEVEN"
)

// Trade is one tracked position from entry to close. RiskDistance,
// RewardDistance and RewardRisk are derived once at open from the entry
// price, stop and target.
type Trade struct {
	ID             string           `json:"id" db:"id"`
	Instrument     string           `json:"instrument" db:"instrument"`
	Timeframe      string           `json:"timeframe" db:"timeframe"`
	Session        Session          `json:"session" db:"session"`
	Side           Side             `json:"side" db:"side"`
	OpenPrice      *decimal.Decimal `json:"open_price,omitempty" db:"open_price"`
	Stop           *decimal.Decimal `json:"stop,omitempty" db:"stop"`
	Target         *decimal.Decimal `json:"target,omitempty" db:"target"`
	Score          *float64         `json:"score,omitempty" db:"score"`
	RiskDistance   *decimal.Decimal `json:"risk_distance,omitempty" db:"risk_distance"`
	RewardDistance *decimal.Decimal `json:"reward_distance,omitempty" db:"reward_distance"`
	RewardRisk     float64          `json:"reward_risk" db:"reward_risk"`
	Adds           int              `json:"adds" db:"adds"`
	OpenedAt       time.Time        `json:"opened_at" db:"opened_at"`
	ClosedAt       *time.Time       `json:"closed_at,omitempty" db:"closed_at"`
	ClosePrice     *decimal.Decimal `json:"close_price,omitempty" db:"close_price"`
	Label          *Label           `json:"label,omitempty" db:"label"`
}

// Open reports whether the trade has not been closed yet.
func (t *Trade) Open() bool {
	return t.ClosedAt == nil
}

// ClassifierSnapshot is the persisted state of one model partition.
type ClassifierSnapshot struct {
	Weights []float64 `json:"weights"`
	Samples int64     `json:"samples"`
}
