package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// EventKind classifies what an inbound alert means for the trade lifecycle.
type EventKind string

const (
	EventOpen    EventKind = "OPEN"
	EventScale   EventKind = "SCALE"
	EventClose   EventKind = "CLOSE"
	EventOutcome EventKind = "OUTCOME"
	EventUnknown EventKind = "UNKNOWN"
)

// Side is the position direction.
type Side string

const (
	SideLong    Side = "LONG"
	SideShort   Side = "SHORT"
	SideUnknown Side = "UNKNOWN"
)

// Session is the trading session bucket an event falls into, derived from the
// UTC wall clock at ingestion.
type Session string

const (
	SessionAsia   Session = "ASIA"
	SessionLondon Session = "LONDON"
	SessionNY     Session = "NY"
	SessionOther  Session = "OTHER"
)

// Event is one normalized alert. Numeric fields are nil when the inbound
// record omitted them or carried an absent marker; downstream code must
// tolerate any of them being nil.
type Event struct {
	Kind       EventKind        `json:"kind"`
	Side       Side             `json:"side"`
	Instrument string           `json:"instrument"`
	Timeframe  string           `json:"timeframe"`
	Session    Session          `json:"session"`
	TradeID    string           `json:"trade_id,omitempty"`
	Price      *decimal.Decimal `json:"price,omitempty"`
	Stop       *decimal.Decimal `json:"stop,omitempty"`
	Target     *decimal.Decimal `json:"target,omitempty"`
	Score      *float64         `json:"score,omitempty"`
	ReceivedAt time.Time        `json:"received_at"`
}
