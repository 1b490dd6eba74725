package engine

import (
	"github.com/shopspring/decimal"

	"github.com/tradepulse-ai/tradepulse/internal/models"
)

// Labeler decides win/loss/breakeven for a closing price against the linked
// open trade.
type Labeler struct {
	defaultTick    decimal.Decimal
	breakevenTicks int64
	tickSizes      map[string]decimal.Decimal
}

// NewLabeler builds a labeler from per-instrument tick sizes, a fallback tick
// and the breakeven tolerance in ticks.
func NewLabeler(tickSizes map[string]float64, defaultTick float64, breakevenTicks int) *Labeler {
	sizes := make(map[string]decimal.Decimal, len(tickSizes))
	for instrument, tick := range tickSizes {
		if tick > 0 {
			sizes[instrument] = decimal.NewFromFloat(tick)
		}
	}
	if defaultTick <= 0 {
		defaultTick = 0.25
	}
	return &Labeler{
		defaultTick:    decimal.NewFromFloat(defaultTick),
		breakevenTicks: int64(breakevenTicks),
		tickSizes:      sizes,
	}
}

// Tick returns the minimum price increment for an instrument.
func (l *Labeler) Tick(instrument string) decimal.Decimal {
	if tick, ok := l.tickSizes[instrument]; ok {
		return tick
	}
	return l.defaultTick
}

// Label classifies the outcome of closing trade at closePrice. A close within
// the breakeven band takes precedence over win/loss; an UNKNOWN side never
// wins.
func (l *Labeler) Label(trade *models.Trade, closePrice decimal.Decimal) models.Label {
	if trade.OpenPrice == nil {
		return models.LabelLoss
	}
	open := *trade.OpenPrice

	band := l.Tick(trade.Instrument).Mul(decimal.NewFromInt(l.breakevenTicks))
	if closePrice.Sub(open).Abs().LessThanOrEqual(band) {
		return models.LabelBreakeven
	}

	switch trade.Side {
	case models.SideLong:
		if closePrice.GreaterThan(open) {
			return models.LabelWin
		}
	case models.SideShort:
		if closePrice.LessThan(open) {
			return models.LabelWin
		}
	}
	return models.LabelLoss
}
