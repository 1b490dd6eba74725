package engine

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradepulse-ai/tradepulse/internal/models"
)

// Normalizer converts loosely-typed alert records into typed events. It never
// returns an error: unrecognized input degrades to UNKNOWN kind/side and nil
// numerics, which every downstream component tolerates.
type Normalizer struct {
	// rewardRisk is the multiple used to recompute a target that arrived on
	// the wrong side of price.
	rewardRisk decimal.Decimal
}

// NewNormalizer creates a normalizer with the given default reward:risk
// multiple.
func NewNormalizer(defaultRewardRisk float64) *Normalizer {
	if defaultRewardRisk <= 0 {
		defaultRewardRisk = 2.0
	}
	return &Normalizer{rewardRisk: decimal.NewFromFloat(defaultRewardRisk)}
}

// Normalize builds an Event from one inbound record. The record may carry its
// kind/side at the top level (type, side/direction) or nested under an
// "event" object; both TradingView payload shapes are in the wild.
func (n *Normalizer) Normalize(record map[string]any, now time.Time) models.Event {
	record = flatten(record)

	ev := models.Event{
		Instrument: stringField(record, "symbol", "instrument"),
		Timeframe:  stringField(record, "tf", "timeframe"),
		TradeID:    stringField(record, "trade_id", "id"),
		Session:    SessionFor(now),
		ReceivedAt: now,
	}

	kindToken := strings.ToUpper(stringField(record, "type", "kind"))
	ev.Kind = classifyKind(kindToken)
	ev.Side = classifySide(record, kindToken)

	ev.Price = ParseOptionalDecimal(record["price"])
	ev.Stop = ParseOptionalDecimal(record["sl"])
	if ev.Stop == nil {
		ev.Stop = ParseOptionalDecimal(record["stop"])
	}
	ev.Target = ParseOptionalDecimal(record["tp"])
	if ev.Target == nil {
		ev.Target = ParseOptionalDecimal(record["target"])
	}
	ev.Score = n.scoreForSide(record, ev.Side)

	n.repairBounds(&ev)

	return ev
}

// flatten lifts fields from a nested "event" object to the top level without
// shadowing top-level values. The caller's map is never written to.
func flatten(record map[string]any) map[string]any {
	nested, ok := record["event"].(map[string]any)
	if !ok {
		return record
	}
	merged := make(map[string]any, len(record)+len(nested))
	for k, v := range record {
		merged[k] = v
	}
	for k, v := range nested {
		if _, shadowed := merged[k]; !shadowed {
			merged[k] = v
		}
	}
	return merged
}

// classifyKind maps an alert type token to an event kind. Rules are ordered;
// the first match wins.
func classifyKind(token string) models.EventKind {
	switch {
	case token == "ENTRY" || token == "OPEN" || strings.HasPrefix(token, "ENTRY_"):
		return models.EventOpen
	case token == "SCALE" || strings.HasPrefix(token, "SCALE_"):
		return models.EventScale
	case strings.HasPrefix(token, "TRAIL"), strings.HasPrefix(token, "CLOSE"):
		return models.EventClose
	case token == "OUTCOME":
		return models.EventOutcome
	default:
		return models.EventUnknown
	}
}

// classifySide resolves the position direction, trying in order: an explicit
// side field, a suffix marker on the kind token, the sign of a directional
// indicator, and finally the larger of the two side-specific scores.
func classifySide(record map[string]any, kindToken string) models.Side {
	switch strings.ToUpper(stringField(record, "side", "direction")) {
	case "LONG", "BUY":
		return models.SideLong
	case "SHORT", "SELL":
		return models.SideShort
	}

	switch {
	case strings.HasSuffix(kindToken, "_LONG"), strings.HasSuffix(kindToken, "_BUY"):
		return models.SideLong
	case strings.HasSuffix(kindToken, "_SHORT"), strings.HasSuffix(kindToken, "_SELL"):
		return models.SideShort
	}

	if dir := ParseOptionalFloat(record["dir"]); dir != nil && *dir != 0 {
		if *dir > 0 {
			return models.SideLong
		}
		return models.SideShort
	}

	longScore := ParseOptionalFloat(record["long_score"])
	shortScore := ParseOptionalFloat(record["short_score"])
	if longScore != nil && shortScore != nil && *longScore != *shortScore {
		if *longScore > *shortScore {
			return models.SideLong
		}
		return models.SideShort
	}

	return models.SideUnknown
}

// scoreForSide picks the score bound to the detected side. An UNKNOWN side
// has no score: the side-specific fields cannot be chosen between.
func (n *Normalizer) scoreForSide(record map[string]any, side models.Side) *float64 {
	switch side {
	case models.SideLong:
		if s := ParseOptionalFloat(record["long_score"]); s != nil {
			return s
		}
	case models.SideShort:
		if s := ParseOptionalFloat(record["short_score"]); s != nil {
			return s
		}
	default:
		return nil
	}
	return ParseOptionalFloat(record["score"])
}

// repairBounds fixes stop/target pairs that arrived transposed or with the
// target on the wrong side of price for the detected direction. A transposed
// pair is swapped; a lone bad target is recomputed from the risk distance and
// the default reward:risk multiple.
func (n *Normalizer) repairBounds(ev *models.Event) {
	if ev.Price == nil || ev.Stop == nil || ev.Target == nil {
		return
	}
	if ev.Side != models.SideLong && ev.Side != models.SideShort {
		return
	}

	price, stop, target := *ev.Price, *ev.Stop, *ev.Target

	var stopBad, targetBad bool
	if ev.Side == models.SideLong {
		stopBad = stop.GreaterThanOrEqual(price)
		targetBad = target.LessThanOrEqual(price)
	} else {
		stopBad = stop.LessThanOrEqual(price)
		targetBad = target.GreaterThanOrEqual(price)
	}

	switch {
	case stopBad && targetBad:
		ev.Stop, ev.Target = ev.Target, ev.Stop
	case targetBad:
		risk := price.Sub(stop).Abs()
		reward := risk.Mul(n.rewardRisk)
		var fixed decimal.Decimal
		if ev.Side == models.SideLong {
			fixed = price.Add(reward)
		} else {
			fixed = price.Sub(reward)
		}
		ev.Target = &fixed
	}
}
