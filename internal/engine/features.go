package engine

import (
	"github.com/tradepulse-ai/tradepulse/internal/models"
)

// FeatureDim is the fixed width of the classifier input, bias included.
const FeatureDim = 5

// Clamp bounds for each feature. Fixed constants that bound the gradient
// magnitude; not tuned per instrument.
const (
	maxRewardRiskFeature = 3.0
	maxStopFraction      = 0.02
)

// ExtractFeatures derives the classifier input from a trade's attributes:
// [bias, score/100, reward:risk, stop distance as a fraction of price, side
// indicator]. It returns nil when any required attribute is missing or the
// price is not positive; the model is never stepped with a degenerate input.
func ExtractFeatures(trade *models.Trade) []float64 {
	if trade.OpenPrice == nil || trade.Stop == nil || trade.Target == nil || trade.Score == nil {
		return nil
	}
	price, _ := trade.OpenPrice.Float64()
	if price <= 0 {
		return nil
	}

	stop, _ := trade.Stop.Float64()
	stopFraction := clamp(abs(price-stop)/price, 0, maxStopFraction)

	side := 0.0
	if trade.Side == models.SideLong {
		side = 1.0
	}

	return []float64{
		1.0,
		clamp(*trade.Score/100.0, 0, 1),
		clamp(trade.RewardRisk, 0, maxRewardRiskFeature),
		stopFraction,
		side,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
