package models

// ProcessResult is the outcome of processing one alert record. Accepted means
// the record was handled; a processing problem surfaces in Error rather than
// flipping Accepted off. Probability is what the model believed before any
// update triggered by this event.
type ProcessResult struct {
	Accepted    bool     `json:"accepted"`
	TradeID     *string  `json:"trade_id,omitempty"`
	Label       *Label   `json:"label,omitempty"`
	Probability *float64 `json:"probability,omitempty"`
	SampleCount *int64   `json:"sample_count,omitempty"`
	Error       *string  `json:"error,omitempty"`

	// Event carries the normalized event for callers that format
	// notifications; it is not part of the wire response.
	Event Event `json:"-"`
}

// StatsSnapshot aggregates the engine's counters for the stats endpoint.
// Breakeven closes count in Closed but not in Wins, Losses or Total.
type StatsSnapshot struct {
	Wins       int64            `json:"wins"`
	Losses     int64            `json:"losses"`
	Total      int64            `json:"total"`
	OpenTrades int              `json:"open_trades"`
	Closed     int              `json:"closed"`
	Partitions map[string]int64 `json:"partitions"`
}
