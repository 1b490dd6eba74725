package engine

import (
	"time"

	"github.com/tradepulse-ai/tradepulse/internal/models"
)

// Session boundaries in UTC minutes of day: ASIA [0,420), LONDON [420,750),
// NY [750,1200), OTHER for the rest.
const (
	asiaEnd   = 420
	londonEnd = 750
	nyEnd     = 1200
)

// SessionFor maps a timestamp to its trading session bucket. The boundaries
// are fixed wall-clock UTC minutes; the zone of t does not matter.
func SessionFor(t time.Time) models.Session {
	minute := t.UTC().Hour()*60 + t.UTC().Minute()
	switch {
	case minute < asiaEnd:
		return models.SessionAsia
	case minute < londonEnd:
		return models.SessionLondon
	case minute < nyEnd:
		return models.SessionNY
	default:
		return models.SessionOther
	}
}
