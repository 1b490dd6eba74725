package engine

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tradepulse-ai/tradepulse/internal/models"
)

var (
	// ErrAlreadyClosed is reported when a close arrives for a trade that has
	// already been closed. The original record is left unchanged.
	ErrAlreadyClosed = errors.New("trade already closed")
	// ErrNoOpenTrade is reported when a scale or close cannot be linked to
	// any open trade.
	ErrNoOpenTrade = errors.New("no open trade")
)

// ledgerKey addresses the single "current open trade" slot.
type ledgerKey struct {
	Instrument string
	Timeframe  string
	Session    models.Session
}

func keyForEvent(ev models.Event) ledgerKey {
	return ledgerKey{Instrument: ev.Instrument, Timeframe: ev.Timeframe, Session: ev.Session}
}

// Ledger owns every tracked trade: the open set, a single current-open slot
// per (instrument, timeframe, session), and the closed history. Safe for
// concurrent use.
type Ledger struct {
	mu           sync.RWMutex
	trades       map[string]*models.Trade
	openByKey    map[ledgerKey]string
	closed       []*models.Trade
	historyLimit int
	logger       *logrus.Logger
}

// NewLedger creates an empty ledger keeping at most historyLimit closed
// trades in memory.
func NewLedger(historyLimit int, logger *logrus.Logger) *Ledger {
	if historyLimit <= 0 {
		historyLimit = 500
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Ledger{
		trades:       make(map[string]*models.Trade),
		openByKey:    make(map[ledgerKey]string),
		historyLimit: historyLimit,
		logger:       logger,
	}
}

// Open records a new trade from an OPEN event and makes it the current open
// trade for its key. Risk and reward distances and the reward:risk ratio are
// derived once here and reused at close. A prior unlabeled trade in the same
// slot is abandoned, not closed.
func (l *Ledger) Open(ev models.Event) *models.Trade {
	trade := &models.Trade{
		ID:         ev.TradeID,
		Instrument: ev.Instrument,
		Timeframe:  ev.Timeframe,
		Session:    ev.Session,
		Side:       ev.Side,
		OpenPrice:  ev.Price,
		Stop:       ev.Stop,
		Target:     ev.Target,
		Score:      ev.Score,
		OpenedAt:   ev.ReceivedAt,
	}
	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}
	deriveDistances(trade)

	key := keyForEvent(ev)

	l.mu.Lock()
	defer l.mu.Unlock()

	if priorID, ok := l.openByKey[key]; ok {
		// Known gap: the prior trade never gets a label. Flagged loudly so
		// the upstream alert script can be fixed.
		l.logger.WithFields(logrus.Fields{
			"instrument":  key.Instrument,
			"timeframe":   key.Timeframe,
			"session":     key.Session,
			"abandoned":   priorID,
			"replacement": trade.ID,
		}).Warn("Open trade slot overwritten; prior trade abandoned unlabeled")
	}

	l.trades[trade.ID] = trade
	l.openByKey[key] = trade.ID
	return trade
}

func deriveDistances(trade *models.Trade) {
	if trade.OpenPrice == nil {
		return
	}
	price := *trade.OpenPrice
	if trade.Stop != nil {
		risk := price.Sub(*trade.Stop).Abs()
		trade.RiskDistance = &risk
	}
	if trade.Target != nil {
		reward := trade.Target.Sub(price).Abs()
		trade.RewardDistance = &reward
	}
	if trade.RiskDistance != nil && trade.RewardDistance != nil && trade.RiskDistance.IsPositive() {
		trade.RewardRisk = trade.RewardDistance.Div(*trade.RiskDistance).InexactFloat64()
	}
}

// FindOpenForClose links a closing event to its trade: by explicit identifier
// when the event carries one, otherwise by the current open slot for the
// event's (instrument, timeframe, session). Returns nil when nothing matches.
// Identifier lookup may return an already-closed trade so the caller can
// report a double close.
func (l *Ledger) FindOpenForClose(ev models.Event) *models.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if ev.TradeID != "" {
		return l.trades[ev.TradeID]
	}
	if id, ok := l.openByKey[keyForEvent(ev)]; ok {
		return l.trades[id]
	}
	return nil
}

// Close stamps the trade with its close price, time and label, frees the
// current-open slot and appends the trade to history. Closing an
// already-closed trade is a no-op returning ErrAlreadyClosed.
func (l *Ledger) Close(trade *models.Trade, ev models.Event, label *models.Label) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if trade.ClosedAt != nil {
		return ErrAlreadyClosed
	}

	closedAt := ev.ReceivedAt
	trade.ClosedAt = &closedAt
	trade.ClosePrice = ev.Price
	trade.Label = label

	key := ledgerKey{Instrument: trade.Instrument, Timeframe: trade.Timeframe, Session: trade.Session}
	if l.openByKey[key] == trade.ID {
		delete(l.openByKey, key)
	}

	l.closed = append(l.closed, trade)
	if len(l.closed) > l.historyLimit {
		// Eviction forgets the trade entirely: a later close carrying the
		// evicted ID reports as unlinked, not as a double close.
		evicted := l.closed[0]
		l.closed = l.closed[1:]
		delete(l.trades, evicted.ID)
	}
	return nil
}

// Scale bumps the accumulated add count on the open trade linked to the
// event. It returns ErrNoOpenTrade when nothing is open for the key.
func (l *Ledger) Scale(ev models.Event) (*models.Trade, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var trade *models.Trade
	if ev.TradeID != "" {
		trade = l.trades[ev.TradeID]
	} else if id, ok := l.openByKey[keyForEvent(ev)]; ok {
		trade = l.trades[id]
	}
	if trade == nil || trade.ClosedAt != nil {
		return nil, fmt.Errorf("%w for %s %s %s", ErrNoOpenTrade, ev.Instrument, ev.Timeframe, ev.Session)
	}

	trade.Adds++
	return trade, nil
}

// OpenTrades lists every currently open trade.
func (l *Ledger) OpenTrades() []*models.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*models.Trade, 0, len(l.openByKey))
	for _, id := range l.openByKey {
		if trade, ok := l.trades[id]; ok {
			out = append(out, trade)
		}
	}
	return out
}

// History lists closed trades, most recent last, up to limit (0 for all).
func (l *Ledger) History(limit int) []*models.Trade {
	l.mu.RLock()
	defer l.mu.RUnlock()

	n := len(l.closed)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]*models.Trade, n)
	copy(out, l.closed[len(l.closed)-n:])
	return out
}

// Counts reports the number of open and closed trades.
func (l *Ledger) Counts() (open, closed int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.openByKey), len(l.closed)
}

// Restore loads trades from a persisted snapshot, rebuilding the open index.
// The most recently opened trade wins a contended slot, matching Open's
// overwrite semantics.
func (l *Ledger) Restore(trades []*models.Trade) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, trade := range trades {
		if trade == nil || trade.ID == "" {
			continue
		}
		l.trades[trade.ID] = trade
		if trade.ClosedAt != nil {
			l.closed = append(l.closed, trade)
			continue
		}
		key := ledgerKey{Instrument: trade.Instrument, Timeframe: trade.Timeframe, Session: trade.Session}
		if priorID, ok := l.openByKey[key]; ok {
			if prior, exists := l.trades[priorID]; exists && prior.OpenedAt.After(trade.OpenedAt) {
				continue
			}
		}
		l.openByKey[key] = trade.ID
	}
}
