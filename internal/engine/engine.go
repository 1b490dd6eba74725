package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/tradepulse-ai/tradepulse/internal/config"
	"github.com/tradepulse-ai/tradepulse/internal/models"
)

// Error strings surfaced in ProcessResult.Error. They are part of the API
// response contract.
const (
	errNoLinkedEntry = "no linked entry"
	errAlreadyClosed = "trade already closed"
	errUnknownKind   = "unknown event kind"
	errUnresolved    = "unresolved: close price missing"
	errNoOpenToScale = "no open trade to scale"
	errMissingOpen   = "unresolved: open price missing"
)

// Persister receives completed in-memory transitions for durable storage.
// Persistence is best effort: a failure is logged and must never roll back
// or block the in-memory state.
type Persister interface {
	SaveTrade(ctx context.Context, trade *models.Trade) error
	SaveModel(ctx context.Context, key string, snap models.ClassifierSnapshot) error
}

// Engine runs the event pipeline: normalize, open/scale/close bookkeeping,
// outcome labeling and the online model update. Events for the same key are
// serialized by a single engine-wide mutex; expected throughput is a handful
// of alerts per minute, so per-key locking buys nothing.
type Engine struct {
	mu         sync.Mutex
	normalizer *Normalizer
	ledger     *Ledger
	labeler    *Labeler
	classifier *Classifier
	persister  Persister
	logger     *logrus.Logger

	wins   int64
	losses int64

	now func() time.Time
}

// New assembles an engine from configuration. persister may be nil for a
// purely in-memory deployment.
func New(cfg config.EngineConfig, persister Persister, logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{
		normalizer: NewNormalizer(cfg.DefaultRewardRisk),
		ledger:     NewLedger(cfg.HistoryLimit, logger),
		labeler:    NewLabeler(cfg.TickSizes, cfg.DefaultTick, cfg.BreakevenTicks),
		classifier: NewClassifier(cfg.LearningRate),
		persister:  persister,
		logger:     logger,
		now:        time.Now,
	}
}

// Process ingests one pre-decoded alert record and returns the structured
// result. It never panics and never returns an error: every detectable
// failure surfaces in the result's error field.
func (e *Engine) Process(ctx context.Context, record map[string]any) models.ProcessResult {
	ev := e.normalizer.Normalize(record, e.now())

	e.mu.Lock()
	defer e.mu.Unlock()

	var res models.ProcessResult
	switch ev.Kind {
	case models.EventOpen:
		res = e.processOpen(ctx, ev)
	case models.EventScale:
		res = e.processScale(ev)
	case models.EventClose, models.EventOutcome:
		res = e.processClose(ctx, ev)
	default:
		res = resultError(errUnknownKind)
	}
	res.Event = ev
	return res
}

func (e *Engine) processOpen(ctx context.Context, ev models.Event) models.ProcessResult {
	trade := e.ledger.Open(ev)

	res := models.ProcessResult{Accepted: true, TradeID: &trade.ID}
	if x := ExtractFeatures(trade); x != nil {
		prob, samples := e.classifier.Predict(partitionFor(trade), x)
		res.Probability = &prob
		res.SampleCount = &samples
	}

	e.persistTrade(ctx, trade)

	e.logger.WithFields(logrus.Fields{
		"trade_id":   trade.ID,
		"instrument": trade.Instrument,
		"timeframe":  trade.Timeframe,
		"session":    trade.Session,
		"side":       trade.Side,
	}).Info("Trade opened")
	return res
}

func (e *Engine) processScale(ev models.Event) models.ProcessResult {
	trade, err := e.ledger.Scale(ev)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"instrument": ev.Instrument,
			"timeframe":  ev.Timeframe,
			"session":    ev.Session,
		}).Warn("Scale event with no open trade")
		return resultError(errNoOpenToScale)
	}
	return models.ProcessResult{Accepted: true, TradeID: &trade.ID}
}

func (e *Engine) processClose(ctx context.Context, ev models.Event) models.ProcessResult {
	trade := e.ledger.FindOpenForClose(ev)
	if trade == nil {
		return resultError(errNoLinkedEntry)
	}
	if trade.ClosedAt != nil {
		return resultError(errAlreadyClosed)
	}

	// A close without a usable price, or against an entry that never had
	// one, cannot be labeled. The trade is still closed so the slot frees
	// up, recorded as unresolved.
	if ev.Price == nil || trade.OpenPrice == nil {
		reason := errUnresolved
		if ev.Price != nil {
			reason = errMissingOpen
		}
		if err := e.ledger.Close(trade, ev, nil); err != nil {
			return resultErrorWithTrade(trade.ID, errAlreadyClosed)
		}
		e.persistTrade(ctx, trade)
		return resultErrorWithTrade(trade.ID, reason)
	}

	label := e.labeler.Label(trade, *ev.Price)
	res := models.ProcessResult{Accepted: true, TradeID: &trade.ID, Label: &label}

	if label == models.LabelBreakeven {
		// Breakeven closes are excluded from the counters and from
		// learning; the sample count must not move.
		samples := e.classifier.Samples(partitionFor(trade))
		res.SampleCount = &samples
	} else {
		if label == models.LabelWin {
			e.wins++
		} else {
			e.losses++
		}
		if x := ExtractFeatures(trade); x != nil {
			y := 0.0
			if label == models.LabelWin {
				y = 1.0
			}
			key := partitionFor(trade)
			prior, samples := e.classifier.Update(key, x, y)
			res.Probability = &prior
			res.SampleCount = &samples
			e.persistModel(ctx, key)
		}
	}

	if err := e.ledger.Close(trade, ev, &label); err != nil {
		if errors.Is(err, ErrAlreadyClosed) {
			return resultErrorWithTrade(trade.ID, errAlreadyClosed)
		}
	}
	e.persistTrade(ctx, trade)

	e.logger.WithFields(logrus.Fields{
		"trade_id":   trade.ID,
		"instrument": trade.Instrument,
		"label":      label,
	}).Info("Trade closed")
	return res
}

func partitionFor(trade *models.Trade) PartitionKey {
	return PartitionKey{Instrument: trade.Instrument, Session: trade.Session}
}

func (e *Engine) persistTrade(ctx context.Context, trade *models.Trade) {
	if e.persister == nil {
		return
	}
	if err := e.persister.SaveTrade(ctx, trade); err != nil {
		e.logger.WithError(err).WithField("trade_id", trade.ID).Warn("Trade persistence failed; in-memory state kept")
	}
}

func (e *Engine) persistModel(ctx context.Context, key PartitionKey) {
	if e.persister == nil {
		return
	}
	if err := e.persister.SaveModel(ctx, key.String(), e.classifier.Snapshot(key)); err != nil {
		e.logger.WithError(err).WithField("partition", key.String()).Warn("Model persistence failed; in-memory state kept")
	}
}

// Stats returns the aggregate counters and per-partition sample counts.
func (e *Engine) Stats() models.StatsSnapshot {
	e.mu.Lock()
	wins, losses := e.wins, e.losses
	e.mu.Unlock()

	open, closed := e.ledger.Counts()
	return models.StatsSnapshot{
		Wins:       wins,
		Losses:     losses,
		Total:      wins + losses,
		OpenTrades: open,
		Closed:     closed,
		Partitions: e.classifier.PartitionCounts(),
	}
}

// OpenTrades lists the currently open trades.
func (e *Engine) OpenTrades() []*models.Trade {
	return e.ledger.OpenTrades()
}

// History lists closed trades, most recent last.
func (e *Engine) History(limit int) []*models.Trade {
	return e.ledger.History(limit)
}

// SnapshotModels exports every model partition for persistence.
func (e *Engine) SnapshotModels() map[string]models.ClassifierSnapshot {
	return e.classifier.SnapshotAll()
}

// Rehydrate loads previously persisted trades and model partitions, typically
// at startup. Unparseable partition keys and wrong-dimension snapshots are
// skipped.
func (e *Engine) Rehydrate(trades []*models.Trade, snapshots map[string]models.ClassifierSnapshot) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ledger.Restore(trades)
	for _, trade := range trades {
		if trade == nil || trade.Label == nil {
			continue
		}
		switch *trade.Label {
		case models.LabelWin:
			e.wins++
		case models.LabelLoss:
			e.losses++
		}
	}
	for raw, snap := range snapshots {
		if key, ok := ParsePartitionKey(raw); ok {
			e.classifier.Restore(key, snap)
		}
	}
}

func resultError(msg string) models.ProcessResult {
	return models.ProcessResult{Accepted: true, Error: &msg}
}

func resultErrorWithTrade(tradeID, msg string) models.ProcessResult {
	return models.ProcessResult{Accepted: true, TradeID: &tradeID, Error: &msg}
}
