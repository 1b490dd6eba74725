package services

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/tradepulse-ai/tradepulse/internal/database"
	"github.com/tradepulse-ai/tradepulse/internal/models"
)

// SnapshotService is the engine's durable-storage collaborator: trade rows go
// to Postgres, model partition snapshots to Redis. Either backend may be
// absent; the corresponding writes become no-ops. Failures are surfaced to
// the engine, which logs and keeps its in-memory state.
type SnapshotService struct {
	trades     *database.TradeRepository
	modelStore *database.ModelStore
	logger     *logrus.Logger
}

// NewSnapshotService builds the service. trades and models may each be nil.
func NewSnapshotService(trades *database.TradeRepository, modelStore *database.ModelStore, logger *logrus.Logger) *SnapshotService {
	if logger == nil {
		logger = logrus.New()
	}
	return &SnapshotService{trades: trades, modelStore: modelStore, logger: logger}
}

// SaveTrade persists one trade row.
func (s *SnapshotService) SaveTrade(ctx context.Context, trade *models.Trade) error {
	if s.trades == nil {
		return nil
	}
	return s.trades.Save(ctx, trade)
}

// SaveModel persists one classifier partition snapshot.
func (s *SnapshotService) SaveModel(ctx context.Context, key string, snap models.ClassifierSnapshot) error {
	if s.modelStore == nil {
		return nil
	}
	return s.modelStore.Save(ctx, key, snap)
}

// Load reads both snapshots for engine rehydration at startup. A failing
// backend yields an empty slice or map rather than an error: the service
// starts fresh instead of refusing to start.
func (s *SnapshotService) Load(ctx context.Context) ([]*models.Trade, map[string]models.ClassifierSnapshot) {
	var trades []*models.Trade
	if s.trades != nil {
		loaded, err := s.trades.LoadAll(ctx)
		if err != nil {
			s.logger.WithError(err).Warn("Trade rehydration failed; starting with an empty ledger")
		} else {
			trades = loaded
		}
	}

	snapshots := map[string]models.ClassifierSnapshot{}
	if s.modelStore != nil {
		loaded, err := s.modelStore.LoadAll(ctx)
		if err != nil {
			s.logger.WithError(err).Warn("Model rehydration failed; starting with fresh partitions")
		} else {
			snapshots = loaded
		}
	}
	return trades, snapshots
}
