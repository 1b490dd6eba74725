package database

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/tradepulse-ai/tradepulse/internal/models"
)

const modelKeyPrefix = "tradepulse:model:"

// ModelStore keeps classifier partition snapshots in Redis as JSON, one key
// per partition. Snapshots never expire: the model is long-lived state, not a
// cache entry.
type ModelStore struct {
	redis  *RedisClient
	logger *logrus.Logger
}

// NewModelStore creates a store on top of a redis client.
func NewModelStore(redis *RedisClient, logger *logrus.Logger) *ModelStore {
	if logger == nil {
		logger = logrus.New()
	}
	return &ModelStore{redis: redis, logger: logger}
}

// Save writes one partition snapshot.
func (s *ModelStore) Save(ctx context.Context, partition string, snap models.ClassifierSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal model snapshot for %s: %w", partition, err)
	}
	if err := s.redis.Client.Set(ctx, modelKeyPrefix+partition, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to store model snapshot for %s: %w", partition, err)
	}
	return nil
}

// LoadAll reads every stored partition snapshot. Entries that fail to decode
// are skipped with a warning; one corrupt key must not block rehydration.
func (s *ModelStore) LoadAll(ctx context.Context) (map[string]models.ClassifierSnapshot, error) {
	out := make(map[string]models.ClassifierSnapshot)

	iter := s.redis.Client.Scan(ctx, 0, modelKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		raw, err := s.redis.Client.Get(ctx, key).Result()
		if err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("Failed to read model snapshot")
			continue
		}
		var snap models.ClassifierSnapshot
		if err := json.Unmarshal([]byte(raw), &snap); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("Skipping corrupt model snapshot")
			continue
		}
		out[strings.TrimPrefix(key, modelKeyPrefix)] = snap
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan model snapshots: %w", err)
	}
	return out, nil
}
