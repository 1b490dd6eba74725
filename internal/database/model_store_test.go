package database

import (
	"context"
	"io"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse-ai/tradepulse/internal/models"
)

func newTestModelStore(t *testing.T) (*ModelStore, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return NewModelStore(NewRedisClientFromExisting(client), logger), mr
}

func TestModelStore_SaveAndLoadAll(t *testing.T) {
	store, _ := newTestModelStore(t)
	ctx := context.Background()

	snapNY := models.ClassifierSnapshot{Weights: []float64{0.1, 0.2, 0.3, 0.4, 0.5}, Samples: 7}
	snapAsia := models.ClassifierSnapshot{Weights: []float64{0, 0, 0, 0, 0}, Samples: 0}

	require.NoError(t, store.Save(ctx, "NQ|NY", snapNY))
	require.NoError(t, store.Save(ctx, "ES|ASIA", snapAsia))

	loaded, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, snapNY, loaded["NQ|NY"])
	assert.Equal(t, snapAsia, loaded["ES|ASIA"])
}

func TestModelStore_SaveOverwrites(t *testing.T) {
	store, _ := newTestModelStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "NQ|NY", models.ClassifierSnapshot{Weights: []float64{1}, Samples: 1}))
	require.NoError(t, store.Save(ctx, "NQ|NY", models.ClassifierSnapshot{Weights: []float64{2}, Samples: 2}))

	loaded, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, int64(2), loaded["NQ|NY"].Samples)
}

func TestModelStore_LoadAllSkipsCorruptEntries(t *testing.T) {
	store, mr := newTestModelStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "NQ|NY", models.ClassifierSnapshot{Weights: []float64{0.1}, Samples: 3}))
	require.NoError(t, mr.Set(modelKeyPrefix+"GC|LONDON", "not json"))

	loaded, err := store.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, int64(3), loaded["NQ|NY"].Samples)
}

func TestModelStore_LoadAllIgnoresForeignKeys(t *testing.T) {
	store, mr := newTestModelStore(t)
	ctx := context.Background()

	require.NoError(t, mr.Set("other:key", `{"weights":[1],"samples":9}`))

	loaded, err := store.LoadAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestModelStore_LoadAllEmpty(t *testing.T) {
	store, _ := newTestModelStore(t)

	loaded, err := store.LoadAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
