package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradepulse-ai/tradepulse/internal/models"
)

var nyNQ = PartitionKey{Instrument: "NQ", Session: models.SessionNY}

func testFeatures() []float64 {
	return []float64{1.0, 0.78, 1.5, 0.0011, 1.0}
}

func TestSigmoid_Bounds(t *testing.T) {
	for _, z := range []float64{-1e6, -700, -20, -1, 0, 1, 20, 700, 1e6} {
		p := sigmoid(z)
		assert.Greater(t, p, 0.0, "z=%v", z)
		assert.Less(t, p, 1.0, "z=%v", z)
	}
	assert.Equal(t, 0.5, sigmoid(0))
	assert.False(t, math.IsNaN(sigmoid(1e308)))
}

func TestClassifier_FreshPartitionPredictsHalf(t *testing.T) {
	c := NewClassifier(0.05)
	p, samples := c.Predict(nyNQ, testFeatures())
	assert.Equal(t, 0.5, p)
	assert.Zero(t, samples)
}

func TestClassifier_UpdateMovesTowardLabel(t *testing.T) {
	c := NewClassifier(0.05)
	x := testFeatures()

	prior, samples := c.Update(nyNQ, x, 1)
	assert.Equal(t, 0.5, prior)
	assert.Equal(t, int64(1), samples)

	after, _ := c.Predict(nyNQ, x)
	assert.Greater(t, after, prior)

	// A loss pulls the probability back down.
	prior2, samples2 := c.Update(nyNQ, x, 0)
	assert.Equal(t, after, prior2)
	assert.Equal(t, int64(2), samples2)

	after2, _ := c.Predict(nyNQ, x)
	assert.Less(t, after2, prior2)
}

func TestClassifier_PartitionsAreIndependent(t *testing.T) {
	c := NewClassifier(0.1)
	x := testFeatures()

	for i := 0; i < 10; i++ {
		c.Update(nyNQ, x, 1)
	}

	other := PartitionKey{Instrument: "NQ", Session: models.SessionAsia}
	p, samples := c.Predict(other, x)
	assert.Equal(t, 0.5, p)
	assert.Zero(t, samples)
}

func TestClassifier_SnapshotRestore(t *testing.T) {
	c := NewClassifier(0.05)
	x := testFeatures()
	c.Update(nyNQ, x, 1)
	c.Update(nyNQ, x, 1)

	snap := c.Snapshot(nyNQ)
	require.Len(t, snap.Weights, FeatureDim)
	assert.Equal(t, int64(2), snap.Samples)

	restored := NewClassifier(0.05)
	restored.Restore(nyNQ, snap)

	wantP, wantN := c.Predict(nyNQ, x)
	gotP, gotN := restored.Predict(nyNQ, x)
	assert.Equal(t, wantP, gotP)
	assert.Equal(t, wantN, gotN)
}

func TestClassifier_RestoreRejectsWrongDimension(t *testing.T) {
	c := NewClassifier(0.05)
	c.Restore(nyNQ, models.ClassifierSnapshot{Weights: []float64{1, 2}, Samples: 9})

	p, samples := c.Predict(nyNQ, testFeatures())
	assert.Equal(t, 0.5, p)
	assert.Zero(t, samples)
}

func TestPartitionKey_RoundTrip(t *testing.T) {
	key, ok := ParsePartitionKey(nyNQ.String())
	require.True(t, ok)
	assert.Equal(t, nyNQ, key)

	_, ok = ParsePartitionKey("garbage")
	assert.False(t, ok)
	_, ok = ParsePartitionKey("|NY")
	assert.False(t, ok)
}

func TestClassifier_SnapshotAll(t *testing.T) {
	c := NewClassifier(0.05)
	c.Update(nyNQ, testFeatures(), 1)

	all := c.SnapshotAll()
	require.Len(t, all, 1)
	snap, ok := all["NQ|NY"]
	require.True(t, ok)
	assert.Equal(t, int64(1), snap.Samples)
}
