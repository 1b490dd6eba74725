package engine

import (
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/tradepulse-ai/tradepulse/internal/models"
)

// PartitionKey identifies one independently-trained model partition.
type PartitionKey struct {
	Instrument string
	Session    models.Session
}

// String renders the key in its stable storage form.
func (k PartitionKey) String() string {
	return fmt.Sprintf("%s|%s", k.Instrument, k.Session)
}

// ParsePartitionKey inverts String. The second return is false for anything
// that is not an instrument and a session joined by a pipe.
func ParsePartitionKey(s string) (PartitionKey, bool) {
	instrument, session, ok := strings.Cut(s, "|")
	if !ok || instrument == "" || session == "" {
		return PartitionKey{}, false
	}
	return PartitionKey{Instrument: instrument, Session: models.Session(session)}, true
}

type partitionState struct {
	weights []float64
	samples int64
}

// Classifier is an online logistic-regression estimator, one weight vector
// per (instrument, session) partition. Partitions are created lazily with
// zero weights and never deleted. Safe for concurrent use.
type Classifier struct {
	mu           sync.RWMutex
	partitions   map[PartitionKey]*partitionState
	learningRate float64
}

// NewClassifier creates an empty classifier with the given SGD step size.
func NewClassifier(learningRate float64) *Classifier {
	if learningRate <= 0 {
		learningRate = 0.05
	}
	return &Classifier{
		partitions:   make(map[PartitionKey]*partitionState),
		learningRate: learningRate,
	}
}

// maxLogit keeps sigmoid away from the float64 rounding cliff: beyond ~36 the
// result would round to exactly 0 or 1.
const maxLogit = 35.0

// sigmoid computes 1/(1+e^-z), branching on the sign of z so the exponential
// never overflows. Output is strictly inside (0,1) for any finite input.
func sigmoid(z float64) float64 {
	if z > maxLogit {
		z = maxLogit
	} else if z < -maxLogit {
		z = -maxLogit
	}
	if z >= 0 {
		return 1.0 / (1.0 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1.0 + e)
}

func dot(w, x []float64) float64 {
	var z float64
	for i := range w {
		z += w[i] * x[i]
	}
	return z
}

func (c *Classifier) state(key PartitionKey) *partitionState {
	st, ok := c.partitions[key]
	if !ok {
		st = &partitionState{weights: make([]float64, FeatureDim)}
		c.partitions[key] = st
	}
	return st
}

// Predict returns the probability of a win for feature vector x under the
// key's partition, plus the number of samples the partition has seen. A fresh
// partition has zero weights and predicts exactly 0.5.
func (c *Classifier) Predict(key PartitionKey, x []float64) (float64, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state(key)
	return sigmoid(dot(st.weights, x)), st.samples
}

// Update applies one stochastic-gradient step for the observed label
// (1 = win, 0 = loss) and returns the probability the model assigned before
// the step, together with the new sample count. Callers report the prior so
// the update itself never colors "what the model believed".
func (c *Classifier) Update(key PartitionKey, x []float64, label float64) (float64, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st := c.state(key)
	prior := sigmoid(dot(st.weights, x))
	step := c.learningRate * (label - prior)
	for i := range st.weights {
		st.weights[i] += step * x[i]
	}
	st.samples++
	return prior, st.samples
}

// Samples returns the sample count for a partition without creating it.
func (c *Classifier) Samples(key PartitionKey) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if st, ok := c.partitions[key]; ok {
		return st.samples
	}
	return 0
}

// Snapshot copies the state of one partition for persistence.
func (c *Classifier) Snapshot(key PartitionKey) models.ClassifierSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := models.ClassifierSnapshot{Weights: make([]float64, FeatureDim)}
	if st, ok := c.partitions[key]; ok {
		copy(snap.Weights, st.weights)
		snap.Samples = st.samples
	}
	return snap
}

// SnapshotAll copies every partition, keyed by the stable string form.
func (c *Classifier) SnapshotAll() map[string]models.ClassifierSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]models.ClassifierSnapshot, len(c.partitions))
	for key, st := range c.partitions {
		weights := make([]float64, len(st.weights))
		copy(weights, st.weights)
		out[key.String()] = models.ClassifierSnapshot{Weights: weights, Samples: st.samples}
	}
	return out
}

// Restore replaces one partition's state from a snapshot. Snapshots of the
// wrong dimension are ignored rather than truncated.
func (c *Classifier) Restore(key PartitionKey, snap models.ClassifierSnapshot) {
	if len(snap.Weights) != FeatureDim {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	weights := make([]float64, FeatureDim)
	copy(weights, snap.Weights)
	c.partitions[key] = &partitionState{weights: weights, samples: snap.Samples}
}

// PartitionCounts lists sample counts keyed by the stable string form.
func (c *Classifier) PartitionCounts() map[string]int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]int64, len(c.partitions))
	for key, st := range c.partitions {
		out[key.String()] = st.samples
	}
	return out
}
