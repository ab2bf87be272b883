package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math/rand"
	"sync"

	"github.com/e7nd7r/gnapsis/internal/types"
)

// MockEmbedder generates deterministic embeddings from a SHA256 hash of
// the text, so the same text always maps to the same vector. Intended
// for tests and offline development.
type MockEmbedder struct {
	mu         sync.RWMutex
	dimensions int
	model      string
	embedErr   error
	health     types.HealthStatus
	fixed      map[string][]float64
	callCount  int
}

var _ Embedder = (*MockEmbedder)(nil)

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		dimensions: 384,
		model:      "mock-embedder",
		health:     types.Healthy("mock embedder"),
		fixed:      make(map[string][]float64),
	}
}

// SetDimensions changes the width of generated vectors.
func (m *MockEmbedder) SetDimensions(dims int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dimensions = dims
}

// SetEmbedError makes subsequent Embed calls fail with err.
func (m *MockEmbedder) SetEmbedError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.embedErr = err
}

// SetHealthStatus overrides the reported health.
func (m *MockEmbedder) SetHealthStatus(status types.HealthStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.health = status
}

// SetFixedEmbedding pins an exact vector for a given text, overriding
// hash-derived generation. Useful when a test needs controlled cosine
// similarities.
func (m *MockEmbedder) SetFixedEmbedding(text string, vec []float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixed[text] = vec
}

// CallCount reports how many embedding requests were served.
func (m *MockEmbedder) CallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.callCount
}

func (m *MockEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if vec, ok := m.fixed[text]; ok {
		out := make([]float64, len(vec))
		copy(out, vec)
		return out, nil
	}
	return m.generate(text), nil
}

func (m *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

// generate derives a unit vector from the text hash. Caller holds the
// lock.
func (m *MockEmbedder) generate(text string) []float64 {
	hash := sha256.Sum256([]byte(text))
	seed := int64(binary.BigEndian.Uint64(hash[:8]))
	rng := rand.New(rand.NewSource(seed))

	vec := make([]float64, m.dimensions)
	for i := range vec {
		vec[i] = (rng.Float64() * 2) - 1
	}
	return Normalize(vec)
}

func (m *MockEmbedder) Dimensions() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.dimensions
}

func (m *MockEmbedder) Model() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.model
}

func (m *MockEmbedder) Health(ctx context.Context) types.HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.health
}
