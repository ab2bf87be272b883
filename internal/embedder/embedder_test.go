package embedder

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	a, err := m.Embed(ctx, "authentication service")
	require.NoError(t, err)
	b, err := m.Embed(ctx, "authentication service")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := m.Embed(ctx, "different text")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, m.Dimensions())
}

func TestMockEmbedderUnitLength(t *testing.T) {
	m := NewMockEmbedder()
	vec, err := m.Embed(context.Background(), "anything")
	require.NoError(t, err)

	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-9)
}

func TestMockEmbedderFixedAndErrors(t *testing.T) {
	m := NewMockEmbedder()
	ctx := context.Background()

	m.SetFixedEmbedding("pinned", []float64{1, 0, 0})
	vec, err := m.Embed(ctx, "pinned")
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 0, 0}, vec)

	boom := errors.New("boom")
	m.SetEmbedError(boom)
	_, err = m.Embed(ctx, "anything")
	assert.ErrorIs(t, err, boom)
}

func TestMockEmbedderBatch(t *testing.T) {
	m := NewMockEmbedder()
	vecs, err := m.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	assert.Equal(t, 2, m.CallCount())
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float64{1, 0}, []float64{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float64{1, 0}, []float64{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float64{1, 0}, []float64{-3, 0}), 1e-9)

	// Unusable input is "no similarity", not an error.
	assert.Zero(t, Cosine([]float64{1, 2}, []float64{1}))
	assert.Zero(t, Cosine(nil, nil))
	assert.Zero(t, Cosine([]float64{0, 0}, []float64{1, 1}))
}

func TestNewFactory(t *testing.T) {
	e, err := New(Config{Provider: "mock", Dimensions: 16})
	require.NoError(t, err)
	assert.Equal(t, 16, e.Dimensions())

	_, err = New(Config{Provider: "carrier-pigeon"})
	assert.Error(t, err)

	t.Setenv("OPENAI_API_KEY", "")
	_, err = New(Config{Provider: "openai"})
	assert.Error(t, err)
}

func TestOpenAIEmbedderDefaults(t *testing.T) {
	e, err := NewOpenAIEmbedder(Config{Provider: "openai", APIKey: "test-key"})
	require.NoError(t, err)
	assert.Equal(t, defaultOpenAIModel, e.Model())
	assert.Equal(t, 1536, e.Dimensions())
}
