package classify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider maps prompt text to fixed unit vectors so similarity scores
// are exact and the tests stay free of any real model.
type stubProvider struct {
	vectors   map[string][]float32
	dimension int
	textCalls atomic.Int64
	err       error
}

func (s *stubProvider) EmbedImage(_ context.Context, _ []byte) ([]float32, error) {
	return nil, errors.New("not used")
}

func (s *stubProvider) EmbedTexts(_ context.Context, prompts []string) ([][]float32, error) {
	s.textCalls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(prompts))
	for i, prompt := range prompts {
		vec, ok := s.vectors[prompt]
		if !ok {
			vec = make([]float32, s.dimension)
		}
		out[i] = vec
	}
	return out, nil
}

func (s *stubProvider) Dimension(_ context.Context) (int, error) {
	return s.dimension, nil
}

func axis(dimension, i int) []float32 {
	vec := make([]float32, dimension)
	vec[i] = 1
	return vec
}

func TestGate(t *testing.T) {
	positive, negative := DefaultGatePrompts()
	newStub := func() *stubProvider {
		stub := &stubProvider{vectors: make(map[string][]float32), dimension: 8}
		for _, prompt := range positive {
			stub.vectors[prompt] = axis(8, 0)
		}
		for _, prompt := range negative {
			stub.vectors[prompt] = axis(8, 1)
		}
		return stub
	}
	t.Run("Should accept a query close to the positive prompts", func(t *testing.T) {
		gate, err := NewGate(newStub(), positive, negative, 0.20)
		require.NoError(t, err)
		verdict, err := gate.Check(context.Background(), axis(8, 0))
		require.NoError(t, err)
		assert.True(t, verdict.Member)
		assert.InDelta(t, 1.0, verdict.Score, 1e-6)
	})
	t.Run("Should reject a query closer to the negative prompts", func(t *testing.T) {
		gate, err := NewGate(newStub(), positive, negative, 0.20)
		require.NoError(t, err)
		verdict, err := gate.Check(context.Background(), axis(8, 1))
		require.NoError(t, err)
		assert.False(t, verdict.Member)
		assert.InDelta(t, 1.0, verdict.BestNegative, 1e-6)
	})
	t.Run("Should reject a query below the minimum score", func(t *testing.T) {
		gate, err := NewGate(newStub(), positive, negative, 0.20)
		require.NoError(t, err)
		verdict, err := gate.Check(context.Background(), axis(8, 5))
		require.NoError(t, err)
		assert.False(t, verdict.Member)
		assert.Zero(t, verdict.Score)
	})
	t.Run("Should report negative similarities instead of clamping to zero", func(t *testing.T) {
		gate, err := NewGate(newStub(), positive, negative, 0.20)
		require.NoError(t, err)
		query := make([]float32, 8)
		query[0] = -1 // points away from every positive prompt
		verdict, err := gate.Check(context.Background(), query)
		require.NoError(t, err)
		assert.InDelta(t, -1.0, verdict.Score, 1e-6)
		assert.False(t, verdict.Member)
	})
	t.Run("Should embed prompts once across checks", func(t *testing.T) {
		stub := newStub()
		gate, err := NewGate(stub, positive, negative, 0.20)
		require.NoError(t, err)
		_, err = gate.Check(context.Background(), axis(8, 0))
		require.NoError(t, err)
		_, err = gate.Check(context.Background(), axis(8, 1))
		require.NoError(t, err)
		assert.Equal(t, int64(1), stub.textCalls.Load())
	})
	t.Run("Should propagate provider failures", func(t *testing.T) {
		stub := newStub()
		stub.err = errors.New("model offline")
		gate, err := NewGate(stub, positive, negative, 0.20)
		require.NoError(t, err)
		_, err = gate.Check(context.Background(), axis(8, 0))
		require.Error(t, err)
	})
	t.Run("Should require a provider and positive prompts", func(t *testing.T) {
		_, err := NewGate(nil, positive, negative, 0.20)
		require.Error(t, err)
		_, err = NewGate(newStub(), nil, negative, 0.20)
		require.Error(t, err)
	})
}

func TestTypePredictor(t *testing.T) {
	vocabulary := DefaultVocabulary()
	newStub := func() *stubProvider {
		stub := &stubProvider{vectors: make(map[string][]float32), dimension: len(vocabulary)}
		for i, entry := range vocabulary {
			stub.vectors[entry.Prompt] = axis(len(vocabulary), i)
		}
		return stub
	}
	t.Run("Should pick the closest vocabulary type", func(t *testing.T) {
		predictor, err := NewTypePredictor(newStub(), vocabulary, 0.22)
		require.NoError(t, err)
		pred, err := predictor.Predict(context.Background(), axis(len(vocabulary), 2))
		require.NoError(t, err)
		assert.Equal(t, "sofa", pred.Label)
		assert.True(t, pred.Known)
		assert.InDelta(t, 1.0, pred.Score, 1e-6)
	})
	t.Run("Should report unknown below the confidence floor", func(t *testing.T) {
		predictor, err := NewTypePredictor(newStub(), vocabulary, 0.22)
		require.NoError(t, err)
		query := make([]float32, len(vocabulary))
		for i := range query {
			query[i] = 0.1
		}
		pred, err := predictor.Predict(context.Background(), query)
		require.NoError(t, err)
		assert.False(t, pred.Known)
	})
	t.Run("Should break ties toward the earliest type", func(t *testing.T) {
		stub := newStub()
		// bed and chair prompts collapse onto the same vector.
		stub.vectors[vocabulary[1].Prompt] = axis(len(vocabulary), 0)
		predictor, err := NewTypePredictor(stub, vocabulary, 0.22)
		require.NoError(t, err)
		pred, err := predictor.Predict(context.Background(), axis(len(vocabulary), 0))
		require.NoError(t, err)
		assert.Equal(t, "bed", pred.Label)
	})
	t.Run("Should embed vocabulary prompts once", func(t *testing.T) {
		stub := newStub()
		predictor, err := NewTypePredictor(stub, vocabulary, 0.22)
		require.NoError(t, err)
		_, err = predictor.Predict(context.Background(), axis(len(vocabulary), 0))
		require.NoError(t, err)
		_, err = predictor.Predict(context.Background(), axis(len(vocabulary), 1))
		require.NoError(t, err)
		assert.Equal(t, int64(1), stub.textCalls.Load())
	})
	t.Run("Should validate constructor inputs", func(t *testing.T) {
		_, err := NewTypePredictor(nil, vocabulary, 0.22)
		require.Error(t, err)
		_, err = NewTypePredictor(newStub(), nil, 0.22)
		require.Error(t, err)
	})
}

func TestVocabulary(t *testing.T) {
	t.Run("Should expose names and prompts in order", func(t *testing.T) {
		vocabulary := DefaultVocabulary()
		names := vocabulary.Names()
		require.Len(t, names, len(vocabulary))
		assert.Equal(t, "bed", names[0])
		prompts := vocabulary.Prompts()
		assert.Equal(t, "a photo of a bed", prompts[0])
	})
	t.Run("Should look up types by name", func(t *testing.T) {
		vocabulary := DefaultVocabulary()
		entry, ok := vocabulary.Lookup("sofa")
		require.True(t, ok)
		assert.Contains(t, entry.Keywords, "couch")
		_, ok = vocabulary.Lookup("lamp")
		assert.False(t, ok)
	})
}
