package classify

import (
	"context"
	"fmt"
	"sync"

	"github.com/snapseek/snapseek/engine/embedding"
)

// TypePrediction names the most likely item type for a query image. Known is
// false when even the best score sits below the confidence floor; callers
// then skip type-based filtering instead of guessing.
type TypePrediction struct {
	Label string
	Score float64
	Known bool
}

// TypePredictor classifies query embeddings against the vocabulary prompts.
type TypePredictor struct {
	provider   embedding.Provider
	vocabulary Vocabulary
	minScore   float64

	mu   sync.Mutex
	vecs [][]float32
}

// NewTypePredictor builds a predictor over the given vocabulary. minScore is
// the confidence floor below which predictions are reported as unknown.
func NewTypePredictor(provider embedding.Provider, vocabulary Vocabulary, minScore float64) (*TypePredictor, error) {
	if provider == nil {
		return nil, fmt.Errorf("classify: embedding provider is required")
	}
	if len(vocabulary) == 0 {
		return nil, fmt.Errorf("classify: vocabulary must not be empty")
	}
	return &TypePredictor{
		provider:   provider,
		vocabulary: vocabulary,
		minScore:   minScore,
	}, nil
}

// Vocabulary returns the predictor's type vocabulary.
func (p *TypePredictor) Vocabulary() Vocabulary {
	return p.vocabulary
}

func (p *TypePredictor) promptVectors(ctx context.Context) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.vecs != nil {
		return p.vecs, nil
	}
	vecs, err := p.provider.EmbedTexts(ctx, p.vocabulary.Prompts())
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(p.vocabulary) {
		return nil, fmt.Errorf("classify: expected %d type embeddings, got %d", len(p.vocabulary), len(vecs))
	}
	p.vecs = vecs
	return p.vecs, nil
}

// Predict picks the vocabulary type with the highest similarity to the query
// embedding. Ties keep the earliest vocabulary entry.
func (p *TypePredictor) Predict(ctx context.Context, query []float32) (TypePrediction, error) {
	vecs, err := p.promptVectors(ctx)
	if err != nil {
		return TypePrediction{}, err
	}
	bestIdx := 0
	bestScore := embedding.Cosine(query, vecs[0])
	for i := 1; i < len(vecs); i++ {
		if score := embedding.Cosine(query, vecs[i]); score > bestScore {
			bestIdx = i
			bestScore = score
		}
	}
	return TypePrediction{
		Label: p.vocabulary[bestIdx].Name,
		Score: bestScore,
		Known: bestScore >= p.minScore,
	}, nil
}
