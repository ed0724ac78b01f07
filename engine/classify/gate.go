package classify

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/snapseek/snapseek/engine/embedding"
)

// GateVerdict reports whether a query image belongs to the catalog category.
type GateVerdict struct {
	Member       bool
	Score        float64
	BestNegative float64
}

// Gate decides category membership by comparing a query embedding against a
// fixed set of positive and negative text prompts. Prompt embeddings are
// computed lazily on first use and cached for the life of the gate.
type Gate struct {
	provider embedding.Provider
	positive []string
	negative []string
	minScore float64

	mu      sync.Mutex
	posVecs [][]float32
	negVecs [][]float32
}

// NewGate builds a gate. minScore is the lowest positive-prompt similarity
// that still counts as category membership.
func NewGate(provider embedding.Provider, positive, negative []string, minScore float64) (*Gate, error) {
	if provider == nil {
		return nil, fmt.Errorf("classify: embedding provider is required")
	}
	if len(positive) == 0 {
		return nil, fmt.Errorf("classify: at least one positive prompt is required")
	}
	return &Gate{
		provider: provider,
		positive: positive,
		negative: negative,
		minScore: minScore,
	}, nil
}

func (g *Gate) promptVectors(ctx context.Context) ([][]float32, [][]float32, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.posVecs != nil {
		return g.posVecs, g.negVecs, nil
	}
	prompts := make([]string, 0, len(g.positive)+len(g.negative))
	prompts = append(prompts, g.positive...)
	prompts = append(prompts, g.negative...)
	vecs, err := g.provider.EmbedTexts(ctx, prompts)
	if err != nil {
		return nil, nil, err
	}
	if len(vecs) != len(prompts) {
		return nil, nil, fmt.Errorf("classify: expected %d prompt embeddings, got %d", len(prompts), len(vecs))
	}
	g.posVecs = vecs[:len(g.positive)]
	g.negVecs = vecs[len(g.positive):]
	return g.posVecs, g.negVecs, nil
}

// Check scores the query embedding against the gate prompts. The image is a
// member when the best positive similarity beats the best negative one and
// clears the minimum score.
func (g *Gate) Check(ctx context.Context, query []float32) (GateVerdict, error) {
	posVecs, negVecs, err := g.promptVectors(ctx)
	if err != nil {
		return GateVerdict{}, err
	}
	bestPos := bestSimilarity(query, posVecs)
	bestNeg := bestSimilarity(query, negVecs)
	return GateVerdict{
		Member:       bestPos > bestNeg && bestPos >= g.minScore,
		Score:        bestPos,
		BestNegative: bestNeg,
	}, nil
}

func bestSimilarity(query []float32, prompts [][]float32) float64 {
	if len(prompts) == 0 {
		return 0
	}
	best := math.Inf(-1)
	for i := range prompts {
		if score := embedding.Cosine(query, prompts[i]); score > best {
			best = score
		}
	}
	return best
}
