package embedding

import (
	"context"
	"math"
)

// Provider generates vectors in a shared image-text embedding space. Both
// images and text prompts project into the same space, so cosine similarity
// between them is meaningful. Implementations must be safe for concurrent use
// by many in-flight requests.
type Provider interface {
	// EmbedImage normalizes and encodes one image into a fixed-length vector.
	EmbedImage(ctx context.Context, data []byte) ([]float32, error)
	// EmbedTexts encodes text prompts, preserving input order.
	EmbedTexts(ctx context.Context, prompts []string) ([][]float32, error)
	// Dimension reports the model output dimensionality, probing it once with
	// a neutral synthetic input when the model does not expose it.
	Dimension(ctx context.Context) (int, error)
}

// Cosine computes cosine similarity between two vectors. Mismatched or
// zero-norm inputs yield 0.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func cloneVector(src []float32) []float32 {
	if len(src) == 0 {
		return nil
	}
	dst := make([]float32, len(src))
	copy(dst, src)
	return dst
}
