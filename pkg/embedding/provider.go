package embedding

import (
	"context"
	"math"
)

// Provider generates embeddings for interview text and consented lesion
// images. Implementations call external services and must honor the context
// deadline.
type Provider interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
	EmbedImage(ctx context.Context, image []byte) ([]float32, error)
}

// Normalize returns the L2-normalized copy of v. Cosine similarity over the
// index expects unit vectors, and normalization is the producer's job.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	magnitude := math.Sqrt(sum)
	if magnitude < 1e-8 {
		return v
	}
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / magnitude)
	}
	return out
}
