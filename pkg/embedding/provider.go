package embedding

import (
	"context"
	"math"
)

// Provider generates embeddings for batches of text. All vectors returned by
// one provider share the model version and dimensionality it reports; the
// index refuses to mix versions.
type Provider interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ModelVersion() string
	Dimensions() int
}

// normalizeVector normalizes a vector to unit length (magnitude = 1).
// Cosine similarity over the index expects normalized vectors.
func normalizeVector(vec []float32) []float32 {
	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	magnitude = math.Sqrt(magnitude)

	// Avoid division by zero
	if magnitude == 0 {
		return vec
	}

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = float32(float64(v) / magnitude)
	}
	return normalized
}
