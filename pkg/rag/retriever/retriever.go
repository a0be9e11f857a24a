package retriever

import (
	"context"
	"fmt"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/pkg/embedding"
)

const (
	DefaultK        = 5
	DefaultMinScore = 0.30
)

// Retriever turns a natural-language query into ranked chunks. The embedder
// must use the same model version the index was built with; the index
// enforces this and returns contract.ErrIndexVersionMismatch otherwise.
type Retriever struct {
	embedder *embedding.Service
	index    contract.VectorIndex
	minScore float64
}

// New builds a retriever with the given relevance floor. A zero floor is
// honored and admits every match; a negative floor selects DefaultMinScore.
func New(embedder *embedding.Service, index contract.VectorIndex, minScore float64) *Retriever {
	if minScore < 0 {
		minScore = DefaultMinScore
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		minScore: minScore,
	}
}

// Retrieve embeds the query and searches the index for the top k chunks
// above the relevance floor. An empty result is not an error; it means no
// grounded answer is possible.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]*entity.ScoredChunk, error) {
	if query == "" {
		return nil, fmt.Errorf("query text is empty")
	}
	if k <= 0 {
		k = DefaultK
	}

	vector, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results, err := r.index.Search(ctx, vector, k, r.minScore, r.embedder.ModelVersion())
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	return results, nil
}

// MinScore reports the relevance floor applied to searches.
func (r *Retriever) MinScore() float64 {
	return r.minScore
}
