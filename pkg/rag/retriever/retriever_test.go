package retriever

import (
	"context"
	"testing"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/internal/repository/memory"
	"ai-docqa-be/pkg/embedding"
	"ai-docqa-be/pkg/retry"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// keywordProvider maps known words to fixed unit vectors so tests control
// similarity exactly.
type keywordProvider struct {
	version string
	vectors map[string][]float32
}

func (p *keywordProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := p.vectors[t]; ok {
			out[i] = v
		} else {
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

func (p *keywordProvider) ModelVersion() string { return p.version }
func (p *keywordProvider) Dimensions() int      { return 3 }

func newTestRetriever(t *testing.T, version string) (*Retriever, *memory.VectorIndex) {
	t.Helper()
	provider := &keywordProvider{
		version: version,
		vectors: map[string][]float32{
			"about cats": {1, 0, 0},
			"about dogs": {0, 1, 0},
		},
	}
	svc := embedding.NewService(provider, nil, nil, retry.DefaultPolicy(), 0)
	idx := memory.NewVectorIndex(version, 3)
	return New(svc, idx, 0.30), idx
}

func indexChunk(t *testing.T, idx *memory.VectorIndex, text string, vec []float32, version string) {
	t.Helper()
	docId := uuid.New()
	err := idx.ReplaceDocument(context.Background(), docId, []*entity.ChunkEmbedding{
		{
			Chunk: entity.Chunk{
				Id:         uuid.New(),
				DocumentId: docId,
				Text:       text,
				Locator:    entity.SourceLocator{Kind: entity.LocatorPage, Start: 1, End: 1},
			},
			EmbeddingValue: vec,
			ModelVersion:   version,
		},
	})
	require.NoError(t, err)
}

func TestRetrieveRanksBySimilarity(t *testing.T) {
	r, idx := newTestRetriever(t, "m1")
	indexChunk(t, idx, "cats are mammals", []float32{1, 0, 0}, "m1")
	indexChunk(t, idx, "dogs are loyal", []float32{0, 1, 0}, "m1")

	results, err := r.Retrieve(context.Background(), "about cats", 5)
	require.NoError(t, err)
	require.Len(t, results, 1) // dogs chunk scores 0, below the floor
	assert.Equal(t, "cats are mammals", results[0].Chunk.Text)
	assert.Equal(t, 1, results[0].Rank)
}

func TestRetrieveEmptyIndex(t *testing.T) {
	r, _ := newTestRetriever(t, "m1")

	results, err := r.Retrieve(context.Background(), "about cats", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieveDefaultK(t *testing.T) {
	r, idx := newTestRetriever(t, "m1")
	for i := 0; i < 8; i++ {
		indexChunk(t, idx, "cats everywhere", []float32{1, 0, 0}, "m1")
	}

	results, err := r.Retrieve(context.Background(), "about cats", 0)
	require.NoError(t, err)
	assert.Len(t, results, DefaultK)
}

func TestRetrieveVersionMismatch(t *testing.T) {
	provider := &keywordProvider{version: "m2", vectors: map[string][]float32{}}
	svc := embedding.NewService(provider, nil, nil, retry.DefaultPolicy(), 0)
	idx := memory.NewVectorIndex("m1", 3)
	indexChunk(t, idx, "stale", []float32{1, 0, 0}, "m1")
	r := New(svc, idx, 0.30)

	_, err := r.Retrieve(context.Background(), "anything", 5)
	assert.ErrorIs(t, err, contract.ErrIndexVersionMismatch)
}

func TestZeroFloorAdmitsEverything(t *testing.T) {
	provider := &keywordProvider{
		version: "m1",
		vectors: map[string][]float32{"about cats": {1, 0, 0}},
	}
	svc := embedding.NewService(provider, nil, nil, retry.DefaultPolicy(), 0)
	idx := memory.NewVectorIndex("m1", 3)
	indexChunk(t, idx, "cats are mammals", []float32{1, 0, 0}, "m1")
	indexChunk(t, idx, "dogs are loyal", []float32{0, 1, 0}, "m1")

	r := New(svc, idx, 0)
	assert.Equal(t, 0.0, r.MinScore())

	results, err := r.Retrieve(context.Background(), "about cats", 5)
	require.NoError(t, err)
	assert.Len(t, results, 2) // no floor, the orthogonal chunk comes back too
}

func TestNegativeFloorSelectsDefault(t *testing.T) {
	r, _ := newTestRetriever(t, "m1")
	assert.Equal(t, DefaultMinScore, r.MinScore())

	provider := &keywordProvider{version: "m1", vectors: map[string][]float32{}}
	svc := embedding.NewService(provider, nil, nil, retry.DefaultPolicy(), 0)
	assert.Equal(t, DefaultMinScore, New(svc, memory.NewVectorIndex("m1", 3), -1).MinScore())
}

func TestRetrieveEmptyQuery(t *testing.T) {
	r, _ := newTestRetriever(t, "m1")
	_, err := r.Retrieve(context.Background(), "", 5)
	assert.Error(t, err)
}
