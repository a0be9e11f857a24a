package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/repository/contract"

	"github.com/google/uuid"
)

// VectorIndex is an in-memory implementation of contract.VectorIndex. It
// backs tests and single-process deployments where Postgres is overkill.
// Semantics match the pgvector implementation: cosine similarity ordering,
// insertion-sequence tie-breaking, min-score floor, atomic replace.
type VectorIndex struct {
	mu      sync.RWMutex
	entries []*entity.ChunkEmbedding
	meta    entity.IndexMeta
	nextSeq uint64
}

func NewVectorIndex(modelVersion string, dimensions int) *VectorIndex {
	return &VectorIndex{
		meta: entity.IndexMeta{
			ModelVersion: modelVersion,
			Dimensions:   dimensions,
			UpdatedAt:    time.Now(),
		},
		nextSeq: 1,
	}
}

func (idx *VectorIndex) ReplaceDocument(ctx context.Context, documentId uuid.UUID, embeddings []*entity.ChunkEmbedding) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.reconcileMetaLocked(embeddings); err != nil {
		return err
	}

	kept := idx.entries[:0]
	for _, e := range idx.entries {
		if e.DocumentId != documentId {
			kept = append(kept, e)
		}
	}
	idx.entries = kept

	for _, e := range embeddings {
		copied := *e
		copied.Seq = idx.nextSeq
		idx.nextSeq++
		copied.CreatedAt = time.Now()
		e.Seq = copied.Seq
		idx.entries = append(idx.entries, &copied)
	}
	idx.bumpLocked()
	return nil
}

// reconcileMetaLocked matches the pgvector insert guard: an empty index
// adopts the incoming model version and dimensions, a populated one rejects
// anything that disagrees.
func (idx *VectorIndex) reconcileMetaLocked(embeddings []*entity.ChunkEmbedding) error {
	if len(embeddings) == 0 {
		return nil
	}
	version := embeddings[0].ModelVersion
	dims := len(embeddings[0].EmbeddingValue)
	for _, e := range embeddings {
		if e.ModelVersion != version || len(e.EmbeddingValue) != dims {
			return fmt.Errorf("%w: mixed model versions or dimensions in one insert", contract.ErrIndexVersionMismatch)
		}
	}
	switch {
	case idx.meta.ModelVersion == "":
		idx.meta.ModelVersion = version
		idx.meta.Dimensions = dims
	case idx.meta.ModelVersion != version:
		return fmt.Errorf("%w: index built with %q, insert carries %q",
			contract.ErrIndexVersionMismatch, idx.meta.ModelVersion, version)
	case idx.meta.Dimensions == 0:
		idx.meta.Dimensions = dims
	case idx.meta.Dimensions != dims:
		return fmt.Errorf("%w: index stores %d-dimensional vectors, insert carries %d",
			contract.ErrIndexVersionMismatch, idx.meta.Dimensions, dims)
	}
	return nil
}

func (idx *VectorIndex) DeleteDocument(ctx context.Context, documentId uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	kept := idx.entries[:0]
	removed := 0
	for _, e := range idx.entries {
		if e.DocumentId == documentId {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	idx.entries = kept
	if removed == 0 {
		return contract.ErrDocumentNotFound
	}
	idx.bumpLocked()
	return nil
}

func (idx *VectorIndex) Search(ctx context.Context, vector []float32, k int, minScore float64, modelVersion string) ([]*entity.ScoredChunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		k = 5
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.meta.ModelVersion != "" && idx.meta.ModelVersion != modelVersion {
		return nil, fmt.Errorf("%w: index built with %q, query uses %q",
			contract.ErrIndexVersionMismatch, idx.meta.ModelVersion, modelVersion)
	}

	scored := make([]*entity.ScoredChunk, 0, len(idx.entries))
	for _, e := range idx.entries {
		// Rows from another model live in a different vector space; during
		// a rolling reindex they wait until their document is re-embedded.
		if e.ModelVersion != modelVersion {
			continue
		}
		sim := cosineSimilarity(vector, e.EmbeddingValue)
		if sim < minScore {
			continue
		}
		scored = append(scored, &entity.ScoredChunk{Chunk: e, Similarity: sim})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].Chunk.Seq < scored[j].Chunk.Seq
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	for i, s := range scored {
		s.Rank = i + 1
	}
	return scored, nil
}

func (idx *VectorIndex) Meta(ctx context.Context) (*entity.IndexMeta, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	meta := idx.meta
	return &meta, nil
}

func (idx *VectorIndex) Retarget(ctx context.Context, modelVersion string, dimensions int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.meta.ModelVersion = modelVersion
	idx.meta.Dimensions = dimensions
	idx.bumpLocked()
	return nil
}

func (idx *VectorIndex) Reset(ctx context.Context, modelVersion string, dimensions int) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = nil
	idx.meta.ModelVersion = modelVersion
	idx.meta.Dimensions = dimensions
	idx.bumpLocked()
	return nil
}

// Size reports the number of live chunks. Not part of contract.VectorIndex;
// used by stats and tests.
func (idx *VectorIndex) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

func (idx *VectorIndex) bumpLocked() {
	idx.meta.Generation++
	idx.meta.UpdatedAt = time.Now()
}

func cosineSimilarity(a, b []float32) float64 {
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
