package implementation

import (
	"context"
	"fmt"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PgVectorIndex implements contract.VectorIndex on top of Postgres with the
// pgvector extension. Mutations run inside one transaction so concurrent
// searches never observe a document half-replaced.
type PgVectorIndex struct {
	db *gorm.DB
}

func NewPgVectorIndex(db *gorm.DB) contract.VectorIndex {
	return &PgVectorIndex{db: db}
}

func (idx *PgVectorIndex) ReplaceDocument(ctx context.Context, documentId uuid.UUID, embeddings []*entity.ChunkEmbedding) error {
	return idx.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		metaRepo := NewIndexMetaRepository(tx)
		if err := reconcileMeta(ctx, metaRepo, embeddings); err != nil {
			return err
		}
		repo := NewChunkEmbeddingRepository(tx)
		// Unscoped: soft-deleted rows still hold their primary keys, and
		// reindex reinserts the same chunk ids.
		if err := repo.DeleteByDocumentIdUnscoped(ctx, documentId); err != nil {
			return fmt.Errorf("delete previous chunks: %w", err)
		}
		if err := repo.CreateBulk(ctx, embeddings); err != nil {
			return fmt.Errorf("insert chunks: %w", err)
		}
		if _, err := metaRepo.BumpGeneration(ctx); err != nil {
			return fmt.Errorf("bump generation: %w", err)
		}
		return nil
	})
}

// reconcileMeta validates incoming embeddings against the recorded index
// metadata. An empty index adopts the embeddings' model version and
// dimensions; anything else must match exactly.
func reconcileMeta(ctx context.Context, metaRepo contract.IndexMetaRepository, embeddings []*entity.ChunkEmbedding) error {
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

	meta, err := metaRepo.Get(ctx)
	if err != nil {
		return err
	}
	switch {
	case meta.ModelVersion == "":
		return metaRepo.SetModelVersion(ctx, version, dims)
	case meta.ModelVersion != version:
		return fmt.Errorf("%w: index built with %q, insert carries %q",
			contract.ErrIndexVersionMismatch, meta.ModelVersion, version)
	case meta.Dimensions == 0:
		return metaRepo.SetModelVersion(ctx, version, dims)
	case meta.Dimensions != dims:
		return fmt.Errorf("%w: index stores %d-dimensional vectors, insert carries %d",
			contract.ErrIndexVersionMismatch, meta.Dimensions, dims)
	}
	return nil
}

func (idx *PgVectorIndex) DeleteDocument(ctx context.Context, documentId uuid.UUID) error {
	return idx.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewChunkEmbeddingRepository(tx)
		count, err := repo.Count(ctx, specification.ByDocumentId{DocumentId: documentId})
		if err != nil {
			return err
		}
		if count == 0 {
			return contract.ErrDocumentNotFound
		}
		if err := repo.DeleteByDocumentId(ctx, documentId); err != nil {
			return err
		}
		metaRepo := NewIndexMetaRepository(tx)
		if _, err := metaRepo.BumpGeneration(ctx); err != nil {
			return err
		}
		return nil
	})
}

func (idx *PgVectorIndex) Search(ctx context.Context, vector []float32, k int, minScore float64, modelVersion string) ([]*entity.ScoredChunk, error) {
	meta, err := NewIndexMetaRepository(idx.db).Get(ctx)
	if err != nil {
		return nil, err
	}
	if meta.ModelVersion != "" && meta.ModelVersion != modelVersion {
		return nil, fmt.Errorf("%w: index built with %q, query uses %q",
			contract.ErrIndexVersionMismatch, meta.ModelVersion, modelVersion)
	}
	return NewChunkEmbeddingRepository(idx.db).SearchSimilar(ctx, vector, k, minScore, modelVersion)
}

func (idx *PgVectorIndex) Meta(ctx context.Context) (*entity.IndexMeta, error) {
	return NewIndexMetaRepository(idx.db).Get(ctx)
}

func (idx *PgVectorIndex) Retarget(ctx context.Context, modelVersion string, dimensions int) error {
	return idx.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		metaRepo := NewIndexMetaRepository(tx)
		if err := metaRepo.SetModelVersion(ctx, modelVersion, dimensions); err != nil {
			return err
		}
		_, err := metaRepo.BumpGeneration(ctx)
		return err
	})
}

func (idx *PgVectorIndex) Reset(ctx context.Context, modelVersion string, dimensions int) error {
	return idx.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := NewChunkEmbeddingRepository(tx)
		if err := repo.DeleteAllUnscoped(ctx); err != nil {
			return err
		}
		metaRepo := NewIndexMetaRepository(tx)
		if err := metaRepo.SetModelVersion(ctx, modelVersion, dimensions); err != nil {
			return err
		}
		_, err := metaRepo.BumpGeneration(ctx)
		return err
	})
}
