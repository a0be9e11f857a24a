package contract

import (
	"context"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ChunkEmbeddingRepository interface {
	CreateBulk(ctx context.Context, embeddings []*entity.ChunkEmbedding) error
	DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error

	// DeleteByDocumentIdUnscoped physically removes the document's rows,
	// soft-deleted ones included, freeing their primary keys for reinsert.
	// ReplaceDocument needs this; reindex reuses chunk ids.
	DeleteByDocumentIdUnscoped(ctx context.Context, documentId uuid.UUID) error
	DeleteAllUnscoped(ctx context.Context) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChunkEmbedding, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// SearchSimilar runs a cosine similarity scan against live embeddings
	// produced by the given model version; rows from another model live in a
	// different vector space and are never scored. Results come back ordered
	// by similarity descending, ties broken by insertion sequence, and rows
	// scoring below threshold are dropped.
	SearchSimilar(ctx context.Context, embedding []float32, limit int, threshold float64, modelVersion string) ([]*entity.ScoredChunk, error)

	// ScanAll streams every live embedding in insertion order, batchSize rows
	// at a time. Used by reindex to re-embed the corpus without loading it
	// all at once.
	ScanAll(ctx context.Context, batchSize int, fn func(batch []*entity.ChunkEmbedding) error) error
}
