package contract

import (
	"context"
	"errors"

	"ai-docqa-be/internal/entity"

	"github.com/google/uuid"
)

// ErrIndexVersionMismatch is returned when the embedding model configured for
// queries differs from the one the stored vectors were produced with. The
// index refuses to mix vector spaces; a reindex fixes it.
var ErrIndexVersionMismatch = errors.New("index model version mismatch")

// VectorIndex is the search side of the pipeline. Implementations must keep
// ReplaceDocument and DeleteDocument atomic with respect to Search: a reader
// sees either all of a document's chunks or none of them.
type VectorIndex interface {
	// ReplaceDocument removes any previous chunks for the document and
	// inserts the given ones in a single transaction. The first insert into
	// an empty index records the embeddings' model version and dimensions;
	// after that, embeddings carrying a different version or dimension count
	// are rejected with ErrIndexVersionMismatch.
	ReplaceDocument(ctx context.Context, documentId uuid.UUID, embeddings []*entity.ChunkEmbedding) error

	// DeleteDocument removes all chunks belonging to the document. Deleting
	// an unknown document returns ErrDocumentNotFound.
	DeleteDocument(ctx context.Context, documentId uuid.UUID) error

	// Search returns up to k chunks ordered by cosine similarity descending,
	// ties broken by insertion sequence. Chunks scoring below minScore are
	// excluded. Returns ErrIndexVersionMismatch when modelVersion does not
	// match the index contents.
	Search(ctx context.Context, vector []float32, k int, minScore float64, modelVersion string) ([]*entity.ScoredChunk, error)

	// Meta reports the index model version, dimensions and generation.
	Meta(ctx context.Context) (*entity.IndexMeta, error)

	// Retarget records a new model version and dimensions without dropping
	// vectors. Rolling reindex calls it first so per-document replaces with
	// the new model pass the version check while old documents wait their
	// turn.
	Retarget(ctx context.Context, modelVersion string, dimensions int) error

	// Reset drops every vector and resets metadata. Used by reindex before
	// re-embedding the corpus.
	Reset(ctx context.Context, modelVersion string, dimensions int) error
}
