package pipeline

import (
	"context"
	"fmt"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/pkg/chunker"
	"ai-docqa-be/pkg/embedding"
	"ai-docqa-be/pkg/extractor"
	"ai-docqa-be/pkg/rag/retriever"
	"ai-docqa-be/pkg/rag/synthesizer"

	"github.com/google/uuid"
)

// Coordinator wires the ingestion stages (extract, chunk, embed, index) and
// the query stages (retrieve, synthesize). Each stage checks the context so
// a cancelled ingest stops between stages instead of mid-write.
type Coordinator struct {
	registry    *extractor.Registry
	chunker     *chunker.Chunker
	embedder    *embedding.Service
	index       contract.VectorIndex
	retriever   *retriever.Retriever
	synthesizer *synthesizer.Synthesizer
	locks       *keyedMutex
	log         logger.ILogger
}

func NewCoordinator(
	registry *extractor.Registry,
	ch *chunker.Chunker,
	embedder *embedding.Service,
	index contract.VectorIndex,
	r *retriever.Retriever,
	s *synthesizer.Synthesizer,
	log logger.ILogger,
) *Coordinator {
	return &Coordinator{
		registry:    registry,
		chunker:     ch,
		embedder:    embedder,
		index:       index,
		retriever:   r,
		synthesizer: s,
		locks:       newKeyedMutex(),
		log:         log,
	}
}

// IngestResult reports what a completed ingestion produced.
type IngestResult struct {
	DocumentId    uuid.UUID
	ChunkCount    int
	LowConfidence bool
}

// Ingest runs extract, chunk, embed and index for one document. Any previous
// chunks under the same document id are replaced atomically; re-ingesting
// always mints fresh chunk ids. onStage, when non-nil, is notified as the
// intermediate stages complete so the caller can record the document's
// progress; terminal states (indexed, failed) stay with the caller.
func (c *Coordinator) Ingest(ctx context.Context, documentId uuid.UUID, raw []byte, format entity.DocumentFormat, onStage func(entity.IngestStatus)) (*IngestResult, error) {
	c.locks.Lock(documentId)
	defer c.locks.Unlock(documentId)

	notify := func(status entity.IngestStatus) {
		if onStage != nil {
			onStage(status)
		}
	}

	segments, err := c.registry.Extract(ctx, raw, format)
	if err != nil {
		return nil, fmt.Errorf("extract: %w", err)
	}
	notify(entity.StatusExtracted)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	chunks, err := c.chunker.Chunk(documentId, segments)
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}
	notify(entity.StatusChunked)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := c.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	lowConfidence := false
	embeddings := make([]*entity.ChunkEmbedding, len(chunks))
	for i := range chunks {
		if chunks[i].LowConfidence {
			lowConfidence = true
		}
		embeddings[i] = &entity.ChunkEmbedding{
			Chunk:          chunks[i],
			EmbeddingValue: vectors[i],
			ModelVersion:   c.embedder.ModelVersion(),
		}
	}

	if err := c.index.ReplaceDocument(ctx, documentId, embeddings); err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}

	c.log.Info("pipeline", "document indexed", map[string]interface{}{
		"document_id": documentId.String(),
		"chunks":      len(chunks),
		"format":      string(format),
	})

	return &IngestResult{
		DocumentId:    documentId,
		ChunkCount:    len(chunks),
		LowConfidence: lowConfidence,
	}, nil
}

// Delete removes a document's chunks from the index. Serialized against a
// concurrent ingest of the same document.
func (c *Coordinator) Delete(ctx context.Context, documentId uuid.UUID) error {
	c.locks.Lock(documentId)
	defer c.locks.Unlock(documentId)

	if err := c.index.DeleteDocument(ctx, documentId); err != nil {
		return err
	}
	c.log.Info("pipeline", "document removed from index", map[string]interface{}{
		"document_id": documentId.String(),
	})
	return nil
}

// Retrieve returns the top chunks for a query without synthesizing.
func (c *Coordinator) Retrieve(ctx context.Context, query string, k int) ([]*entity.ScoredChunk, error) {
	return c.retriever.Retrieve(ctx, query, k)
}

// Synthesize answers from already-retrieved sources. Split from Retrieve so
// a failed generation can be retried without re-running the search.
func (c *Coordinator) Synthesize(ctx context.Context, query string, sources []synthesizer.Source) (*entity.Answer, error) {
	return c.synthesizer.Synthesize(ctx, query, sources)
}

// ModelVersion reports the embedding model the pipeline is configured with.
func (c *Coordinator) ModelVersion() string {
	return c.embedder.ModelVersion()
}
