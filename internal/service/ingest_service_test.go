package service

import (
	"context"
	"testing"
	"time"

	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/internal/repository/memory"
	"ai-docqa-be/pkg/chunker"
	"ai-docqa-be/pkg/embedding"
	"ai-docqa-be/pkg/extractor"
	"ai-docqa-be/pkg/pipeline"
	"ai-docqa-be/pkg/rag/retriever"
	"ai-docqa-be/pkg/rag/synthesizer"
	"ai-docqa-be/pkg/retry"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// dualIndex writes through to both the vector index and the chunk
// repository, standing in for the pgvector implementation where both live in
// the same table.
type dualIndex struct {
	*memory.VectorIndex
	chunks *fakeChunkRepo
}

func (d *dualIndex) ReplaceDocument(ctx context.Context, documentId uuid.UUID, embeddings []*entity.ChunkEmbedding) error {
	if err := d.VectorIndex.ReplaceDocument(ctx, documentId, embeddings); err != nil {
		return err
	}
	// Mirrors the pgvector implementation: a physical delete, because
	// soft-deleted rows would still hold the primary keys reindex reuses.
	if err := d.chunks.DeleteByDocumentIdUnscoped(ctx, documentId); err != nil {
		return err
	}
	return d.chunks.CreateBulk(ctx, embeddings)
}

func (d *dualIndex) DeleteDocument(ctx context.Context, documentId uuid.UUID) error {
	if err := d.VectorIndex.DeleteDocument(ctx, documentId); err != nil {
		return err
	}
	return d.chunks.DeleteByDocumentId(ctx, documentId)
}

func (d *dualIndex) Reset(ctx context.Context, modelVersion string, dimensions int) error {
	if err := d.VectorIndex.Reset(ctx, modelVersion, dimensions); err != nil {
		return err
	}
	return d.chunks.DeleteAllUnscoped(ctx)
}

const reindexTestTopic = "reindex-test"

type testEnv struct {
	ingest   IIngestService
	query    IQueryService
	consumer IConsumerService
	pubSub   *gochannel.GoChannel
	factory  *fakeFactory
	index    *dualIndex
}

func newTestEnv(t *testing.T, llmResponse string) *testEnv {
	t.Helper()
	policy := retry.DefaultPolicy()
	policy.InitialInterval = time.Millisecond

	chunks := &fakeChunkRepo{}
	factory := &fakeFactory{uow: &fakeUow{docs: newFakeDocumentRepo(), chunks: chunks}}

	embedder := embedding.NewService(fakeEmbedProvider{}, nil, nil, policy, 0)
	index := &dualIndex{VectorIndex: memory.NewVectorIndex("svc-test-v1", 3), chunks: chunks}

	ch, err := chunker.New(100, 20)
	require.NoError(t, err)

	provider := &fakeLLM{response: llmResponse}
	r := retriever.New(embedder, index, 0.30)
	s := synthesizer.New(provider, policy)
	coordinator := pipeline.NewCoordinator(
		extractor.NewRegistry(extractor.NewTextHandler()),
		ch, embedder, index, r, s, nopLogger{},
	)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	queue := NewPublisherService(reindexTestTopic, pubSub)
	consumer := NewConsumerService(pubSub, reindexTestTopic, factory, embedder, index, nopLogger{})

	return &testEnv{
		ingest:   NewIngestService(factory, coordinator, index, nil, queue, nopLogger{}),
		query:    NewQueryService(factory, r, s, index, nil, provider, nopLogger{}),
		consumer: consumer,
		pubSub:   pubSub,
		factory:  factory,
		index:    index,
	}
}

func TestIngestHappyPath(t *testing.T) {
	env := newTestEnv(t, "answer [S1]")

	res, err := env.ingest.Ingest(context.Background(), &dto.IngestDocumentRequest{
		Filename: "cats.txt",
		Format:   "text",
		Raw:      []byte("cats are small mammals"),
	})
	require.NoError(t, err)
	assert.Equal(t, string(entity.StatusIndexed), res.Status)
	assert.Equal(t, 1, res.ChunkCount)
	assert.Equal(t, 1, env.index.Size())

	shown, err := env.ingest.Show(context.Background(), res.Id)
	require.NoError(t, err)
	assert.Equal(t, "cats.txt", shown.Filename)
	assert.Equal(t, 1, shown.ChunkCount)
}

func TestIngestRecordsIntermediateStatuses(t *testing.T) {
	env := newTestEnv(t, "answer")

	_, err := env.ingest.Ingest(context.Background(), &dto.IngestDocumentRequest{
		Filename: "cats.txt",
		Format:   "text",
		Raw:      []byte("cats are small mammals"),
	})
	require.NoError(t, err)

	// pending is written at creation; every later transition goes through
	// Update in pipeline order.
	assert.Equal(t, []entity.IngestStatus{
		entity.StatusExtracted,
		entity.StatusChunked,
		entity.StatusIndexed,
	}, env.factory.uow.docs.statusHistory())
}

func TestIngestValidation(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.ingest.Ingest(context.Background(), &dto.IngestDocumentRequest{
		Filename: "bad.pdf",
		Format:   "pdf",
		Raw:      []byte("x"),
	})
	assert.Error(t, err, "format outside the closed set must be rejected")
}

func TestIngestFailureMarksDocument(t *testing.T) {
	env := newTestEnv(t, "")

	res, err := env.ingest.Ingest(context.Background(), &dto.IngestDocumentRequest{
		Filename: "bad.txt",
		Format:   "text",
		Raw:      []byte{0xff, 0xfe, 0xfd}, // invalid UTF-8
	})
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, string(entity.StatusFailed), res.Status)
	assert.NotEmpty(t, res.FailReason)
	assert.Equal(t, 0, env.index.Size(), "failed ingest must not leave chunks behind")

	shown, err := env.ingest.Show(context.Background(), res.Id)
	require.NoError(t, err)
	assert.Equal(t, string(entity.StatusFailed), shown.Status)
}

func TestIngestFailureLeavesSiblingsIndexed(t *testing.T) {
	env := newTestEnv(t, "")

	good, err := env.ingest.Ingest(context.Background(), &dto.IngestDocumentRequest{
		Filename: "cats.txt",
		Format:   "text",
		Raw:      []byte("cats are small mammals"),
	})
	require.NoError(t, err)

	_, err = env.ingest.Ingest(context.Background(), &dto.IngestDocumentRequest{
		Filename: "bad.txt",
		Format:   "text",
		Raw:      []byte{0xff, 0xfe, 0xfd},
	})
	require.Error(t, err)

	shown, err := env.ingest.Show(context.Background(), good.Id)
	require.NoError(t, err)
	assert.Equal(t, string(entity.StatusIndexed), shown.Status)
	assert.Equal(t, 1, env.index.Size(), "sibling document chunks must survive another document's failure")
}

func TestDeleteCascades(t *testing.T) {
	env := newTestEnv(t, "")

	res, err := env.ingest.Ingest(context.Background(), &dto.IngestDocumentRequest{
		Filename: "cats.txt",
		Format:   "text",
		Raw:      []byte("cats"),
	})
	require.NoError(t, err)

	require.NoError(t, env.ingest.Delete(context.Background(), res.Id))
	assert.Equal(t, 0, env.index.Size())

	_, err = env.ingest.Show(context.Background(), res.Id)
	assert.ErrorIs(t, err, contract.ErrDocumentNotFound)
}

func TestDeleteUnknownDocument(t *testing.T) {
	env := newTestEnv(t, "")
	err := env.ingest.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, contract.ErrDocumentNotFound)
}

func TestReingestReplacesChunks(t *testing.T) {
	env := newTestEnv(t, "")

	res, err := env.ingest.Ingest(context.Background(), &dto.IngestDocumentRequest{
		Filename: "cats.txt",
		Format:   "text",
		Raw:      []byte("cats version one"),
	})
	require.NoError(t, err)

	before, err := env.factory.uow.chunks.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, before, 1)

	res2, err := env.ingest.Reingest(context.Background(), res.Id, []byte("cats version two"))
	require.NoError(t, err)
	assert.Equal(t, string(entity.StatusIndexed), res2.Status)

	after, err := env.factory.uow.chunks.FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.NotEqual(t, before[0].Id, after[0].Id, "re-ingest must mint fresh chunk ids")
	assert.Equal(t, "cats version two", after[0].Text)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.ingest.Ingest(context.Background(), &dto.IngestDocumentRequest{
		Filename: "cats.txt",
		Format:   "text",
		Raw:      []byte("cats"),
	})
	require.NoError(t, err)

	stats, err := env.ingest.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Documents)
	assert.Equal(t, int64(1), stats.Indexed)
	assert.Equal(t, int64(0), stats.Failed)
	assert.Equal(t, int64(1), stats.Chunks)
	assert.Equal(t, "svc-test-v1", stats.ModelVersion)
	assert.Greater(t, stats.Generation, uint64(0))
}

func TestReset(t *testing.T) {
	env := newTestEnv(t, "")

	_, err := env.ingest.Ingest(context.Background(), &dto.IngestDocumentRequest{
		Filename: "cats.txt",
		Format:   "text",
		Raw:      []byte("cats"),
	})
	require.NoError(t, err)

	require.NoError(t, env.ingest.Reset(context.Background()))

	stats, err := env.ingest.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Documents)
	assert.Equal(t, int64(0), stats.Chunks)
}
