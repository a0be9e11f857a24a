package integration

import (
	"context"
	"log"
	"os"
	"testing"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/repository/implementation"
	"ai-docqa-be/internal/repository/unitofwork"
	"ai-docqa-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGormConnection(t *testing.T) {
	// Load .env from root
	err := godotenv.Load("../../.env")
	if err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn)
	if err != nil {
		t.Fatalf("Failed to connect to DB: %v", err)
	}

	// Verify Wiring
	uowFactory := unitofwork.NewRepositoryFactory(gormDB)
	uow := uowFactory.NewUnitOfWork(context.Background())

	assert.NotNil(t, uow.DocumentRepository())
	assert.NotNil(t, uow.ChunkEmbeddingRepository())
	assert.NotNil(t, uow.IndexMetaRepository())

	// Basic Ping
	sqlDB, _ := gormDB.DB()
	err = sqlDB.Ping()
	assert.NoError(t, err)

	// Verify Data Access (implies columns exist)
	t.Run("Check Document Repository", func(t *testing.T) {
		count, err := uow.DocumentRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("Document count: %d", count)
	})

	t.Run("Check Chunk Embedding Repository", func(t *testing.T) {
		count, err := uow.ChunkEmbeddingRepository().Count(context.Background())
		assert.NoError(t, err)
		t.Logf("ChunkEmbedding count: %d", count)
	})

	t.Run("Check Index Meta Singleton", func(t *testing.T) {
		meta, err := uow.IndexMetaRepository().Get(context.Background())
		assert.NoError(t, err)
		t.Logf("Index model=%q generation=%d", meta.ModelVersion, meta.Generation)
	})

	t.Run("Vector Round Trip", func(t *testing.T) {
		ctx := context.Background()
		index := implementation.NewPgVectorIndex(gormDB)

		meta, err := uow.IndexMetaRepository().Get(ctx)
		require.NoError(t, err)
		if meta.Dimensions != 3 && meta.Dimensions != 0 {
			t.Skipf("index already holds %d-dimensional vectors", meta.Dimensions)
		}

		// The physical column must also accept 3-dimensional vectors;
		// migrate pins it to the configured model's dimensions.
		var typmod int
		row := gormDB.Raw(`SELECT atttypmod FROM pg_attribute
			WHERE attrelid = 'chunk_embeddings'::regclass AND attname = 'embedding_value'`).Row()
		require.NoError(t, row.Scan(&typmod))
		if typmod != -1 && typmod != 3 {
			t.Skipf("embedding column is pinned to %d dimensions", typmod)
		}
		if meta.Dimensions == 0 {
			require.NoError(t, uow.IndexMetaRepository().SetModelVersion(ctx, "integration-v1", 3))
			meta, err = uow.IndexMetaRepository().Get(ctx)
			require.NoError(t, err)
		}

		documentId := uuid.New()
		embeddings := []*entity.ChunkEmbedding{
			{
				Chunk: entity.Chunk{
					Id:         uuid.New(),
					DocumentId: documentId,
					ChunkIndex: 0,
					Text:       "integration round trip",
					Locator:    entity.SourceLocator{Kind: entity.LocatorPage, Start: 1, End: 1},
				},
				EmbeddingValue: []float32{1, 0, 0},
				ModelVersion:   meta.ModelVersion,
			},
		}
		require.NoError(t, index.ReplaceDocument(ctx, documentId, embeddings))
		defer index.DeleteDocument(ctx, documentId)

		results, err := index.Search(ctx, []float32{1, 0, 0}, 5, 0.9, meta.ModelVersion)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.InDelta(t, 1.0, results[0].Similarity, 1e-4)
		assert.Equal(t, documentId, results[0].Chunk.DocumentId)
	})
}
