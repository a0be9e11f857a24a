package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"ai-docqa-be/internal/bootstrap"
	"ai-docqa-be/internal/config"
	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/repository/implementation"
	"ai-docqa-be/internal/repository/specification"
	"ai-docqa-be/internal/repository/unitofwork"
	"ai-docqa-be/pkg/database"
	"ai-docqa-be/pkg/embedding"
	"ai-docqa-be/pkg/gate"
	"ai-docqa-be/pkg/retry"

	"github.com/fatih/color"
)

// Operator tool: re-embeds the whole corpus with the currently configured
// embedding model. Run after changing EMBEDDING_PROVIDER or the model, when
// queries start failing with a version mismatch.
func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	provider, err := bootstrap.NewEmbeddingProvider(cfg)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	providerGate := gate.New(int64(cfg.Pipeline.MaxInFlight), cfg.Pipeline.RatePerSecond)
	embedder := embedding.NewService(provider, nil, providerGate, retry.DefaultPolicy(), cfg.Pipeline.EmbedBatchSize)

	index := implementation.NewPgVectorIndex(db)
	uowFactory := unitofwork.NewRepositoryFactory(db)

	ctx := context.Background()
	uow := uowFactory.NewUnitOfWork(ctx)

	total, err := uow.DocumentRepository().Count(ctx)
	if err != nil {
		log.Fatalf("Failed to count documents: %v", err)
	}

	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	red := color.New(color.FgRed)
	yellow := color.New(color.FgYellow)

	bold.Printf("Re-embedding %d documents with %s\n\n", total, embedder.ModelVersion())

	// Record the target model version up front so per-document replaces
	// with the new model pass the index's version check, and searches
	// against the new configuration recover as soon as their documents land.
	if err := index.Retarget(ctx, embedder.ModelVersion(), embedder.Dimensions()); err != nil {
		log.Fatalf("Failed to record model version: %v", err)
	}

	start := time.Now()
	failed := 0
	done := 0
	const pageSize = 100

	// Page through documents so a large corpus never sits in memory whole.
	for offset := 0; ; offset += pageSize {
		documents, err := uow.DocumentRepository().FindAll(ctx,
			specification.OrderBy{Field: "created_at"},
			specification.Pagination{Limit: pageSize, Offset: offset},
		)
		if err != nil {
			log.Fatalf("Failed to list documents: %v", err)
		}
		if len(documents) == 0 {
			break
		}

		for _, document := range documents {
			done++
			fmt.Printf("[%d/%d] %s ... ", done, total, document.Filename)

			// Skip documents whose vectors already carry the target model.
			current, err := uow.ChunkEmbeddingRepository().Count(ctx,
				specification.ByDocumentId{DocumentId: document.Id},
				specification.ByModelVersion{ModelVersion: embedder.ModelVersion()},
			)
			if err == nil && current > 0 {
				yellow.Println("already on target model, skipped")
				continue
			}

			chunks, err := uow.ChunkEmbeddingRepository().FindAll(ctx,
				specification.ByDocumentId{DocumentId: document.Id},
				specification.OrderBy{Field: "chunk_index"},
			)
			if err != nil {
				red.Printf("load failed: %v\n", err)
				failed++
				continue
			}
			if len(chunks) == 0 {
				yellow.Println("no chunks, skipped")
				continue
			}

			texts := make([]string, len(chunks))
			for j, c := range chunks {
				texts[j] = c.Text
			}
			vectors, err := embedder.EmbedTexts(ctx, texts)
			if err != nil {
				red.Printf("embed failed: %v\n", err)
				failed++
				continue
			}

			fresh := make([]*entity.ChunkEmbedding, len(chunks))
			for j, c := range chunks {
				fresh[j] = &entity.ChunkEmbedding{
					Chunk:          c.Chunk,
					EmbeddingValue: vectors[j],
					ModelVersion:   embedder.ModelVersion(),
				}
			}
			if err := index.ReplaceDocument(ctx, document.Id, fresh); err != nil {
				red.Printf("index failed: %v\n", err)
				failed++
				continue
			}

			green.Printf("ok (%d chunks)\n", len(chunks))
		}
	}

	fmt.Println()
	if failed > 0 {
		red.Printf("Done with %d failures in %s\n", failed, time.Since(start).Round(time.Second))
		os.Exit(1)
	}
	green.Printf("Done in %s\n", time.Since(start).Round(time.Second))
}
