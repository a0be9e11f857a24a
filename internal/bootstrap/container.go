package bootstrap

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"ai-docqa-be/internal/config"
	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/internal/repository/implementation"
	"ai-docqa-be/internal/repository/unitofwork"
	"ai-docqa-be/internal/service"
	"ai-docqa-be/pkg/chunker"
	"ai-docqa-be/pkg/embedding"
	"ai-docqa-be/pkg/extractor"
	"ai-docqa-be/pkg/gate"
	llmfactory "ai-docqa-be/pkg/llm/factory"
	pkgNats "ai-docqa-be/pkg/nats"
	"ai-docqa-be/pkg/ocr"
	"ai-docqa-be/pkg/pipeline"
	"ai-docqa-be/pkg/rag/answercache"
	"ai-docqa-be/pkg/rag/retriever"
	"ai-docqa-be/pkg/rag/synthesizer"
	"ai-docqa-be/pkg/retry"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	IngestService service.IIngestService
	QueryService  service.IQueryService

	// Background services (exposed for main.go to run)
	ConsumerService  service.IConsumerService
	PublisherService service.IPublisherService

	UowFactory unitofwork.RepositoryFactory
	Index      contract.VectorIndex
	Logger     *logger.ZapLogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) (*Container, error) {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	uowFactory := unitofwork.NewRepositoryFactory(db)
	index := implementation.NewPgVectorIndex(db)

	// Provider plumbing shared by embedding, OCR and generation calls.
	policy := retry.DefaultPolicy()
	providerGate := gate.New(int64(cfg.Pipeline.MaxInFlight), cfg.Pipeline.RatePerSecond)

	embeddingProvider, err := NewEmbeddingProvider(cfg)
	if err != nil {
		return nil, err
	}
	contentCache := embedding.NewContentCache(24 * time.Hour)
	embedder := embedding.NewService(embeddingProvider, contentCache, providerGate, policy, cfg.Pipeline.EmbedBatchSize)

	// Refuse to start when the stored vectors cannot be compared against
	// what the configured model produces. Mixing dimensions would only
	// surface later as raw Postgres errors on insert.
	meta, err := index.Meta(context.Background())
	if err != nil {
		return nil, fmt.Errorf("read index metadata: %w", err)
	}
	if err := checkIndexCompatibility(meta, embeddingProvider); err != nil {
		return nil, err
	}

	llmProvider, err := llmfactory.NewProvider(cfg.Ai.LLMProvider, cfg.Ai.LLMModel, cfg.Ai.OllamaBaseURL, cfg.Ai.OpenAIAPIKey)
	if err != nil {
		return nil, err
	}

	ocrProvider := ocr.NewOpenAIProvider(cfg.Ai.OpenAIAPIKey, cfg.Ai.OCRModel, "")

	registry := extractor.NewRegistry(
		extractor.NewTextHandler(),
		extractor.NewSpreadsheetHandler(),
		extractor.NewImageHandler(ocrProvider, providerGate, policy, cfg.Ai.OCRMinConfidence),
	)

	ch, err := chunker.New(cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap)
	if err != nil {
		return nil, fmt.Errorf("chunker configuration: %w", err)
	}

	r := retriever.New(embedder, index, cfg.Pipeline.MinScore)
	s := synthesizer.New(llmProvider, policy)

	coordinator := pipeline.NewCoordinator(registry, ch, embedder, index, r, s, sysLogger)

	// Redis answer cache. Cache misses degrade gracefully, so a missing
	// Redis only costs repeat synthesis.
	var cache *answercache.Cache
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	cache = answercache.New(rdb, time.Duration(cfg.Pipeline.AnswerCacheTTL)*time.Minute)
	if err := cache.Ping(context.Background()); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// NATS lifecycle events (indexed, deleted, failed). Optional.
	var natsPub *pkgNats.Publisher
	natsPub, err = pkgNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] NATS unavailable, lifecycle events disabled: %v", err)
		natsPub = nil
	}

	// In-process reindex queue. The worker logs to its own file so bulk
	// re-embedding does not drown the main log.
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	publisherService := service.NewPublisherService(cfg.Keys.ReindexTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Keys.ReindexTopic,
		uowFactory,
		embedder,
		index,
		logger.NewIsolatedLogger(reindexLogPath(cfg.App.LogFilePath)),
	)

	ingestService := service.NewIngestService(uowFactory, coordinator, index, natsPub, publisherService, sysLogger)
	queryService := service.NewQueryService(uowFactory, r, s, index, cache, llmProvider, sysLogger)

	return &Container{
		IngestService:    ingestService,
		QueryService:     queryService,
		ConsumerService:  consumerService,
		PublisherService: publisherService,
		UowFactory:       uowFactory,
		Index:            index,
		Logger:           sysLogger,
	}, nil
}

// NewEmbeddingProvider builds the configured embedding provider. Shared with
// cmd/migrate and cmd/reindex, which need the model's dimensions without the
// rest of the container.
func NewEmbeddingProvider(cfg *config.Config) (embedding.Provider, error) {
	switch cfg.Ai.EmbeddingProvider {
	case "openai":
		return embedding.NewOpenAIProvider(cfg.Ai.OpenAIAPIKey, ""), nil
	case "ollama":
		return embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaModel, 0), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Ai.EmbeddingProvider)
	}
}

// checkIndexCompatibility compares the index's recorded dimensions against
// what the configured embedding model produces. An empty index (dimensions
// zero) is compatible with anything; it adopts the model on first insert.
func checkIndexCompatibility(meta *entity.IndexMeta, provider embedding.Provider) error {
	if meta.Dimensions == 0 || provider.Dimensions() == 0 {
		return nil
	}
	if meta.Dimensions != provider.Dimensions() {
		return fmt.Errorf("%w: index stores %d-dimensional vectors, model %q produces %d (run cmd/reindex after migrating)",
			contract.ErrIndexVersionMismatch, meta.Dimensions, provider.ModelVersion(), provider.Dimensions())
	}
	return nil
}

// reindexLogPath derives the reindex worker's log file from the main one,
// e.g. logs/app.log becomes logs/app.reindex.log.
func reindexLogPath(mainPath string) string {
	ext := filepath.Ext(mainPath)
	return strings.TrimSuffix(mainPath, ext) + ".reindex" + ext
}
