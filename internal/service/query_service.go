package service

import (
	"context"
	"fmt"
	"strings"

	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/internal/repository/specification"
	"ai-docqa-be/internal/repository/unitofwork"
	"ai-docqa-be/internal/tracer"
	"ai-docqa-be/pkg/llm"
	"ai-docqa-be/pkg/rag/answercache"
	"ai-docqa-be/pkg/rag/retriever"
	"ai-docqa-be/pkg/rag/synthesizer"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// summaryInputLimit caps how much chunk text is handed to the model when
// summarizing a document.
const summaryInputLimit = 4000

type IQueryService interface {
	Query(ctx context.Context, request *dto.QueryRequest) (*dto.AnswerResponse, error)
	Retrieve(ctx context.Context, request *dto.QueryRequest) ([]*dto.SearchResultResponse, error)
	Synthesize(ctx context.Context, queryText string, results []*dto.SearchResultResponse) (*dto.AnswerResponse, error)
	Summarize(ctx context.Context, documentId uuid.UUID) (*dto.AnswerResponse, error)
}

type queryService struct {
	uowFactory  unitofwork.RepositoryFactory
	retriever   *retriever.Retriever
	synthesizer *synthesizer.Synthesizer
	index       contract.VectorIndex
	cache       *answercache.Cache
	llmProvider llm.Provider
	validate    *validator.Validate
	log         logger.ILogger
}

func NewQueryService(
	uowFactory unitofwork.RepositoryFactory,
	r *retriever.Retriever,
	s *synthesizer.Synthesizer,
	index contract.VectorIndex,
	cache *answercache.Cache,
	llmProvider llm.Provider,
	log logger.ILogger,
) IQueryService {
	return &queryService{
		uowFactory:  uowFactory,
		retriever:   r,
		synthesizer: s,
		index:       index,
		cache:       cache,
		llmProvider: llmProvider,
		validate:    validator.New(),
		log:         log,
	}
}

// Query runs the full retrieve + synthesize path, consulting the answer
// cache first. Cache keys include the index generation, so any ingest or
// delete since the answer was cached makes the key unreachable.
func (s *queryService) Query(ctx context.Context, request *dto.QueryRequest) (*dto.AnswerResponse, error) {
	if err := s.validate.Struct(request); err != nil {
		return nil, err
	}

	ctx, span := tracer.Pipeline().Start(ctx, "query.answer")
	defer span.End()

	k := request.K
	if k <= 0 {
		k = retriever.DefaultK
	}

	meta, err := s.index.Meta(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if answer, ok := s.cache.Get(ctx, request.Text, k, meta.ModelVersion, meta.Generation); ok {
			response := toAnswerResponse(answer)
			response.Cached = true
			return response, nil
		}
	}

	chunks, err := s.retriever.Retrieve(ctx, request.Text, k)
	if err != nil {
		return nil, err
	}

	sources, err := s.resolveSources(ctx, chunks)
	if err != nil {
		return nil, err
	}

	answer, err := s.synthesizer.Synthesize(ctx, request.Text, sources)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, request.Text, k, meta.ModelVersion, meta.Generation, answer); err != nil {
			s.log.Warn("query", "failed to cache answer", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return toAnswerResponse(answer), nil
}

// Retrieve exposes the search half of the pipeline on its own.
func (s *queryService) Retrieve(ctx context.Context, request *dto.QueryRequest) ([]*dto.SearchResultResponse, error) {
	if err := s.validate.Struct(request); err != nil {
		return nil, err
	}

	chunks, err := s.retriever.Retrieve(ctx, request.Text, request.K)
	if err != nil {
		return nil, err
	}

	sources, err := s.resolveSources(ctx, chunks)
	if err != nil {
		return nil, err
	}

	results := make([]*dto.SearchResultResponse, len(sources))
	for i, src := range sources {
		results[i] = &dto.SearchResultResponse{
			ChunkId:    src.Chunk.Chunk.Id,
			DocumentId: src.Chunk.Chunk.DocumentId,
			Filename:   src.Filename,
			Text:       src.Chunk.Chunk.Text,
			Locator:    src.Chunk.Chunk.Locator.String(),
			Similarity: src.Chunk.Similarity,
			Rank:       src.Chunk.Rank,
		}
	}
	return results, nil
}

// Synthesize answers from previously retrieved results, so a caller that hit
// GenerationUnavailable can retry without paying for another search.
func (s *queryService) Synthesize(ctx context.Context, queryText string, results []*dto.SearchResultResponse) (*dto.AnswerResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	chunkRepo := uow.ChunkEmbeddingRepository()

	sources := make([]synthesizer.Source, 0, len(results))
	for _, res := range results {
		chunks, err := chunkRepo.FindAll(ctx, specification.ByID{ID: res.ChunkId})
		if err != nil {
			return nil, err
		}
		if len(chunks) == 0 {
			// Chunk deleted since retrieval; skip it rather than cite a ghost.
			continue
		}
		sources = append(sources, synthesizer.Source{
			Chunk: &entity.ScoredChunk{
				Chunk:      chunks[0],
				Similarity: res.Similarity,
				Rank:       res.Rank,
			},
			Filename: res.Filename,
		})
	}

	answer, err := s.synthesizer.Synthesize(ctx, queryText, sources)
	if err != nil {
		return nil, err
	}
	return toAnswerResponse(answer), nil
}

// Summarize builds a summary of one document from its indexed chunks.
func (s *queryService) Summarize(ctx context.Context, documentId uuid.UUID) (*dto.AnswerResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	document, err := uow.DocumentRepository().FindById(ctx, documentId)
	if err != nil {
		return nil, err
	}

	chunks, err := uow.ChunkEmbeddingRepository().FindAll(ctx,
		specification.ByDocumentId{DocumentId: documentId},
		specification.OrderBy{Field: "chunk_index"},
	)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %s has no indexed content", documentId)
	}

	var b strings.Builder
	for _, c := range chunks {
		if b.Len() >= summaryInputLimit {
			break
		}
		b.WriteString(c.Text)
		b.WriteString("\n\n")
	}
	text := b.String()
	if len(text) > summaryInputLimit {
		text = text[:summaryInputLimit]
	}

	prompt := fmt.Sprintf("Provide a concise summary of the following document (%s):\n\n%s", document.Filename, text)
	summary, err := s.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.5), llm.WithMaxTokens(500))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", synthesizer.ErrGenerationUnavailable, err)
	}

	return &dto.AnswerResponse{
		Text:     summary,
		Grounded: true,
		Model:    s.llmProvider.Model(),
		Citations: []dto.CitationResponse{{
			DocumentId: documentId,
			Filename:   document.Filename,
			Locator:    fmt.Sprintf("full document, %d chunks", len(chunks)),
		}},
	}, nil
}

// resolveSources attaches document filenames to retrieved chunks. The index
// stores document ids only; citations need human-readable names.
func (s *queryService) resolveSources(ctx context.Context, chunks []*entity.ScoredChunk) ([]synthesizer.Source, error) {
	if len(chunks) == 0 {
		return nil, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	docRepo := uow.DocumentRepository()

	filenames := make(map[uuid.UUID]string)
	sources := make([]synthesizer.Source, len(chunks))
	for i, c := range chunks {
		name, ok := filenames[c.Chunk.DocumentId]
		if !ok {
			document, err := docRepo.FindById(ctx, c.Chunk.DocumentId)
			if err != nil {
				return nil, err
			}
			name = document.Filename
			filenames[c.Chunk.DocumentId] = name
		}
		sources[i] = synthesizer.Source{Chunk: c, Filename: name}
	}
	return sources, nil
}

func toAnswerResponse(answer *entity.Answer) *dto.AnswerResponse {
	citations := make([]dto.CitationResponse, len(answer.Citations))
	for i, c := range answer.Citations {
		citations[i] = dto.CitationResponse{
			ChunkId:    c.ChunkId,
			DocumentId: c.DocumentId,
			Filename:   c.Filename,
			Locator:    c.Locator.String(),
		}
	}
	return &dto.AnswerResponse{
		Text:      answer.Text,
		Citations: citations,
		Grounded:  answer.Grounded,
		Model:     answer.Model,
	}
}
