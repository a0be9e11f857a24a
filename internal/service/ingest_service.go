package service

import (
	"context"
	"encoding/json"
	"errors"

	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/internal/repository/specification"
	"ai-docqa-be/internal/repository/unitofwork"
	"ai-docqa-be/internal/tracer"
	"ai-docqa-be/pkg/events"
	"ai-docqa-be/pkg/nats"
	"ai-docqa-be/pkg/pipeline"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type IIngestService interface {
	Ingest(ctx context.Context, request *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error)
	Reingest(ctx context.Context, documentId uuid.UUID, raw []byte) (*dto.IngestDocumentResponse, error)
	Delete(ctx context.Context, documentId uuid.UUID) error
	Show(ctx context.Context, documentId uuid.UUID) (*dto.ShowDocumentResponse, error)
	List(ctx context.Context) ([]*dto.ShowDocumentResponse, error)
	Stats(ctx context.Context) (*dto.IndexStatsResponse, error)
	Reset(ctx context.Context) error

	// RequestReindex enqueues one document for background re-embedding with
	// the currently configured model.
	RequestReindex(ctx context.Context, documentId uuid.UUID, reason string) error

	// RequestReindexAll enqueues every document still carrying a model
	// version other than the configured one. Returns how many were queued.
	RequestReindexAll(ctx context.Context, reason string) (int, error)
}

type ingestService struct {
	uowFactory     unitofwork.RepositoryFactory
	coordinator    *pipeline.Coordinator
	index          contract.VectorIndex
	eventPublisher *nats.Publisher
	reindexQueue   IPublisherService
	validate       *validator.Validate
	log            logger.ILogger
}

func NewIngestService(
	uowFactory unitofwork.RepositoryFactory,
	coordinator *pipeline.Coordinator,
	index contract.VectorIndex,
	eventPublisher *nats.Publisher,
	reindexQueue IPublisherService,
	log logger.ILogger,
) IIngestService {
	return &ingestService{
		uowFactory:     uowFactory,
		coordinator:    coordinator,
		index:          index,
		eventPublisher: eventPublisher,
		reindexQueue:   reindexQueue,
		validate:       validator.New(),
		log:            log,
	}
}

func (s *ingestService) Ingest(ctx context.Context, request *dto.IngestDocumentRequest) (*dto.IngestDocumentResponse, error) {
	if err := s.validate.Struct(request); err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	docRepo := uow.DocumentRepository()

	document := &entity.Document{
		Id:       uuid.New(),
		Filename: request.Filename,
		Format:   entity.DocumentFormat(request.Format),
		Status:   entity.StatusPending,
	}
	if err := docRepo.Create(ctx, document); err != nil {
		return nil, err
	}

	return s.runPipeline(ctx, docRepo, document, request.Raw)
}

func (s *ingestService) Reingest(ctx context.Context, documentId uuid.UUID, raw []byte) (*dto.IngestDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	docRepo := uow.DocumentRepository()

	document, err := docRepo.FindById(ctx, documentId)
	if err != nil {
		return nil, err
	}

	document.Status = entity.StatusPending
	document.FailReason = ""
	if err := docRepo.Update(ctx, document); err != nil {
		return nil, err
	}

	// Re-ingesting replaces all previous chunks of the document with freshly
	// minted chunk ids; stale ids never resurface in search results.
	return s.runPipeline(ctx, docRepo, document, raw)
}

func (s *ingestService) runPipeline(ctx context.Context, docRepo contract.DocumentRepository, document *entity.Document, raw []byte) (*dto.IngestDocumentResponse, error) {
	ctx, span := tracer.Pipeline().Start(ctx, "ingest.document")
	defer span.End()

	onStage := func(status entity.IngestStatus) {
		document.Status = status
		if err := docRepo.Update(ctx, document); err != nil {
			s.log.Warn("ingest", "failed to record stage", map[string]interface{}{
				"document_id": document.Id.String(),
				"status":      string(status),
				"error":       err.Error(),
			})
		}
	}

	result, err := s.coordinator.Ingest(ctx, document.Id, raw, document.Format, onStage)
	if err != nil {
		document.Status = entity.StatusFailed
		document.FailReason = err.Error()
		if updateErr := docRepo.Update(ctx, document); updateErr != nil {
			s.log.Error("ingest", "failed to record failure", map[string]interface{}{
				"document_id": document.Id.String(),
				"error":       updateErr.Error(),
			})
		}
		s.publishEvent(ctx, events.NewIngestFailed(document.Id, document.Filename, string(document.Format), err.Error()))
		return &dto.IngestDocumentResponse{
			Id:         document.Id,
			Status:     string(entity.StatusFailed),
			FailReason: err.Error(),
		}, err
	}

	document.Status = entity.StatusIndexed
	document.ChunkCount = result.ChunkCount
	if err := docRepo.Update(ctx, document); err != nil {
		return nil, err
	}

	s.publishEvent(ctx, events.NewDocumentIndexed(document.Id, document.Filename, string(document.Format), result.ChunkCount))

	return &dto.IngestDocumentResponse{
		Id:            document.Id,
		Status:        string(entity.StatusIndexed),
		ChunkCount:    result.ChunkCount,
		LowConfidence: result.LowConfidence,
	}, nil
}

func (s *ingestService) Delete(ctx context.Context, documentId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	docRepo := uow.DocumentRepository()

	document, err := docRepo.FindById(ctx, documentId)
	if err != nil {
		return err
	}

	if err := s.coordinator.Delete(ctx, documentId); err != nil && !errors.Is(err, contract.ErrDocumentNotFound) {
		// A document that failed before indexing has no chunks; that is fine.
		return err
	}
	if err := docRepo.Delete(ctx, documentId); err != nil {
		return err
	}

	s.publishEvent(ctx, events.NewDocumentDeleted(document.Id, document.Filename, string(document.Format)))
	return nil
}

func (s *ingestService) Show(ctx context.Context, documentId uuid.UUID) (*dto.ShowDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	document, err := uow.DocumentRepository().FindById(ctx, documentId)
	if err != nil {
		return nil, err
	}
	return toShowDocumentResponse(document), nil
}

func (s *ingestService) List(ctx context.Context) ([]*dto.ShowDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	documents, err := uow.DocumentRepository().FindAll(ctx, specification.OrderBy{Field: "created_at", Desc: true})
	if err != nil {
		return nil, err
	}
	responses := make([]*dto.ShowDocumentResponse, len(documents))
	for i, d := range documents {
		responses[i] = toShowDocumentResponse(d)
	}
	return responses, nil
}

func (s *ingestService) Stats(ctx context.Context) (*dto.IndexStatsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	documents, err := uow.DocumentRepository().Count(ctx)
	if err != nil {
		return nil, err
	}
	indexed, err := uow.DocumentRepository().Count(ctx, specification.ByStatus{Status: string(entity.StatusIndexed)})
	if err != nil {
		return nil, err
	}
	failed, err := uow.DocumentRepository().Count(ctx, specification.ByStatus{Status: string(entity.StatusFailed)})
	if err != nil {
		return nil, err
	}
	chunks, err := uow.ChunkEmbeddingRepository().Count(ctx)
	if err != nil {
		return nil, err
	}
	meta, err := s.index.Meta(ctx)
	if err != nil {
		return nil, err
	}

	return &dto.IndexStatsResponse{
		Documents:    documents,
		Indexed:      indexed,
		Failed:       failed,
		Chunks:       chunks,
		Generation:   meta.Generation,
		ModelVersion: meta.ModelVersion,
	}, nil
}

func (s *ingestService) Reset(ctx context.Context) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	docRepo := uow.DocumentRepository()

	documents, err := docRepo.FindAll(ctx)
	if err != nil {
		return err
	}

	if err := s.index.Reset(ctx, s.coordinator.ModelVersion(), 0); err != nil {
		return err
	}
	for _, d := range documents {
		if err := docRepo.Delete(ctx, d.Id); err != nil {
			return err
		}
	}

	s.log.Warn("ingest", "index reset, all documents dropped", map[string]interface{}{
		"documents": len(documents),
	})
	return nil
}

func (s *ingestService) RequestReindex(ctx context.Context, documentId uuid.UUID, reason string) error {
	if s.reindexQueue == nil {
		return errors.New("reindex queue not configured")
	}
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if _, err := uow.DocumentRepository().FindById(ctx, documentId); err != nil {
		return err
	}
	return s.enqueueReindex(ctx, documentId, reason)
}

func (s *ingestService) RequestReindexAll(ctx context.Context, reason string) (int, error) {
	if s.reindexQueue == nil {
		return 0, errors.New("reindex queue not configured")
	}

	meta, err := s.index.Meta(ctx)
	if err != nil {
		return 0, err
	}
	target := s.coordinator.ModelVersion()
	if meta.ModelVersion == "" || meta.ModelVersion == target {
		return 0, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	documents, err := uow.DocumentRepository().FindAll(ctx, specification.OrderBy{Field: "created_at"})
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, d := range documents {
		current, err := uow.ChunkEmbeddingRepository().Count(ctx,
			specification.ByDocumentId{DocumentId: d.Id},
			specification.ByModelVersion{ModelVersion: target},
		)
		if err != nil {
			return queued, err
		}
		if current > 0 {
			continue
		}
		if err := s.enqueueReindex(ctx, d.Id, reason); err != nil {
			return queued, err
		}
		queued++
	}

	s.log.Info("ingest", "reindex requested", map[string]interface{}{
		"documents": queued,
		"target":    target,
	})
	return queued, nil
}

func (s *ingestService) enqueueReindex(ctx context.Context, documentId uuid.UUID, reason string) error {
	payload, err := json.Marshal(dto.PublishReindexMessage{DocumentId: documentId, Reason: reason})
	if err != nil {
		return err
	}
	return s.reindexQueue.Publish(ctx, payload)
}

func (s *ingestService) publishEvent(ctx context.Context, event events.DocumentEvent) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.log.Warn("ingest", "failed to publish event", map[string]interface{}{
			"event": event.EventType(),
			"error": err.Error(),
		})
	}
}

func toShowDocumentResponse(d *entity.Document) *dto.ShowDocumentResponse {
	return &dto.ShowDocumentResponse{
		Id:         d.Id,
		Filename:   d.Filename,
		Format:     string(d.Format),
		Status:     string(d.Status),
		ChunkCount: d.ChunkCount,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}
