package service

import (
	"context"
	"encoding/json"

	"ai-docqa-be/internal/dto"
	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/pkg/logger"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/internal/repository/specification"
	"ai-docqa-be/internal/repository/unitofwork"
	"ai-docqa-be/pkg/embedding"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService is the reindex worker. Each message names one document
// whose chunks must be re-embedded with the current model, e.g. after the
// embedding model version changed.
type consumerService struct {
	pubSub     *gochannel.GoChannel
	topicName  string
	uowFactory unitofwork.RepositoryFactory
	embedder   *embedding.Service
	index      contract.VectorIndex
	log        logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embedder *embedding.Service,
	index contract.VectorIndex,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:     pubSub,
		topicName:  topicName,
		uowFactory: uowFactory,
		embedder:   embedder,
		index:      index,
		log:        log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishReindexMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.log.Error("reindex", "failed to unmarshal message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // invalid payloads are not retriable
		return
	}

	cs.log.Info("reindex", "re-embedding document", map[string]interface{}{
		"document_id": payload.DocumentId.String(),
		"reason":      payload.Reason,
	})

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	chunks, err := uow.ChunkEmbeddingRepository().FindAll(ctx,
		specification.ByDocumentId{DocumentId: payload.DocumentId},
		specification.OrderBy{Field: "chunk_index"},
	)
	if err != nil {
		cs.log.Error("reindex", "failed to load chunks", map[string]interface{}{
			"document_id": payload.DocumentId.String(),
			"error":       err.Error(),
		})
		msg.Nack()
		return
	}
	if len(chunks) == 0 {
		// Document deleted since the message was published.
		msg.Ack()
		return
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := cs.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		cs.log.Error("reindex", "embedding failed", map[string]interface{}{
			"document_id": payload.DocumentId.String(),
			"error":       err.Error(),
		})
		msg.Nack()
		return
	}

	fresh := make([]*entity.ChunkEmbedding, len(chunks))
	for i, c := range chunks {
		fresh[i] = &entity.ChunkEmbedding{
			Chunk:          c.Chunk,
			EmbeddingValue: vectors[i],
			ModelVersion:   cs.embedder.ModelVersion(),
		}
	}

	if err := cs.retargetIfNeeded(ctx); err != nil {
		cs.log.Error("reindex", "failed to retarget index", map[string]interface{}{
			"document_id": payload.DocumentId.String(),
			"error":       err.Error(),
		})
		msg.Nack()
		return
	}

	if err := cs.index.ReplaceDocument(ctx, payload.DocumentId, fresh); err != nil {
		cs.log.Error("reindex", "index replace failed", map[string]interface{}{
			"document_id": payload.DocumentId.String(),
			"error":       err.Error(),
		})
		msg.Nack()
		return
	}

	cs.log.Info("reindex", "document re-embedded", map[string]interface{}{
		"document_id": payload.DocumentId.String(),
		"chunks":      len(fresh),
	})
	msg.Ack()
}

// retargetIfNeeded points the index at the worker's embedding model before
// the first replace of a rollover. Documents not yet re-embedded keep their
// old vectors until their own message arrives.
func (cs *consumerService) retargetIfNeeded(ctx context.Context) error {
	target := cs.embedder.ModelVersion()
	meta, err := cs.index.Meta(ctx)
	if err != nil {
		return err
	}
	if meta.ModelVersion == "" || meta.ModelVersion == target {
		return nil
	}
	cs.log.Info("reindex", "retargeting index", map[string]interface{}{
		"from": meta.ModelVersion,
		"to":   target,
	})
	return cs.index.Retarget(ctx, target, cs.embedder.Dimensions())
}
