package mapper

import (
	"time"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type ChunkEmbeddingMapper struct{}

func NewChunkEmbeddingMapper() *ChunkEmbeddingMapper {
	return &ChunkEmbeddingMapper{}
}

func (m *ChunkEmbeddingMapper) ToEntity(e *model.ChunkEmbedding) *entity.ChunkEmbedding {
	if e == nil {
		return nil
	}

	var deletedAt *time.Time
	if e.DeletedAt.Valid {
		t := e.DeletedAt.Time
		deletedAt = &t
	}

	return &entity.ChunkEmbedding{
		Chunk: entity.Chunk{
			Id:         e.Id,
			DocumentId: e.DocumentId,
			ChunkIndex: e.ChunkIndex,
			Text:       e.Content,
			Locator: entity.SourceLocator{
				Kind:  entity.LocatorKind(e.LocatorKind),
				Label: e.LocatorLabel,
				Start: e.LocatorStart,
				End:   e.LocatorEnd,
			},
			StartOffset:   e.StartOffset,
			EndOffset:     e.EndOffset,
			LowConfidence: e.LowConfidence,
		},
		EmbeddingValue: e.EmbeddingValue.Slice(),
		ModelVersion:   e.ModelVersion,
		Seq:            uint64(e.Seq),
		CreatedAt:      e.CreatedAt,
		DeletedAt:      deletedAt,
		IsDeleted:      e.DeletedAt.Valid,
	}
}

func (m *ChunkEmbeddingMapper) ToModel(e *entity.ChunkEmbedding) *model.ChunkEmbedding {
	if e == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if e.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *e.DeletedAt, Valid: true}
	}

	return &model.ChunkEmbedding{
		Id:             e.Id,
		DocumentId:     e.DocumentId,
		ChunkIndex:     e.ChunkIndex,
		Content:        e.Text,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		ModelVersion:   e.ModelVersion,
		Seq:            int64(e.Seq),
		LocatorKind:    string(e.Locator.Kind),
		LocatorLabel:   e.Locator.Label,
		LocatorStart:   e.Locator.Start,
		LocatorEnd:     e.Locator.End,
		StartOffset:    e.StartOffset,
		EndOffset:      e.EndOffset,
		LowConfidence:  e.LowConfidence,
		CreatedAt:      e.CreatedAt,
		DeletedAt:      deletedAt,
	}
}

func (m *ChunkEmbeddingMapper) ToEntities(models []model.ChunkEmbedding) []*entity.ChunkEmbedding {
	entities := make([]*entity.ChunkEmbedding, 0, len(models))
	for i := range models {
		entities = append(entities, m.ToEntity(&models[i]))
	}
	return entities
}

func (m *ChunkEmbeddingMapper) ToModels(entities []*entity.ChunkEmbedding) []*model.ChunkEmbedding {
	models := make([]*model.ChunkEmbedding, 0, len(entities))
	for _, e := range entities {
		models = append(models, m.ToModel(e))
	}
	return models
}
