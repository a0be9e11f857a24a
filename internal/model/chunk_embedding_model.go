package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type ChunkEmbedding struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	DocumentId     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ChunkIndex     int             `gorm:"default:0"` // 0-based ordinal within the document
	Content        string          `gorm:"type:text"`
	EmbeddingValue pgvector.Vector `gorm:"type:vector"` // dimensions applied by migrate from the configured model
	ModelVersion   string          `gorm:"type:varchar(64);not null;index"`
	Seq            int64           `gorm:"autoIncrement;uniqueIndex"` // insertion sequence, tie-breaker for equal scores
	LocatorKind    string          `gorm:"type:varchar(16)"`
	LocatorLabel   string          `gorm:"type:varchar(255)"`
	LocatorStart   int             `gorm:"default:0"`
	LocatorEnd     int             `gorm:"default:0"`
	StartOffset    int             `gorm:"default:0"`
	EndOffset      int             `gorm:"default:0"`
	LowConfidence  bool            `gorm:"default:false"`
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	DeletedAt      gorm.DeletedAt  `gorm:"index"`
}

func (ChunkEmbedding) TableName() string {
	return "chunk_embeddings"
}
