package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByDocumentId filters chunk embeddings belonging to one document.
type ByDocumentId struct {
	DocumentId uuid.UUID
}

func (s ByDocumentId) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("document_id = ?", s.DocumentId)
}

// ByStatus filters documents by ingestion status.
type ByStatus struct {
	Status string
}

func (s ByStatus) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("status = ?", s.Status)
}

// ByModelVersion filters chunk embeddings produced by a specific model.
type ByModelVersion struct {
	ModelVersion string
}

func (s ByModelVersion) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("model_version = ?", s.ModelVersion)
}
