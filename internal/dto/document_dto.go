package dto

import (
	"time"

	"github.com/google/uuid"
)

type IngestDocumentRequest struct {
	Filename string `json:"filename" validate:"required,max=512"`
	Format   string `json:"format" validate:"required,oneof=text spreadsheet image"`
	Raw      []byte `json:"raw" validate:"required"`
}

type IngestDocumentResponse struct {
	Id            uuid.UUID `json:"id"`
	Status        string    `json:"status"`
	ChunkCount    int       `json:"chunk_count"`
	LowConfidence bool      `json:"low_confidence"`
	FailReason    string    `json:"fail_reason,omitempty"`
}

type ShowDocumentResponse struct {
	Id         uuid.UUID  `json:"id"`
	Filename   string     `json:"filename"`
	Format     string     `json:"format"`
	Status     string     `json:"status"`
	ChunkCount int        `json:"chunk_count"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
}

type IndexStatsResponse struct {
	Documents    int64  `json:"documents"`
	Indexed      int64  `json:"indexed"`
	Failed       int64  `json:"failed"`
	Chunks       int64  `json:"chunks"`
	Generation   uint64 `json:"generation"`
	ModelVersion string `json:"model_version"`
}

// PublishReindexMessage is the payload sent to the reindex worker when the
// embedding model changes and the corpus must be re-embedded.
type PublishReindexMessage struct {
	DocumentId uuid.UUID `json:"document_id"`
	Reason     string    `json:"reason"`
}
