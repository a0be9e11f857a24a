package entity

import (
	"time"

	"github.com/google/uuid"
)

// DocumentFormat is the closed set of ingestable formats. Dispatch happens on
// the declared tag, never on content sniffing.
type DocumentFormat string

const (
	FormatText        DocumentFormat = "text"
	FormatSpreadsheet DocumentFormat = "spreadsheet"
	FormatImage       DocumentFormat = "image"
)

// IngestStatus tracks a document through the ingestion pipeline.
type IngestStatus string

const (
	StatusPending   IngestStatus = "pending"
	StatusExtracted IngestStatus = "extracted"
	StatusChunked   IngestStatus = "chunked"
	StatusIndexed   IngestStatus = "indexed"
	StatusFailed    IngestStatus = "failed"
)

type Document struct {
	Id         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Filename   string
	Format     DocumentFormat
	Status     IngestStatus
	FailReason string
	ChunkCount int
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	DeletedAt  *time.Time
	IsDeleted  bool
}
