package events

import (
	"time"

	"github.com/google/uuid"
)

// Document lifecycle event types published on the bus.
const (
	TypeDocumentIndexed = "DOCUMENT_INDEXED"
	TypeDocumentDeleted = "DOCUMENT_DELETED"
	TypeIngestFailed    = "DOCUMENT_INGEST_FAILED"
)

// Event is the contract every published event satisfies.
type Event interface {
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

// DocumentEvent covers the ingestion lifecycle: indexed, deleted, or failed.
// Reason is only set for failures.
type DocumentEvent struct {
	Type       string
	DocumentId uuid.UUID
	Filename   string
	Format     string
	ChunkCount int
	Reason     string
	OccurredAt time.Time
}

func NewDocumentIndexed(documentId uuid.UUID, filename, format string, chunkCount int) DocumentEvent {
	return DocumentEvent{
		Type:       TypeDocumentIndexed,
		DocumentId: documentId,
		Filename:   filename,
		Format:     format,
		ChunkCount: chunkCount,
		OccurredAt: time.Now(),
	}
}

func NewDocumentDeleted(documentId uuid.UUID, filename, format string) DocumentEvent {
	return DocumentEvent{
		Type:       TypeDocumentDeleted,
		DocumentId: documentId,
		Filename:   filename,
		Format:     format,
		OccurredAt: time.Now(),
	}
}

func NewIngestFailed(documentId uuid.UUID, filename, format, reason string) DocumentEvent {
	return DocumentEvent{
		Type:       TypeIngestFailed,
		DocumentId: documentId,
		Filename:   filename,
		Format:     format,
		Reason:     reason,
		OccurredAt: time.Now(),
	}
}

func (e DocumentEvent) EventType() string {
	return e.Type
}

func (e DocumentEvent) Payload() map[string]interface{} {
	data := map[string]interface{}{
		"document_id": e.DocumentId.String(),
		"filename":    e.Filename,
		"format":      e.Format,
	}
	if e.Type == TypeDocumentIndexed {
		data["chunk_count"] = e.ChunkCount
	}
	if e.Reason != "" {
		data["reason"] = e.Reason
	}
	return data
}

func (e DocumentEvent) Timestamp() time.Time {
	return e.OccurredAt
}
