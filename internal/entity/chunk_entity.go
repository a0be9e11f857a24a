package entity

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LocatorKind names the structural unit a locator range refers to.
type LocatorKind string

const (
	LocatorPage      LocatorKind = "page"
	LocatorSheet     LocatorKind = "sheet"
	LocatorParagraph LocatorKind = "paragraph"
)

// SourceLocator points a chunk back to a contiguous region of its source
// document. Start/End are 1-based and inclusive; a chunk that straddles a
// page boundary records the full span it covers.
type SourceLocator struct {
	Kind  LocatorKind `json:"kind"`
	Label string      `json:"label,omitempty"` // sheet name for spreadsheets
	Start int         `json:"start"`
	End   int         `json:"end"`
}

func (l SourceLocator) String() string {
	unit := string(l.Kind)
	if l.Label != "" {
		unit = fmt.Sprintf("%s %q", unit, l.Label)
	}
	if l.End > l.Start {
		return fmt.Sprintf("%s %d-%d", unit, l.Start, l.End)
	}
	return fmt.Sprintf("%s %d", unit, l.Start)
}

// Chunk is the atomic unit of indexing. Immutable once created; re-ingesting
// a document produces new chunk ids.
type Chunk struct {
	Id            uuid.UUID
	DocumentId    uuid.UUID
	ChunkIndex    int
	Text          string
	Locator       SourceLocator
	StartOffset   int // rune offset into the extracted stream, inclusive
	EndOffset     int // exclusive
	LowConfidence bool
}

// ChunkEmbedding pairs a chunk with its vector and the model version that
// produced it. Seq is the index insertion sequence used for tie-breaking.
type ChunkEmbedding struct {
	Chunk
	EmbeddingValue []float32
	ModelVersion   string
	Seq            uint64
	CreatedAt      time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}

// ScoredChunk is an ephemeral per-query search result.
type ScoredChunk struct {
	Chunk      *ChunkEmbedding
	Similarity float64 // cosine similarity in [-1, 1]
	Rank       int     // 1-based
}
