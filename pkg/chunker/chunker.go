package chunker

import (
	"errors"
	"fmt"

	"ai-docqa-be/internal/entity"

	"github.com/google/uuid"
)

// ErrInvalidConfiguration is returned when chunking parameters cannot
// produce a terminating, overlapping window sequence.
var ErrInvalidConfiguration = errors.New("invalid chunker configuration")

const (
	DefaultChunkSize = 1000
	DefaultOverlap   = 200
)

// Chunker splits extracted text into overlapping fixed-size chunks.
// Splitting is deterministic: identical segments and parameters always
// yield byte-identical chunk text, offsets and locators.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New validates the window parameters. Overlap must be strictly smaller
// than the chunk size or the stride would never advance.
func New(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size %d must be positive", ErrInvalidConfiguration, chunkSize)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap %d must not be negative", ErrInvalidConfiguration, overlap)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap %d must be smaller than chunk size %d", ErrInvalidConfiguration, overlap, chunkSize)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// breakpoint maps a rune range of the concatenated stream back to the
// segment it came from.
type breakpoint struct {
	start, end int // [start, end) in runes
	segment    *entity.Segment
}

// Chunk concatenates the segments of one document (no separator runes, so
// chunk offsets are offsets into the raw extracted stream) and windows over
// the result. A chunk that straddles a segment boundary records the full
// locator span it covers and inherits the low-confidence flag of any
// segment it touches.
func (c *Chunker) Chunk(documentId uuid.UUID, segments []entity.Segment) ([]entity.Chunk, error) {
	var stream []rune
	var breaks []breakpoint
	for i := range segments {
		runes := []rune(segments[i].Text)
		if len(runes) == 0 {
			continue
		}
		breaks = append(breaks, breakpoint{
			start:   len(stream),
			end:     len(stream) + len(runes),
			segment: &segments[i],
		})
		stream = append(stream, runes...)
	}

	total := len(stream)
	if total == 0 {
		return nil, nil
	}

	step := c.chunkSize - c.overlap
	var chunks []entity.Chunk
	for start := 0; start < total; start += step {
		end := start + c.chunkSize
		if end > total {
			end = total
		}

		locator, lowConfidence := resolveSpan(breaks, start, end)
		chunks = append(chunks, entity.Chunk{
			Id:            uuid.New(),
			DocumentId:    documentId,
			ChunkIndex:    len(chunks),
			Text:          string(stream[start:end]),
			Locator:       locator,
			StartOffset:   start,
			EndOffset:     end,
			LowConfidence: lowConfidence,
		})

		if end == total {
			break
		}
	}

	return chunks, nil
}

// resolveSpan merges the locators of every segment overlapping [start, end).
func resolveSpan(breaks []breakpoint, start, end int) (entity.SourceLocator, bool) {
	var locator entity.SourceLocator
	low := false
	first := true
	for _, b := range breaks {
		if b.end <= start || b.start >= end {
			continue
		}
		loc := b.segment.Locator
		if first {
			locator = loc
			first = false
		} else {
			if loc.End > locator.End {
				locator.End = loc.End
			}
			if loc.Start < locator.Start {
				locator.Start = loc.Start
			}
		}
		if b.segment.LowConfidence {
			low = true
		}
	}
	return locator, low
}
