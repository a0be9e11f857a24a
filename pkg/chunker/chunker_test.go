package chunker

import (
	"errors"
	"strings"
	"testing"

	"ai-docqa-be/internal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pageSegment(page int, text string) entity.Segment {
	return entity.Segment{
		Text:    text,
		Locator: entity.SourceLocator{Kind: entity.LocatorPage, Start: page, End: page},
	}
}

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name      string
		chunkSize int
		overlap   int
	}{
		{"overlap equals chunk size", 1000, 1000},
		{"overlap exceeds chunk size", 200, 300},
		{"zero chunk size", 0, 0},
		{"negative overlap", 1000, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.chunkSize, tt.overlap)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfiguration))
		})
	}
}

func TestChunkThreePageDocument(t *testing.T) {
	// 3 pages x 1000 chars, size 1000, overlap 200 -> 4 chunks at
	// [0,1000) [800,1800) [1600,2600) [2400,3000).
	c, err := New(1000, 200)
	require.NoError(t, err)

	segments := []entity.Segment{
		pageSegment(1, strings.Repeat("a", 1000)),
		pageSegment(2, strings.Repeat("b", 1000)),
		pageSegment(3, strings.Repeat("c", 1000)),
	}

	chunks, err := c.Chunk(uuid.New(), segments)
	require.NoError(t, err)
	require.Len(t, chunks, 4)

	wantOffsets := [][2]int{{0, 1000}, {800, 1800}, {1600, 2600}, {2400, 3000}}
	for i, want := range wantOffsets {
		assert.Equal(t, want[0], chunks[i].StartOffset, "chunk %d start", i)
		assert.Equal(t, want[1], chunks[i].EndOffset, "chunk %d end", i)
		assert.Equal(t, i, chunks[i].ChunkIndex)
	}

	// Chunk 1 covers [800,1800): straddles pages 1 and 2 and must record
	// the full page span.
	assert.Equal(t, 1, chunks[1].Locator.Start)
	assert.Equal(t, 2, chunks[1].Locator.End)
	// Chunk 3 covers [2400,3000): page 3 only.
	assert.Equal(t, 3, chunks[3].Locator.Start)
	assert.Equal(t, 3, chunks[3].Locator.End)
}

func TestChunkDeterminism(t *testing.T) {
	c, err := New(100, 20)
	require.NoError(t, err)

	segments := []entity.Segment{
		pageSegment(1, strings.Repeat("the quick brown fox. ", 20)),
		pageSegment(2, strings.Repeat("jumps over the lazy dog. ", 20)),
	}

	docId := uuid.New()
	first, err := c.Chunk(docId, segments)
	require.NoError(t, err)
	second, err := c.Chunk(docId, segments)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Text, second[i].Text)
		assert.Equal(t, first[i].StartOffset, second[i].StartOffset)
		assert.Equal(t, first[i].EndOffset, second[i].EndOffset)
		assert.Equal(t, first[i].Locator, second[i].Locator)
	}
}

func TestChunkShortInputYieldsSingleChunk(t *testing.T) {
	c, err := New(1000, 200)
	require.NoError(t, err)

	chunks, err := c.Chunk(uuid.New(), []entity.Segment{pageSegment(1, "short text")})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short text", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].StartOffset)
	assert.Equal(t, 10, chunks[0].EndOffset)
}

func TestChunkEmptySegments(t *testing.T) {
	c, err := New(1000, 200)
	require.NoError(t, err)

	chunks, err := c.Chunk(uuid.New(), nil)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	chunks, err = c.Chunk(uuid.New(), []entity.Segment{pageSegment(1, "")})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestChunkPropagatesLowConfidence(t *testing.T) {
	c, err := New(50, 10)
	require.NoError(t, err)

	segments := []entity.Segment{
		pageSegment(1, strings.Repeat("x", 40)),
		{
			Text:          strings.Repeat("y", 40),
			Locator:       entity.SourceLocator{Kind: entity.LocatorPage, Start: 2, End: 2},
			Confidence:    0.3,
			LowConfidence: true,
		},
	}

	chunks, err := c.Chunk(uuid.New(), segments)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	// First chunk [0,50) touches the low-confidence page 2 segment.
	assert.True(t, chunks[0].LowConfidence)
	assert.True(t, chunks[1].LowConfidence)
}

func TestChunkRuneBoundaries(t *testing.T) {
	c, err := New(4, 1)
	require.NoError(t, err)

	chunks, err := c.Chunk(uuid.New(), []entity.Segment{pageSegment(1, "héllö wörld")})
	require.NoError(t, err)
	for _, ch := range chunks {
		// Offsets count runes, so every chunk slice is valid UTF-8.
		assert.True(t, len([]rune(ch.Text)) <= 4)
	}
}
