package synthesizer

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/pkg/llm"
	"ai-docqa-be/pkg/retry"
)

// ErrGenerationUnavailable is returned once the retry ceiling against the
// generation provider is exhausted. Retrieval results stay valid, so the
// caller can retry synthesis without re-running the search.
var ErrGenerationUnavailable = errors.New("generation provider unavailable")

// InsufficientContextAnswer is returned without calling the provider when
// retrieval produced nothing to ground an answer on.
const InsufficientContextAnswer = "No relevant documents were found to answer this question. " +
	"Try ingesting more documents or rephrasing the query."

var citationMarker = regexp.MustCompile(`\[S(\d+)\]`)

// Synthesizer turns a query plus retrieved chunks into a grounded answer
// with citations back to the source chunks.
type Synthesizer struct {
	provider llm.Provider
	policy   retry.Policy
}

func New(provider llm.Provider, policy retry.Policy) *Synthesizer {
	return &Synthesizer{
		provider: provider,
		policy:   policy,
	}
}

// Source pairs a retrieved chunk with the filename of its document, needed
// for citation rendering. The index stores document ids only.
type Source struct {
	Chunk    *entity.ScoredChunk
	Filename string
}

// Synthesize answers the query strictly from the supplied sources. Empty
// sources short-circuit to the canned insufficient-context answer.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, sources []Source) (*entity.Answer, error) {
	if len(sources) == 0 {
		return &entity.Answer{
			Text:      InsufficientContextAnswer,
			Citations: []entity.Citation{},
			Grounded:  false,
			Model:     s.provider.Model(),
		}, nil
	}

	prompt := s.buildGroundedPrompt(query, sources)

	text, err := retry.Do(ctx, s.policy, func(ctx context.Context) (string, error) {
		return s.provider.Chat(ctx, []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationUnavailable, err)
	}

	return &entity.Answer{
		Text:      text,
		Citations: extractCitations(text, sources),
		Grounded:  true,
		Model:     s.provider.Model(),
	}, nil
}

const systemPrompt = "You are a document question-answering assistant. " +
	"Answer strictly from the numbered sources provided. " +
	"Cite every claim with its source marker, e.g. [S1] or [S2]. " +
	"If the sources do not contain the answer, say so instead of guessing."

func (s *Synthesizer) buildGroundedPrompt(query string, sources []Source) string {
	var b strings.Builder

	b.WriteString("Sources:\n\n")
	for i, src := range sources {
		b.WriteString(fmt.Sprintf("[S%d] %s (%s)\n", i+1, src.Filename, src.Chunk.Chunk.Locator.String()))
		b.WriteString(src.Chunk.Chunk.Text)
		b.WriteString("\n---\n")
	}

	b.WriteString("\nQuestion: ")
	b.WriteString(query)
	b.WriteString("\n\nAnswer based only on the sources above, citing each claim with its [S#] marker.")
	return b.String()
}

// extractCitations maps [S#] markers back to chunks, ordered by first
// appearance in the answer. An answer with no markers cites every source in
// rank order; the model ignored the instruction but the grounding set is
// still known.
func extractCitations(answer string, sources []Source) []entity.Citation {
	matches := citationMarker.FindAllStringSubmatch(answer, -1)

	var ordered []Source
	seen := make(map[int]bool)
	for _, m := range matches {
		n, err := strconv.Atoi(m[1])
		if err != nil || n < 1 || n > len(sources) {
			continue
		}
		if seen[n] {
			continue
		}
		seen[n] = true
		ordered = append(ordered, sources[n-1])
	}

	if len(ordered) == 0 {
		ordered = sources
	}

	citations := make([]entity.Citation, len(ordered))
	for i, src := range ordered {
		citations[i] = entity.Citation{
			ChunkId:    src.Chunk.Chunk.Id,
			DocumentId: src.Chunk.Chunk.DocumentId,
			Filename:   src.Filename,
			Locator:    src.Chunk.Chunk.Locator,
		}
	}
	return citations
}
