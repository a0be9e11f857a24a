package extractor

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"ai-docqa-be/internal/entity"
)

// TextHandler extracts text-native documents. Extraction is deterministic
// and preserves reading order. Form feeds (\f) mark page boundaries, so a
// plain single-page file yields one segment for page 1.
type TextHandler struct{}

var _ Handler = TextHandler{}

func NewTextHandler() TextHandler {
	return TextHandler{}
}

func (TextHandler) Format() entity.DocumentFormat {
	return entity.FormatText
}

func (TextHandler) Extract(_ context.Context, raw []byte) ([]entity.Segment, error) {
	if !utf8.Valid(raw) {
		return nil, fmt.Errorf("%w: content is not valid UTF-8", ErrExtractionFailed)
	}

	pages := strings.Split(string(raw), "\f")
	segments := make([]entity.Segment, 0, len(pages))
	for i, page := range pages {
		page = strings.TrimRight(page, "\r\n")
		if page == "" {
			continue
		}
		segments = append(segments, entity.Segment{
			Text: page,
			Locator: entity.SourceLocator{
				Kind:  entity.LocatorPage,
				Start: i + 1,
				End:   i + 1,
			},
			Confidence: 1.0,
		})
	}
	return segments, nil
}
