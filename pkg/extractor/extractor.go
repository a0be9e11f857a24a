package extractor

import (
	"context"
	"errors"
	"fmt"

	"ai-docqa-be/internal/entity"
)

// ErrUnsupportedFormat is returned when the declared format has no handler.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// ErrExtractionFailed marks a per-document parser failure. The pipeline
// marks the document failed and keeps processing other documents.
var ErrExtractionFailed = errors.New("extraction failed")

// Handler extracts text segments from one document format.
type Handler interface {
	Format() entity.DocumentFormat
	Extract(ctx context.Context, raw []byte) ([]entity.Segment, error)
}

// Registry dispatches on the declared format tag. The format set is closed:
// {text, spreadsheet, image}, one handler per variant.
type Registry struct {
	handlers map[entity.DocumentFormat]Handler
}

func NewRegistry(handlers ...Handler) *Registry {
	r := &Registry{handlers: make(map[entity.DocumentFormat]Handler, len(handlers))}
	for _, h := range handlers {
		r.handlers[h.Format()] = h
	}
	return r
}

// Extract converts raw bytes into ordered segments. Low-confidence OCR
// segments are returned flagged, never dropped.
func (r *Registry) Extract(ctx context.Context, raw []byte, format entity.DocumentFormat) ([]entity.Segment, error) {
	handler, ok := r.handlers[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}

	segments, err := handler.Extract(ctx, raw)
	if err != nil {
		if errors.Is(err, ErrExtractionFailed) || errors.Is(err, ErrUnsupportedFormat) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrExtractionFailed, err)
	}
	return segments, nil
}
