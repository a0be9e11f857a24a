package extractor

import (
	"context"
	"fmt"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/pkg/gate"
	"ai-docqa-be/pkg/ocr"
	"ai-docqa-be/pkg/retry"
)

// ImageHandler delegates image-based content to the OCR collaborator.
// Recognized text below MinConfidence is flagged low-confidence but still
// returned so the caller can warn the user instead of losing content.
type ImageHandler struct {
	provider      ocr.Provider
	gate          *gate.Gate
	policy        retry.Policy
	minConfidence float64
}

var _ Handler = &ImageHandler{}

func NewImageHandler(provider ocr.Provider, g *gate.Gate, policy retry.Policy, minConfidence float64) *ImageHandler {
	return &ImageHandler{
		provider:      provider,
		gate:          g,
		policy:        policy,
		minConfidence: minConfidence,
	}
}

func (*ImageHandler) Format() entity.DocumentFormat {
	return entity.FormatImage
}

func (h *ImageHandler) Extract(ctx context.Context, raw []byte) ([]entity.Segment, error) {
	if h.provider == nil {
		return nil, fmt.Errorf("%w: no OCR collaborator configured", ErrExtractionFailed)
	}

	result, err := retry.Do(ctx, h.policy, func(ctx context.Context) (*ocr.Result, error) {
		if h.gate != nil {
			if err := h.gate.Acquire(ctx); err != nil {
				return nil, err
			}
			defer h.gate.Release()
		}
		return h.provider.Recognize(ctx, raw)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: ocr: %w", ErrExtractionFailed, err)
	}

	return []entity.Segment{{
		Text: result.Text,
		Locator: entity.SourceLocator{
			Kind:  entity.LocatorPage,
			Start: 1,
			End:   1,
		},
		Confidence:    result.Confidence,
		LowConfidence: result.Confidence < h.minConfidence,
	}}, nil
}
