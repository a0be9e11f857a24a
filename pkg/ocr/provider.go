package ocr

import "context"

// Result is the recognized text of one image plus the provider's confidence
// in it, in [0, 1].
type Result struct {
	Text       string
	Confidence float64
}

// Provider is the OCR collaborator for image-based content.
type Provider interface {
	Recognize(ctx context.Context, image []byte) (*Result, error)
}
