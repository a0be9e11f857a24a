package entity

// Segment is a unit of extracted text with its source locator. For image
// formats Confidence carries the OCR confidence; segments below the
// configured threshold are flagged LowConfidence but still returned so
// downstream consumers can warn instead of silently losing content.
type Segment struct {
	Text          string
	Locator       SourceLocator
	Confidence    float64
	LowConfidence bool
}
