package entity

import "time"

// IndexMeta describes the state of the vector index as a whole. Generation
// increases on every mutation so cached answers can detect staleness.
type IndexMeta struct {
	ModelVersion string
	Dimensions   int
	Generation   uint64
	UpdatedAt    time.Time
}
