package contract

import (
	"context"

	"ai-docqa-be/internal/entity"
)

type IndexMetaRepository interface {
	// Get returns the singleton metadata row, creating it with the given
	// defaults when it does not exist yet.
	Get(ctx context.Context) (*entity.IndexMeta, error)
	// BumpGeneration increments the mutation counter and returns the new value.
	BumpGeneration(ctx context.Context) (uint64, error)
	// SetModelVersion records the embedding model the index was built with.
	SetModelVersion(ctx context.Context, modelVersion string, dimensions int) error
}
