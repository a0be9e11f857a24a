package embedding

import (
	"context"
	"errors"
	"fmt"

	"ai-docqa-be/pkg/gate"
	"ai-docqa-be/pkg/retry"
)

// ErrEmbeddingUnavailable is returned once the retry ceiling against the
// embedding provider is exhausted. Ingestion of the affected document is
// marked failed; other documents are unaffected.
var ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

const DefaultBatchSize = 64

// Service fronts a Provider with batching, a content-addressed cache, a
// bounded-concurrency gate and the shared retry policy.
type Service struct {
	provider  Provider
	cache     *ContentCache
	gate      *gate.Gate
	policy    retry.Policy
	batchSize int
}

func NewService(provider Provider, cache *ContentCache, g *gate.Gate, policy retry.Policy, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Service{
		provider:  provider,
		cache:     cache,
		gate:      g,
		policy:    policy,
		batchSize: batchSize,
	}
}

func (s *Service) ModelVersion() string {
	return s.provider.ModelVersion()
}

func (s *Service) Dimensions() int {
	return s.provider.Dimensions()
}

// EmbedTexts returns one vector per input text, in input order. Cached
// vectors are reused; the rest go to the provider in batches of at most
// batchSize under the retry policy.
func (s *Service) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	version := s.provider.ModelVersion()
	vectors := make([][]float32, len(texts))

	var missing []int
	for i, text := range texts {
		if s.cache != nil {
			if vec, ok := s.cache.Get(text, version); ok {
				vectors[i] = vec
				continue
			}
		}
		missing = append(missing, i)
	}

	for lo := 0; lo < len(missing); lo += s.batchSize {
		hi := lo + s.batchSize
		if hi > len(missing) {
			hi = len(missing)
		}
		batchIdx := missing[lo:hi]
		batch := make([]string, len(batchIdx))
		for j, i := range batchIdx {
			batch[j] = texts[i]
		}

		embedded, err := s.callProvider(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEmbeddingUnavailable, err)
		}
		for j, i := range batchIdx {
			vectors[i] = embedded[j]
			if s.cache != nil {
				s.cache.Set(texts[i], version, embedded[j])
			}
		}
	}

	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (s *Service) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *Service) callProvider(ctx context.Context, batch []string) ([][]float32, error) {
	return retry.Do(ctx, s.policy, func(ctx context.Context) ([][]float32, error) {
		if s.gate != nil {
			if err := s.gate.Acquire(ctx); err != nil {
				return nil, err
			}
			defer s.gate.Release()
		}
		return s.provider.EmbedBatch(ctx, batch)
	})
}
