package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-docqa-be/pkg/retry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider returns constant-per-text vectors and counts provider calls.
type fakeProvider struct {
	version string
	dims    int
	calls   int
	batches [][]string
	fail    error
}

func (f *fakeProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.calls++
	f.batches = append(f.batches, texts)
	if f.fail != nil {
		return nil, f.fail
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, f.dims)
		for j := range v {
			v[j] = float32(len(text)+j) / 100
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (f *fakeProvider) ModelVersion() string { return f.version }
func (f *fakeProvider) Dimensions() int      { return f.dims }

func testPolicy() retry.Policy {
	return retry.Policy{MaxAttempts: 3, InitialInterval: time.Millisecond, MaxInterval: time.Millisecond}
}

func TestEmbedTextsBatches(t *testing.T) {
	provider := &fakeProvider{version: "v1", dims: 4}
	svc := NewService(provider, nil, nil, testPolicy(), 2)

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := svc.EmbedTexts(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 5)
	assert.Equal(t, 3, provider.calls, "5 texts at batch size 2 = 3 provider calls")
}

func TestEmbedTextsUsesContentCache(t *testing.T) {
	provider := &fakeProvider{version: "v1", dims: 4}
	cache := NewContentCache(time.Hour)
	svc := NewService(provider, cache, nil, testPolicy(), 10)

	_, err := svc.EmbedTexts(context.Background(), []string{"same text", "other text"})
	require.NoError(t, err)
	require.Equal(t, 1, provider.calls)

	// Re-ingesting unchanged content must not call the provider again.
	vectors, err := svc.EmbedTexts(context.Background(), []string{"same text", "other text"})
	require.NoError(t, err)
	assert.Equal(t, 1, provider.calls)
	assert.Len(t, vectors, 2)
}

func TestEmbedTextsCacheIsPerModelVersion(t *testing.T) {
	cache := NewContentCache(time.Hour)

	v1 := &fakeProvider{version: "v1", dims: 4}
	svc1 := NewService(v1, cache, nil, testPolicy(), 10)
	_, err := svc1.EmbedTexts(context.Background(), []string{"hello"})
	require.NoError(t, err)

	v2 := &fakeProvider{version: "v2", dims: 4}
	svc2 := NewService(v2, cache, nil, testPolicy(), 10)
	_, err = svc2.EmbedTexts(context.Background(), []string{"hello"})
	require.NoError(t, err)

	assert.Equal(t, 1, v1.calls)
	assert.Equal(t, 1, v2.calls, "a model version change invalidates cached vectors")
}

func TestEmbedTextsFailsWithEmbeddingUnavailable(t *testing.T) {
	provider := &fakeProvider{
		version: "v1",
		dims:    4,
		fail:    &retry.HTTPError{Status: 401, Body: "unauthorized"},
	}
	svc := NewService(provider, nil, nil, testPolicy(), 10)

	_, err := svc.EmbedTexts(context.Background(), []string{"doomed"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrEmbeddingUnavailable))
	assert.Equal(t, 3, provider.calls, "retry ceiling of 3 attempts")
}

func TestEmbedQueryReturnsSingleVector(t *testing.T) {
	provider := &fakeProvider{version: "v1", dims: 4}
	svc := NewService(provider, nil, nil, testPolicy(), 10)

	vec, err := svc.EmbedQuery(context.Background(), "what is this about?")
	require.NoError(t, err)
	assert.Len(t, vec, 4)
}
