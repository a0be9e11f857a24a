package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/internal/repository/specification"
	"ai-docqa-be/internal/repository/unitofwork"
	"ai-docqa-be/pkg/llm"

	"github.com/google/uuid"
)

// In-memory repository fakes. They interpret the specification values the
// services actually use (ByID, ByDocumentId, OrderBy) and ignore the rest.

type fakeDocumentRepo struct {
	mu      sync.Mutex
	docs    map[uuid.UUID]*entity.Document
	history []entity.IngestStatus // every status written through Update, in order
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{docs: make(map[uuid.UUID]*entity.Document)}
}

func (r *fakeDocumentRepo) Create(ctx context.Context, d *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *d
	copied.CreatedAt = time.Now()
	r.docs[d.Id] = &copied
	return nil
}

func (r *fakeDocumentRepo) Update(ctx context.Context, d *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *d
	r.docs[d.Id] = &copied
	r.history = append(r.history, d.Status)
	return nil
}

func (r *fakeDocumentRepo) statusHistory() []entity.IngestStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]entity.IngestStatus(nil), r.history...)
}

func (r *fakeDocumentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return contract.ErrDocumentNotFound
	}
	delete(r.docs, id)
	return nil
}

func (r *fakeDocumentRepo) FindById(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d, ok := r.docs[id]
	if !ok {
		return nil, contract.ErrDocumentNotFound
	}
	copied := *d
	return &copied, nil
}

func (r *fakeDocumentRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Document, error) {
	all, _ := r.FindAll(ctx, specs...)
	if len(all) == 0 {
		return nil, nil
	}
	return all[0], nil
}

func (r *fakeDocumentRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Document
	for _, d := range r.docs {
		copied := *d
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeDocumentRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, d := range r.docs {
		if docMatches(d, specs) {
			count++
		}
	}
	return count, nil
}

func docMatches(d *entity.Document, specs []specification.Specification) bool {
	for _, spec := range specs {
		if s, ok := spec.(specification.ByStatus); ok && string(d.Status) != s.Status {
			return false
		}
	}
	return true
}

type fakeChunkRepo struct {
	mu     sync.Mutex
	chunks []*entity.ChunkEmbedding
	buried []*entity.ChunkEmbedding // soft-deleted rows, primary keys still taken
}

func (r *fakeChunkRepo) CreateBulk(ctx context.Context, embeddings []*entity.ChunkEmbedding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	taken := make(map[uuid.UUID]bool, len(r.chunks)+len(r.buried))
	for _, c := range r.chunks {
		taken[c.Id] = true
	}
	for _, c := range r.buried {
		taken[c.Id] = true
	}
	for _, e := range embeddings {
		if taken[e.Id] {
			return fmt.Errorf(`duplicate key value violates unique constraint "chunk_embeddings_pkey"`)
		}
		taken[e.Id] = true
	}
	r.chunks = append(r.chunks, embeddings...)
	return nil
}

func (r *fakeChunkRepo) DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.chunks[:0]
	for _, c := range r.chunks {
		if c.DocumentId == documentId {
			r.buried = append(r.buried, c)
			continue
		}
		kept = append(kept, c)
	}
	r.chunks = kept
	return nil
}

func (r *fakeChunkRepo) DeleteByDocumentIdUnscoped(ctx context.Context, documentId uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.chunks[:0]
	for _, c := range r.chunks {
		if c.DocumentId != documentId {
			kept = append(kept, c)
		}
	}
	r.chunks = kept
	keptBuried := r.buried[:0]
	for _, c := range r.buried {
		if c.DocumentId != documentId {
			keptBuried = append(keptBuried, c)
		}
	}
	r.buried = keptBuried
	return nil
}

func (r *fakeChunkRepo) DeleteAllUnscoped(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = nil
	r.buried = nil
	return nil
}

func (r *fakeChunkRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChunkEmbedding, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.ChunkEmbedding
	for _, c := range r.chunks {
		if matches(c, specs) {
			out = append(out, c)
		}
	}
	return out, nil
}

func matches(c *entity.ChunkEmbedding, specs []specification.Specification) bool {
	for _, s := range specs {
		switch spec := s.(type) {
		case specification.ByID:
			if c.Id != spec.ID {
				return false
			}
		case specification.ByDocumentId:
			if c.DocumentId != spec.DocumentId {
				return false
			}
		case specification.ByModelVersion:
			if c.ModelVersion != spec.ModelVersion {
				return false
			}
		}
	}
	return true
}

func (r *fakeChunkRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, c := range r.chunks {
		if matches(c, specs) {
			count++
		}
	}
	return count, nil
}

func (r *fakeChunkRepo) SearchSimilar(ctx context.Context, embedding []float32, limit int, threshold float64, modelVersion string) ([]*entity.ScoredChunk, error) {
	return nil, nil
}

func (r *fakeChunkRepo) ScanAll(ctx context.Context, batchSize int, fn func(batch []*entity.ChunkEmbedding) error) error {
	r.mu.Lock()
	chunks := append([]*entity.ChunkEmbedding(nil), r.chunks...)
	r.mu.Unlock()
	return fn(chunks)
}

type fakeUow struct {
	docs   *fakeDocumentRepo
	chunks *fakeChunkRepo
	meta   contract.IndexMetaRepository
}

func (u *fakeUow) Begin(ctx context.Context) error { return nil }
func (u *fakeUow) Commit() error                   { return nil }
func (u *fakeUow) Rollback() error                 { return nil }

func (u *fakeUow) DocumentRepository() contract.DocumentRepository { return u.docs }

func (u *fakeUow) ChunkEmbeddingRepository() contract.ChunkEmbeddingRepository { return u.chunks }

func (u *fakeUow) IndexMetaRepository() contract.IndexMetaRepository { return u.meta }

type fakeFactory struct {
	uow *fakeUow
}

func (f *fakeFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork { return f.uow }

// Shared provider fakes.

type fakeEmbedProvider struct{}

func (fakeEmbedProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		switch {
		case strings.Contains(t, "cats"):
			out[i] = []float32{1, 0, 0}
		case strings.Contains(t, "dogs"):
			out[i] = []float32{0, 1, 0}
		default:
			out[i] = []float32{0, 0, 1}
		}
	}
	return out, nil
}

func (fakeEmbedProvider) ModelVersion() string { return "svc-test-v1" }
func (fakeEmbedProvider) Dimensions() int      { return 3 }

type fakeLLM struct {
	response string
	err      error
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.response, nil
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.Chat(ctx, nil)
}

func (f *fakeLLM) Model() string { return "fake-llm" }

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{}) {}
func (nopLogger) Info(string, string, map[string]interface{})  {}
func (nopLogger) Warn(string, string, map[string]interface{})  {}
func (nopLogger) Error(string, string, map[string]interface{}) {}
func (nopLogger) Sync() error                                  { return nil }

func TestSpecificationMatching(t *testing.T) {
	docId := uuid.New()
	chunk := &entity.ChunkEmbedding{
		Chunk: entity.Chunk{Id: uuid.New(), DocumentId: docId},
	}

	if !matches(chunk, []specification.Specification{specification.ByDocumentId{DocumentId: docId}}) {
		t.Error("expected chunk to match its own document id")
	}
	if matches(chunk, []specification.Specification{specification.ByDocumentId{DocumentId: uuid.New()}}) {
		t.Error("expected chunk not to match a different document id")
	}
}
