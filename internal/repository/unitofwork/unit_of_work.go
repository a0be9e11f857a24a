package unitofwork

import (
	"context"
	"errors"

	"ai-docqa-be/internal/repository/contract"
)

var (
	ErrTransactionActive = errors.New("transaction already started")
	ErrNoTransaction     = errors.New("no active transaction")
)

// UnitOfWork groups repository access over one connection. Begin/Commit
// scope the repositories to a shared transaction; outside of one they run
// against the pool directly.
type UnitOfWork interface {
	Begin(ctx context.Context) error
	Commit() error
	Rollback() error

	DocumentRepository() contract.DocumentRepository
	ChunkEmbeddingRepository() contract.ChunkEmbeddingRepository
	IndexMetaRepository() contract.IndexMetaRepository
}

// RepositoryFactory mints a unit of work per request or pipeline stage.
type RepositoryFactory interface {
	NewUnitOfWork(ctx context.Context) UnitOfWork
}
