package unitofwork

import (
	"context"

	"ai-docqa-be/internal/repository/contract"
	"ai-docqa-be/internal/repository/implementation"

	"gorm.io/gorm"
)

type unitOfWork struct {
	db *gorm.DB
	tx *gorm.DB // nil outside Begin/Commit
}

func NewUnitOfWork(db *gorm.DB) UnitOfWork {
	return &unitOfWork{db: db}
}

// conn returns the active transaction when one is open, so repositories
// minted during a transaction participate in it.
func (u *unitOfWork) conn() *gorm.DB {
	if u.tx != nil {
		return u.tx
	}
	return u.db
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return ErrTransactionActive
	}
	u.tx = u.db.WithContext(ctx).Begin()
	return u.tx.Error
}

func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return ErrNoTransaction
	}
	err := u.tx.Commit().Error
	u.tx = nil
	return err
}

func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		return ErrNoTransaction
	}
	err := u.tx.Rollback().Error
	u.tx = nil
	return err
}

func (u *unitOfWork) DocumentRepository() contract.DocumentRepository {
	return implementation.NewDocumentRepository(u.conn())
}

func (u *unitOfWork) ChunkEmbeddingRepository() contract.ChunkEmbeddingRepository {
	return implementation.NewChunkEmbeddingRepository(u.conn())
}

func (u *unitOfWork) IndexMetaRepository() contract.IndexMetaRepository {
	return implementation.NewIndexMetaRepository(u.conn())
}

type repositoryFactory struct {
	db *gorm.DB
}

func NewRepositoryFactory(db *gorm.DB) RepositoryFactory {
	return &repositoryFactory{db: db}
}

func (f *repositoryFactory) NewUnitOfWork(ctx context.Context) UnitOfWork {
	return NewUnitOfWork(f.db)
}
