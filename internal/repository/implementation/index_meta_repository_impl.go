package implementation

import (
	"context"
	"errors"

	"ai-docqa-be/internal/entity"
	"ai-docqa-be/internal/model"
	"ai-docqa-be/internal/repository/contract"

	"gorm.io/gorm"
)

const indexMetaId = 1

type IndexMetaRepositoryImpl struct {
	db *gorm.DB
}

func NewIndexMetaRepository(db *gorm.DB) contract.IndexMetaRepository {
	return &IndexMetaRepositoryImpl{db: db}
}

func (r *IndexMetaRepositoryImpl) Get(ctx context.Context) (*entity.IndexMeta, error) {
	var m model.IndexMeta
	err := r.db.WithContext(ctx).First(&m, "id = ?", indexMetaId).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		m = model.IndexMeta{Id: indexMetaId}
		if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return &entity.IndexMeta{
		ModelVersion: m.ModelVersion,
		Dimensions:   m.Dimensions,
		Generation:   m.Generation,
		UpdatedAt:    m.UpdatedAt,
	}, nil
}

func (r *IndexMetaRepositoryImpl) BumpGeneration(ctx context.Context) (uint64, error) {
	if _, err := r.Get(ctx); err != nil {
		return 0, err
	}
	err := r.db.WithContext(ctx).
		Model(&model.IndexMeta{}).
		Where("id = ?", indexMetaId).
		UpdateColumn("generation", gorm.Expr("generation + 1")).Error
	if err != nil {
		return 0, err
	}
	var m model.IndexMeta
	if err := r.db.WithContext(ctx).First(&m, "id = ?", indexMetaId).Error; err != nil {
		return 0, err
	}
	return m.Generation, nil
}

func (r *IndexMetaRepositoryImpl) SetModelVersion(ctx context.Context, modelVersion string, dimensions int) error {
	if _, err := r.Get(ctx); err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&model.IndexMeta{}).
		Where("id = ?", indexMetaId).
		Updates(map[string]interface{}{
			"model_version": modelVersion,
			"dimensions":    dimensions,
		}).Error
}
