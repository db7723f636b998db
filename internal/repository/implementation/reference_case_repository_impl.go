package implementation

import (
	"context"

	"derm-triage-be/internal/entity"
	"derm-triage-be/internal/repository/contract"

	"gorm.io/gorm"
)

type ReferenceCaseRepositoryImpl struct {
	db *gorm.DB
}

func NewReferenceCaseRepository(db *gorm.DB) contract.ReferenceCaseRepository {
	return &ReferenceCaseRepositoryImpl{db: db}
}

func (r *ReferenceCaseRepositoryImpl) Create(ctx context.Context, ref *entity.ReferenceCase) error {
	return r.db.WithContext(ctx).Create(ref).Error
}

func (r *ReferenceCaseRepositoryImpl) CreateBulk(ctx context.Context, refs []*entity.ReferenceCase) error {
	if len(refs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(refs, 100).Error
}

func (r *ReferenceCaseRepositoryImpl) FindAll(ctx context.Context) ([]*entity.ReferenceCase, error) {
	var refs []*entity.ReferenceCase
	if err := r.db.WithContext(ctx).Order("created_at ASC").Find(&refs).Error; err != nil {
		return nil, err
	}
	return refs, nil
}

func (r *ReferenceCaseRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&entity.ReferenceCase{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
