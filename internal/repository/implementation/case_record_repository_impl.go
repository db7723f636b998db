package implementation

import (
	"context"
	"errors"

	"derm-triage-be/internal/entity"
	"derm-triage-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CaseRecordRepositoryImpl struct {
	db *gorm.DB
}

func NewCaseRecordRepository(db *gorm.DB) contract.CaseRecordRepository {
	return &CaseRecordRepositoryImpl{db: db}
}

func (r *CaseRecordRepositoryImpl) Create(ctx context.Context, record *entity.CaseRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *CaseRecordRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*entity.CaseRecord, error) {
	var rec entity.CaseRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *CaseRecordRepositoryImpl) FindBySessionId(ctx context.Context, sessionId string) (*entity.CaseRecord, error) {
	var rec entity.CaseRecord
	if err := r.db.WithContext(ctx).First(&rec, "session_id = ?", sessionId).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

func (r *CaseRecordRepositoryImpl) FindEscalated(ctx context.Context, limit, offset int) ([]*entity.CaseRecord, int64, error) {
	if limit <= 0 {
		limit = 20
	}

	var records []*entity.CaseRecord
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.CaseRecord{}).Where("outcome = ?", "ESCALATE")
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("finalized_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&records).Error
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}
