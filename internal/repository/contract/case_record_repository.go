package contract

import (
	"context"

	"derm-triage-be/internal/entity"

	"github.com/google/uuid"
)

type CaseRecordRepository interface {
	Create(ctx context.Context, record *entity.CaseRecord) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.CaseRecord, error)
	FindBySessionId(ctx context.Context, sessionId string) (*entity.CaseRecord, error)
	FindEscalated(ctx context.Context, limit, offset int) ([]*entity.CaseRecord, int64, error)
}
