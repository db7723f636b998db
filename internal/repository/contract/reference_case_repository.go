package contract

import (
	"context"

	"derm-triage-be/internal/entity"
)

type ReferenceCaseRepository interface {
	Create(ctx context.Context, ref *entity.ReferenceCase) error
	CreateBulk(ctx context.Context, refs []*entity.ReferenceCase) error
	FindAll(ctx context.Context) ([]*entity.ReferenceCase, error)
	Count(ctx context.Context) (int64, error)
}
