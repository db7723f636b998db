package service

import (
	"context"

	"derm-triage-be/internal/dto"
	"derm-triage-be/internal/mapper"
	"derm-triage-be/internal/pkg/apperr"
	"derm-triage-be/internal/pkg/logger"
	"derm-triage-be/internal/repository/contract"

	"github.com/google/uuid"
)

type ICaseService interface {
	GetCase(ctx context.Context, caseId string) (*dto.CaseRecordResponse, error)
	GetCaseBySession(ctx context.Context, sessionId string) (*dto.CaseRecordResponse, error)
	ListEscalated(ctx context.Context, limit, offset int) (*dto.EscalatedCasesResponse, error)
}

// caseService is the clinician-facing read side of the case archive.
type caseService struct {
	caseRepo contract.CaseRecordRepository
	mapper   *mapper.TriageMapper
	logger   logger.ILogger
}

func NewCaseService(caseRepo contract.CaseRecordRepository, log logger.ILogger) ICaseService {
	return &caseService{
		caseRepo: caseRepo,
		mapper:   mapper.NewTriageMapper(),
		logger:   log,
	}
}

func (s *caseService) GetCase(ctx context.Context, caseId string) (*dto.CaseRecordResponse, error) {
	id, err := uuid.Parse(caseId)
	if err != nil {
		return nil, apperr.New(apperr.CodeValidation, "case id is not a valid uuid")
	}

	rec, err := s.caseRepo.FindById(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to load case record", err)
	}
	if rec == nil {
		return nil, apperr.New(apperr.CodeSessionNotFound, "case record not found")
	}

	detail, err := s.mapper.ToCaseDetail(rec)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to decode case record", err)
	}
	return detail, nil
}

func (s *caseService) GetCaseBySession(ctx context.Context, sessionId string) (*dto.CaseRecordResponse, error) {
	rec, err := s.caseRepo.FindBySessionId(ctx, sessionId)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to load case record", err)
	}
	if rec == nil {
		return nil, apperr.New(apperr.CodeSessionNotFound, "no case record for session")
	}

	detail, err := s.mapper.ToCaseDetail(rec)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to decode case record", err)
	}
	return detail, nil
}

func (s *caseService) ListEscalated(ctx context.Context, limit, offset int) (*dto.EscalatedCasesResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	records, total, err := s.caseRepo.FindEscalated(ctx, limit, offset)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeInternal, "failed to list escalated cases", err)
	}

	items := make([]dto.CaseSummaryResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, s.mapper.ToCaseSummary(rec))
	}

	return &dto.EscalatedCasesResponse{
		Items:  items,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}
