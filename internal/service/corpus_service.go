package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"derm-triage-be/internal/entity"
	"derm-triage-be/internal/pkg/logger"
	"derm-triage-be/internal/repository/contract"
	"derm-triage-be/pkg/vectorindex"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

type ICorpusService interface {
	Load(ctx context.Context) (int, error)
}

// corpusService seeds the in-memory vector index with the reference
// dermatology corpus. The database is the source of truth when configured;
// otherwise a JSON snapshot file is used.
type corpusService struct {
	index         *vectorindex.Index
	referenceRepo contract.ReferenceCaseRepository // nil when no DB is configured
	corpusPath    string
	logger        logger.ILogger
}

func NewCorpusService(
	index *vectorindex.Index,
	referenceRepo contract.ReferenceCaseRepository,
	corpusPath string,
	log logger.ILogger,
) ICorpusService {
	return &corpusService{
		index:         index,
		referenceRepo: referenceRepo,
		corpusPath:    corpusPath,
		logger:        log,
	}
}

func (s *corpusService) Load(ctx context.Context) (int, error) {
	if s.referenceRepo != nil {
		if err := s.seedIfEmpty(ctx); err != nil {
			s.logger.Warn("CorpusService", "Failed to seed reference corpus from file", map[string]interface{}{
				"path":  s.corpusPath,
				"error": err.Error(),
			})
		}
		return s.loadFromDatabase(ctx)
	}
	if s.corpusPath != "" {
		return s.loadFromFile()
	}

	s.logger.Warn("CorpusService", "No corpus source configured, starting with an empty index", nil)
	return 0, nil
}

// seedIfEmpty imports the JSON snapshot into an empty reference table, so a
// fresh deployment starts with a populated corpus.
func (s *corpusService) seedIfEmpty(ctx context.Context) error {
	if s.corpusPath == "" {
		return nil
	}

	count, err := s.referenceRepo.Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	entries, err := s.readCorpusFile()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	refs := make([]*entity.ReferenceCase, 0, len(entries))
	now := time.Now()
	for _, e := range entries {
		metadataJson, err := json.Marshal(e.Metadata)
		if err != nil {
			return err
		}
		refs = append(refs, &entity.ReferenceCase{
			Id:        uuid.New(),
			RecordId:  e.RecordId,
			Diagnosis: e.Diagnosis,
			IcdCode:   e.IcdCode,
			Embedding: pgvector.NewVector(e.Embedding),
			Metadata:  metadataJson,
			CreatedAt: now,
		})
	}

	if err := s.referenceRepo.CreateBulk(ctx, refs); err != nil {
		return err
	}

	s.logger.Info("CorpusService", "Seeded reference corpus from file", map[string]interface{}{
		"path":    s.corpusPath,
		"records": len(refs),
	})
	return nil
}

func (s *corpusService) loadFromDatabase(ctx context.Context) (int, error) {
	refs, err := s.referenceRepo.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load reference corpus from database: %w", err)
	}

	records := make([]vectorindex.Record, 0, len(refs))
	for _, ref := range refs {
		metadata := map[string]interface{}{
			"diagnosis": ref.Diagnosis,
			"icd_code":  ref.IcdCode,
		}
		if len(ref.Metadata) > 0 {
			var extra map[string]interface{}
			if err := json.Unmarshal(ref.Metadata, &extra); err == nil {
				for k, v := range extra {
					metadata[k] = v
				}
			}
		}
		records = append(records, vectorindex.Record{
			RecordID: ref.RecordId,
			Vector:   ref.Embedding.Slice(),
			Metadata: metadata,
		})
	}

	if err := s.index.Replace(records); err != nil {
		return 0, fmt.Errorf("failed to build index from database corpus: %w", err)
	}

	s.logger.Info("CorpusService", "Reference corpus loaded from database", map[string]interface{}{
		"records": len(records),
	})
	return len(records), nil
}

// corpusFileRecord is one entry of the JSON snapshot corpus.
type corpusFileRecord struct {
	RecordId  string                 `json:"record_id"`
	Diagnosis string                 `json:"diagnosis"`
	IcdCode   string                 `json:"icd_code"`
	Embedding []float32              `json:"embedding"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

func (s *corpusService) readCorpusFile() ([]corpusFileRecord, error) {
	data, err := os.ReadFile(s.corpusPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus file %s: %w", s.corpusPath, err)
	}

	var entries []corpusFileRecord
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse corpus file %s: %w", s.corpusPath, err)
	}
	return entries, nil
}

func (s *corpusService) loadFromFile() (int, error) {
	entries, err := s.readCorpusFile()
	if err != nil {
		return 0, err
	}

	records := make([]vectorindex.Record, 0, len(entries))
	for _, e := range entries {
		metadata := map[string]interface{}{
			"diagnosis": e.Diagnosis,
			"icd_code":  e.IcdCode,
		}
		for k, v := range e.Metadata {
			metadata[k] = v
		}
		records = append(records, vectorindex.Record{
			RecordID: e.RecordId,
			Vector:   e.Embedding,
			Metadata: metadata,
		})
	}

	if err := s.index.Replace(records); err != nil {
		return 0, fmt.Errorf("failed to build index from corpus file: %w", err)
	}

	s.logger.Info("CorpusService", "Reference corpus loaded from file", map[string]interface{}{
		"path":    s.corpusPath,
		"records": len(records),
	})
	return len(records), nil
}
