package mapper

import (
	"encoding/json"

	"derm-triage-be/internal/dto"
	"derm-triage-be/internal/entity"
	"derm-triage-be/pkg/store"

	"github.com/google/uuid"
)

type TriageMapper struct{}

func NewTriageMapper() *TriageMapper {
	return &TriageMapper{}
}

func (m *TriageMapper) ToSessionSnapshot(s *store.Session) *dto.SessionSnapshotResponse {
	if s == nil {
		return nil
	}

	snapshot := &dto.SessionSnapshotResponse{
		Id:               s.ID,
		Stage:            string(s.Stage),
		Language:         s.Language,
		Consent:          string(s.Consent),
		TurnCount:        len(s.Transcript),
		PatientTurnCount: s.PatientTurns(),
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
	if s.Escalation != nil && s.Escalation.Outcome == store.OutcomeEscalate {
		snapshot.Escalated = true
		snapshot.EscalationReason = s.Escalation.Reason
	}
	return snapshot
}

func (m *TriageMapper) ToCaseRecordResponse(r *store.CaseRecord) *dto.CaseRecordResponse {
	if r == nil {
		return nil
	}

	transcript := make([]dto.TranscriptTurnDTO, len(r.Transcript))
	for i, turn := range r.Transcript {
		transcript[i] = dto.TranscriptTurnDTO{
			Speaker: string(turn.Speaker),
			Text:    turn.Text,
			At:      turn.At,
		}
	}

	hits := make([]dto.CaseHitDTO, len(r.Hits))
	for i, hit := range r.Hits {
		hits[i] = dto.CaseHitDTO{
			RecordId:  hit.RecordID,
			Score:     hit.Score,
			Diagnosis: metadataString(hit.Metadata, "diagnosis"),
			IcdCode:   metadataString(hit.Metadata, "icd_code"),
		}
	}

	resp := &dto.CaseRecordResponse{
		CaseId:      r.CaseID,
		SessionId:   r.SessionID,
		Language:    r.Language,
		Transcript:  transcript,
		Hits:        hits,
		Degraded:    r.Degraded,
		NoteText:    r.NoteText,
		Explanation: r.Explanation,
		Outcome:     string(store.OutcomeContinue),
		Disclaimer:  r.Disclaimer,
		FinalizedAt: r.FinalizedAt,
	}
	if r.Escalation != nil {
		resp.Outcome = string(r.Escalation.Outcome)
		if r.Escalation.Outcome == store.OutcomeEscalate {
			resp.EscalationReason = r.Escalation.Reason
		}
	}
	return resp
}

// ToCaseRecordEntity converts the in-memory record into its persistence shape.
// Transcript and hits are stored as JSON documents.
func (m *TriageMapper) ToCaseRecordEntity(r *store.CaseRecord) (*entity.CaseRecord, error) {
	if r == nil {
		return nil, nil
	}

	transcriptJson, err := json.Marshal(r.Transcript)
	if err != nil {
		return nil, err
	}
	hitsJson, err := json.Marshal(r.Hits)
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(r.CaseID)
	if err != nil {
		id = uuid.New()
	}

	e := &entity.CaseRecord{
		Id:          id,
		SessionId:   r.SessionID,
		Language:    r.Language,
		Transcript:  transcriptJson,
		Hits:        hitsJson,
		Degraded:    r.Degraded,
		NoteText:    r.NoteText,
		Explanation: r.Explanation,
		Outcome:     string(store.OutcomeContinue),
		Disclaimer:  r.Disclaimer,
		FinalizedAt: r.FinalizedAt,
	}
	if r.Escalation != nil {
		e.Outcome = string(r.Escalation.Outcome)
		e.Reason = r.Escalation.Reason
	}
	return e, nil
}

func (m *TriageMapper) ToCaseSummary(e *entity.CaseRecord) dto.CaseSummaryResponse {
	return dto.CaseSummaryResponse{
		CaseId:           e.Id.String(),
		SessionId:        e.SessionId,
		Language:         e.Language,
		Outcome:          e.Outcome,
		EscalationReason: e.Reason,
		Degraded:         e.Degraded,
		FinalizedAt:      e.FinalizedAt,
	}
}

// ToCaseDetail rehydrates a persisted case record into the API shape.
func (m *TriageMapper) ToCaseDetail(e *entity.CaseRecord) (*dto.CaseRecordResponse, error) {
	var transcript []dto.TranscriptTurnDTO
	if len(e.Transcript) > 0 {
		if err := json.Unmarshal(e.Transcript, &transcript); err != nil {
			return nil, err
		}
	}

	var hits []store.CaseHit
	if len(e.Hits) > 0 {
		if err := json.Unmarshal(e.Hits, &hits); err != nil {
			return nil, err
		}
	}
	hitDTOs := make([]dto.CaseHitDTO, len(hits))
	for i, hit := range hits {
		hitDTOs[i] = dto.CaseHitDTO{
			RecordId:  hit.RecordID,
			Score:     hit.Score,
			Diagnosis: metadataString(hit.Metadata, "diagnosis"),
			IcdCode:   metadataString(hit.Metadata, "icd_code"),
		}
	}

	return &dto.CaseRecordResponse{
		CaseId:           e.Id.String(),
		SessionId:        e.SessionId,
		Language:         e.Language,
		Transcript:       transcript,
		Hits:             hitDTOs,
		Degraded:         e.Degraded,
		NoteText:         e.NoteText,
		Explanation:      e.Explanation,
		Outcome:          e.Outcome,
		EscalationReason: e.Reason,
		Disclaimer:       e.Disclaimer,
		FinalizedAt:      e.FinalizedAt,
	}, nil
}

func metadataString(meta map[string]interface{}, key string) string {
	if meta == nil {
		return ""
	}
	if v, ok := meta[key].(string); ok {
		return v
	}
	return ""
}
