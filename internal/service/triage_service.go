package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"derm-triage-be/internal/config"
	"derm-triage-be/internal/constant"
	"derm-triage-be/internal/dto"
	"derm-triage-be/internal/mapper"
	"derm-triage-be/internal/pkg/apperr"
	"derm-triage-be/internal/pkg/logger"
	"derm-triage-be/internal/repository/contract"
	"derm-triage-be/internal/repository/memory"
	"derm-triage-be/pkg/embedding"
	"derm-triage-be/pkg/events"
	"derm-triage-be/pkg/llm"
	"derm-triage-be/pkg/retrieval"
	"derm-triage-be/pkg/store"
	"derm-triage-be/pkg/triage/escalation"
	"derm-triage-be/pkg/triage/note"
	"derm-triage-be/pkg/triage/state"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
)

// EventPublisher is the slice of the NATS publisher the triage flow needs.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type ITriageService interface {
	CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	HandleUtterance(ctx context.Context, sessionId string, req *dto.UtteranceRequest) (*dto.UtteranceResponse, error)
	RequestConsent(ctx context.Context, sessionId string) (*dto.StageResponse, error)
	RecordConsent(ctx context.Context, sessionId string, granted bool) (*dto.StageResponse, error)
	SubmitImage(ctx context.Context, sessionId string, image []byte) (*dto.StageResponse, error)
	Finalize(ctx context.Context, sessionId string) (*dto.CaseRecordResponse, error)
	GetSession(ctx context.Context, sessionId string) (*dto.SessionSnapshotResponse, error)
	DeleteSession(ctx context.Context, sessionId string) error
}

type triageService struct {
	sessions  *memory.SessionRepository
	stages    *state.Manager
	evaluator *escalation.Evaluator
	retriever *retrieval.Retriever
	assembler *note.Assembler
	embedder  embedding.Provider
	model     llm.LLMProvider
	mapper    *mapper.TriageMapper

	// Optional: nil when the backing system is not configured.
	caseRepo         contract.CaseRecordRepository
	eventPublisher   EventPublisher
	publisherService IPublisherService

	logger logger.ILogger

	topK       int
	minTurns   int
	timeout    time.Duration
	maxRetries int
}

func NewTriageService(
	sessions *memory.SessionRepository,
	stages *state.Manager,
	evaluator *escalation.Evaluator,
	retriever *retrieval.Retriever,
	assembler *note.Assembler,
	embedder embedding.Provider,
	model llm.LLMProvider,
	caseRepo contract.CaseRecordRepository,
	eventPublisher EventPublisher,
	publisherService IPublisherService,
	log logger.ILogger,
	cfg *config.Config,
) ITriageService {
	return &triageService{
		sessions:         sessions,
		stages:           stages,
		evaluator:        evaluator,
		retriever:        retriever,
		assembler:        assembler,
		embedder:         embedder,
		model:            model,
		mapper:           mapper.NewTriageMapper(),
		caseRepo:         caseRepo,
		eventPublisher:   eventPublisher,
		publisherService: publisherService,
		logger:           log,
		topK:             cfg.Retrieval.TopK,
		minTurns:         cfg.Triage.MinInterviewTurns,
		timeout:          cfg.Ai.RequestTimeout,
		maxRetries:       cfg.Ai.MaxRetries,
	}
}

func (s *triageService) CreateSession(ctx context.Context, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	language := "en"
	if req != nil && req.Language != "" {
		language = req.Language
	}

	now := time.Now()
	session := &store.Session{
		ID:        uuid.NewString(),
		Stage:     store.StageGreeting,
		Language:  language,
		Consent:   store.ConsentUnknown,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.sessions.Save(session)

	s.logger.Info("TriageService", "Session created", map[string]interface{}{
		"session_id": session.ID,
		"language":   language,
	})

	return &dto.CreateSessionResponse{
		Id:       session.ID,
		Stage:    string(session.Stage),
		Language: language,
	}, nil
}

func (s *triageService) HandleUtterance(ctx context.Context, sessionId string, req *dto.UtteranceRequest) (*dto.UtteranceResponse, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return nil, apperr.New(apperr.CodeValidation, "utterance text is empty")
	}

	unlock := s.sessions.Lock(sessionId)
	defer unlock()

	session, ok := s.sessions.Get(sessionId)
	if !ok {
		return nil, apperr.ErrSessionNotFound
	}
	if session.Stage == store.StageCompleted {
		return nil, apperr.New(apperr.CodeInvalidStageTransition, "session is already completed")
	}

	// Upstream speech recognition may only report the detected language with
	// the first utterance, after the session already exists.
	if session.Stage == store.StageGreeting && req.Language != "" {
		session.Language = req.Language
	}

	now := time.Now()
	session.AddTurn(store.SpeakerPatient, text, now)

	degraded := false
	var responseText string

	if session.Stage == store.StageEscalated {
		responseText = constant.EscalationResponse
	} else {
		decision := s.evaluator.Evaluate(session.Transcript)
		switch decision.Outcome {
		case store.OutcomeEscalate:
			s.stages.MarkEscalated(session, decision.Reason, now)
			responseText = constant.EscalationResponse
			s.publishEscalation(ctx, session, decision.Reason)
		case store.OutcomeDeEscalate:
			// Acted on once; afterwards the interview just continues.
			if session.Escalation == nil {
				session.Escalation = &store.EscalationDecision{
					Outcome: store.OutcomeDeEscalate,
					Reason:  decision.Reason,
					At:      now,
				}
				responseText = constant.DeEscalationResponse
			}
		}
	}

	if responseText == "" {
		var err error
		responseText, degraded, err = s.continueInterview(ctx, session, text)
		if err != nil {
			return nil, err
		}
	}

	session.AddTurn(store.SpeakerAssistant, responseText, time.Now())
	s.sessions.Save(session)

	return &dto.UtteranceResponse{
		SessionId:    session.ID,
		ResponseText: responseText,
		Stage:        string(session.Stage),
		Escalated:    session.Escalation != nil && session.Escalation.Outcome == store.OutcomeEscalate,
		Degraded:     degraded,
	}, nil
}

// continueInterview produces the assistant reply for a turn that did not
// trigger an escalation decision.
func (s *triageService) continueInterview(ctx context.Context, session *store.Session, text string) (string, bool, error) {
	switch session.Stage {
	case store.StageGreeting:
		if err := s.stages.Advance(session, store.StageInterview); err != nil {
			return "", false, s.transitionError(err)
		}
		return constant.GreetingResponse, false, nil

	case store.StageInterview:
		if session.PatientTurns() >= s.minTurns && session.Consent == store.ConsentUnknown {
			if err := s.stages.Advance(session, store.StageConsentPending); err != nil {
				return "", false, s.transitionError(err)
			}
			return constant.ConsentRequestResponse, false, nil
		}

		reply, err := s.generate(ctx, fmt.Sprintf(constant.FollowUpPromptTemplate, text))
		if err != nil {
			s.logger.Warn("TriageService", "Follow-up generation failed, using fallback", map[string]interface{}{
				"session_id": session.ID,
				"error":      err.Error(),
			})
			return constant.ModelFallbackResponse + "\n\n" + constant.InterviewDisclaimer, true, nil
		}
		return reply + "\n\n" + constant.InterviewDisclaimer, false, nil

	case store.StageConsentPending:
		granted, recognized := parseConsentAnswer(text)
		if !recognized {
			return constant.ConsentRequestResponse, false, nil
		}
		if err := s.applyConsent(session, granted); err != nil {
			return "", false, err
		}
		if granted {
			return constant.ConsentGrantedResponse, false, nil
		}
		return constant.ConsentDeniedResponse, false, nil

	case store.StageImageCapture:
		return constant.AwaitingImageResponse, false, nil

	case store.StageAnalysis:
		return constant.AnalysisCompleteResponse, false, nil

	case store.StageExplanation:
		if session.ExplanationDelivered {
			return constant.ExplanationDeliveredResponse, false, nil
		}
		session.ExplanationDelivered = true
		if session.Explanation == "" {
			return constant.ExplanationFallbackResponse + "\n\n" + constant.ExplanationDisclaimer, false, nil
		}
		return session.Explanation + "\n\n" + constant.ExplanationDisclaimer, false, nil
	}

	return "", false, apperr.New(apperr.CodeInvalidStageTransition,
		fmt.Sprintf("utterance not allowed in stage %s", session.Stage))
}

func (s *triageService) RequestConsent(ctx context.Context, sessionId string) (*dto.StageResponse, error) {
	unlock := s.sessions.Lock(sessionId)
	defer unlock()

	session, ok := s.sessions.Get(sessionId)
	if !ok {
		return nil, apperr.ErrSessionNotFound
	}

	switch session.Stage {
	case store.StageConsentPending:
		// Already asked. Re-asking is harmless.
	case store.StageInterview:
		if err := s.stages.Advance(session, store.StageConsentPending); err != nil {
			return nil, s.transitionError(err)
		}
	default:
		return nil, apperr.New(apperr.CodeInvalidStageTransition,
			fmt.Sprintf("consent cannot be requested in stage %s", session.Stage))
	}

	session.AddTurn(store.SpeakerAssistant, constant.ConsentRequestResponse, time.Now())
	s.sessions.Save(session)

	return &dto.StageResponse{
		SessionId:    session.ID,
		Stage:        string(session.Stage),
		Consent:      string(session.Consent),
		ResponseText: constant.ConsentRequestResponse,
	}, nil
}

func (s *triageService) RecordConsent(ctx context.Context, sessionId string, granted bool) (*dto.StageResponse, error) {
	unlock := s.sessions.Lock(sessionId)
	defer unlock()

	session, ok := s.sessions.Get(sessionId)
	if !ok {
		return nil, apperr.ErrSessionNotFound
	}
	if session.Stage != store.StageConsentPending {
		return nil, apperr.New(apperr.CodeInvalidStageTransition,
			fmt.Sprintf("consent cannot be recorded in stage %s", session.Stage))
	}

	if err := s.applyConsent(session, granted); err != nil {
		return nil, err
	}

	responseText := constant.ConsentGrantedResponse
	if !granted {
		responseText = constant.ConsentDeniedResponse
	}
	session.AddTurn(store.SpeakerAssistant, responseText, time.Now())
	s.sessions.Save(session)

	s.logger.Info("TriageService", "Consent recorded", map[string]interface{}{
		"session_id": session.ID,
		"granted":    granted,
	})

	return &dto.StageResponse{
		SessionId:    session.ID,
		Stage:        string(session.Stage),
		Consent:      string(session.Consent),
		ResponseText: responseText,
	}, nil
}

func (s *triageService) applyConsent(session *store.Session, granted bool) error {
	if granted {
		session.Consent = store.ConsentGranted
		if err := s.stages.Advance(session, store.StageImageCapture); err != nil {
			return s.transitionError(err)
		}
		return nil
	}
	session.Consent = store.ConsentDenied
	if err := s.stages.Advance(session, store.StageInterview); err != nil {
		return s.transitionError(err)
	}
	return nil
}

func (s *triageService) SubmitImage(ctx context.Context, sessionId string, image []byte) (*dto.StageResponse, error) {
	if len(image) == 0 {
		return nil, apperr.New(apperr.CodeValidation, "image payload is empty")
	}

	unlock := s.sessions.Lock(sessionId)
	defer unlock()

	session, ok := s.sessions.Get(sessionId)
	if !ok {
		return nil, apperr.ErrSessionNotFound
	}

	// Consent is checked before the stage: an image must never be processed
	// without a recorded grant, whatever state the session is in.
	if session.Consent != store.ConsentGranted {
		return nil, apperr.ErrConsentRequired
	}
	if session.Stage != store.StageImageCapture {
		return nil, apperr.New(apperr.CodeInvalidStageTransition,
			fmt.Sprintf("image cannot be submitted in stage %s", session.Stage))
	}

	vector, err := s.embedImage(ctx, image)
	if err != nil {
		// Stage is unchanged so the caller can retry the capture.
		return nil, err
	}
	session.ImageEmbedding = vector

	if err := s.stages.Advance(session, store.StageAnalysis); err != nil {
		return nil, s.transitionError(err)
	}

	if err := s.runAnalysis(ctx, session); err != nil {
		return nil, err
	}

	if err := s.stages.Advance(session, store.StageExplanation); err != nil {
		return nil, s.transitionError(err)
	}

	session.AddTurn(store.SpeakerAssistant, constant.AnalysisCompleteResponse, time.Now())
	s.sessions.Save(session)

	return &dto.StageResponse{
		SessionId:    session.ID,
		Stage:        string(session.Stage),
		Consent:      string(session.Consent),
		ResponseText: constant.AnalysisCompleteResponse,
	}, nil
}

// runAnalysis retrieves similar reference cases for the captured image and
// generates the clinical note and the patient explanation. Retrieval and
// model failures degrade the session instead of failing it.
func (s *triageService) runAnalysis(ctx context.Context, session *store.Session) error {
	result, err := s.retriever.QueryByImage(session.ImageEmbedding, s.topK)
	if err != nil {
		if !errors.Is(err, retrieval.ErrUnavailable) {
			return apperr.Wrap(apperr.CodeInternal, "retrieval query failed", err)
		}
		s.logger.Warn("TriageService", "Retrieval unavailable, continuing with empty context", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
		session.RetrievalContext = nil
	} else {
		session.RetrievalContext = result
	}

	notePrompt := fmt.Sprintf(constant.NotePromptTemplate,
		note.RenderTranscript(session.Transcript),
		note.RenderContext(session.RetrievalContext))
	noteText, err := s.generate(ctx, notePrompt)
	if err != nil {
		s.logger.Warn("TriageService", "Note generation failed, storing raw transcript", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
		noteText = "Automatic note generation unavailable. Raw transcript follows.\n\n" +
			note.RenderTranscript(session.Transcript)
	}
	session.NoteText = noteText

	explanation, err := s.generate(ctx, fmt.Sprintf(constant.ExplanationPromptTemplate, noteText))
	if err != nil {
		s.logger.Warn("TriageService", "Explanation generation failed, using fallback", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
		explanation = constant.ExplanationFallbackResponse
	}
	session.Explanation = explanation

	return nil
}

func (s *triageService) Finalize(ctx context.Context, sessionId string) (*dto.CaseRecordResponse, error) {
	unlock := s.sessions.Lock(sessionId)
	defer unlock()

	session, ok := s.sessions.Get(sessionId)
	if !ok {
		return nil, apperr.ErrSessionNotFound
	}

	switch session.Stage {
	case store.StageExplanation:
	case store.StageEscalated:
		// An escalated session skips analysis, so the reference context and
		// the physician note are built here from the transcript.
		s.prepareEscalatedCase(ctx, session)
	default:
		return nil, apperr.New(apperr.CodeIncompleteSession,
			fmt.Sprintf("cannot finalize from stage %s", session.Stage))
	}

	now := time.Now()
	record, err := s.assembler.Assemble(session, session.NoteText, session.Explanation, now)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeIncompleteSession, "case assembly failed", err)
	}

	if err := s.stages.Advance(session, store.StageCompleted); err != nil {
		return nil, s.transitionError(err)
	}
	s.sessions.Save(session)

	s.persistCaseRecord(ctx, record)
	s.publishFinalized(ctx, record)
	s.queueCaseIndexing(ctx, record)

	s.logger.Info("TriageService", "Session finalized", map[string]interface{}{
		"session_id": session.ID,
		"case_id":    record.CaseID,
		"degraded":   record.Degraded,
	})

	return s.mapper.ToCaseRecordResponse(record), nil
}

// prepareEscalatedCase fills in retrieval context and note text for a session
// that escalated before reaching analysis. Everything here is best effort:
// the physician gets the raw transcript if the model or index is down.
func (s *triageService) prepareEscalatedCase(ctx context.Context, session *store.Session) {
	if session.RetrievalContext == nil {
		if vector, err := s.embedText(ctx, note.RenderTranscript(session.Transcript)); err == nil {
			if result, err := s.retriever.QueryByText(vector, s.topK); err == nil {
				session.RetrievalContext = result
			} else {
				s.logger.Warn("TriageService", "Text retrieval failed for escalated case", map[string]interface{}{
					"session_id": session.ID,
					"error":      err.Error(),
				})
			}
		}
	}

	if session.NoteText == "" {
		notePrompt := fmt.Sprintf(constant.NotePromptTemplate,
			note.RenderTranscript(session.Transcript),
			note.RenderContext(session.RetrievalContext))
		noteText, err := s.generate(ctx, notePrompt)
		if err != nil {
			noteText = "Escalated before analysis. Raw transcript follows.\n\n" +
				note.RenderTranscript(session.Transcript)
		}
		session.NoteText = noteText
	}

	if session.Explanation == "" {
		session.Explanation = constant.EscalationResponse
	}
}

func (s *triageService) GetSession(ctx context.Context, sessionId string) (*dto.SessionSnapshotResponse, error) {
	unlock := s.sessions.Lock(sessionId)
	defer unlock()

	session, ok := s.sessions.Get(sessionId)
	if !ok {
		return nil, apperr.ErrSessionNotFound
	}
	return s.mapper.ToSessionSnapshot(session), nil
}

func (s *triageService) DeleteSession(ctx context.Context, sessionId string) error {
	unlock := s.sessions.Lock(sessionId)
	defer unlock()

	if _, ok := s.sessions.Get(sessionId); !ok {
		return apperr.ErrSessionNotFound
	}
	s.sessions.Delete(sessionId)

	s.logger.Info("TriageService", "Session deleted", map[string]interface{}{
		"session_id": sessionId,
	})
	return nil
}

// generate calls the language model with retry and a per-attempt timeout.
func (s *triageService) generate(ctx context.Context, prompt string) (string, error) {
	reply, err := backoff.Retry(ctx, func() (string, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.model.Generate(callCtx, prompt, llm.WithTemperature(0.4))
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(s.maxRetries)),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperr.Wrap(apperr.CodeExternalTimeout, "language model call timed out", err)
		}
		return "", apperr.Wrap(apperr.CodeModelUnavailable, "language model call failed", err)
	}
	return reply, nil
}

func (s *triageService) embedImage(ctx context.Context, image []byte) ([]float32, error) {
	vector, err := backoff.Retry(ctx, func() ([]float32, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.embedder.EmbedImage(callCtx, image)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(s.maxRetries)),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.Wrap(apperr.CodeExternalTimeout, "image embedding timed out", err)
		}
		return nil, apperr.Wrap(apperr.CodeEmbeddingUnavailable, "image embedding failed", err)
	}
	return vector, nil
}

func (s *triageService) embedText(ctx context.Context, text string) ([]float32, error) {
	vector, err := backoff.Retry(ctx, func() ([]float32, error) {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()
		return s.embedder.EmbedText(callCtx, text)
	},
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxTries(uint(s.maxRetries)),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperr.Wrap(apperr.CodeExternalTimeout, "text embedding timed out", err)
		}
		return nil, apperr.Wrap(apperr.CodeEmbeddingUnavailable, "text embedding failed", err)
	}
	return vector, nil
}

func (s *triageService) publishEscalation(ctx context.Context, session *store.Session, reason string) {
	if s.eventPublisher == nil {
		return
	}
	evt := events.NewCaseEscalated(session.ID, reason)
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		// The alert is auxiliary; the session stays escalated regardless.
		s.logger.Warn("TriageService", "Failed to publish CASE_ESCALATED event", map[string]interface{}{
			"session_id": session.ID,
			"error":      err.Error(),
		})
	}
}

func (s *triageService) publishFinalized(ctx context.Context, record *store.CaseRecord) {
	if s.eventPublisher == nil {
		return
	}
	outcome := string(store.OutcomeContinue)
	if record.Escalation != nil {
		outcome = string(record.Escalation.Outcome)
	}
	evt := events.NewCaseFinalized(record.SessionID, record.CaseID, outcome)
	if err := s.eventPublisher.Publish(ctx, evt); err != nil {
		s.logger.Warn("TriageService", "Failed to publish CASE_FINALIZED event", map[string]interface{}{
			"case_id": record.CaseID,
			"error":   err.Error(),
		})
	}
}

func (s *triageService) persistCaseRecord(ctx context.Context, record *store.CaseRecord) {
	if s.caseRepo == nil {
		return
	}
	ent, err := s.mapper.ToCaseRecordEntity(record)
	if err != nil {
		s.logger.Error("TriageService", "Failed to map case record for persistence", map[string]interface{}{
			"case_id": record.CaseID,
			"error":   err.Error(),
		})
		return
	}
	if err := s.caseRepo.Create(ctx, ent); err != nil {
		s.logger.Error("TriageService", "Failed to persist case record", map[string]interface{}{
			"case_id": record.CaseID,
			"error":   err.Error(),
		})
	}
}

func (s *triageService) queueCaseIndexing(ctx context.Context, record *store.CaseRecord) {
	if s.publisherService == nil {
		return
	}
	payload := dto.PublishEmbedCaseMessage{
		CaseId:    record.CaseID,
		SessionId: record.SessionID,
		NoteText:  record.NoteText,
	}
	// Label the indexed case with the closest reference diagnosis so the
	// consumer can store it alongside the embedding.
	if len(record.Hits) > 0 {
		meta := record.Hits[0].Metadata
		payload.Diagnosis, _ = meta["diagnosis"].(string)
		payload.IcdCode, _ = meta["icd_code"].(string)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	if err := s.publisherService.Publish(ctx, data); err != nil {
		s.logger.Warn("TriageService", "Failed to queue case indexing", map[string]interface{}{
			"case_id": record.CaseID,
			"error":   err.Error(),
		})
	}
}

func (s *triageService) transitionError(err error) error {
	var illegal *state.ErrIllegalTransition
	if errors.As(err, &illegal) {
		return apperr.Wrap(apperr.CodeInvalidStageTransition, illegal.Error(), err)
	}
	return apperr.Wrap(apperr.CodeInternal, "stage transition failed", err)
}

var consentAffirmatives = []string{"yes", "yeah", "yep", "okay", "ok", "sure", "correct"}
var consentNegatives = []string{"no", "nope", "not okay", "don't", "do not", "refuse"}

// parseConsentAnswer classifies a spoken consent reply. Negations are checked
// first so "no, not okay" never reads as a grant via "okay". Single-word cues
// match on word boundaries, so "know" is not a refusal.
func parseConsentAnswer(text string) (granted bool, recognized bool) {
	lowered := strings.ToLower(text)
	for _, phrase := range consentNegatives {
		if matchPhrase(lowered, phrase) {
			return false, true
		}
	}
	for _, phrase := range consentAffirmatives {
		if matchPhrase(lowered, phrase) {
			return true, true
		}
	}
	return false, false
}

func matchPhrase(text, phrase string) bool {
	if strings.ContainsRune(phrase, ' ') {
		return strings.Contains(text, phrase)
	}
	for _, word := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	}) {
		if word == phrase {
			return true
		}
	}
	return false
}
