package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"derm-triage-be/internal/config"
	"derm-triage-be/internal/constant"
	"derm-triage-be/internal/dto"
	"derm-triage-be/internal/pkg/apperr"
	"derm-triage-be/internal/repository/memory"
	"derm-triage-be/pkg/events"
	"derm-triage-be/pkg/llm"
	"derm-triage-be/pkg/retrieval"
	"derm-triage-be/pkg/store"
	"derm-triage-be/pkg/triage/escalation"
	"derm-triage-be/pkg/triage/note"
	"derm-triage-be/pkg/triage/state"
	"derm-triage-be/pkg/vectorindex"
)

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return f.vector, f.err
}

func (f *fakeEmbedder) EmbedImage(ctx context.Context, image []byte) ([]float32, error) {
	return f.vector, f.err
}

type fakeLLM struct {
	reply string
	err   error
}

func (f *fakeLLM) Chat(ctx context.Context, history []llm.Message, options ...llm.Option) (string, error) {
	return f.reply, f.err
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, options ...llm.Option) (string, error) {
	return f.reply, f.err
}

type fakePublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (f *fakePublisher) Publish(ctx context.Context, event events.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) published() []events.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.Event, len(f.events))
	copy(out, f.events)
	return out
}

type fakeQueue struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (f *fakeQueue) Publish(ctx context.Context, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payloads = append(f.payloads, payload)
	return nil
}

func (f *fakeQueue) queued() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.payloads))
	copy(out, f.payloads)
	return out
}

type nopLogger struct{}

func (nopLogger) Debug(module, message string, details map[string]interface{}) {}
func (nopLogger) Info(module, message string, details map[string]interface{})  {}
func (nopLogger) Warn(module, message string, details map[string]interface{})  {}
func (nopLogger) Error(module, message string, details map[string]interface{}) {}
func (nopLogger) Sync() error                                                  { return nil }

func newTestService(t *testing.T, model llm.LLMProvider, embedder *fakeEmbedder) (ITriageService, *fakePublisher) {
	t.Helper()
	svc, pub, _ := newTestServiceWithQueue(t, model, embedder)
	return svc, pub
}

func newTestServiceWithQueue(t *testing.T, model llm.LLMProvider, embedder *fakeEmbedder) (ITriageService, *fakePublisher, *fakeQueue) {
	t.Helper()

	idx, err := vectorindex.New(3)
	require.NoError(t, err)
	require.NoError(t, idx.Add([]vectorindex.Record{
		{
			RecordID: "ref-1",
			Vector:   []float32{1, 0, 0},
			Metadata: map[string]interface{}{"diagnosis": "eczema", "icd_code": "L30.9"},
		},
	}))

	pub := &fakePublisher{}
	queue := &fakeQueue{}
	cfg := &config.Config{
		Ai:        config.AIConfig{RequestTimeout: time.Second, MaxRetries: 1},
		Retrieval: config.RetrievalConfig{TopK: 3},
		Triage:    config.TriageConfig{MinInterviewTurns: 3},
	}

	svc := NewTriageService(
		memory.NewSessionRepository(time.Hour, 10*time.Minute),
		state.NewManager(log.New(io.Discard, "", 0)),
		escalation.NewEvaluator(escalation.DefaultRules()),
		retrieval.NewRetriever(idx, retrieval.NewCache(time.Minute, time.Minute)),
		note.NewAssembler(),
		embedder,
		model,
		nil,
		pub,
		queue,
		nopLogger{},
		cfg,
	)
	return svc, pub, queue
}

func createSession(t *testing.T, svc ITriageService) string {
	t.Helper()
	created, err := svc.CreateSession(context.Background(), &dto.CreateSessionRequest{Language: "en-US"})
	require.NoError(t, err)
	require.Equal(t, string(store.StageGreeting), created.Stage)
	return created.Id
}

func say(t *testing.T, svc ITriageService, sessionId, text string) *dto.UtteranceResponse {
	t.Helper()
	resp, err := svc.HandleUtterance(context.Background(), sessionId, &dto.UtteranceRequest{Text: text})
	require.NoError(t, err)
	return resp
}

func TestFullTriageFlow(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t,
		&fakeLLM{reply: "How long have you had the itching?"},
		&fakeEmbedder{vector: []float32{1, 0, 0}},
	)
	sessionId := createSession(t, svc)

	// First utterance moves past the greeting.
	resp := say(t, svc, sessionId, "hello, I need help with my skin")
	assert.Equal(t, constant.GreetingResponse, resp.ResponseText)
	assert.Equal(t, string(store.StageInterview), resp.Stage)

	// Interview turns until the completeness threshold.
	resp = say(t, svc, sessionId, "I have an itchy patch on my elbow")
	assert.Contains(t, resp.ResponseText, "How long have you had the itching?")
	assert.Contains(t, resp.ResponseText, constant.InterviewDisclaimer)
	assert.False(t, resp.Degraded)

	resp = say(t, svc, sessionId, "it started about two weeks ago")
	assert.Equal(t, constant.ConsentRequestResponse, resp.ResponseText)
	assert.Equal(t, string(store.StageConsentPending), resp.Stage)

	consent, err := svc.RecordConsent(ctx, sessionId, true)
	require.NoError(t, err)
	assert.Equal(t, string(store.StageImageCapture), consent.Stage)
	assert.Equal(t, string(store.ConsentGranted), consent.Consent)

	stage, err := svc.SubmitImage(ctx, sessionId, []byte("jpeg bytes"))
	require.NoError(t, err)
	assert.Equal(t, string(store.StageExplanation), stage.Stage)

	record, err := svc.Finalize(ctx, sessionId)
	require.NoError(t, err)
	assert.Equal(t, sessionId, record.SessionId)
	assert.Equal(t, "en-US", record.Language)
	assert.Equal(t, string(store.OutcomeContinue), record.Outcome)
	assert.Equal(t, note.Disclaimer, record.Disclaimer)
	assert.NotEmpty(t, record.NoteText)
	assert.NotEmpty(t, record.Transcript)
	require.Len(t, record.Hits, 1)
	assert.Equal(t, "ref-1", record.Hits[0].RecordId)
	assert.Equal(t, "eczema", record.Hits[0].Diagnosis)

	published := pub.published()
	require.Len(t, published, 1)
	assert.Equal(t, constant.EventCaseFinalized, published[0].EventType())

	// Finalization is terminal.
	_, err = svc.Finalize(ctx, sessionId)
	assert.True(t, errors.Is(err, apperr.ErrIncompleteSession))
	_, err = svc.HandleUtterance(ctx, sessionId, &dto.UtteranceRequest{Text: "one more thing"})
	assert.True(t, errors.Is(err, apperr.ErrInvalidStageTransition))
}

func TestExplanationRepeatGetsClosingResponse(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t,
		&fakeLLM{reply: "an explanation of the findings"},
		&fakeEmbedder{vector: []float32{1, 0, 0}},
	)
	sessionId := createSession(t, svc)

	say(t, svc, sessionId, "hello")
	say(t, svc, sessionId, "itchy patch")
	say(t, svc, sessionId, "two weeks")
	_, err := svc.RecordConsent(ctx, sessionId, true)
	require.NoError(t, err)
	_, err = svc.SubmitImage(ctx, sessionId, []byte("jpeg bytes"))
	require.NoError(t, err)

	// First utterance in EXPLANATION delivers the explanation itself.
	resp := say(t, svc, sessionId, "so what did you find?")
	assert.Contains(t, resp.ResponseText, "an explanation of the findings")
	assert.Contains(t, resp.ResponseText, constant.ExplanationDisclaimer)

	// Repeats get the closing response instead of the full text again.
	resp = say(t, svc, sessionId, "anything else?")
	assert.Equal(t, constant.ExplanationDeliveredResponse, resp.ResponseText)
	assert.Equal(t, string(store.StageExplanation), resp.Stage)
}

func TestFinalizeQueuesIndexingWithDiagnosis(t *testing.T) {
	ctx := context.Background()
	svc, _, queue := newTestServiceWithQueue(t,
		&fakeLLM{reply: "follow-up"},
		&fakeEmbedder{vector: []float32{1, 0, 0}},
	)
	sessionId := createSession(t, svc)

	say(t, svc, sessionId, "hello")
	say(t, svc, sessionId, "itchy patch")
	say(t, svc, sessionId, "two weeks")
	_, err := svc.RecordConsent(ctx, sessionId, true)
	require.NoError(t, err)
	_, err = svc.SubmitImage(ctx, sessionId, []byte("jpeg bytes"))
	require.NoError(t, err)

	record, err := svc.Finalize(ctx, sessionId)
	require.NoError(t, err)

	queued := queue.queued()
	require.Len(t, queued, 1)
	var payload dto.PublishEmbedCaseMessage
	require.NoError(t, json.Unmarshal(queued[0], &payload))
	assert.Equal(t, record.CaseId, payload.CaseId)
	assert.Equal(t, sessionId, payload.SessionId)
	assert.Equal(t, record.NoteText, payload.NoteText)
	// The closest reference hit labels the indexed case.
	assert.Equal(t, "eczema", payload.Diagnosis)
	assert.Equal(t, "L30.9", payload.IcdCode)
}

func TestEscalationPath(t *testing.T) {
	ctx := context.Background()
	svc, pub := newTestService(t,
		&fakeLLM{reply: "generated note"},
		&fakeEmbedder{vector: []float32{1, 0, 0}},
	)
	sessionId := createSession(t, svc)

	resp := say(t, svc, sessionId, "I have a dark mole that keeps bleeding")
	assert.True(t, resp.Escalated)
	assert.Equal(t, string(store.StageEscalated), resp.Stage)
	assert.Equal(t, constant.EscalationResponse, resp.ResponseText)

	published := pub.published()
	require.Len(t, published, 1)
	assert.Equal(t, constant.EventCaseEscalated, published[0].EventType())
	assert.Equal(t, sessionId, published[0].Payload()["session_id"])

	// Escalation is sticky: later turns get the same answer and no new event.
	resp = say(t, svc, sessionId, "actually it feels fine now")
	assert.True(t, resp.Escalated)
	assert.Equal(t, constant.EscalationResponse, resp.ResponseText)
	require.Len(t, pub.published(), 1)

	// An escalated session still finalizes into a case record.
	record, err := svc.Finalize(ctx, sessionId)
	require.NoError(t, err)
	assert.Equal(t, string(store.OutcomeEscalate), record.Outcome)
	assert.NotEmpty(t, record.EscalationReason)
	assert.NotEmpty(t, record.NoteText)

	published = pub.published()
	require.Len(t, published, 2)
	assert.Equal(t, constant.EventCaseFinalized, published[1].EventType())
	assert.Equal(t, string(store.OutcomeEscalate), published[1].Payload()["outcome"])
}

func TestDeEscalationRequiresCorroborationAndHappensOnce(t *testing.T) {
	svc, pub := newTestService(t,
		&fakeLLM{reply: "Could it be paint on your skin rather than a mark?"},
		&fakeEmbedder{vector: []float32{1, 0, 0}},
	)
	sessionId := createSession(t, svc)

	say(t, svc, sessionId, "hello")
	// Benign cue without corroboration keeps the interview going.
	resp := say(t, svc, sessionId, "I noticed a strange spot, maybe paint")
	assert.Contains(t, resp.ResponseText, "Could it be paint")

	// Affirmative answer to the assistant's question corroborates.
	resp = say(t, svc, sessionId, "yes, I was painting the fence")
	assert.Equal(t, constant.DeEscalationResponse, resp.ResponseText)
	assert.False(t, resp.Escalated)

	// The decision is recorded once; the next turn resumes the interview.
	resp = say(t, svc, sessionId, "alright, but my elbow also itches sometimes")
	assert.NotEqual(t, constant.DeEscalationResponse, resp.ResponseText)

	assert.Empty(t, pub.published())
}

func TestSubmitImageRequiresConsent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t,
		&fakeLLM{reply: "follow-up"},
		&fakeEmbedder{vector: []float32{1, 0, 0}},
	)
	sessionId := createSession(t, svc)

	// Consent never recorded, whatever the stage is.
	_, err := svc.SubmitImage(ctx, sessionId, []byte("jpeg bytes"))
	assert.True(t, errors.Is(err, apperr.ErrConsentRequired))

	say(t, svc, sessionId, "hello")
	_, err = svc.SubmitImage(ctx, sessionId, []byte("jpeg bytes"))
	assert.True(t, errors.Is(err, apperr.ErrConsentRequired))
}

func TestSubmitImageOutsideCaptureStage(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t,
		&fakeLLM{reply: "follow-up"},
		&fakeEmbedder{vector: []float32{1, 0, 0}},
	)
	sessionId := createSession(t, svc)

	say(t, svc, sessionId, "hello")
	say(t, svc, sessionId, "itchy patch on my arm")
	say(t, svc, sessionId, "two weeks now")
	_, err := svc.RecordConsent(ctx, sessionId, true)
	require.NoError(t, err)

	_, err = svc.SubmitImage(ctx, sessionId, []byte("jpeg bytes"))
	require.NoError(t, err)

	// Second image after analysis already ran.
	_, err = svc.SubmitImage(ctx, sessionId, []byte("jpeg bytes"))
	assert.True(t, errors.Is(err, apperr.ErrInvalidStageTransition))
}

func TestConsentDenialReturnsToInterview(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t,
		&fakeLLM{reply: "follow-up question"},
		&fakeEmbedder{vector: []float32{1, 0, 0}},
	)
	sessionId := createSession(t, svc)

	say(t, svc, sessionId, "hello")
	say(t, svc, sessionId, "itchy patch")
	resp := say(t, svc, sessionId, "two weeks")
	require.Equal(t, string(store.StageConsentPending), resp.Stage)

	consent, err := svc.RecordConsent(ctx, sessionId, false)
	require.NoError(t, err)
	assert.Equal(t, string(store.StageInterview), consent.Stage)
	assert.Equal(t, string(store.ConsentDenied), consent.Consent)
	assert.Equal(t, constant.ConsentDeniedResponse, consent.ResponseText)

	// Consent is no longer UNKNOWN, so the interview does not re-ask.
	resp = say(t, svc, sessionId, "it looks red and flaky")
	assert.Equal(t, string(store.StageInterview), resp.Stage)
	assert.NotEqual(t, constant.ConsentRequestResponse, resp.ResponseText)
}

func TestSpokenConsentAnswers(t *testing.T) {
	tests := []struct {
		name      string
		answer    string
		wantStage store.Stage
		wantText  string
	}{
		{"affirmative", "yes please", store.StageImageCapture, constant.ConsentGrantedResponse},
		{"negative", "no thanks", store.StageInterview, constant.ConsentDeniedResponse},
		{"negation wins over trailing okay", "no, not okay", store.StageInterview, constant.ConsentDeniedResponse},
		{"word boundary", "I don't know", store.StageInterview, constant.ConsentDeniedResponse},
		{"unrecognized re-asks", "what do you mean", store.StageConsentPending, constant.ConsentRequestResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(t,
				&fakeLLM{reply: "follow-up"},
				&fakeEmbedder{vector: []float32{1, 0, 0}},
			)
			sessionId := createSession(t, svc)
			say(t, svc, sessionId, "hello")
			say(t, svc, sessionId, "itchy patch")
			resp := say(t, svc, sessionId, "two weeks")
			require.Equal(t, string(store.StageConsentPending), resp.Stage)

			resp = say(t, svc, sessionId, tt.answer)
			assert.Equal(t, string(tt.wantStage), resp.Stage)
			assert.Equal(t, tt.wantText, resp.ResponseText)
		})
	}
}

func TestModelFailureDegradesInterview(t *testing.T) {
	svc, _ := newTestService(t,
		&fakeLLM{err: errors.New("model endpoint down")},
		&fakeEmbedder{vector: []float32{1, 0, 0}},
	)
	sessionId := createSession(t, svc)

	say(t, svc, sessionId, "hello")
	resp := say(t, svc, sessionId, "itchy patch on my arm")
	assert.True(t, resp.Degraded)
	assert.Contains(t, resp.ResponseText, constant.ModelFallbackResponse)
	assert.Equal(t, string(store.StageInterview), resp.Stage)
}

func TestModelFailureDuringAnalysisStillCompletes(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t,
		&fakeLLM{err: errors.New("model endpoint down")},
		&fakeEmbedder{vector: []float32{1, 0, 0}},
	)
	sessionId := createSession(t, svc)

	say(t, svc, sessionId, "hello")
	say(t, svc, sessionId, "itchy patch")
	say(t, svc, sessionId, "two weeks")
	_, err := svc.RecordConsent(ctx, sessionId, true)
	require.NoError(t, err)

	stage, err := svc.SubmitImage(ctx, sessionId, []byte("jpeg bytes"))
	require.NoError(t, err)
	assert.Equal(t, string(store.StageExplanation), stage.Stage)

	record, err := svc.Finalize(ctx, sessionId)
	require.NoError(t, err)
	assert.Contains(t, record.NoteText, "Raw transcript follows")
	assert.Equal(t, constant.ExplanationFallbackResponse, record.Explanation)
}

func TestEmbeddingFailureLeavesCaptureStage(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t,
		&fakeLLM{reply: "follow-up"},
		&fakeEmbedder{err: errors.New("embedding endpoint down")},
	)
	sessionId := createSession(t, svc)

	say(t, svc, sessionId, "hello")
	say(t, svc, sessionId, "itchy patch")
	say(t, svc, sessionId, "two weeks")
	_, err := svc.RecordConsent(ctx, sessionId, true)
	require.NoError(t, err)

	_, err = svc.SubmitImage(ctx, sessionId, []byte("jpeg bytes"))
	assert.True(t, errors.Is(err, apperr.ErrEmbeddingUnavailable))

	// The capture can be retried; stage must not have moved.
	snapshot, err := svc.GetSession(ctx, sessionId)
	require.NoError(t, err)
	assert.Equal(t, string(store.StageImageCapture), snapshot.Stage)
}

func TestEmbeddingTimeoutSurfacesAsTimeout(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t,
		&fakeLLM{reply: "follow-up"},
		&fakeEmbedder{err: context.DeadlineExceeded},
	)
	sessionId := createSession(t, svc)

	say(t, svc, sessionId, "hello")
	say(t, svc, sessionId, "itchy patch")
	say(t, svc, sessionId, "two weeks")
	_, err := svc.RecordConsent(ctx, sessionId, true)
	require.NoError(t, err)

	_, err = svc.SubmitImage(ctx, sessionId, []byte("jpeg bytes"))
	assert.True(t, errors.Is(err, apperr.ErrExternalTimeout))
	assert.False(t, errors.Is(err, apperr.ErrEmbeddingUnavailable))
}

func TestFinalizeBeforeAnalysis(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t,
		&fakeLLM{reply: "follow-up"},
		&fakeEmbedder{vector: []float32{1, 0, 0}},
	)
	sessionId := createSession(t, svc)

	_, err := svc.Finalize(ctx, sessionId)
	assert.True(t, errors.Is(err, apperr.ErrIncompleteSession))

	say(t, svc, sessionId, "hello")
	_, err = svc.Finalize(ctx, sessionId)
	assert.True(t, errors.Is(err, apperr.ErrIncompleteSession))
}

func TestUnknownSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t,
		&fakeLLM{reply: "follow-up"},
		&fakeEmbedder{vector: []float32{1, 0, 0}},
	)

	_, err := svc.HandleUtterance(ctx, "missing", &dto.UtteranceRequest{Text: "hello"})
	assert.True(t, errors.Is(err, apperr.ErrSessionNotFound))

	_, err = svc.GetSession(ctx, "missing")
	assert.True(t, errors.Is(err, apperr.ErrSessionNotFound))

	err = svc.DeleteSession(ctx, "missing")
	assert.True(t, errors.Is(err, apperr.ErrSessionNotFound))
}

func TestDeleteSessionErasesState(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t,
		&fakeLLM{reply: "follow-up"},
		&fakeEmbedder{vector: []float32{1, 0, 0}},
	)
	sessionId := createSession(t, svc)
	say(t, svc, sessionId, "hello")

	require.NoError(t, svc.DeleteSession(ctx, sessionId))

	_, err := svc.GetSession(ctx, sessionId)
	assert.True(t, errors.Is(err, apperr.ErrSessionNotFound))
}

func TestRequestConsentFromInterview(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t,
		&fakeLLM{reply: "follow-up"},
		&fakeEmbedder{vector: []float32{1, 0, 0}},
	)
	sessionId := createSession(t, svc)
	say(t, svc, sessionId, "hello")

	resp, err := svc.RequestConsent(ctx, sessionId)
	require.NoError(t, err)
	assert.Equal(t, string(store.StageConsentPending), resp.Stage)
	assert.Equal(t, constant.ConsentRequestResponse, resp.ResponseText)

	// Re-asking is allowed and does not change the stage.
	resp, err = svc.RequestConsent(ctx, sessionId)
	require.NoError(t, err)
	assert.Equal(t, string(store.StageConsentPending), resp.Stage)

	// Consent cannot be requested from the greeting.
	other := createSession(t, svc)
	_, err = svc.RequestConsent(ctx, other)
	assert.True(t, errors.Is(err, apperr.ErrInvalidStageTransition))
}

func TestFirstUtteranceCanSetLanguage(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t,
		&fakeLLM{reply: "follow-up"},
		&fakeEmbedder{vector: []float32{1, 0, 0}},
	)
	created, err := svc.CreateSession(ctx, &dto.CreateSessionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "en", created.Language)

	_, err = svc.HandleUtterance(ctx, created.Id, &dto.UtteranceRequest{Text: "habari", Language: "sw-TZ"})
	require.NoError(t, err)

	snapshot, err := svc.GetSession(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, "sw-TZ", snapshot.Language)

	// The language is pinned after the greeting.
	_, err = svc.HandleUtterance(ctx, created.Id, &dto.UtteranceRequest{Text: "my arm itches", Language: "fr-FR"})
	require.NoError(t, err)
	snapshot, err = svc.GetSession(ctx, created.Id)
	require.NoError(t, err)
	assert.Equal(t, "sw-TZ", snapshot.Language)
}

func TestGetSessionSnapshot(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t,
		&fakeLLM{reply: "follow-up"},
		&fakeEmbedder{vector: []float32{1, 0, 0}},
	)
	sessionId := createSession(t, svc)
	say(t, svc, sessionId, "hello")
	say(t, svc, sessionId, "itchy patch")

	snapshot, err := svc.GetSession(ctx, sessionId)
	require.NoError(t, err)
	assert.Equal(t, sessionId, snapshot.Id)
	assert.Equal(t, "en-US", snapshot.Language)
	assert.Equal(t, 2, snapshot.PatientTurnCount)
	assert.Equal(t, 4, snapshot.TurnCount)
	assert.False(t, snapshot.Escalated)
}
