package store

import (
	"time"

	"derm-triage-be/pkg/retrieval"
)

// Stage is an interview phase. Transitions between stages are owned by the
// triage state manager; nothing else mutates Session.Stage.
type Stage string

const (
	StageGreeting       Stage = "GREETING"
	StageInterview      Stage = "INTERVIEW"
	StageConsentPending Stage = "CONSENT_PENDING"
	StageImageCapture   Stage = "IMAGE_CAPTURE"
	StageAnalysis       Stage = "ANALYSIS"
	StageExplanation    Stage = "EXPLANATION"
	StageCompleted      Stage = "COMPLETED"
	StageEscalated      Stage = "ESCALATED"
)

// Consent is the tri-state image-capture consent.
type Consent string

const (
	ConsentUnknown Consent = "UNKNOWN"
	ConsentGranted Consent = "GRANTED"
	ConsentDenied  Consent = "DENIED"
)

const (
	SpeakerPatient   = "patient"
	SpeakerAssistant = "assistant"
)

// Turn is one transcript entry. The transcript is append-only and strictly
// ordered by arrival.
type Turn struct {
	Speaker string    `json:"speaker"`
	Text    string    `json:"text"`
	At      time.Time `json:"at"`
}

// Outcome of an escalation evaluation.
type Outcome string

const (
	OutcomeEscalate   Outcome = "ESCALATE"
	OutcomeDeEscalate Outcome = "DE_ESCALATE"
	OutcomeContinue   Outcome = "CONTINUE"
)

// EscalationDecision is immutable once recorded on a session.
type EscalationDecision struct {
	Outcome Outcome   `json:"outcome"`
	Reason  string    `json:"reason"`
	At      time.Time `json:"at"`
}

// Session is the state of a single patient interaction. It is mutated only by
// the triage service, which serializes operations per session.
type Session struct {
	ID       string  `json:"id"`
	Stage    Stage   `json:"stage"`
	Language string  `json:"language"`
	Consent  Consent `json:"consent"`

	Transcript []Turn `json:"transcript"`

	// Most recent retrieval result, replaced (not merged) on each call.
	RetrievalContext *retrieval.Result `json:"retrieval_context,omitempty"`

	// Set at most once; terminal except for finalization.
	Escalation *EscalationDecision `json:"escalation,omitempty"`

	// Image embedding captured during IMAGE_CAPTURE, consumed in ANALYSIS.
	ImageEmbedding []float32 `json:"-"`

	// Generated during ANALYSIS, consumed at finalization.
	NoteText    string `json:"-"`
	Explanation string `json:"-"`

	// Set once the explanation has been spoken, so repeat utterances in
	// EXPLANATION get a closing response instead of the full text again.
	ExplanationDelivered bool `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AddTurn appends a transcript entry.
func (s *Session) AddTurn(speaker, text string, at time.Time) {
	s.Transcript = append(s.Transcript, Turn{Speaker: speaker, Text: text, At: at})
}

// PatientTurns counts the patient's turns, used for the
// interview-completeness signal.
func (s *Session) PatientTurns() int {
	n := 0
	for _, t := range s.Transcript {
		if t.Speaker == SpeakerPatient {
			n++
		}
	}
	return n
}

// CaseRecord is the immutable output of a finalized session.
type CaseRecord struct {
	CaseID      string              `json:"case_id"`
	SessionID   string              `json:"session_id"`
	Language    string              `json:"language"`
	Transcript  []Turn              `json:"transcript"`
	Hits        []CaseHit           `json:"hits"`
	Degraded    bool                `json:"degraded"`
	NoteText    string              `json:"note_text"`
	Explanation string              `json:"explanation"`
	Escalation  *EscalationDecision `json:"escalation,omitempty"`
	Disclaimer  string              `json:"disclaimer"`
	FinalizedAt time.Time           `json:"finalized_at"`
}

// CaseHit is a retrieval hit snapshot carried on the case record.
type CaseHit struct {
	RecordID string                 `json:"record_id"`
	Score    float32                `json:"score"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}
