package note

import (
	"errors"
	"strings"
	"testing"
	"time"

	"derm-triage-be/pkg/retrieval"
	"derm-triage-be/pkg/store"
	"derm-triage-be/pkg/vectorindex"
)

func TestAssembleRejectsUnfinishedSessions(t *testing.T) {
	a := NewAssembler()
	for _, stage := range []store.Stage{
		store.StageGreeting,
		store.StageInterview,
		store.StageConsentPending,
		store.StageImageCapture,
	} {
		session := &store.Session{ID: "s1", Stage: stage}
		_, err := a.Assemble(session, "", "", time.Now())
		if !errors.Is(err, ErrIncomplete) {
			t.Errorf("stage %s: err = %v, want ErrIncomplete", stage, err)
		}
	}
}

func TestAssembleProducesDetachedRecord(t *testing.T) {
	a := NewAssembler()
	now := time.Now()
	session := &store.Session{
		ID:       "s1",
		Stage:    store.StageExplanation,
		Language: "en-US",
		Transcript: []store.Turn{
			{Speaker: store.SpeakerPatient, Text: "itchy patch", At: now},
			{Speaker: store.SpeakerAssistant, Text: "How long has it been there?", At: now},
		},
		RetrievalContext: &retrieval.Result{
			Hits: []vectorindex.Hit{
				{RecordID: "ref-1", Score: 0.91, Metadata: map[string]interface{}{"diagnosis": "eczema", "icd_code": "L30.9"}},
			},
			Degraded: true,
		},
	}

	record, err := a.Assemble(session, "clinical note", "plain explanation", now)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}

	if record.CaseID == "" {
		t.Error("case id not assigned")
	}
	if record.SessionID != "s1" || record.Language != "en-US" {
		t.Errorf("session fields not carried: %+v", record)
	}
	if record.NoteText != "clinical note" || record.Explanation != "plain explanation" {
		t.Errorf("note fields not carried: %+v", record)
	}
	if !record.Degraded {
		t.Error("degraded flag lost")
	}
	if len(record.Hits) != 1 || record.Hits[0].RecordID != "ref-1" {
		t.Errorf("hits = %+v", record.Hits)
	}
	if record.Disclaimer != Disclaimer {
		t.Error("disclaimer missing")
	}
	if !record.FinalizedAt.Equal(now) {
		t.Error("finalized timestamp not set")
	}

	// The record must not alias the live session transcript.
	session.Transcript[0].Text = "mutated"
	if record.Transcript[0].Text != "itchy patch" {
		t.Error("record transcript aliases the session transcript")
	}
}

func TestAssembleCopiesEscalationDecision(t *testing.T) {
	a := NewAssembler()
	session := &store.Session{
		ID:    "s1",
		Stage: store.StageEscalated,
		Escalation: &store.EscalationDecision{
			Outcome: store.OutcomeEscalate,
			Reason:  "suspected_malignancy",
			At:      time.Now(),
		},
	}

	record, err := a.Assemble(session, "", "", time.Now())
	if err != nil {
		t.Fatalf("Assemble from ESCALATED: %v", err)
	}
	if record.Escalation == nil || record.Escalation.Outcome != store.OutcomeEscalate {
		t.Fatalf("escalation = %+v", record.Escalation)
	}
	if record.Escalation == session.Escalation {
		t.Error("record escalation aliases the session decision")
	}
}

func TestRenderContext(t *testing.T) {
	if got := RenderContext(nil); got != "" {
		t.Errorf("nil result rendered %q", got)
	}
	if got := RenderContext(&retrieval.Result{}); got != "" {
		t.Errorf("empty result rendered %q", got)
	}

	hits := make([]vectorindex.Hit, 0, 7)
	for i := 0; i < 7; i++ {
		hits = append(hits, vectorindex.Hit{
			RecordID: "r",
			Score:    0.9,
			Metadata: map[string]interface{}{"diagnosis": "psoriasis", "icd_code": "L40.0"},
		})
	}
	rendered := RenderContext(&retrieval.Result{Hits: hits})
	if !strings.Contains(rendered, "psoriasis") || !strings.Contains(rendered, "L40.0") {
		t.Errorf("rendered = %q", rendered)
	}
	if got := strings.Count(rendered, "psoriasis"); got != 5 {
		t.Errorf("rendered %d hits, want at most 5", got)
	}
}

func TestRenderTranscript(t *testing.T) {
	if got := RenderTranscript(nil); got != "No transcript available." {
		t.Errorf("empty transcript rendered %q", got)
	}
	got := RenderTranscript([]store.Turn{
		{Speaker: store.SpeakerPatient, Text: "hello"},
		{Speaker: store.SpeakerAssistant, Text: "hi, what brings you in?"},
	})
	want := "patient: hello\nassistant: hi, what brings you in?\n"
	if got != want {
		t.Errorf("rendered = %q, want %q", got, want)
	}
}
