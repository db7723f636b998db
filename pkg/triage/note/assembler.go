package note

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"derm-triage-be/pkg/retrieval"
	"derm-triage-be/pkg/store"
)

// Disclaimer is attached verbatim to every case record.
const Disclaimer = "This is an AI-assisted triage assessment, not a medical diagnosis. " +
	"Please seek professional medical help for proper evaluation and treatment."

// ErrIncomplete is returned when assembly is attempted before the session
// reached analysis or escalation.
var ErrIncomplete = errors.New("session has not reached analysis")

// Assembler combines the session transcript, the last retrieval result and
// the externally generated note text into an immutable case record.
type Assembler struct{}

func NewAssembler() *Assembler {
	return &Assembler{}
}

func (a *Assembler) Assemble(session *store.Session, noteText, explanation string, at time.Time) (*store.CaseRecord, error) {
	switch session.Stage {
	case store.StageAnalysis, store.StageExplanation, store.StageEscalated:
	default:
		return nil, fmt.Errorf("%w: stage %s", ErrIncomplete, session.Stage)
	}

	transcript := make([]store.Turn, len(session.Transcript))
	copy(transcript, session.Transcript)

	var hits []store.CaseHit
	degraded := false
	if session.RetrievalContext != nil {
		degraded = session.RetrievalContext.Degraded
		hits = make([]store.CaseHit, 0, len(session.RetrievalContext.Hits))
		for _, h := range session.RetrievalContext.Hits {
			hits = append(hits, store.CaseHit{
				RecordID: h.RecordID,
				Score:    h.Score,
				Metadata: h.Metadata,
			})
		}
	}

	var escalation *store.EscalationDecision
	if session.Escalation != nil {
		e := *session.Escalation
		escalation = &e
	}

	return &store.CaseRecord{
		CaseID:      uuid.NewString(),
		SessionID:   session.ID,
		Language:    session.Language,
		Transcript:  transcript,
		Hits:        hits,
		Degraded:    degraded,
		NoteText:    noteText,
		Explanation: explanation,
		Escalation:  escalation,
		Disclaimer:  Disclaimer,
		FinalizedAt: at,
	}, nil
}

// RenderContext formats a retrieval result as reference-case context lines
// for the note generation prompt.
func RenderContext(result *retrieval.Result) string {
	if result == nil || len(result.Hits) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Similar cases from the dermatology database:\n")
	for i, h := range result.Hits {
		if i >= 5 {
			break
		}
		diagnosis, _ := h.Metadata["diagnosis"].(string)
		icd, _ := h.Metadata["icd_code"].(string)
		fmt.Fprintf(&b, "- %s (ICD: %s, similarity: %.2f)\n", diagnosis, icd, h.Score)
	}
	return b.String()
}

// RenderTranscript flattens the transcript for prompting.
func RenderTranscript(transcript []store.Turn) string {
	if len(transcript) == 0 {
		return "No transcript available."
	}
	var b strings.Builder
	for _, t := range transcript {
		fmt.Fprintf(&b, "%s: %s\n", t.Speaker, t.Text)
	}
	return b.String()
}
