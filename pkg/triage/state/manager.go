package state

import (
	"fmt"
	"log"
	"time"

	"derm-triage-be/pkg/store"
)

// ErrIllegalTransition reports an attempted stage transition that is not an
// edge of the interview graph. The session is left unchanged.
type ErrIllegalTransition struct {
	From store.Stage
	To   store.Stage
}

func (e *ErrIllegalTransition) Error() string {
	return fmt.Sprintf("illegal stage transition %s -> %s", e.From, e.To)
}

// transitions holds the legal edges of the interview state machine.
// ESCALATED is additionally reachable from any non-terminal stage via
// MarkEscalated.
var transitions = map[store.Stage][]store.Stage{
	store.StageGreeting:       {store.StageInterview},
	store.StageInterview:      {store.StageConsentPending},
	store.StageConsentPending: {store.StageImageCapture, store.StageInterview},
	store.StageImageCapture:   {store.StageAnalysis},
	store.StageAnalysis:       {store.StageExplanation},
	store.StageExplanation:    {store.StageCompleted},
	store.StageEscalated:      {store.StageCompleted},
	store.StageCompleted:      {},
}

// Manager is the single authority for session stage transitions.
type Manager struct {
	logger *log.Logger
}

func NewManager(logger *log.Logger) *Manager {
	return &Manager{logger: logger}
}

// CanAdvance reports whether from -> to is a legal edge.
func (m *Manager) CanAdvance(from, to store.Stage) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Advance moves the session along a legal edge, or fails leaving the session
// untouched. Escalated sessions only ever advance to COMPLETED.
func (m *Manager) Advance(session *store.Session, to store.Stage) error {
	if !m.CanAdvance(session.Stage, to) {
		return &ErrIllegalTransition{From: session.Stage, To: to}
	}
	m.logger.Printf("[STATE] Session %s: %s -> %s", session.ID, session.Stage, to)
	session.Stage = to
	return nil
}

// MarkEscalated records the escalation decision and short-circuits the
// session into ESCALATED. The decision is sticky: once set it is never
// overwritten, and repeated calls are no-ops.
func (m *Manager) MarkEscalated(session *store.Session, reason string, at time.Time) {
	if session.Escalation != nil && session.Escalation.Outcome == store.OutcomeEscalate {
		return
	}
	if session.Stage == store.StageCompleted {
		return
	}
	session.Escalation = &store.EscalationDecision{
		Outcome: store.OutcomeEscalate,
		Reason:  reason,
		At:      at,
	}
	m.logger.Printf("[STATE] Session %s escalated: %s", session.ID, reason)
	session.Stage = store.StageEscalated
}
