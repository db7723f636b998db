package escalation

import (
	"fmt"
	"strings"

	"derm-triage-be/pkg/store"
)

// Decision is the outcome of one evaluation. The timestamp is stamped by the
// caller when the decision is recorded, keeping Evaluate a pure function.
type Decision struct {
	Outcome store.Outcome
	Reason  string
}

// Evaluator classifies the accumulated transcript. It holds no mutable
// state: the same transcript always yields the same decision.
type Evaluator struct {
	rules *RuleSet
}

func NewEvaluator(rules *RuleSet) *Evaluator {
	return &Evaluator{rules: rules}
}

// Version returns the loaded rule set version for audit logs.
func (e *Evaluator) Version() string {
	return e.rules.Version
}

// Evaluate checks escalation triggers first, so they win ties against
// de-escalation cues. De-escalation additionally requires the corroborating
// question-and-answer exchange, so a lone keyword like "paint" never
// reassures on its own.
func (e *Evaluator) Evaluate(transcript []store.Turn) Decision {
	if decision, ok := e.checkEscalation(transcript); ok {
		return decision
	}
	if decision, ok := e.checkDeEscalation(transcript); ok {
		return decision
	}
	return Decision{Outcome: store.OutcomeContinue}
}

func (e *Evaluator) checkEscalation(transcript []store.Turn) (Decision, bool) {
	for _, turn := range transcript {
		if turn.Speaker != store.SpeakerPatient {
			continue
		}
		text := strings.ToLower(turn.Text)
		for _, rule := range e.rules.Escalation {
			for _, phrase := range rule.Phrases {
				if strings.Contains(text, phrase) {
					return Decision{
						Outcome: store.OutcomeEscalate,
						Reason:  fmt.Sprintf("%s: %q detected in patient description", rule.Category, phrase),
					}, true
				}
			}
		}
	}
	return Decision{}, false
}

func (e *Evaluator) checkDeEscalation(transcript []store.Turn) (Decision, bool) {
	for _, rule := range e.rules.DeEscalation {
		phrase, cued := matchPatientPhrase(transcript, rule.Phrases)
		if !cued {
			continue
		}
		if corroborated(transcript, rule.Corroboration) {
			return Decision{
				Outcome: store.OutcomeDeEscalate,
				Reason:  fmt.Sprintf("%s: %q confirmed by patient", rule.Category, phrase),
			}, true
		}
	}
	return Decision{}, false
}

func matchPatientPhrase(transcript []store.Turn, phrases []string) (string, bool) {
	for _, turn := range transcript {
		if turn.Speaker != store.SpeakerPatient {
			continue
		}
		text := strings.ToLower(turn.Text)
		for _, phrase := range phrases {
			if strings.Contains(text, phrase) {
				return phrase, true
			}
		}
	}
	return "", false
}

// corroborated reports whether the assistant asked one of the confirming
// questions and the patient answered affirmatively in a later turn.
func corroborated(transcript []store.Turn, c Corroboration) bool {
	questionAt := -1
	for i, turn := range transcript {
		if turn.Speaker != store.SpeakerAssistant {
			continue
		}
		text := strings.ToLower(turn.Text)
		for _, cue := range c.QuestionContains {
			if strings.Contains(text, cue) {
				questionAt = i
				break
			}
		}
		if questionAt >= 0 {
			break
		}
	}
	if questionAt < 0 {
		return false
	}

	for _, turn := range transcript[questionAt+1:] {
		if turn.Speaker != store.SpeakerPatient {
			continue
		}
		text := strings.ToLower(turn.Text)
		for _, cue := range c.AnswerContains {
			if strings.Contains(text, cue) {
				return true
			}
		}
	}
	return false
}
