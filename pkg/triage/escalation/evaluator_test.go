package escalation

import (
	"strings"
	"testing"
	"time"

	"derm-triage-be/pkg/store"
)

func turn(speaker, text string) store.Turn {
	return store.Turn{Speaker: speaker, Text: text, At: time.Now()}
}

func TestEvaluateEscalatesOnMalignancyPhrases(t *testing.T) {
	e := NewEvaluator(DefaultRules())

	tests := []struct {
		name string
		text string
	}{
		{"dark mole", "I have a dark mole on my arm and it keeps growing"},
		{"bleeding mole", "there is a bleeding mole on my back"},
		{"rapidly growing", "the spot is rapidly growing"},
		{"melanoma mention", "my sister said it could be melanoma"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := e.Evaluate([]store.Turn{turn(store.SpeakerPatient, tt.text)})
			if decision.Outcome != store.OutcomeEscalate {
				t.Errorf("outcome = %s, want ESCALATE", decision.Outcome)
			}
			if decision.Reason == "" {
				t.Error("escalation must carry a reason")
			}
		})
	}
}

func TestEvaluateIgnoresAssistantTurns(t *testing.T) {
	e := NewEvaluator(DefaultRules())

	decision := e.Evaluate([]store.Turn{
		turn(store.SpeakerAssistant, "Does the mole look dark or like a melanoma?"),
		turn(store.SpeakerPatient, "It is just a small itchy patch"),
	})
	if decision.Outcome != store.OutcomeContinue {
		t.Errorf("outcome = %s, want CONTINUE", decision.Outcome)
	}
}

func TestEvaluateDeEscalatesOnlyWithCorroboration(t *testing.T) {
	e := NewEvaluator(DefaultRules())

	// Cue alone is not enough.
	uncorroborated := e.Evaluate([]store.Turn{
		turn(store.SpeakerPatient, "there is a dark spot, maybe paint"),
	})
	if uncorroborated.Outcome != store.OutcomeContinue {
		t.Errorf("lone cue outcome = %s, want CONTINUE", uncorroborated.Outcome)
	}

	// Cue plus the question-and-answer exchange de-escalates.
	corroborated := e.Evaluate([]store.Turn{
		turn(store.SpeakerPatient, "there is a dark spot, maybe paint"),
		turn(store.SpeakerAssistant, "Could it be paint on your skin rather than a mark?"),
		turn(store.SpeakerPatient, "yes, I was painting the fence yesterday"),
	})
	if corroborated.Outcome != store.OutcomeDeEscalate {
		t.Errorf("corroborated outcome = %s, want DE_ESCALATE", corroborated.Outcome)
	}
}

func TestEvaluateEscalationWinsTies(t *testing.T) {
	e := NewEvaluator(DefaultRules())

	decision := e.Evaluate([]store.Turn{
		turn(store.SpeakerPatient, "it might be paint but it looks like a growing mole"),
		turn(store.SpeakerAssistant, "Could it be paint on your skin?"),
		turn(store.SpeakerPatient, "yes, probably paint"),
	})
	if decision.Outcome != store.OutcomeEscalate {
		t.Errorf("outcome = %s, want ESCALATE when both signals are present", decision.Outcome)
	}
}

func TestEvaluateIsDeterministic(t *testing.T) {
	e := NewEvaluator(DefaultRules())
	transcript := []store.Turn{
		turn(store.SpeakerPatient, "the mole is dark and growing"),
	}

	first := e.Evaluate(transcript)
	for i := 0; i < 10; i++ {
		if got := e.Evaluate(transcript); got != first {
			t.Fatalf("evaluation %d differed: %+v vs %+v", i, got, first)
		}
	}
}

func TestEvaluateCorroborationOrderMatters(t *testing.T) {
	e := NewEvaluator(DefaultRules())

	// Affirmative answer BEFORE the question must not corroborate.
	decision := e.Evaluate([]store.Turn{
		turn(store.SpeakerPatient, "yes, a spot that could be paint"),
		turn(store.SpeakerAssistant, "Could it be paint on your skin?"),
	})
	if decision.Outcome != store.OutcomeContinue {
		t.Errorf("outcome = %s, want CONTINUE when the answer precedes the question", decision.Outcome)
	}
}

func TestDefaultRulesPhrasesAreLowercase(t *testing.T) {
	for _, rule := range DefaultRules().Escalation {
		for _, phrase := range rule.Phrases {
			if phrase != strings.ToLower(phrase) {
				t.Errorf("phrase %q is not lowercase; matching is case-insensitive on lowered input", phrase)
			}
		}
	}
}
