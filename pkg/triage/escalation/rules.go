package escalation

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// RuleSet is the versioned, externally loaded escalation rule configuration.
// Rules are evaluated in file order so the outcome is auditable without
// reading code.
type RuleSet struct {
	Version      string             `yaml:"version"`
	Escalation   []EscalationRule   `yaml:"escalation"`
	DeEscalation []DeEscalationRule `yaml:"de_escalation"`
}

// EscalationRule matches trigger phrases for one category of urgent findings.
type EscalationRule struct {
	Category string   `yaml:"category"`
	Phrases  []string `yaml:"phrases"`
}

// DeEscalationRule matches benign-explanation cues. A match alone never
// de-escalates; the corroborating question-and-answer pair must also be
// present in the transcript.
type DeEscalationRule struct {
	Category      string        `yaml:"category"`
	Phrases       []string      `yaml:"phrases"`
	Corroboration Corroboration `yaml:"corroboration"`
}

// Corroboration describes the required Q/A exchange: an assistant turn
// containing one of QuestionContains, followed by a patient turn containing
// one of AnswerContains.
type Corroboration struct {
	QuestionContains []string `yaml:"question_contains"`
	AnswerContains   []string `yaml:"answer_contains"`
}

// LoadRules reads a rule set from a YAML file.
func LoadRules(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var rules RuleSet
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rules file: %w", err)
	}
	if len(rules.Escalation) == 0 {
		return nil, fmt.Errorf("rules file %s has no escalation rules", path)
	}
	return &rules, nil
}

// DefaultRules is the built-in rule set, used when no rules file is
// configured. Phrase lists follow the reference corpus terminology.
func DefaultRules() *RuleSet {
	return &RuleSet{
		Version: "builtin-1",
		Escalation: []EscalationRule{
			{
				Category: "suspected_malignancy",
				Phrases: []string{
					"melanoma",
					"malignant",
					"cancer",
					"tumor",
					"rapidly growing",
					"bleeding mole",
					"asymmetric lesion",
					"irregular border",
					"dark mole",
					"growing mole",
				},
			},
		},
		DeEscalation: []DeEscalationRule{
			{
				Category: "non_medical_pigment",
				Phrases: []string{
					"paint",
					"tattoo",
					"ink",
					"marker",
					"sticker",
					"henna",
					"dye",
				},
				Corroboration: Corroboration{
					QuestionContains: []string{"paint", "tattoo", "henna", "ink", "not a skin condition"},
					AnswerContains:   []string{"yes", "yeah", "correct", "that is right", "that's right", "it is", "it's"},
				},
			},
		},
	}
}
