package validate

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"gorm.io/datatypes"

	"github.com/coursegen/coursegen-backend/internal/domain"
)

// Component tag values used by lesson content.
const (
	ComponentQuiz    = "QUIZ"
	ComponentSources = "SOURCES"
)

// QuizQuestion is one quiz item inside a QUIZ component.
type QuizQuestion struct {
	Text        string   `json:"text"`
	Options     []string `json:"options,omitempty"`
	Answer      string   `json:"answer,omitempty"`
	Explanation string   `json:"explanation"`
}

// Component is one generated content block on a lesson.
type Component struct {
	Type      string         `json:"type"`
	Text      string         `json:"text,omitempty"`
	Sources   []string       `json:"sources,omitempty"`
	Questions []QuizQuestion `json:"questions,omitempty"`
}

// ParseComponents decodes a lesson's stored component list. A nil or empty
// column decodes to an empty slice, not an error.
func ParseComponents(raw datatypes.JSON) ([]Component, error) {
	if len(raw) == 0 {
		return []Component{}, nil
	}
	var out []Component
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse lesson components: %w", err)
	}
	return out, nil
}

// MaterialsRules drives the per-lesson definition-of-done evaluation.
type MaterialsRules struct {
	MinSummaryLen     int
	MinComponentLen   int
	MinQuizQuestions  int
	MinExplanationLen int
}

func DefaultMaterialsRules() MaterialsRules {
	return MaterialsRules{
		MinSummaryLen:     30,
		MinComponentLen:   30,
		MinQuizQuestions:  3,
		MinExplanationLen: 10,
	}
}

// Evaluate computes the DoD for one lesson. Pure: same inputs, same record.
// Each expected-but-missing component fails the control that owns it and is
// reported by name.
func (r MaterialsRules) Evaluate(summary string, expected []string, components []Component) domain.DoD {
	dod := domain.DoD{
		Control3Consistency: true,
		Control4Sources:     true,
		Control5Quiz:        true,
		Errors:              []string{},
	}

	fail := func(control *bool, msg string) {
		*control = false
		dod.Errors = append(dod.Errors, msg)
	}

	// Control 3: narrative consistency. Summary and every prose block must be
	// substantive.
	if utf8.RuneCountInString(strings.TrimSpace(summary)) <= r.MinSummaryLen {
		fail(&dod.Control3Consistency, fmt.Sprintf("lesson summary must be longer than %d characters", r.MinSummaryLen))
	}

	var tags []string
	var quiz *Component
	var sources *Component
	for i := range components {
		comp := components[i]
		tag := strings.ToUpper(strings.TrimSpace(comp.Type))
		tags = append(tags, tag)
		switch tag {
		case ComponentQuiz:
			if quiz == nil {
				quiz = &components[i]
			}
		case ComponentSources:
			if sources == nil {
				sources = &components[i]
			}
		default:
			if utf8.RuneCountInString(strings.TrimSpace(comp.Text)) <= r.MinComponentLen {
				fail(&dod.Control3Consistency, fmt.Sprintf("component %s text must be longer than %d characters", tag, r.MinComponentLen))
			}
		}
	}

	for _, missing := range MissingComponents(expected, tags) {
		switch missing {
		case ComponentQuiz:
			fail(&dod.Control5Quiz, "missing expected component: QUIZ")
		case ComponentSources:
			fail(&dod.Control4Sources, "missing expected component: SOURCES")
		default:
			fail(&dod.Control3Consistency, "missing expected component: "+missing)
		}
	}

	// Control 4: source curation.
	if sources != nil && len(sources.Sources) == 0 {
		fail(&dod.Control4Sources, "SOURCES component lists no sources")
	}

	// Control 5: quiz depth. Applies whenever a quiz is present, expected or
	// not.
	if quiz != nil {
		if len(quiz.Questions) < r.MinQuizQuestions {
			fail(&dod.Control5Quiz, fmt.Sprintf("quiz must have at least %d questions, got %d", r.MinQuizQuestions, len(quiz.Questions)))
		}
		for i, q := range quiz.Questions {
			if utf8.RuneCountInString(strings.TrimSpace(q.Explanation)) < r.MinExplanationLen {
				fail(&dod.Control5Quiz, fmt.Sprintf("quiz question %d explanation must be at least %d characters", i+1, r.MinExplanationLen))
			}
		}
	}

	return dod
}
