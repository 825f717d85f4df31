package validate

import (
	"fmt"
	"strings"

	"github.com/coursegen/coursegen-backend/internal/domain"
	"github.com/coursegen/coursegen-backend/internal/genpipe"
)

// SyllabusRules validates a generated syllabus: one module per supplied
// objective in the same order, a bounded lesson count per module, and
// substantive module descriptions.
type SyllabusRules struct {
	Objectives          []string
	MinLessonsPerModule int
	MaxLessonsPerModule int
	MinDescriptionLen   int
}

func DefaultSyllabusRules(objectives []string) SyllabusRules {
	return SyllabusRules{
		Objectives:          objectives,
		MinLessonsPerModule: 3,
		MaxLessonsPerModule: 6,
		MinDescriptionLen:   30,
	}
}

func (r SyllabusRules) Validate(payload map[string]any) domain.ValidationReport {
	modules := genpipe.MapsAt(payload, "modules")

	results := []domain.ValidationResult{
		ExactCount("module_count", "modules (one per objective)", len(modules), len(r.Objectives)),
	}

	for i, mod := range modules {
		prefix := fmt.Sprintf("module_%d", i+1)

		if i < len(r.Objectives) {
			want := strings.TrimSpace(r.Objectives[i])
			got := strings.TrimSpace(genpipe.StringAt(mod, "objective"))
			if strings.EqualFold(got, want) {
				results = append(results, domain.ValidationResult{
					Code:    prefix + "_objective_order",
					Message: fmt.Sprintf("module %d matches objective %d", i+1, i+1),
					Passed:  true,
				})
			} else {
				results = append(results, domain.ValidationResult{
					Code:    prefix + "_objective_order",
					Message: fmt.Sprintf("module %d must address objective %d (%q), got %q", i+1, i+1, want, got),
				})
			}
		}

		results = append(results, LongerThan(prefix+"_description", fmt.Sprintf("module %d description", i+1), genpipe.StringAt(mod, "description"), r.MinDescriptionLen))

		lessons := genpipe.MapsAt(mod, "lessons")
		results = append(results, RangeCount(prefix+"_lessons", fmt.Sprintf("lessons in module %d", i+1), len(lessons), r.MinLessonsPerModule, r.MaxLessonsPerModule))

		for j, lesson := range lessons {
			if strings.TrimSpace(genpipe.StringAt(lesson, "title")) == "" {
				results = append(results, domain.ValidationResult{
					Code:    fmt.Sprintf("%s_lesson_%d_title", prefix, j+1),
					Message: fmt.Sprintf("lesson %d in module %d is missing a title", j+1, i+1),
				})
			} else {
				results = append(results, domain.ValidationResult{
					Code:    fmt.Sprintf("%s_lesson_%d_title", prefix, j+1),
					Message: fmt.Sprintf("lesson %d in module %d has a title", j+1, i+1),
					Passed:  true,
				})
			}
			if len(genpipe.StringsAt(lesson, "expected_components")) == 0 {
				results = append(results, domain.ValidationResult{
					Code:    fmt.Sprintf("%s_lesson_%d_components", prefix, j+1),
					Message: fmt.Sprintf("lesson %d in module %d declares no expected components", j+1, i+1),
				})
			} else {
				results = append(results, domain.ValidationResult{
					Code:    fmt.Sprintf("%s_lesson_%d_components", prefix, j+1),
					Message: fmt.Sprintf("lesson %d in module %d declares expected components", j+1, i+1),
					Passed:  true,
				})
			}
		}
	}

	return domain.NewValidationReport(results)
}
