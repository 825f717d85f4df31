package validate

import (
	"fmt"
	"strings"

	"github.com/coursegen/coursegen-backend/internal/domain"
	"github.com/coursegen/coursegen-backend/internal/genpipe"
)

// PlanRules validates an instructional plan against the artifact's flattened
// lesson list: full coverage, substantive learning objectives, and concrete
// activities per lesson plan.
type PlanRules struct {
	Lessons         []domain.FlatLesson
	MinObjectiveLen int
}

func DefaultPlanRules(lessons []domain.FlatLesson) PlanRules {
	return PlanRules{Lessons: lessons, MinObjectiveLen: 50}
}

func (r PlanRules) Validate(payload map[string]any) domain.ValidationReport {
	plans := genpipe.MapsAt(payload, "lesson_plans")

	results := []domain.ValidationResult{
		ExactCount("plan_count", "lesson plans (one per lesson)", len(plans), len(r.Lessons)),
	}

	planned := make(map[string]bool, len(plans))
	for _, p := range plans {
		planned[strings.ToLower(strings.TrimSpace(genpipe.StringAt(p, "lesson_id")))] = true
	}
	for _, lesson := range r.Lessons {
		id := strings.ToLower(lesson.LessonID.String())
		if planned[id] {
			results = append(results, domain.ValidationResult{
				Code:    "lesson_covered_" + id,
				Message: fmt.Sprintf("lesson %q has a plan", lesson.Title),
				Passed:  true,
			})
		} else {
			results = append(results, domain.ValidationResult{
				Code:    "lesson_covered_" + id,
				Message: fmt.Sprintf("lesson %q (%s) has no lesson plan", lesson.Title, lesson.LessonID),
			})
		}
	}

	for i, p := range plans {
		prefix := fmt.Sprintf("plan_%d", i+1)
		results = append(results, AtLeastLength(prefix+"_objective", fmt.Sprintf("lesson plan %d learning objective", i+1), genpipe.StringAt(p, "objective"), r.MinObjectiveLen))
		if len(genpipe.StringsAt(p, "activities")) == 0 {
			results = append(results, domain.ValidationResult{
				Code:    prefix + "_activities",
				Message: fmt.Sprintf("lesson plan %d lists no activities", i+1),
			})
		} else {
			results = append(results, domain.ValidationResult{
				Code:    prefix + "_activities",
				Message: fmt.Sprintf("lesson plan %d lists activities", i+1),
				Passed:  true,
			})
		}
	}

	return domain.NewValidationReport(results)
}
