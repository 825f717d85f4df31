package validate

import (
	"fmt"

	"github.com/coursegen/coursegen-backend/internal/domain"
	"github.com/coursegen/coursegen-backend/internal/genpipe"
)

// ArtifactRules validates the phase-1 base payload: course name options,
// objectives, and description.
type ArtifactRules struct {
	NameOptionCount   int
	MinObjectives     int
	MaxObjectives     int
	MinDescriptionLen int
	AllowedVerbs      []string
}

func DefaultArtifactRules() ArtifactRules {
	return ArtifactRules{
		NameOptionCount:   3,
		MinObjectives:     3,
		MaxObjectives:     8,
		MinDescriptionLen: 30,
		AllowedVerbs:      DefaultBloomVerbs,
	}
}

func (r ArtifactRules) Validate(payload map[string]any) domain.ValidationReport {
	names := genpipe.StringsAt(payload, "name_options")
	objectives := genpipe.StringsAt(payload, "objectives")

	results := []domain.ValidationResult{
		ExactCount("name_options", "name options", len(names), r.NameOptionCount),
		RangeCount("objective_count", "objectives", len(objectives), r.MinObjectives, r.MaxObjectives),
		LongerThan("description_length", "description", genpipe.StringAt(payload, "description"), r.MinDescriptionLen),
	}
	for i, obj := range objectives {
		results = append(results, LeadingVerb(
			fmt.Sprintf("objective_%d_verb", i+1),
			fmt.Sprintf("objective %d", i+1),
			obj,
			r.AllowedVerbs,
		))
	}
	return domain.NewValidationReport(results)
}
