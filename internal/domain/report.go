package domain

import "time"

// ValidationResult is the outcome of one rule applied to a generated payload.
type ValidationResult struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Passed  bool   `json:"passed"`
}

// ValidationReport is the full rule output for one attempt. Every rule always
// runs; ordering is for display only.
type ValidationReport struct {
	Results   []ValidationResult `json:"results"`
	AllPassed bool               `json:"all_passed"`
}

// NewValidationReport computes AllPassed from the results. A report with zero
// results is inconclusive and counts as not passed.
func NewValidationReport(results []ValidationResult) ValidationReport {
	r := ValidationReport{Results: results}
	if len(results) == 0 {
		return r
	}
	r.AllPassed = true
	for _, res := range results {
		if !res.Passed {
			r.AllPassed = false
			break
		}
	}
	return r
}

// FailedMessages returns the messages of failed checks, in report order.
// These are what the retry loop feeds back into the next prompt.
func (r ValidationReport) FailedMessages() []string {
	var out []string
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res.Message)
		}
	}
	return out
}

// GenerationMeta is persisted next to the accepted (or last) payload so a
// human reviewer can see how the content was produced.
type GenerationMeta struct {
	ModelUsed       string         `json:"model_used"`
	ResearchSummary string         `json:"research_summary,omitempty"`
	SearchQueries   []string       `json:"search_queries,omitempty"`
	Attempts        int            `json:"attempts"`
	OriginalInput   map[string]any `json:"original_input,omitempty"`
	GeneratedAt     time.Time      `json:"generated_at"`
}

// DoD is the per-lesson definition-of-done record written by materials
// validation.
type DoD struct {
	Control3Consistency bool     `json:"control3_consistency"`
	Control4Sources     bool     `json:"control4_sources"`
	Control5Quiz        bool     `json:"control5_quiz"`
	Errors              []string `json:"errors"`
}

func (d DoD) Passed() bool {
	return d.Control3Consistency && d.Control4Sources && d.Control5Quiz && len(d.Errors) == 0
}
