package genpipe

import (
	"context"
	"strings"
)

// ResearchUnavailable substitutes for research text when every candidate
// fails. Generation proceeds with it; research is never fatal to a job.
const ResearchUnavailable = "No supplemental research was available for this topic."

// researchSummaryMaxLen bounds what gets persisted into generation metadata.
const researchSummaryMaxLen = 1200

// ResearchContext is the once-per-job output of the optional research phase.
// Immutable after creation.
type ResearchContext struct {
	Text          string
	SourceQueries []string
	ModelUsed     string
	Succeeded     bool
}

// Summary returns the research text clipped for storage.
func (r ResearchContext) Summary() string {
	s := strings.TrimSpace(r.Text)
	if len(s) <= researchSummaryMaxLen {
		return s
	}
	return strings.TrimSpace(s[:researchSummaryMaxLen])
}

// RunResearch executes the research phase through the invoker's fallback
// walk. On total failure it returns the placeholder context instead of an
// error.
func RunResearch(ctx context.Context, inv *ModelInvoker, candidates []string, prompt string) ResearchContext {
	text, queries, model, err := inv.Research(ctx, candidates, prompt)
	if err != nil || strings.TrimSpace(text) == "" {
		return ResearchContext{Text: ResearchUnavailable}
	}
	return ResearchContext{
		Text:          text,
		SourceQueries: queries,
		ModelUsed:     model,
		Succeeded:     true,
	}
}
