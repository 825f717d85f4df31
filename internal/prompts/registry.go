package prompts

import (
	"fmt"
	"strings"
)

type PromptName string

const (
	PromptArtifactBase  PromptName = "artifact_base"
	PromptSyllabus      PromptName = "syllabus"
	PromptPlan          PromptName = "instructional_plan"
	PromptPlanQuality   PromptName = "plan_quality_review"
	PromptTopicResearch PromptName = "topic_research"
)

// Prompt is a fully rendered call: system + user text plus the strict output
// schema the model must satisfy.
type Prompt struct {
	Name       string
	SchemaName string
	Schema     map[string]any
	System     string
	User       string
}

// Template pairs schema and renderers for one prompt. User renderers may fail
// when template placeholders cannot be resolved.
type Template struct {
	Name       PromptName
	SchemaName string
	Schema     func() map[string]any
	System     func(Input) string
	User       func(Input) (string, error)
}

var registry = map[PromptName]Template{}

func register(t Template) {
	registry[t.Name] = t
}

// Build renders a registered prompt for the given input.
func Build(name PromptName, in Input) (Prompt, error) {
	t, ok := registry[name]
	if !ok {
		return Prompt{}, fmt.Errorf("unknown prompt: %s", string(name))
	}
	if t.Schema == nil || t.System == nil || t.User == nil {
		return Prompt{}, fmt.Errorf("prompt %s is incomplete", string(name))
	}
	user, err := t.User(in)
	if err != nil {
		return Prompt{}, fmt.Errorf("%s: %w", string(name), err)
	}
	return Prompt{
		Name:       string(t.Name),
		SchemaName: strings.TrimSpace(t.SchemaName),
		Schema:     t.Schema(),
		System:     strings.TrimSpace(t.System(in)),
		User:       strings.TrimSpace(user),
	}, nil
}
