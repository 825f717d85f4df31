package prompts

import "github.com/coursegen/coursegen-backend/internal/genpipe"

const artifactUserTmpl = `Course intake form:
{{form}}

Supplemental research:
{{research}}

Produce the course foundation:
- exactly 3 distinct course name options
- 3 to 8 learning objectives, each starting with an action verb from the accepted taxonomy
- a course description of more than 30 characters

{{feedback}}`

func init() {
	register(Template{
		Name:       PromptArtifactBase,
		SchemaName: "artifact_base",
		Schema: func() map[string]any {
			return objectSchema(map[string]any{
				"name_options": stringArraySchema(),
				"objectives":   stringArraySchema(),
				"description":  stringSchema(),
			}, []string{"name_options", "objectives", "description"})
		},
		System: func(Input) string {
			return "You design the foundation of professional online courses. " +
				"Write in the course language, keep titles specific, and never invent topics absent from the intake form."
		},
		User: func(in Input) (string, error) {
			return genpipe.RenderTemplate(artifactUserTmpl, map[string]string{
				"form":     in.FormBlock,
				"research": in.Research,
				"feedback": in.Feedback,
			})
		},
	})
}
