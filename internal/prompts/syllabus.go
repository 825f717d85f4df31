package prompts

import (
	"strconv"

	"github.com/coursegen/coursegen-backend/internal/genpipe"
)

const syllabusUserTmpl = `Course title: {{title}}
Central idea: {{central_idea}}
Route: {{route}}

Learning objectives ({{objective_count}}, in order):
{{objectives}}

Supplemental research:
{{research}}

Create the course syllabus:
- exactly {{objective_count}} modules, one per objective, in the same order; each module carries its objective verbatim
- 3 to 6 lessons per module
- every module description longer than 30 characters
- every lesson declares its expected component types (e.g. READING, VIDEO, QUIZ, SOURCES)

{{feedback}}`

func init() {
	register(Template{
		Name:       PromptSyllabus,
		SchemaName: "course_syllabus",
		Schema: func() map[string]any {
			lesson := objectSchema(map[string]any{
				"title":               stringSchema(),
				"summary":             stringSchema(),
				"expected_components": stringArraySchema(),
			}, []string{"title", "summary", "expected_components"})
			module := objectSchema(map[string]any{
				"title":       stringSchema(),
				"description": stringSchema(),
				"objective":   stringSchema(),
				"lessons":     arraySchema(lesson),
			}, []string{"title", "description", "objective", "lessons"})
			return objectSchema(map[string]any{
				"modules": arraySchema(module),
			}, []string{"modules"})
		},
		System: func(Input) string {
			return "You design structured, coherent course syllabi. " +
				"Cover every supplied objective, do not invent topics, keep titles specific and professional."
		},
		User: func(in Input) (string, error) {
			return genpipe.RenderTemplate(syllabusUserTmpl, map[string]string{
				"title":           in.Title,
				"central_idea":    in.CentralIdea,
				"route":           in.Route,
				"objectives":      in.ObjectivesBlock,
				"objective_count": strconv.Itoa(in.ObjectiveCount),
				"research":        in.Research,
				"feedback":        in.Feedback,
			})
		},
	})
}
