package prompts

import (
	"strconv"

	"github.com/coursegen/coursegen-backend/internal/genpipe"
)

const planUserTmpl = `Course title: {{title}}

Lessons to plan ({{total_lessons}} total, with module context):
{{lessons}}

Supplemental research:
{{research}}

Write one lesson plan per lesson:
- reference each lesson by its lesson_id exactly as given
- a learning objective of at least 50 characters per plan
- concrete activities and an assessment per plan
- component suggestions consistent with the lesson's expected components

{{feedback}}`

const planQualityUserTmpl = `Instructional plan under review:
{{plan}}

Score the plan from 0 to 100 for pedagogical quality and coherence with the
lesson list. List concrete blockers a reviewer must resolve before approval.
An empty blocker list means nothing blocks approval.`

func init() {
	register(Template{
		Name:       PromptPlan,
		SchemaName: "instructional_plan",
		Schema: func() map[string]any {
			plan := objectSchema(map[string]any{
				"lesson_id":  stringSchema(),
				"objective":  stringSchema(),
				"activities": stringArraySchema(),
				"assessment": stringSchema(),
				"components": stringArraySchema(),
			}, []string{"lesson_id", "objective", "activities", "assessment", "components"})
			return objectSchema(map[string]any{
				"lesson_plans": arraySchema(plan),
			}, []string{"lesson_plans"})
		},
		System: func(Input) string {
			return "You write instructional plans for online course lessons. " +
				"Every plan must be actionable by an instructor without further context."
		},
		User: func(in Input) (string, error) {
			return genpipe.RenderTemplate(planUserTmpl, map[string]string{
				"title":         in.Title,
				"lessons":       in.LessonsBlock,
				"total_lessons": strconv.Itoa(in.TotalLessons),
				"research":      in.Research,
				"feedback":      in.Feedback,
			})
		},
	})

	register(Template{
		Name:       PromptPlanQuality,
		SchemaName: "plan_quality_review",
		Schema: func() map[string]any {
			return objectSchema(map[string]any{
				"score":    intSchema(),
				"blockers": stringArraySchema(),
			}, []string{"score", "blockers"})
		},
		System: func(Input) string {
			return "You are a strict instructional-design reviewer. Judge only what is in the plan."
		},
		User: func(in Input) (string, error) {
			return genpipe.RenderTemplate(planQualityUserTmpl, map[string]string{
				"plan": in.PlanJSON,
			})
		},
	})
}

const researchTmpl = `Research current, reputable material for an online course about: {{central_idea}}.
Summarize the most relevant findings, facts, and sources an instructional designer should know. Be concise and factual.`

// ResearchPrompt renders the freeform web-search prompt used by the research
// phase.
func ResearchPrompt(in Input) (string, error) {
	return genpipe.RenderTemplate(researchTmpl, map[string]string{
		"central_idea": in.CentralIdea,
	})
}
