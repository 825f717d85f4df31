package prompts

// Input is a superset of the fields any prompt might need. Unused fields stay
// zero; renderers pick what they declare.
type Input struct {
	// Course framing
	Title       string
	CentralIdea string
	Route       string

	// Admin-supplied objectives, one per line.
	ObjectivesBlock string
	ObjectiveCount  int

	// Raw phase-1 form input rendered as a field list.
	FormBlock string

	// Research phase output (or its unavailable placeholder).
	Research string

	// Failed-check feedback from the prior attempt; empty on the first.
	Feedback string

	// Plan generation
	LessonsBlock string
	TotalLessons int
	CustomPrompt string

	// Plan review
	PlanJSON string
}
