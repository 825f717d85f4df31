package domain

// Entity states for artifacts, instructional plans, and lessons. One pipeline
// run moves an entity forward through at most one transition; mid-attempt
// states are never persisted.
const (
	StateDraft              = "draft"
	StateGenerating         = "generating"
	StateValidating         = "validating"
	StateReadyForQA         = "ready_for_qa"
	StateEscalated          = "escalated"
	StateNeedsFix           = "needs_fix"
	StateApprovable         = "approvable"
	StateStepReadyForReview = "step_ready_for_review"
	// StateError marks a run that aborted before or outside validation. It is
	// deliberately distinct from the validation-failure states above.
	StateError = "error"
)

// OutcomeState maps a finished run's validation verdict to the entity state
// each job type transitions into.
func OutcomeState(jobType string, allPassed bool) string {
	switch jobType {
	case JobTypeSyllabusGenerate, JobTypeArtifactGenerate:
		if allPassed {
			return StateReadyForQA
		}
		return StateEscalated
	case JobTypePlanGenerate:
		if allPassed {
			return StateStepReadyForReview
		}
		return StateNeedsFix
	case JobTypePlanValidate, JobTypeMaterialsValidate:
		if allPassed {
			return StateApprovable
		}
		return StateNeedsFix
	default:
		if allPassed {
			return StateReadyForQA
		}
		return StateEscalated
	}
}

// ReduceStates folds child lesson states into the aggregate entity state:
// approvable only when every child reached approvable, needs_fix otherwise.
// An empty child set is treated as needing attention, never as approved.
func ReduceStates(children []string) string {
	if len(children) == 0 {
		return StateNeedsFix
	}
	for _, s := range children {
		if s != StateApprovable {
			return StateNeedsFix
		}
	}
	return StateApprovable
}
