package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/coursegen/coursegen-backend/internal/data/repos/generation"
	"github.com/coursegen/coursegen-backend/internal/domain"
	"github.com/coursegen/coursegen-backend/internal/genpipe"
	"github.com/coursegen/coursegen-backend/internal/genpipe/validate"
	"github.com/coursegen/coursegen-backend/internal/jobs/runtime"
	"github.com/coursegen/coursegen-backend/internal/pkg/dbctx"
	"github.com/coursegen/coursegen-backend/internal/pkg/logger"
	"github.com/coursegen/coursegen-backend/internal/prompts"
)

// minQualityScore is the review score below which a plan cannot be approved.
const minQualityScore = 70

// PlanValidatePipeline re-checks the latest stored plan in a single pass:
// the structural rules run first, then a model review scores pedagogical
// quality and raises blockers. There is no retry here; a failing plan goes to
// needs_fix with the full report attached.
type PlanValidatePipeline struct {
	db           *gorm.DB
	log          *logger.Logger
	artifactRepo generation.ArtifactRepo
	moduleRepo   generation.ModuleRepo
	lessonRepo   generation.LessonRepo
	planRepo     generation.PlanRepo
	inv          *genpipe.ModelInvoker
	cfg          genpipe.Config
}

func NewPlanValidatePipeline(
	db *gorm.DB,
	baseLog *logger.Logger,
	artifactRepo generation.ArtifactRepo,
	moduleRepo generation.ModuleRepo,
	lessonRepo generation.LessonRepo,
	planRepo generation.PlanRepo,
	inv *genpipe.ModelInvoker,
	cfg genpipe.Config,
) *PlanValidatePipeline {
	return &PlanValidatePipeline{
		db:           db,
		log:          baseLog.With("job", domain.JobTypePlanValidate),
		artifactRepo: artifactRepo,
		moduleRepo:   moduleRepo,
		lessonRepo:   lessonRepo,
		planRepo:     planRepo,
		inv:          inv,
		cfg:          cfg.WithDefaults(),
	}
}

func (p *PlanValidatePipeline) Type() string { return domain.JobTypePlanValidate }

func (p *PlanValidatePipeline) Run(jc *runtime.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(jc.Ctx, p.cfg.Timeout)
	defer cancel()
	dbc := dbctx.New(ctx)

	artifactID, ok := jc.PayloadUUID("artifact_id")
	if !ok || artifactID == uuid.Nil {
		jc.Fail("validate", fmt.Errorf("missing artifact_id"))
		return nil
	}
	plan, err := p.planRepo.GetByArtifactID(dbc, artifactID)
	if err != nil {
		jc.Fail("validate", fmt.Errorf("load plan: %w", err))
		return nil
	}
	if plan == nil {
		jc.Fail("validate", fmt.Errorf("no instructional plan exists for artifact %s", artifactID))
		return nil
	}

	modules, err := p.moduleRepo.GetByArtifactID(dbc, artifactID)
	if err != nil {
		jc.Fail("validate", fmt.Errorf("load modules: %w", err))
		return nil
	}
	lessonRows, err := p.lessonRepo.GetByArtifactID(dbc, artifactID)
	if err != nil {
		jc.Fail("validate", fmt.Errorf("load lessons: %w", err))
		return nil
	}
	lessons := flattenLessons(modules, lessonRows)

	if err := p.planRepo.UpdateFields(dbc, plan.ID, map[string]interface{}{
		"state": domain.StateValidating,
	}); err != nil {
		jc.Fail("validate", fmt.Errorf("mark validating: %w", err))
		return nil
	}

	jc.Progress("rules", 20, "Running structural plan checks")
	lessonPlans, corrupt := decodeLessonPlans(plan.LessonPlans)
	payload := map[string]any{"lesson_plans": lessonPlans}
	report := validate.DefaultPlanRules(lessons).Validate(payload)
	results := report.Results
	if corrupt != nil {
		results = append(results, *corrupt)
	}

	jc.Progress("review", 50, "Reviewing pedagogical quality")
	score, blockers, reviewResult := p.reviewQuality(ctx, plan)
	results = append(results, reviewResult)
	for _, b := range blockers {
		results = append(results, domain.ValidationResult{
			Code:    "blocker",
			Message: b,
			Passed:  false,
		})
	}
	final := domain.NewValidationReport(results)

	jc.Progress("persist", 85, "Persisting the validation verdict")
	state := domain.OutcomeState(domain.JobTypePlanValidate, final.AllPassed)
	updates := map[string]interface{}{
		"state":             state,
		"validation_report": mustJSON(final),
		"blockers":          mustJSON(blockers),
	}
	if err := p.planRepo.UpdateFields(dbc, plan.ID, updates); err != nil {
		jc.Fail("persist", fmt.Errorf("update plan: %w", err))
		return nil
	}

	p.log.Info("plan validation finished",
		"artifact_id", artifactID, "plan_id", plan.ID,
		"state", state, "score", score, "blockers", len(blockers))

	jc.Succeed("done", map[string]any{
		"artifact_id": artifactID.String(),
		"plan_id":     plan.ID.String(),
		"state":       state,
		"score":       score,
		"blockers":    blockers,
		"report":      final,
	})
	return nil
}

// decodeLessonPlans decodes the stored plan rows. A corrupt column is
// reported as a failed check instead of being mistaken for an empty plan.
func decodeLessonPlans(raw datatypes.JSON) ([]any, *domain.ValidationResult) {
	if len(raw) == 0 {
		return nil, nil
	}
	var plans []any
	if err := json.Unmarshal(raw, &plans); err != nil {
		return nil, &domain.ValidationResult{
			Code:    genpipe.CodeModelOutput,
			Message: fmt.Sprintf("stored lesson plans are not valid JSON: %v", err),
			Passed:  false,
		}
	}
	return plans, nil
}

// reviewQuality runs the model review and folds it into one check. A failed
// model call is a failed check, never a skipped one: an unreviewed plan must
// not become approvable by accident.
func (p *PlanValidatePipeline) reviewQuality(ctx context.Context, plan *domain.InstructionalPlan) (int, []string, domain.ValidationResult) {
	pr, err := prompts.Build(prompts.PromptPlanQuality, prompts.Input{
		PlanJSON: string(plan.LessonPlans),
	})
	if err != nil {
		return 0, nil, domain.ValidationResult{
			Code:    genpipe.CodeModelOutput,
			Message: fmt.Sprintf("build review prompt: %v", err),
			Passed:  false,
		}
	}
	out, model, err := p.inv.GenerateJSON(ctx, p.cfg.ModelCandidates, pr.System, pr.User, pr.SchemaName, pr.Schema)
	if err != nil {
		return 0, nil, domain.ValidationResult{
			Code:    genpipe.CodeModelOutput,
			Message: fmt.Sprintf("quality review failed: %v", err),
			Passed:  false,
		}
	}
	score := 0
	switch v := out["score"].(type) {
	case float64:
		score = int(v)
	case int:
		score = v
	}
	blockers := genpipe.StringsAt(out, "blockers")
	p.log.Debug("plan quality reviewed", "plan_id", plan.ID, "score", score, "model", model)

	if score < minQualityScore {
		return score, blockers, domain.ValidationResult{
			Code:    "quality_score",
			Message: fmt.Sprintf("quality score %d below the %d approval threshold", score, minQualityScore),
			Passed:  false,
		}
	}
	return score, blockers, domain.ValidationResult{
		Code:    "quality_score",
		Message: fmt.Sprintf("quality score %d", score),
		Passed:  true,
	}
}
