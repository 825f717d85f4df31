package pipeline

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
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

// PlanGeneratePipeline writes one instructional plan per syllabus lesson.
// The trigger may carry a custom prompt template; it is rendered against the
// same variables as the stock prompt and rejected if it references unknown
// placeholders.
type PlanGeneratePipeline struct {
	db           *gorm.DB
	log          *logger.Logger
	artifactRepo generation.ArtifactRepo
	moduleRepo   generation.ModuleRepo
	lessonRepo   generation.LessonRepo
	planRepo     generation.PlanRepo
	inv          *genpipe.ModelInvoker
	cfg          genpipe.Config
}

func NewPlanGeneratePipeline(
	db *gorm.DB,
	baseLog *logger.Logger,
	artifactRepo generation.ArtifactRepo,
	moduleRepo generation.ModuleRepo,
	lessonRepo generation.LessonRepo,
	planRepo generation.PlanRepo,
	inv *genpipe.ModelInvoker,
	cfg genpipe.Config,
) *PlanGeneratePipeline {
	return &PlanGeneratePipeline{
		db:           db,
		log:          baseLog.With("job", domain.JobTypePlanGenerate),
		artifactRepo: artifactRepo,
		moduleRepo:   moduleRepo,
		lessonRepo:   lessonRepo,
		planRepo:     planRepo,
		inv:          inv,
		cfg:          cfg.WithDefaults(),
	}
}

func (p *PlanGeneratePipeline) Type() string { return domain.JobTypePlanGenerate }

func (p *PlanGeneratePipeline) Run(jc *runtime.Context) error {
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
	artifact, err := p.artifactRepo.GetByID(dbc, artifactID)
	if err != nil {
		jc.Fail("validate", fmt.Errorf("load artifact: %w", err))
		return nil
	}
	if artifact == nil {
		jc.Fail("validate", fmt.Errorf("artifact %s not found", artifactID))
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
	if len(lessons) == 0 {
		// A plan without lessons is not a validation verdict; the run itself
		// is broken, so any existing plan row is parked in the error state.
		p.markExistingPlanError(dbc, artifactID)
		jc.Fail("validate", fmt.Errorf("no lessons found to plan"))
		return nil
	}

	customPrompt := strings.TrimSpace(jc.PayloadString("custom_prompt"))

	jc.Progress("research", 10, "Researching the course topic")
	researchPrompt, err := prompts.ResearchPrompt(prompts.Input{CentralIdea: artifact.CentralIdea})
	if err != nil {
		jc.Fail("research", err)
		return nil
	}
	research := genpipe.RunResearch(ctx, p.inv, p.cfg.ResearchModels, researchPrompt)

	jc.Progress("generate", 30, "Generating the instructional plan")
	rules := validate.DefaultPlanRules(lessons)
	block := lessonsBlock(lessons)

	gen := func(ctx context.Context, attempt int, feedback []string) (map[string]any, string, error) {
		in := prompts.Input{
			Title:        artifact.Title,
			LessonsBlock: block,
			TotalLessons: len(lessons),
			Research:     research.Text,
			Feedback:     genpipe.FeedbackBlock(feedback),
		}
		pr, err := prompts.Build(prompts.PromptPlan, in)
		if err != nil {
			return nil, "", err
		}
		if customPrompt != "" {
			user, err := genpipe.RenderTemplate(customPrompt, map[string]string{
				"title":         in.Title,
				"lessons":       in.LessonsBlock,
				"total_lessons": strconv.Itoa(in.TotalLessons),
				"research":      in.Research,
				"feedback":      in.Feedback,
			})
			if err != nil {
				return nil, "", fmt.Errorf("custom prompt: %w", err)
			}
			pr.User = user
		}
		return p.inv.GenerateJSON(ctx, p.cfg.ModelCandidates, pr.System, pr.User, pr.SchemaName, pr.Schema)
	}

	outcome, err := genpipe.Run(ctx, p.cfg, gen, rules.Validate, p.log)
	if err != nil {
		jc.Fail("generate", err)
		return nil
	}

	jc.Progress("persist", 85, "Persisting the instructional plan")
	state := domain.OutcomeState(domain.JobTypePlanGenerate, outcome.Succeeded)
	meta := generationMeta(outcome, research, map[string]any{
		"lesson_count":  len(lessons),
		"custom_prompt": customPrompt != "",
	})

	var lessonPlans []map[string]any
	if outcome.Payload != nil {
		lessonPlans = genpipe.MapsAt(outcome.Payload, "lesson_plans")
	}
	plan := &domain.InstructionalPlan{
		ID:               uuid.New(),
		ArtifactID:       artifactID,
		LessonPlans:      mustJSON(lessonPlans),
		State:            state,
		ValidationReport: mustJSON(outcome.Report),
		GenerationMeta:   mustJSON(meta),
	}
	if _, err := p.planRepo.Create(dbc, plan); err != nil {
		jc.Fail("persist", fmt.Errorf("create plan: %w", err))
		return nil
	}

	p.log.Info("plan generation finished",
		"artifact_id", artifactID, "plan_id", plan.ID, "state", state,
		"plans", len(lessonPlans), "attempts", outcome.Attempts, "model", outcome.ModelUsed)

	jc.Succeed("done", map[string]any{
		"artifact_id": artifactID.String(),
		"plan_id":     plan.ID.String(),
		"state":       state,
		"count":       len(lessonPlans),
		"attempts":    outcome.Attempts,
	})
	return nil
}

func (p *PlanGeneratePipeline) markExistingPlanError(dbc dbctx.Context, artifactID uuid.UUID) {
	plan, err := p.planRepo.GetByArtifactID(dbc, artifactID)
	if err != nil || plan == nil {
		return
	}
	if err := p.planRepo.UpdateFields(dbc, plan.ID, map[string]interface{}{
		"state": domain.StateError,
	}); err != nil {
		p.log.Warn("mark plan error failed", "plan_id", plan.ID, "error", err)
	}
}
