package pipeline

import (
	"context"
	"fmt"

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

// SyllabusGeneratePipeline builds the module/lesson structure for an artifact
// whose objectives were already accepted. An accepted syllabus is materialized
// into module and lesson rows; an exhausted one is still persisted as JSON so
// reviewers can inspect what the model produced.
type SyllabusGeneratePipeline struct {
	db           *gorm.DB
	log          *logger.Logger
	artifactRepo generation.ArtifactRepo
	moduleRepo   generation.ModuleRepo
	lessonRepo   generation.LessonRepo
	inv          *genpipe.ModelInvoker
	cfg          genpipe.Config
}

func NewSyllabusGeneratePipeline(
	db *gorm.DB,
	baseLog *logger.Logger,
	artifactRepo generation.ArtifactRepo,
	moduleRepo generation.ModuleRepo,
	lessonRepo generation.LessonRepo,
	inv *genpipe.ModelInvoker,
	cfg genpipe.Config,
) *SyllabusGeneratePipeline {
	return &SyllabusGeneratePipeline{
		db:           db,
		log:          baseLog.With("job", domain.JobTypeSyllabusGenerate),
		artifactRepo: artifactRepo,
		moduleRepo:   moduleRepo,
		lessonRepo:   lessonRepo,
		inv:          inv,
		cfg:          cfg.WithDefaults(),
	}
}

func (p *SyllabusGeneratePipeline) Type() string { return domain.JobTypeSyllabusGenerate }

func (p *SyllabusGeneratePipeline) Run(jc *runtime.Context) error {
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
	objectives := decodeStrings(artifact.Objectives)
	if len(objectives) == 0 {
		jc.Fail("validate", fmt.Errorf("artifact %s has no accepted objectives", artifactID))
		return nil
	}

	if err := p.artifactRepo.UpdateFields(dbc, artifactID, map[string]interface{}{
		"state": domain.StateGenerating,
	}); err != nil {
		jc.Fail("validate", fmt.Errorf("mark generating: %w", err))
		return nil
	}

	jc.Progress("research", 10, "Researching the course topic")
	researchPrompt, err := prompts.ResearchPrompt(prompts.Input{CentralIdea: artifact.CentralIdea})
	if err != nil {
		jc.Fail("research", err)
		return nil
	}
	research := genpipe.RunResearch(ctx, p.inv, p.cfg.ResearchModels, researchPrompt)

	jc.Progress("generate", 30, "Generating the course syllabus")
	rules := validate.DefaultSyllabusRules(objectives)

	gen := func(ctx context.Context, attempt int, feedback []string) (map[string]any, string, error) {
		pr, err := prompts.Build(prompts.PromptSyllabus, prompts.Input{
			Title:           artifact.Title,
			CentralIdea:     artifact.CentralIdea,
			Route:           artifact.Route,
			ObjectivesBlock: objectivesBlock(objectives),
			ObjectiveCount:  len(objectives),
			Research:        research.Text,
			Feedback:        genpipe.FeedbackBlock(feedback),
		})
		if err != nil {
			return nil, "", err
		}
		return p.inv.GenerateJSON(ctx, p.cfg.ModelCandidates, pr.System, pr.User, pr.SchemaName, pr.Schema)
	}

	outcome, err := genpipe.Run(ctx, p.cfg, gen, rules.Validate, p.log)
	if err != nil {
		jc.Fail("generate", err)
		return nil
	}

	jc.Progress("persist", 80, "Persisting the syllabus")
	moduleCount := 0
	if outcome.Succeeded {
		n, err := p.materialize(dbc, artifactID, outcome.Payload)
		if err != nil {
			jc.Fail("persist", err)
			return nil
		}
		moduleCount = n
	}

	state := domain.OutcomeState(domain.JobTypeSyllabusGenerate, outcome.Succeeded)
	meta := generationMeta(outcome, research, map[string]any{
		"objectives": objectives,
	})
	updates := map[string]interface{}{
		"state":               state,
		"validation_report":   mustJSON(outcome.Report),
		"generation_metadata": mustJSON(meta),
	}
	if outcome.Payload != nil {
		updates["syllabus"] = mustJSON(outcome.Payload)
	}
	if err := p.artifactRepo.UpdateFields(dbc, artifactID, updates); err != nil {
		jc.Fail("persist", fmt.Errorf("update artifact: %w", err))
		return nil
	}

	p.log.Info("syllabus generation finished",
		"artifact_id", artifactID, "state", state,
		"modules", moduleCount, "attempts", outcome.Attempts, "model", outcome.ModelUsed)

	jc.Succeed("done", map[string]any{
		"artifact_id":  artifactID.String(),
		"state":        state,
		"module_count": moduleCount,
		"attempts":     outcome.Attempts,
	})
	return nil
}

// materialize replaces the artifact's module and lesson rows with the
// accepted payload inside one transaction, so a rerun never leaves a mix of
// old and new structure.
func (p *SyllabusGeneratePipeline) materialize(dbc dbctx.Context, artifactID uuid.UUID, payload map[string]any) (int, error) {
	mods := genpipe.MapsAt(payload, "modules")
	if len(mods) == 0 {
		return 0, fmt.Errorf("accepted syllabus has no modules")
	}

	var moduleCount int
	err := p.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		if err := p.lessonRepo.DeleteByArtifactID(txc, artifactID); err != nil {
			return fmt.Errorf("clear lessons: %w", err)
		}
		if err := p.moduleRepo.DeleteByArtifactID(txc, artifactID); err != nil {
			return fmt.Errorf("clear modules: %w", err)
		}

		modules := make([]*domain.Module, 0, len(mods))
		for i, mm := range mods {
			modules = append(modules, &domain.Module{
				ID:          uuid.New(),
				ArtifactID:  artifactID,
				Index:       i,
				Title:       genpipe.StringAt(mm, "title"),
				Description: genpipe.StringAt(mm, "description"),
				Metadata: mustJSON(map[string]any{
					"objective": genpipe.StringAt(mm, "objective"),
				}),
			})
		}
		if _, err := p.moduleRepo.Create(txc, modules); err != nil {
			return fmt.Errorf("create modules: %w", err)
		}

		lessons := make([]*domain.Lesson, 0)
		for mi, mm := range mods {
			for li, lm := range genpipe.MapsAt(mm, "lessons") {
				lessons = append(lessons, &domain.Lesson{
					ID:                 uuid.New(),
					ArtifactID:         artifactID,
					ModuleID:           modules[mi].ID,
					Index:              li,
					Title:              genpipe.StringAt(lm, "title"),
					Summary:            genpipe.StringAt(lm, "summary"),
					ExpectedComponents: mustJSON(genpipe.StringsAt(lm, "expected_components")),
					State:              domain.StateDraft,
				})
			}
		}
		if _, err := p.lessonRepo.Create(txc, lessons); err != nil {
			return fmt.Errorf("create lessons: %w", err)
		}
		moduleCount = len(modules)
		return nil
	})
	return moduleCount, err
}
