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

// ArtifactGeneratePipeline produces the course foundation from the intake
// form: three name options, validated objectives, and a description. It runs
// the bounded generate-validate loop and always leaves the last payload and
// report on the artifact, even after exhaustion.
type ArtifactGeneratePipeline struct {
	db           *gorm.DB
	log          *logger.Logger
	artifactRepo generation.ArtifactRepo
	inv          *genpipe.ModelInvoker
	cfg          genpipe.Config
}

func NewArtifactGeneratePipeline(db *gorm.DB, baseLog *logger.Logger, artifactRepo generation.ArtifactRepo, inv *genpipe.ModelInvoker, cfg genpipe.Config) *ArtifactGeneratePipeline {
	return &ArtifactGeneratePipeline{
		db:           db,
		log:          baseLog.With("job", domain.JobTypeArtifactGenerate),
		artifactRepo: artifactRepo,
		inv:          inv,
		cfg:          cfg.WithDefaults(),
	}
}

func (p *ArtifactGeneratePipeline) Type() string { return domain.JobTypeArtifactGenerate }

func (p *ArtifactGeneratePipeline) Run(jc *runtime.Context) error {
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

	if err := p.artifactRepo.UpdateFields(dbc, artifactID, map[string]interface{}{
		"state": domain.StateGenerating,
	}); err != nil {
		jc.Fail("validate", fmt.Errorf("mark generating: %w", err))
		return nil
	}

	// Research is best effort; generation proceeds with a placeholder when
	// every candidate fails.
	jc.Progress("research", 10, "Researching the course topic")
	researchPrompt, err := prompts.ResearchPrompt(prompts.Input{CentralIdea: artifact.CentralIdea})
	if err != nil {
		jc.Fail("research", err)
		return nil
	}
	research := genpipe.RunResearch(ctx, p.inv, p.cfg.ResearchModels, researchPrompt)

	jc.Progress("generate", 30, "Generating the course foundation")
	form := formBlock(artifact.FormData)
	rules := validate.DefaultArtifactRules()

	// Reviewer feedback from the trigger seeds the first attempt; later
	// attempts carry the failed-check messages instead.
	seedFeedback := jc.PayloadString("feedback")

	gen := func(ctx context.Context, attempt int, feedback []string) (map[string]any, string, error) {
		if len(feedback) == 0 && seedFeedback != "" {
			feedback = []string{seedFeedback}
		}
		pr, err := prompts.Build(prompts.PromptArtifactBase, prompts.Input{
			FormBlock: form,
			Research:  research.Text,
			Feedback:  genpipe.FeedbackBlock(feedback),
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

	jc.Progress("persist", 85, "Persisting the generated foundation")
	state := domain.OutcomeState(domain.JobTypeArtifactGenerate, outcome.Succeeded)
	meta := generationMeta(outcome, research, map[string]any{
		"title":        artifact.Title,
		"central_idea": artifact.CentralIdea,
		"route":        artifact.Route,
	})
	updates := map[string]interface{}{
		"state":               state,
		"validation_report":   mustJSON(outcome.Report),
		"generation_metadata": mustJSON(meta),
	}
	if outcome.Payload != nil {
		updates["name_options"] = mustJSON(genpipe.StringsAt(outcome.Payload, "name_options"))
		updates["objectives"] = mustJSON(genpipe.StringsAt(outcome.Payload, "objectives"))
		updates["description"] = genpipe.StringAt(outcome.Payload, "description")
	}
	if err := p.artifactRepo.UpdateFields(dbc, artifactID, updates); err != nil {
		jc.Fail("persist", fmt.Errorf("update artifact: %w", err))
		return nil
	}

	p.log.Info("artifact generation finished",
		"artifact_id", artifactID, "state", state,
		"attempts", outcome.Attempts, "model", outcome.ModelUsed)

	jc.Succeed("done", map[string]any{
		"artifact_id": artifactID.String(),
		"state":       state,
		"attempts":    outcome.Attempts,
	})
	return nil
}
