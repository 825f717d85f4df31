package pipeline

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/coursegen/coursegen-backend/internal/data/repos/generation"
	"github.com/coursegen/coursegen-backend/internal/domain"
	"github.com/coursegen/coursegen-backend/internal/genpipe/validate"
	"github.com/coursegen/coursegen-backend/internal/jobs/runtime"
	"github.com/coursegen/coursegen-backend/internal/pkg/dbctx"
	"github.com/coursegen/coursegen-backend/internal/pkg/logger"
)

// materialsValidateConcurrency bounds the bulk fan-out. The checks are pure
// CPU plus one row update each, so a small limit is enough.
const materialsValidateConcurrency = 4

// MaterialsValidatePipeline runs the definition-of-done controls over lesson
// content: consistency with expected components, presence of sources, and
// quiz completeness. It validates one lesson or an artifact's whole lesson
// set, then folds the child states into the artifact state.
type MaterialsValidatePipeline struct {
	db           *gorm.DB
	log          *logger.Logger
	artifactRepo generation.ArtifactRepo
	lessonRepo   generation.LessonRepo
	rules        validate.MaterialsRules
}

func NewMaterialsValidatePipeline(db *gorm.DB, baseLog *logger.Logger, artifactRepo generation.ArtifactRepo, lessonRepo generation.LessonRepo) *MaterialsValidatePipeline {
	return &MaterialsValidatePipeline{
		db:           db,
		log:          baseLog.With("job", domain.JobTypeMaterialsValidate),
		artifactRepo: artifactRepo,
		lessonRepo:   lessonRepo,
		rules:        validate.DefaultMaterialsRules(),
	}
}

func (p *MaterialsValidatePipeline) Type() string { return domain.JobTypeMaterialsValidate }

func (p *MaterialsValidatePipeline) Run(jc *runtime.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	if lessonID, ok := jc.PayloadUUID("lesson_id"); ok && lessonID != uuid.Nil {
		return p.runSingle(jc, lessonID)
	}
	if artifactID, ok := jc.PayloadUUID("artifact_id"); ok && artifactID != uuid.Nil {
		return p.runBulk(jc, artifactID)
	}
	jc.Fail("validate", fmt.Errorf("missing lesson_id or artifact_id"))
	return nil
}

func (p *MaterialsValidatePipeline) runSingle(jc *runtime.Context, lessonID uuid.UUID) error {
	dbc := dbctx.New(jc.Ctx)

	lesson, err := p.lessonRepo.GetByID(dbc, lessonID)
	if err != nil {
		jc.Fail("validate", fmt.Errorf("load lesson: %w", err))
		return nil
	}
	if lesson == nil {
		jc.Fail("validate", fmt.Errorf("lesson %s not found", lessonID))
		return nil
	}

	jc.Progress("controls", 40, "Running the definition-of-done controls")
	dod, state, err := p.evaluate(dbc, lesson)
	if err != nil {
		jc.Fail("persist", err)
		return nil
	}

	p.log.Info("lesson validated", "lesson_id", lessonID, "state", state, "passed", dod.Passed())
	jc.Succeed("done", map[string]any{
		"lesson_id": lessonID.String(),
		"state":     state,
		"dod":       dod,
	})
	return nil
}

func (p *MaterialsValidatePipeline) runBulk(jc *runtime.Context, artifactID uuid.UUID) error {
	ctx := jc.Ctx
	dbc := dbctx.New(ctx)

	artifact, err := p.artifactRepo.GetByID(dbc, artifactID)
	if err != nil {
		jc.Fail("validate", fmt.Errorf("load artifact: %w", err))
		return nil
	}
	if artifact == nil {
		jc.Fail("validate", fmt.Errorf("artifact %s not found", artifactID))
		return nil
	}
	lessons, err := p.lessonRepo.GetByArtifactID(dbc, artifactID)
	if err != nil {
		jc.Fail("validate", fmt.Errorf("load lessons: %w", err))
		return nil
	}

	jc.Progress("controls", 20, fmt.Sprintf("Validating %d lessons", len(lessons)))

	var (
		mu        sync.Mutex
		states    []string
		validated int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(materialsValidateConcurrency)

	for _, lesson := range lessons {
		lesson := lesson
		if lesson == nil {
			continue
		}
		// A lesson already sent back for fixes is not re-validated; it still
		// holds the whole artifact below approvable.
		if lesson.State == domain.StateNeedsFix {
			mu.Lock()
			states = append(states, domain.StateNeedsFix)
			mu.Unlock()
			continue
		}
		g.Go(func() error {
			_, state, err := p.evaluate(dbctx.New(gctx), lesson)
			if err != nil {
				return err
			}
			mu.Lock()
			states = append(states, state)
			validated++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		jc.Fail("controls", err)
		return nil
	}

	jc.Progress("aggregate", 85, "Computing the artifact verdict")
	global := domain.ReduceStates(states)
	if err := p.artifactRepo.UpdateFields(dbc, artifactID, map[string]interface{}{
		"state": global,
	}); err != nil {
		jc.Fail("persist", fmt.Errorf("update artifact state: %w", err))
		return nil
	}

	p.log.Info("materials validation finished",
		"artifact_id", artifactID, "validated", validated,
		"lessons", len(lessons), "global_state", global)

	jc.Succeed("done", map[string]any{
		"artifact_id":    artifactID.String(),
		"validated":      validated,
		"all_approvable": global == domain.StateApprovable,
		"global_state":   global,
	})
	return nil
}

// evaluate runs the controls on one lesson and persists the verdict. The
// state follows the verdict alone: a passing lesson becomes approvable and a
// failing one goes back to needs_fix, with the recorded DoD as the evidence.
func (p *MaterialsValidatePipeline) evaluate(dbc dbctx.Context, lesson *domain.Lesson) (domain.DoD, string, error) {
	expected := decodeStrings(lesson.ExpectedComponents)
	components, err := validate.ParseComponents(lesson.Components)
	if err != nil {
		components = nil
	}
	dod := p.rules.Evaluate(lesson.Summary, expected, components)

	state := domain.StateNeedsFix
	if dod.Passed() {
		state = domain.StateApprovable
	}
	if err := p.lessonRepo.UpdateFields(dbc, lesson.ID, map[string]interface{}{
		"dod":   mustJSON(dod),
		"state": state,
	}); err != nil {
		return dod, state, fmt.Errorf("update lesson %s: %w", lesson.ID, err)
	}
	return dod, state, nil
}
