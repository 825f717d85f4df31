package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/coursegen/coursegen-backend/internal/domain"
	"github.com/coursegen/coursegen-backend/internal/genpipe/validate"
	"github.com/coursegen/coursegen-backend/internal/jobs/runtime"
	"github.com/coursegen/coursegen-backend/internal/pkg/dbctx"
	"github.com/coursegen/coursegen-backend/internal/pkg/logger"
)

func pipelineTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

type fakeLessonRepo struct {
	mu         sync.Mutex
	byID       map[uuid.UUID]*domain.Lesson
	byArtifact map[uuid.UUID][]*domain.Lesson
	updates    map[uuid.UUID]map[string]interface{}
}

func newFakeLessonRepo(lessons ...*domain.Lesson) *fakeLessonRepo {
	f := &fakeLessonRepo{
		byID:       map[uuid.UUID]*domain.Lesson{},
		byArtifact: map[uuid.UUID][]*domain.Lesson{},
		updates:    map[uuid.UUID]map[string]interface{}{},
	}
	for _, l := range lessons {
		f.byID[l.ID] = l
		f.byArtifact[l.ArtifactID] = append(f.byArtifact[l.ArtifactID], l)
	}
	return f
}

func (f *fakeLessonRepo) Create(_ dbctx.Context, lessons []*domain.Lesson) ([]*domain.Lesson, error) {
	return lessons, nil
}

func (f *fakeLessonRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byID[id], nil
}

func (f *fakeLessonRepo) GetByArtifactID(_ dbctx.Context, artifactID uuid.UUID) ([]*domain.Lesson, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.byArtifact[artifactID], nil
}

func (f *fakeLessonRepo) UpdateFields(_ dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[id] = updates
	return nil
}

func (f *fakeLessonRepo) DeleteByArtifactID(dbctx.Context, uuid.UUID) error { return nil }

func (f *fakeLessonRepo) updatesFor(id uuid.UUID) map[string]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates[id]
}

type fakeArtifactRepo struct {
	mu       sync.Mutex
	artifact *domain.Artifact
	updates  map[string]interface{}
}

func (f *fakeArtifactRepo) Create(_ dbctx.Context, artifacts []*domain.Artifact) ([]*domain.Artifact, error) {
	return artifacts, nil
}

func (f *fakeArtifactRepo) GetByID(_ dbctx.Context, id uuid.UUID) (*domain.Artifact, error) {
	if f.artifact != nil && f.artifact.ID == id {
		return f.artifact, nil
	}
	return nil, nil
}

func (f *fakeArtifactRepo) UpdateFields(_ dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = updates
	return nil
}

func newMaterialsPipeline(t *testing.T, artifacts *fakeArtifactRepo, lessons *fakeLessonRepo) *MaterialsValidatePipeline {
	t.Helper()
	return &MaterialsValidatePipeline{
		log:          pipelineTestLogger(t).With("job", domain.JobTypeMaterialsValidate),
		artifactRepo: artifacts,
		lessonRepo:   lessons,
		rules:        validate.DefaultMaterialsRules(),
	}
}

func materialsJob(payload string) *runtime.Context {
	job := &domain.JobRun{
		ID:      uuid.New(),
		JobType: domain.JobTypeMaterialsValidate,
		Status:  domain.JobStatusRunning,
		Payload: datatypes.JSON(payload),
	}
	return runtime.NewContext(context.Background(), nil, job, nil, nil)
}

// draftLesson builds a lesson whose summary satisfies the consistency control
// on its own, so the verdict is driven entirely by the expected components.
func draftLesson(artifactID uuid.UUID, expected ...string) *domain.Lesson {
	l := &domain.Lesson{
		ID:         uuid.New(),
		ArtifactID: artifactID,
		Title:      "Leccion",
		Summary:    "Resumen detallado de la leccion con suficiente contenido pedagogico.",
		State:      domain.StateDraft,
	}
	if len(expected) > 0 {
		raw, _ := json.Marshal(expected)
		l.ExpectedComponents = datatypes.JSON(raw)
	}
	return l
}

func decodeDoD(t *testing.T, updates map[string]interface{}) domain.DoD {
	t.Helper()
	raw, ok := updates["dod"].(datatypes.JSON)
	if !ok {
		t.Fatalf("update must carry the dod: %v", updates)
	}
	var dod domain.DoD
	if err := json.Unmarshal(raw, &dod); err != nil {
		t.Fatalf("decode dod: %v", err)
	}
	return dod
}

func TestMaterialsValidateFailingLessonBecomesNeedsFix(t *testing.T) {
	t.Parallel()

	artifactID := uuid.New()
	lesson := draftLesson(artifactID, "QUIZ")
	lessons := newFakeLessonRepo(lesson)
	p := newMaterialsPipeline(t, &fakeArtifactRepo{}, lessons)

	jc := materialsJob(fmt.Sprintf(`{"lesson_id":%q}`, lesson.ID))
	if err := p.Run(jc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if jc.Job.Status != domain.JobStatusSucceeded {
		t.Fatalf("job status: got=%q error=%q", jc.Job.Status, jc.Job.Error)
	}

	updates := lessons.updatesFor(lesson.ID)
	if updates == nil {
		t.Fatalf("expected a persisted lesson update")
	}
	if got := updates["state"]; got != domain.StateNeedsFix {
		t.Fatalf("persisted state: got=%v want=%q", got, domain.StateNeedsFix)
	}
	dod := decodeDoD(t, updates)
	if dod.Control5Quiz {
		t.Fatalf("missing quiz must fail control 5")
	}
	found := false
	for _, e := range dod.Errors {
		if e == "missing expected component: QUIZ" {
			found = true
		}
	}
	if !found {
		t.Fatalf("dod errors must name the missing QUIZ: %v", dod.Errors)
	}
}

func TestMaterialsValidatePassingLessonBecomesApprovable(t *testing.T) {
	t.Parallel()

	artifactID := uuid.New()
	lesson := draftLesson(artifactID)
	lessons := newFakeLessonRepo(lesson)
	p := newMaterialsPipeline(t, &fakeArtifactRepo{}, lessons)

	jc := materialsJob(fmt.Sprintf(`{"lesson_id":%q}`, lesson.ID))
	if err := p.Run(jc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if jc.Job.Status != domain.JobStatusSucceeded {
		t.Fatalf("job status: got=%q error=%q", jc.Job.Status, jc.Job.Error)
	}

	updates := lessons.updatesFor(lesson.ID)
	if updates == nil {
		t.Fatalf("expected a persisted lesson update")
	}
	if got := updates["state"]; got != domain.StateApprovable {
		t.Fatalf("persisted state: got=%v want=%q", got, domain.StateApprovable)
	}
	if dod := decodeDoD(t, updates); !dod.Passed() {
		t.Fatalf("dod must pass: %+v", dod)
	}
}

func TestMaterialsValidateBulkSkipsLessonsAlreadyMarked(t *testing.T) {
	t.Parallel()

	artifactID := uuid.New()
	passing := draftLesson(artifactID)
	marked := draftLesson(artifactID)
	marked.State = domain.StateNeedsFix

	artifacts := &fakeArtifactRepo{artifact: &domain.Artifact{ID: artifactID, State: domain.StateReadyForQA}}
	lessons := newFakeLessonRepo(passing, marked)
	p := newMaterialsPipeline(t, artifacts, lessons)

	jc := materialsJob(fmt.Sprintf(`{"artifact_id":%q}`, artifactID))
	if err := p.Run(jc); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if jc.Job.Status != domain.JobStatusSucceeded {
		t.Fatalf("job status: got=%q error=%q", jc.Job.Status, jc.Job.Error)
	}

	if got := lessons.updatesFor(marked.ID); got != nil {
		t.Fatalf("a lesson already in needs_fix must not be re-validated: %v", got)
	}
	if got := lessons.updatesFor(passing.ID)["state"]; got != domain.StateApprovable {
		t.Fatalf("passing lesson state: got=%v want=%q", got, domain.StateApprovable)
	}
	if got := artifacts.updates["state"]; got != domain.StateNeedsFix {
		t.Fatalf("the skipped lesson must hold the artifact at needs_fix, got %v", got)
	}

	var result map[string]any
	if err := json.Unmarshal(jc.Job.Result, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if got, _ := result["validated"].(float64); got != 1 {
		t.Fatalf("validated count: got=%v want=1", result["validated"])
	}
	if allOK, _ := result["all_approvable"].(bool); allOK {
		t.Fatalf("artifact with a needs_fix lesson cannot be all approvable")
	}
}
