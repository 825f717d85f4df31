package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/coursegen/coursegen-backend/internal/data/repos/testutil"
	"github.com/coursegen/coursegen-backend/internal/domain"
	"github.com/coursegen/coursegen-backend/internal/pkg/dbctx"
)

func ptrUUID(v uuid.UUID) *uuid.UUID { return &v }
func ptrTime(v time.Time) *time.Time { return &v }

func TestJobRunRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewJobRunRepo(db, testutil.Logger(t))

	now := time.Now().UTC()
	ownerUserID := uuid.New()
	entityID := uuid.New()

	queued := &domain.JobRun{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		JobType:     domain.JobTypeSyllabusGenerate,
		EntityType:  "artifact",
		EntityID:    ptrUUID(entityID),
		Status:      domain.JobStatusQueued,
		Stage:       "queued",
		Payload:     datatypes.JSON([]byte(`{}`)),
		CreatedAt:   now.Add(-3 * time.Hour),
		UpdatedAt:   now.Add(-3 * time.Hour),
	}
	staleRunning := &domain.JobRun{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		JobType:     domain.JobTypePlanGenerate,
		EntityType:  "artifact",
		EntityID:    ptrUUID(uuid.New()),
		Status:      domain.JobStatusRunning,
		Stage:       "generate",
		HeartbeatAt: ptrTime(now.Add(-10 * time.Hour)),
		Payload:     datatypes.JSON([]byte(`{}`)),
		CreatedAt:   now.Add(-2 * time.Hour),
		UpdatedAt:   now.Add(-2 * time.Hour),
	}
	freshQueued := &domain.JobRun{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		JobType:     domain.JobTypeMaterialsValidate,
		EntityType:  "artifact",
		EntityID:    ptrUUID(uuid.New()),
		Status:      domain.JobStatusQueued,
		Stage:       "queued",
		Payload:     datatypes.JSON([]byte(`{}`)),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	succeeded := &domain.JobRun{
		ID:          uuid.New(),
		OwnerUserID: ownerUserID,
		JobType:     domain.JobTypeSyllabusGenerate,
		EntityType:  "artifact",
		EntityID:    ptrUUID(uuid.New()),
		Status:      domain.JobStatusSucceeded,
		Stage:       "done",
		Payload:     datatypes.JSON([]byte(`{}`)),
		CreatedAt:   now.Add(-1 * time.Hour),
		UpdatedAt:   now.Add(-1 * time.Hour),
	}

	if _, err := repo.Create(dbc, []*domain.JobRun{queued, staleRunning, freshQueued, succeeded}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := repo.GetByID(dbc, queued.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: err=%v got=%v", err, got)
	}
	if got.Status != domain.JobStatusQueued {
		t.Fatalf("GetByID status: got=%q want=%q", got.Status, domain.JobStatusQueued)
	}

	// One runnable job per entity and type.
	exists, err := repo.ExistsRunnable(dbc, domain.JobTypeSyllabusGenerate, "artifact", entityID)
	if err != nil {
		t.Fatalf("ExistsRunnable: %v", err)
	}
	if !exists {
		t.Fatalf("ExistsRunnable: expected true for queued job")
	}
	exists, err = repo.ExistsRunnable(dbc, domain.JobTypeSyllabusGenerate, "artifact", *succeeded.EntityID)
	if err != nil {
		t.Fatalf("ExistsRunnable: %v", err)
	}
	if exists {
		t.Fatalf("ExistsRunnable: succeeded job must not count as runnable")
	}

	// ClaimByID only claims queued rows, exactly once.
	ok, err := repo.ClaimByID(dbc, queued.ID)
	if err != nil || !ok {
		t.Fatalf("ClaimByID: err=%v ok=%v", err, ok)
	}
	ok, err = repo.ClaimByID(dbc, queued.ID)
	if err != nil {
		t.Fatalf("ClaimByID second: %v", err)
	}
	if ok {
		t.Fatalf("ClaimByID: running job must not be claimable again")
	}
	claimed, err := repo.GetByID(dbc, queued.ID)
	if err != nil || claimed == nil {
		t.Fatalf("GetByID after claim: err=%v", err)
	}
	if claimed.Status != domain.JobStatusRunning || claimed.Attempts != 1 {
		t.Fatalf("claimed job: status=%q attempts=%d", claimed.Status, claimed.Attempts)
	}

	// The stale running job is reclaimable; the freshly running one is not,
	// and neither is the queued row still inside the claim grace period.
	reclaimed, err := repo.ClaimNextRunnable(dbc, 30*time.Second, 2*time.Minute)
	if err != nil {
		t.Fatalf("ClaimNextRunnable: %v", err)
	}
	if reclaimed == nil || reclaimed.ID != staleRunning.ID {
		t.Fatalf("ClaimNextRunnable: expected stale job %s, got %+v", staleRunning.ID, reclaimed)
	}
	none, err := repo.ClaimNextRunnable(dbc, 30*time.Second, 2*time.Minute)
	if err != nil {
		t.Fatalf("ClaimNextRunnable empty: %v", err)
	}
	if none != nil {
		t.Fatalf("ClaimNextRunnable: expected nothing runnable, got %s", none.ID)
	}

	// Once the grace period lapses the queued row becomes claimable.
	grace, err := repo.ClaimNextRunnable(dbc, 0, 2*time.Minute)
	if err != nil {
		t.Fatalf("ClaimNextRunnable grace: %v", err)
	}
	if grace == nil || grace.ID != freshQueued.ID {
		t.Fatalf("ClaimNextRunnable grace: expected queued job %s, got %+v", freshQueued.ID, grace)
	}

	// The canceled guard blocks terminal transitions.
	if err := repo.UpdateFields(dbc, queued.ID, map[string]interface{}{"status": domain.JobStatusCanceled}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	ok, err = repo.UpdateFieldsUnlessStatus(dbc, queued.ID, []string{domain.JobStatusCanceled}, map[string]interface{}{
		"status": domain.JobStatusSucceeded,
	})
	if err != nil {
		t.Fatalf("UpdateFieldsUnlessStatus: %v", err)
	}
	if ok {
		t.Fatalf("UpdateFieldsUnlessStatus: canceled job must not be overwritten")
	}
	after, err := repo.GetByID(dbc, queued.ID)
	if err != nil || after == nil {
		t.Fatalf("GetByID after guard: err=%v", err)
	}
	if after.Status != domain.JobStatusCanceled {
		t.Fatalf("guarded job status: got=%q want=%q", after.Status, domain.JobStatusCanceled)
	}
}

func TestJobRunRepoOneRunnablePerEntity(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	repo := NewJobRunRepo(db, testutil.Logger(t))

	entityID := uuid.New()
	mk := func() *domain.JobRun {
		return &domain.JobRun{
			ID:          uuid.New(),
			OwnerUserID: uuid.New(),
			JobType:     domain.JobTypePlanValidate,
			EntityType:  "artifact",
			EntityID:    ptrUUID(entityID),
			Status:      domain.JobStatusQueued,
			Stage:       "queued",
			Payload:     datatypes.JSON([]byte(`{}`)),
		}
	}

	if _, err := repo.Create(dbc, []*domain.JobRun{mk()}); err != nil {
		t.Fatalf("Create first: %v", err)
	}

	// The partial unique index rejects a second runnable run for the same
	// entity and job type even when the enqueue-time existence check is
	// bypassed.
	_, err := repo.Create(dbc, []*domain.JobRun{mk()})
	if err == nil {
		t.Fatalf("Create duplicate: expected unique violation")
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("Create duplicate: got %v, want gorm.ErrDuplicatedKey", err)
	}
}
