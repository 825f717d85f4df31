package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/coursegen/coursegen-backend/internal/data/repos/generation"
	"github.com/coursegen/coursegen-backend/internal/data/repos/jobs"
	"github.com/coursegen/coursegen-backend/internal/domain"
	"github.com/coursegen/coursegen-backend/internal/events"
	"github.com/coursegen/coursegen-backend/internal/http/response"
	"github.com/coursegen/coursegen-backend/internal/jobs/runtime"
	"github.com/coursegen/coursegen-backend/internal/jobs/worker"
	"github.com/coursegen/coursegen-backend/internal/pkg/ctxutil"
	"github.com/coursegen/coursegen-backend/internal/pkg/dbctx"
	apperrors "github.com/coursegen/coursegen-backend/internal/pkg/errors"
	"github.com/coursegen/coursegen-backend/internal/pkg/logger"
)

// GenerationHandler exposes the five generation and validation triggers. Each
// trigger records a job_run row and executes it synchronously in the request,
// so the 200 body carries the job's terminal result while the row doubles as
// the audit trail and crash-recovery unit.
type GenerationHandler struct {
	db           *gorm.DB
	log          *logger.Logger
	artifactRepo generation.ArtifactRepo
	jobRepo      jobs.JobRunRepo
	registry     *runtime.Registry
	bus          events.Bus
}

func NewGenerationHandler(
	db *gorm.DB,
	baseLog *logger.Logger,
	artifactRepo generation.ArtifactRepo,
	jobRepo jobs.JobRunRepo,
	registry *runtime.Registry,
	bus events.Bus,
) *GenerationHandler {
	return &GenerationHandler{
		db:           db,
		log:          baseLog.With("handler", "GenerationHandler"),
		artifactRepo: artifactRepo,
		jobRepo:      jobRepo,
		registry:     registry,
		bus:          bus,
	}
}

type syllabusRequest struct {
	TargetEntityID string   `json:"target_entity_id"`
	Objectives     []string `json:"objectives"`
	CentralIdea    string   `json:"central_idea"`
	Route          string   `json:"route"`
}

// POST /api/generation/syllabus
func (h *GenerationHandler) GenerateSyllabus(c *gin.Context) {
	var req syllabusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	artifactID, err := uuid.Parse(req.TargetEntityID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_target_entity_id", err)
		return
	}
	if len(req.Objectives) == 0 {
		response.RespondError(c, http.StatusBadRequest, "missing_objectives", fmt.Errorf("objectives are required"))
		return
	}
	if strings.TrimSpace(req.CentralIdea) == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_central_idea", fmt.Errorf("central_idea is required"))
		return
	}

	dbc := dbctx.New(c.Request.Context())
	artifact, err := h.artifactRepo.GetByID(dbc, artifactID)
	if err != nil || artifact == nil {
		response.RespondError(c, http.StatusInternalServerError, "artifact_not_found", fmt.Errorf("artifact %s not found", artifactID))
		return
	}
	objectives, _ := json.Marshal(req.Objectives)
	if err := h.artifactRepo.UpdateFields(dbc, artifactID, map[string]interface{}{
		"objectives":   objectives,
		"central_idea": strings.TrimSpace(req.CentralIdea),
		"route":        strings.TrimSpace(req.Route),
	}); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "artifact_update_failed", err)
		return
	}

	result, ok := h.runJob(c, domain.JobTypeSyllabusGenerate, "artifact", artifactID, map[string]any{
		"artifact_id": artifactID.String(),
	})
	if !ok {
		return
	}
	response.RespondOK(c, gin.H{
		"success":      true,
		"module_count": result["module_count"],
		"state":        result["state"],
	})
}

type artifactGenerateRequest struct {
	TargetEntityID string         `json:"target_entity_id"`
	FormData       map[string]any `json:"form_data"`
	Feedback       string         `json:"feedback"`
}

// POST /api/generation/base-artifact
func (h *GenerationHandler) GenerateBaseArtifact(c *gin.Context) {
	var req artifactGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	artifactID, err := uuid.Parse(req.TargetEntityID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_target_entity_id", err)
		return
	}
	if len(req.FormData) == 0 {
		response.RespondError(c, http.StatusBadRequest, "missing_form_data", fmt.Errorf("form_data is required"))
		return
	}

	dbc := dbctx.New(c.Request.Context())
	artifact, err := h.artifactRepo.GetByID(dbc, artifactID)
	if err != nil || artifact == nil {
		response.RespondError(c, http.StatusInternalServerError, "artifact_not_found", fmt.Errorf("artifact %s not found", artifactID))
		return
	}
	form, _ := json.Marshal(req.FormData)
	if err := h.artifactRepo.UpdateFields(dbc, artifactID, map[string]interface{}{
		"form_data": form,
	}); err != nil {
		response.RespondError(c, http.StatusInternalServerError, "artifact_update_failed", err)
		return
	}

	result, ok := h.runJob(c, domain.JobTypeArtifactGenerate, "artifact", artifactID, map[string]any{
		"artifact_id": artifactID.String(),
		"feedback":    strings.TrimSpace(req.Feedback),
	})
	if !ok {
		return
	}
	response.RespondOK(c, gin.H{
		"success": true,
		"state":   result["state"],
	})
}

type planGenerateRequest struct {
	TargetEntityID  string `json:"target_entity_id"`
	CustomPrompt    string `json:"custom_prompt"`
	UseCustomPrompt bool   `json:"use_custom_prompt"`
}

// POST /api/generation/plan
func (h *GenerationHandler) GeneratePlan(c *gin.Context) {
	var req planGenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	artifactID, err := uuid.Parse(req.TargetEntityID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_target_entity_id", err)
		return
	}
	payload := map[string]any{"artifact_id": artifactID.String()}
	if req.UseCustomPrompt && strings.TrimSpace(req.CustomPrompt) != "" {
		payload["custom_prompt"] = req.CustomPrompt
	}

	result, ok := h.runJob(c, domain.JobTypePlanGenerate, "artifact", artifactID, payload)
	if !ok {
		return
	}
	response.RespondOK(c, gin.H{
		"success": true,
		"count":   result["count"],
		"state":   result["state"],
	})
}

type planValidateRequest struct {
	TargetEntityID string `json:"target_entity_id"`
}

// POST /api/generation/plan/validate
func (h *GenerationHandler) ValidatePlan(c *gin.Context) {
	var req planValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	artifactID, err := uuid.Parse(req.TargetEntityID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_target_entity_id", err)
		return
	}

	result, ok := h.runJob(c, domain.JobTypePlanValidate, "artifact", artifactID, map[string]any{
		"artifact_id": artifactID.String(),
	})
	if !ok {
		return
	}
	response.RespondOK(c, gin.H{
		"success": true,
		"result":  result,
	})
}

type materialsValidateRequest struct {
	TargetEntityID string `json:"target_entity_id"`
	LessonID       string `json:"lesson_id"`
	// Recorded on the job payload for audit; the verdict alone decides the
	// lesson state.
	MarkForFix bool `json:"mark_for_fix"`
}

// POST /api/generation/materials/validate
func (h *GenerationHandler) ValidateMaterials(c *gin.Context) {
	var req materialsValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}

	payload := map[string]any{"mark_for_fix": req.MarkForFix}
	var entityType string
	var entityID uuid.UUID
	switch {
	case strings.TrimSpace(req.LessonID) != "":
		id, err := uuid.Parse(req.LessonID)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_lesson_id", err)
			return
		}
		payload["lesson_id"] = id.String()
		entityType, entityID = "lesson", id
	case strings.TrimSpace(req.TargetEntityID) != "":
		id, err := uuid.Parse(req.TargetEntityID)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_target_entity_id", err)
			return
		}
		payload["artifact_id"] = id.String()
		entityType, entityID = "artifact", id
	default:
		response.RespondError(c, http.StatusBadRequest, "missing_target", fmt.Errorf("lesson_id or target_entity_id is required"))
		return
	}

	result, ok := h.runJob(c, domain.JobTypeMaterialsValidate, entityType, entityID, payload)
	if !ok {
		return
	}
	resp := gin.H{"success": true}
	for _, k := range []string{"validated", "all_approvable", "global_state", "state", "dod"} {
		if v, present := result[k]; present {
			resp[k] = v
		}
	}
	response.RespondOK(c, resp)
}

// runJob creates a job_run row, claims it, and executes the registered
// pipeline in the request. It enforces one runnable job per entity and job
// type; a concurrent trigger gets 409. On job failure it writes the 500
// response itself and returns ok=false.
func (h *GenerationHandler) runJob(c *gin.Context, jobType, entityType string, entityID uuid.UUID, payload map[string]any) (map[string]any, bool) {
	ctx := c.Request.Context()
	dbc := dbctx.New(ctx)

	rd := ctxutil.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("no authenticated user"))
		return nil, false
	}

	exists, err := h.jobRepo.ExistsRunnable(dbc, jobType, entityType, entityID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "job_lookup_failed", err)
		return nil, false
	}
	if exists {
		response.RespondError(c, http.StatusConflict, "job_already_running",
			fmt.Errorf("%w: a %s run is already in progress for this %s", apperrors.ErrConflict, jobType, entityType))
		return nil, false
	}

	raw, _ := json.Marshal(payload)
	job := &domain.JobRun{
		ID:          uuid.New(),
		OwnerUserID: rd.UserID,
		JobType:     jobType,
		EntityType:  entityType,
		EntityID:    &entityID,
		Status:      domain.JobStatusQueued,
		Stage:       "queued",
		Payload:     raw,
	}
	if _, err := h.jobRepo.Create(dbc, []*domain.JobRun{job}); err != nil {
		// The partial unique index on runnable job_run rows is what actually
		// enforces the invariant; the ExistsRunnable check above only gives
		// the common case a friendlier path.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			response.RespondError(c, http.StatusConflict, "job_already_running",
				fmt.Errorf("%w: a %s run is already in progress for this %s", apperrors.ErrConflict, jobType, entityType))
			return nil, false
		}
		response.RespondError(c, http.StatusInternalServerError, "job_create_failed", err)
		return nil, false
	}
	claimed, err := h.jobRepo.ClaimByID(dbc, job.ID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "job_claim_failed", err)
		return nil, false
	}
	if !claimed {
		response.RespondError(c, http.StatusConflict, "job_already_running",
			fmt.Errorf("job %s was claimed by another worker", job.ID))
		return nil, false
	}
	job.Status = domain.JobStatusRunning

	jc := runtime.NewContext(ctx, h.db, job, h.jobRepo, h.bus)
	worker.Execute(jc, h.registry, h.log)

	if jc.Job.Status != domain.JobStatusSucceeded {
		response.RespondError(c, http.StatusInternalServerError, "job_failed",
			fmt.Errorf("%s", nonEmpty(jc.Job.Error, "job failed")))
		return nil, false
	}
	var result map[string]any
	if len(jc.Job.Result) > 0 {
		_ = json.Unmarshal(jc.Job.Result, &result)
	}
	if result == nil {
		result = map[string]any{}
	}
	result["job_id"] = job.ID.String()
	return result, true
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
