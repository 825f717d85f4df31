package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coursegen/coursegen-backend/internal/data/repos/generation"
	"github.com/coursegen/coursegen-backend/internal/domain"
	"github.com/coursegen/coursegen-backend/internal/http/response"
	"github.com/coursegen/coursegen-backend/internal/pkg/ctxutil"
	"github.com/coursegen/coursegen-backend/internal/pkg/dbctx"
	apperrors "github.com/coursegen/coursegen-backend/internal/pkg/errors"
	"github.com/coursegen/coursegen-backend/internal/pkg/logger"
)

// ArtifactHandler exposes the read side the admin UI consumes: the artifact
// with its validation report and state, its materialized structure, and the
// latest instructional plan. It also creates the draft rows generation
// targets.
type ArtifactHandler struct {
	log          *logger.Logger
	artifactRepo generation.ArtifactRepo
	moduleRepo   generation.ModuleRepo
	lessonRepo   generation.LessonRepo
	planRepo     generation.PlanRepo
}

func NewArtifactHandler(
	baseLog *logger.Logger,
	artifactRepo generation.ArtifactRepo,
	moduleRepo generation.ModuleRepo,
	lessonRepo generation.LessonRepo,
	planRepo generation.PlanRepo,
) *ArtifactHandler {
	return &ArtifactHandler{
		log:          baseLog.With("handler", "ArtifactHandler"),
		artifactRepo: artifactRepo,
		moduleRepo:   moduleRepo,
		lessonRepo:   lessonRepo,
		planRepo:     planRepo,
	}
}

type createArtifactRequest struct {
	Title       string `json:"title"`
	CentralIdea string `json:"central_idea"`
	Route       string `json:"route"`
}

// POST /api/artifacts
func (h *ArtifactHandler) CreateArtifact(c *gin.Context) {
	var req createArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	if strings.TrimSpace(req.CentralIdea) == "" {
		response.RespondError(c, http.StatusBadRequest, "missing_central_idea", fmt.Errorf("central_idea is required"))
		return
	}
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("no authenticated user"))
		return
	}

	artifact := &domain.Artifact{
		ID:          uuid.New(),
		OwnerUserID: rd.UserID,
		Title:       strings.TrimSpace(req.Title),
		CentralIdea: strings.TrimSpace(req.CentralIdea),
		Route:       strings.TrimSpace(req.Route),
		State:       domain.StateDraft,
	}
	created, err := h.artifactRepo.Create(dbctx.New(c.Request.Context()), []*domain.Artifact{artifact})
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "create_artifact_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"success": true, "artifact": created[0]})
}

// GET /api/artifacts/:id
func (h *ArtifactHandler) GetArtifact(c *gin.Context) {
	artifactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_artifact_id", err)
		return
	}
	dbc := dbctx.New(c.Request.Context())
	artifact, err := h.artifactRepo.GetByID(dbc, artifactID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "artifact_lookup_failed", err)
		return
	}
	if artifact == nil {
		response.RespondError(c, http.StatusNotFound, "artifact_not_found", fmt.Errorf("artifact %s: %w", artifactID, apperrors.ErrNotFound))
		return
	}
	modules, err := h.moduleRepo.GetByArtifactID(dbc, artifactID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "modules_lookup_failed", err)
		return
	}
	lessons, err := h.lessonRepo.GetByArtifactID(dbc, artifactID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "lessons_lookup_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"success":  true,
		"artifact": artifact,
		"modules":  modules,
		"lessons":  lessons,
	})
}

// GET /api/artifacts/:id/plan
func (h *ArtifactHandler) GetPlan(c *gin.Context) {
	artifactID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_artifact_id", err)
		return
	}
	plan, err := h.planRepo.GetByArtifactID(dbctx.New(c.Request.Context()), artifactID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "plan_lookup_failed", err)
		return
	}
	if plan == nil {
		response.RespondError(c, http.StatusNotFound, "plan_not_found", fmt.Errorf("plan for artifact %s: %w", artifactID, apperrors.ErrNotFound))
		return
	}
	response.RespondOK(c, gin.H{"success": true, "plan": plan})
}
