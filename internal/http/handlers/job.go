package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coursegen/coursegen-backend/internal/data/repos/jobs"
	"github.com/coursegen/coursegen-backend/internal/http/response"
	"github.com/coursegen/coursegen-backend/internal/pkg/ctxutil"
	"github.com/coursegen/coursegen-backend/internal/pkg/dbctx"
	apperrors "github.com/coursegen/coursegen-backend/internal/pkg/errors"
)

type JobHandler struct {
	jobRepo jobs.JobRunRepo
}

func NewJobHandler(jobRepo jobs.JobRunRepo) *JobHandler {
	return &JobHandler{jobRepo: jobRepo}
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_job_id", err)
		return
	}
	job, err := h.jobRepo.GetByID(dbctx.New(c.Request.Context()), jobID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "job_lookup_failed", err)
		return
	}
	if job == nil {
		response.RespondError(c, http.StatusNotFound, "job_not_found", fmt.Errorf("job %s: %w", jobID, apperrors.ErrNotFound))
		return
	}
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || job.OwnerUserID != rd.UserID {
		// Ownership misses look identical to missing jobs.
		response.RespondError(c, http.StatusNotFound, "job_not_found", fmt.Errorf("job %s: %w", jobID, apperrors.ErrNotFound))
		return
	}
	response.RespondOK(c, gin.H{"success": true, "job": job})
}
