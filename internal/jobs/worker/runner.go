package worker

import (
	"fmt"

	"github.com/coursegen/coursegen-backend/internal/domain"
	"github.com/coursegen/coursegen-backend/internal/jobs/runtime"
	"github.com/coursegen/coursegen-backend/internal/pkg/logger"
)

// Execute dispatches one claimed job to its registered handler with panic
// recovery. Both the poll loop and the synchronous HTTP path go through here
// so dispatch failures and panics always leave a terminal job_run row.
func Execute(jc *runtime.Context, registry *runtime.Registry, log *logger.Logger) {
	if jc == nil || jc.Job == nil {
		return
	}
	h, ok := registry.Get(jc.Job.JobType)
	if !ok {
		log.Warn("no handler registered for job_type", "job_type", jc.Job.JobType, "job_id", jc.Job.ID)
		jc.Fail("dispatch", fmt.Errorf("no handler registered for job_type=%s", jc.Job.JobType))
		return
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error("job handler panic", "job_id", jc.Job.ID, "job_type", jc.Job.JobType, "panic", r)
				jc.Fail("panic", fmt.Errorf("panic: %v", r))
			}
		}()
		if err := h.Run(jc); err != nil {
			// Handlers normally call Fail themselves; this covers ones
			// that return an error without touching the row.
			if jc.Job.Status != domain.JobStatusFailed && jc.Job.Status != domain.JobStatusSucceeded {
				jc.Fail("run", err)
			}
		}
	}()
}
