package worker

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/coursegen/coursegen-backend/internal/data/repos/jobs"
	"github.com/coursegen/coursegen-backend/internal/events"
	"github.com/coursegen/coursegen-backend/internal/jobs/runtime"
	"github.com/coursegen/coursegen-backend/internal/pkg/dbctx"
	"github.com/coursegen/coursegen-backend/internal/pkg/env"
	"github.com/coursegen/coursegen-backend/internal/pkg/logger"
)

// Worker reclaims job_run rows whose workers died mid-execution. Generation
// requests run synchronously in the HTTP path, so under normal operation the
// poll loop finds nothing; it only picks up queued rows that outlived the
// claim grace period and running rows whose heartbeat went stale.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     jobs.JobRunRepo
	registry *runtime.Registry
	bus      events.Bus

	pollInterval time.Duration
	queuedGrace  time.Duration
	staleRunning time.Duration
	concurrency  int
}

func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo jobs.JobRunRepo, registry *runtime.Registry, bus events.Bus) *Worker {
	return &Worker{
		db:           db,
		log:          baseLog.With("component", "JobWorker"),
		repo:         repo,
		registry:     registry,
		bus:          bus,
		pollInterval: env.GetDuration("WORKER_POLL_INTERVAL", 2*time.Second),
		queuedGrace:  env.GetDuration("WORKER_QUEUED_GRACE", 30*time.Second),
		staleRunning: env.GetDuration("WORKER_STALE_RUNNING", 2*time.Minute),
		concurrency:  env.GetInt("WORKER_CONCURRENCY", 2),
	}
}

func (w *Worker) Start(ctx context.Context) {
	n := w.concurrency
	if n < 1 {
		n = 1
	}
	for i := 0; i < n; i++ {
		go w.loop(ctx)
	}
}

func (w *Worker) loop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := w.repo.ClaimNextRunnable(dbctx.New(ctx), w.queuedGrace, w.staleRunning)
			if err != nil {
				w.log.Warn("claim next runnable failed", "error", err)
				continue
			}
			if job == nil {
				continue
			}
			w.log.Info("reclaimed job", "job_id", job.ID, "job_type", job.JobType, "attempts", job.Attempts)
			jc := runtime.NewContext(ctx, w.db, job, w.repo, w.bus)
			Execute(jc, w.registry, w.log)
		}
	}
}
