package main

import (
	"context"
	"fmt"
	"os"

	"github.com/coursegen/coursegen-backend/internal/clients/openai"
	"github.com/coursegen/coursegen-backend/internal/data/db"
	genrepos "github.com/coursegen/coursegen-backend/internal/data/repos/generation"
	jobrepos "github.com/coursegen/coursegen-backend/internal/data/repos/jobs"
	"github.com/coursegen/coursegen-backend/internal/events"
	"github.com/coursegen/coursegen-backend/internal/genpipe"
	httpserver "github.com/coursegen/coursegen-backend/internal/http"
	httpH "github.com/coursegen/coursegen-backend/internal/http/handlers"
	httpMW "github.com/coursegen/coursegen-backend/internal/http/middleware"
	"github.com/coursegen/coursegen-backend/internal/jobs/pipeline"
	"github.com/coursegen/coursegen-backend/internal/jobs/runtime"
	"github.com/coursegen/coursegen-backend/internal/jobs/worker"
	"github.com/coursegen/coursegen-backend/internal/observability"
	"github.com/coursegen/coursegen-backend/internal/pkg/env"
	"github.com/coursegen/coursegen-backend/internal/pkg/logger"
)

func main() {
	logMode := env.Get("LOG_MODE", "development")
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "coursegen-backend",
		Environment: env.Get("APP_ENV", "development"),
		Version:     env.Get("APP_VERSION", "dev"),
	})
	if shutdownOTel != nil {
		defer func() { _ = shutdownOTel(context.Background()) }()
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("postgres init failed", "error", err)
	}
	if err := postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("postgres auto migration failed", "error", err)
	}
	pg := postgresService.DB()

	// Repos
	artifactRepo := genrepos.NewArtifactRepo(pg, log)
	moduleRepo := genrepos.NewModuleRepo(pg, log)
	lessonRepo := genrepos.NewLessonRepo(pg, log)
	planRepo := genrepos.NewPlanRepo(pg, log)
	jobRepo := jobrepos.NewJobRunRepo(pg, log)

	// Event bus: redis when configured, otherwise drop events.
	var bus events.Bus
	if os.Getenv("REDIS_ADDR") != "" {
		bus, err = events.NewRedisBus(log)
		if err != nil {
			log.Warn("redis bus init failed, events disabled", "error", err)
			bus = events.NewNoopBus()
		}
	} else {
		bus = events.NewNoopBus()
	}
	defer func() { _ = bus.Close() }()

	// Model client + generation config
	aiClient, err := openai.NewClient(log)
	if err != nil {
		log.Fatal("openai client init failed", "error", err)
	}
	invoker := genpipe.NewModelInvoker(aiClient, log)
	genCfg := genpipe.LoadConfig()

	// Pipelines
	registry := runtime.NewRegistry()
	mustRegister := func(h runtime.Handler) {
		if err := registry.Register(h); err != nil {
			log.Fatal("pipeline registration failed", "error", err)
		}
	}
	mustRegister(pipeline.NewArtifactGeneratePipeline(pg, log, artifactRepo, invoker, genCfg))
	mustRegister(pipeline.NewSyllabusGeneratePipeline(pg, log, artifactRepo, moduleRepo, lessonRepo, invoker, genCfg))
	mustRegister(pipeline.NewPlanGeneratePipeline(pg, log, artifactRepo, moduleRepo, lessonRepo, planRepo, invoker, genCfg))
	mustRegister(pipeline.NewPlanValidatePipeline(pg, log, artifactRepo, moduleRepo, lessonRepo, planRepo, invoker, genCfg))
	mustRegister(pipeline.NewMaterialsValidatePipeline(pg, log, artifactRepo, lessonRepo))
	log.Info("Pipelines registered", "job_types", registry.Types())

	// Recovery worker for jobs orphaned by a crash.
	w := worker.NewWorker(pg, log, jobRepo, registry, bus)
	w.Start(ctx)

	// HTTP
	jwtSecret := env.Get("ADMIN_JWT_SECRET", "defaultsecret")
	authMW := httpMW.NewAuthMiddleware(log, jwtSecret)

	server := httpserver.NewServer(httpserver.RouterConfig{
		Log:               log,
		AuthMiddleware:    authMW,
		ArtifactHandler:   httpH.NewArtifactHandler(log, artifactRepo, moduleRepo, lessonRepo, planRepo),
		GenerationHandler: httpH.NewGenerationHandler(pg, log, artifactRepo, jobRepo, registry, bus),
		JobHandler:        httpH.NewJobHandler(jobRepo),
		HealthHandler:     httpH.NewHealthHandler(),
	})

	addr := ":" + env.Get("PORT", "8080")
	log.Info("starting server", "addr", addr)
	if err := server.Run(addr); err != nil {
		log.Fatal("server exited", "error", err)
	}
}
