package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/coursegen/coursegen-backend/internal/http/handlers"
	httpMW "github.com/coursegen/coursegen-backend/internal/http/middleware"
	"github.com/coursegen/coursegen-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	AuthMiddleware *httpMW.AuthMiddleware

	ArtifactHandler   *httpH.ArtifactHandler
	GenerationHandler *httpH.GenerationHandler
	JobHandler        *httpH.JobHandler
	HealthHandler     *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Wrong-method requests to a known route get 405, not 404.
	r.HandleMethodNotAllowed = true
	r.Use(otelgin.Middleware("coursegen-backend"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS())

	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	protected := api.Group("/")
	{
		if cfg.AuthMiddleware != nil {
			protected.Use(cfg.AuthMiddleware.RequireAuth())
		}

		if cfg.ArtifactHandler != nil {
			protected.POST("/artifacts", cfg.ArtifactHandler.CreateArtifact)
			protected.GET("/artifacts/:id", cfg.ArtifactHandler.GetArtifact)
			protected.GET("/artifacts/:id/plan", cfg.ArtifactHandler.GetPlan)
		}

		if cfg.GenerationHandler != nil {
			protected.POST("/generation/base-artifact", cfg.GenerationHandler.GenerateBaseArtifact)
			protected.POST("/generation/syllabus", cfg.GenerationHandler.GenerateSyllabus)
			protected.POST("/generation/plan", cfg.GenerationHandler.GeneratePlan)
			protected.POST("/generation/plan/validate", cfg.GenerationHandler.ValidatePlan)
			protected.POST("/generation/materials/validate", cfg.GenerationHandler.ValidateMaterials)
		}

		if cfg.JobHandler != nil {
			protected.GET("/jobs/:id", cfg.JobHandler.GetJob)
		}
	}

	return r
}
