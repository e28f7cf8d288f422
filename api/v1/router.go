package v1

import (
	"go_modelops/api/v1/deployments"
	"go_modelops/api/v1/metrics"
	"go_modelops/api/v1/models"
	"go_modelops/api/v1/predict"
	"go_modelops/api/v1/rollbacks"
	"go_modelops/internal/deploy"
	"go_modelops/internal/httpx"
	"go_modelops/internal/perf"
	"go_modelops/internal/predictor"
	"go_modelops/internal/registry"
	"go_modelops/internal/rollback"

	"github.com/gin-gonic/gin"
)

// Deps holds the services the API routes depend on
type Deps struct {
	Registry    *registry.Service
	Deployments *deploy.Service
	Rollbacks   *rollback.Service
	Tracker     *perf.Tracker
	Loader      *predictor.Loader
}

// SetupRouter sets up the API v1 routes
func SetupRouter(r *gin.Engine, deps Deps) {
	r.GET("/health", healthHandler)

	modelsHandler := models.NewHandler(deps.Registry)
	deploymentsHandler := deployments.NewHandler(deps.Deployments)
	rollbacksHandler := rollbacks.NewHandler(deps.Rollbacks)
	metricsHandler := metrics.NewHandler(deps.Tracker)
	predictHandler := predict.NewHandler(deps.Deployments, deps.Loader, deps.Tracker)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/ping", pingHandler)

		v1.POST("/models/register", modelsHandler.RegisterModel)
		v1.GET("/models", modelsHandler.List)

		modelGroup := v1.Group("/models/:name")
		{
			modelGroup.POST("/versions/register", modelsHandler.RegisterVersion)
			modelGroup.GET("/versions", modelsHandler.ListVersions)
			modelGroup.POST("/versions/status", modelsHandler.UpdateStatus)
			modelGroup.POST("/versions/metadata", modelsHandler.UpdateMetadata)

			modelGroup.POST("/deploy", deploymentsHandler.Deploy)

			modelGroup.POST("/rollback", rollbacksHandler.Rollback)
			modelGroup.POST("/rollback/auto", rollbacksHandler.Auto)

			modelGroup.POST("/predict", predictHandler.Predict)

			modelGroup.GET("/metrics", metricsHandler.Get)
			modelGroup.GET("/compare", metricsHandler.Compare)
			modelGroup.GET("/ranking", metricsHandler.Ranking)
		}

		v1.GET("/deployments", deploymentsHandler.List)
		v1.GET("/deployments/:uid", deploymentsHandler.Get)

		v1.GET("/alerts", metricsHandler.Alerts)
	}
}

// pingHandler handles the ping request using unified response
func pingHandler(c *gin.Context) {
	httpx.OK(c, gin.H{
		"pong": true,
	})
}

// healthHandler is the liveness probe
func healthHandler(c *gin.Context) {
	httpx.OK(c, gin.H{
		"status": "ok",
	})
}
