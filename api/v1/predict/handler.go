package predict

import (
	"go_modelops/internal/deploy"
	"go_modelops/internal/httpx"
	"go_modelops/internal/perf"
	"go_modelops/internal/predictor"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Handler serves predictions through the currently deployed version
type Handler struct {
	deployments *deploy.Service
	loader      *predictor.Loader
	tracker     *perf.Tracker
}

// NewHandler creates a prediction API handler
func NewHandler(deployments *deploy.Service, loader *predictor.Loader, tracker *perf.Tracker) *Handler {
	return &Handler{
		deployments: deployments,
		loader:      loader,
		tracker:     tracker,
	}
}

// PredictRequest is the request body for a prediction
type PredictRequest struct {
	Input       string  `json:"input" binding:"required"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Predict routes a prediction to the model's active deployment and
// records its performance samples
// POST /api/v1/models/:name/predict
func (h *Handler) Predict(c *gin.Context) {
	modelName := c.Param("name")

	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
		return
	}

	active, err := h.deployments.ActiveDeployment(modelName)
	if err != nil {
		if appErr, ok := err.(*httpx.AppError); ok {
			httpx.FailErr(c, appErr)
		} else {
			httpx.FailErr(c, httpx.ErrInternalError("failed to resolve active deployment", err))
		}
		return
	}
	if active == nil {
		httpx.FailErr(c, httpx.ErrStateConflict("model has no completed deployment"))
		return
	}

	p, err := h.loader.Load(modelName, active.Version)
	if err != nil {
		httpx.FailErr(c, httpx.ErrStateConflict(err.Error()))
		return
	}

	result, err := p.Predict(c.Request.Context(), req.Input, predictor.Options{
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	latency := 0.0
	tokens := 0
	if result != nil {
		latency = result.Latency.Seconds()
		tokens = result.Tokens
	}

	if trackErr := h.tracker.TrackPrediction(modelName, active.Version, latency, tokens, err == nil); trackErr != nil {
		logrus.Warnf("Failed to track prediction for %s v%s: %v", modelName, active.Version, trackErr)
	}

	if err != nil {
		httpx.FailErr(c, httpx.ErrExternalError("prediction failed", err))
		return
	}

	httpx.OK(c, gin.H{
		"prediction": result.Text,
		"version":    active.Version,
		"latency":    latency,
		"tokens":     tokens,
	})
}
