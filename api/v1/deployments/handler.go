package deployments

import (
	"strconv"

	"go_modelops/internal/deploy"
	"go_modelops/internal/httpx"
	"go_modelops/internal/model"

	"github.com/gin-gonic/gin"
)

// Handler serves the deployment API
type Handler struct {
	service *deploy.Service
}

// NewHandler creates a deployment API handler
func NewHandler(service *deploy.Service) *Handler {
	return &Handler{service: service}
}

// DeployRequest is the request body for starting a deployment
type DeployRequest struct {
	Version  string `json:"version" binding:"required"`
	Strategy string `json:"strategy"`
}

// Deploy runs a deployment for a model version
// POST /api/v1/models/:name/deploy
func (h *Handler) Deploy(c *gin.Context) {
	modelName := c.Param("name")

	var req DeployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
		return
	}
	if req.Strategy == "" {
		req.Strategy = string(model.DeployStrategyDirect)
	}

	result, err := h.service.Deploy(c.Request.Context(), modelName, req.Version, model.DeployStrategy(req.Strategy))
	if err != nil {
		if appErr, ok := err.(*httpx.AppError); ok {
			httpx.FailErr(c, appErr)
		} else {
			httpx.FailErr(c, httpx.ErrInternalError("failed to deploy", err))
		}
		return
	}

	httpx.OK(c, result)
}

// List returns recent deployments, optionally filtered by model
// GET /api/v1/deployments?model=&limit=
func (h *Handler) List(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httpx.FailErr(c, httpx.ErrParamInvalid("limit must be a positive integer"))
			return
		}
		limit = n
	}

	items, err := h.service.ListDeployments(c.Query("model"), limit)
	if err != nil {
		if appErr, ok := err.(*httpx.AppError); ok {
			httpx.FailErr(c, appErr)
		} else {
			httpx.FailErr(c, httpx.ErrInternalError("failed to list deployments", err))
		}
		return
	}

	httpx.OKItems(c, items, int64(len(items)))
}

// Get returns one deployment by its uid
// GET /api/v1/deployments/:uid
func (h *Handler) Get(c *gin.Context) {
	uid := c.Param("uid")
	if uid == "" {
		httpx.FailErr(c, httpx.ErrParamInvalid("uid is required"))
		return
	}

	info, err := h.service.GetDeployment(uid)
	if err != nil {
		if appErr, ok := err.(*httpx.AppError); ok {
			httpx.FailErr(c, appErr)
		} else {
			httpx.FailErr(c, httpx.ErrInternalError("failed to get deployment", err))
		}
		return
	}

	httpx.OK(c, info)
}
