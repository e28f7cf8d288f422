package rollbacks

import (
	"go_modelops/internal/httpx"
	"go_modelops/internal/rollback"

	"github.com/gin-gonic/gin"
)

// Handler serves the rollback API
type Handler struct {
	service *rollback.Service
}

// NewHandler creates a rollback API handler
func NewHandler(service *rollback.Service) *Handler {
	return &Handler{service: service}
}

// RollbackRequest is the request body for a manual rollback.
// Providing version targets that version, snapshot_uid restores a
// snapshot, neither rolls back to the previous deployment.
type RollbackRequest struct {
	Version     string `json:"version"`
	SnapshotUID string `json:"snapshot_uid"`
}

// Rollback performs a manual rollback for a model
// POST /api/v1/models/:name/rollback
func (h *Handler) Rollback(c *gin.Context) {
	modelName := c.Param("name")

	var req RollbackRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
			return
		}
	}
	if req.Version != "" && req.SnapshotUID != "" {
		httpx.FailErr(c, httpx.ErrParamInvalid("version and snapshot_uid are mutually exclusive"))
		return
	}

	switch {
	case req.SnapshotUID != "":
		if err := h.service.FromSnapshot(req.SnapshotUID); err != nil {
			failServiceErr(c, err, "failed to restore snapshot")
			return
		}
		httpx.OK(c, gin.H{
			"model":        modelName,
			"snapshot_uid": req.SnapshotUID,
		})
	case req.Version != "":
		if err := h.service.ToVersion(modelName, req.Version); err != nil {
			failServiceErr(c, err, "failed to rollback")
			return
		}
		httpx.OK(c, gin.H{
			"model":   modelName,
			"version": req.Version,
		})
	default:
		version, err := h.service.ToPrevious(modelName)
		if err != nil {
			failServiceErr(c, err, "failed to rollback")
			return
		}
		httpx.OK(c, gin.H{
			"model":   modelName,
			"version": version,
		})
	}
}

// AutoRequest is the request body for an error-rate triggered rollback
type AutoRequest struct {
	ErrorThreshold float64 `json:"error_threshold"`
}

// Auto rolls back when the current version's error rate exceeds the
// threshold. Responds with whether a rollback actually happened.
// POST /api/v1/models/:name/rollback/auto
func (h *Handler) Auto(c *gin.Context) {
	modelName := c.Param("name")

	req := AutoRequest{ErrorThreshold: 0.1}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
			return
		}
	}
	if req.ErrorThreshold < 0 || req.ErrorThreshold > 1 {
		httpx.FailErr(c, httpx.ErrParamInvalid("error_threshold must be in [0,1]"))
		return
	}

	rolledBack, err := h.service.AutoOnError(modelName, req.ErrorThreshold)
	if err != nil {
		failServiceErr(c, err, "failed to check auto rollback")
		return
	}

	httpx.OK(c, gin.H{
		"model":       modelName,
		"rolled_back": rolledBack,
	})
}

func failServiceErr(c *gin.Context, err error, fallback string) {
	if appErr, ok := err.(*httpx.AppError); ok {
		httpx.FailErr(c, appErr)
	} else {
		httpx.FailErr(c, httpx.ErrInternalError(fallback, err))
	}
}
