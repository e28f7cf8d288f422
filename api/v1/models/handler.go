package models

import (
	"go_modelops/internal/httpx"
	"go_modelops/internal/model"
	"go_modelops/internal/registry"

	"github.com/gin-gonic/gin"
)

// Handler serves the model catalog API
type Handler struct {
	service *registry.Service
}

// NewHandler creates a model catalog API handler
func NewHandler(service *registry.Service) *Handler {
	return &Handler{service: service}
}

// RegisterModelRequest is the request body for registering a model
type RegisterModelRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// RegisterModel registers a model name
// POST /api/v1/models/register
func (h *Handler) RegisterModel(c *gin.Context) {
	var req RegisterModelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
		return
	}

	id, err := h.service.RegisterModel(req.Name, req.Description)
	if err != nil {
		failServiceErr(c, err, "failed to register model")
		return
	}

	httpx.OK(c, gin.H{
		"id":   id,
		"name": req.Name,
	})
}

// List returns all registered models
// GET /api/v1/models
func (h *Handler) List(c *gin.Context) {
	items, err := h.service.ListModels()
	if err != nil {
		failServiceErr(c, err, "failed to list models")
		return
	}
	httpx.OKItems(c, items, int64(len(items)))
}

// RegisterVersionRequest is the request body for registering a version
type RegisterVersionRequest struct {
	Version  string                 `json:"version" binding:"required"`
	Status   string                 `json:"status"`
	Metadata map[string]interface{} `json:"metadata"`
}

// RegisterVersion registers a semantic version under a model
// POST /api/v1/models/:name/versions/register
func (h *Handler) RegisterVersion(c *gin.Context) {
	modelName := c.Param("name")

	var req RegisterVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
		return
	}
	if req.Status == "" {
		req.Status = string(model.VersionStatusActive)
	}

	id, err := h.service.RegisterVersion(modelName, req.Version, model.VersionStatus(req.Status), req.Metadata)
	if err != nil {
		failServiceErr(c, err, "failed to register version")
		return
	}

	httpx.OK(c, gin.H{
		"id":      id,
		"model":   modelName,
		"version": req.Version,
	})
}

// ListVersions returns all versions of a model
// GET /api/v1/models/:name/versions
func (h *Handler) ListVersions(c *gin.Context) {
	items, err := h.service.ListVersions(c.Param("name"))
	if err != nil {
		failServiceErr(c, err, "failed to list versions")
		return
	}
	httpx.OKItems(c, items, int64(len(items)))
}

// UpdateStatusRequest is the request body for a status transition
type UpdateStatusRequest struct {
	Version string `json:"version" binding:"required"`
	Status  string `json:"status" binding:"required"`
}

// UpdateStatus transitions a version's lifecycle status
// POST /api/v1/models/:name/versions/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
		return
	}

	if err := h.service.UpdateVersionStatus(c.Param("name"), req.Version, model.VersionStatus(req.Status)); err != nil {
		failServiceErr(c, err, "failed to update version status")
		return
	}

	httpx.OKMsg(c, "status updated", nil)
}

// UpdateMetadataRequest is the request body for a metadata merge
type UpdateMetadataRequest struct {
	Version  string                 `json:"version" binding:"required"`
	Metadata map[string]interface{} `json:"metadata" binding:"required"`
}

// UpdateMetadata merges metadata keys into a version
// POST /api/v1/models/:name/versions/metadata
func (h *Handler) UpdateMetadata(c *gin.Context) {
	var req UpdateMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpx.FailErr(c, httpx.ErrParamInvalid(err.Error()))
		return
	}

	if err := h.service.UpdateMetadata(c.Param("name"), req.Version, req.Metadata); err != nil {
		failServiceErr(c, err, "failed to update metadata")
		return
	}

	metadata, err := h.service.GetMetadata(c.Param("name"), req.Version)
	if err != nil {
		failServiceErr(c, err, "failed to read metadata")
		return
	}
	httpx.OK(c, metadata)
}

func failServiceErr(c *gin.Context, err error, fallback string) {
	if appErr, ok := err.(*httpx.AppError); ok {
		httpx.FailErr(c, appErr)
	} else {
		httpx.FailErr(c, httpx.ErrInternalError(fallback, err))
	}
}
