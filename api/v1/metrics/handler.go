package metrics

import (
	"strconv"

	"go_modelops/internal/httpx"
	"go_modelops/internal/model"
	"go_modelops/internal/perf"

	"github.com/gin-gonic/gin"
)

// Handler serves the performance metrics API
type Handler struct {
	tracker *perf.Tracker
}

// NewHandler creates a metrics API handler
func NewHandler(tracker *perf.Tracker) *Handler {
	return &Handler{tracker: tracker}
}

// Get returns the aggregate metrics of one version
// GET /api/v1/models/:name/metrics?version=
func (h *Handler) Get(c *gin.Context) {
	version := c.Query("version")
	if version == "" {
		httpx.FailErr(c, httpx.ErrParamMissing("version is required"))
		return
	}

	m, err := h.tracker.GetMetrics(c.Param("name"), version)
	if err != nil {
		failServiceErr(c, err, "failed to get metrics")
		return
	}
	httpx.OK(c, m)
}

// Compare diffs the aggregates of two versions
// GET /api/v1/models/:name/compare?version1=&version2=
func (h *Handler) Compare(c *gin.Context) {
	version1 := c.Query("version1")
	version2 := c.Query("version2")
	if version1 == "" || version2 == "" {
		httpx.FailErr(c, httpx.ErrParamMissing("version1 and version2 are required"))
		return
	}

	cmp, err := h.tracker.CompareVersions(c.Param("name"), version1, version2)
	if err != nil {
		failServiceErr(c, err, "failed to compare versions")
		return
	}
	httpx.OK(c, cmp)
}

// Ranking ranks a model's versions by performance score
// GET /api/v1/models/:name/ranking
func (h *Handler) Ranking(c *gin.Context) {
	ranked, err := h.tracker.VersionRanking(c.Param("name"))
	if err != nil {
		failServiceErr(c, err, "failed to rank versions")
		return
	}
	httpx.OKItems(c, ranked, int64(len(ranked)))
}

// Alerts lists recorded alerts, newest first
// GET /api/v1/alerts?model=&version=&severity=&limit=
func (h *Handler) Alerts(c *gin.Context) {
	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			httpx.FailErr(c, httpx.ErrParamInvalid("limit must be a positive integer"))
			return
		}
		limit = n
	}

	severity := model.AlertSeverity(c.Query("severity"))
	switch severity {
	case "", model.AlertSeverityInfo, model.AlertSeverityWarning, model.AlertSeverityCritical:
	default:
		httpx.FailErr(c, httpx.ErrParamInvalid("severity must be info, warning or critical"))
		return
	}

	alerts, err := h.tracker.ListAlerts(c.Query("model"), c.Query("version"), severity, limit)
	if err != nil {
		failServiceErr(c, err, "failed to list alerts")
		return
	}
	httpx.OKItems(c, alerts, int64(len(alerts)))
}

func failServiceErr(c *gin.Context, err error, fallback string) {
	if appErr, ok := err.(*httpx.AppError); ok {
		httpx.FailErr(c, appErr)
	} else {
		httpx.FailErr(c, httpx.ErrInternalError(fallback, err))
	}
}
