package perf

import (
	"fmt"

	"go_modelops/internal/httpx"
	"go_modelops/internal/model"

	"github.com/sirupsen/logrus"
)

// recent window for threshold checks
const alertWindow = 10

func (t *Tracker) fireAlert(alert *model.Alert, modelName, version string) error {
	if err := t.db.Create(alert).Error; err != nil {
		return err
	}
	logrus.Warnf("Alert for %s v%s: %s", modelName, version, alert.Message)
	if t.publisher != nil {
		t.publisher.Publish("alerts", alert.Type, alert)
	}
	return nil
}

// CheckLatencyThreshold records a warning alert when the recent
// average latency exceeds maxLatency. Returns the alert, or nil when
// the version is within bounds.
func (t *Tracker) CheckLatencyThreshold(modelName, version string, maxLatency float64) (*model.Alert, error) {
	versionID, ok := t.resolveVersionID(modelName, version)
	if !ok {
		return nil, httpx.ErrNotFound(fmt.Sprintf("version not found: %s v%s", modelName, version))
	}

	avg, count, err := t.recentAvg(versionID, model.MetricLatency, alertWindow)
	if err != nil {
		return nil, err
	}
	if count == 0 || avg <= maxLatency {
		return nil, nil
	}

	alert := model.Alert{
		VersionID: versionID,
		Type:      model.AlertTypeLatencyHigh,
		Message:   fmt.Sprintf("avg latency %.3fs exceeds threshold %.3fs", avg, maxLatency),
		Severity:  model.AlertSeverityWarning,
	}
	if err := t.fireAlert(&alert, modelName, version); err != nil {
		return nil, err
	}
	return &alert, nil
}

// CheckErrorRateThreshold records a critical alert when the failure
// fraction over all samples exceeds maxErrorRate
func (t *Tracker) CheckErrorRateThreshold(modelName, version string, maxErrorRate float64) (*model.Alert, error) {
	versionID, ok := t.resolveVersionID(modelName, version)
	if !ok {
		return nil, httpx.ErrNotFound(fmt.Sprintf("version not found: %s v%s", modelName, version))
	}

	rate, err := t.ErrorRate(versionID)
	if err != nil {
		return nil, err
	}
	if rate <= maxErrorRate {
		return nil, nil
	}

	alert := model.Alert{
		VersionID: versionID,
		Type:      model.AlertTypeErrorRateHigh,
		Message:   fmt.Sprintf("error rate %.2f%% exceeds threshold %.2f%%", rate*100, maxErrorRate*100),
		Severity:  model.AlertSeverityCritical,
	}
	if err := t.fireAlert(&alert, modelName, version); err != nil {
		return nil, err
	}
	return &alert, nil
}

// CheckPerformanceDegradation records a warning alert when the current
// version's average latency is worse than the baseline version's by
// more than maxDegradation (a fraction, e.g. 0.2 for 20%)
func (t *Tracker) CheckPerformanceDegradation(modelName, version, baseline string, maxDegradation float64) (*model.Alert, error) {
	current, err := t.GetMetrics(modelName, version)
	if err != nil {
		return nil, err
	}
	base, err := t.GetMetrics(modelName, baseline)
	if err != nil {
		return nil, err
	}
	if base.TotalRequests == 0 || current.TotalRequests == 0 || base.AvgLatency == 0 {
		return nil, nil
	}

	degradation := (current.AvgLatency - base.AvgLatency) / base.AvgLatency
	if degradation <= maxDegradation {
		return nil, nil
	}

	versionID, _ := t.resolveVersionID(modelName, version)
	alert := model.Alert{
		VersionID: versionID,
		Type:      model.AlertTypePerfDegradation,
		Message:   fmt.Sprintf("latency degraded %.1f%% vs v%s (%.3fs -> %.3fs)", degradation*100, baseline, base.AvgLatency, current.AvgLatency),
		Severity:  model.AlertSeverityWarning,
	}
	if err := t.fireAlert(&alert, modelName, version); err != nil {
		return nil, err
	}
	return &alert, nil
}

// ListAlerts returns alerts newest first, optionally filtered by
// model, version and severity
func (t *Tracker) ListAlerts(modelName, version string, severity model.AlertSeverity, limit int) ([]model.Alert, error) {
	if limit <= 0 {
		limit = 50
	}

	query := t.db.Model(&model.Alert{})
	if modelName != "" || version != "" {
		sub := t.db.Model(&model.Version{}).
			Select("versions.id").
			Joins("JOIN models ON models.id = versions.model_id")
		if modelName != "" {
			sub = sub.Where("models.name = ?", modelName)
		}
		if version != "" {
			sub = sub.Where("versions.version = ?", version)
		}
		query = query.Where("version_id IN (?)", sub)
	}
	if severity != "" {
		query = query.Where("severity = ?", severity)
	}

	var alerts []model.Alert
	err := query.Order("timestamp DESC, id DESC").Limit(limit).Find(&alerts).Error
	return alerts, err
}
