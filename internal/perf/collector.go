package perf

import (
	"fmt"

	"go_modelops/internal/httpx"
	"go_modelops/internal/model"
)

// Sample is one raw metric value with its record time
type Sample struct {
	Value     float64 `json:"value"`
	Timestamp string  `json:"timestamp"`
}

// Aggregate summarizes one named metric of a version
type Aggregate struct {
	Count int64   `json:"count"`
	Avg   float64 `json:"avg"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Sum   float64 `json:"sum"`
}

// CollectMetric appends one named sample for a version
func (t *Tracker) CollectMetric(modelName, version, name string, value float64) error {
	versionID, ok := t.resolveVersionID(modelName, version)
	if !ok {
		return httpx.ErrNotFound(fmt.Sprintf("version not found: %s v%s", modelName, version))
	}
	sample := model.Metric{VersionID: versionID, Name: name, Value: value}
	if err := t.db.Create(&sample).Error; err != nil {
		return err
	}
	t.invalidateCache(modelName, version)
	return nil
}

// RecentMetrics returns the latest samples of one named metric,
// newest first
func (t *Tracker) RecentMetrics(modelName, version, name string, limit int) ([]Sample, error) {
	versionID, ok := t.resolveVersionID(modelName, version)
	if !ok {
		return nil, httpx.ErrNotFound(fmt.Sprintf("version not found: %s v%s", modelName, version))
	}
	if limit <= 0 {
		limit = 100
	}

	var rows []model.Metric
	err := t.db.Where("version_id = ? AND name = ?", versionID, name).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	samples := make([]Sample, 0, len(rows))
	for _, row := range rows {
		samples = append(samples, Sample{
			Value:     row.Value,
			Timestamp: row.Timestamp.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	return samples, nil
}

// AggregatedMetrics summarizes one named metric over its full history
func (t *Tracker) AggregatedMetrics(modelName, version, name string) (*Aggregate, error) {
	versionID, ok := t.resolveVersionID(modelName, version)
	if !ok {
		return nil, httpx.ErrNotFound(fmt.Sprintf("version not found: %s v%s", modelName, version))
	}

	var agg struct {
		Count int64
		Avg   float64
		Min   float64
		Max   float64
		Sum   float64
	}
	err := t.db.Model(&model.Metric{}).
		Select("COUNT(*) AS count, COALESCE(AVG(value),0) AS avg, COALESCE(MIN(value),0) AS min, COALESCE(MAX(value),0) AS max, COALESCE(SUM(value),0) AS sum").
		Where("version_id = ? AND name = ?", versionID, name).
		Scan(&agg).Error
	if err != nil {
		return nil, err
	}

	return &Aggregate{
		Count: agg.Count,
		Avg:   round(agg.Avg, 3),
		Min:   round(agg.Min, 3),
		Max:   round(agg.Max, 3),
		Sum:   round(agg.Sum, 3),
	}, nil
}

// recentAvg averages the latest limit samples of one named metric.
// Returns the sample count alongside the average.
func (t *Tracker) recentAvg(versionID uint, name string, limit int) (float64, int, error) {
	var values []float64
	err := t.db.Model(&model.Metric{}).
		Where("version_id = ? AND name = ?", versionID, name).
		Order("timestamp DESC, id DESC").
		Limit(limit).
		Pluck("value", &values).Error
	if err != nil {
		return 0, 0, err
	}
	if len(values) == 0 {
		return 0, 0, nil
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), len(values), nil
}
