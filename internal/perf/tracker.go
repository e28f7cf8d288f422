// Package perf aggregates latency, token and success samples per
// version. It feeds manual comparison queries and the auto-rollback
// trigger.
package perf

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"go_modelops/internal/cache"
	"go_modelops/internal/httpx"
	"go_modelops/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const metricsCacheTTL = 60 * time.Second

// Metrics is the aggregate over all samples of a version
type Metrics struct {
	ModelName     string  `json:"model_name"`
	Version       string  `json:"version"`
	AvgLatency    float64 `json:"avg_latency"`
	MinLatency    float64 `json:"min_latency"`
	MaxLatency    float64 `json:"max_latency"`
	AvgTokens     float64 `json:"avg_tokens"`
	TotalTokens   int64   `json:"total_tokens"`
	TotalRequests int64   `json:"total_requests"`
	SuccessRate   float64 `json:"success_rate"`
}

// Comparison is the diff between two versions' aggregates
type Comparison struct {
	Version1        *Metrics `json:"version1"`
	Version2        *Metrics `json:"version2"`
	LatencyDiff     float64  `json:"latency_diff"`
	TokensDiff      float64  `json:"tokens_diff"`
	SuccessRateDiff float64  `json:"success_rate_diff"`
}

// Publisher broadcasts fired alerts
type Publisher interface {
	Publish(topic, eventType string, payload interface{})
}

// Tracker records and aggregates performance samples
type Tracker struct {
	db        *gorm.DB
	publisher Publisher
}

// NewTracker creates a performance tracker
func NewTracker(db *gorm.DB) *Tracker {
	return &Tracker{db: db}
}

// SetPublisher wires the event hub; nil disables broadcasting
func (t *Tracker) SetPublisher(p Publisher) {
	t.publisher = p
}

// TrackPrediction appends latency, token and success samples for one
// prediction. An unknown version is logged and dropped, not an error.
func (t *Tracker) TrackPrediction(modelName, version string, latency float64, tokens int, success bool) error {
	versionID, ok := t.resolveVersionID(modelName, version)
	if !ok {
		logrus.Warnf("Version not found: %s v%s", modelName, version)
		return nil
	}

	successValue := 0.0
	if success {
		successValue = 1.0
	}

	samples := []model.Metric{
		{VersionID: versionID, Name: model.MetricLatency, Value: latency},
		{VersionID: versionID, Name: model.MetricTokens, Value: float64(tokens)},
		{VersionID: versionID, Name: model.MetricSuccess, Value: successValue},
	}
	if err := t.db.Create(&samples).Error; err != nil {
		return err
	}

	t.invalidateCache(modelName, version)
	logrus.Debugf("Tracked prediction: %s v%s", modelName, version)
	return nil
}

// GetMetrics computes the aggregate over all samples for a version.
// The whole history counts: there is no retention window.
func (t *Tracker) GetMetrics(modelName, version string) (*Metrics, error) {
	versionID, ok := t.resolveVersionID(modelName, version)
	if !ok {
		return nil, httpx.ErrNotFound(fmt.Sprintf("version not found: %s v%s", modelName, version))
	}

	if m := t.cachedMetrics(modelName, version); m != nil {
		return m, nil
	}

	var latency struct {
		Avg float64
		Min float64
		Max float64
	}
	err := t.db.Model(&model.Metric{}).
		Select("COALESCE(AVG(value),0) AS avg, COALESCE(MIN(value),0) AS min, COALESCE(MAX(value),0) AS max").
		Where("version_id = ? AND name = ?", versionID, model.MetricLatency).
		Scan(&latency).Error
	if err != nil {
		return nil, err
	}

	var tokens struct {
		Avg float64
		Sum float64
	}
	err = t.db.Model(&model.Metric{}).
		Select("COALESCE(AVG(value),0) AS avg, COALESCE(SUM(value),0) AS sum").
		Where("version_id = ? AND name = ?", versionID, model.MetricTokens).
		Scan(&tokens).Error
	if err != nil {
		return nil, err
	}

	var success struct {
		Total     int64
		Successes float64
	}
	err = t.db.Model(&model.Metric{}).
		Select("COUNT(*) AS total, COALESCE(SUM(value),0) AS successes").
		Where("version_id = ? AND name = ?", versionID, model.MetricSuccess).
		Scan(&success).Error
	if err != nil {
		return nil, err
	}

	successRate := 0.0
	if success.Total > 0 {
		successRate = success.Successes / float64(success.Total) * 100
	}

	m := &Metrics{
		ModelName:     modelName,
		Version:       version,
		AvgLatency:    round(latency.Avg, 3),
		MinLatency:    round(latency.Min, 3),
		MaxLatency:    round(latency.Max, 3),
		AvgTokens:     round(tokens.Avg, 1),
		TotalTokens:   int64(tokens.Sum),
		TotalRequests: success.Total,
		SuccessRate:   round(successRate, 2),
	}

	t.cacheMetrics(m)
	return m, nil
}

// CompareVersions diffs two versions' aggregates. Diffs are oriented
// version2 minus version1. Fails when either version has no samples.
func (t *Tracker) CompareVersions(modelName, version1, version2 string) (*Comparison, error) {
	m1, err := t.GetMetrics(modelName, version1)
	if err != nil {
		return nil, err
	}
	m2, err := t.GetMetrics(modelName, version2)
	if err != nil {
		return nil, err
	}
	if m1.TotalRequests == 0 || m2.TotalRequests == 0 {
		return nil, httpx.ErrStateConflict(fmt.Sprintf("no metrics recorded for %s v%s or v%s", modelName, version1, version2))
	}

	return &Comparison{
		Version1:        m1,
		Version2:        m2,
		LatencyDiff:     m2.AvgLatency - m1.AvgLatency,
		TokensDiff:      m2.AvgTokens - m1.AvgTokens,
		SuccessRateDiff: m2.SuccessRate - m1.SuccessRate,
	}, nil
}

// ErrorRate returns the failure fraction over all success samples of
// a version, 0 when none are recorded
func (t *Tracker) ErrorRate(versionID uint) (float64, error) {
	var stats struct {
		Total     int64
		Successes float64
	}
	err := t.db.Model(&model.Metric{}).
		Select("COUNT(*) AS total, COALESCE(SUM(value),0) AS successes").
		Where("version_id = ? AND name = ?", versionID, model.MetricSuccess).
		Scan(&stats).Error
	if err != nil {
		return 0, err
	}
	if stats.Total == 0 {
		return 0, nil
	}
	return 1.0 - stats.Successes/float64(stats.Total), nil
}

// RankedMetrics is a version aggregate with its performance score
type RankedMetrics struct {
	Metrics
	PerformanceScore float64 `json:"performance_score"`
}

// VersionRanking ranks a model's versions by performance score:
// lower latency and higher success rate rank better. Versions without
// recorded requests are excluded.
func (t *Tracker) VersionRanking(modelName string) ([]RankedMetrics, error) {
	var versions []string
	err := t.db.Model(&model.Version{}).
		Joins("JOIN models ON models.id = versions.model_id").
		Where("models.name = ?", modelName).
		Pluck("versions.version", &versions).Error
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedMetrics, 0, len(versions))
	for _, v := range versions {
		m, err := t.GetMetrics(modelName, v)
		if err != nil || m.TotalRequests == 0 || m.AvgLatency == 0 {
			continue
		}
		score := (1 / m.AvgLatency) * (m.SuccessRate / 100)
		ranked = append(ranked, RankedMetrics{
			Metrics:          *m,
			PerformanceScore: round(score, 3),
		})
	}

	for i := 0; i < len(ranked); i++ {
		for j := i + 1; j < len(ranked); j++ {
			if ranked[j].PerformanceScore > ranked[i].PerformanceScore {
				ranked[i], ranked[j] = ranked[j], ranked[i]
			}
		}
	}
	return ranked, nil
}

func (t *Tracker) resolveVersionID(modelName, version string) (uint, bool) {
	var v model.Version
	err := t.db.Select("versions.id").
		Joins("JOIN models ON models.id = versions.model_id").
		Where("models.name = ? AND versions.version = ?", modelName, version).
		First(&v).Error
	if err != nil {
		return 0, false
	}
	return v.ID, true
}

func metricsCacheKey(modelName, version string) string {
	return fmt.Sprintf("perf:%s:%s", modelName, version)
}

func (t *Tracker) cachedMetrics(modelName, version string) *Metrics {
	if cache.Client == nil {
		return nil
	}
	data, err := cache.Client.Get(context.Background(), metricsCacheKey(modelName, version)).Bytes()
	if err != nil {
		return nil
	}
	var m Metrics
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return &m
}

func (t *Tracker) cacheMetrics(m *Metrics) {
	if cache.Client == nil {
		return
	}
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := cache.Client.Set(context.Background(), metricsCacheKey(m.ModelName, m.Version), data, metricsCacheTTL).Err(); err != nil {
		logrus.Debugf("Failed to cache metrics for %s v%s: %v", m.ModelName, m.Version, err)
	}
}

func (t *Tracker) invalidateCache(modelName, version string) {
	if cache.Client == nil {
		return
	}
	cache.Client.Del(context.Background(), metricsCacheKey(modelName, version))
}

func round(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
