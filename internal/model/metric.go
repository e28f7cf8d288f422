package model

import "time"

// Metric names recorded by the performance tracker
const (
	MetricLatency = "latency"
	MetricTokens  = "tokens"
	MetricSuccess = "success"
)

// Metric is one append-only performance sample for a version
type Metric struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	VersionID uint      `gorm:"not null;index:idx_version_metric" json:"version_id"`
	Name      string    `gorm:"type:varchar(32);not null;index:idx_version_metric" json:"name"`
	Value     float64   `gorm:"not null" json:"value"`
	Timestamp time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
}

// TableName specifies the table name for Metric
func (Metric) TableName() string {
	return "metrics"
}
