package model

import "time"

// AlertSeverity represents alert severity
type AlertSeverity string

const (
	AlertSeverityInfo     AlertSeverity = "info"
	AlertSeverityWarning  AlertSeverity = "warning"
	AlertSeverityCritical AlertSeverity = "critical"
)

// Alert types produced by the alerting checks
const (
	AlertTypeLatencyHigh     = "latency_high"
	AlertTypeErrorRateHigh   = "error_rate_high"
	AlertTypePerfDegradation = "performance_degradation"
)

// Alert is an append-only record produced by a performance check
type Alert struct {
	ID        uint          `gorm:"primaryKey;autoIncrement" json:"id"`
	VersionID uint          `gorm:"not null;index" json:"version_id"`
	Type      string        `gorm:"type:varchar(64);not null" json:"type"`
	Message   string        `gorm:"type:varchar(512)" json:"message"`
	Severity  AlertSeverity `gorm:"type:varchar(16);default:'info';index" json:"severity"`
	Timestamp time.Time     `gorm:"autoCreateTime;index" json:"timestamp"`
}

// TableName specifies the table name for Alert
func (Alert) TableName() string {
	return "alerts"
}
