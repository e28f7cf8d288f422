package model

import "time"

// TrafficAllocation records the intended traffic percentage for a
// version. One row per version, last write wins. Percentages across a
// model's versions are not required to sum to 100.
type TrafficAllocation struct {
	ID         uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	VersionID  uint      `gorm:"not null;uniqueIndex" json:"version_id"`
	Percentage int       `gorm:"not null;default:0" json:"percentage"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// TableName specifies the table name for TrafficAllocation
func (TrafficAllocation) TableName() string {
	return "traffic"
}
