package model

import (
	"time"

	"gorm.io/datatypes"
)

// Snapshot is an immutable capture of a deployment's traffic state,
// used only for restoration.
type Snapshot struct {
	ID           uint           `gorm:"primaryKey;autoIncrement" json:"id"`
	UID          string         `gorm:"type:varchar(36);uniqueIndex;not null" json:"uid"`
	DeploymentID uint           `gorm:"not null;index" json:"deployment_id"`
	Data         datatypes.JSON `gorm:"type:json;not null" json:"data"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for Snapshot
func (Snapshot) TableName() string {
	return "snapshots"
}
