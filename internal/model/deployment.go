package model

import "time"

// DeployStrategy identifies a rollout strategy
type DeployStrategy string

const (
	DeployStrategyDirect    DeployStrategy = "direct"
	DeployStrategyBlueGreen DeployStrategy = "blue-green"
	DeployStrategyCanary    DeployStrategy = "canary"
)

// DeploymentStatus represents deployment lifecycle status.
// A deployment is created pending and transitions exactly once
// to completed or failed.
type DeploymentStatus string

const (
	DeploymentStatusPending   DeploymentStatus = "pending"
	DeploymentStatusCompleted DeploymentStatus = "completed"
	DeploymentStatusFailed    DeploymentStatus = "failed"
)

// Deployment represents one rollout of a version
type Deployment struct {
	ID          uint             `gorm:"primaryKey;autoIncrement" json:"id"`
	UID         string           `gorm:"type:varchar(36);uniqueIndex;not null" json:"uid"`
	VersionID   uint             `gorm:"not null;index" json:"version_id"`
	Strategy    DeployStrategy   `gorm:"type:varchar(16);not null" json:"strategy"`
	Status      DeploymentStatus `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	DeployedAt  time.Time        `gorm:"autoCreateTime;index" json:"deployed_at"`
	CompletedAt *time.Time       `json:"completed_at,omitempty"`
}

// TableName specifies the table name for Deployment
func (Deployment) TableName() string {
	return "deployments"
}
