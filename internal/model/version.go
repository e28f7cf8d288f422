package model

import (
	"gorm.io/datatypes"
)

// VersionStatus represents version lifecycle status
type VersionStatus string

const (
	VersionStatusActive     VersionStatus = "active"
	VersionStatusBeta       VersionStatus = "beta"
	VersionStatusDeprecated VersionStatus = "deprecated"
)

// Version represents a semantically-versioned release of a model
type Version struct {
	BaseModel
	ModelID  uint              `gorm:"not null;uniqueIndex:uk_model_version;index" json:"model_id"`
	Version  string            `gorm:"type:varchar(64);uniqueIndex:uk_model_version;not null" json:"version"`
	Status   VersionStatus     `gorm:"type:varchar(16);default:'active'" json:"status"`
	Metadata datatypes.JSONMap `gorm:"type:json" json:"metadata,omitempty"`
}

// TableName specifies the table name for Version
func (Version) TableName() string {
	return "versions"
}
