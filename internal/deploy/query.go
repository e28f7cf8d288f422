package deploy

import (
	"fmt"
	"time"

	"go_modelops/internal/httpx"
	"go_modelops/internal/model"
)

// Info is a deployment joined with its version and model names
type Info struct {
	ID          uint                   `json:"id"`
	UID         string                 `json:"uid"`
	VersionID   uint                   `json:"version_id"`
	Version     string                 `json:"version"`
	ModelName   string                 `json:"model_name"`
	Strategy    model.DeployStrategy   `json:"strategy"`
	Status      model.DeploymentStatus `json:"status"`
	DeployedAt  time.Time              `json:"deployed_at"`
	CompletedAt *time.Time             `json:"completed_at,omitempty"`
}

// GetDeployment returns a deployment by its public UID
func (s *Service) GetDeployment(uid string) (*Info, error) {
	var info Info
	err := s.db.Model(&model.Deployment{}).
		Select(infoSelect).
		Joins("JOIN versions ON versions.id = deployments.version_id").
		Joins("JOIN models ON models.id = versions.model_id").
		Where("deployments.uid = ?", uid).
		Scan(&info).Error
	if err != nil {
		return nil, err
	}
	if info.ID == 0 {
		return nil, httpx.ErrNotFound(fmt.Sprintf("deployment not found: %s", uid))
	}
	return &info, nil
}

// ListDeployments returns deployments newest first, optionally
// filtered by model name
func (s *Service) ListDeployments(modelName string, limit int) ([]Info, error) {
	if limit <= 0 {
		limit = 10
	}

	q := s.db.Model(&model.Deployment{}).
		Select(infoSelect).
		Joins("JOIN versions ON versions.id = deployments.version_id").
		Joins("JOIN models ON models.id = versions.model_id").
		Order("deployments.deployed_at DESC, deployments.id DESC").
		Limit(limit)
	if modelName != "" {
		q = q.Where("models.name = ?", modelName)
	}

	var out []Info
	if err := q.Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ActiveDeployment returns the most recent completed deployment for a
// model, nil when the model has never completed one
func (s *Service) ActiveDeployment(modelName string) (*Info, error) {
	var info Info
	err := s.db.Model(&model.Deployment{}).
		Select(infoSelect).
		Joins("JOIN versions ON versions.id = deployments.version_id").
		Joins("JOIN models ON models.id = versions.model_id").
		Where("models.name = ? AND deployments.status = ?", modelName, model.DeploymentStatusCompleted).
		Order("deployments.deployed_at DESC, deployments.id DESC").
		Limit(1).
		Scan(&info).Error
	if err != nil {
		return nil, err
	}
	if info.ID == 0 {
		return nil, nil
	}
	return &info, nil
}

const infoSelect = "deployments.id, deployments.uid, deployments.version_id, versions.version, " +
	"models.name AS model_name, deployments.strategy, deployments.status, " +
	"deployments.deployed_at, deployments.completed_at"
