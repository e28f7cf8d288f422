package registry

import (
	"errors"
	"fmt"

	"go_modelops/internal/httpx"
	"go_modelops/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Service is the model/version catalog
type Service struct {
	db *gorm.DB
}

// NewService creates a catalog service
func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// RegisterModel registers a new model. Registration is idempotent on
// name: registering an existing model returns its ID.
func (s *Service) RegisterModel(name, description string) (uint, error) {
	m := &model.Model{Name: name, Description: description}
	err := s.db.Create(m).Error
	if err == nil {
		logrus.Infof("Model registered: %s (ID: %d)", name, m.ID)
		return m.ID, nil
	}

	// Model already exists
	var existing model.Model
	if lookupErr := s.db.Where("name = ?", name).First(&existing).Error; lookupErr == nil {
		logrus.Infof("Model already exists: %s (ID: %d)", name, existing.ID)
		return existing.ID, nil
	}

	return 0, fmt.Errorf("failed to register model %s: %w", name, err)
}

// RegisterVersion registers a version for a model. The version string
// must be valid semver and unique per model.
func (s *Service) RegisterVersion(modelName, version string, status model.VersionStatus, metadata map[string]interface{}) (uint, error) {
	if err := ValidateVersion(version); err != nil {
		return 0, httpx.ErrParamInvalid(fmt.Sprintf("invalid version: %s", version))
	}
	if status == "" {
		status = model.VersionStatusActive
	}
	if !validStatus(status) {
		return 0, httpx.ErrParamIllegal(fmt.Sprintf("invalid status: %s", status))
	}

	var m model.Model
	if err := s.db.Where("name = ?", modelName).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, httpx.ErrNotFound(fmt.Sprintf("model not found: %s", modelName))
		}
		return 0, err
	}

	v := &model.Version{
		ModelID:  m.ID,
		Version:  version,
		Status:   status,
		Metadata: datatypes.JSONMap(metadata),
	}
	if err := s.db.Create(v).Error; err != nil {
		var count int64
		s.db.Model(&model.Version{}).Where("model_id = ? AND version = ?", m.ID, version).Count(&count)
		if count > 0 {
			return 0, httpx.ErrAlreadyExists(fmt.Sprintf("version already exists: %s v%s", modelName, version))
		}
		return 0, err
	}

	logrus.Infof("Version registered: %s v%s (ID: %d)", modelName, version, v.ID)
	return v.ID, nil
}

// GetModel returns a model by name
func (s *Service) GetModel(name string) (*model.Model, error) {
	var m model.Model
	if err := s.db.Where("name = ?", name).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httpx.ErrNotFound(fmt.Sprintf("model not found: %s", name))
		}
		return nil, err
	}
	return &m, nil
}

// GetVersion returns a specific model version
func (s *Service) GetVersion(modelName, version string) (*model.Version, error) {
	var v model.Version
	err := s.db.Joins("JOIN models ON models.id = versions.model_id").
		Where("models.name = ? AND versions.version = ?", modelName, version).
		First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httpx.ErrNotFound(fmt.Sprintf("version not found: %s v%s", modelName, version))
		}
		return nil, err
	}
	return &v, nil
}

// ResolveVersionID resolves (model, version) to the version row ID
func (s *Service) ResolveVersionID(modelName, version string) (uint, bool) {
	var v model.Version
	err := s.db.Select("versions.id").
		Joins("JOIN models ON models.id = versions.model_id").
		Where("models.name = ? AND versions.version = ?", modelName, version).
		First(&v).Error
	if err != nil {
		return 0, false
	}
	return v.ID, true
}

// ListModels lists all registered models ordered by name
func (s *Service) ListModels() ([]model.Model, error) {
	var out []model.Model
	if err := s.db.Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// ListVersions lists all versions for a model, newest first
func (s *Service) ListVersions(modelName string) ([]model.Version, error) {
	var out []model.Version
	err := s.db.Joins("JOIN models ON models.id = versions.model_id").
		Where("models.name = ?", modelName).
		Order("versions.created_at DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateVersionStatus updates the lifecycle status of a version
func (s *Service) UpdateVersionStatus(modelName, version string, status model.VersionStatus) error {
	if !validStatus(status) {
		return httpx.ErrParamIllegal(fmt.Sprintf("invalid status: %s", status))
	}

	v, err := s.GetVersion(modelName, version)
	if err != nil {
		return err
	}

	if err := s.db.Model(v).Update("status", status).Error; err != nil {
		return err
	}
	logrus.Infof("Version status updated: %s v%s -> %s", modelName, version, status)
	return nil
}

func validStatus(status model.VersionStatus) bool {
	switch status {
	case model.VersionStatusActive, model.VersionStatusBeta, model.VersionStatusDeprecated:
		return true
	}
	return false
}
