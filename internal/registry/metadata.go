package registry

import (
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

// GetMetadata returns the metadata map for a model version
func (s *Service) GetMetadata(modelName, version string) (map[string]interface{}, error) {
	v, err := s.GetVersion(modelName, version)
	if err != nil {
		return nil, err
	}
	return v.Metadata, nil
}

// UpdateMetadata merges the given fields into the version's metadata
func (s *Service) UpdateMetadata(modelName, version string, updates map[string]interface{}) error {
	v, err := s.GetVersion(modelName, version)
	if err != nil {
		return err
	}

	merged := map[string]interface{}{}
	for k, val := range v.Metadata {
		merged[k] = val
	}
	for k, val := range updates {
		merged[k] = val
	}

	if err := s.db.Model(v).Update("metadata", datatypes.JSONMap(merged)).Error; err != nil {
		return err
	}
	logrus.Infof("Metadata updated: %s v%s", modelName, version)
	return nil
}

// AddTag appends a tag to the version's metadata tag list
func (s *Service) AddTag(modelName, version, tag string) error {
	v, err := s.GetVersion(modelName, version)
	if err != nil {
		return err
	}

	var tags []interface{}
	if existing, ok := v.Metadata["tags"].([]interface{}); ok {
		tags = existing
	}
	for _, t := range tags {
		if t == tag {
			return nil // already tagged
		}
	}
	tags = append(tags, tag)

	return s.UpdateMetadata(modelName, version, map[string]interface{}{"tags": tags})
}
