// Package traffic holds the intended traffic allocation per version.
// The controller is the single source of truth for what fraction of
// requests a version should receive. It performs no cross-version
// validation: callers drive allocations to a consistent state.
package traffic

import (
	"errors"
	"fmt"

	"go_modelops/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrVersionNotFound is returned when a traffic write targets a
// version row that does not exist. Callers must not ignore it: a
// dropped traffic write leaves a rollout in an inconsistent state.
var ErrVersionNotFound = errors.New("traffic: version not found")

// ErrInvalidPercentage is returned for percentages outside [0,100]
var ErrInvalidPercentage = errors.New("traffic: percentage must be between 0 and 100")

// Controller reads and writes traffic allocations
type Controller struct {
	db *gorm.DB
}

// NewController creates a traffic controller
func NewController(db *gorm.DB) *Controller {
	return &Controller{db: db}
}

// SetTraffic upserts the allocation row for a version. Every write is
// immediately visible to subsequent reads.
func (c *Controller) SetTraffic(versionID uint, percentage int) error {
	if percentage < 0 || percentage > 100 {
		return fmt.Errorf("%w: %d", ErrInvalidPercentage, percentage)
	}

	var count int64
	if err := c.db.Model(&model.Version{}).Where("id = ?", versionID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%w: id=%d", ErrVersionNotFound, versionID)
	}

	alloc := model.TrafficAllocation{VersionID: versionID, Percentage: percentage}
	err := c.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "version_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"percentage", "updated_at"}),
	}).Create(&alloc).Error
	if err != nil {
		return err
	}

	logrus.Infof("Traffic set: version %d -> %d%%", versionID, percentage)
	return nil
}

// GetTraffic returns the allocation for a version, 0 if absent
func (c *Controller) GetTraffic(versionID uint) (int, error) {
	var alloc model.TrafficAllocation
	err := c.db.Where("version_id = ?", versionID).First(&alloc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return alloc.Percentage, nil
}

// ClearOthers sets every version of the model except keepVersionID to 0%
func (c *Controller) ClearOthers(modelID, keepVersionID uint) error {
	return c.db.Model(&model.TrafficAllocation{}).
		Where("version_id IN (?)",
			c.db.Model(&model.Version{}).Select("id").
				Where("model_id = ? AND id != ?", modelID, keepVersionID)).
		Update("percentage", 0).Error
}
