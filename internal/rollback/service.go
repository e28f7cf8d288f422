// Package rollback reverts a model's traffic to a known-good state:
// the previous completed deployment, an explicit version, or a
// snapshot. The auto-rollback entry point ties the performance
// monitor's error rate to rollbackToPrevious.
package rollback

import (
	"fmt"

	"go_modelops/internal/httpx"
	"go_modelops/internal/model"
	"go_modelops/internal/modellock"
	"go_modelops/internal/perf"
	"go_modelops/internal/snapshot"
	"go_modelops/internal/traffic"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Service coordinates rollbacks
type Service struct {
	db        *gorm.DB
	traffic   *traffic.Controller
	snapshots *snapshot.Store
	tracker   *perf.Tracker
	locks     *modellock.Registry
	logger    *logrus.Entry
}

// NewService creates a rollback coordinator
func NewService(db *gorm.DB, tc *traffic.Controller, snaps *snapshot.Store, tracker *perf.Tracker, locks *modellock.Registry) *Service {
	return &Service{
		db:        db,
		traffic:   tc,
		snapshots: snaps,
		tracker:   tracker,
		locks:     locks,
		logger:    logrus.WithField("component", "rollback"),
	}
}

// deploymentRow is a completed deployment joined with its version
type deploymentRow struct {
	ID        uint
	VersionID uint
	Version   string
}

// ToPrevious reverts to the second-most-recent completed deployment:
// the previous version goes to 100%, the current to 0%. Previous is
// defined by deployment order, not by traffic.
func (s *Service) ToPrevious(modelName string) (string, error) {
	s.locks.Lock(modelName)
	defer s.locks.Unlock(modelName)
	return s.toPreviousLocked(modelName)
}

func (s *Service) toPreviousLocked(modelName string) (string, error) {
	rows, err := s.recentCompleted(modelName, 2)
	if err != nil {
		return "", err
	}
	if len(rows) < 2 {
		s.logger.Warnf("No previous deployment found for %s", modelName)
		return "", httpx.ErrStateConflict(fmt.Sprintf("no previous deployment for model: %s", modelName))
	}

	current, previous := rows[0], rows[1]
	s.logger.Infof("Rolling back %s: v%s -> v%s", modelName, current.Version, previous.Version)

	if err := s.traffic.SetTraffic(previous.VersionID, 100); err != nil {
		return "", err
	}
	if err := s.traffic.SetTraffic(current.VersionID, 0); err != nil {
		return "", err
	}

	s.logger.Infof("Rollback completed: %s v%s", modelName, previous.Version)
	return previous.Version, nil
}

// ToVersion reverts to an explicit version: the target goes to 100%
// and every other version of the model to 0%
func (s *Service) ToVersion(modelName, version string) error {
	s.locks.Lock(modelName)
	defer s.locks.Unlock(modelName)

	var row struct {
		VersionID uint
		ModelID   uint
	}
	err := s.db.Model(&model.Version{}).
		Select("versions.id AS version_id, versions.model_id").
		Joins("JOIN models ON models.id = versions.model_id").
		Where("models.name = ? AND versions.version = ?", modelName, version).
		Scan(&row).Error
	if err != nil {
		return err
	}
	if row.VersionID == 0 {
		s.logger.Errorf("Version not found: %s v%s", modelName, version)
		return httpx.ErrNotFound(fmt.Sprintf("version not found: %s v%s", modelName, version))
	}

	s.logger.Infof("Rolling back %s to v%s", modelName, version)

	if err := s.traffic.SetTraffic(row.VersionID, 100); err != nil {
		return err
	}
	if err := s.traffic.ClearOthers(row.ModelID, row.VersionID); err != nil {
		return err
	}

	s.logger.Infof("Rollback completed: %s v%s", modelName, version)
	return nil
}

// FromSnapshot restores the traffic allocation captured in a snapshot
func (s *Service) FromSnapshot(snapshotUID string) error {
	payload, err := s.snapshots.Get(snapshotUID)
	if err != nil {
		return err
	}

	s.locks.Lock(payload.ModelName)
	defer s.locks.Unlock(payload.ModelName)

	s.logger.Infof("Rolling back from snapshot: %s", snapshotUID)
	if err := s.snapshots.Restore(snapshotUID); err != nil {
		s.logger.Errorf("Rollback from snapshot failed: %s: %v", snapshotUID, err)
		return err
	}
	s.logger.Infof("Rollback from snapshot completed: %s", snapshotUID)
	return nil
}

// AutoOnError rolls back to the previous deployment when the current
// deployment's live error rate exceeds the threshold. It reports
// whether a rollback occurred. Invoked externally by a control loop
// or an alert handler; it runs no timer of its own.
func (s *Service) AutoOnError(modelName string, errorThreshold float64) (bool, error) {
	s.locks.Lock(modelName)
	defer s.locks.Unlock(modelName)

	rows, err := s.recentCompleted(modelName, 1)
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}
	current := rows[0]

	errorRate, err := s.tracker.ErrorRate(current.VersionID)
	if err != nil {
		return false, err
	}

	if errorRate <= errorThreshold {
		return false, nil
	}

	s.logger.Warnf("Error rate %.2f%% exceeds threshold %.2f%% for %s",
		errorRate*100, errorThreshold*100, modelName)
	s.logger.Infof("Triggering automatic rollback for %s", modelName)

	previous, err := s.toPreviousLocked(modelName)
	if err != nil {
		if appErr, ok := err.(*httpx.AppError); ok && appErr.Code == httpx.CodeStateConflict {
			// Nothing to fall back to; leave traffic untouched
			return false, nil
		}
		return false, err
	}

	s.logger.Infof("Automatic rollback completed: %s v%s", modelName, previous)
	return true, nil
}

func (s *Service) recentCompleted(modelName string, limit int) ([]deploymentRow, error) {
	var rows []deploymentRow
	err := s.db.Model(&model.Deployment{}).
		Select("deployments.id, deployments.version_id, versions.version").
		Joins("JOIN versions ON versions.id = deployments.version_id").
		Joins("JOIN models ON models.id = versions.model_id").
		Where("models.name = ? AND deployments.status = ?", modelName, model.DeploymentStatusCompleted).
		Order("deployments.deployed_at DESC, deployments.id DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
