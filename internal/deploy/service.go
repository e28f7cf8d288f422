// Package deploy runs rollout strategies as staged state machines
// over the traffic controller, gated by the health probe. The
// orchestrator alone transitions deployment records; strategies never
// touch them.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go_modelops/internal/health"
	"go_modelops/internal/httpx"
	"go_modelops/internal/model"
	"go_modelops/internal/modellock"
	"go_modelops/internal/snapshot"
	"go_modelops/internal/traffic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Options configures the orchestrator
type Options struct {
	ObserveInterval time.Duration
	CanaryStages    []int
}

// Result is the outcome of a deploy call. A failed health gate is
// reported here as status failed, never as an error.
type Result struct {
	DeploymentID uint                   `json:"deployment_id"`
	UID          string                 `json:"deployment_uid"`
	Model        string                 `json:"model"`
	Version      string                 `json:"version"`
	Strategy     model.DeployStrategy   `json:"strategy"`
	Status       model.DeploymentStatus `json:"status"`
	SnapshotUID  string                 `json:"snapshot_uid,omitempty"`
}

// Publisher broadcasts deployment lifecycle events
type Publisher interface {
	Publish(topic, eventType string, payload interface{})
}

// Service orchestrates deployments
type Service struct {
	db         *gorm.DB
	traffic    *traffic.Controller
	snapshots  *snapshot.Store
	locks      *modellock.Registry
	strategies map[model.DeployStrategy]Strategy
	publisher  Publisher
	logger     *logrus.Entry
}

// NewService creates a deployment orchestrator
func NewService(db *gorm.DB, tc *traffic.Controller, snaps *snapshot.Store, locks *modellock.Registry, prober health.Prober, opts Options) *Service {
	return &Service{
		db:         db,
		traffic:    tc,
		snapshots:  snaps,
		locks:      locks,
		strategies: strategySet(tc, prober, opts.ObserveInterval, opts.CanaryStages),
		logger:     logrus.WithField("component", "deploy-orchestrator"),
	}
}

// SetPublisher wires the event hub; nil disables broadcasting
func (s *Service) SetPublisher(p Publisher) {
	s.publisher = p
}

// Deploy rolls a model version into traffic with the chosen strategy.
// It resolves the version once, creates the deployment record in
// pending, runs the strategy under the per-model lock, then records
// completed or failed. A snapshot is captured only for completed
// deployments.
func (s *Service) Deploy(ctx context.Context, modelName, version string, strategy model.DeployStrategy) (*Result, error) {
	strat, ok := s.strategies[strategy]
	if !ok {
		return nil, httpx.ErrParamIllegal(fmt.Sprintf("unknown strategy: %s", strategy))
	}

	target, err := s.resolveTarget(modelName, version)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(modelName)
	defer s.locks.Unlock(modelName)

	dep := &model.Deployment{
		UID:       uuid.NewString(),
		VersionID: target.VersionID,
		Strategy:  strategy,
		Status:    model.DeploymentStatusPending,
	}
	if err := s.db.Create(dep).Error; err != nil {
		return nil, err
	}

	runErr := strat.Run(ctx, *target)

	result := &Result{
		DeploymentID: dep.ID,
		UID:          dep.UID,
		Model:        modelName,
		Version:      version,
		Strategy:     strategy,
	}

	if runErr != nil {
		if markErr := s.markDeployment(dep, model.DeploymentStatusFailed); markErr != nil {
			s.logger.Errorf("Failed to mark deployment %d failed: %v", dep.ID, markErr)
		}
		result.Status = model.DeploymentStatusFailed
		s.publishEvent("failed", result)

		if errors.Is(runErr, ErrUnhealthy) {
			s.logger.Errorf("Deployment failed: %s v%s (%s): %v", modelName, version, strategy, runErr)
			return result, nil
		}
		return nil, runErr
	}

	if err := s.markDeployment(dep, model.DeploymentStatusCompleted); err != nil {
		return nil, err
	}
	result.Status = model.DeploymentStatusCompleted

	snap, err := s.snapshots.Create(dep.ID)
	if err != nil {
		// The rollout itself succeeded; a missing snapshot only
		// degrades rollback options
		s.logger.Warnf("Failed to snapshot deployment %d: %v", dep.ID, err)
	} else {
		result.SnapshotUID = snap.UID
	}

	s.logger.Infof("Deployment completed: %s v%s (%s)", modelName, version, strategy)
	s.publishEvent("completed", result)
	return result, nil
}

func (s *Service) resolveTarget(modelName, version string) (*Target, error) {
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
		return nil, err
	}
	if row.VersionID == 0 {
		return nil, httpx.ErrNotFound(fmt.Sprintf("version not found: %s v%s", modelName, version))
	}
	return &Target{
		ModelName: modelName,
		Version:   version,
		ModelID:   row.ModelID,
		VersionID: row.VersionID,
	}, nil
}

func (s *Service) markDeployment(dep *model.Deployment, status model.DeploymentStatus) error {
	now := time.Now()
	return s.db.Model(dep).Updates(map[string]interface{}{
		"status":       status,
		"completed_at": &now,
	}).Error
}

func (s *Service) publishEvent(eventType string, result *Result) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish("deployments", eventType, result)
}
