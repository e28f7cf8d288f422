// Package snapshot durably records a deployment's traffic allocation
// at a point in time, for later restoration. Snapshots capture the
// single deployed version's percentage, not the whole model's
// allocation vector; restoring does not touch sibling versions.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"

	"go_modelops/internal/httpx"
	"go_modelops/internal/model"
	"go_modelops/internal/traffic"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Payload is the immutable captured allocation
type Payload struct {
	DeploymentID uint   `json:"deployment_id"`
	VersionID    uint   `json:"version_id"`
	Version      string `json:"version"`
	ModelName    string `json:"model_name"`
	Strategy     string `json:"strategy"`
	Percentage   int    `json:"percentage"`
}

// Store creates and restores deployment snapshots
type Store struct {
	db      *gorm.DB
	traffic *traffic.Controller
}

// NewStore creates a snapshot store
func NewStore(db *gorm.DB, tc *traffic.Controller) *Store {
	return &Store{db: db, traffic: tc}
}

// deploymentRow is the joined deployment detail needed for capture
type deploymentRow struct {
	ID        uint
	VersionID uint
	Strategy  string
	Version   string
	ModelName string
}

// Create captures the deployment's resolved version, model, strategy
// and current traffic percentage as one immutable record
func (s *Store) Create(deploymentID uint) (*model.Snapshot, error) {
	var row deploymentRow
	err := s.db.Model(&model.Deployment{}).
		Select("deployments.id, deployments.version_id, deployments.strategy, versions.version, models.name AS model_name").
		Joins("JOIN versions ON versions.id = deployments.version_id").
		Joins("JOIN models ON models.id = versions.model_id").
		Where("deployments.id = ?", deploymentID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == 0 {
		return nil, httpx.ErrNotFound(fmt.Sprintf("deployment not found: %d", deploymentID))
	}

	pct, err := s.traffic.GetTraffic(row.VersionID)
	if err != nil {
		return nil, err
	}

	payload := Payload{
		DeploymentID: row.ID,
		VersionID:    row.VersionID,
		Version:      row.Version,
		ModelName:    row.ModelName,
		Strategy:     row.Strategy,
		Percentage:   pct,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot payload: %w", err)
	}

	snap := &model.Snapshot{
		UID:          uuid.NewString(),
		DeploymentID: row.ID,
		Data:         datatypes.JSON(data),
	}
	if err := s.db.Create(snap).Error; err != nil {
		return nil, err
	}

	logrus.Infof("Snapshot created: %s for deployment %d", snap.UID, deploymentID)
	return snap, nil
}

// Get returns the captured payload for a snapshot
func (s *Store) Get(snapshotUID string) (*Payload, error) {
	var snap model.Snapshot
	if err := s.db.Where("uid = ?", snapshotUID).First(&snap).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httpx.ErrNotFound(fmt.Sprintf("snapshot not found: %s", snapshotUID))
		}
		return nil, err
	}

	var payload Payload
	if err := json.Unmarshal(snap.Data, &payload); err != nil {
		return nil, fmt.Errorf("corrupt snapshot %s: %w", snapshotUID, err)
	}
	return &payload, nil
}

// Restore re-applies the captured percentage to the captured version
func (s *Store) Restore(snapshotUID string) error {
	payload, err := s.Get(snapshotUID)
	if err != nil {
		return err
	}

	if err := s.traffic.SetTraffic(payload.VersionID, payload.Percentage); err != nil {
		return err
	}

	logrus.Infof("Snapshot restored: %s (%s v%s -> %d%%)",
		snapshotUID, payload.ModelName, payload.Version, payload.Percentage)
	return nil
}

// List returns snapshots newest first, optionally filtered by deployment
func (s *Store) List(deploymentID uint, limit int) ([]model.Snapshot, error) {
	if limit <= 0 {
		limit = 10
	}
	q := s.db.Order("created_at DESC").Limit(limit)
	if deploymentID != 0 {
		q = q.Where("deployment_id = ?", deploymentID)
	}

	var out []model.Snapshot
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes a snapshot
func (s *Store) Delete(snapshotUID string) error {
	res := s.db.Where("uid = ?", snapshotUID).Delete(&model.Snapshot{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return httpx.ErrNotFound(fmt.Sprintf("snapshot not found: %s", snapshotUID))
	}
	logrus.Infof("Snapshot deleted: %s", snapshotUID)
	return nil
}
