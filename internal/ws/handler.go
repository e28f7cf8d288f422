package ws

import (
	"encoding/json"
	"time"

	"go_modelops/internal/model"

	socketio "github.com/googollee/go-socket.io"
)

const deploymentsTopic = "deployments"

// replay falls back to the full list past this many pending events
const maxReplayEvents = 500

// DeploymentListItem is a deployment row in the initial snapshot
type DeploymentListItem struct {
	UID        string `json:"uid"`
	Model      string `json:"model"`
	Version    string `json:"version"`
	Strategy   string `json:"strategy"`
	Status     string `json:"status"`
	DeployedAt string `json:"deployed_at"`
}

// handleRequestDeployments serves the request:deployments event.
// Clients with a lastEventId get incremental replay; everyone else
// (and clients too far behind) get the full deployment list.
func (h *Hub) handleRequestDeployments(s socketio.Conn, data interface{}) {
	var lastEventID int64
	if dataMap, ok := data.(map[string]interface{}); ok {
		if v, ok := dataMap["lastEventId"].(float64); ok {
			lastEventID = int64(v)
		}
	}

	h.logger.Debugf("request:deployments from client %s, lastEventId=%d", s.ID(), lastEventID)

	if lastEventID > 0 {
		if h.sendIncremental(s, lastEventID) {
			return
		}
		h.logger.Debug("Incremental replay failed, falling back to full list")
	}

	h.sendFullList(s)
}

// sendIncremental replays missed events to the client. Returns false
// when the client should receive the full list instead.
func (h *Hub) sendIncremental(s socketio.Conn, lastEventID int64) bool {
	events, err := h.IncrementalEvents(deploymentsTopic, lastEventID, maxReplayEvents)
	if err != nil {
		h.logger.Warnf("Failed to query incremental events: %v", err)
		return false
	}
	if len(events) >= maxReplayEvents {
		h.logger.Debugf("Too many incremental events (%d), falling back to full list", len(events))
		return false
	}

	if len(events) == 0 {
		latestEventID, _ := h.LatestEventID(deploymentsTopic)
		s.Emit("deployments:initial", map[string]interface{}{
			"items":       []interface{}{},
			"total":       0,
			"lastEventId": latestEventID,
		})
		return true
	}

	for _, event := range events {
		var payload interface{}
		if err := json.Unmarshal([]byte(event.Payload), &payload); err != nil {
			h.logger.Warnf("Failed to unmarshal event payload: %v", err)
			continue
		}
		s.Emit("deployments:update", map[string]interface{}{
			"eventId": event.ID,
			"type":    event.EventType,
			"data":    payload,
		})
	}
	return true
}

func (h *Hub) sendFullList(s socketio.Conn) {
	var total int64
	if err := h.db.Model(&model.Deployment{}).Count(&total).Error; err != nil {
		h.logger.Warnf("Failed to count deployments: %v", err)
		s.Emit("error", map[string]interface{}{
			"message": "Failed to query deployments",
		})
		return
	}

	var rows []struct {
		UID        string
		ModelName  string
		Version    string
		Strategy   string
		Status     string
		DeployedAt time.Time
	}
	err := h.db.Model(&model.Deployment{}).
		Select("deployments.uid, models.name AS model_name, versions.version, deployments.strategy, deployments.status, deployments.deployed_at").
		Joins("JOIN versions ON versions.id = deployments.version_id").
		Joins("JOIN models ON models.id = versions.model_id").
		Order("deployments.deployed_at DESC, deployments.id DESC").
		Limit(1000).
		Scan(&rows).Error
	if err != nil {
		h.logger.Warnf("Failed to query deployments: %v", err)
		s.Emit("error", map[string]interface{}{
			"message": "Failed to query deployments",
		})
		return
	}

	items := make([]DeploymentListItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, DeploymentListItem{
			UID:        row.UID,
			Model:      row.ModelName,
			Version:    row.Version,
			Strategy:   row.Strategy,
			Status:     row.Status,
			DeployedAt: row.DeployedAt.Format("2006-01-02 15:04:05"),
		})
	}

	latestEventID, _ := h.LatestEventID(deploymentsTopic)
	s.Emit("deployments:initial", map[string]interface{}{
		"items":       items,
		"total":       total,
		"lastEventId": latestEventID,
	})
	h.logger.Debugf("Sent full deployment list: total=%d, lastEventId=%d", total, latestEventID)
}
