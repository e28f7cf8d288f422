package ws

import (
	"encoding/json"

	"go_modelops/internal/model"
)

// Publish persists an event and broadcasts it as "<topic>:update".
// Broadcast failure never affects the caller's flow; persistence
// failure is logged and the broadcast skipped so replay stays
// consistent with what was actually delivered.
func (h *Hub) Publish(topic, eventType string, payload interface{}) {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		h.logger.Warnf("Failed to marshal payload: %v", err)
		return
	}

	event := model.Event{
		Topic:     topic,
		EventType: eventType,
		Payload:   string(payloadJSON),
	}
	if err := h.db.Create(&event).Error; err != nil {
		h.logger.Warnf("Failed to persist event: %v", err)
		return
	}

	h.broadcast(topic+":update", map[string]interface{}{
		"eventId": event.ID,
		"type":    eventType,
		"data":    payload,
	})
	h.logger.Debugf("Event broadcasted: eventId=%d, topic=%s, type=%s", event.ID, topic, eventType)
}

// IncrementalEvents returns persisted events with id > lastEventID,
// oldest first, limited to maxCount
func (h *Hub) IncrementalEvents(topic string, lastEventID int64, maxCount int) ([]model.Event, error) {
	var events []model.Event
	err := h.db.
		Where("topic = ? AND id > ?", topic, lastEventID).
		Order("id ASC").
		Limit(maxCount).
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

// LatestEventID returns the newest persisted event id for a topic,
// 0 when the topic has no events
func (h *Hub) LatestEventID(topic string) (int64, error) {
	var event model.Event
	err := h.db.
		Where("topic = ?", topic).
		Order("id DESC").
		First(&event).Error
	if err != nil {
		if err.Error() == "record not found" {
			return 0, nil
		}
		return 0, err
	}
	return event.ID, nil
}
