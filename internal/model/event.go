package model

import (
	"time"
)

// Event represents a broadcast event stored for incremental replay
type Event struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Topic     string    `gorm:"column:topic;type:varchar(64);not null;index:idx_topic_id" json:"topic"`
	EventType string    `gorm:"column:event_type;type:varchar(32);not null" json:"event_type"`
	Payload   string    `gorm:"column:payload;type:json;not null" json:"payload"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// TableName specifies the table name for Event
func (Event) TableName() string {
	return "events"
}
