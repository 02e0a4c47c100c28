package model

import (
	"time"

	"gorm.io/datatypes"
)

const (
	ColEventUserID    = "user_id"
	ColEventType      = "event_type"
	ColEventSeverity  = "severity"
	ColEventIPAddress = "ip_address"
	ColEventCreatedAt = "created_at"
)

// SecurityEvent is an immutable audit record of one security-relevant occurrence.
type SecurityEvent struct {
	ID        uint64            `gorm:"primaryKey;autoIncrement"          json:"id"`
	UserID    *uint             `gorm:"index"                             json:"userId,omitempty"`
	EventType EventType         `gorm:"size:64;not null;index"            json:"eventType"`
	Severity  Severity          `gorm:"size:16;not null;index"            json:"severity"`
	IPAddress string            `gorm:"size:45;not null;index"            json:"ipAddress"`
	UserAgent string            `gorm:"size:512;not null"                 json:"userAgent"`
	Details   datatypes.JSONMap `json:"details,omitempty"`
	CreatedAt time.Time         `gorm:"autoCreateTime;not null;index"     json:"createdAt"`
}

func (SecurityEvent) TableName() string {
	return "security_events"
}
