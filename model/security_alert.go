package model

import "time"

const (
	ColAlertResolved        = "resolved"
	ColAlertResolvedBy      = "resolved_by"
	ColAlertResolutionNotes = "resolution_notes"
	ColAlertResolvedAt      = "resolved_at"
	ColAlertCreatedAt       = "created_at"
)

// SecurityAlert is an operator-actionable condition derived from a security event.
// Resolved alerts always carry ResolvedBy and ResolvedAt; unresolved ones carry neither.
type SecurityAlert struct {
	ID              uint64     `gorm:"primaryKey;autoIncrement"       json:"id"`
	EventID         uint64     `gorm:"not null;index"                 json:"eventId"`
	UserID          *uint      `gorm:"index"                          json:"userId,omitempty"`
	AlertType       string     `gorm:"size:64;not null;index"         json:"alertType"`
	Severity        Severity   `gorm:"size:16;not null;index"         json:"severity"`
	Message         string     `gorm:"size:1024;not null"             json:"message"`
	Resolved        bool       `gorm:"not null;default:false;index"   json:"resolved"`
	ResolvedBy      *uint      `json:"resolvedBy,omitempty"`
	ResolutionNotes *string    `gorm:"size:1024"                      json:"resolutionNotes,omitempty"`
	CreatedAt       time.Time  `gorm:"autoCreateTime;not null;index"  json:"createdAt"`
	ResolvedAt      *time.Time `gorm:"index"                          json:"resolvedAt,omitempty"`
}

func (SecurityAlert) TableName() string {
	return "security_alerts"
}
