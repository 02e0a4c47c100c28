package model

import "time"

// UserAccessLocation records one geolocated access by a user. Rows are appended
// on every login, so a location seen before shows up once per access.
type UserAccessLocation struct {
	ID            uint64    `gorm:"primaryKey;autoIncrement"`
	UserID        uint      `gorm:"not null;index:idx_user_access_location"`
	IPAddress     string    `gorm:"size:45;not null"`
	Country       string    `gorm:"size:100;not null;index:idx_user_access_location"`
	Region        string    `gorm:"size:100;not null;index:idx_user_access_location"`
	City          string    `gorm:"size:100;not null"`
	Latitude      float64   `gorm:"not null;default:0"`
	Longitude     float64   `gorm:"not null;default:0"`
	IsFirstAccess bool      `gorm:"not null;default:false"`
	IsSuspicious  bool      `gorm:"not null;default:false"`
	CreatedAt     time.Time `gorm:"autoCreateTime;not null"`
}

func (UserAccessLocation) TableName() string {
	return "user_access_locations"
}
