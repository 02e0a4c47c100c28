package model

import "time"

// RateLimitEntry is the database-backed fixed window counter for one key.
type RateLimitEntry struct {
	Key     string    `gorm:"column:rate_key;primaryKey;size:191"`
	Count   int       `gorm:"not null;default:0"`
	ResetAt time.Time `gorm:"not null;index"`
}

func (RateLimitEntry) TableName() string {
	return "rate_limits"
}
