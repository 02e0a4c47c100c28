package model

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// unique index names generated by gorm for the users table
const (
	IdxUserUsername = "idx_users_username"
	IdxUserEmail    = "idx_users_email"
)

const (
	ColUserID            = "id"
	ColUserUsername      = "username"
	ColUserEmail         = "email"
	ColUserLoginAttempts = "login_attempts"
	ColUserIsLocked      = "is_locked"
	ColUserLockReason    = "lock_reason"
	ColUserLockUntil     = "lock_until"
	ColUserLastLoginIP   = "last_login_ip"
	ColUserLastLoginAt   = "last_login_at"
)

// User stores the portal account fields used by authentication and lockout
type User struct {
	ID            uint   `gorm:"primarykey"`
	Username      string `gorm:"uniqueIndex;size:32;not null"`
	Email         string `gorm:"uniqueIndex;size:256;not null"`
	Password      string `gorm:"size:64;not null"`
	Role          string `gorm:"size:16;not null;default:user"`
	LoginAttempts int    `gorm:"not null;default:0"`
	IsLocked      bool   `gorm:"not null;default:false"`
	LockReason    string `gorm:"size:255"`
	LockUntil     *time.Time
	LastLoginIP   string `gorm:"size:45"`
	LastLoginAt   *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == 0 {
		u.ID = GenerateID()
	}
	return nil
}

// LockActive reports whether the account is still locked at now. A lock without
// an expiry time stays active until an operator unlocks the account.
func (u *User) LockActive(now time.Time) bool {
	if !u.IsLocked {
		return false
	}
	return u.LockUntil == nil || now.Before(*u.LockUntil)
}

// LockExpired reports whether the account carries a timed lock that has run out.
func (u *User) LockExpired(now time.Time) bool {
	return u.IsLocked && u.LockUntil != nil && !now.Before(*u.LockUntil)
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
