package models

import "time"

// Admin is a super-admin account. Admins issue access tokens, manage users
// and own the course catalogue.
type Admin struct {
	BaseModel

	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	// MFASecret holds the TOTP secret once multi-factor auth is activated.
	MFASecret  string `gorm:"column:mfa_secret" json:"-"`
	MFAEnabled bool   `gorm:"default:false" json:"mfa_enabled"`

	LastLoginAt *time.Time `json:"last_login_at"`
}
