package models

import "time"

// UserStatus is the persisted account state set by registration or an admin.
type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusPaused  UserStatus = "paused"
	UserStatusDeleted UserStatus = "deleted"

	// UserStatusExpired is never stored. It is the label EffectiveStatus
	// returns once the access window has lapsed.
	UserStatusExpired UserStatus = "expired"
)

// Valid reports whether s is one of the persistable statuses.
func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusPaused, UserStatusDeleted:
		return true
	}
	return false
}

// User is a platform member whose access window is granted by a consumed
// access token and advanced only by renewals.
type User struct {
	BaseModel

	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Name     string `gorm:"not null" json:"name"`
	Password string `gorm:"not null" json:"-"`

	Status UserStatus `gorm:"type:varchar(20);default:active;index" json:"status"`

	// TokenID points at the token that granted the current access window.
	TokenID string       `gorm:"type:uuid" json:"token_id"`
	Token   *AccessToken `gorm:"foreignKey:TokenID" json:"token,omitempty"`

	AccessExpiresAt time.Time  `gorm:"not null;index" json:"access_expires_at"`
	LastLoginAt     *time.Time `json:"last_login_at"`

	// Balance is the virtual trading-demo balance in USD.
	Balance float64 `gorm:"default:10000" json:"balance"`
}

// EffectiveStatus derives the status enforced at authentication time. It is a
// pure function of the stored status and the access window; "expired" is
// computed on every read and never written back, so a later renewal or admin
// action is always observed.
func (u *User) EffectiveStatus(now time.Time) UserStatus {
	if now.After(u.AccessExpiresAt) {
		return UserStatusExpired
	}
	return u.Status
}
