package models

import "time"

// TokenStatus tracks the lifecycle of a one-time access token.
type TokenStatus string

const (
	TokenStatusActive  TokenStatus = "active"
	TokenStatusUsed    TokenStatus = "used"
	TokenStatusExpired TokenStatus = "expired"
)

// AccessToken is a one-time credential that grants DurationMonths of access
// when consumed by registration or renewal. Status moves active->used exactly
// once; used and expired are terminal.
type AccessToken struct {
	BaseModel

	Code      string `gorm:"uniqueIndex;not null" json:"code"`
	CreatedBy string `gorm:"type:uuid;not null" json:"created_by"`

	// UserID is set when the token is consumed and binds it to the account
	// it granted access to.
	UserID *string `gorm:"type:uuid;index" json:"user_id"`

	Status TokenStatus `gorm:"type:varchar(20);default:active;index" json:"status"`

	// ExpiresAt bounds how long an unused token stays redeemable. It is a
	// different timer from DurationMonths, which is the length of the access
	// window the token grants once consumed.
	ExpiresAt      *time.Time `gorm:"index" json:"expires_at"`
	DurationMonths int        `gorm:"not null;default:3" json:"duration_months"`
}

// Redeemable reports whether the token can still be consumed at the given time.
func (t *AccessToken) Redeemable(now time.Time) bool {
	if t.Status != TokenStatusActive {
		return false
	}
	if t.ExpiresAt != nil && now.After(*t.ExpiresAt) {
		return false
	}
	return true
}
