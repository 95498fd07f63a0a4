// internal/models/password_reset.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// PasswordResetCode holds a 6-digit code until it is verified, after which
// Code carries the opaque token accepted by the reset step and IsVerified is
// set. Only verified rows can be consumed. Rows are hard deleted.
type PasswordResetCode struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Email      string    `json:"email" gorm:"size:255;not null;index"`
	Code       string    `json:"-" gorm:"size:64;not null"`
	ExpiresAt  time.Time `json:"expires_at" gorm:"not null;index"`
	IsVerified bool      `json:"is_verified" gorm:"default:false;not null"`
	IsUsed     bool      `json:"is_used" gorm:"default:false;not null"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (c *PasswordResetCode) Active(now time.Time) bool {
	return !c.IsUsed && c.ExpiresAt.After(now)
}
