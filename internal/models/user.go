package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleOwner = "owner"
	RoleAdmin = "admin"
)

const (
	OTCPurposeSignup        = "signup"
	OTCPurposePasswordReset = "password_reset"
)

// User is an account: a buyer, a content owner or an admin. The pending
// one-time code lives directly on the account row; at most one code is
// outstanding per account and a new issuance overwrites the previous one.
type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name           string         `gorm:"not null;size:255" json:"name"`
	Email          string         `gorm:"not null;size:255;uniqueIndex" json:"email"`
	Password       string         `gorm:"not null" json:"-"`
	Role           string         `gorm:"size:20;default:'user';index" json:"role"`
	ProfilePicture *string        `gorm:"size:1024" json:"profile_picture,omitempty"`
	IsActive       bool           `gorm:"default:false" json:"is_active"`
	AuthProvider   string         `gorm:"size:50;default:'email'" json:"-"`
	OTCCode        *string        `gorm:"column:otc_code;size:16" json:"-"`
	OTCPurpose     *string        `gorm:"column:otc_purpose;size:32" json:"-"`
	OTCExpiresAt   *time.Time     `gorm:"column:otc_expires_at" json:"-"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

// HasPendingOTC reports whether a code is currently stored on the account.
// Expiry is checked lazily at verification time, not here.
func (u *User) HasPendingOTC() bool {
	return u.OTCCode != nil && u.OTCPurpose != nil && u.OTCExpiresAt != nil
}
