package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PurchasePending = "pending"
	PurchasePaid    = "paid"
	PurchaseFailed  = "failed"
)

const (
	AssetTypeSong    = "song"
	AssetTypeContent = "content"
)

// Purchase is the entitlement record for one (buyer, asset) pair. Two
// partial unique indexes over (user_id, asset_type, asset_id) are the
// checkout engine's concurrency control: at most one pending and at most one
// paid row per pair. Failed rows are deliberately unconstrained so a pair
// can fail and retry any number of times.
type Purchase struct {
	ID         uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_purchases_pending,where:status = 'pending';uniqueIndex:idx_purchases_paid,where:status = 'paid';index" json:"user_id"`
	OwnerID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"owner_id"`
	AssetType  string          `gorm:"size:20;not null;uniqueIndex:idx_purchases_pending;uniqueIndex:idx_purchases_paid" json:"asset_type"`
	AssetID    uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_purchases_pending;uniqueIndex:idx_purchases_paid;index" json:"asset_id"`
	AssetName  string          `gorm:"not null;size:255" json:"asset_name"`
	ArtistName string          `gorm:"not null;size:255" json:"artist_name"`
	Amount     decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"amount"`
	Currency   string          `gorm:"size:10;default:'usd'" json:"currency"`
	Status     string          `gorm:"size:20;default:'pending';index" json:"status"`
	// LicenseCode is assigned exactly once, on the transition into paid.
	// The unique index is a store-level backstop for the generator's
	// probabilistic uniqueness.
	LicenseCode           *string    `gorm:"size:64;uniqueIndex" json:"license_code,omitempty"`
	StripeSessionID       string     `gorm:"size:255;index" json:"-"`
	StripePaymentIntentID string     `gorm:"size:255" json:"-"`
	PurchasedAt           *time.Time `json:"purchased_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	User                  User       `gorm:"foreignKey:UserID" json:"-"`
}
