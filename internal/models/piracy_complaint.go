package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ComplaintPending   = "pending"
	ComplaintReviewed  = "reviewed"
	ComplaintDismissed = "dismissed"
)

// PiracyComplaint is a report of unlicensed use of an asset, filed by a
// catalog user or the asset's owner and reviewed by an admin.
type PiracyComplaint struct {
	ID          uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ReporterID  uuid.UUID  `gorm:"type:uuid;not null;index" json:"reporter_id"`
	AssetType   string     `gorm:"size:20;not null" json:"asset_type"`
	AssetID     *uuid.UUID `gorm:"type:uuid;index" json:"asset_id,omitempty"`
	AssetName   string     `gorm:"size:255" json:"asset_name"`
	Description string     `gorm:"not null;size:2000" json:"description"`
	SourceURL   string     `gorm:"size:1024" json:"source_url"`
	Status      string     `gorm:"size:20;default:'pending';index" json:"status"`
	AdminNote   string     `gorm:"size:1000" json:"admin_note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Reporter    User       `gorm:"foreignKey:ReporterID" json:"-"`
}
