package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Content is a non-music licensable asset (video templates, artwork and the
// like). Same ownership and pricing semantics as Song.
type Content struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerID     uuid.UUID       `gorm:"type:uuid;not null;index" json:"owner_id"`
	ContentName string          `gorm:"not null;size:255;index" json:"content_name"`
	ArtistName  string          `gorm:"not null;size:255;index" json:"artist_name"`
	Category    string          `gorm:"size:100;index" json:"category"`
	Cover       string          `gorm:"size:1024" json:"cover"`
	MediaLink   string          `gorm:"not null;size:1024" json:"media_link"`
	Links       datatypes.JSON  `gorm:"type:jsonb;default:'{}'" json:"links"`
	Price       decimal.Decimal `gorm:"type:numeric(10,2);default:0" json:"price"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Owner       User            `gorm:"foreignKey:OwnerID" json:"-"`
}
