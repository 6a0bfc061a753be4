package models

import (
	"time"

	"github.com/google/uuid"
)

// Favorite bookmarks an asset for a user. Natural key (user, asset) so
// repeated adds are a no-op upsert.
type Favorite struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_favorites_user_asset;index" json:"user_id"`
	AssetType string    `gorm:"size:20;not null;uniqueIndex:idx_favorites_user_asset" json:"asset_type"`
	AssetID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_favorites_user_asset" json:"asset_id"`
	CreatedAt time.Time `json:"created_at"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
}
