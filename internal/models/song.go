package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// Song is a licensable music asset. Media files live on external hosting;
// only their URLs are stored here. Read-only from the entitlement core's
// perspective: the core reads owner and price, never writes.
type Song struct {
	ID             uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerID        uuid.UUID       `gorm:"type:uuid;not null;index" json:"owner_id"`
	MusicName      string          `gorm:"not null;size:255;index" json:"music_name"`
	ArtistName     string          `gorm:"not null;size:255;index" json:"artist_name"`
	MusicCategory  string          `gorm:"size:50;default:'Song'" json:"music_category"`
	CopyrightOwner string          `gorm:"not null;size:255" json:"copyright_owner"`
	MusicLink      string          `gorm:"not null;size:1024" json:"music_link"`
	Cover          string          `gorm:"not null;size:1024" json:"cover"`
	ReleaseDate    time.Time       `json:"release_date"`
	Language       string          `gorm:"size:100;index" json:"language"`
	Genre          string          `gorm:"size:100;index" json:"genre"`
	Mood           string          `gorm:"size:100;index" json:"mood"`
	Links          datatypes.JSON  `gorm:"type:jsonb;default:'{}'" json:"links"`
	Price          decimal.Decimal `gorm:"type:numeric(10,2);default:0" json:"price"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Owner          User            `gorm:"foreignKey:OwnerID" json:"-"`
}
