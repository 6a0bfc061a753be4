package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type CreateSongRequest struct {
	MusicName      string            `json:"music_name"`
	ArtistName     string            `json:"artist_name"`
	MusicCategory  string            `json:"music_category,omitempty"`
	CopyrightOwner string            `json:"copyright_owner"`
	MusicLink      string            `json:"music_link"`
	Cover          string            `json:"cover"`
	ReleaseDate    time.Time         `json:"release_date"`
	Language       string            `json:"language"`
	Genre          string            `json:"genre"`
	Mood           string            `json:"mood"`
	Links          map[string]string `json:"links,omitempty"`
	Price          decimal.Decimal   `json:"price"`
}

type CreateContentRequest struct {
	ContentName string            `json:"content_name"`
	ArtistName  string            `json:"artist_name"`
	Category    string            `json:"category,omitempty"`
	Cover       string            `json:"cover,omitempty"`
	MediaLink   string            `json:"media_link"`
	Links       map[string]string `json:"links,omitempty"`
	Price       decimal.Decimal   `json:"price"`
}

// CatalogItem is the public, type-agnostic view of a song or content row.
type CatalogItem struct {
	ID         uuid.UUID       `json:"id"`
	AssetType  string          `json:"asset_type"`
	OwnerID    uuid.UUID       `json:"owner_id"`
	Name       string          `json:"name"`
	ArtistName string          `json:"artist_name"`
	Category   string          `json:"category,omitempty"`
	Genre      string          `json:"genre,omitempty"`
	Mood       string          `json:"mood,omitempty"`
	Language   string          `json:"language,omitempty"`
	Cover      string          `json:"cover,omitempty"`
	Links      datatypes.JSON  `json:"links,omitempty"`
	Price      decimal.Decimal `json:"price"`
	CreatedAt  time.Time       `json:"created_at"`
}

type CatalogListResponse struct {
	Items []CatalogItem `json:"items"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}
