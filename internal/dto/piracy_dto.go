package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateComplaintRequest struct {
	AssetType   string `json:"asset_type"`
	AssetID     string `json:"asset_id,omitempty"`
	AssetName   string `json:"asset_name,omitempty"`
	Description string `json:"description"`
	SourceURL   string `json:"source_url,omitempty"`
}

type ActionComplaintRequest struct {
	Status    string `json:"status"` // reviewed or dismissed
	AdminNote string `json:"admin_note,omitempty"`
}

type ComplaintResponse struct {
	ID          uuid.UUID  `json:"id"`
	ReporterID  uuid.UUID  `json:"reporter_id"`
	AssetType   string     `json:"asset_type"`
	AssetID     *uuid.UUID `json:"asset_id,omitempty"`
	AssetName   string     `json:"asset_name,omitempty"`
	Description string     `json:"description"`
	SourceURL   string     `json:"source_url,omitempty"`
	Status      string     `json:"status"`
	AdminNote   string     `json:"admin_note,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
