package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type StartCheckoutRequest struct {
	BuyerID    string `json:"buyer_id,omitempty"` // admins may buy on behalf of a user
	AssetType  string `json:"asset_type"`
	AssetID    string `json:"asset_id"`
	SuccessURL string `json:"success_url,omitempty"`
	CancelURL  string `json:"cancel_url,omitempty"`
}

// StartCheckoutResponse carries either a gateway redirect or, when the
// gateway is unavailable, Mock=true telling the client to use the manual
// confirmation path.
type StartCheckoutResponse struct {
	Message          string           `json:"message"`
	Purchase         PurchaseResponse `json:"purchase"`
	CheckoutURL      string           `json:"checkout_url,omitempty"`
	SessionID        string           `json:"session_id,omitempty"`
	Mock             bool             `json:"mock"`
	AlreadyPurchased bool             `json:"already_purchased"`
}

type ConfirmCheckoutRequest struct {
	PurchaseID  string `json:"purchase_id"`
	SessionID   string `json:"session_id,omitempty"`
	MockSuccess bool   `json:"mock_success,omitempty"`
}

type ConfirmCheckoutResponse struct {
	Message  string           `json:"message"`
	Purchase PurchaseResponse `json:"purchase"`
}

type PurchaseResponse struct {
	ID          uuid.UUID       `json:"id"`
	AssetType   string          `json:"asset_type"`
	AssetID     uuid.UUID       `json:"asset_id"`
	AssetName   string          `json:"asset_name"`
	ArtistName  string          `json:"artist_name"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Status      string          `json:"status"`
	LicenseCode string          `json:"license_code,omitempty"`
	PurchasedAt *time.Time      `json:"purchased_at,omitempty"`
}

type AccessResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"` // "owner", "admin", "purchased" or "none"
}

type DownloadResponse struct {
	Message     string `json:"message"`
	DownloadURL string `json:"download_url"`
}
