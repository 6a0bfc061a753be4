package dto

type AddFavoriteRequest struct {
	AssetType string `json:"asset_type"`
	AssetID   string `json:"asset_id"`
}

type FavoriteItem struct {
	FavoriteID string      `json:"favorite_id"`
	Item       CatalogItem `json:"item"`
}

type FavoritesResponse struct {
	Items []FavoriteItem `json:"items"`
}

type PurchasesResponse struct {
	Items []PurchaseResponse `json:"items"`
}

type LibrarySummaryResponse struct {
	FavoritesCount int64 `json:"favorites_count"`
	PurchasesCount int64 `json:"purchases_count"`
}
