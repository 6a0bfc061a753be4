package services

import (
	"context"
	"strings"

	"github.com/echotune/echotune-backend/internal/apperr"
	"github.com/echotune/echotune-backend/internal/dto"
	"github.com/echotune/echotune-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LibraryService is a user's personal shelf: favorites plus the purchases
// that entitle them to downloads.
type LibraryService struct {
	db *gorm.DB
}

func NewLibraryService(db *gorm.DB) *LibraryService {
	return &LibraryService{db: db}
}

// AddFavorite bookmarks an asset. Repeats are harmless: the natural key on
// (user, asset) turns duplicates into no-ops.
func (s *LibraryService) AddFavorite(ctx context.Context, caller Principal, userID uuid.UUID, req *dto.AddFavoriteRequest) error {
	if !caller.Can(userID) {
		return ErrForbidden
	}

	assetType := strings.ToLower(strings.TrimSpace(req.AssetType))
	if assetType != models.AssetTypeSong && assetType != models.AssetTypeContent {
		return apperr.New(apperr.Validation, "invalid_asset_type", "asset type must be song or content")
	}
	assetID, err := uuid.Parse(req.AssetID)
	if err != nil {
		return apperr.New(apperr.Validation, "invalid_asset_id", "invalid asset id")
	}

	fav := models.Favorite{
		ID:        uuid.New(),
		UserID:    userID,
		AssetType: assetType,
		AssetID:   assetID,
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "asset_type"}, {Name: "asset_id"}},
			DoNothing: true,
		}).
		Create(&fav).Error
}

func (s *LibraryService) RemoveFavorite(ctx context.Context, caller Principal, userID uuid.UUID, assetType string, assetID uuid.UUID) error {
	if !caller.Can(userID) {
		return ErrForbidden
	}
	return s.db.WithContext(ctx).
		Where("user_id = ? AND asset_type = ? AND asset_id = ?", userID, assetType, assetID).
		Delete(&models.Favorite{}).Error
}

// ListFavorites resolves bookmarks against the live catalog. Bookmarks whose
// asset has since disappeared are silently skipped.
func (s *LibraryService) ListFavorites(ctx context.Context, caller Principal, userID uuid.UUID) (*dto.FavoritesResponse, error) {
	if !caller.Can(userID) {
		return nil, ErrForbidden
	}

	var favs []models.Favorite
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&favs).Error; err != nil {
		return nil, err
	}

	songIDs := make([]uuid.UUID, 0, len(favs))
	contentIDs := make([]uuid.UUID, 0, len(favs))
	for _, f := range favs {
		if f.AssetType == models.AssetTypeSong {
			songIDs = append(songIDs, f.AssetID)
		} else {
			contentIDs = append(contentIDs, f.AssetID)
		}
	}

	songItems := make(map[uuid.UUID]dto.CatalogItem)
	if len(songIDs) > 0 {
		var songs []models.Song
		if err := s.db.WithContext(ctx).Where("id IN ?", songIDs).Find(&songs).Error; err != nil {
			return nil, err
		}
		for i := range songs {
			songItems[songs[i].ID] = songToItem(&songs[i])
		}
	}

	contentItems := make(map[uuid.UUID]dto.CatalogItem)
	if len(contentIDs) > 0 {
		var contents []models.Content
		if err := s.db.WithContext(ctx).Where("id IN ?", contentIDs).Find(&contents).Error; err != nil {
			return nil, err
		}
		for i := range contents {
			contentItems[contents[i].ID] = contentToItem(&contents[i])
		}
	}

	resp := &dto.FavoritesResponse{Items: []dto.FavoriteItem{}}
	for _, f := range favs {
		var item dto.CatalogItem
		var ok bool
		if f.AssetType == models.AssetTypeSong {
			item, ok = songItems[f.AssetID]
		} else {
			item, ok = contentItems[f.AssetID]
		}
		if !ok {
			continue
		}
		resp.Items = append(resp.Items, dto.FavoriteItem{
			FavoriteID: f.ID.String(),
			Item:       item,
		})
	}
	return resp, nil
}

// ListPurchases returns the user's paid purchases, newest first.
func (s *LibraryService) ListPurchases(ctx context.Context, caller Principal, userID uuid.UUID) (*dto.PurchasesResponse, error) {
	if !caller.Can(userID) {
		return nil, ErrForbidden
	}

	var purchases []models.Purchase
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.PurchasePaid).
		Order("purchased_at DESC").
		Find(&purchases).Error; err != nil {
		return nil, err
	}

	resp := &dto.PurchasesResponse{Items: []dto.PurchaseResponse{}}
	for i := range purchases {
		resp.Items = append(resp.Items, toPurchaseResponse(&purchases[i]))
	}
	return resp, nil
}

func (s *LibraryService) Summary(ctx context.Context, caller Principal, userID uuid.UUID) (*dto.LibrarySummaryResponse, error) {
	if !caller.Can(userID) {
		return nil, ErrForbidden
	}

	var summary dto.LibrarySummaryResponse
	if err := s.db.WithContext(ctx).Model(&models.Favorite{}).
		Where("user_id = ?", userID).Count(&summary.FavoritesCount).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("user_id = ? AND status = ?", userID, models.PurchasePaid).
		Count(&summary.PurchasesCount).Error; err != nil {
		return nil, err
	}
	return &summary, nil
}
