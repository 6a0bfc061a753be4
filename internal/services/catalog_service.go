package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/echotune/echotune-backend/internal/apperr"
	"github.com/echotune/echotune-backend/internal/dto"
	"github.com/echotune/echotune-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var ErrNotOwner = apperr.New(apperr.Conflict, "not_owner", "only content owners can publish assets")

// CatalogService manages the licensable inventory: songs and content rows
// published by owners and browsed by buyers.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

func (s *CatalogService) CreateSong(ctx context.Context, owner Principal, req *dto.CreateSongRequest) (*dto.CatalogItem, error) {
	if owner.Role != models.RoleOwner && !owner.IsAdmin() {
		return nil, ErrNotOwner
	}
	if strings.TrimSpace(req.MusicName) == "" || strings.TrimSpace(req.MusicLink) == "" {
		return nil, apperr.New(apperr.Validation, "missing_fields", "music name and music link are required")
	}
	if req.Price.IsNegative() {
		return nil, apperr.New(apperr.Validation, "invalid_price", "price cannot be negative")
	}

	links, err := linksJSON(req.Links)
	if err != nil {
		return nil, err
	}

	song := models.Song{
		ID:             uuid.New(),
		OwnerID:        owner.ID,
		MusicName:      strings.TrimSpace(req.MusicName),
		ArtistName:     strings.TrimSpace(req.ArtistName),
		MusicCategory:  req.MusicCategory,
		CopyrightOwner: req.CopyrightOwner,
		MusicLink:      req.MusicLink,
		Cover:          req.Cover,
		ReleaseDate:    req.ReleaseDate,
		Language:       req.Language,
		Genre:          req.Genre,
		Mood:           req.Mood,
		Links:          links,
		Price:          req.Price,
	}
	if err := s.db.WithContext(ctx).Create(&song).Error; err != nil {
		return nil, fmt.Errorf("failed to create song: %w", err)
	}

	item := songToItem(&song)
	return &item, nil
}

func (s *CatalogService) CreateContent(ctx context.Context, owner Principal, req *dto.CreateContentRequest) (*dto.CatalogItem, error) {
	if owner.Role != models.RoleOwner && !owner.IsAdmin() {
		return nil, ErrNotOwner
	}
	if strings.TrimSpace(req.ContentName) == "" || strings.TrimSpace(req.MediaLink) == "" {
		return nil, apperr.New(apperr.Validation, "missing_fields", "content name and media link are required")
	}
	if req.Price.IsNegative() {
		return nil, apperr.New(apperr.Validation, "invalid_price", "price cannot be negative")
	}

	links, err := linksJSON(req.Links)
	if err != nil {
		return nil, err
	}

	content := models.Content{
		ID:          uuid.New(),
		OwnerID:     owner.ID,
		ContentName: strings.TrimSpace(req.ContentName),
		ArtistName:  strings.TrimSpace(req.ArtistName),
		Category:    req.Category,
		Cover:       req.Cover,
		MediaLink:   req.MediaLink,
		Links:       links,
		Price:       req.Price,
	}
	if err := s.db.WithContext(ctx).Create(&content).Error; err != nil {
		return nil, fmt.Errorf("failed to create content: %w", err)
	}

	item := contentToItem(&content)
	return &item, nil
}

// List pages through one side of the catalog, optionally filtered by a
// case-insensitive search over name and artist.
func (s *CatalogService) List(ctx context.Context, assetType, search string, page, limit int) (*dto.CatalogListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	offset := (page - 1) * limit

	resp := &dto.CatalogListResponse{Items: []dto.CatalogItem{}, Page: page, Limit: limit}

	switch strings.ToLower(strings.TrimSpace(assetType)) {
	case models.AssetTypeSong:
		query := s.db.WithContext(ctx).Model(&models.Song{})
		if search != "" {
			pattern := "%" + search + "%"
			query = query.Where("music_name ILIKE ? OR artist_name ILIKE ?", pattern, pattern)
		}
		query.Count(&resp.Total)

		var songs []models.Song
		if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&songs).Error; err != nil {
			return nil, err
		}
		for i := range songs {
			resp.Items = append(resp.Items, songToItem(&songs[i]))
		}
	case models.AssetTypeContent:
		query := s.db.WithContext(ctx).Model(&models.Content{})
		if search != "" {
			pattern := "%" + search + "%"
			query = query.Where("content_name ILIKE ? OR artist_name ILIKE ?", pattern, pattern)
		}
		query.Count(&resp.Total)

		var contents []models.Content
		if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&contents).Error; err != nil {
			return nil, err
		}
		for i := range contents {
			resp.Items = append(resp.Items, contentToItem(&contents[i]))
		}
	default:
		return nil, apperr.New(apperr.Validation, "invalid_asset_type", "asset type must be song or content")
	}

	return resp, nil
}

func (s *CatalogService) Get(ctx context.Context, assetType string, id uuid.UUID) (*dto.CatalogItem, error) {
	switch strings.ToLower(strings.TrimSpace(assetType)) {
	case models.AssetTypeSong:
		var song models.Song
		if err := s.db.WithContext(ctx).First(&song, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrAssetNotFound
			}
			return nil, err
		}
		item := songToItem(&song)
		return &item, nil
	case models.AssetTypeContent:
		var content models.Content
		if err := s.db.WithContext(ctx).First(&content, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrAssetNotFound
			}
			return nil, err
		}
		item := contentToItem(&content)
		return &item, nil
	default:
		return nil, apperr.New(apperr.Validation, "invalid_asset_type", "asset type must be song or content")
	}
}

// ListByOwner returns everything an owner has published, both asset types.
func (s *CatalogService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]dto.CatalogItem, error) {
	var songs []models.Song
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&songs).Error; err != nil {
		return nil, err
	}
	var contents []models.Content
	if err := s.db.WithContext(ctx).Where("owner_id = ?", ownerID).Order("created_at DESC").Find(&contents).Error; err != nil {
		return nil, err
	}

	items := make([]dto.CatalogItem, 0, len(songs)+len(contents))
	for i := range songs {
		items = append(items, songToItem(&songs[i]))
	}
	for i := range contents {
		items = append(items, contentToItem(&contents[i]))
	}
	return items, nil
}

func linksJSON(links map[string]string) (datatypes.JSON, error) {
	if len(links) == 0 {
		return datatypes.JSON([]byte("{}")), nil
	}
	raw, err := json.Marshal(links)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "invalid_links", "links must be a string map", err)
	}
	return datatypes.JSON(raw), nil
}

func songToItem(s *models.Song) dto.CatalogItem {
	return dto.CatalogItem{
		ID:         s.ID,
		AssetType:  models.AssetTypeSong,
		OwnerID:    s.OwnerID,
		Name:       s.MusicName,
		ArtistName: s.ArtistName,
		Category:   s.MusicCategory,
		Genre:      s.Genre,
		Mood:       s.Mood,
		Language:   s.Language,
		Cover:      s.Cover,
		Links:      s.Links,
		Price:      s.Price,
		CreatedAt:  s.CreatedAt,
	}
}

func contentToItem(c *models.Content) dto.CatalogItem {
	return dto.CatalogItem{
		ID:         c.ID,
		AssetType:  models.AssetTypeContent,
		OwnerID:    c.OwnerID,
		Name:       c.ContentName,
		ArtistName: c.ArtistName,
		Category:   c.Category,
		Cover:      c.Cover,
		Links:      c.Links,
		Price:      c.Price,
		CreatedAt:  c.CreatedAt,
	}
}
