package services

import (
	"context"
	"errors"
	"strings"

	"github.com/echotune/echotune-backend/internal/apperr"
	"github.com/echotune/echotune-backend/internal/dto"
	"github.com/echotune/echotune-backend/internal/models"
	"github.com/echotune/echotune-backend/internal/store"
	"github.com/google/uuid"
)

var ErrNotEntitled = apperr.New(apperr.Conflict, "not_entitled", "purchase this asset to download it")

// EntitlementService answers one question: may this principal use this
// asset? Owners and admins always may; everyone else needs a paid purchase.
type EntitlementService struct {
	assets    store.AssetStore
	purchases store.PurchaseStore
}

func NewEntitlementService(assets store.AssetStore, purchases store.PurchaseStore) *EntitlementService {
	return &EntitlementService{assets: assets, purchases: purchases}
}

// CanAccess resolves the entitlement and reports why it held. The reason
// precedence is owner, then admin, then purchased.
func (s *EntitlementService) CanAccess(ctx context.Context, caller Principal, assetType string, assetID uuid.UUID) (*dto.AccessResponse, error) {
	assetType = strings.ToLower(strings.TrimSpace(assetType))
	if assetType != models.AssetTypeSong && assetType != models.AssetTypeContent {
		return nil, apperr.New(apperr.Validation, "invalid_asset_type", "asset type must be song or content")
	}

	asset, err := s.assets.Resolve(ctx, assetType, assetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}

	if asset.OwnerID == caller.ID {
		return &dto.AccessResponse{Allowed: true, Reason: "owner"}, nil
	}
	if caller.IsAdmin() {
		return &dto.AccessResponse{Allowed: true, Reason: "admin"}, nil
	}

	if _, err := s.purchases.FindPaid(ctx, caller.ID, assetType, assetID); err == nil {
		return &dto.AccessResponse{Allowed: true, Reason: "purchased"}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	return &dto.AccessResponse{Allowed: false, Reason: "none"}, nil
}

// DownloadLink returns the asset's media link, gated on entitlement.
func (s *EntitlementService) DownloadLink(ctx context.Context, caller Principal, assetType string, assetID uuid.UUID) (*dto.DownloadResponse, error) {
	access, err := s.CanAccess(ctx, caller, assetType, assetID)
	if err != nil {
		return nil, err
	}
	if !access.Allowed {
		return nil, ErrNotEntitled
	}

	asset, err := s.assets.Resolve(ctx, assetType, assetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}
	if asset.MediaLink == "" {
		return nil, apperr.New(apperr.NotFound, "media_unavailable", "no downloadable media for this asset")
	}

	return &dto.DownloadResponse{
		Message:     "download authorized",
		DownloadURL: asset.MediaLink,
	}, nil
}
