package services

import (
	"context"

	"github.com/echotune/echotune-backend/internal/dto"
	"github.com/echotune/echotune-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// OwnerService gives content owners the selling side of the ledger: who
// licensed their assets and what that earned.
type OwnerService struct {
	db *gorm.DB
}

func NewOwnerService(db *gorm.DB) *OwnerService {
	return &OwnerService{db: db}
}

// ListSales pages through paid purchases of the owner's assets.
func (s *OwnerService) ListSales(ctx context.Context, caller Principal, ownerID uuid.UUID, page, limit int) (*dto.SalesResponse, error) {
	if !caller.Can(ownerID) {
		return nil, ErrForbidden
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := s.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("owner_id = ? AND status = ?", ownerID, models.PurchasePaid)

	resp := &dto.SalesResponse{Items: []dto.PurchaseResponse{}, Page: page, Limit: limit}
	query.Count(&resp.Total)

	var purchases []models.Purchase
	if err := query.Order("purchased_at DESC").Limit(limit).Offset((page - 1) * limit).Find(&purchases).Error; err != nil {
		return nil, err
	}
	for i := range purchases {
		resp.Items = append(resp.Items, toPurchaseResponse(&purchases[i]))
	}
	return resp, nil
}

// Earnings sums the owner's paid sales. Single currency for now.
func (s *OwnerService) Earnings(ctx context.Context, caller Principal, ownerID uuid.UUID) (*dto.EarningsResponse, error) {
	if !caller.Can(ownerID) {
		return nil, ErrForbidden
	}

	var row struct {
		Total decimal.Decimal
		Count int64
	}
	if err := s.db.WithContext(ctx).Model(&models.Purchase{}).
		Select("COALESCE(SUM(amount), 0) AS total, COUNT(*) AS count").
		Where("owner_id = ? AND status = ?", ownerID, models.PurchasePaid).
		Scan(&row).Error; err != nil {
		return nil, err
	}

	return &dto.EarningsResponse{
		Total:    row.Total,
		Currency: "usd",
		Count:    row.Count,
	}, nil
}
