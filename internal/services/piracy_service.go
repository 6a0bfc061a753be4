package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/echotune/echotune-backend/internal/apperr"
	"github.com/echotune/echotune-backend/internal/dto"
	"github.com/echotune/echotune-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrComplaintNotFound = apperr.New(apperr.NotFound, "complaint_not_found", "complaint not found")

// PiracyService handles reports of unlicensed use: users and owners file
// complaints, admins review them.
type PiracyService struct {
	db *gorm.DB
}

func NewPiracyService(db *gorm.DB) *PiracyService {
	return &PiracyService{db: db}
}

func (s *PiracyService) CreateComplaint(ctx context.Context, reporter Principal, req *dto.CreateComplaintRequest) (*dto.ComplaintResponse, error) {
	assetType := strings.ToLower(strings.TrimSpace(req.AssetType))
	if assetType != models.AssetTypeSong && assetType != models.AssetTypeContent {
		return nil, apperr.New(apperr.Validation, "invalid_asset_type", "asset type must be song or content")
	}
	if strings.TrimSpace(req.Description) == "" {
		return nil, apperr.New(apperr.Validation, "missing_fields", "description is required")
	}

	complaint := models.PiracyComplaint{
		ID:          uuid.New(),
		ReporterID:  reporter.ID,
		AssetType:   assetType,
		AssetName:   strings.TrimSpace(req.AssetName),
		Description: strings.TrimSpace(req.Description),
		SourceURL:   strings.TrimSpace(req.SourceURL),
		Status:      models.ComplaintPending,
	}
	if req.AssetID != "" {
		id, err := uuid.Parse(req.AssetID)
		if err != nil {
			return nil, apperr.New(apperr.Validation, "invalid_asset_id", "invalid asset id")
		}
		complaint.AssetID = &id
	}

	if err := s.db.WithContext(ctx).Create(&complaint).Error; err != nil {
		return nil, fmt.Errorf("failed to file complaint: %w", err)
	}

	resp := toComplaintResponse(&complaint)
	return &resp, nil
}

// ListComplaints is the admin review queue, optionally filtered by status.
func (s *PiracyService) ListComplaints(ctx context.Context, status string, limit, offset int) ([]dto.ComplaintResponse, int64, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}

	query := s.db.WithContext(ctx).Model(&models.PiracyComplaint{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var complaints []models.PiracyComplaint
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&complaints).Error; err != nil {
		return nil, 0, err
	}

	out := make([]dto.ComplaintResponse, len(complaints))
	for i := range complaints {
		out[i] = toComplaintResponse(&complaints[i])
	}
	return out, total, nil
}

func (s *PiracyService) ListMyComplaints(ctx context.Context, reporter Principal) ([]dto.ComplaintResponse, error) {
	var complaints []models.PiracyComplaint
	if err := s.db.WithContext(ctx).
		Where("reporter_id = ?", reporter.ID).
		Order("created_at DESC").
		Find(&complaints).Error; err != nil {
		return nil, err
	}

	out := make([]dto.ComplaintResponse, len(complaints))
	for i := range complaints {
		out[i] = toComplaintResponse(&complaints[i])
	}
	return out, nil
}

func (s *PiracyService) ActionComplaint(ctx context.Context, id uuid.UUID, req *dto.ActionComplaintRequest) error {
	if req.Status != models.ComplaintReviewed && req.Status != models.ComplaintDismissed {
		return apperr.New(apperr.Validation, "invalid_status", "status must be reviewed or dismissed")
	}

	result := s.db.WithContext(ctx).Model(&models.PiracyComplaint{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     req.Status,
			"admin_note": req.AdminNote,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrComplaintNotFound
	}
	return nil
}

func (s *PiracyService) GetComplaint(ctx context.Context, caller Principal, id uuid.UUID) (*dto.ComplaintResponse, error) {
	var complaint models.PiracyComplaint
	if err := s.db.WithContext(ctx).First(&complaint, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrComplaintNotFound
		}
		return nil, err
	}
	if !caller.Can(complaint.ReporterID) {
		return nil, ErrForbidden
	}
	resp := toComplaintResponse(&complaint)
	return &resp, nil
}

func toComplaintResponse(c *models.PiracyComplaint) dto.ComplaintResponse {
	return dto.ComplaintResponse{
		ID:          c.ID,
		ReporterID:  c.ReporterID,
		AssetType:   c.AssetType,
		AssetID:     c.AssetID,
		AssetName:   c.AssetName,
		Description: c.Description,
		SourceURL:   c.SourceURL,
		Status:      c.Status,
		AdminNote:   c.AdminNote,
		CreatedAt:   c.CreatedAt,
	}
}
