package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/echotune/echotune-backend/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// One receiver per contract; AccountStore and PurchaseStore both expose a
// FindByID with different result types, so a single receiver cannot satisfy
// both. All three share the same *gorm.DB.
var (
	_ AccountStore  = (*GormAccountStore)(nil)
	_ AssetStore    = (*GormAssetStore)(nil)
	_ PurchaseStore = (*GormPurchaseStore)(nil)
)

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// GormAccountStore implements AccountStore on PostgreSQL.
type GormAccountStore struct {
	db *gorm.DB
}

func NewGormAccountStore(db *gorm.DB) *GormAccountStore {
	return &GormAccountStore{db: db}
}

func (s *GormAccountStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormAccountStore) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormAccountStore) Create(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Create(u).Error
}

func (s *GormAccountStore) Update(ctx context.Context, u *models.User) error {
	return s.db.WithContext(ctx).Save(u).Error
}

func (s *GormAccountStore) Delete(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormAccountStore) SetOTC(ctx context.Context, id uuid.UUID, code, purpose string, expiresAt time.Time) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"otc_code":       code,
			"otc_purpose":    purpose,
			"otc_expires_at": expiresAt,
		}).Error
}

func (s *GormAccountStore) ClearOTC(ctx context.Context, id uuid.UUID) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"otc_code":       nil,
			"otc_purpose":    nil,
			"otc_expires_at": nil,
		}).Error
}

func (s *GormAccountStore) ConsumeOTC(ctx context.Context, id uuid.UUID, code string, activate bool) (bool, error) {
	updates := map[string]interface{}{
		"otc_code":       nil,
		"otc_purpose":    nil,
		"otc_expires_at": nil,
	}
	if activate {
		updates["is_active"] = true
	}

	// The otc_code guard makes this a compare-and-clear: of N concurrent
	// verifications with the right code, exactly one sees RowsAffected == 1.
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND otc_code = ?", id, code).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (s *GormAccountStore) SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("password", passwordHash).Error
}

// GormAssetStore implements AssetStore across the songs and contents tables.
type GormAssetStore struct {
	db *gorm.DB
}

func NewGormAssetStore(db *gorm.DB) *GormAssetStore {
	return &GormAssetStore{db: db}
}

func (s *GormAssetStore) Resolve(ctx context.Context, assetType string, id uuid.UUID) (*Asset, error) {
	switch assetType {
	case models.AssetTypeSong:
		var song models.Song
		if err := s.db.WithContext(ctx).First(&song, "id = ?", id).Error; err != nil {
			return nil, translate(err)
		}
		return &Asset{
			Type:       models.AssetTypeSong,
			ID:         song.ID,
			OwnerID:    song.OwnerID,
			Name:       song.MusicName,
			ArtistName: song.ArtistName,
			Price:      song.Price,
			MediaLink:  song.MusicLink,
		}, nil
	case models.AssetTypeContent:
		var content models.Content
		if err := s.db.WithContext(ctx).First(&content, "id = ?", id).Error; err != nil {
			return nil, translate(err)
		}
		return &Asset{
			Type:       models.AssetTypeContent,
			ID:         content.ID,
			OwnerID:    content.OwnerID,
			Name:       content.ContentName,
			ArtistName: content.ArtistName,
			Price:      content.Price,
			MediaLink:  content.MediaLink,
		}, nil
	default:
		return nil, fmt.Errorf("unknown asset type %q", assetType)
	}
}

// GormPurchaseStore implements PurchaseStore on PostgreSQL.
type GormPurchaseStore struct {
	db *gorm.DB
}

func NewGormPurchaseStore(db *gorm.DB) *GormPurchaseStore {
	return &GormPurchaseStore{db: db}
}

func (s *GormPurchaseStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var p models.Purchase
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *GormPurchaseStore) FindPaid(ctx context.Context, buyerID uuid.UUID, assetType string, assetID uuid.UUID) (*models.Purchase, error) {
	var p models.Purchase
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND asset_type = ? AND asset_id = ? AND status = ?",
			buyerID, assetType, assetID, models.PurchasePaid).
		First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *GormPurchaseStore) UpsertPending(ctx context.Context, p *models.Purchase) (*models.Purchase, error) {
	p.Status = models.PurchasePending

	// Conflict target is the partial unique index on (user_id, asset_type,
	// asset_id) WHERE status = 'pending': concurrent starts for the same
	// pair land on the same pending row, while failed rows from earlier
	// attempts stay out of the way.
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "asset_type"}, {Name: "asset_id"},
		},
		TargetWhere: clause.Where{Exprs: []clause.Expression{
			clause.Eq{Column: clause.Column{Name: "status"}, Value: models.PurchasePending},
		}},
		DoUpdates: clause.AssignmentColumns([]string{
			"owner_id", "asset_name", "artist_name", "amount", "currency", "updated_at",
		}),
	}).Create(p).Error
	if err != nil {
		return nil, err
	}

	// Re-read by natural key: on conflict the generated id above is not the
	// surviving row's id.
	var out models.Purchase
	err = s.db.WithContext(ctx).
		Where("user_id = ? AND asset_type = ? AND asset_id = ? AND status = ?",
			p.UserID, p.AssetType, p.AssetID, models.PurchasePending).
		First(&out).Error
	if err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (s *GormPurchaseStore) SetSessionRef(ctx context.Context, id uuid.UUID, sessionRef string) error {
	return s.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("id = ?", id).
		Update("stripe_session_id", sessionRef).Error
}

func (s *GormPurchaseStore) MarkPaid(ctx context.Context, id uuid.UUID, licenseCode string, paidAt time.Time, sessionRef, paymentRef string) (*models.Purchase, error) {
	updates := map[string]interface{}{
		"status":       models.PurchasePaid,
		"purchased_at": gorm.Expr("COALESCE(purchased_at, ?)", paidAt),
		"license_code": gorm.Expr("COALESCE(license_code, ?)", licenseCode),
	}
	if sessionRef != "" {
		updates["stripe_session_id"] = sessionRef
	}
	if paymentRef != "" {
		updates["stripe_payment_intent_id"] = paymentRef
	}

	result := s.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("id = ?", id).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	return s.FindByID(ctx, id)
}

func (s *GormPurchaseStore) MarkFailed(ctx context.Context, id uuid.UUID) error {
	result := s.db.WithContext(ctx).Model(&models.Purchase{}).
		Where("id = ?", id).
		Update("status", models.PurchaseFailed)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
