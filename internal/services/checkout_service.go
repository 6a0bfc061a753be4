package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/echotune/echotune-backend/internal/apperr"
	"github.com/echotune/echotune-backend/internal/dto"
	"github.com/echotune/echotune-backend/internal/models"
	"github.com/echotune/echotune-backend/internal/payment"
	"github.com/echotune/echotune-backend/internal/store"
	"github.com/google/uuid"
)

var (
	ErrAssetNotFound       = apperr.New(apperr.NotFound, "asset_not_found", "asset not found")
	ErrSelfPurchase        = apperr.New(apperr.Conflict, "self_purchase", "you cannot buy your own asset")
	ErrPurchaseNotFound    = apperr.New(apperr.NotFound, "purchase_not_found", "purchase not found")
	ErrPaymentNotConfirmed = apperr.New(apperr.State, "payment_not_confirmed", "payment has not completed yet")
	ErrPaymentFailed       = apperr.New(apperr.State, "payment_failed", "payment was not successful")
	ErrMockNotAllowed      = apperr.New(apperr.State, "mock_not_allowed", "manual confirmation is not enabled")
)

// CheckoutService drives the purchase state machine: one pending record per
// (buyer, asset) pair, gateway session attached when the gateway is up, and
// a single idempotent transition into paid that mints the license code.
type CheckoutService struct {
	purchases store.PurchaseStore
	assets    store.AssetStore
	gateway   payment.Gateway

	allowMockConfirm bool

	now func() time.Time
}

func NewCheckoutService(purchases store.PurchaseStore, assets store.AssetStore, gateway payment.Gateway, allowMockConfirm bool) *CheckoutService {
	return &CheckoutService{
		purchases:        purchases,
		assets:           assets,
		gateway:          gateway,
		allowMockConfirm: allowMockConfirm,
		now:              time.Now,
	}
}

// StartCheckout opens (or resumes) a checkout for the buyer and asset.
// Already-paid pairs short-circuit; free assets finalize immediately; priced
// assets get a gateway session, falling back to the mock path when the
// gateway is unconfigured or down.
func (s *CheckoutService) StartCheckout(ctx context.Context, buyer Principal, req *dto.StartCheckoutRequest) (*dto.StartCheckoutResponse, error) {
	buyerID := buyer.ID
	if req.BuyerID != "" && buyer.IsAdmin() {
		id, err := uuid.Parse(req.BuyerID)
		if err != nil {
			return nil, apperr.New(apperr.Validation, "invalid_buyer_id", "invalid buyer id")
		}
		buyerID = id
	}

	assetType := strings.ToLower(strings.TrimSpace(req.AssetType))
	if assetType != models.AssetTypeSong && assetType != models.AssetTypeContent {
		return nil, apperr.New(apperr.Validation, "invalid_asset_type", "asset type must be song or content")
	}
	assetID, err := uuid.Parse(req.AssetID)
	if err != nil {
		return nil, apperr.New(apperr.Validation, "invalid_asset_id", "invalid asset id")
	}

	asset, err := s.assets.Resolve(ctx, assetType, assetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAssetNotFound
		}
		return nil, err
	}

	// Owners cannot buy their own asset; admins are exempt (they license on
	// behalf of the platform).
	if asset.OwnerID == buyerID && !buyer.IsAdmin() {
		return nil, ErrSelfPurchase
	}

	if paid, err := s.purchases.FindPaid(ctx, buyerID, assetType, assetID); err == nil {
		return &dto.StartCheckoutResponse{
			Message:          "already purchased",
			Purchase:         toPurchaseResponse(paid),
			AlreadyPurchased: true,
		}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	pending, err := s.purchases.UpsertPending(ctx, &models.Purchase{
		UserID:     buyerID,
		OwnerID:    asset.OwnerID,
		AssetType:  assetType,
		AssetID:    assetID,
		AssetName:  asset.Name,
		ArtistName: asset.ArtistName,
		Amount:     asset.Price,
		Currency:   "usd",
		Status:     models.PurchasePending,
	})
	if err != nil {
		return nil, err
	}

	if asset.Price.IsZero() {
		final, err := s.finalize(ctx, pending, "", "")
		if err != nil {
			return nil, err
		}
		return &dto.StartCheckoutResponse{
			Message:  "free asset; purchase completed",
			Purchase: toPurchaseResponse(final),
		}, nil
	}

	if !s.gateway.Enabled() {
		slog.Warn("payment gateway not configured; offering mock checkout",
			"purchase_id", pending.ID.String())
		return &dto.StartCheckoutResponse{
			Message:  "payment gateway unavailable; confirm manually",
			Purchase: toPurchaseResponse(pending),
			Mock:     true,
		}, nil
	}

	session, err := s.gateway.CreateSession(ctx, payment.CreateSessionRequest{
		Amount:      asset.Price,
		Currency:    "usd",
		Name:        asset.Name,
		Description: fmt.Sprintf("%s license for %q by %s", assetType, asset.Name, asset.ArtistName),
		Metadata: map[string]string{
			"purchase_id": pending.ID.String(),
			"buyer_id":    buyerID.String(),
			"asset_type":  assetType,
			"asset_id":    assetID.String(),
		},
		SuccessURL: req.SuccessURL,
		CancelURL:  req.CancelURL,
	})
	if err != nil {
		// A transient gateway failure degrades to the mock path instead of
		// stranding the buyer with an unusable pending record.
		slog.Error("gateway session creation failed", "purchase_id", pending.ID.String(), "error", err)
		return &dto.StartCheckoutResponse{
			Message:  "payment gateway unavailable; confirm manually",
			Purchase: toPurchaseResponse(pending),
			Mock:     true,
		}, nil
	}

	if err := s.purchases.SetSessionRef(ctx, pending.ID, session.Ref); err != nil {
		return nil, err
	}
	pending.StripeSessionID = session.Ref

	return &dto.StartCheckoutResponse{
		Message:     "checkout session created",
		Purchase:    toPurchaseResponse(pending),
		CheckoutURL: session.RedirectURL,
		SessionID:   session.Ref,
	}, nil
}

// ConfirmCheckout settles a pending purchase. With the gateway up it asks
// the gateway for the real payment state and nothing else can finalize; with
// the gateway off it takes the mock path, which must be explicitly enabled.
func (s *CheckoutService) ConfirmCheckout(ctx context.Context, caller Principal, req *dto.ConfirmCheckoutRequest) (*dto.ConfirmCheckoutResponse, error) {
	purchaseID, err := uuid.Parse(req.PurchaseID)
	if err != nil {
		return nil, apperr.New(apperr.Validation, "invalid_purchase_id", "invalid purchase id")
	}

	purchase, err := s.purchases.FindByID(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, err
	}
	if !caller.Can(purchase.UserID) {
		return nil, ErrForbidden
	}

	// Confirming an already-paid purchase is a no-op returning the same
	// record, license code included.
	if purchase.Status == models.PurchasePaid {
		return &dto.ConfirmCheckoutResponse{
			Message:  "purchase already completed",
			Purchase: toPurchaseResponse(purchase),
		}, nil
	}

	sessionRef := strings.TrimSpace(req.SessionID)
	if sessionRef == "" {
		sessionRef = purchase.StripeSessionID
	}

	// While the gateway is up it is the only authority on payment state; the
	// mock path below exists solely for gateway-off deployments.
	if s.gateway.Enabled() {
		if sessionRef == "" {
			return nil, ErrPaymentNotConfirmed
		}
		status, err := s.gateway.GetSessionStatus(ctx, sessionRef)
		if err != nil {
			return nil, apperr.Wrap(apperr.Unavailable, "gateway_unavailable", "could not verify payment state", err)
		}
		switch status.State {
		case payment.StatusPaid:
			final, err := s.finalize(ctx, purchase, sessionRef, status.PaymentRef)
			if err != nil {
				return nil, err
			}
			return &dto.ConfirmCheckoutResponse{
				Message:  "purchase completed",
				Purchase: toPurchaseResponse(final),
			}, nil
		default:
			return nil, ErrPaymentNotConfirmed
		}
	}

	if !s.allowMockConfirm {
		return nil, ErrMockNotAllowed
	}
	if !req.MockSuccess {
		if err := s.purchases.MarkFailed(ctx, purchase.ID); err != nil {
			return nil, err
		}
		return nil, ErrPaymentFailed
	}

	final, err := s.finalize(ctx, purchase, sessionRef, "")
	if err != nil {
		return nil, err
	}
	return &dto.ConfirmCheckoutResponse{
		Message:  "purchase completed (manual confirmation)",
		Purchase: toPurchaseResponse(final),
	}, nil
}

// ConfirmFromWebhook settles a purchase off a verified gateway event. Unknown
// purchase ids and repeated deliveries are both harmless.
func (s *CheckoutService) ConfirmFromWebhook(ctx context.Context, event *payment.WebhookEvent) error {
	if !event.Paid || event.PurchaseID == "" {
		return nil
	}
	purchaseID, err := uuid.Parse(event.PurchaseID)
	if err != nil {
		slog.Warn("webhook carried unparseable purchase id", "purchase_id", event.PurchaseID)
		return nil
	}

	purchase, err := s.purchases.FindByID(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			slog.Warn("webhook referenced unknown purchase", "purchase_id", event.PurchaseID)
			return nil
		}
		return err
	}
	if purchase.Status == models.PurchasePaid {
		return nil
	}

	_, err = s.finalize(ctx, purchase, event.SessionRef, "")
	return err
}

func (s *CheckoutService) GetPurchase(ctx context.Context, caller Principal, id uuid.UUID) (*dto.PurchaseResponse, error) {
	purchase, err := s.purchases.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPurchaseNotFound
		}
		return nil, err
	}
	if !caller.Can(purchase.UserID) && !caller.Can(purchase.OwnerID) {
		return nil, ErrForbidden
	}
	resp := toPurchaseResponse(purchase)
	return &resp, nil
}

// finalize drives the pending record into paid. MarkPaid assigns the license
// code only when none exists yet, so racing finalizers converge on one code.
func (s *CheckoutService) finalize(ctx context.Context, purchase *models.Purchase, sessionRef, paymentRef string) (*models.Purchase, error) {
	final, err := s.purchases.MarkPaid(ctx, purchase.ID, newLicenseCode(s.now()), s.now(), sessionRef, paymentRef)
	if err != nil {
		return nil, err
	}
	slog.Info("purchase completed",
		"purchase_id", final.ID.String(),
		"user_id", final.UserID.String(),
		"asset_type", final.AssetType,
		"asset_id", final.AssetID.String(),
		"action", "purchase_completed")
	return final, nil
}

// newLicenseCode mints an ECH-prefixed code from the paid timestamp and a
// random suffix, both base36 uppercase.
func newLicenseCode(at time.Time) string {
	ts := strconv.FormatInt(at.UnixMilli(), 36)
	suffix := strconv.FormatInt(rand.Int64N(1<<40), 36)
	return strings.ToUpper(fmt.Sprintf("ECH-%s-%s", ts, suffix))
}

func toPurchaseResponse(p *models.Purchase) dto.PurchaseResponse {
	resp := dto.PurchaseResponse{
		ID:          p.ID,
		AssetType:   p.AssetType,
		AssetID:     p.AssetID,
		AssetName:   p.AssetName,
		ArtistName:  p.ArtistName,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Status:      p.Status,
		PurchasedAt: p.PurchasedAt,
	}
	if p.LicenseCode != nil {
		resp.LicenseCode = *p.LicenseCode
	}
	return resp
}
