package services

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/echotune/echotune-backend/internal/dto"
	"github.com/echotune/echotune-backend/internal/models"
	"github.com/echotune/echotune-backend/internal/payment"
	"github.com/echotune/echotune-backend/internal/store"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pairKey struct {
	userID    uuid.UUID
	assetType string
	assetID   uuid.UUID
	status    string
}

// fakePurchases mimics the partial unique indexes under a mutex: one pending
// row per pair, COALESCE semantics on the paid transition, and no limit on
// failed rows.
type fakePurchases struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.Purchase
}

func newFakePurchases() *fakePurchases {
	return &fakePurchases{byID: make(map[uuid.UUID]*models.Purchase)}
}

func (f *fakePurchases) key(p *models.Purchase) pairKey {
	return pairKey{p.UserID, p.AssetType, p.AssetID, p.Status}
}

func (f *fakePurchases) FindByID(_ context.Context, id uuid.UUID) (*models.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakePurchases) FindPaid(_ context.Context, buyerID uuid.UUID, assetType string, assetID uuid.UUID) (*models.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.byID {
		if p.UserID == buyerID && p.AssetType == assetType && p.AssetID == assetID && p.Status == models.PurchasePaid {
			cp := *p
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakePurchases) UpsertPending(_ context.Context, p *models.Purchase) (*models.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p.Status = models.PurchasePending
	want := f.key(p)
	for _, existing := range f.byID {
		if f.key(existing) == want {
			existing.OwnerID = p.OwnerID
			existing.AssetName = p.AssetName
			existing.ArtistName = p.ArtistName
			existing.Amount = p.Amount
			existing.Currency = p.Currency
			cp := *existing
			return &cp, nil
		}
	}
	cp := *p
	cp.ID = uuid.New()
	f.byID[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (f *fakePurchases) SetSessionRef(_ context.Context, id uuid.UUID, sessionRef string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	p.StripeSessionID = sessionRef
	return nil
}

func (f *fakePurchases) MarkPaid(_ context.Context, id uuid.UUID, licenseCode string, paidAt time.Time, sessionRef, paymentRef string) (*models.Purchase, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	p.Status = models.PurchasePaid
	if p.PurchasedAt == nil {
		p.PurchasedAt = &paidAt
	}
	if p.LicenseCode == nil {
		p.LicenseCode = &licenseCode
	}
	if sessionRef != "" {
		p.StripeSessionID = sessionRef
	}
	if paymentRef != "" {
		p.StripePaymentIntentID = paymentRef
	}
	cp := *p
	return &cp, nil
}

func (f *fakePurchases) MarkFailed(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Status = models.PurchaseFailed
	return nil
}

func (f *fakePurchases) countByStatus(status string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.byID {
		if p.Status == status {
			n++
		}
	}
	return n
}

func (f *fakePurchases) pendingCount() int {
	return f.countByStatus(models.PurchasePending)
}

type fakeAssets struct {
	assets map[uuid.UUID]*store.Asset
}

func (f *fakeAssets) Resolve(_ context.Context, assetType string, id uuid.UUID) (*store.Asset, error) {
	a, ok := f.assets[id]
	if !ok || a.Type != assetType {
		return nil, store.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

type fakeGateway struct {
	enabled    bool
	failCreate bool
	statuses   map[string]payment.SessionStatus
	created    int
}

func (g *fakeGateway) Enabled() bool { return g.enabled }

func (g *fakeGateway) CreateSession(_ context.Context, req payment.CreateSessionRequest) (*payment.Session, error) {
	if g.failCreate {
		return nil, errors.New("gateway timeout")
	}
	g.created++
	ref := "cs_test_" + req.Metadata["purchase_id"]
	return &payment.Session{Ref: ref, RedirectURL: "https://pay.example.com/" + ref}, nil
}

func (g *fakeGateway) GetSessionStatus(_ context.Context, sessionRef string) (*payment.SessionStatus, error) {
	st, ok := g.statuses[sessionRef]
	if !ok {
		return &payment.SessionStatus{State: payment.StatusUnknown}, nil
	}
	cp := st
	return &cp, nil
}

var licenseCodePattern = regexp.MustCompile(`^ECH-[0-9A-Z]+-[0-9A-Z]+$`)

func checkoutFixture(price decimal.Decimal) (*CheckoutService, *fakePurchases, *fakeGateway, Principal, *store.Asset) {
	ownerID := uuid.New()
	asset := &store.Asset{
		Type:       models.AssetTypeSong,
		ID:         uuid.New(),
		OwnerID:    ownerID,
		Name:       "Midnight Run",
		ArtistName: "The Echoes",
		Price:      price,
		MediaLink:  "https://cdn.example.com/midnight-run.mp3",
	}
	purchases := newFakePurchases()
	gateway := &fakeGateway{enabled: true, statuses: map[string]payment.SessionStatus{}}
	svc := NewCheckoutService(purchases, &fakeAssets{assets: map[uuid.UUID]*store.Asset{asset.ID: asset}}, gateway, true)
	buyer := Principal{ID: uuid.New(), Role: models.RoleUser}
	return svc, purchases, gateway, buyer, asset
}

func TestStartCheckoutCreatesSession(t *testing.T) {
	svc, purchases, gateway, buyer, asset := checkoutFixture(decimal.NewFromFloat(9.99))

	resp, err := svc.StartCheckout(context.Background(), buyer, &dto.StartCheckoutRequest{
		AssetType: models.AssetTypeSong, AssetID: asset.ID.String(),
	})
	require.NoError(t, err)
	assert.False(t, resp.Mock)
	assert.NotEmpty(t, resp.CheckoutURL)
	assert.NotEmpty(t, resp.SessionID)
	assert.Equal(t, models.PurchasePending, resp.Purchase.Status)
	assert.Equal(t, 1, gateway.created)
	assert.Equal(t, 1, purchases.pendingCount())
}

func TestStartCheckoutFreeAssetFinalizesImmediately(t *testing.T) {
	svc, _, gateway, buyer, asset := checkoutFixture(decimal.Zero)

	resp, err := svc.StartCheckout(context.Background(), buyer, &dto.StartCheckoutRequest{
		AssetType: models.AssetTypeSong, AssetID: asset.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PurchasePaid, resp.Purchase.Status)
	assert.Regexp(t, licenseCodePattern, resp.Purchase.LicenseCode)
	assert.Equal(t, 0, gateway.created)
}

func TestStartCheckoutSelfPurchaseRejected(t *testing.T) {
	svc, _, _, _, asset := checkoutFixture(decimal.NewFromFloat(9.99))
	owner := Principal{ID: asset.OwnerID, Role: models.RoleOwner}

	_, err := svc.StartCheckout(context.Background(), owner, &dto.StartCheckoutRequest{
		AssetType: models.AssetTypeSong, AssetID: asset.ID.String(),
	})
	assert.ErrorIs(t, err, ErrSelfPurchase)
}

func TestStartCheckoutAdminMayBuyOwnedAsset(t *testing.T) {
	svc, _, _, _, asset := checkoutFixture(decimal.NewFromFloat(9.99))
	admin := Principal{ID: asset.OwnerID, Role: models.RoleAdmin}

	resp, err := svc.StartCheckout(context.Background(), admin, &dto.StartCheckoutRequest{
		AssetType: models.AssetTypeSong, AssetID: asset.ID.String(),
	})
	require.NoError(t, err)
	assert.Equal(t, models.PurchasePending, resp.Purchase.Status)
}

func TestStartCheckoutAlreadyPurchased(t *testing.T) {
	svc, _, gateway, buyer, asset := checkoutFixture(decimal.NewFromFloat(9.99))

	first, err := svc.StartCheckout(context.Background(), buyer, &dto.StartCheckoutRequest{
		AssetType: models.AssetTypeSong, AssetID: asset.ID.String(),
	})
	require.NoError(t, err)

	gateway.statuses[first.SessionID] = payment.SessionStatus{State: payment.StatusPaid, PaymentRef: "pi_123"}
	confirmed, err := svc.ConfirmCheckout(context.Background(), buyer, &dto.ConfirmCheckoutRequest{
		PurchaseID: first.Purchase.ID.String(), SessionID: first.SessionID,
	})
	require.NoError(t, err)

	again, err := svc.StartCheckout(context.Background(), buyer, &dto.StartCheckoutRequest{
		AssetType: models.AssetTypeSong, AssetID: asset.ID.String(),
	})
	require.NoError(t, err)
	assert.True(t, again.AlreadyPurchased)
	assert.Equal(t, confirmed.Purchase.LicenseCode, again.Purchase.LicenseCode)
	assert.Equal(t, 1, gateway.created)
}

func TestStartCheckoutGatewayDownFallsBackToMock(t *testing.T) {
	svc, purchases, gateway, buyer, asset := checkoutFixture(decimal.NewFromFloat(9.99))
	gateway.failCreate = true

	resp, err := svc.StartCheckout(context.Background(), buyer, &dto.StartCheckoutRequest{
		AssetType: models.AssetTypeSong, AssetID: asset.ID.String(),
	})
	require.NoError(t, err)
	assert.True(t, resp.Mock)
	assert.Empty(t, resp.CheckoutURL)
	assert.Equal(t, 1, purchases.pendingCount())
}

func TestConcurrentStartsConvergeOnOnePendingRecord(t *testing.T) {
	svc, purchases, gateway, buyer, asset := checkoutFixture(decimal.NewFromFloat(9.99))
	gateway.enabled = false

	var wg sync.WaitGroup
	ids := make([]uuid.UUID, 8)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp, err := svc.StartCheckout(context.Background(), buyer, &dto.StartCheckoutRequest{
				AssetType: models.AssetTypeSong, AssetID: asset.ID.String(),
			})
			if assert.NoError(t, err) {
				ids[i] = resp.Purchase.ID
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, purchases.pendingCount())
	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id)
	}
}

func TestConfirmPaidSessionMintsLicenseOnce(t *testing.T) {
	svc, _, gateway, buyer, asset := checkoutFixture(decimal.NewFromFloat(9.99))

	started, err := svc.StartCheckout(context.Background(), buyer, &dto.StartCheckoutRequest{
		AssetType: models.AssetTypeSong, AssetID: asset.ID.String(),
	})
	require.NoError(t, err)
	gateway.statuses[started.SessionID] = payment.SessionStatus{State: payment.StatusPaid, PaymentRef: "pi_123"}

	first, err := svc.ConfirmCheckout(context.Background(), buyer, &dto.ConfirmCheckoutRequest{
		PurchaseID: started.Purchase.ID.String(), SessionID: started.SessionID,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PurchasePaid, first.Purchase.Status)
	assert.Regexp(t, licenseCodePattern, first.Purchase.LicenseCode)
	require.NotNil(t, first.Purchase.PurchasedAt)

	// Confirming again is a no-op returning the same license code.
	second, err := svc.ConfirmCheckout(context.Background(), buyer, &dto.ConfirmCheckoutRequest{
		PurchaseID: started.Purchase.ID.String(), SessionID: started.SessionID,
	})
	require.NoError(t, err)
	assert.Equal(t, first.Purchase.LicenseCode, second.Purchase.LicenseCode)
	assert.Equal(t, first.Purchase.PurchasedAt.Unix(), second.Purchase.PurchasedAt.Unix())
}

func TestConfirmUnpaidSessionRejected(t *testing.T) {
	svc, _, gateway, buyer, asset := checkoutFixture(decimal.NewFromFloat(9.99))

	started, err := svc.StartCheckout(context.Background(), buyer, &dto.StartCheckoutRequest{
		AssetType: models.AssetTypeSong, AssetID: asset.ID.String(),
	})
	require.NoError(t, err)
	gateway.statuses[started.SessionID] = payment.SessionStatus{State: payment.StatusUnpaid}

	_, err = svc.ConfirmCheckout(context.Background(), buyer, &dto.ConfirmCheckoutRequest{
		PurchaseID: started.Purchase.ID.String(), SessionID: started.SessionID,
	})
	assert.ErrorIs(t, err, ErrPaymentNotConfirmed)
}

func TestConfirmForeignPurchaseForbidden(t *testing.T) {
	svc, _, _, buyer, asset := checkoutFixture(decimal.NewFromFloat(9.99))

	started, err := svc.StartCheckout(context.Background(), buyer, &dto.StartCheckoutRequest{
		AssetType: models.AssetTypeSong, AssetID: asset.ID.String(),
	})
	require.NoError(t, err)

	stranger := Principal{ID: uuid.New(), Role: models.RoleUser}
	_, err = svc.ConfirmCheckout(context.Background(), stranger, &dto.ConfirmCheckoutRequest{
		PurchaseID: started.Purchase.ID.String(),
	})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestMockConfirmGatedByConfig(t *testing.T) {
	ownerID := uuid.New()
	asset := &store.Asset{
		Type: models.AssetTypeSong, ID: uuid.New(), OwnerID: ownerID,
		Name: "Midnight Run", ArtistName: "The Echoes", Price: decimal.NewFromFloat(9.99),
	}
	purchases := newFakePurchases()
	assets := &fakeAssets{assets: map[uuid.UUID]*store.Asset{asset.ID: asset}}
	buyer := Principal{ID: uuid.New(), Role: models.RoleUser}

	// Gateway off, manual confirmation disabled.
	svc := NewCheckoutService(purchases, assets, payment.Disabled{}, false)
	started, err := svc.StartCheckout(context.Background(), buyer, &dto.StartCheckoutRequest{
		AssetType: models.AssetTypeSong, AssetID: asset.ID.String(),
	})
	require.NoError(t, err)
	assert.True(t, started.Mock)

	_, err = svc.ConfirmCheckout(context.Background(), buyer, &dto.ConfirmCheckoutRequest{
		PurchaseID: started.Purchase.ID.String(), MockSuccess: true,
	})
	assert.ErrorIs(t, err, ErrMockNotAllowed)

	// Enabled: a mock success finalizes, a mock failure marks failed.
	svc = NewCheckoutService(purchases, assets, payment.Disabled{}, true)
	confirmed, err := svc.ConfirmCheckout(context.Background(), buyer, &dto.ConfirmCheckoutRequest{
		PurchaseID: started.Purchase.ID.String(), MockSuccess: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PurchasePaid, confirmed.Purchase.Status)
	assert.Regexp(t, licenseCodePattern, confirmed.Purchase.LicenseCode)
}

func TestMockConfirmFailureMarksFailed(t *testing.T) {
	ownerID := uuid.New()
	asset := &store.Asset{
		Type: models.AssetTypeSong, ID: uuid.New(), OwnerID: ownerID,
		Name: "Midnight Run", ArtistName: "The Echoes", Price: decimal.NewFromFloat(9.99),
	}
	purchases := newFakePurchases()
	svc := NewCheckoutService(purchases, &fakeAssets{assets: map[uuid.UUID]*store.Asset{asset.ID: asset}}, payment.Disabled{}, true)
	buyer := Principal{ID: uuid.New(), Role: models.RoleUser}

	started, err := svc.StartCheckout(context.Background(), buyer, &dto.StartCheckoutRequest{
		AssetType: models.AssetTypeSong, AssetID: asset.ID.String(),
	})
	require.NoError(t, err)

	_, err = svc.ConfirmCheckout(context.Background(), buyer, &dto.ConfirmCheckoutRequest{
		PurchaseID: started.Purchase.ID.String(), MockSuccess: false,
	})
	assert.ErrorIs(t, err, ErrPaymentFailed)

	stored, err := purchases.FindByID(context.Background(), started.Purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchaseFailed, stored.Status)
}

func TestFailedCheckoutRetriesRepeatedly(t *testing.T) {
	ownerID := uuid.New()
	asset := &store.Asset{
		Type: models.AssetTypeSong, ID: uuid.New(), OwnerID: ownerID,
		Name: "Midnight Run", ArtistName: "The Echoes", Price: decimal.NewFromFloat(9.99),
	}
	purchases := newFakePurchases()
	svc := NewCheckoutService(purchases, &fakeAssets{assets: map[uuid.UUID]*store.Asset{asset.ID: asset}}, payment.Disabled{}, true)
	buyer := Principal{ID: uuid.New(), Role: models.RoleUser}

	// Two failed attempts for the same pair pile up without colliding.
	for i := 0; i < 2; i++ {
		started, err := svc.StartCheckout(context.Background(), buyer, &dto.StartCheckoutRequest{
			AssetType: models.AssetTypeSong, AssetID: asset.ID.String(),
		})
		require.NoError(t, err)

		_, err = svc.ConfirmCheckout(context.Background(), buyer, &dto.ConfirmCheckoutRequest{
			PurchaseID: started.Purchase.ID.String(), MockSuccess: false,
		})
		assert.ErrorIs(t, err, ErrPaymentFailed)
	}
	assert.Equal(t, 2, purchases.countByStatus(models.PurchaseFailed))
	assert.Equal(t, 0, purchases.pendingCount())

	// A third attempt still completes.
	started, err := svc.StartCheckout(context.Background(), buyer, &dto.StartCheckoutRequest{
		AssetType: models.AssetTypeSong, AssetID: asset.ID.String(),
	})
	require.NoError(t, err)
	confirmed, err := svc.ConfirmCheckout(context.Background(), buyer, &dto.ConfirmCheckoutRequest{
		PurchaseID: started.Purchase.ID.String(), MockSuccess: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PurchasePaid, confirmed.Purchase.Status)
}

func TestConfirmNeedsSessionWhileGatewayEnabled(t *testing.T) {
	svc, _, gateway, buyer, asset := checkoutFixture(decimal.NewFromFloat(9.99))
	gateway.failCreate = true

	started, err := svc.StartCheckout(context.Background(), buyer, &dto.StartCheckoutRequest{
		AssetType: models.AssetTypeSong, AssetID: asset.ID.String(),
	})
	require.NoError(t, err)
	require.True(t, started.Mock)

	// The gateway is configured, so a session-less confirm cannot take the
	// mock path even with manual confirmation enabled.
	gateway.failCreate = false
	_, err = svc.ConfirmCheckout(context.Background(), buyer, &dto.ConfirmCheckoutRequest{
		PurchaseID: started.Purchase.ID.String(), MockSuccess: true,
	})
	assert.ErrorIs(t, err, ErrPaymentNotConfirmed)
}

func TestWebhookConfirmIsIdempotent(t *testing.T) {
	svc, purchases, _, buyer, asset := checkoutFixture(decimal.NewFromFloat(9.99))

	started, err := svc.StartCheckout(context.Background(), buyer, &dto.StartCheckoutRequest{
		AssetType: models.AssetTypeSong, AssetID: asset.ID.String(),
	})
	require.NoError(t, err)

	event := &payment.WebhookEvent{
		SessionRef: started.SessionID,
		PurchaseID: started.Purchase.ID.String(),
		Paid:       true,
	}
	require.NoError(t, svc.ConfirmFromWebhook(context.Background(), event))
	first, err := purchases.FindByID(context.Background(), started.Purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PurchasePaid, first.Status)
	require.NotNil(t, first.LicenseCode)

	// Redelivery keeps the original license code.
	require.NoError(t, svc.ConfirmFromWebhook(context.Background(), event))
	second, err := purchases.FindByID(context.Background(), started.Purchase.ID)
	require.NoError(t, err)
	assert.Equal(t, *first.LicenseCode, *second.LicenseCode)

	// Unknown purchase ids are swallowed.
	require.NoError(t, svc.ConfirmFromWebhook(context.Background(), &payment.WebhookEvent{
		PurchaseID: uuid.NewString(), Paid: true,
	}))
}

func TestLicenseCodeFormat(t *testing.T) {
	at := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		assert.Regexp(t, licenseCodePattern, newLicenseCode(at))
	}
}
