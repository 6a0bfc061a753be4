package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/echotune/echotune-backend/internal/config"
	"github.com/echotune/echotune-backend/internal/dto"
	"github.com/echotune/echotune-backend/internal/models"
	"github.com/echotune/echotune-backend/internal/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeAccounts struct {
	mu    sync.Mutex
	users map[uuid.UUID]*models.User
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{users: make(map[uuid.UUID]*models.User)}
}

func (f *fakeAccounts) FindByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeAccounts) FindByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeAccounts) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeAccounts) Update(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[u.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeAccounts) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.users, id)
	return nil
}

func (f *fakeAccounts) SetOTC(_ context.Context, id uuid.UUID, code, purpose string, expiresAt time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.OTCCode = &code
	u.OTCPurpose = &purpose
	u.OTCExpiresAt = &expiresAt
	return nil
}

func (f *fakeAccounts) ClearOTC(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.OTCCode, u.OTCPurpose, u.OTCExpiresAt = nil, nil, nil
	return nil
}

func (f *fakeAccounts) ConsumeOTC(_ context.Context, id uuid.UUID, code string, activate bool) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok || u.OTCCode == nil || *u.OTCCode != code {
		return false, nil
	}
	u.OTCCode, u.OTCPurpose, u.OTCExpiresAt = nil, nil, nil
	if activate {
		u.IsActive = true
	}
	return true, nil
}

func (f *fakeAccounts) SetPassword(_ context.Context, id uuid.UUID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.ErrNotFound
	}
	u.Password = hash
	return nil
}

func (f *fakeAccounts) get(id uuid.UUID) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.users[id]
}

type fakeMailer struct {
	mu         sync.Mutex
	deliveries []string
	fail       bool
}

func (m *fakeMailer) Deliver(_ context.Context, to, _, _, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return false, errors.New("smtp connection refused")
	}
	m.deliveries = append(m.deliveries, to)
	return true, nil
}

func (m *fakeMailer) sent() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deliveries)
}

type fakeIssuer struct{}

func (fakeIssuer) Mint(accountID uuid.UUID, _, _ string) (string, error) {
	return "token-" + accountID.String(), nil
}

func newTestAuthService(accounts *fakeAccounts, mailer *fakeMailer) *AuthService {
	cfg := &config.Config{
		OTCLength: 4,
		OTCExpiry: 10 * time.Minute,
	}
	return NewAuthService(accounts, mailer, fakeIssuer{}, nil, cfg)
}

func TestRegisterCreatesInactiveAccountWithCode(t *testing.T) {
	accounts := newFakeAccounts()
	mailer := &fakeMailer{}
	svc := newTestAuthService(accounts, mailer)

	resp, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name: "Ada", Email: "Ada@Example.com", Password: "long-enough",
	})
	require.NoError(t, err)
	assert.True(t, resp.RequiresVerification)
	assert.Equal(t, "ada@example.com", resp.Email)
	assert.Equal(t, 1, mailer.sent())

	user, err := accounts.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.False(t, user.IsActive)
	require.True(t, user.HasPendingOTC())
	assert.Len(t, *user.OTCCode, 4)
	assert.Equal(t, models.OTCPurposeSignup, *user.OTCPurpose)
}

func TestRegisterActiveEmailConflicts(t *testing.T) {
	accounts := newFakeAccounts()
	svc := newTestAuthService(accounts, &fakeMailer{})

	id := uuid.New()
	require.NoError(t, accounts.Create(context.Background(), &models.User{
		ID: id, Email: "taken@example.com", IsActive: true,
	}))

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name: "Bob", Email: "taken@example.com", Password: "long-enough",
	})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegisterOverInactiveAccountReissues(t *testing.T) {
	accounts := newFakeAccounts()
	mailer := &fakeMailer{}
	svc := newTestAuthService(accounts, mailer)

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name: "Ada", Email: "ada@example.com", Password: "first-pass-xx",
	})
	require.NoError(t, err)
	first, _ := accounts.FindByEmail(context.Background(), "ada@example.com")

	_, err = svc.Register(context.Background(), &dto.RegisterRequest{
		Name: "Ada Again", Email: "ada@example.com", Password: "second-pass-xx",
	})
	require.NoError(t, err)

	second, _ := accounts.FindByEmail(context.Background(), "ada@example.com")
	assert.Equal(t, "Ada Again", second.Name)
	assert.Equal(t, 2, mailer.sent())
	assert.True(t, second.HasPendingOTC())
	assert.Equal(t, first.ID, second.ID)
}

func TestVerifySignupCodeActivatesAndMintsToken(t *testing.T) {
	accounts := newFakeAccounts()
	svc := newTestAuthService(accounts, &fakeMailer{})

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name: "Ada", Email: "ada@example.com", Password: "long-enough",
	})
	require.NoError(t, err)
	user, _ := accounts.FindByEmail(context.Background(), "ada@example.com")

	auth, verified, err := svc.VerifyOTC(context.Background(), &dto.VerifyOTCRequest{
		Email: "ada@example.com", Code: *user.OTCCode,
	})
	require.NoError(t, err)
	assert.Nil(t, verified)
	require.NotNil(t, auth)
	assert.NotEmpty(t, auth.Token)
	assert.True(t, auth.User.IsActive)

	stored := accounts.get(user.ID)
	assert.True(t, stored.IsActive)
	assert.False(t, stored.HasPendingOTC())
}

func TestVerifyConsumedCodeReportsNoActiveCode(t *testing.T) {
	accounts := newFakeAccounts()
	svc := newTestAuthService(accounts, &fakeMailer{})

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name: "Ada", Email: "ada@example.com", Password: "long-enough",
	})
	require.NoError(t, err)
	user, _ := accounts.FindByEmail(context.Background(), "ada@example.com")
	code := *user.OTCCode

	_, _, err = svc.VerifyOTC(context.Background(), &dto.VerifyOTCRequest{
		Email: "ada@example.com", Code: code,
	})
	require.NoError(t, err)

	_, _, err = svc.VerifyOTC(context.Background(), &dto.VerifyOTCRequest{
		Email: "ada@example.com", Code: code,
	})
	assert.ErrorIs(t, err, ErrNoActiveCode)
}

func TestVerifyWrongCode(t *testing.T) {
	accounts := newFakeAccounts()
	svc := newTestAuthService(accounts, &fakeMailer{})

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name: "Ada", Email: "ada@example.com", Password: "long-enough",
	})
	require.NoError(t, err)

	_, _, err = svc.VerifyOTC(context.Background(), &dto.VerifyOTCRequest{
		Email: "ada@example.com", Code: "wrong",
	})
	assert.ErrorIs(t, err, ErrCodeInvalid)

	// A wrong guess does not consume the pending code.
	user, _ := accounts.FindByEmail(context.Background(), "ada@example.com")
	assert.True(t, user.HasPendingOTC())
}

func TestVerifyExpiredCodeClearsIt(t *testing.T) {
	accounts := newFakeAccounts()
	svc := newTestAuthService(accounts, &fakeMailer{})

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name: "Ada", Email: "ada@example.com", Password: "long-enough",
	})
	require.NoError(t, err)
	user, _ := accounts.FindByEmail(context.Background(), "ada@example.com")
	code := *user.OTCCode

	svc.now = func() time.Time { return time.Now().Add(11 * time.Minute) }

	_, _, err = svc.VerifyOTC(context.Background(), &dto.VerifyOTCRequest{
		Email: "ada@example.com", Code: code,
	})
	assert.ErrorIs(t, err, ErrCodeExpired)

	// The expired code is gone; the next attempt reports no active code.
	_, _, err = svc.VerifyOTC(context.Background(), &dto.VerifyOTCRequest{
		Email: "ada@example.com", Code: code,
	})
	assert.ErrorIs(t, err, ErrNoActiveCode)
}

func TestVerifyPurposeMismatch(t *testing.T) {
	accounts := newFakeAccounts()
	svc := newTestAuthService(accounts, &fakeMailer{})

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name: "Ada", Email: "ada@example.com", Password: "long-enough",
	})
	require.NoError(t, err)
	user, _ := accounts.FindByEmail(context.Background(), "ada@example.com")

	_, _, err = svc.VerifyOTC(context.Background(), &dto.VerifyOTCRequest{
		Email: "ada@example.com", Code: *user.OTCCode, Purpose: models.OTCPurposePasswordReset,
	})
	assert.ErrorIs(t, err, ErrCodePurposeMismatch)
}

func TestResetFlowVerifyDoesNotConsume(t *testing.T) {
	accounts := newFakeAccounts()
	svc := newTestAuthService(accounts, &fakeMailer{})

	hash, _ := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.DefaultCost)
	id := uuid.New()
	require.NoError(t, accounts.Create(context.Background(), &models.User{
		ID: id, Name: "Ada", Email: "ada@example.com", Password: string(hash), IsActive: true,
	}))

	require.NoError(t, svc.RequestPasswordReset(context.Background(), "ada@example.com"))
	user := accounts.get(id)
	code := *user.OTCCode

	auth, verified, err := svc.VerifyOTC(context.Background(), &dto.VerifyOTCRequest{
		Email: "ada@example.com", Code: code, Purpose: models.OTCPurposePasswordReset,
	})
	require.NoError(t, err)
	assert.Nil(t, auth)
	require.NotNil(t, verified)
	assert.Equal(t, models.OTCPurposePasswordReset, verified.Purpose)

	// Still pending: the reset code is consumed by the reset itself.
	assert.True(t, accounts.get(id).HasPendingOTC())

	require.NoError(t, svc.ResetPassword(context.Background(), &dto.ResetPasswordRequest{
		Email: "ada@example.com", Code: code, NewPassword: "new-password",
	}))
	assert.False(t, accounts.get(id).HasPendingOTC())

	stored := accounts.get(id)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("new-password")))

	// The code is one-shot: a second reset with it fails.
	err = svc.ResetPassword(context.Background(), &dto.ResetPasswordRequest{
		Email: "ada@example.com", Code: code, NewPassword: "another-pass",
	})
	assert.ErrorIs(t, err, ErrNoActiveCode)
}

func TestResetRequestForInactiveAccount(t *testing.T) {
	accounts := newFakeAccounts()
	svc := newTestAuthService(accounts, &fakeMailer{})

	require.NoError(t, accounts.Create(context.Background(), &models.User{
		ID: uuid.New(), Email: "ada@example.com", IsActive: false,
	}))

	err := svc.RequestPasswordReset(context.Background(), "ada@example.com")
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestDeliveryFailureKeepsCodePersisted(t *testing.T) {
	accounts := newFakeAccounts()
	mailer := &fakeMailer{fail: true}
	svc := newTestAuthService(accounts, mailer)

	_, err := svc.Register(context.Background(), &dto.RegisterRequest{
		Name: "Ada", Email: "ada@example.com", Password: "long-enough",
	})
	assert.ErrorIs(t, err, ErrDeliveryUnavailable)

	// The code was written before delivery; a later resend overwrites it.
	user, findErr := accounts.FindByEmail(context.Background(), "ada@example.com")
	require.NoError(t, findErr)
	assert.True(t, user.HasPendingOTC())

	mailer.fail = false
	require.NoError(t, svc.ResendOTC(context.Background(), &dto.ResendOTCRequest{Email: "ada@example.com"}))
	assert.Equal(t, 1, mailer.sent())
}

func TestResendToActiveAccountForSignup(t *testing.T) {
	accounts := newFakeAccounts()
	svc := newTestAuthService(accounts, &fakeMailer{})

	require.NoError(t, accounts.Create(context.Background(), &models.User{
		ID: uuid.New(), Email: "ada@example.com", IsActive: true,
	}))

	err := svc.ResendOTC(context.Background(), &dto.ResendOTCRequest{Email: "ada@example.com"})
	assert.ErrorIs(t, err, ErrAlreadyVerified)
}

func TestLoginChecksStateAndRole(t *testing.T) {
	accounts := newFakeAccounts()
	svc := newTestAuthService(accounts, &fakeMailer{})

	hash, _ := bcrypt.GenerateFromPassword([]byte("buyer-password"), bcrypt.DefaultCost)
	require.NoError(t, accounts.Create(context.Background(), &models.User{
		ID: uuid.New(), Email: "buyer@example.com", Password: string(hash),
		Role: models.RoleUser, IsActive: true,
	}))
	require.NoError(t, accounts.Create(context.Background(), &models.User{
		ID: uuid.New(), Email: "pending@example.com", Password: string(hash),
		Role: models.RoleUser, IsActive: false,
	}))

	resp, err := svc.Login(context.Background(), &dto.LoginRequest{
		Email: "buyer@example.com", Password: "buyer-password",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	_, err = svc.Login(context.Background(), &dto.LoginRequest{
		Email: "buyer@example.com", Password: "wrong",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), &dto.LoginRequest{
		Email: "pending@example.com", Password: "buyer-password",
	})
	assert.ErrorIs(t, err, ErrAccountInactive)

	// Owner door rejects a plain buyer.
	_, err = svc.Login(context.Background(), &dto.LoginRequest{
		Email: "buyer@example.com", Password: "buyer-password",
	}, models.RoleOwner, models.RoleAdmin)
	assert.ErrorIs(t, err, ErrRoleNotAllowed)
}

func TestUpdateAccountPasswordNeedsOldPassword(t *testing.T) {
	accounts := newFakeAccounts()
	svc := newTestAuthService(accounts, &fakeMailer{})

	hash, _ := bcrypt.GenerateFromPassword([]byte("old-password"), bcrypt.DefaultCost)
	id := uuid.New()
	require.NoError(t, accounts.Create(context.Background(), &models.User{
		ID: id, Email: "ada@example.com", Password: string(hash),
		Role: models.RoleUser, IsActive: true,
	}))
	self := Principal{ID: id, Role: models.RoleUser}

	_, err := svc.UpdateAccount(context.Background(), self, id, &dto.UpdateAccountRequest{
		NewPassword: "new-password",
	})
	require.Error(t, err)

	_, err = svc.UpdateAccount(context.Background(), self, id, &dto.UpdateAccountRequest{
		OldPassword: "old-password", NewPassword: "new-password",
	})
	require.NoError(t, err)

	stored := accounts.get(id)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("new-password")))

	// Another user cannot touch the account.
	other := Principal{ID: uuid.New(), Role: models.RoleUser}
	_, err = svc.UpdateAccount(context.Background(), other, id, &dto.UpdateAccountRequest{Name: "Mallory"})
	assert.ErrorIs(t, err, ErrForbidden)
}
