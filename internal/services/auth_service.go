package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/echotune/echotune-backend/internal/apperr"
	"github.com/echotune/echotune-backend/internal/config"
	"github.com/echotune/echotune-backend/internal/dto"
	"github.com/echotune/echotune-backend/internal/mail"
	"github.com/echotune/echotune-backend/internal/models"
	"github.com/echotune/echotune-backend/internal/store"
	"github.com/echotune/echotune-backend/internal/token"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrEmailTaken          = apperr.New(apperr.Conflict, "email_taken", "an active account with this email already exists")
	ErrAccountNotFound     = apperr.New(apperr.NotFound, "account_not_found", "account not found")
	ErrInvalidCredentials  = apperr.New(apperr.State, "invalid_credentials", "invalid email or password")
	ErrAccountInactive     = apperr.New(apperr.State, "account_inactive", "account is not verified; verify the emailed code first")
	ErrAlreadyVerified     = apperr.New(apperr.State, "already_verified", "account is already verified")
	ErrNoActiveCode        = apperr.New(apperr.State, "no_active_code", "no active code found; request a new one")
	ErrCodePurposeMismatch = apperr.New(apperr.State, "code_purpose_mismatch", "code purpose mismatch; request a new code")
	ErrCodeExpired         = apperr.New(apperr.State, "code_expired", "code expired; request a new one")
	ErrCodeInvalid         = apperr.New(apperr.State, "code_invalid", "invalid code")
	ErrDeliveryUnavailable = apperr.New(apperr.Unavailable, "delivery_unavailable", "could not send the verification email; request a new code")
	ErrRoleNotAllowed      = apperr.New(apperr.State, "role_not_allowed", "this account is not allowed for this login")
	ErrForbidden           = apperr.New(apperr.Conflict, "forbidden", "not allowed to act on this account")
)

// GoogleVerifier validates a Google ID token and returns its claims.
type GoogleVerifier interface {
	VerifyIDToken(idToken string) (*GoogleClaims, error)
}

// AuthService owns accounts and the one-time-code state machine gating
// activation and password recovery. Collaborators are injected; the engine
// never reaches for process-global state.
type AuthService struct {
	accounts store.AccountStore
	mailer   mail.Mailer
	issuer   token.Issuer
	google   GoogleVerifier
	cfg      *config.Config

	now func() time.Time
}

func NewAuthService(accounts store.AccountStore, mailer mail.Mailer, issuer token.Issuer, google GoogleVerifier, cfg *config.Config) *AuthService {
	return &AuthService{
		accounts: accounts,
		mailer:   mailer,
		issuer:   issuer,
		google:   google,
		cfg:      cfg,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeRole(role string, allowAdmin bool) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case models.RoleOwner:
		return models.RoleOwner
	case models.RoleAdmin:
		if allowAdmin {
			return models.RoleAdmin
		}
	}
	return models.RoleUser
}

func normalizePurpose(purpose string) string {
	if strings.ToLower(strings.TrimSpace(purpose)) == models.OTCPurposePasswordReset {
		return models.OTCPurposePasswordReset
	}
	return models.OTCPurposeSignup
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return apperr.New(apperr.Validation, "weak_password", "password must be at least 8 characters")
	}
	return nil
}

// Register creates an inactive account and emails a signup code. Registering
// again over an existing inactive account refreshes its details and
// re-issues the code; an active account is a conflict.
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.RegisterResponse, error) {
	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	role := normalizeRole(req.Role, false)

	if name == "" || email == "" || req.Password == "" {
		return nil, apperr.New(apperr.Validation, "missing_fields", "name, email and password are required")
	}
	if err := validatePassword(req.Password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	existing, err := s.accounts.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	var user *models.User
	switch {
	case existing != nil && existing.IsActive:
		return nil, ErrEmailTaken
	case existing != nil:
		existing.Name = name
		existing.Password = string(hash)
		existing.Role = role
		if err := s.accounts.Update(ctx, existing); err != nil {
			return nil, err
		}
		user = existing
	default:
		user = &models.User{
			ID:       uuid.New(),
			Name:     name,
			Email:    email,
			Password: string(hash),
			Role:     role,
			IsActive: false,
		}
		if err := s.accounts.Create(ctx, user); err != nil {
			return nil, err
		}
	}

	if err := s.issueOTC(ctx, user, models.OTCPurposeSignup); err != nil {
		return nil, err
	}

	return &dto.RegisterResponse{
		Message:              "signup successful; verify the code sent to your email",
		RequiresVerification: true,
		Email:                user.Email,
		Role:                 user.Role,
	}, nil
}

// issueOTC persists a fresh code onto the account, overwriting any previous
// one regardless of purpose, then hands delivery to the mailer. A failed
// delivery is not rolled back: re-requesting simply overwrites.
func (s *AuthService) issueOTC(ctx context.Context, user *models.User, purpose string) error {
	code := s.newCode()
	expiresAt := s.now().Add(s.cfg.OTCExpiry)

	if err := s.accounts.SetOTC(ctx, user.ID, code, purpose, expiresAt); err != nil {
		return err
	}

	subject, text, html := mail.OTCMessage(user.Name, code, purpose, s.cfg.OTCExpiry)
	sent, err := s.mailer.Deliver(ctx, user.Email, subject, text, html)
	if err != nil {
		slog.Error("code delivery failed", "user_id", user.ID.String(), "error", err)
		return ErrDeliveryUnavailable
	}
	if !sent {
		return ErrDeliveryUnavailable
	}
	return nil
}

func (s *AuthService) newCode() string {
	digits := make([]byte, s.cfg.OTCLength)
	for i := range digits {
		digits[i] = byte('0' + rand.IntN(10))
	}
	return string(digits)
}

// VerifyOTC validates the submitted code for the given purpose. On success
// for signup it activates the account and mints a session token; for
// password reset it returns a verified assertion without mutating anything —
// the code is consumed later, by ResetPassword.
func (s *AuthService) VerifyOTC(ctx context.Context, req *dto.VerifyOTCRequest) (*dto.AuthResponse, *dto.OTCVerifiedResponse, error) {
	email := normalizeEmail(req.Email)
	code := strings.TrimSpace(req.Code)
	purpose := normalizePurpose(req.Purpose)

	if email == "" || code == "" {
		return nil, nil, apperr.New(apperr.Validation, "missing_fields", "email and code are required")
	}

	user, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, ErrAccountNotFound
		}
		return nil, nil, err
	}

	if err := s.checkPending(ctx, user, purpose, code); err != nil {
		return nil, nil, err
	}

	if purpose == models.OTCPurposePasswordReset {
		return nil, &dto.OTCVerifiedResponse{
			Message: "code verified; you can now reset your password",
			Email:   user.Email,
			Purpose: purpose,
		}, nil
	}

	consumed, err := s.accounts.ConsumeOTC(ctx, user.ID, code, true)
	if err != nil {
		return nil, nil, err
	}
	if !consumed {
		// Lost the race against a concurrent verification.
		return nil, nil, ErrNoActiveCode
	}

	minted, err := s.issuer.Mint(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, nil, err
	}

	user.IsActive = true
	return &dto.AuthResponse{Token: minted, User: toUserResponse(user)}, nil, nil
}

// checkPending runs the shared validation ladder: pending code present,
// purpose matches, not expired, code matches. Expired codes are cleared
// eagerly so the next attempt reports no_active_code.
func (s *AuthService) checkPending(ctx context.Context, user *models.User, purpose, code string) error {
	if !user.HasPendingOTC() {
		return ErrNoActiveCode
	}
	if *user.OTCPurpose != purpose {
		return ErrCodePurposeMismatch
	}
	if !s.now().Before(*user.OTCExpiresAt) {
		if err := s.accounts.ClearOTC(ctx, user.ID); err != nil {
			return err
		}
		return ErrCodeExpired
	}
	if *user.OTCCode != code {
		return ErrCodeInvalid
	}
	return nil
}

// ResendOTC re-issues a code for the given purpose. Signup codes only go to
// unverified accounts, reset codes only to verified ones.
func (s *AuthService) ResendOTC(ctx context.Context, req *dto.ResendOTCRequest) error {
	email := normalizeEmail(req.Email)
	purpose := normalizePurpose(req.Purpose)

	if email == "" {
		return apperr.New(apperr.Validation, "missing_fields", "email is required")
	}

	user, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}

	if purpose == models.OTCPurposeSignup && user.IsActive {
		return ErrAlreadyVerified
	}
	if purpose == models.OTCPurposePasswordReset && !user.IsActive {
		return ErrAccountInactive
	}

	return s.issueOTC(ctx, user, purpose)
}

func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	return s.ResendOTC(ctx, &dto.ResendOTCRequest{
		Email:   email,
		Purpose: models.OTCPurposePasswordReset,
	})
}

// ResetPassword finalizes a password reset: it re-validates the reset code,
// consumes it atomically and writes the new credential. Consuming here (not
// at VerifyOTC) is what makes a reset code one-shot at the moment of use.
func (s *AuthService) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) error {
	email := normalizeEmail(req.Email)
	code := strings.TrimSpace(req.Code)

	if email == "" || code == "" || req.NewPassword == "" {
		return apperr.New(apperr.Validation, "missing_fields", "email, code and new password are required")
	}
	if err := validatePassword(req.NewPassword); err != nil {
		return err
	}

	user, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}

	if err := s.checkPending(ctx, user, models.OTCPurposePasswordReset, code); err != nil {
		return err
	}

	consumed, err := s.accounts.ConsumeOTC(ctx, user.ID, code, false)
	if err != nil {
		return err
	}
	if !consumed {
		return ErrNoActiveCode
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.accounts.SetPassword(ctx, user.ID, string(hash))
}

// Login authenticates by email and password. When allowedRoles is non-empty
// the account's role must be among them (separate buyer and owner logins).
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest, allowedRoles ...string) (*dto.AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return nil, apperr.New(apperr.Validation, "missing_fields", "email and password are required")
	}

	user, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrAccountInactive
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if len(allowedRoles) > 0 {
		allowed := false
		for _, r := range allowedRoles {
			if user.Role == r {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, ErrRoleNotAllowed
		}
	}

	minted, err := s.issuer.Mint(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{Token: minted, User: toUserResponse(user)}, nil
}

// GoogleSignIn verifies a Google ID token and signs the holder in, creating
// an active account on first login. Federated identities skip the code
// flow: the provider already proved control of the email address.
func (s *AuthService) GoogleSignIn(ctx context.Context, req *dto.GoogleSignInRequest) (*dto.AuthResponse, error) {
	if req.IDToken == "" {
		return nil, apperr.New(apperr.Validation, "missing_fields", "id token is required")
	}
	if s.google == nil {
		return nil, apperr.New(apperr.Unavailable, "google_unavailable", "Google sign-in is not configured")
	}

	claims, err := s.google.VerifyIDToken(req.IDToken)
	if err != nil {
		slog.Error("google token verification failed", "error", err)
		return nil, apperr.Wrap(apperr.Validation, "invalid_id_token", "failed to verify Google identity token", err)
	}

	email := normalizeEmail(claims.Email)
	user, err := s.accounts.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	if user == nil {
		name := strings.TrimSpace(claims.Name)
		if name == "" {
			name = strings.Split(email, "@")[0]
		}

		// Placeholder credential; a federated account never logs in with it.
		seed := fmt.Sprintf("%d-%s-google-oauth", s.now().UnixNano(), uuid.NewString())
		hash, err := bcrypt.GenerateFromPassword([]byte(seed), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash placeholder password: %w", err)
		}

		user = &models.User{
			ID:           uuid.New(),
			Name:         name,
			Email:        email,
			Password:     string(hash),
			Role:         normalizeRole(req.Role, false),
			IsActive:     true,
			AuthProvider: "google",
		}
		if err := s.accounts.Create(ctx, user); err != nil {
			return nil, err
		}
	} else if !user.IsActive {
		user.IsActive = true
		if err := s.accounts.Update(ctx, user); err != nil {
			return nil, err
		}
	}

	minted, err := s.issuer.Mint(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{Token: minted, User: toUserResponse(user)}, nil
}

func (s *AuthService) GetAccount(ctx context.Context, id uuid.UUID) (*dto.UserResponse, error) {
	user, err := s.accounts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	resp := toUserResponse(user)
	return &resp, nil
}

// UpdateAccount changes profile fields and, optionally, the credential.
// Non-admin callers must present the old password to set a new one; only
// admins may change roles.
func (s *AuthService) UpdateAccount(ctx context.Context, requester Principal, targetID uuid.UUID, req *dto.UpdateAccountRequest) (*dto.UserResponse, error) {
	if !requester.Can(targetID) {
		return nil, ErrForbidden
	}

	user, err := s.accounts.FindByID(ctx, targetID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		user.Name = name
	}

	if email := normalizeEmail(req.Email); email != "" && email != user.Email {
		if other, err := s.accounts.FindByEmail(ctx, email); err == nil && other.ID != user.ID {
			return nil, apperr.New(apperr.Conflict, "email_in_use", "email already in use")
		} else if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		user.Email = email
	}

	if pic := strings.TrimSpace(req.ProfilePicture); pic != "" {
		user.ProfilePicture = &pic
	}

	if req.NewPassword != "" {
		if err := validatePassword(req.NewPassword); err != nil {
			return nil, err
		}
		if !requester.IsAdmin() {
			if req.OldPassword == "" {
				return nil, apperr.New(apperr.Validation, "missing_fields", "old password is required")
			}
			if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.OldPassword)); err != nil {
				return nil, apperr.New(apperr.State, "old_password_incorrect", "old password is incorrect")
			}
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.Password = string(hash)
	}

	if requester.IsAdmin() && req.Role != "" {
		user.Role = normalizeRole(req.Role, true)
	}

	if err := s.accounts.Update(ctx, user); err != nil {
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// DeleteAccount soft-deletes an account. Self or admin only.
func (s *AuthService) DeleteAccount(ctx context.Context, requester Principal, targetID uuid.UUID) error {
	if !requester.Can(targetID) {
		return ErrForbidden
	}
	if err := s.accounts.Delete(ctx, targetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	return nil
}

func toUserResponse(u *models.User) dto.UserResponse {
	return dto.UserResponse{
		ID:             u.ID,
		Name:           u.Name,
		Email:          u.Email,
		Role:           u.Role,
		ProfilePicture: u.ProfilePicture,
		IsActive:       u.IsActive,
		CreatedAt:      u.CreatedAt,
	}
}
