// Package store holds the persistence contracts consumed by the engines.
// Everything the engines need from the database goes through these
// interfaces; tests substitute in-memory fakes, production wires the GORM
// implementation.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/echotune/echotune-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned by every lookup that resolves nothing.
var ErrNotFound = errors.New("record not found")

// Asset is the read-only view of a licensable item: just enough for the
// checkout and entitlement engines to price it and attribute ownership.
type Asset struct {
	Type       string
	ID         uuid.UUID
	OwnerID    uuid.UUID
	Name       string
	ArtistName string
	Price      decimal.Decimal
	MediaLink  string
}

type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	Create(ctx context.Context, u *models.User) error
	Update(ctx context.Context, u *models.User) error
	// Delete soft-deletes the account.
	Delete(ctx context.Context, id uuid.UUID) error

	// SetOTC writes code, purpose and expiry in one statement, overwriting
	// any previous code regardless of purpose.
	SetOTC(ctx context.Context, id uuid.UUID, code, purpose string, expiresAt time.Time) error
	// ClearOTC drops the pending code without consuming it (used when an
	// expired code is discovered at validation time).
	ClearOTC(ctx context.Context, id uuid.UUID) error
	// ConsumeOTC clears the code only if it still matches, optionally
	// flipping the account active in the same statement. A false return
	// means another verification consumed it first; this compare-and-clear
	// is what makes a code one-shot.
	ConsumeOTC(ctx context.Context, id uuid.UUID, code string, activate bool) (bool, error)

	SetPassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

type AssetStore interface {
	// Resolve looks an asset up by type and id across songs and content.
	Resolve(ctx context.Context, assetType string, id uuid.UUID) (*Asset, error)
}

type PurchaseStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	// FindPaid returns the paid record for a (buyer, asset) pair, or
	// ErrNotFound.
	FindPaid(ctx context.Context, buyerID uuid.UUID, assetType string, assetID uuid.UUID) (*models.Purchase, error)
	// UpsertPending atomically creates or refreshes the single pending
	// record for the pair and returns the durable row. Concurrent calls
	// for the same pair must converge on one record.
	UpsertPending(ctx context.Context, p *models.Purchase) (*models.Purchase, error)
	// SetSessionRef stores the gateway correlation id on a pending record.
	SetSessionRef(ctx context.Context, id uuid.UUID, sessionRef string) error
	// MarkPaid finalizes in one atomic update: status, purchasedAt, and the
	// license code only when none is set yet. Safe to repeat.
	MarkPaid(ctx context.Context, id uuid.UUID, licenseCode string, paidAt time.Time, sessionRef, paymentRef string) (*models.Purchase, error)
	MarkFailed(ctx context.Context, id uuid.UUID) error
}
