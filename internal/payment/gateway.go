// Package payment wraps the external payment gateway behind a narrow
// contract. Whether a real gateway exists is decided once, at construction:
// an unconfigured deployment gets the Disabled implementation and the
// checkout engine degrades to its manual confirmation path.
package payment

import (
	"context"

	"github.com/shopspring/decimal"
)

// Session states reported by the gateway for a checkout session.
const (
	StatusPaid    = "paid"
	StatusUnpaid  = "unpaid"
	StatusUnknown = "unknown"
)

// CreateSessionRequest describes one hosted-checkout session.
type CreateSessionRequest struct {
	Amount      decimal.Decimal
	Currency    string
	Name        string
	Description string
	Metadata    map[string]string
	SuccessURL  string
	CancelURL   string
}

// Session is a created remote checkout session.
type Session struct {
	Ref         string
	RedirectURL string
}

// SessionStatus is the gateway's authoritative view of a session.
type SessionStatus struct {
	State      string // StatusPaid, StatusUnpaid or StatusUnknown
	PaymentRef string // gateway payment correlation id, when paid
}

type Gateway interface {
	// Enabled reports whether a real gateway is configured. Callers use it
	// to log "not configured" distinctly from a transient failure.
	Enabled() bool
	CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error)
	GetSessionStatus(ctx context.Context, sessionRef string) (*SessionStatus, error)
}

// Disabled is the null gateway used when no secret key is configured.
type Disabled struct{}

func (Disabled) Enabled() bool { return false }

func (Disabled) CreateSession(context.Context, CreateSessionRequest) (*Session, error) {
	return nil, ErrNotConfigured
}

func (Disabled) GetSessionStatus(context.Context, string) (*SessionStatus, error) {
	return &SessionStatus{State: StatusUnknown}, nil
}
