package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/client"
	"github.com/stripe/stripe-go/v81/webhook"
)

// ErrNotConfigured marks the absence of gateway configuration, as opposed
// to a transient gateway failure.
var ErrNotConfigured = errors.New("payment gateway not configured")

// StripeGateway implements Gateway on Stripe hosted checkout sessions.
// The client is owned by the instance, never process-global.
type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

func (g *StripeGateway) Enabled() bool { return true }

func (g *StripeGateway) CreateSession(ctx context.Context, req CreateSessionRequest) (*Session, error) {
	cents := req.Amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(cents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.Name),
						Description: stripe.String(req.Description),
					},
				},
			},
		},
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	return &Session{Ref: sess.ID, RedirectURL: sess.URL}, nil
}

func (g *StripeGateway) GetSessionStatus(ctx context.Context, sessionRef string) (*SessionStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	sess, err := g.api.CheckoutSessions.Get(sessionRef, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve checkout session: %w", err)
	}

	status := &SessionStatus{State: StatusUnknown}
	switch sess.PaymentStatus {
	case stripe.CheckoutSessionPaymentStatusPaid:
		status.State = StatusPaid
		if sess.PaymentIntent != nil {
			status.PaymentRef = sess.PaymentIntent.ID
		}
	case stripe.CheckoutSessionPaymentStatusUnpaid:
		status.State = StatusUnpaid
	}
	return status, nil
}

// WebhookEvent is the subset of a gateway webhook the checkout engine
// cares about.
type WebhookEvent struct {
	SessionRef string
	PurchaseID string
	Paid       bool
}

// ParseWebhookEvent verifies the webhook signature and extracts completed
// checkout sessions. Events of other types return (nil, nil).
func ParseWebhookEvent(payload []byte, signature, secret string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, secret)
	if err != nil {
		return nil, fmt.Errorf("verify webhook signature: %w", err)
	}

	if event.Type != "checkout.session.completed" {
		return nil, nil
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decode webhook session: %w", err)
	}

	return &WebhookEvent{
		SessionRef: sess.ID,
		PurchaseID: sess.Metadata["purchase_id"],
		Paid:       sess.PaymentStatus == stripe.CheckoutSessionPaymentStatusPaid,
	}, nil
}
