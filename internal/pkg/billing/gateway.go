package billing

import (
	"context"
	"errors"
)

var (
	// ErrInvalidSignature is returned when a webhook is unsigned or the signature does not verify.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrInvalidPayload is returned when a verified webhook body cannot be decoded.
	ErrInvalidPayload = errors.New("invalid webhook payload")
)

// Gateway is the payment processor as seen by the billing service.
type Gateway interface {
	CreateCustomer(ctx context.Context, params CustomerParams) (string, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
	// ConstructEvent verifies the signature header against payload and decodes the event.
	ConstructEvent(payload []byte, signature string) (Event, error)
}

// NewGateway returns the mock gateway in mock mode and the Stripe gateway otherwise.
func NewGateway(cfg Config) Gateway {
	if cfg.Mock() {
		return mockGateway{}
	}
	return newStripeGateway(cfg.SecretKey, cfg.WebhookSecret)
}
