package billing

import "time"

const providerStripe = "stripe"

// Stripe event types the service reacts to.
const (
	EventCheckoutCompleted    = "checkout.session.completed"
	EventSubscriptionCreated  = "customer.subscription.created"
	EventSubscriptionUpdated  = "customer.subscription.updated"
	EventSubscriptionDeleted  = "customer.subscription.deleted"
	EventInvoicePaymentFailed = "invoice.payment_failed"
)

// Webhook outcomes, also used as metric labels.
const (
	OutcomeApplied   = "applied"
	OutcomeStale     = "stale"
	OutcomeIgnored   = "ignored"
	OutcomeUnlinked  = "unlinked"
	OutcomeDuplicate = "duplicate"
	OutcomeMock      = "mock"
	OutcomeRejected  = "rejected"
	OutcomeFailed    = "failed"
)

// CheckoutResult is the redirect target of a new checkout session.
type CheckoutResult struct {
	URL string `json:"url"`
}

// PortalResult is the redirect target of a billing portal session.
type PortalResult struct {
	URL string `json:"url"`
}

// SubscriptionStatus is the read model of a user's subscription. Plan is
// nil unless the subscription is active.
type SubscriptionStatus struct {
	Status string  `json:"status"`
	Plan   *string `json:"plan"`
}

// WebhookResult is the acknowledgement returned to the payment processor.
type WebhookResult struct {
	Received  bool   `json:"received"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
}

// Event is a verified processor event reduced to what status sync needs.
type Event struct {
	ID      string
	Type    string
	Created time.Time
	// CustomerID is the processor's customer reference carried by the event object.
	CustomerID string
	// UserID is the local user named in checkout metadata, zero if absent.
	UserID uint
	// SubscriptionStatus is the raw processor status on subscription events.
	SubscriptionStatus string
}

// CustomerParams describes a processor customer to create for a user.
type CustomerParams struct {
	UserID uint
	Email  string
	Name   string
}

// CheckoutParams describes a subscription checkout session.
type CheckoutParams struct {
	UserID     uint
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
}
