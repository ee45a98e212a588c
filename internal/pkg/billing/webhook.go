package billing

import (
	"context"
	"errors"
	"fmt"

	fiberlog "github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/ManuelReschke/SaaSFox/app/models"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/apperrors"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/metrics"
)

// HandleWebhook verifies, records and applies one processor delivery.
//
// Invalid signatures and undecodable bodies yield an InvalidInput error and
// leave no trace. Any other error means the event was recorded but not
// applied; it stays unprocessed so the processor's redelivery retries it.
func (s *Service) HandleWebhook(ctx context.Context, payload []byte, signature string) (*WebhookResult, error) {
	if s.Mock() {
		metrics.WebhookEvents.WithLabelValues("unknown", OutcomeMock).Inc()
		return &WebhookResult{Received: true, Outcome: OutcomeMock}, nil
	}

	event, err := s.gateway.ConstructEvent(payload, signature)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", OutcomeRejected).Inc()
		if errors.Is(err, ErrInvalidSignature) {
			return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid_signature", err)
		}
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "invalid_payload", err)
	}

	created := event.Created
	if created.IsZero() {
		created = s.now().UTC()
	}
	isNew, stored, err := s.events.CreateWebhookEventIfNotExists(&models.BillingWebhookEvent{
		Provider:        providerStripe,
		ProviderEventID: event.ID,
		EventType:       event.Type,
		PayloadJSON:     string(payload),
		EventCreatedAt:  &created,
	})
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(event.Type, OutcomeFailed).Inc()
		return nil, fmt.Errorf("record webhook event %s: %w", event.ID, err)
	}
	if !isNew && stored.IsProcessed() {
		metrics.WebhookEvents.WithLabelValues(event.Type, OutcomeDuplicate).Inc()
		return &WebhookResult{Received: true, Duplicate: true, Outcome: OutcomeDuplicate}, nil
	}

	event.Created = created
	outcome, err := s.apply(event)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(event.Type, OutcomeFailed).Inc()
		if recErr := s.events.RecordWebhookFailure(stored.ID, err.Error()); recErr != nil {
			fiberlog.Errorf("billing: failed to record failure of event %s: %v", event.ID, recErr)
		}
		return nil, fmt.Errorf("apply webhook event %s: %w", event.ID, err)
	}

	if err := s.events.MarkWebhookProcessed(stored.ID); err != nil {
		metrics.WebhookEvents.WithLabelValues(event.Type, OutcomeFailed).Inc()
		return nil, fmt.Errorf("mark webhook event %s processed: %w", event.ID, err)
	}

	metrics.WebhookEvents.WithLabelValues(event.Type, outcome).Inc()
	return &WebhookResult{
		Received: true,
		Ignored:  outcome == OutcomeIgnored || outcome == OutcomeUnlinked,
		Outcome:  outcome,
	}, nil
}

// apply maps the event onto a status and writes it to the customer's user.
func (s *Service) apply(event Event) (string, error) {
	var status string
	switch event.Type {
	case EventCheckoutCompleted:
		status = models.SubscriptionActive
	case EventSubscriptionDeleted:
		status = models.SubscriptionCanceled
	case EventInvoicePaymentFailed:
		status = models.SubscriptionPastDue
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		mapped, ok := StatusFromStripe(event.SubscriptionStatus)
		if !ok {
			fiberlog.Infof("billing: ignoring %s with subscription status %q", event.Type, event.SubscriptionStatus)
			return OutcomeIgnored, nil
		}
		status = mapped
	default:
		fiberlog.Infof("billing: ignoring unhandled event type %s (%s)", event.Type, event.ID)
		return OutcomeIgnored, nil
	}

	if event.CustomerID == "" {
		fiberlog.Warnf("billing: event %s (%s) carries no customer", event.ID, event.Type)
		return OutcomeUnlinked, nil
	}

	user, err := s.userForEvent(event)
	if err != nil {
		return "", err
	}
	if user == nil {
		fiberlog.Warnf("billing: no user linked to customer %s for event %s", event.CustomerID, event.ID)
		return OutcomeUnlinked, nil
	}

	applied, err := s.users.ApplySubscriptionStatus(user.ID, status, event.Created)
	if err != nil {
		return "", err
	}
	if !applied {
		fiberlog.Infof("billing: event %s for user %d is older than the applied status, skipping", event.ID, user.ID)
		return OutcomeStale, nil
	}

	fiberlog.Infow("billing: subscription status updated", "user_id", user.ID, "status", status, "event", event.ID)
	return OutcomeApplied, nil
}

// userForEvent resolves the target by customer reference. Checkout completion
// may arrive before the customer link is visible, so it falls back to the
// user named in the session metadata and links the customer first.
func (s *Service) userForEvent(event Event) (*models.User, error) {
	user, err := s.users.GetByCustomerID(event.CustomerID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if event.Type != EventCheckoutCompleted || event.UserID == 0 {
		return nil, nil
	}

	if _, err := s.users.SetCustomerIDIfEmpty(event.UserID, event.CustomerID); err != nil {
		return nil, err
	}
	user, err = s.users.GetByID(event.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if user.CustomerID() != event.CustomerID {
		fiberlog.Warnf("billing: user %d is linked to %s, not %s", user.ID, user.CustomerID(), event.CustomerID)
		return nil, nil
	}
	return user, nil
}
