package billing

import (
	"strings"

	"github.com/ManuelReschke/SaaSFox/app/models"
)

// PlanPro is the only paid plan.
const PlanPro = "pro"

// PlanFor derives the plan from a stored status: pro iff active.
func PlanFor(status string) *string {
	if status != models.SubscriptionActive {
		return nil
	}
	plan := PlanPro
	return &plan
}

// StatusFromStripe maps a Stripe subscription status onto a local status.
// The second return is false for statuses that should not change local state.
func StatusFromStripe(status string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active":
		return models.SubscriptionActive, true
	case "trialing":
		return models.SubscriptionTrialing, true
	case "past_due", "unpaid":
		return models.SubscriptionPastDue, true
	case "canceled", "incomplete_expired":
		return models.SubscriptionCanceled, true
	default:
		return "", false
	}
}
