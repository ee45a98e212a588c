package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// WebhookEvents counts billing webhook deliveries by event type and outcome.
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "saasfox",
		Subsystem: "billing",
		Name:      "webhook_events_total",
		Help:      "Billing webhook deliveries by event type and outcome.",
	}, []string{"type", "outcome"})

	CheckoutSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "saasfox",
		Subsystem: "billing",
		Name:      "checkout_sessions_total",
		Help:      "Checkout sessions created, by gateway mode and result.",
	}, []string{"mode", "result"})

	RoleChanges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "saasfox",
		Subsystem: "admin",
		Name:      "role_changes_total",
		Help:      "Role change attempts by requested role and result.",
	}, []string{"role", "result"})

	AuthEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "saasfox",
		Subsystem: "auth",
		Name:      "events_total",
		Help:      "Sign-up, sign-in and sign-out events.",
	}, []string{"event"})
)

// Handler exposes the default registry in the Prometheus text format.
func Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
