package billing

import (
	"errors"
	"strings"

	"github.com/ManuelReschke/SaaSFox/internal/pkg/env"
)

const defaultPriceID = "price_default"

// Config holds the Stripe settings read from the environment.
type Config struct {
	SecretKey      string
	WebhookSecret  string
	DefaultPriceID string
	BaseURL        string
	MockPayments   bool
	// AllowMock permits mock mode; it is only true in development.
	AllowMock bool
}

// ConfigFromEnv reads STRIPE_* and MOCK_PAYMENTS.
func ConfigFromEnv() Config {
	return Config{
		SecretKey:      strings.TrimSpace(env.GetEnv("STRIPE_SECRET_KEY", "")),
		WebhookSecret:  strings.TrimSpace(env.GetEnv("STRIPE_WEBHOOK_SECRET", "")),
		DefaultPriceID: env.GetEnv("STRIPE_PRICE_ID", defaultPriceID),
		BaseURL:        env.PublicBaseURL(),
		MockPayments:   env.GetEnvBool("MOCK_PAYMENTS", false),
		AllowMock:      env.IsDev(),
	}
}

// Mock reports whether the gateway runs without the payment processor.
func (c Config) Mock() bool {
	return c.MockPayments || c.SecretKey == ""
}

func (c Config) Validate() error {
	if c.Mock() {
		if !c.AllowMock {
			return errors.New("billing: mock payments are only allowed with APP_ENV=dev; set STRIPE_SECRET_KEY")
		}
		return nil
	}
	if c.WebhookSecret == "" {
		return errors.New("billing: STRIPE_WEBHOOK_SECRET is required when STRIPE_SECRET_KEY is set")
	}
	return nil
}

func (c Config) priceOrDefault(priceID string) string {
	if p := strings.TrimSpace(priceID); p != "" {
		return p
	}
	if c.DefaultPriceID != "" {
		return c.DefaultPriceID
	}
	return defaultPriceID
}

func (c Config) successURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/dashboard?success=true"
}

func (c Config) cancelURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/pricing?canceled=true"
}

func (c Config) portalReturnURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/dashboard"
}
