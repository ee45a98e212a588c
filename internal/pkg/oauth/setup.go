package oauth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/github"
	"github.com/markbates/goth/providers/google"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/ManuelReschke/SaaSFox/internal/pkg/env"
)

// Providers lists the OAuth providers offered on the login page.
var Providers = []string{"google", "github"}

// Setup registers the Goth providers that have credentials configured and
// keeps OAuth state in storage. A nil storage keeps state in memory.
// It is safe to call multiple times; providers are re-registered.
func Setup(storage fiber.Storage) {
	base := env.PublicBaseURL()

	var providers []goth.Provider
	if key := env.GetEnv("GOOGLE_KEY", ""); key != "" {
		providers = append(providers, google.New(
			key,
			env.GetEnv("GOOGLE_SECRET", ""),
			base+"/auth/google/callback",
			"email", "profile",
		))
	}
	if key := env.GetEnv("GITHUB_KEY", ""); key != "" {
		providers = append(providers, github.New(
			key,
			env.GetEnv("GITHUB_SECRET", ""),
			base+"/auth/github/callback",
			"read:user", "user:email",
		))
	}
	goth.ClearProviders()
	goth.UseProviders(providers...)

	gothfiber.SessionStore = session.New(session.Config{
		Storage:        storage,
		KeyLookup:      "cookie:" + gothic.SessionName,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		CookieSecure:   !env.IsDev(),
		Expiration:     72 * time.Hour,
	})
}

// Enabled reports whether provider has credentials configured.
func Enabled(provider string) bool {
	_, err := goth.GetProvider(provider)
	return err == nil
}
