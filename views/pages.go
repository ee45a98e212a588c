package views

import (
	"strings"

	"github.com/a-h/templ"

	"github.com/ManuelReschke/SaaSFox/internal/pkg/billing"
)

func Home(p PageData) templ.Component {
	return Layout(p, component(func(h *html) {
		h.raw(`<section class="hero"><h1>Ship your SaaS this weekend</h1>`)
		h.raw(`<p>Accounts, roles and subscriptions are already wired up.</p>`)
		if p.User.IsLoggedIn {
			h.raw(`<a class="btn" href="/dashboard">Go to dashboard</a>`)
		} else {
			h.raw(`<a class="btn" href="/register">Get started</a>`)
		}
		h.raw(`</section>`)
	}))
}

// Pricing lists the plan. status is nil for anonymous visitors.
func Pricing(p PageData, status *billing.SubscriptionStatus) templ.Component {
	return Layout(p, component(func(h *html) {
		h.raw(`<section class="pricing"><h1>Pricing</h1><div class="card"><h2>Pro</h2>`)
		h.raw(`<p>Everything included. Cancel anytime.</p>`)
		switch {
		case !p.User.IsLoggedIn:
			h.raw(`<a class="btn" href="/register">Sign up to subscribe</a>`)
		case status != nil && status.Plan != nil:
			h.raw(`<p class="muted">You are on the Pro plan.</p>`)
			billingForm(h, p.CSRF, "/billing/portal", "Manage billing")
		default:
			billingForm(h, p.CSRF, "/billing/checkout", "Subscribe")
		}
		h.raw(`</div></section>`)
	}))
}

func billingForm(h *html, csrf, action, label string) {
	h.rawf(`<form method="post" action="%s">`, action)
	h.csrfField(csrf)
	h.rawf(`<button class="btn" type="submit">%s</button></form>`, templ.EscapeString(label))
}

func Login(p PageData, providers []string) templ.Component {
	return Layout(p, component(func(h *html) {
		h.raw(`<section class="auth"><h1>Login</h1><form method="post" action="/login">`)
		h.csrfField(p.CSRF)
		h.raw(`<label>Email <input type="email" name="email" required></label>`)
		h.raw(`<label>Password <input type="password" name="password" required></label>`)
		h.raw(`<button class="btn" type="submit">Login</button></form>`)
		for _, provider := range providers {
			h.rawf(`<a class="btn btn-outline" href="/auth/%s">Continue with %s</a>`,
				templ.EscapeString(provider), templ.EscapeString(strings.ToUpper(provider[:1])+provider[1:]))
		}
		h.raw(`<p>No account yet? <a href="/register">Register</a></p></section>`)
	}))
}

// Register renders the sign-up form. The "website" field is a honeypot.
func Register(p PageData, captchaSiteKey string) templ.Component {
	return Layout(p, component(func(h *html) {
		h.raw(`<section class="auth"><h1>Register</h1><form method="post" action="/register">`)
		h.csrfField(p.CSRF)
		h.raw(`<label>Name <input type="text" name="name" maxlength="100" required></label>`)
		h.raw(`<label>Email <input type="email" name="email" required></label>`)
		h.raw(`<label>Password <input type="password" name="password" minlength="8" required></label>`)
		h.raw(`<div class="hp" aria-hidden="true"><input type="text" name="website" tabindex="-1" autocomplete="off"></div>`)
		if captchaSiteKey != "" {
			h.rawf(`<div class="h-captcha" data-sitekey="%s"></div>`, templ.EscapeString(captchaSiteKey))
			h.raw(`<script src="https://js.hcaptcha.com/1/api.js" async defer></script>`)
		}
		h.raw(`<button class="btn" type="submit">Create account</button></form></section>`)
	}))
}
