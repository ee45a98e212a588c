package views

import (
	"github.com/a-h/templ"

	"github.com/ManuelReschke/SaaSFox/app/models"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/billing"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/utils"
)

func Dashboard(p PageData, status *billing.SubscriptionStatus, verified bool) templ.Component {
	return Layout(p, component(func(h *html) {
		h.raw(`<section class="dashboard"><h1>Welcome, `)
		h.text(p.User.Username)
		h.raw(`</h1>`)
		if !verified {
			h.raw(`<p class="alert alert-warning">Please confirm your email address. Check your inbox for the activation link.</p>`)
		}

		h.raw(`<div class="card"><h2>Subscription</h2><p>Status: <strong>`)
		h.text(status.Status)
		h.raw(`</strong></p>`)
		if status.Plan != nil {
			h.raw(`<p>Plan: `)
			h.text(*status.Plan)
			h.raw(`</p>`)
			billingForm(h, p.CSRF, "/billing/portal", "Manage billing")
		} else {
			billingForm(h, p.CSRF, "/billing/checkout", "Upgrade to Pro")
		}
		h.raw(`</div></section>`)
	}))
}

func Profile(p PageData, user *models.User) templ.Component {
	return Layout(p, component(func(h *html) {
		h.raw(`<section class="profile"><h1>Profile</h1>`)
		h.rawf(`<img class="avatar" src="%s" alt="">`, templ.EscapeString(utils.AvatarURL(user.Image, user.Email, 128)))
		h.raw(`<form method="post" action="/profile">`)
		h.csrfField(p.CSRF)
		h.rawf(`<label>Name <input type="text" name="name" maxlength="100" value="%s" required></label>`, templ.EscapeString(user.Name))
		h.rawf(`<label>Image URL <input type="url" name="image" value="%s"></label>`, templ.EscapeString(user.Image))
		h.raw(`<label>Email <input type="email" value="`)
		h.text(user.Email)
		h.raw(`" disabled></label><button class="btn" type="submit">Save</button></form></section>`)
	}))
}
