package views

import (
	"strconv"

	"github.com/a-h/templ"

	"github.com/ManuelReschke/SaaSFox/app/models"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/roles"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/statistics"
)

// AdminUsers renders the system overview and the user table with a role
// selector per row.
func AdminUsers(p PageData, page *roles.UserPage, stats statistics.Data) templ.Component {
	return Layout(p, component(func(h *html) {
		h.raw(`<section class="admin"><h1>Users</h1><div class="stats">`)
		for _, s := range []struct {
			label string
			value int64
		}{
			{"Total Users", stats.TotalUsers},
			{"Admins", stats.Admins},
			{"Pro Subscribers", stats.ProSubscribers},
		} {
			h.raw(`<div class="card"><p class="muted">`)
			h.text(s.label)
			h.raw(`</p><p class="stat">`)
			h.text(strconv.FormatInt(s.value, 10))
			h.raw(`</p></div>`)
		}
		h.raw(`</div><p class="muted">`)
		h.text(strconv.FormatInt(page.Total, 10))
		h.raw(` total</p><table class="table"><thead><tr><th>ID</th><th>Name</th><th>Email</th>`)
		h.raw(`<th>Subscription</th><th>Verified</th><th>Role</th></tr></thead><tbody>`)

		for _, u := range page.Users {
			id := strconv.FormatUint(uint64(u.ID), 10)
			h.raw(`<tr><td>`)
			h.text(id)
			h.raw(`</td><td>`)
			h.text(u.Name)
			h.raw(`</td><td>`)
			h.text(u.Email)
			h.raw(`</td><td>`)
			h.text(u.SubscriptionStatus)
			h.raw(`</td><td>`)
			if u.EmailVerified {
				h.raw(`yes`)
			} else {
				h.raw(`no`)
			}
			h.raw(`</td><td>`)
			if u.ID == p.User.UserID {
				h.text(u.Role)
			} else {
				h.rawf(`<form method="post" action="/admin/users/%s/role">`, id)
				h.csrfField(p.CSRF)
				h.raw(`<select name="role">`)
				for _, r := range []string{models.ROLE_USER, models.ROLE_ADMIN} {
					selected := ""
					if r == u.Role {
						selected = " selected"
					}
					h.rawf(`<option value="%s"%s>%s</option>`, r, selected, r)
				}
				h.raw(`</select><button class="btn btn-sm" type="submit">Save</button></form>`)
			}
			h.raw(`</td></tr>`)
		}
		h.raw(`</tbody></table>`)

		if page.Offset > 0 {
			prev := page.Offset - page.Limit
			if prev < 0 {
				prev = 0
			}
			h.rawf(`<a href="/admin?offset=%d">Previous</a> `, prev)
		}
		if int64(page.Offset+page.Limit) < page.Total {
			h.rawf(`<a href="/admin?offset=%d">Next</a>`, page.Offset+page.Limit)
		}
		h.raw(`</section>`)
	}))
}
