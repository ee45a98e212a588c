// Package views renders the HTML pages as templ components.
package views

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/SaaSFox/internal/pkg/usercontext"
)

// PageData is shared by every page: identity, pending flash and CSRF token.
type PageData struct {
	Title string
	User  usercontext.UserContext
	Flash fiber.Map
	CSRF  string
	Dev   bool
}

// html writes markup to w, remembering the first write error.
type html struct {
	ctx context.Context
	w   io.Writer
	err error
}

func (h *html) raw(s string) {
	if h.err == nil {
		_, h.err = io.WriteString(h.w, s)
	}
}

func (h *html) rawf(format string, args ...interface{}) {
	h.raw(fmt.Sprintf(format, args...))
}

func (h *html) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *html) child(c templ.Component) {
	if h.err == nil && c != nil {
		h.err = c.Render(h.ctx, h.w)
	}
}

func (h *html) csrfField(token string) {
	h.rawf(`<input type="hidden" name="_csrf" value="%s">`, templ.EscapeString(token))
}

func component(fn func(h *html)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &html{ctx: ctx, w: w}
		fn(h)
		return h.err
	})
}

// Layout wraps body in the document shell with navigation and flash message.
func Layout(p PageData, body templ.Component) templ.Component {
	return component(func(h *html) {
		h.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		h.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>SaaSFox`)
		h.text(p.Title)
		h.raw(`</title><link rel="stylesheet" href="/css/app.css"></head><body>`)

		h.raw(`<nav class="navbar"><a class="brand" href="/">SaaSFox</a><a href="/pricing">Pricing</a>`)
		if p.User.IsLoggedIn {
			h.raw(`<a href="/dashboard">Dashboard</a><a href="/profile">`)
			h.text(p.User.Username)
			h.raw(`</a>`)
			if p.User.IsAdmin {
				h.raw(`<a href="/admin">Admin</a>`)
			}
			h.raw(`<a href="/logout">Logout</a>`)
		} else {
			h.raw(`<a href="/login">Login</a><a href="/register">Register</a>`)
		}
		if p.Dev {
			h.raw(`<span class="badge">dev</span>`)
		}
		h.raw(`</nav><main class="container">`)

		if msg, ok := p.Flash["message"].(string); ok && msg != "" {
			kind, _ := p.Flash["type"].(string)
			if kind == "" {
				kind = "info"
			}
			h.rawf(`<div class="alert alert-%s" role="alert">`, templ.EscapeString(kind))
			h.text(msg)
			h.raw(`</div>`)
		}

		h.child(body)
		h.raw(`</main><footer class="footer">SaaSFox</footer></body></html>`)
	})
}
