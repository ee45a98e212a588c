package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/sujit-baniya/flash"
)

// HandleFlashRateLimit is the limiter response for form posts: it sets a
// flash error and sends the browser back to the form.
func HandleFlashRateLimit(c *fiber.Ctx) error {
	fm := fiber.Map{
		"type":    "error",
		"message": "Too many attempts. Please wait a minute and try again.",
	}
	flash.WithError(c, fm)
	return c.Redirect(c.Path(), fiber.StatusSeeOther)
}
