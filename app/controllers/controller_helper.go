package controllers

import (
	"strconv"

	"github.com/a-h/templ"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/sujit-baniya/flash"

	"github.com/ManuelReschke/SaaSFox/internal/pkg/apperrors"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/env"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/usercontext"
	"github.com/ManuelReschke/SaaSFox/views"
)

var validate = validator.New()

// render writes a templ component as the response.
func render(c *fiber.Ctx, component templ.Component) error {
	handler := adaptor.HTTPHandler(templ.Handler(component))
	return handler(c)
}

// pageData collects identity, flash and CSRF token for a page.
func pageData(c *fiber.Ctx, title string) views.PageData {
	csrfToken, _ := c.Locals("csrf").(string)
	return views.PageData{
		Title: title,
		User:  usercontext.GetUserContext(c),
		Flash: flash.Get(c),
		CSRF:  csrfToken,
		Dev:   env.IsDev(),
	}
}

func redirectWithError(c *fiber.Ctx, path, message string) error {
	fm := fiber.Map{
		"type":    "error",
		"message": message,
	}
	flash.WithError(c, fm)
	return c.Redirect(path, fiber.StatusSeeOther)
}

func redirectWithSuccess(c *fiber.Ctx, path, message string) error {
	fm := fiber.Map{
		"type":    "success",
		"message": message,
	}
	flash.WithSuccess(c, fm)
	return c.Redirect(path, fiber.StatusSeeOther)
}

// paramID parses a positive numeric route parameter.
func paramID(c *fiber.Ctx, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Params(name), 10, 32)
	if err != nil || id == 0 {
		return 0, apperrors.InvalidInput("Invalid " + name)
	}
	return uint(id), nil
}
