package controllers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/SaaSFox/internal/pkg/apperrors"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/roles"
	"github.com/ManuelReschke/SaaSFox/internal/pkg/statistics"
	"github.com/ManuelReschke/SaaSFox/views"
)

// RoleManager performs privileged user administration for the caller in ctx.
type RoleManager interface {
	SetRole(ctx context.Context, targetID uint, role string) (*roles.UserSummary, error)
	ListUsers(ctx context.Context, offset, limit int) (*roles.UserPage, error)
	GetUser(ctx context.Context, id uint) (*roles.UserSummary, error)
}

// Overview provides the cached system statistics.
type Overview interface {
	Get(ctx context.Context) (statistics.Data, error)
	Invalidate()
}

// AdminController handles the user administration page and API.
type AdminController struct {
	roles RoleManager
	stats Overview
}

// NewAdminController creates a new admin controller
func NewAdminController(manager RoleManager, stats Overview) *AdminController {
	return &AdminController{roles: manager, stats: stats}
}

type setRoleRequest struct {
	Role string `json:"role" form:"role"`
}

// HandleUsers renders the user management page
func (ac *AdminController) HandleUsers(c *fiber.Ctx) error {
	offset, _ := strconv.Atoi(c.Query("offset", "0"))
	page, err := ac.roles.ListUsers(c.UserContext(), offset, roles.DefaultPageSize)
	if err != nil {
		return err
	}
	stats, err := ac.stats.Get(c.UserContext())
	if err != nil {
		return err
	}
	return render(c, views.AdminUsers(pageData(c, " | User Management"), page, stats))
}

// HandleSetRole handles the role form of the user management page
func (ac *AdminController) HandleSetRole(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return redirectWithError(c, "/admin", apperrors.Message(err))
	}
	if _, err := ac.roles.SetRole(c.UserContext(), id, c.FormValue("role")); err != nil {
		return redirectWithError(c, "/admin", apperrors.Message(err))
	}
	ac.stats.Invalidate()
	return redirectWithSuccess(c, "/admin", "Role updated")
}

// APIListUsers handles GET /api/admin/users?offset=&limit=
func (ac *AdminController) APIListUsers(c *fiber.Ctx) error {
	page, err := ac.roles.ListUsers(c.UserContext(), c.QueryInt("offset", 0), c.QueryInt("limit", roles.DefaultPageSize))
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// APISetRole handles PATCH /api/admin/users/:id/role
func (ac *AdminController) APISetRole(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	var req setRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.InvalidInput("Invalid request body")
	}
	user, err := ac.roles.SetRole(c.UserContext(), id, req.Role)
	if err != nil {
		return err
	}
	ac.stats.Invalidate()
	return c.JSON(user)
}

// APIStats handles GET /api/admin/stats
func (ac *AdminController) APIStats(c *fiber.Ctx) error {
	stats, err := ac.stats.Get(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}
