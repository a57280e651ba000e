package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/revmak/marketplace-api/internal/api/dto"
	"github.com/revmak/marketplace-api/internal/auth"
	"github.com/revmak/marketplace-api/internal/domain"
	"github.com/revmak/marketplace-api/internal/service"
	apperrors "github.com/revmak/marketplace-api/pkg/util"
)

// AccountsHandler exposes admin account management.
type AccountsHandler struct {
	accounts *service.AccountService
}

// NewAccountsHandler constructs handler.
func NewAccountsHandler(accounts *service.AccountService) *AccountsHandler {
	return &AccountsHandler{accounts: accounts}
}

// UpdateStatus handles PATCH /api/users/:id/status.
func (h *AccountsHandler) UpdateStatus(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("")
	}

	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil || req.Active == nil {
		return apperrors.NewValidationError("active is required", map[string]any{"field": "active"})
	}

	account, err := h.accounts.SetActive(c.UserContext(), identity.AccountID, accountIDParam(c), *req.Active)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}

// UpdateRole handles PATCH /api/users/:id/role.
func (h *AccountsHandler) UpdateRole(c *fiber.Ctx) error {
	identity, ok := auth.IdentityFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("")
	}

	var req dto.UpdateRoleRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	role, err := domain.ParseRole(req.Role)
	if err != nil {
		return apperrors.NewValidationError("unknown role", map[string]any{"role": req.Role, "allowed": domain.Roles})
	}

	account, err := h.accounts.ChangeRole(c.UserContext(), identity.AccountID, accountIDParam(c), role)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewAccountResponse(account)})
}

// accountIDParam copies the :id param out of the request buffer, which fiber
// reuses once the handler returns.
func accountIDParam(c *fiber.Ctx) string {
	return utils.CopyString(c.Params("id"))
}
