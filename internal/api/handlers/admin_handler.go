package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"artmarket/internal/domain"
	"artmarket/internal/services"
	"artmarket/pkg/logger"
)

// AdminHandler exposes the administrative surface: role assignment, forced
// account deletion, the manual reconciler trigger, and dashboard stats.
type AdminHandler struct {
	accounts   *services.AccountService
	reconciler *services.ExpirationReconciler
	log        logger.Logger
}

func NewAdminHandler(accounts *services.AccountService,
	reconciler *services.ExpirationReconciler, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		accounts:   accounts,
		reconciler: reconciler,
		log:        log,
	}
}

type setRoleRequest struct {
	Role string `json:"role"`
}

func (h *AdminHandler) SetRole(c echo.Context) error {
	var req setRoleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	role, ok := domain.ParseRole(req.Role)
	if !ok {
		return respondError(c, h.log, &domain.ValidationError{Field: "role", Reason: "unknown role"})
	}

	if err := h.accounts.SetRole(c.Request().Context(), c.Param("id"), role); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AdminHandler) DeleteUser(c echo.Context) error {
	force := c.QueryParam("force") == "true"
	if err := h.accounts.DeleteAccount(c.Request().Context(), c.Param("id"), force); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Reconcile runs one sweep immediately, bypassing the leader gate.
func (h *AdminHandler) Reconcile(c echo.Context) error {
	transitioned, err := h.reconciler.Sweep(c.Request().Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"transitioned": transitioned})
}

func (h *AdminHandler) Stats(c echo.Context) error {
	stats, err := h.accounts.Stats(c.Request().Context())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, stats)
}
