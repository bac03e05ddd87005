package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"artmarket/internal/domain"
	"artmarket/internal/services"
	"artmarket/pkg/logger"
)

type UserHandler struct {
	accounts *services.AccountService
	log      logger.Logger
}

func NewUserHandler(accounts *services.AccountService, log logger.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, log: log}
}

type userResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

func toUserResponse(user *domain.User) userResponse {
	return userResponse{
		ID:          user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Role:        string(user.Role),
	}
}

func (h *UserHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, toUserResponse(currentUser(c)))
}

// DeleteMe runs the deletion cascade for the caller's own account. Never
// forced: active bid-upon listings block it with a 409.
func (h *UserHandler) DeleteMe(c echo.Context) error {
	user := currentUser(c)
	if err := h.accounts.DeleteAccount(c.Request().Context(), user.ID, false); err != nil {
		return respondError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
