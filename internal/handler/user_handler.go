package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/TPI-Manager/TPI-Manager/internal/models"
	appErrors "github.com/TPI-Manager/TPI-Manager/pkg/errors"
	"github.com/TPI-Manager/TPI-Manager/pkg/response"
)

type userLister interface {
	ListByRole(ctx context.Context, role models.UserRole) ([]models.User, error)
}

// UserHandler serves the admin account directory.
type UserHandler struct {
	repo userLister
}

// NewUserHandler creates a new handler.
func NewUserHandler(repo userLister) *UserHandler {
	return &UserHandler{repo: repo}
}

// ListByRole godoc
// @Summary List accounts of one role
// @Tags Users
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /users/{role} [get]
// @Security BearerAuth
func (h *UserHandler) ListByRole(c *gin.Context) {
	role := c.Param("role")
	if !models.ValidRole(role) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown role"))
		return
	}

	users, err := h.repo.ListByRole(c.Request.Context(), models.UserRole(role))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "failed to list accounts"))
		return
	}

	infos := make([]models.UserInfo, 0, len(users))
	for i := range users {
		infos = append(infos, users[i].Public())
	}
	response.JSON(c, http.StatusOK, infos, nil)
}
