package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/media-favourites/internal/service"
	"go.uber.org/zap"
)

// UserHandler serves the authenticated user's own data
type UserHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(authService service.AuthService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		authService: authService,
		logger:      logger,
	}
}

// Profile returns the current user's profile
// @Summary Get current user profile
// @Tags user
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.ProfileResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /user/profile [get]
func (h *UserHandler) Profile(c *gin.Context) {
	profile, err := h.authService.GetProfile(c.Request.Context(), UserID(c))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, profile)
}
