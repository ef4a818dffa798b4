package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prperemyshlev/media-favourites/internal/dto"
	"github.com/prperemyshlev/media-favourites/internal/service"
	"go.uber.org/zap"
)

// AuthHandler handles account and authentication requests
type AuthHandler struct {
	authService service.AuthService
	logger      *zap.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Signup handles account creation
// @Summary Create an account
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.SignupRequest true "Signup request"
// @Success 201 {object} dto.SignupResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c *gin.Context) {
	var req dto.SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	response, err := h.authService.Signup(c.Request.Context(), &req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, response)
}

// Login handles user login
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login request"
// @Success 200 {object} domain.TokenPair
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	tokens, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, tokens)
}

// VerifyEmail consumes the verification token from the emailed link
// @Summary Verify email address
// @Tags auth
// @Produce json
// @Param token query string true "Verification token"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /auth/verify-email [get]
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	if err := h.authService.VerifyEmail(c.Request.Context(), c.Query("token")); err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Email verified successfully"})
}

// CheckVerificationStatus lets a client poll until the email is verified
// @Summary Check verification status
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.EmailRequest true "Account email"
// @Success 200 {object} dto.VerificationStatusResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/check-verification-status [post]
func (h *AuthHandler) CheckVerificationStatus(c *gin.Context) {
	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	status, err := h.authService.CheckVerificationStatus(c.Request.Context(), req.Email)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, status)
}

// InitiatePasswordReset emails a password reset link
// @Summary Start password reset
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.EmailRequest true "Account email"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /auth/initiate-password-reset [post]
func (h *AuthHandler) InitiatePasswordReset(c *gin.Context) {
	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	if err := h.authService.InitiatePasswordReset(c.Request.Context(), req.Email); err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Password reset email sent"})
}

// CompletePasswordReset sets a new password using the emailed token
// @Summary Complete password reset
// @Tags auth
// @Accept json
// @Produce json
// @Param request body dto.CompletePasswordResetRequest true "Reset token and new password"
// @Success 200 {object} dto.SuccessResponse
// @Failure 400 {object} dto.ErrorResponse
// @Router /auth/complete-password-reset [post]
func (h *AuthHandler) CompletePasswordReset(c *gin.Context) {
	var req dto.CompletePasswordResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	if err := h.authService.CompletePasswordReset(c.Request.Context(), &req); err != nil {
		writeError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.SuccessResponse{Message: "Password has been reset"})
}
