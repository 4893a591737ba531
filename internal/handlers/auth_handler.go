package handlers

import (
	"context"
	"net/http"

	"golang-food-checkout/internal/middleware"
	"golang-food-checkout/internal/services"
	"golang-food-checkout/pkg/auth"

	"github.com/gin-gonic/gin"
)

// AuthServiceInterface is implemented by services.AuthService.
type AuthServiceInterface interface {
	SendOTP(ctx context.Context, phone string) error
	VerifyOTP(ctx context.Context, phone, code string) (*services.LoginResult, error)
	Refresh(refreshToken string) (*auth.TokenPair, error)
	Logout(ctx context.Context, userID string) error
}

type SendOTPRequest struct {
	Phone string `json:"phone" binding:"required"`
}

type VerifyOTPRequest struct {
	Phone   string `json:"phone" binding:"required"`
	OTPCode string `json:"otp_code" binding:"required"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type AuthHandler struct {
	authService AuthServiceInterface
}

func NewAuthHandler(authService AuthServiceInterface) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) RegisterRoutes(router *gin.RouterGroup, authMiddleware *middleware.AuthMiddleware) {
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/otp/send", h.SendOTP)
		authGroup.POST("/otp/verify", h.VerifyOTP)
		authGroup.POST("/refresh", h.RefreshToken)
		authGroup.POST("/logout", authMiddleware.AuthRequired(), h.Logout)
	}
}

// SendOTP godoc
// @Summary Send a login code by SMS
// @Tags auth
// @Accept json
// @Produce json
// @Param body body SendOTPRequest true "Phone"
// @Success 200 {object} MessageResponse
// @Router /auth/otp/send [post]
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req SendOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if err := h.authService.SendOTP(c.Request.Context(), req.Phone); err != nil {
		respondError(c, "Failed to send OTP", err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "OTP sent successfully"})
}

// VerifyOTP godoc
// @Summary Exchange a login code for tokens
// @Tags auth
// @Accept json
// @Produce json
// @Param body body VerifyOTPRequest true "Phone and code"
// @Success 200 {object} services.LoginResult
// @Failure 422 {object} ErrorResponse
// @Router /auth/otp/verify [post]
func (h *AuthHandler) VerifyOTP(c *gin.Context) {
	var req VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.authService.VerifyOTP(c.Request.Context(), req.Phone, req.OTPCode)
	if err != nil {
		respondError(c, "OTP verification failed", err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	tokens, err := h.authService.Refresh(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "Invalid refresh token",
			Message: err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, tokens)
}

func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.authService.Logout(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		respondError(c, "Logout failed", err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: "Logged out"})
}
