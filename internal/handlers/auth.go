// internal/handlers/auth.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/bulkwear-backend/internal/i18n"
	"github.com/javajoker/bulkwear-backend/internal/services"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

type AuthHandler struct {
	authService  *services.AuthService
	resetService *services.PasswordResetService
}

func NewAuthHandler(authService *services.AuthService, resetService *services.PasswordResetService) *AuthHandler {
	return &AuthHandler{
		authService:  authService,
		resetService: resetService,
	}
}

func authPayload(message string, resp *services.AuthResponse) gin.H {
	payload := gin.H{
		"user":          resp.User,
		"token":         resp.AccessToken,
		"refresh_token": resp.RefreshToken,
		"token_type":    resp.TokenType,
		"expires_in":    resp.ExpiresIn,
	}
	if message != "" {
		payload["message"] = message
	}
	return payload
}

// POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}

	authResponse, err := h.authService.Register(c.Request.Context(), &req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, authPayload(i18n.T(lang, i18n.KeyAuthRegisterSuccess), authResponse))
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	authResponse, err := h.authService.Login(c.Request.Context(), &req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, authPayload(i18n.T(lang, i18n.KeyAuthLoginSuccess), authResponse))
}

// POST /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	// Tokens are stateless; the client discards them.
	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAuthLogoutSuccess),
	})
}

// POST /auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req services.RefreshTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	authResponse, err := h.authService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, authPayload("", authResponse))
}

// POST /auth/forgot-password
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.resetService.ForgotPassword(c.Request.Context(), &req, c.ClientIP()); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAuthResetCodeSent),
	})
}

// POST /auth/verify-code
func (h *AuthHandler) VerifyCode(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.VerifyCodeRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := h.resetService.VerifyCode(c.Request.Context(), &req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAuthCodeVerified),
		"email":   resp.Email,
		"token":   resp.Token,
	})
}

// POST /auth/reset-password
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.resetService.ResetPassword(c.Request.Context(), &req); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAuthPasswordReset),
	})
}
