// internal/handlers/user.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/bulkwear-backend/internal/i18n"
	"github.com/javajoker/bulkwear-backend/internal/services"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// GET /auth/me
func (h *UserHandler) GetProfile(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	user, err := h.userService.Profile(c.Request.Context(), userID)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"user": user,
	})
}

// PUT /auth/profile
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.UpdateProfileRequest
	if !bindJSON(c, &req) {
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyUserProfileUpdated),
		"user":    user,
	})
}

// PUT /auth/password
func (h *UserHandler) UpdatePassword(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req services.UpdatePasswordRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.userService.UpdatePassword(c.Request.Context(), userID, &req); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAuthPasswordUpdated),
	})
}
