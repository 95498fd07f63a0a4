// internal/handlers/contact.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/javajoker/bulkwear-backend/internal/i18n"
	"github.com/javajoker/bulkwear-backend/internal/repository"
	"github.com/javajoker/bulkwear-backend/internal/services"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

type ContactHandler struct {
	contactService *services.ContactService
}

func NewContactHandler(contactService *services.ContactService) *ContactHandler {
	return &ContactHandler{
		contactService: contactService,
	}
}

// POST /contact
func (h *ContactHandler) Submit(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.ContactRequest
	if !bindJSON(c, &req) {
		return
	}

	contact, err := h.contactService.SubmitContact(c.Request.Context(), &req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyContactSubmitted),
		"id":      contact.ID,
	})
}

// GET /admin/contacts
func (h *ContactHandler) List(c *gin.Context) {
	filter := repository.ContactFilter{PaginationParams: utils.GetPaginationParams(c)}

	page, err := h.contactService.ListContacts(c.Request.Context(), filter)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	result := utils.CreatePaginationResult(page.Contacts, page.Total, filter.PaginationParams)
	utils.PaginatedResponse(c, result)
}
