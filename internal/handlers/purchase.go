// internal/handlers/purchase.go
package handlers

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/bulkwear-backend/internal/i18n"
	"github.com/javajoker/bulkwear-backend/internal/models"
	"github.com/javajoker/bulkwear-backend/internal/repository"
	"github.com/javajoker/bulkwear-backend/internal/services"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

const (
	fieldLogoCatalogue   = "logo_catalogue"
	fieldProductDocument = "product_document"
)

type PurchaseHandler struct {
	purchaseService *services.PurchaseService
}

type UpdateOrderStatusRequest struct {
	OrderStatus models.OrderStatus `json:"order_status"`
}

func NewPurchaseHandler(purchaseService *services.PurchaseService) *PurchaseHandler {
	return &PurchaseHandler{
		purchaseService: purchaseService,
	}
}

// POST /products/:id/purchases
//
// Accepts either a JSON body or a multipart form with the order in the
// "data" field and optional logo_catalogue and product_document files.
func (h *PurchaseHandler) SubmitPurchase(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	productID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.PurchaseRequest
	multipartRequest := strings.HasPrefix(c.ContentType(), "multipart/")
	if multipartRequest {
		if !bindFormData(c, &req) {
			return
		}
	} else if !bindJSON(c, &req) {
		return
	}

	var opened openedFiles
	defer opened.Close()
	uploads, err := multipartFiles(c, &opened, fieldLogoCatalogue, fieldProductDocument)
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "files"), err.Error())
		return
	}

	files := services.PurchaseFiles{LogoCatalogue: uploads[fieldLogoCatalogue]}
	if docs := uploads[fieldProductDocument]; len(docs) > 0 {
		files.ProductDocument = &docs[0]
	}

	summary, err := h.purchaseService.SubmitPurchase(c.Request.Context(), userID, productID, &req, files)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":  i18n.T(lang, i18n.KeyPurchaseSubmitted),
		"purchase": summary,
	})
}

// GET /purchases/mine
func (h *PurchaseHandler) GetMyPurchases(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	page, err := h.purchaseService.ListMine(c.Request.Context(), userID, params)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	result := utils.CreatePaginationResult(page.Purchases, page.Total, params)
	utils.PaginatedResponse(c, result)
}

// GET /purchases/:id
func (h *PurchaseHandler) GetPurchase(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	purchase, err := h.purchaseService.GetPurchase(c.Request.Context(), id, userID, utils.IsAdminContext(c))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"purchase": purchase,
	})
}

// GET /admin/purchases
func (h *PurchaseHandler) GetPaidPurchases(c *gin.Context) {
	filter := repository.PurchaseFilter{
		PaginationParams: utils.GetPaginationParams(c),
		OrderStatus:      models.OrderStatus(c.Query("order_status")),
		PaymentType:      models.PaymentType(c.Query("payment_type")),
	}
	if from, err := time.Parse("2006-01-02", c.Query("from")); err == nil {
		filter.From = &from
	}
	if to, err := time.Parse("2006-01-02", c.Query("to")); err == nil {
		end := to.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}

	page, err := h.purchaseService.ListPaid(c.Request.Context(), filter)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	result := utils.CreatePaginationResult(page.Purchases, page.Total, filter.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// PATCH /admin/purchases/:id/status
func (h *PurchaseHandler) UpdateOrderStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if !bindJSON(c, &req) {
		return
	}

	purchase, changed, err := h.purchaseService.AdvanceOrderStatus(c.Request.Context(), id, req.OrderStatus)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	message := i18n.T(lang, i18n.KeyPurchaseStatusUpdated)
	if !changed {
		message = i18n.T(lang, i18n.KeyPurchaseStatusSame, purchase.OrderStatus)
	}

	utils.SuccessResponse(c, gin.H{
		"message":      message,
		"id":           purchase.ID,
		"order_status": purchase.OrderStatus,
		"changed":      changed,
	})
}
