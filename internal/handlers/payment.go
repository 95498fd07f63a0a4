// internal/handlers/payment.go
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/bulkwear-backend/internal/i18n"
	"github.com/javajoker/bulkwear-backend/internal/services"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

// Stripe signs webhook payloads with this header.
const webhookSignatureHeader = "Stripe-Signature"

const maxWebhookBody = 64 << 10

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// POST /purchases/:id/pay
func (h *PaymentHandler) CapturePayment(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	purchaseID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.CapturePaymentRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.paymentService.CapturePayment(c.Request.Context(), purchaseID, userID, &req)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	message := i18n.T(lang, i18n.KeyPaymentSuccess)
	switch {
	case result.RequiresAction:
		message = i18n.T(lang, i18n.KeyPaymentRequiresAction)
	case result.AlreadyProcessed:
		message = i18n.T(lang, i18n.KeyPaymentAlreadyProcessed)
	}

	utils.SuccessResponse(c, gin.H{
		"message": message,
		"payment": result,
	})
}

// GET /purchases/:id/invoice
func (h *PaymentHandler) DownloadInvoice(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	purchaseID, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	doc, err := h.paymentService.GenerateInvoice(c.Request.Context(), purchaseID, userID, utils.IsAdminContext(c))
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.FileResponse(c, doc.Filename, doc.ContentType, doc.Content)
}

// POST /payments/webhook
func (h *PaymentHandler) Webhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		utils.BadRequestResponse(c, "", err.Error())
		return
	}

	if err := h.paymentService.HandleWebhook(c.Request.Context(), payload, c.GetHeader(webhookSignatureHeader)); err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}
