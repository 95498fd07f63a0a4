// internal/handlers/product.go
package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/javajoker/bulkwear-backend/internal/i18n"
	"github.com/javajoker/bulkwear-backend/internal/repository"
	"github.com/javajoker/bulkwear-backend/internal/services"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

type ProductHandler struct {
	productService *services.ProductService
}

func NewProductHandler(productService *services.ProductService) *ProductHandler {
	return &ProductHandler{
		productService: productService,
	}
}

func productFilter(c *gin.Context) repository.ProductFilter {
	filter := repository.ProductFilter{
		PaginationParams: utils.GetPaginationParams(c),
		Fabric:           c.Query("fabric"),
	}

	if moq, err := strconv.Atoi(c.Query("moq")); err == nil {
		filter.MOQ = moq
	}
	if minPrice, err := decimal.NewFromString(c.Query("min_price")); err == nil {
		filter.MinPrice = &minPrice
	}
	if maxPrice, err := decimal.NewFromString(c.Query("max_price")); err == nil {
		filter.MaxPrice = &maxPrice
	}
	if isActive, err := strconv.ParseBool(c.Query("is_active")); err == nil {
		filter.IsActive = &isActive
	}
	return filter
}

func (h *ProductHandler) list(c *gin.Context, admin bool) {
	filter := productFilter(c)

	page, err := h.productService.ListProducts(c.Request.Context(), filter, admin)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	result := utils.CreatePaginationResult(page.Products, page.Total, filter.PaginationParams)
	utils.PaginatedResponse(c, result)
}

// GET /products
func (h *ProductHandler) GetProducts(c *gin.Context) {
	h.list(c, false)
}

// GET /admin/products
func (h *ProductHandler) GetAdminProducts(c *gin.Context) {
	h.list(c, true)
}

// GET /products/:id
func (h *ProductHandler) GetProduct(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	product, err := h.productService.GetProduct(c.Request.Context(), id)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"product": product,
	})
}

// GET /products/:id/pdf
func (h *ProductHandler) DownloadProductSheet(c *gin.Context) {
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	doc, err := h.productService.ProductSheet(c.Request.Context(), id)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.FileResponse(c, doc.Filename, doc.ContentType, doc.Content)
}

// POST /admin/products
func (h *ProductHandler) CreateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.CreateProductRequest
	if !bindFormData(c, &req) {
		return
	}

	var opened openedFiles
	defer opened.Close()
	files, err := multipartFiles(c, &opened, "images")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "images"), err.Error())
		return
	}

	product, err := h.productService.CreateProduct(c.Request.Context(), &req, files["images"])
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductCreated),
		"product": product,
	})
}

// PUT /admin/products/:id
func (h *ProductHandler) UpdateProduct(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	var req services.UpdateProductRequest
	if !bindFormData(c, &req) {
		return
	}

	var opened openedFiles
	defer opened.Close()
	files, err := multipartFiles(c, &opened, "images")
	if err != nil {
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "images"), err.Error())
		return
	}

	product, err := h.productService.UpdateProduct(c.Request.Context(), id, &req, files["images"])
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyProductUpdated),
		"product": product,
	})
}

// PATCH /admin/products/:id/toggle-status
func (h *ProductHandler) ToggleStatus(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	id, ok := paramUUID(c, "id")
	if !ok {
		return
	}

	product, err := h.productService.ToggleStatus(c.Request.Context(), id)
	if err != nil {
		utils.HandleServiceError(c, err)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":   i18n.T(lang, i18n.KeyProductStatusChanged),
		"id":        product.ID,
		"is_active": product.IsActive,
	})
}
