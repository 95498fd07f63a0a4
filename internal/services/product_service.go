// internal/services/product_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/bulkwear-backend/internal/cache"
	"github.com/javajoker/bulkwear-backend/internal/documents"
	"github.com/javajoker/bulkwear-backend/internal/models"
	"github.com/javajoker/bulkwear-backend/internal/pricing"
	"github.com/javajoker/bulkwear-backend/internal/repository"
	"github.com/javajoker/bulkwear-backend/internal/storage"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

const (
	productCacheTTL     = 3600 * time.Second
	productListCacheTTL = 300 * time.Second
	productListPattern  = "products:list:*"

	minProductImages = 1
	maxProductImages = 10
)

type ProductService struct {
	products  repository.ProductRepository
	storage   storage.FileStorage
	cache     cache.Cache
	documents *DocumentService
}

type CreateProductRequest struct {
	Name            string                `json:"name" validate:"required,max=255"`
	Category        string                `json:"category" validate:"required,product_category"`
	Code            string                `json:"code" validate:"required,max=50"`
	Description     string                `json:"description" validate:"required"`
	Fabric          string                `json:"fabric,omitempty" validate:"max=255"`
	MinimumQuantity int                   `json:"minimum_quantity" validate:"required,min=1"`
	PerPrice        decimal.Decimal       `json:"per_price"`
	DiscountTiers   []models.DiscountTier `json:"additional_discounts,omitempty"`
}

// UpdateProductRequest changes only the fields that are set.
type UpdateProductRequest struct {
	Name            *string                `json:"name,omitempty" validate:"omitempty,max=255"`
	Category        *string                `json:"category,omitempty" validate:"omitempty,product_category"`
	Code            *string                `json:"code,omitempty" validate:"omitempty,max=50"`
	Description     *string                `json:"description,omitempty"`
	Fabric          *string                `json:"fabric,omitempty" validate:"omitempty,max=255"`
	MinimumQuantity *int                   `json:"minimum_quantity,omitempty" validate:"omitempty,min=1"`
	PerPrice        *decimal.Decimal       `json:"per_price,omitempty"`
	DiscountTiers   *[]models.DiscountTier `json:"additional_discounts,omitempty"`
	IsActive        *bool                  `json:"is_active,omitempty"`
	DeletedImages   []string               `json:"deleted_images,omitempty"`
}

// ProductView is a product with its image paths resolved to URLs.
type ProductView struct {
	*models.Product
	ImageURLs []string `json:"image_urls"`
}

type ProductPage struct {
	Products []ProductView `json:"products"`
	Total    int64         `json:"total"`
}

func NewProductService(products repository.ProductRepository, files storage.FileStorage, c cache.Cache, docs *DocumentService) *ProductService {
	return &ProductService{
		products:  products,
		storage:   files,
		cache:     c,
		documents: docs,
	}
}

func productKey(id uuid.UUID) string {
	return "product:" + id.String()
}

func (s *ProductService) CreateProduct(ctx context.Context, req *CreateProductRequest, images []storage.File) (*ProductView, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}
	if req.PerPrice.IsNegative() {
		return nil, utils.NewValidationError("Price per piece cannot be negative.")
	}
	tiers, err := pricing.ValidateTiers(req.DiscountTiers)
	if err != nil {
		return nil, utils.NewValidationError(err.Error())
	}
	if err := checkImageCount(len(images)); err != nil {
		return nil, err
	}
	if err := checkFiles(storage.ProductImageRules, images); err != nil {
		return nil, err
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if err := s.ensureCodeFree(ctx, code, nil); err != nil {
		return nil, err
	}

	batch := newUploadBatch(s.storage)
	paths, err := batch.storeAll(ctx, images, FolderProducts)
	if err != nil {
		batch.rollback(ctx)
		return nil, err
	}

	product := &models.Product{
		Name:            strings.TrimSpace(req.Name),
		Category:        models.ProductCategory(req.Category),
		Code:            code,
		Description:     req.Description,
		Fabric:          req.Fabric,
		MinimumQuantity: req.MinimumQuantity,
		PerPrice:        req.PerPrice.Round(2),
		DiscountTiers:   tiers,
		Images:          pq.StringArray(paths),
		IsActive:        true,
	}

	if err := s.products.Create(ctx, product); err != nil {
		batch.rollback(ctx)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.NewValidationError("The product code has already been taken.")
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	cache.Forget(ctx, s.cache, nil, productListPattern)
	logrus.WithFields(logrus.Fields{"product_id": product.ID, "code": product.Code}).Info("Product created")

	return s.view(product), nil
}

func (s *ProductService) UpdateProduct(ctx context.Context, id uuid.UUID, req *UpdateProductRequest, images []storage.File) (*ProductView, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		product.Name = strings.TrimSpace(*req.Name)
	}
	if req.Category != nil {
		product.Category = models.ProductCategory(*req.Category)
	}
	if req.Code != nil {
		code := strings.ToUpper(strings.TrimSpace(*req.Code))
		if code != product.Code {
			if err := s.ensureCodeFree(ctx, code, &product.ID); err != nil {
				return nil, err
			}
		}
		product.Code = code
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Fabric != nil {
		product.Fabric = *req.Fabric
	}
	if req.MinimumQuantity != nil {
		product.MinimumQuantity = *req.MinimumQuantity
	}
	if req.PerPrice != nil {
		if req.PerPrice.IsNegative() {
			return nil, utils.NewValidationError("Price per piece cannot be negative.")
		}
		product.PerPrice = req.PerPrice.Round(2)
	}
	if req.DiscountTiers != nil {
		tiers, err := pricing.ValidateTiers(*req.DiscountTiers)
		if err != nil {
			return nil, utils.NewValidationError(err.Error())
		}
		product.DiscountTiers = tiers
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}

	kept, removed := s.splitImages(product.Images, req.DeletedImages)
	if err := checkImageCount(len(kept) + len(images)); err != nil {
		return nil, err
	}
	if err := checkFiles(storage.ProductImageRules, images); err != nil {
		return nil, err
	}

	batch := newUploadBatch(s.storage)
	added, err := batch.storeAll(ctx, images, FolderProducts)
	if err != nil {
		batch.rollback(ctx)
		return nil, err
	}
	product.Images = pq.StringArray(append(kept, added...))

	if err := s.products.Update(ctx, product); err != nil {
		batch.rollback(ctx)
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, utils.NewValidationError("The product code has already been taken.")
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	deleteFiles(ctx, s.storage, removed)
	s.forget(ctx, product.ID)
	logrus.WithField("product_id", product.ID).Info("Product updated")

	return s.view(product), nil
}

func (s *ProductService) ToggleStatus(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	product.IsActive = !product.IsActive
	if err := s.products.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product status: %w", err)
	}

	s.forget(ctx, product.ID)
	return product, nil
}

// ListProducts returns one page of products. Public callers only ever see
// active products.
func (s *ProductService) ListProducts(ctx context.Context, filter repository.ProductFilter, admin bool) (*ProductPage, error) {
	if !admin {
		active := true
		filter.IsActive = &active
	}
	switch filter.Sort {
	case repository.SortPriceLowHigh, repository.SortPriceHighLow:
	default:
		filter.Sort = repository.SortNewest
	}

	raw, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to encode product filter: %w", err)
	}
	key := "products:list:" + utils.HashString(string(raw))

	return cache.Remember(ctx, s.cache, key, productListCacheTTL, func(ctx context.Context) (*ProductPage, error) {
		products, total, err := s.products.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list products: %w", err)
		}
		page := &ProductPage{Products: make([]ProductView, 0, len(products)), Total: total}
		for i := range products {
			page.Products = append(page.Products, *s.view(&products[i]))
		}
		return page, nil
	})
}

func (s *ProductService) GetProduct(ctx context.Context, id uuid.UUID) (*ProductView, error) {
	return cache.Remember(ctx, s.cache, productKey(id), productCacheTTL, func(ctx context.Context) (*ProductView, error) {
		product, err := s.load(ctx, id)
		if err != nil {
			return nil, err
		}
		return s.view(product), nil
	})
}

func (s *ProductService) ProductSheet(ctx context.Context, id uuid.UUID) (*documents.Document, error) {
	product, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.documents.ProductSheet(ctx, product)
}

func (s *ProductService) load(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NewNotFoundError("Product not found")
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return product, nil
}

func (s *ProductService) ensureCodeFree(ctx context.Context, code string, excludeID *uuid.UUID) error {
	taken, err := s.products.CodeExists(ctx, code, excludeID)
	if err != nil {
		return fmt.Errorf("failed to check product code: %w", err)
	}
	if taken {
		return utils.NewValidationError("The product code has already been taken.")
	}
	return nil
}

// splitImages separates the images to keep from those named in deleted,
// which may hold either storage paths or public URLs.
func (s *ProductService) splitImages(current []string, deleted []string) (kept, removed []string) {
	if len(deleted) == 0 {
		return append([]string{}, current...), nil
	}
	drop := make(map[string]bool, len(deleted))
	for _, d := range deleted {
		drop[d] = true
	}
	for _, path := range current {
		if drop[path] || drop[s.storage.URL(path)] {
			removed = append(removed, path)
			continue
		}
		kept = append(kept, path)
	}
	return kept, removed
}

func (s *ProductService) forget(ctx context.Context, id uuid.UUID) {
	cache.Forget(ctx, s.cache, []string{productKey(id)}, productListPattern)
}

func (s *ProductService) view(product *models.Product) *ProductView {
	urls := make([]string, 0, len(product.Images))
	for _, path := range product.Images {
		urls = append(urls, s.storage.URL(path))
	}
	return &ProductView{Product: product, ImageURLs: urls}
}

func checkImageCount(n int) error {
	if n < minProductImages {
		return utils.NewValidationError("At least one product image is required.")
	}
	if n > maxProductImages {
		return utils.NewValidationError(fmt.Sprintf("A product may have at most %d images.", maxProductImages))
	}
	return nil
}
