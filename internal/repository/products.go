package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/javajoker/bulkwear-backend/internal/models"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return fmt.Errorf("failed to create product: %w", translate(err))
	}
	return nil
}

func (r *productRepository) Update(ctx context.Context, product *models.Product) error {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return fmt.Errorf("failed to update product: %w", translate(err))
	}
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &product, nil
}

func (r *productRepository) CodeExists(ctx context.Context, code string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).Where("code = ?", code)
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return false, fmt.Errorf("failed to check product code: %w", err)
	}
	return total > 0, nil
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{})

	if filter.IsActive != nil {
		query = query.Where("is_active = ?", *filter.IsActive)
	}
	if filter.Search != "" {
		term := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(code) LIKE ? OR LOWER(description) LIKE ?", term, term, term)
	}
	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}
	if filter.Fabric != "" {
		query = query.Where("LOWER(fabric) LIKE ?", "%"+strings.ToLower(filter.Fabric)+"%")
	}
	if lo, hi, ok := moqBounds(filter.MOQ); ok {
		query = query.Where("minimum_quantity >= ?", lo)
		if hi > 0 {
			query = query.Where("minimum_quantity < ?", hi)
		}
	}
	if filter.MinPrice != nil {
		query = query.Where("per_price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("per_price <= ?", *filter.MaxPrice)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	switch filter.Sort {
	case SortPriceLowHigh:
		query = query.Order("per_price asc")
	case SortPriceHighLow:
		query = query.Order("per_price desc")
	default:
		query = query.Order("created_at desc")
	}

	var products []models.Product
	if err := utils.ApplyPagination(query, filter.PaginationParams).Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

func (r *productRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&total).Error
	return total, err
}

// moqBounds maps a minimum-order bucket to [lo, hi). hi is 0 for the open
// top bucket.
func moqBounds(bucket int) (lo, hi int, ok bool) {
	switch bucket {
	case 25:
		return 25, 50, true
	case 50:
		return 50, 100, true
	case 100:
		return 100, 500, true
	case 500:
		return 500, 0, true
	default:
		return 0, 0, false
	}
}
