package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/javajoker/bulkwear-backend/internal/models"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

type purchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepository{db: db}
}

func (r *purchaseRepository) Create(ctx context.Context, purchase *models.Purchase) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(purchase).Error; err != nil {
		return fmt.Errorf("failed to create purchase: %w", translate(err))
	}
	return nil
}

func (r *purchaseRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.WithContext(ctx).
		Preload("Product").Preload("User").
		First(&purchase, "purchases.id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &purchase, nil
}

func (r *purchaseRepository) FindByChargeRef(ctx context.Context, chargeRef string) (*models.Purchase, error) {
	var purchase models.Purchase
	err := r.db.WithContext(ctx).Unscoped().
		First(&purchase, "payment_id = ?", chargeRef).Error
	if err != nil {
		return nil, translate(err)
	}
	return &purchase, nil
}

func (r *purchaseRepository) List(ctx context.Context, filter PurchaseFilter) ([]models.Purchase, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Purchase{})

	if filter.UserID != nil {
		query = query.Where("purchases.user_id = ?", *filter.UserID)
	}
	if filter.PaymentStatus != "" {
		query = query.Where("purchases.payment_status = ?", filter.PaymentStatus)
	}
	if filter.OrderStatus != "" {
		query = query.Where("purchases.order_status = ?", filter.OrderStatus)
	}
	if filter.PaymentType != "" {
		query = query.Where("purchases.payment_type = ?", filter.PaymentType)
	}
	if filter.From != nil {
		query = query.Where("purchases.created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("purchases.created_at <= ?", *filter.To)
	}
	if filter.Search != "" {
		term := "%" + strings.ToLower(filter.Search) + "%"
		query = query.
			Joins("JOIN users u ON u.id = purchases.user_id").
			Joins("JOIN products pr ON pr.id = purchases.product_id").
			Where("LOWER(u.name) LIKE ? OR LOWER(u.email) LIKE ? OR LOWER(pr.name) LIKE ? OR LOWER(pr.code) LIKE ? OR LOWER(purchases.payment_id) LIKE ?",
				term, term, term, term, term)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count purchases: %w", err)
	}

	var purchases []models.Purchase
	err := utils.ApplyPagination(query.Preload("Product").Preload("User").Order("purchases.created_at desc"), filter.PaginationParams).
		Find(&purchases).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list purchases: %w", err)
	}
	return purchases, total, nil
}

func (r *purchaseRepository) MarkPaid(ctx context.Context, id uuid.UUID, chargeRef string, paidAt time.Time) (*models.Purchase, bool, error) {
	var purchase models.Purchase
	alreadyPaid := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&purchase, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		if purchase.IsPaid() {
			alreadyPaid = true
			return nil
		}

		var holders int64
		if err := tx.Unscoped().Model(&models.Purchase{}).
			Where("payment_id = ? AND id <> ?", chargeRef, id).
			Count(&holders).Error; err != nil {
			return err
		}
		if holders > 0 {
			return ErrChargeRefTaken
		}

		ref := chargeRef
		err := tx.Model(&purchase).Updates(map[string]interface{}{
			"payment_status": models.PaymentStatusPaid,
			"payment_id":     ref,
			"paid_at":        paidAt,
		}).Error
		if errors.Is(translate(err), ErrDuplicate) {
			return ErrChargeRefTaken
		}
		if err != nil {
			return err
		}

		purchase.PaymentStatus = models.PaymentStatusPaid
		purchase.ChargeRef = &ref
		purchase.PaidAt = &paidAt
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &purchase, alreadyPaid, nil
}

func (r *purchaseRepository) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (*models.Purchase, bool, error) {
	var purchase models.Purchase
	changed := false

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&purchase, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		if !purchase.IsPaid() {
			return ErrPaymentPending
		}
		if purchase.OrderStatus == status {
			return nil
		}
		if err := tx.Model(&purchase).Update("order_status", status).Error; err != nil {
			return err
		}
		purchase.OrderStatus = status
		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &purchase, changed, nil
}

func (r *purchaseRepository) ListUnpaidBefore(ctx context.Context, cutoff time.Time) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := r.db.WithContext(ctx).
		Where("payment_status = ? AND created_at <= ?", models.PaymentStatusPending, cutoff).
		Order("created_at asc").
		Find(&purchases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unpaid purchases: %w", err)
	}
	return purchases, nil
}

func (r *purchaseRepository) DeleteUnpaid(ctx context.Context, id uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).Unscoped().
		Where("id = ? AND payment_status = ?", id, models.PaymentStatusPending).
		Delete(&models.Purchase{})
	if result.Error != nil {
		return false, fmt.Errorf("failed to delete purchase: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *purchaseRepository) Stats(ctx context.Context) (PurchaseStats, error) {
	var stats PurchaseStats
	err := r.db.WithContext(ctx).Model(&models.Purchase{}).
		Select(`COUNT(CASE WHEN payment_status = 'paid' AND order_status = 'completed' THEN 1 END) AS completed_orders,
			COUNT(CASE WHEN payment_status = 'paid' AND order_status = 'pending' THEN 1 END) AS pending_orders,
			COALESCE(SUM(CASE WHEN payment_status = 'paid' THEN payment_amount END), 0) AS total_revenue`).
		Scan(&stats).Error
	if err != nil {
		return stats, fmt.Errorf("failed to load purchase stats: %w", err)
	}
	return stats, nil
}
