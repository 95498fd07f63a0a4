// Package repository persists the storefront's records. Every repository
// has a gorm/PostgreSQL implementation and an in-memory one used by tests.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/javajoker/bulkwear-backend/internal/models"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
	// ErrChargeRefTaken means another purchase already holds the charge
	// reference being recorded.
	ErrChargeRefTaken = errors.New("charge reference already recorded")
	// ErrPaymentPending rejects order status changes on unpaid purchases.
	ErrPaymentPending = errors.New("payment not completed")
)

const (
	SortNewest       = "newest"
	SortPriceLowHigh = "price_low_high"
	SortPriceHighLow = "price_high_low"
)

type ProductFilter struct {
	utils.PaginationParams
	Fabric   string
	MOQ      int
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	IsActive *bool
}

type PurchaseFilter struct {
	utils.PaginationParams
	UserID        *uuid.UUID
	PaymentStatus models.PaymentStatus
	OrderStatus   models.OrderStatus
	PaymentType   models.PaymentType
	From          *time.Time
	To            *time.Time
}

type ContactFilter struct {
	utils.PaginationParams
}

type PurchaseStats struct {
	CompletedOrders int64           `json:"completed_orders"`
	PendingOrders   int64           `json:"pending_orders"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
}

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Count(ctx context.Context) (int64, error)
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	CodeExists(ctx context.Context, code string, excludeID *uuid.UUID) (bool, error)
	List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error)
	Count(ctx context.Context) (int64, error)
}

type PurchaseRepository interface {
	Create(ctx context.Context, purchase *models.Purchase) error
	// FindByID loads the purchase with its product and buyer.
	FindByID(ctx context.Context, id uuid.UUID) (*models.Purchase, error)
	// FindByChargeRef loads the purchase holding a gateway charge reference.
	FindByChargeRef(ctx context.Context, chargeRef string) (*models.Purchase, error)
	List(ctx context.Context, filter PurchaseFilter) ([]models.Purchase, int64, error)
	// MarkPaid records a successful charge under a row lock. It reports
	// alreadyPaid when the purchase was paid before the call, and returns
	// ErrChargeRefTaken when another purchase holds chargeRef.
	MarkPaid(ctx context.Context, id uuid.UUID, chargeRef string, paidAt time.Time) (purchase *models.Purchase, alreadyPaid bool, err error)
	// UpdateOrderStatus writes status under a row lock. changed is false
	// when the purchase already had that status.
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (purchase *models.Purchase, changed bool, err error)
	ListUnpaidBefore(ctx context.Context, cutoff time.Time) ([]models.Purchase, error)
	// DeleteUnpaid removes the purchase only if it is still unpaid.
	DeleteUnpaid(ctx context.Context, id uuid.UUID) (bool, error)
	Stats(ctx context.Context) (PurchaseStats, error)
}

type ResetCodeRepository interface {
	// Replace deletes every code for the email and stores a new one.
	Replace(ctx context.Context, code *models.PasswordResetCode) error
	// Exchange swaps an active code for token. It reports false when no
	// active row matches.
	Exchange(ctx context.Context, email, code, token string, now time.Time) (bool, error)
	// Consume sets the user's password hash and marks the token used in one
	// transaction. It returns the user id, or ErrNotFound.
	Consume(ctx context.Context, email, token, passwordHash string, now time.Time) (uuid.UUID, error)
	CountStale(ctx context.Context, expiredBefore, usedBefore time.Time) (int64, error)
	DeleteStale(ctx context.Context, expiredBefore, usedBefore time.Time) (int64, error)
}

type ContactRepository interface {
	Create(ctx context.Context, contact *models.ContactMessage) error
	List(ctx context.Context, filter ContactFilter) ([]models.ContactMessage, int64, error)
}

type AuditRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
}

// Locker runs fn only when the named lock is free. acquired is false when
// another holder has it, in which case fn is not called.
type Locker interface {
	WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) (acquired bool, err error)
}

// Store bundles the repositories a process needs.
type Store struct {
	Users      UserRepository
	Products   ProductRepository
	Purchases  PurchaseRepository
	ResetCodes ResetCodeRepository
	Contacts   ContactRepository
	Audit      AuditRepository
	Locker     Locker
}
