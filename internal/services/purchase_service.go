// internal/services/purchase_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/bulkwear-backend/internal/cache"
	"github.com/javajoker/bulkwear-backend/internal/models"
	"github.com/javajoker/bulkwear-backend/internal/pricing"
	"github.com/javajoker/bulkwear-backend/internal/repository"
	"github.com/javajoker/bulkwear-backend/internal/storage"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

const (
	purchaseCacheTTL     = 300 * time.Second
	purchaseListPattern  = "purchases:list:*"
	maxLogoCatalogueFile = 2
)

type PurchaseService struct {
	products       repository.ProductRepository
	purchases      repository.PurchaseRepository
	storage        storage.FileStorage
	cache          cache.Cache
	deliveryCharge decimal.Decimal
}

type PurchaseRequest struct {
	PaymentType models.PaymentType `json:"payment_type" validate:"required,oneof=half full"`
	LineItems   []models.LineItem  `json:"product_info" validate:"required,min=1,dive"`
	models.DeliveryInfo
}

// PurchaseFiles are the optional uploads sent with a purchase.
type PurchaseFiles struct {
	LogoCatalogue   []storage.File
	ProductDocument *storage.File
}

type PurchaseSummary struct {
	PurchaseID      uuid.UUID          `json:"purchase_id"`
	ProductID       uuid.UUID          `json:"product_id"`
	ProductCode     string             `json:"product_code"`
	TotalPieces     int                `json:"total_pieces"`
	OldPrice        string             `json:"old_price"`
	PricePerPiece   string             `json:"price_per_piece"`
	ProductTotal    string             `json:"product_total"`
	DeliveryCharge  string             `json:"delivery_charge"`
	GrandTotal      string             `json:"grand_total"`
	PaymentType     models.PaymentType `json:"payment_type"`
	PaymentAmount   string             `json:"payment_amount"`
	DiscountApplied bool               `json:"discount_applied"`
	OrderStatus     models.OrderStatus `json:"order_status"`
}

type PurchasePage struct {
	Purchases []models.Purchase `json:"purchases"`
	Total     int64             `json:"total"`
}

func NewPurchaseService(
	products repository.ProductRepository,
	purchases repository.PurchaseRepository,
	files storage.FileStorage,
	c cache.Cache,
	deliveryCharge decimal.Decimal,
) *PurchaseService {
	return &PurchaseService{
		products:       products,
		purchases:      purchases,
		storage:        files,
		cache:          c,
		deliveryCharge: deliveryCharge,
	}
}

func purchaseKey(id uuid.UUID) string {
	return "purchase:" + id.String()
}

// BuildPurchase prices req against product and returns the unsaved
// purchase. Pricing is frozen into the purchase here.
func BuildPurchase(product *models.Product, req *PurchaseRequest, deliveryCharge decimal.Decimal) (*models.Purchase, error) {
	if !product.IsActive {
		return nil, utils.NewValidationError("This product is currently unavailable")
	}
	if len(req.LineItems) == 0 {
		return nil, utils.NewValidationError("At least one product item is required")
	}

	total := 0
	for _, item := range req.LineItems {
		if item.Pieces < 1 {
			return nil, utils.NewValidationError("Each item must have at least 1 piece")
		}
		total += item.Pieces
	}

	if total < product.MinimumQuantity {
		return nil, utils.NewValidationError(fmt.Sprintf(
			"Minimum order quantity is %d pieces. You have %d pieces.", product.MinimumQuantity, total))
	}

	totals, err := pricing.Compute(product, total, req.PaymentType, deliveryCharge)
	if err != nil {
		return nil, utils.NewValidationError(err.Error())
	}

	return &models.Purchase{
		ProductID:      product.ID,
		PaymentType:    req.PaymentType,
		LineItems:      models.LineItems(req.LineItems),
		TotalPieces:    totals.TotalPieces,
		PricePerPiece:  totals.PricePerPiece,
		ProductTotal:   totals.ProductTotal,
		DeliveryCharge: deliveryCharge,
		GrandTotal:     totals.GrandTotal,
		PaymentAmount:  totals.PaymentAmount,
		DeliveryInfo:   req.DeliveryInfo,
		OrderStatus:    models.OrderStatusPending,
		PaymentStatus:  models.PaymentStatusPending,
	}, nil
}

// SubmitPurchase validates, uploads and stores a new purchase for userID.
// Files uploaded by a failed submission are removed again.
func (s *PurchaseService) SubmitPurchase(ctx context.Context, userID, productID uuid.UUID, req *PurchaseRequest, files PurchaseFiles) (*PurchaseSummary, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NewNotFoundError("Product not found")
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	purchase, err := BuildPurchase(product, req, s.deliveryCharge)
	if err != nil {
		return nil, err
	}
	purchase.UserID = userID

	if len(files.LogoCatalogue) > maxLogoCatalogueFile {
		return nil, utils.NewValidationError(fmt.Sprintf("You may upload at most %d logo or catalogue files.", maxLogoCatalogueFile))
	}
	all := append([]storage.File{}, files.LogoCatalogue...)
	if files.ProductDocument != nil {
		all = append(all, *files.ProductDocument)
	}
	if err := checkFiles(storage.PurchaseFileRules, all); err != nil {
		return nil, err
	}

	batch := newUploadBatch(s.storage)
	logos, err := batch.storeAll(ctx, files.LogoCatalogue, FolderPurchaseLogos)
	if err != nil {
		batch.rollback(ctx)
		return nil, err
	}
	purchase.LogoCatalogue = pq.StringArray(logos)

	if files.ProductDocument != nil {
		path, err := batch.store(ctx, *files.ProductDocument, FolderPurchaseDocuments)
		if err != nil {
			batch.rollback(ctx)
			return nil, err
		}
		purchase.ProductDocument = path
	}

	if err := s.purchases.Create(ctx, purchase); err != nil {
		batch.rollback(ctx)
		return nil, fmt.Errorf("failed to create purchase: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"user_id":      userID,
		"purchase_id":  purchase.ID,
		"product_id":   product.ID,
		"total_pieces": purchase.TotalPieces,
	}).Info("Purchase submitted")

	return newPurchaseSummary(purchase, product), nil
}

func newPurchaseSummary(p *models.Purchase, product *models.Product) *PurchaseSummary {
	oldPrice := decimal.NewFromInt(int64(p.TotalPieces)).Mul(product.PerPrice)
	return &PurchaseSummary{
		PurchaseID:      p.ID,
		ProductID:       product.ID,
		ProductCode:     product.Code,
		TotalPieces:     p.TotalPieces,
		OldPrice:        oldPrice.StringFixed(2),
		PricePerPiece:   p.PricePerPiece.StringFixed(2),
		ProductTotal:    p.ProductTotal.StringFixed(2),
		DeliveryCharge:  p.DeliveryCharge.StringFixed(2),
		GrandTotal:      p.GrandTotal.StringFixed(2),
		PaymentType:     p.PaymentType,
		PaymentAmount:   p.PaymentAmount.StringFixed(2),
		DiscountApplied: p.PricePerPiece.LessThan(product.PerPrice),
		OrderStatus:     p.OrderStatus,
	}
}

// GetPurchase returns a purchase its owner or an admin may see. Other
// callers get not found.
func (s *PurchaseService) GetPurchase(ctx context.Context, id, userID uuid.UUID, admin bool) (*models.Purchase, error) {
	purchase, err := cache.Remember(ctx, s.cache, purchaseKey(id), purchaseCacheTTL, func(ctx context.Context) (*models.Purchase, error) {
		return s.load(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if !admin && purchase.UserID != userID {
		return nil, utils.NewNotFoundError("Purchase not found")
	}
	return purchase, nil
}

func (s *PurchaseService) ListMine(ctx context.Context, userID uuid.UUID, params utils.PaginationParams) (*PurchasePage, error) {
	purchases, total, err := s.purchases.List(ctx, repository.PurchaseFilter{
		PaginationParams: params,
		UserID:           &userID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return &PurchasePage{Purchases: purchases, Total: total}, nil
}

// ListPaid is the admin order list. Only paid purchases are orders.
func (s *PurchaseService) ListPaid(ctx context.Context, filter repository.PurchaseFilter) (*PurchasePage, error) {
	filter.PaymentStatus = models.PaymentStatusPaid
	filter.UserID = nil

	raw, err := json.Marshal(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to encode purchase filter: %w", err)
	}
	key := "purchases:list:" + utils.HashString(string(raw))

	return cache.Remember(ctx, s.cache, key, purchaseCacheTTL, func(ctx context.Context) (*PurchasePage, error) {
		purchases, total, err := s.purchases.List(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to list purchases: %w", err)
		}
		return &PurchasePage{Purchases: purchases, Total: total}, nil
	})
}

// AdvanceOrderStatus moves a paid purchase to status. changed is false
// when the purchase already had it.
func (s *PurchaseService) AdvanceOrderStatus(ctx context.Context, id uuid.UUID, status models.OrderStatus) (purchase *models.Purchase, changed bool, err error) {
	if !status.Valid() {
		return nil, false, utils.NewValidationError("Order status must be one of: pending, in-progress, completed, cancelled")
	}

	purchase, changed, err = s.purchases.UpdateOrderStatus(ctx, id, status)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, false, utils.NewNotFoundError("Purchase not found")
	case errors.Is(err, repository.ErrPaymentPending):
		return nil, false, utils.NewValidationError("Cannot update order status. Payment not completed.")
	case err != nil:
		return nil, false, fmt.Errorf("failed to update order status: %w", err)
	}

	if changed {
		cache.Forget(ctx, s.cache, []string{purchaseKey(id)}, purchaseListPattern)
		logrus.WithFields(logrus.Fields{"purchase_id": id, "order_status": status}).Info("Order status updated")
	}
	return purchase, changed, nil
}

func (s *PurchaseService) load(ctx context.Context, id uuid.UUID) (*models.Purchase, error) {
	purchase, err := s.purchases.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NewNotFoundError("Purchase not found")
		}
		return nil, fmt.Errorf("failed to load purchase: %w", err)
	}
	return purchase, nil
}
