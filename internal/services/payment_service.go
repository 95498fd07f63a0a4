// internal/services/payment_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/bulkwear-backend/internal/cache"
	"github.com/javajoker/bulkwear-backend/internal/config"
	"github.com/javajoker/bulkwear-backend/internal/documents"
	"github.com/javajoker/bulkwear-backend/internal/gateway"
	"github.com/javajoker/bulkwear-backend/internal/metrics"
	"github.com/javajoker/bulkwear-backend/internal/models"
	"github.com/javajoker/bulkwear-backend/internal/pricing"
	"github.com/javajoker/bulkwear-backend/internal/repository"
	"github.com/javajoker/bulkwear-backend/internal/utils"
)

type PaymentService struct {
	purchases repository.PurchaseRepository
	gateway   gateway.Gateway
	cache     cache.Cache
	documents *DocumentService
	cfg       config.PaymentConfig
	now       func() time.Time
}

type CapturePaymentRequest struct {
	PaymentMethod string `json:"payment_method" validate:"required"`
}

// PaymentResult describes a capture attempt that did not fail. Either the
// purchase is paid, or the payer must complete an authentication step
// using ClientSecret.
type PaymentResult struct {
	PurchaseID       uuid.UUID            `json:"purchase_id"`
	Status           models.PaymentStatus `json:"payment_status"`
	ChargeRef        string               `json:"payment_id,omitempty"`
	Amount           string               `json:"amount"`
	PaidAt           *time.Time           `json:"paid_at,omitempty"`
	AlreadyProcessed bool                 `json:"already_processed"`
	RequiresAction   bool                 `json:"requires_action"`
	ClientSecret     string               `json:"client_secret,omitempty"`
}

func NewPaymentService(
	purchases repository.PurchaseRepository,
	gw gateway.Gateway,
	c cache.Cache,
	docs *DocumentService,
	cfg config.PaymentConfig,
) *PaymentService {
	return &PaymentService{
		purchases: purchases,
		gateway:   gw,
		cache:     c,
		documents: docs,
		cfg:       cfg,
		now:       time.Now,
	}
}

const unrecordedPaymentMsg = "Payment was received but could not be recorded. Please contact support."

func inflightKey(id uuid.UUID) string {
	return "payment:inflight:" + id.String()
}

// CapturePayment charges the purchase's payment amount once. Repeating the
// call after success returns the recorded charge without calling the
// gateway again.
func (s *PaymentService) CapturePayment(ctx context.Context, purchaseID, userID uuid.UUID, req *CapturePaymentRequest) (*PaymentResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	purchase, err := s.loadOwned(ctx, purchaseID, userID)
	if err != nil {
		return nil, err
	}

	log := logrus.WithFields(logrus.Fields{
		"user_id":     userID,
		"purchase_id": purchaseID,
	})

	if purchase.IsPaid() {
		metrics.RecordPaymentOutcome("already_processed")
		return paidResult(purchase, true), nil
	}

	if !purchase.PaymentAmount.IsPositive() {
		return nil, utils.NewValidationError("Invalid payment amount")
	}

	release, err := s.acquireInflight(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	defer release()

	// another capture may have finished between the first load and the guard
	purchase, err = s.loadOwned(ctx, purchaseID, userID)
	if err != nil {
		return nil, err
	}
	if purchase.IsPaid() {
		metrics.RecordPaymentOutcome("already_processed")
		return paidResult(purchase, true), nil
	}

	outcome, result, err := s.charge(ctx, purchase, req.PaymentMethod)
	metrics.RecordPaymentOutcome(outcome.String())

	switch outcome {
	case gateway.Succeeded:
		log = log.WithField("charge_ref", result.ChargeRef)
		paid, alreadyPaid, err := s.recordPaid(ctx, purchaseID, result.ChargeRef)
		if err != nil {
			log.WithError(err).Error("Charge succeeded but could not be recorded")
			return nil, utils.NewInternalError(unrecordedPaymentMsg, err)
		}
		log.WithField("already_processed", alreadyPaid).Info("Payment captured")
		return paidResult(paid, alreadyPaid), nil

	case gateway.RequiresAction:
		log.WithField("charge_ref", result.ChargeRef).Info("Payment requires customer action")
		return &PaymentResult{
			PurchaseID:     purchaseID,
			Status:         purchase.PaymentStatus,
			ChargeRef:      result.ChargeRef,
			Amount:         purchase.PaymentAmount.StringFixed(2),
			RequiresAction: true,
			ClientSecret:   result.ClientSecret,
		}, nil

	case gateway.Declined:
		log.WithError(err).Warn("Payment declined")
		return nil, utils.NewUpstreamError(utils.UpstreamDeclined, declineMessage(err), false, err)

	case gateway.InvalidRequest:
		log.WithError(err).Warn("Payment request rejected by gateway")
		return nil, utils.NewUpstreamError(utils.UpstreamInvalidRequest, "Invalid payment request", false, err)

	case gateway.AuthFailure:
		log.WithError(err).Error("Payment gateway authentication failed")
		return nil, utils.NewUpstreamError(utils.UpstreamAuth, "Payment service configuration error", false, err)

	case gateway.Unavailable:
		log.WithError(err).Error("Payment gateway unavailable")
		return nil, utils.NewUpstreamError(utils.UpstreamConnectivity, "Payment service temporarily unavailable", true, err)

	default:
		log.WithError(err).WithField("amount", purchase.PaymentAmount.StringFixed(2)).
			Error("Payment outcome unknown; reconcile with the gateway before retrying")
		return nil, utils.NewUpstreamError(utils.UpstreamUnknown, "Payment status could not be confirmed. Please try again shortly.", true, err)
	}
}

// charge creates the gateway customer and charge. A nil error always comes
// with Succeeded or RequiresAction.
func (s *PaymentService) charge(ctx context.Context, purchase *models.Purchase, paymentMethod string) (gateway.Outcome, *gateway.ChargeResult, error) {
	if s.cfg.GatewayTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.GatewayTimeout)
		defer cancel()
	}

	customer := gateway.Customer{Email: purchase.Email, Name: purchase.OrganizationName}
	if purchase.User != nil {
		customer = gateway.Customer{
			Email:    purchase.User.Email,
			Name:     purchase.User.Name,
			Metadata: map[string]string{"user_id": purchase.UserID.String()},
		}
	}

	customerRef, err := s.gateway.FindOrCreateCustomer(ctx, customer)
	if err != nil {
		return gateway.OutcomeOf(err), nil, err
	}

	productName, productCode := "", ""
	if purchase.Product != nil {
		productName, productCode = purchase.Product.Name, purchase.Product.Code
	}

	result, err := s.gateway.CreateCharge(ctx, gateway.ChargeRequest{
		AmountMinor:   pricing.MinorUnits(purchase.PaymentAmount),
		Currency:      s.cfg.Currency,
		CustomerRef:   customerRef,
		PaymentMethod: paymentMethod,
		Description:   fmt.Sprintf("Purchase #%s - %s", purchase.ID, productName),
		ReturnURL:     s.cfg.ReturnURL,
		Metadata: map[string]string{
			"user_id":      purchase.UserID.String(),
			"purchase_id":  purchase.ID.String(),
			"product_id":   purchase.ProductID.String(),
			"payment_type": string(purchase.PaymentType),
			"product_code": productCode,
		},
	})
	if err != nil {
		return gateway.OutcomeOf(err), nil, err
	}
	return result.Outcome, result, nil
}

// recordPaid stores a successful charge. A charge reference already held
// by another purchase is reported as already processed, with the payment
// state of the purchase that holds it. This purchase is left unchanged.
func (s *PaymentService) recordPaid(ctx context.Context, purchaseID uuid.UUID, chargeRef string) (*models.Purchase, bool, error) {
	paid, alreadyPaid, err := s.purchases.MarkPaid(ctx, purchaseID, chargeRef, s.now())
	if errors.Is(err, repository.ErrChargeRefTaken) {
		logrus.WithFields(logrus.Fields{"purchase_id": purchaseID, "charge_ref": chargeRef}).
			Warn("Charge reference already recorded on another purchase")
		current, err := s.purchases.FindByID(ctx, purchaseID)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load purchase: %w", err)
		}
		holder, err := s.purchases.FindByChargeRef(ctx, chargeRef)
		if err != nil {
			return nil, false, fmt.Errorf("failed to load charge holder: %w", err)
		}
		reported := *current
		reported.PaymentStatus = holder.PaymentStatus
		reported.ChargeRef = holder.ChargeRef
		reported.PaidAt = holder.PaidAt
		return &reported, true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to record payment: %w", err)
	}

	cache.Forget(ctx, s.cache, []string{purchaseKey(purchaseID)}, purchaseListPattern)
	return paid, alreadyPaid, nil
}

// acquireInflight rejects a capture while another one for the same
// purchase is running. Without a working cache the guard is skipped and
// the row lock in MarkPaid still prevents a double record.
func (s *PaymentService) acquireInflight(ctx context.Context, purchaseID uuid.UUID) (func(), error) {
	key := inflightKey(purchaseID)
	ttl := s.cfg.InflightTTL
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}

	n, err := s.cache.Increment(ctx, key, ttl)
	if err != nil {
		logrus.WithError(err).WithField("purchase_id", purchaseID).Warn("In-flight payment guard unavailable")
		return func() {}, nil
	}
	if n > 1 {
		return nil, utils.NewConflictError("A payment for this purchase is already being processed", true)
	}

	return func() {
		cache.Forget(context.Background(), s.cache, []string{key})
	}, nil
}

// HandleWebhook applies a verified gateway notification. Only successful
// payments change state; other events are acknowledged and ignored.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return utils.NewBadRequestError("Invalid webhook signature")
	}

	log := logrus.WithFields(logrus.Fields{"event_id": event.ID, "event_type": event.Type})
	if event.Type != gateway.EventPaymentSucceeded {
		log.Debug("Ignoring webhook event")
		return nil
	}

	purchaseID, err := uuid.Parse(event.Metadata["purchase_id"])
	if err != nil {
		log.Warn("Webhook payment without purchase reference")
		return nil
	}
	log = log.WithFields(logrus.Fields{"purchase_id": purchaseID, "charge_ref": event.ChargeRef})

	_, alreadyPaid, err := s.recordPaid(ctx, purchaseID, event.ChargeRef)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warn("Webhook payment for unknown purchase")
			return nil
		}
		return err
	}

	metrics.RecordPaymentOutcome("webhook_" + gateway.Succeeded.String())
	log.WithField("already_processed", alreadyPaid).Info("Payment confirmed by webhook")
	return nil
}

// GenerateInvoice renders the invoice of a paid purchase for its owner or
// an admin.
func (s *PaymentService) GenerateInvoice(ctx context.Context, purchaseID, userID uuid.UUID, admin bool) (*documents.Document, error) {
	purchase, err := s.purchases.FindByID(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NewNotFoundError("Purchase not found")
		}
		return nil, fmt.Errorf("failed to load purchase: %w", err)
	}
	if !admin && purchase.UserID != userID {
		return nil, utils.NewNotFoundError("Purchase not found")
	}
	if !purchase.IsPaid() {
		return nil, utils.NewValidationError("Invoice is only available for paid purchases")
	}

	return s.documents.Invoice(ctx, purchase)
}

func (s *PaymentService) loadOwned(ctx context.Context, purchaseID, userID uuid.UUID) (*models.Purchase, error) {
	purchase, err := s.purchases.FindByID(ctx, purchaseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, utils.NewNotFoundError("Purchase not found")
		}
		return nil, fmt.Errorf("failed to load purchase: %w", err)
	}
	if purchase.UserID != userID {
		return nil, utils.NewNotFoundError("Purchase not found")
	}
	return purchase, nil
}

func paidResult(p *models.Purchase, alreadyProcessed bool) *PaymentResult {
	result := &PaymentResult{
		PurchaseID:       p.ID,
		Status:           p.PaymentStatus,
		Amount:           p.PaymentAmount.StringFixed(2),
		PaidAt:           p.PaidAt,
		AlreadyProcessed: alreadyProcessed,
	}
	if p.ChargeRef != nil {
		result.ChargeRef = *p.ChargeRef
	}
	return result
}

func declineMessage(err error) string {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) && strings.TrimSpace(gwErr.Message) != "" {
		return gwErr.Message
	}
	return "Your card was declined"
}
