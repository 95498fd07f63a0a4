package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	"github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
	"github.com/stripe/stripe-go/v74/webhook"

	"github.com/javajoker/bulkwear-backend/internal/config"
)

type StripeGateway struct {
	api           *client.API
	webhookSecret string
}

func NewStripeGateway(cfg config.PaymentConfig) *StripeGateway {
	httpClient := &http.Client{Timeout: cfg.GatewayTimeout}
	api := &client.API{}
	api.Init(cfg.StripeSecretKey, stripe.NewBackends(httpClient))
	return &StripeGateway{api: api, webhookSecret: cfg.StripeWebhookSecret}
}

func (g *StripeGateway) FindOrCreateCustomer(ctx context.Context, customer Customer) (string, error) {
	list := &stripe.CustomerListParams{Email: stripe.String(customer.Email)}
	list.Limit = stripe.Int64(1)
	list.Context = ctx

	iter := g.api.Customers.List(list)
	if iter.Next() {
		return iter.Customer().ID, nil
	}
	if err := iter.Err(); err != nil {
		return "", classify(err)
	}

	params := &stripe.CustomerParams{
		Email: stripe.String(customer.Email),
		Name:  stripe.String(customer.Name),
	}
	params.Context = ctx
	for k, v := range customer.Metadata {
		params.AddMetadata(k, v)
	}

	created, err := g.api.Customers.New(params)
	if err != nil {
		return "", classify(err)
	}
	return created.ID, nil
}

func (g *StripeGateway) CreateCharge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(req.AmountMinor),
		Currency:           stripe.String(req.Currency),
		Customer:           stripe.String(req.CustomerRef),
		PaymentMethod:      stripe.String(req.PaymentMethod),
		ConfirmationMethod: stripe.String(string(stripe.PaymentIntentConfirmationMethodManual)),
		Confirm:            stripe.Bool(true),
		Description:        stripe.String(req.Description),
	}
	if req.ReturnURL != "" {
		params.ReturnURL = stripe.String(req.ReturnURL)
	}
	params.Context = ctx
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return nil, classify(err)
	}
	return intentResult(pi)
}

func intentResult(pi *stripe.PaymentIntent) (*ChargeResult, error) {
	switch pi.Status {
	case stripe.PaymentIntentStatusSucceeded:
		return &ChargeResult{Outcome: Succeeded, ChargeRef: pi.ID, Status: string(pi.Status)}, nil
	case stripe.PaymentIntentStatusRequiresAction:
		return &ChargeResult{
			Outcome:      RequiresAction,
			ChargeRef:    pi.ID,
			ClientSecret: pi.ClientSecret,
			Status:       string(pi.Status),
		}, nil
	case stripe.PaymentIntentStatusRequiresPaymentMethod, stripe.PaymentIntentStatusCanceled:
		message := "Payment failed"
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			message = pi.LastPaymentError.Msg
		}
		return nil, &Error{Outcome: Declined, Message: message}
	default:
		// processing and the like settle later through the webhook
		return nil, &Error{Outcome: Unknown, Message: "Payment status: " + string(pi.Status)}
	}
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEvent(payload, signature, g.webhookSecret)
	if err != nil {
		return nil, fmt.Errorf("invalid webhook signature: %w", err)
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if out.Type != EventPaymentSucceeded || event.Data == nil {
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("failed to decode payment intent: %w", err)
	}
	out.ChargeRef = pi.ID
	out.Metadata = pi.Metadata
	return out, nil
}

// classify maps a stripe or transport error onto an Outcome.
func classify(err error) error {
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		outcome := Unknown
		switch {
		case stripeErr.HTTPStatusCode == http.StatusUnauthorized || stripeErr.HTTPStatusCode == http.StatusForbidden:
			outcome = AuthFailure
		case stripeErr.HTTPStatusCode == http.StatusTooManyRequests:
			outcome = Unavailable
		case stripeErr.Type == stripe.ErrorTypeCard:
			outcome = Declined
		case stripeErr.Type == stripe.ErrorTypeInvalidRequest:
			outcome = InvalidRequest
		}
		return &Error{Outcome: outcome, Message: stripeErr.Msg, Cause: err}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Outcome: Unknown, Message: "gateway timed out", Cause: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Outcome: Unknown, Message: "gateway timed out", Cause: err}
	}
	var urlErr *url.Error
	var opErr *net.OpError
	if errors.As(err, &urlErr) || errors.As(err, &opErr) || netErr != nil {
		return &Error{Outcome: Unavailable, Message: "gateway unreachable", Cause: err}
	}

	return &Error{Outcome: Unknown, Message: err.Error(), Cause: err}
}
