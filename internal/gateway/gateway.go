// Package gateway talks to the card payment processor.
package gateway

import (
	"context"
	"errors"
	"fmt"
)

// Outcome classifies the result of a gateway call. Callers branch on the
// outcome, never on upstream message text.
type Outcome int

const (
	Succeeded Outcome = iota
	RequiresAction
	Declined
	InvalidRequest
	AuthFailure
	Unavailable
	Unknown
)

func (o Outcome) String() string {
	switch o {
	case Succeeded:
		return "succeeded"
	case RequiresAction:
		return "requires_action"
	case Declined:
		return "declined"
	case InvalidRequest:
		return "invalid_request"
	case AuthFailure:
		return "auth_failure"
	case Unavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

type Customer struct {
	Email    string
	Name     string
	Metadata map[string]string
}

type ChargeRequest struct {
	AmountMinor   int64
	Currency      string
	CustomerRef   string
	PaymentMethod string
	Description   string
	ReturnURL     string
	Metadata      map[string]string
}

// ChargeResult is returned for charges that did not fail: Succeeded or
// RequiresAction.
type ChargeResult struct {
	Outcome      Outcome
	ChargeRef    string
	ClientSecret string
	Status       string
}

// Error is a classified gateway failure. Message is the upstream text and
// is only for logs and display.
type Error struct {
	Outcome Outcome
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("gateway %s: %s", e.Outcome, e.Message)
	}
	return fmt.Sprintf("gateway %s", e.Outcome)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// OutcomeOf returns the outcome carried by err, or Unknown.
func OutcomeOf(err error) Outcome {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Outcome
	}
	return Unknown
}

// WebhookEvent is a verified notification from the processor.
type WebhookEvent struct {
	ID        string
	Type      string
	ChargeRef string
	Metadata  map[string]string
}

const EventPaymentSucceeded = "payment_intent.succeeded"

type Gateway interface {
	FindOrCreateCustomer(ctx context.Context, customer Customer) (string, error)
	CreateCharge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}
