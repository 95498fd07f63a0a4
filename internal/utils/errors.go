// internal/utils/errors.go
package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type ErrorKind string

const (
	KindValidation   ErrorKind = "VALIDATION_ERROR"
	KindBadRequest   ErrorKind = "BAD_REQUEST"
	KindUnauthorized ErrorKind = "UNAUTHORIZED"
	KindForbidden    ErrorKind = "FORBIDDEN"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindConflict     ErrorKind = "CONFLICT"
	KindRateLimited  ErrorKind = "RATE_LIMITED"
	KindUpstream     ErrorKind = "UPSTREAM_ERROR"
	KindInternal     ErrorKind = "INTERNAL_ERROR"
)

// UpstreamCategory narrows a KindUpstream error.
type UpstreamCategory string

const (
	UpstreamDeclined       UpstreamCategory = "declined"
	UpstreamInvalidRequest UpstreamCategory = "invalid_request"
	UpstreamAuth           UpstreamCategory = "auth"
	UpstreamConnectivity   UpstreamCategory = "connectivity"
	UpstreamUnknown        UpstreamCategory = "unknown"
)

// AppError is the error type services hand back to handlers.
type AppError struct {
	Kind      ErrorKind
	Message   string
	Category  UpstreamCategory
	Retryable bool
	Details   interface{}
	Err       error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindBadRequest:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindUpstream:
		switch e.Category {
		case UpstreamDeclined:
			return http.StatusPaymentRequired
		case UpstreamInvalidRequest:
			return http.StatusBadRequest
		case UpstreamConnectivity:
			return http.StatusServiceUnavailable
		default:
			return http.StatusBadGateway
		}
	default:
		return http.StatusInternalServerError
	}
}

func NewValidationError(message string) *AppError {
	return &AppError{Kind: KindValidation, Message: message}
}

func NewBadRequestError(message string) *AppError {
	return &AppError{Kind: KindBadRequest, Message: message}
}

func NewUnauthorizedError(message string) *AppError {
	return &AppError{Kind: KindUnauthorized, Message: message}
}

func NewForbiddenError(message string) *AppError {
	return &AppError{Kind: KindForbidden, Message: message}
}

func NewNotFoundError(message string) *AppError {
	return &AppError{Kind: KindNotFound, Message: message}
}

func NewConflictError(message string, retryable bool) *AppError {
	return &AppError{Kind: KindConflict, Message: message, Retryable: retryable}
}

func NewRateLimitedError(message string) *AppError {
	return &AppError{Kind: KindRateLimited, Message: message, Retryable: true}
}

func NewUpstreamError(category UpstreamCategory, message string, retryable bool, err error) *AppError {
	return &AppError{Kind: KindUpstream, Category: category, Message: message, Retryable: retryable, Err: err}
}

func NewInternalError(message string, err error) *AppError {
	return &AppError{Kind: KindInternal, Message: message, Err: err}
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HandleServiceError writes err using the API error envelope. Errors that
// are not *AppError are logged and reported as internal errors without
// their text.
func HandleServiceError(c *gin.Context, err error) {
	if fieldErrs := GetValidationErrors(err); len(fieldErrs) > 0 {
		ValidationErrorResponse(c, fieldErrs)
		return
	}

	appErr, ok := AsAppError(err)
	if !ok {
		logrus.WithError(err).WithField("path", c.Request.URL.Path).Error("Unhandled service error")
		InternalErrorResponse(c, "")
		return
	}

	if appErr.Kind == KindInternal {
		logrus.WithError(appErr).WithField("path", c.Request.URL.Path).Error("Internal service error")
		InternalErrorResponse(c, appErr.Message)
		return
	}

	details := appErr.Details
	if appErr.Kind == KindUpstream || appErr.Retryable {
		details = gin.H{
			"category":  appErr.Category,
			"retryable": appErr.Retryable,
		}
	}

	ErrorResponse(c, appErr.HTTPStatus(), string(appErr.Kind), appErr.Message, details)
}
